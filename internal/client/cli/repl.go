package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isConnected() bool
	WalletNew(ctx context.Context) error
	WalletImport(ctx context.Context) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Submit(ctx context.Context) error
	Discard(ctx context.Context) error
	List(ctx context.Context) error
	Search(ctx context.Context, query string) error
	Team(ctx context.Context, team string) error
	Teams(ctx context.Context) error
	Show(ctx context.Context, key string) error
	Decrypt(ctx context.Context, key string) error
	Stats(ctx context.Context) error
	History(ctx context.Context, all bool) error
	Refresh(ctx context.Context) error
	Check(ctx context.Context) error
	Export(ctx context.Context, target string) error
}

// runREPL starts a simple read–eval–print loop for the MoodKeeper CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF or when the user types "exit" or "quit".
//
// Not connected:
//
//	help, wallet new, wallet import, connect, list, search, team, teams,
//	show, stats, history, refresh, check, export, exit
//
// Connected, additionally:
//
//	submit, discard, decrypt, disconnect
//
// Handler errors are printed and never end the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("mk %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isConnected() {
				printlnFn("Available commands: submit, discard, (l)ist, search, team, teams, show, decrypt, stats, history, refresh, check, export, disconnect, exit")
			} else {
				printlnFn("Available commands: wallet new, wallet import, connect, (l)ist, search, team, teams, show, stats, history, refresh, check, export, exit")
			}

		case "wallet":
			switch firstArg(args) {
			case "new":
				printErr(a.WalletNew(ctx))
			case "import":
				printErr(a.WalletImport(ctx))
			default:
				printlnFn("Usage: wallet new|import")
			}

		case "connect":
			printErr(a.Connect(ctx))

		case "disconnect":
			printErr(a.Disconnect(ctx))

		case "submit":
			printErr(a.Submit(ctx))

		case "discard":
			printErr(a.Discard(ctx))

		case "l", "list":
			printErr(a.List(ctx))

		case "search":
			printErr(a.Search(ctx, strings.Join(args, " ")))

		case "team":
			if len(args) == 0 {
				printlnFn("Usage: team <name|all>")
				continue
			}
			printErr(a.Team(ctx, strings.Join(args, " ")))

		case "teams":
			printErr(a.Teams(ctx))

		case "show":
			if len(args) == 0 {
				printlnFn("Usage: show <id>")
				continue
			}
			printErr(a.Show(ctx, args[0]))

		case "decrypt":
			if len(args) == 0 {
				printlnFn("Usage: decrypt <id>")
				continue
			}
			printErr(a.Decrypt(ctx, args[0]))

		case "stats":
			printErr(a.Stats(ctx))

		case "history":
			printErr(a.History(ctx, firstArg(args) == "all"))

		case "refresh":
			printErr(a.Refresh(ctx))

		case "check":
			printErr(a.Check(ctx))

		case "export":
			printErr(a.Export(ctx, firstArg(args)))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printErr(err error) {
	if err != nil {
		printlnFn("Error:", err)
	}
}
