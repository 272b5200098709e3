// Package cli provides the interactive MoodKeeper command-line client.
//
// It drives the wallet session, the sentiment workflows, the entry list
// with its search and team filter, statistics, the activity history and
// report export from a simple REPL. A background watcher polls the ledger
// and switches the prompt between online and offline mode; status changes
// are printed as they happen.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
