package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/flagx"
)

var knownFlags = []string{"-l", "-r", "-k", "-n", "-m", "-g", "-a", "-s", "-w", "-d", "-i", "-b", "-t", "-v"}

// parseFlags populates Config fields from command-line flags. Only the
// flags listed in knownFlags are considered.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.LedgerType, "l", cfg.LedgerType, "ledger type: memory, evm or chainmaker")
	fs.StringVar(&cfg.RPCURL, "r", cfg.RPCURL, "EVM JSON-RPC endpoint")
	fs.StringVar(&cfg.ContractAddress, "k", cfg.ContractAddress, "contract address")
	fs.Int64Var(&cfg.ChainID, "n", cfg.ChainID, "EVM chain id")
	fs.StringVar(&cfg.ChainMakerConfig, "m", cfg.ChainMakerConfig, "ChainMaker YAML config path")
	fs.StringVar(&cfg.GatewayType, "g", cfg.GatewayType, "encryption gateway: local or relayer")
	fs.StringVar(&cfg.RelayerAddr, "a", cfg.RelayerAddr, "address and port of the relayer")
	fs.StringVar(&cfg.RelayerSecret, "s", cfg.RelayerSecret, "relayer access token secret")
	fs.StringVar(&cfg.KeystorePath, "w", cfg.KeystorePath, "wallet keystore file")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local cache database file")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	brokers := fs.String("b", strings.Join(cfg.KafkaBrokers, ","), "comma-separated Kafka brokers for the activity stream")
	fs.StringVar(&cfg.KafkaTopic, "t", cfg.KafkaTopic, "Kafka activity topic")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.KafkaBrokers = splitList(*brokers)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
