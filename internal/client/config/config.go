package config

import (
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/status"
)

// Config holds runtime settings for the MoodKeeper CLI.
type Config struct {
	LedgerType       string `validate:"oneof=memory evm chainmaker"`
	RPCURL           string `validate:"required_if=LedgerType evm"`
	ContractAddress  string `validate:"required_if=LedgerType evm"`
	ChainID          int64  `validate:"gte=0"`
	ChainMakerConfig string `validate:"required_if=LedgerType chainmaker"`

	GatewayType     string `validate:"oneof=local relayer"`
	RelayerAddr     string `validate:"required_if=GatewayType relayer"`
	RelayerSecret   string `validate:"required_if=GatewayType relayer"`
	RelayerTokenTTL time.Duration
	// NetworkKey and KMSKey seed the local coprocessor (hex); empty means a
	// fresh random key per run.
	NetworkKey string `validate:"omitempty,hexadecimal"`
	KMSKey     string `validate:"omitempty,hexadecimal"`

	KeystorePath string `validate:"required"`
	DatabasePath string `validate:"required"`

	SuccessTTL          time.Duration `validate:"gt=0"`
	ErrorTTL            time.Duration `validate:"gt=0"`
	HistoryWindow       int           `validate:"gte=1"`
	OnlineCheckInterval time.Duration `validate:"gt=0"`

	ReportDir   string
	S3Bucket    string
	S3Region    string `validate:"required_with=S3Bucket"`
	S3Endpoint  string
	S3AccessKey string `validate:"required_with=S3Bucket"`
	S3SecretKey string `validate:"required_with=S3Bucket"`

	KafkaBrokers []string
	KafkaTopic   string `validate:"required_with=KafkaBrokers"`

	LogLevel string `validate:"oneof=debug info warn error"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LedgerType = "memory"
	c.GatewayType = "local"
	c.RelayerAddr = "127.0.0.1:50051"
	c.RelayerTokenTTL = 5 * time.Minute
	c.ChainID = 31337
	c.KeystorePath = "moodkeeper-wallet.json"
	c.DatabasePath = "moodkeeper.db"
	c.SuccessTTL = status.DefaultSuccessTTL
	c.ErrorTTL = status.DefaultErrorTTL
	c.HistoryWindow = status.DefaultWindow
	c.OnlineCheckInterval = 3 * time.Second
	c.ReportDir = "reports"
	c.S3Region = "us-east-1"
	c.KafkaTopic = "moodkeeper.activity"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
