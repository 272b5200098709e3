// Package config handles configuration for the relayer server,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the MoodKeeper relayer.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the gRPC endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps ciphertexts in memory.
//   - SecretKey: HMAC secret clients sign their access tokens with.
//   - NetworkKey / KMSKey: hex keys of the mock coprocessor. Empty means a
//     fresh random key per run, which invalidates stored ciphertexts.
//   - ShutdownTimeout: how long a graceful stop may take.
type Config struct {
	EndpointAddrGRPC string        `validate:"required"`
	DatabaseDSN      string
	SecretKey        string        `validate:"required"`
	NetworkKey       string        `validate:"omitempty,hexadecimal,len=64"`
	KMSKey           string        `validate:"omitempty,hexadecimal,len=64"`
	ShutdownTimeout  time.Duration `validate:"gt=0"`
	LogLevel         string        `validate:"oneof=debug info warn error"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden outside of local setups.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.SecretKey = "secretKey"
	c.ShutdownTimeout = 5 * time.Second
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
