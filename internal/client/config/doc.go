// Package config loads runtime configuration for the MoodKeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config; only non-empty values
//     override.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-l string   ledger type: memory, evm, chainmaker
//	-r string   EVM JSON-RPC endpoint
//	-k string   contract address
//	-n int      EVM chain id
//	-m string   ChainMaker YAML config path
//	-g string   encryption gateway: local, relayer
//	-a string   relayer address:port
//	-s string   relayer access token secret
//	-w string   wallet keystore file
//	-d string   local cache database file
//	-i int      online status check interval (seconds)
//	-b string   comma-separated Kafka brokers
//	-t string   Kafka topic
//	-v string   log level
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "ledger_type": "evm",
//	  "rpc_url": "http://127.0.0.1:8545",
//	  "contract_address": "0x5FbDB2315678afecb367f032d93F642f64180aa3",
//	  "gateway_type": "relayer",
//	  "relayer_addr": "127.0.0.1:50051",
//	  "relayer_secret": "change-me",
//	  "status_success_ttl": "2s",
//	  "online_check_interval": "3s",
//	  "s3_bucket": "moodkeeper-reports",
//	  "kafka_brokers": ["127.0.0.1:9092"]
//	}
//
// Config.Validate checks the result with go-playground/validator tags.
package config
