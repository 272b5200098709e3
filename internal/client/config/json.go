package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/flagx"
	"github.com/dmitrijs2005/moodkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so they can be "3s" or integer nanoseconds.
type JsonConfig struct {
	LedgerType       string `json:"ledger_type"`
	RPCURL           string `json:"rpc_url"`
	ContractAddress  string `json:"contract_address"`
	ChainID          int64  `json:"chain_id"`
	ChainMakerConfig string `json:"chainmaker_config"`

	GatewayType     string         `json:"gateway_type"`
	RelayerAddr     string         `json:"relayer_addr"`
	RelayerSecret   string         `json:"relayer_secret"`
	RelayerTokenTTL timex.Duration `json:"relayer_token_ttl"`
	NetworkKey      string         `json:"network_key"`
	KMSKey          string         `json:"kms_key"`

	KeystorePath string `json:"keystore_path"`
	DatabasePath string `json:"database_path"`

	SuccessTTL          timex.Duration `json:"status_success_ttl"`
	ErrorTTL            timex.Duration `json:"status_error_ttl"`
	HistoryWindow       int            `json:"history_window"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`

	ReportDir   string `json:"report_dir"`
	S3Bucket    string `json:"s3_bucket"`
	S3Region    string `json:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`

	KafkaBrokers []string `json:"kafka_brokers"`
	KafkaTopic   string   `json:"kafka_topic"`

	LogLevel string `json:"log_level"`
}

// parseJson overlays cfg with the non-empty values of the JSON file named by
// -c/-config. Without such a flag it does nothing. Read and decode errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, v timex.Duration) {
		if v.Duration != 0 {
			*dst = v.Duration
		}
	}

	str(&cfg.LedgerType, jc.LedgerType)
	str(&cfg.RPCURL, jc.RPCURL)
	str(&cfg.ContractAddress, jc.ContractAddress)
	if jc.ChainID != 0 {
		cfg.ChainID = jc.ChainID
	}
	str(&cfg.ChainMakerConfig, jc.ChainMakerConfig)

	str(&cfg.GatewayType, jc.GatewayType)
	str(&cfg.RelayerAddr, jc.RelayerAddr)
	str(&cfg.RelayerSecret, jc.RelayerSecret)
	str(&cfg.NetworkKey, jc.NetworkKey)
	str(&cfg.KMSKey, jc.KMSKey)

	str(&cfg.KeystorePath, jc.KeystorePath)
	str(&cfg.DatabasePath, jc.DatabasePath)

	dur(&cfg.RelayerTokenTTL, jc.RelayerTokenTTL)
	dur(&cfg.SuccessTTL, jc.SuccessTTL)
	dur(&cfg.ErrorTTL, jc.ErrorTTL)
	dur(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)

	if jc.HistoryWindow != 0 {
		cfg.HistoryWindow = jc.HistoryWindow
	}

	str(&cfg.ReportDir, jc.ReportDir)
	str(&cfg.S3Bucket, jc.S3Bucket)
	str(&cfg.S3Region, jc.S3Region)
	str(&cfg.S3Endpoint, jc.S3Endpoint)
	str(&cfg.S3AccessKey, jc.S3AccessKey)
	str(&cfg.S3SecretKey, jc.S3SecretKey)

	if len(jc.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = jc.KafkaBrokers
	}
	str(&cfg.KafkaTopic, jc.KafkaTopic)

	str(&cfg.LogLevel, jc.LogLevel)
}
