package chainmaker

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// NodeConfig is one ChainMaker node.
type NodeConfig struct {
	Address     string   `yaml:"address"`
	ConnCount   int      `yaml:"conn_count"`
	UseTLS      bool     `yaml:"use_tls"`
	TLSHostName string   `yaml:"tls_host_name"`
	CaPaths     []string `yaml:"ca_paths"`
}

// Config is the ChainMaker connection plus the contract's method names.
type Config struct {
	ChainID string `yaml:"chain_id"`
	OrgID   string `yaml:"org_id"`

	UserKeyPath  string `yaml:"user_key_path"`
	UserCertPath string `yaml:"user_cert_path"`

	UserSignKeyPath  string `yaml:"user_sign_key_path"`
	UserSignCertPath string `yaml:"user_sign_cert_path"`

	Nodes []NodeConfig `yaml:"nodes"`

	RetryLimit    int   `yaml:"retry_limit"`
	RetryInterval int   `yaml:"retry_interval"`
	TxTimeout     int64 `yaml:"tx_timeout_seconds"`

	ContractName string  `yaml:"contract_name"`
	Methods      Methods `yaml:"methods"`
}

// Methods names the contract entry points.
type Methods struct {
	GetAllIDs         string `yaml:"get_all_ids"`
	GetEntry          string `yaml:"get_entry"`
	GetEncryptedValue string `yaml:"get_encrypted_value"`
	IsAvailable       string `yaml:"is_available"`
	CreateEntry       string `yaml:"create_entry"`
	VerifyDecryption  string `yaml:"verify_decryption"`
}

func defaultMethods() Methods {
	return Methods{
		GetAllIDs:         "getAllBusinessIds",
		GetEntry:          "getBusinessData",
		GetEncryptedValue: "getEncryptedValue",
		IsAvailable:       "isAvailable",
		CreateEntry:       "createBusinessData",
		VerifyDecryption:  "verifyDecryption",
	}
}

// LoadConfig reads a YAML config file; empty method names get defaults.
func LoadConfig(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of ChainMaker config file: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ChainMaker config file '%s': %w", absPath, err)
	}

	cfg := Config{Methods: defaultMethods()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse ChainMaker YAML config file: %w", err)
	}
	cfg.fillDefaults()

	if cfg.ContractName == "" {
		return nil, fmt.Errorf("contract_name is required")
	}
	return &cfg, nil
}

func (c *Config) fillDefaults() {
	d := defaultMethods()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.Methods.GetAllIDs, d.GetAllIDs)
	fill(&c.Methods.GetEntry, d.GetEntry)
	fill(&c.Methods.GetEncryptedValue, d.GetEncryptedValue)
	fill(&c.Methods.IsAvailable, d.IsAvailable)
	fill(&c.Methods.CreateEntry, d.CreateEntry)
	fill(&c.Methods.VerifyDecryption, d.VerifyDecryption)
	if c.TxTimeout == 0 {
		c.TxTimeout = -1
	}
}
