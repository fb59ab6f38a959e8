package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DataDir      string  `toml:"DataDir"`
	Backend      string  `toml:"Backend"`
	KeystorePath string  `toml:"KeystorePath"`
	Logging      Logging `toml:"logging"`
	Metrics      Metrics `toml:"metrics"`
	Vault        Vault   `toml:"vault"`
	Asset        Asset   `toml:"asset"`
}

// Pauses reports the module pause switches derived from the configuration.
func (c *Config) Pauses() Pauses {
	if c == nil {
		return Pauses{}
	}
	return Pauses{Vault: c.Vault.Paused}
}

// Load loads the configuration from the given path, writing a default file
// first when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if strings.TrimSpace(cfg.KeystorePath) == "" {
		cfg.KeystorePath = defaultKeystorePath(path)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh workspace.
func Default() *Config {
	return &Config{
		DataDir: "./vault-data",
		Backend: "leveldb",
		Logging: Logging{
			Service: "vaultctl",
			Env:     "local",
			Format:  "console",
			Level:   "info",
		},
		Vault: Vault{DefaultFeeBps: 0},
		Asset: Asset{Symbol: "USDC", Decimals: 6},
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	cfg.KeystorePath = defaultKeystorePath(path)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg back to path.
func Save(path string, cfg *Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	return persist(path, cfg)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "caller.keystore")
}
