package config

import (
	"fmt"
	"strings"
)

const (
	maxFeeBps   = 2000
	maxDecimals = 18
)

func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory", "leveldb", "bolt":
	default:
		return fmt.Errorf("backend: unsupported value %q", cfg.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging: format must be json or console")
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation limits must not be negative")
	}
	if cfg.Vault.DefaultFeeBps > maxFeeBps {
		return fmt.Errorf("vault: default_fee_bps > %d", maxFeeBps)
	}
	if cfg.Asset.Decimals > maxDecimals {
		return fmt.Errorf("asset: decimals > %d", maxDecimals)
	}
	if strings.TrimSpace(cfg.Asset.Symbol) == "" {
		return fmt.Errorf("asset: symbol must not be empty")
	}
	return nil
}
