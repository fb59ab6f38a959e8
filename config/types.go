package config

// Logging controls how the process writes structured logs.
type Logging struct {
	Service    string `toml:"Service"`
	Env        string `toml:"Env"`
	Format     string `toml:"Format"` // json or console
	Level      string `toml:"Level"`
	File       string `toml:"File,omitempty"`
	MaxSizeMB  int    `toml:"MaxSizeMB,omitempty"`
	MaxBackups int    `toml:"MaxBackups,omitempty"`
	MaxAgeDays int    `toml:"MaxAgeDays,omitempty"`
}

// Metrics configures the Prometheus textfile dump written after each command.
type Metrics struct {
	TextfilePath string `toml:"TextfilePath,omitempty"`
}

// Vault holds engine-level switches.
type Vault struct {
	Paused           bool   `toml:"Paused"`
	StrictInvariants bool   `toml:"StrictInvariants"`
	DefaultFeeBps    uint16 `toml:"DefaultFeeBps"`
}

// Asset describes the payment asset the CLI bootstraps and displays.
type Asset struct {
	Symbol   string `toml:"Symbol"`
	Decimals uint8  `toml:"Decimals"`
	// Mint is the bech32 address of the payment mint once created.
	Mint string `toml:"Mint,omitempty"`
}

// Pauses maps module names to their pause switch.
type Pauses struct {
	Vault bool
}

// IsPaused satisfies the module guard's pause view.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "vault":
		return p.Vault
	default:
		return false
	}
}
