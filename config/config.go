package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config captures the daemon's runtime configuration.
type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	NetworkName string `toml:"NetworkName"`

	// DirectoryAddress is the directory's ledger identity: the custody fee
	// sink and pause authority. DirectoryOwner administers it.
	DirectoryAddress string `toml:"DirectoryAddress"`
	DirectoryOwner   string `toml:"DirectoryOwner"`

	// CustodyVault and RegistryVault hold escrowed deposits and posted
	// arbiter bonds respectively.
	CustodyVault  string `toml:"CustodyVault"`
	RegistryVault string `toml:"RegistryVault"`

	// MinimumStake overrides the arbiter registration bond, denominated in
	// the smallest currency unit. Empty keeps the built-in default.
	MinimumStake string `toml:"MinimumStake"`
}

const defaultConfig = `RPCAddress = ":8645"
DataDir = "./dealvault-data"
NetworkName = "dealvault-local"
DirectoryAddress = "0x0000000000000000000000000000000000000d1f"
DirectoryOwner = "0x0000000000000000000000000000000000000ade"
CustodyVault = "0x00000000000000000000000000000000000000cb"
RegistryVault = "0x00000000000000000000000000000000000000cc"
MinimumStake = ""
`

// Load reads the configuration from path, creating a default file when none
// exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o600); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if _, err := toml.Decode(defaultConfig, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./dealvault-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "dealvault-local"
	}
}

// Validate checks the address fields and the optional stake override.
func Validate(cfg *Config) error {
	for name, raw := range map[string]string{
		"DirectoryAddress": cfg.DirectoryAddress,
		"DirectoryOwner":   cfg.DirectoryOwner,
		"CustodyVault":     cfg.CustodyVault,
		"RegistryVault":    cfg.RegistryVault,
	} {
		if _, err := ParseAddress(raw); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if raw := strings.TrimSpace(cfg.MinimumStake); raw != "" {
		if _, ok := new(big.Int).SetString(raw, 10); !ok {
			return fmt.Errorf("config: MinimumStake: invalid amount %q", raw)
		}
	}
	return nil
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if trimmed == "" {
		return addr, fmt.Errorf("address required")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, err
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("address length %d", len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

// MinimumStakeAmount returns the configured stake override, nil when unset.
func (c *Config) MinimumStakeAmount() *big.Int {
	raw := strings.TrimSpace(c.MinimumStake)
	if raw == "" {
		return nil
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil
	}
	return amount
}
