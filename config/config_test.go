package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.RPCAddress != ":8645" {
		t.Fatalf("RPCAddress = %q", cfg.RPCAddress)
	}
	if cfg.NetworkName != "dealvault-local" {
		t.Fatalf("NetworkName = %q", cfg.NetworkName)
	}
	if cfg.MinimumStakeAmount() != nil {
		t.Fatalf("default MinimumStake should be unset")
	}
	if _, err := ParseAddress(cfg.DirectoryAddress); err != nil {
		t.Fatalf("default DirectoryAddress invalid: %v", err)
	}
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `RPCAddress = ":9000"
DataDir = "/var/lib/dealvault"
DirectoryAddress = "0x0101010101010101010101010101010101010101"
DirectoryOwner = "0x0202020202020202020202020202020202020202"
CustodyVault = "0x0303030303030303030303030303030303030303"
RegistryVault = "0x0404040404040404040404040404040404040404"
MinimumStake = "5000"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":9000" || cfg.DataDir != "/var/lib/dealvault" {
		t.Fatalf("config = %+v", cfg)
	}
	// Unset fields fall back to defaults.
	if cfg.NetworkName != "dealvault-local" {
		t.Fatalf("NetworkName = %q", cfg.NetworkName)
	}
	if stake := cfg.MinimumStakeAmount(); stake == nil || stake.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("MinimumStake = %v", stake)
	}
}

func TestLoadRejectsBadAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `DirectoryAddress = "not-an-address"
DirectoryOwner = "0x0202020202020202020202020202020202020202"
CustodyVault = "0x0303030303030303030303030303030303030303"
RegistryVault = "0x0404040404040404040404040404040404040404"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("invalid address accepted")
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress(""); err == nil {
		t.Fatalf("empty address accepted")
	}
	if _, err := ParseAddress("0xabcd"); err == nil {
		t.Fatalf("short address accepted")
	}
	addr, err := ParseAddress("0x0101010101010101010101010101010101010101")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addr[0] != 0x01 || addr[19] != 0x01 {
		t.Fatalf("addr = %x", addr)
	}
}
