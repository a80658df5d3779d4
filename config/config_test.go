package config

import (
	"os"
	"path/filepath"
	"testing"

	"routevault/crypto"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadWritesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:8645" {
		t.Fatalf("listen address = %q", cfg.ListenAddress)
	}
	if cfg.PlatformFeeBps != 25 || cfg.RateLimitPerMinute != 600 {
		t.Fatalf("defaults not applied: fee %d rate %d", cfg.PlatformFeeBps, cfg.RateLimitPerMinute)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
}

func TestLoadFillsMissingFields(t *testing.T) {
	admin := crypto.EncodeAddress(crypto.DeriveAddress("admin"))
	path := writeConfig(t, `
Admin = "`+admin+`"
PlatformFeeBps = 30
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlatformFeeBps != 30 {
		t.Fatalf("fee = %d", cfg.PlatformFeeBps)
	}
	if cfg.ListenAddress == "" || cfg.DataDir == "" || cfg.Environment == "" {
		t.Fatalf("defaults missing: %+v", cfg)
	}
	addr, err := cfg.AdminAddress()
	if err != nil {
		t.Fatalf("admin address: %v", err)
	}
	if addr != crypto.DeriveAddress("admin") {
		t.Fatalf("admin address mismatch")
	}
}

func TestValidateRejectsFeeOverBound(t *testing.T) {
	path := writeConfig(t, `PlatformFeeBps = 10001`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for fee over bound")
	}
}

func TestValidateRejectsBadAddress(t *testing.T) {
	path := writeConfig(t, `Admin = "not-an-address"`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for bad admin address")
	}
	path = writeConfig(t, `Operators = ["also-not-an-address"]`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for bad operator address")
	}
}

func TestValidateRejectsUnknownPausedModule(t *testing.T) {
	path := writeConfig(t, `PausedModules = ["warp-drive"]`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown module")
	}
}

func TestPausesNormalised(t *testing.T) {
	cfg := &Config{PausedModules: []string{" Router ", "ESCROW", ""}}
	pauses := cfg.Pauses()
	if !pauses["router"] || !pauses["escrow"] {
		t.Fatalf("pauses = %v", pauses)
	}
	if len(pauses) != 2 {
		t.Fatalf("unexpected entries: %v", pauses)
	}
}

func TestAggregatorProgramOptional(t *testing.T) {
	cfg := &Config{}
	addr, err := cfg.AggregatorProgramAddress()
	if err != nil {
		t.Fatalf("empty aggregator: %v", err)
	}
	if addr != ([20]byte{}) {
		t.Fatalf("expected zero address")
	}
}
