package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8480 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8480)
	}
	if cfg.Signer.Name != "parlor" || cfg.Signer.Version != "1" {
		t.Errorf("Signer = %+v", cfg.Signer)
	}
	if cfg.Settlement.ExpiryWindow != "24h" {
		t.Errorf("Settlement.ExpiryWindow = %q, want %q", cfg.Settlement.ExpiryWindow, "24h")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be true by default")
	}
	if cfg.Operator.Token != "" {
		t.Error("Operator.Token should be empty by default")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[api]
host = "0.0.0.0"
port = 9000

[signer]
operator = "0x00000000000000000000000000000000000000aa"
chain_id = 137

[settlement]
expiry_window = "48h"

[operator]
token = "sekrit"
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9000 {
		t.Errorf("API = %+v", cfg.API)
	}
	if cfg.Signer.ChainID != 137 {
		t.Errorf("Signer.ChainID = %d, want 137", cfg.Signer.ChainID)
	}
	// Unset fields keep their defaults.
	if cfg.Signer.Name != "parlor" {
		t.Errorf("Signer.Name = %q, want default", cfg.Signer.Name)
	}
	if cfg.ExpiryWindow() != 48*time.Hour {
		t.Errorf("ExpiryWindow = %v, want 48h", cfg.ExpiryWindow())
	}
	if cfg.Operator.Token != "sekrit" {
		t.Errorf("Operator.Token = %q", cfg.Operator.Token)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.API.Port != 8480 {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestExpiryWindow_Invalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settlement.ExpiryWindow = "not-a-duration"
	if cfg.ExpiryWindow() != 24*time.Hour {
		t.Errorf("invalid window should fall back to 24h, got %v", cfg.ExpiryWindow())
	}
}
