package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.yaml")
	data := []byte(`
mud_name: TestMUD
port: 4201
max_line_len: 2048
store: sqlite
sqlite_path: /tmp/acct.sqlite
web_enabled: true
web_port: 9090
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MudName != "TestMUD" || cfg.Port != 4201 {
		t.Errorf("identity = %q/%d", cfg.MudName, cfg.Port)
	}
	if cfg.MaxLineLen != 2048 {
		t.Errorf("MaxLineLen = %d, want 2048", cfg.MaxLineLen)
	}
	if cfg.Store != "sqlite" || cfg.SQLitePath != "/tmp/acct.sqlite" {
		t.Errorf("store config = %q/%q", cfg.Store, cfg.SQLitePath)
	}
	if !cfg.WebEnabled || cfg.WebPort != 9090 {
		t.Errorf("web config = %v/%d", cfg.WebEnabled, cfg.WebPort)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.yaml")
	if err := os.WriteFile(path, []byte("mud_name: Sparse\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != DefaultConfig().Port {
		t.Errorf("unset port = %d, want default %d", cfg.Port, DefaultConfig().Port)
	}
	if cfg.MaxLineLen != DefaultMaxLineLen {
		t.Errorf("unset cap = %d, want %d", cfg.MaxLineLen, DefaultMaxLineLen)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing file did not error")
	}
}

func TestTextsOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "quit.txt"), []byte("See you around."), 0o644); err != nil {
		t.Fatalf("write quit.txt: %v", err)
	}

	texts := NewTexts(dir)
	if got := texts.Quit(); got != "See you around." {
		t.Errorf("Quit = %q, want file override", got)
	}
	// Files that are absent fall back to built-ins.
	if got := texts.Welcome(); got != defaultWelcome {
		t.Errorf("Welcome did not fall back to the built-in text")
	}
}
