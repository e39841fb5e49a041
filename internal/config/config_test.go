package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "socket:\n  sleep: 0.25\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.HasSleep() {
		t.Fatal("HasSleep = false for a configured value")
	}
	if got := cfg.ReceiveInterval(); got != 250*time.Millisecond {
		t.Errorf("ReceiveInterval = %v, want 250ms", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected an error for a missing file")
	}
	if cfg == nil {
		t.Fatal("Load returned nil config; startup must proceed on defaults")
	}
	if got := cfg.ReceiveInterval(); got != time.Second {
		t.Errorf("ReceiveInterval = %v, want default 1s", got)
	}
}

func TestLoad_BrokenDocument(t *testing.T) {
	path := writeConfig(t, "socket: [not a mapping")

	cfg, err := Load(path)
	if err == nil {
		t.Error("expected an error for a broken document")
	}
	if cfg.HasSleep() {
		t.Error("HasSleep = true for a broken document")
	}
}

// A sleep value of the wrong type must not abort startup.
func TestLoad_WrongType(t *testing.T) {
	path := writeConfig(t, "socket:\n  sleep: fast\n")

	cfg, err := Load(path)
	if err == nil {
		t.Error("expected an error for a mistyped value")
	}
	if got := cfg.ReceiveInterval(); got != time.Second {
		t.Errorf("ReceiveInterval = %v, want default 1s", got)
	}
}

func TestReceiveInterval_NonPositive(t *testing.T) {
	zero := 0.0
	cfg := &Config{Socket: SocketConfig{Sleep: &zero}}
	if got := cfg.ReceiveInterval(); got != time.Second {
		t.Errorf("ReceiveInterval = %v, want default 1s", got)
	}
	if cfg.HasSleep() {
		t.Error("HasSleep = true for a non-positive value")
	}
}
