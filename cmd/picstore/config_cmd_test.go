package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"picstore/internal/config"
)

func TestConfigGetAndShow(t *testing.T) {
	cfg := testConfig(t)
	out := captureOutput(t, nil)

	if err := runCmd(t, newConfigGetCmd(cfg), "", "images.max_upload_bytes"); err != nil {
		t.Fatalf("config get: %v", err)
	}
	if out.String() != "2097152\n" {
		t.Fatalf("unexpected value %q", out.String())
	}

	if err := runCmd(t, newConfigGetCmd(cfg), "", "nope"); err == nil {
		t.Fatal("expected unknown key error")
	}

	out.Reset()
	if err := runCmd(t, newConfigShowCmd(cfg), ""); err != nil {
		t.Fatalf("config show: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(config.AllowedKeys()) {
		t.Fatalf("expected one line per key, got %d", len(lines))
	}
	if !strings.Contains(out.String(), "session.register_path = /register") {
		t.Fatalf("unexpected show output %q", out.String())
	}
}

func TestConfigSetWritesTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PICSTORE_CONFIG_DIR", dir)
	out := captureOutput(t, nil)

	if err := runCmd(t, newConfigSetCmd(), "", "images.max_upload_bytes", "1048576"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	path := filepath.Join(dir, ".picstore.toml")
	if !strings.Contains(out.String(), path) {
		t.Fatalf("expected path in output, got %q", out.String())
	}

	var written struct {
		Images struct {
			MaxUploadBytes int64 `toml:"max_upload_bytes"`
		} `toml:"images"`
	}
	if _, err := toml.DecodeFile(path, &written); err != nil {
		t.Fatalf("decode written config: %v", err)
	}
	if written.Images.MaxUploadBytes != 1<<20 {
		t.Fatalf("expected 1048576, got %d", written.Images.MaxUploadBytes)
	}

	if err := runCmd(t, newConfigSetCmd(), "", "session.settings_path", "settings"); err == nil {
		t.Fatal("expected relative settings path to be rejected")
	}
}
