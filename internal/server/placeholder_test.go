package server

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinPlaceholder(t *testing.T) {
	placeholder, err := LoadPlaceholder("")
	if err != nil {
		t.Fatalf("load placeholder: %v", err)
	}
	if placeholder.MediaType != "image/png" {
		t.Fatalf("unexpected media type %q", placeholder.MediaType)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(placeholder.Content))
	if err != nil {
		t.Fatalf("decode placeholder: %v", err)
	}
	if cfg.Width != placeholderSize || cfg.Height != placeholderSize {
		t.Fatalf("unexpected placeholder size %dx%d", cfg.Width, cfg.Height)
	}

	again, _ := LoadPlaceholder("  ")
	if !bytes.Equal(again.Content, placeholder.Content) {
		t.Fatal("expected built-in placeholder to be stable")
	}
}

func TestLoadPlaceholderFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avatar.jpg")
	content := testJPEG(t, 20, 10)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write placeholder: %v", err)
	}

	placeholder, err := LoadPlaceholder(path)
	if err != nil {
		t.Fatalf("load placeholder: %v", err)
	}
	if placeholder.MediaType != "image/jpeg" || !bytes.Equal(placeholder.Content, content) {
		t.Fatalf("unexpected placeholder %q (%d bytes)", placeholder.MediaType, len(placeholder.Content))
	}

	if _, err := LoadPlaceholder(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatal("expected error for missing file")
	}

	textPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(textPath, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write text file: %v", err)
	}
	if _, err := LoadPlaceholder(textPath); err == nil {
		t.Fatal("expected error for non-image placeholder")
	}
}
