package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"picstore/internal/config"
	"picstore/internal/format"
)

// captureOutput redirects command output for the duration of the test.
func captureOutput(t *testing.T, formatter format.Formatter) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFormatter := stdout, outputFormatter
	stdout, outputFormatter = &buf, formatter
	t.Cleanup(func() {
		stdout, outputFormatter = prevOut, prevFormatter
	})
	return &buf
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "picstore.db")
	return &cfg
}

func runCmd(t *testing.T, cmd *cobra.Command, stdin string, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetErr(&bytes.Buffer{})
	return cmd.ExecuteContext(context.Background())
}
