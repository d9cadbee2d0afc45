package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"picstore/internal/format"
)

var (
	// outputFormatter is nil for plain text output.
	outputFormatter format.Formatter
	stdout          io.Writer = os.Stdout
)

func structuredOutput() bool {
	return outputFormatter != nil
}

func writeStructured(payload any) error {
	if outputFormatter == nil {
		return format.JSONFormatter{}.Write(stdout, payload)
	}
	return outputFormatter.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
