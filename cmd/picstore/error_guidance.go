package main

import (
	"context"
	"errors"
	"net"

	"picstore/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthenticated", "unauthorized":
			lines = append(lines, "hint: verify PICSTORE_USERNAME and PICSTORE_PASSWORD name an enabled user (see: picstore user list).")
		case "forbidden":
			lines = append(lines, "hint: only the creator may upload, and only owners or admins may change a profile picture or delete an image.")
		case "resource_exhausted":
			lines = append(lines, "hint: too many failed logins; wait before retrying.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify PICSTORE_API_URL points to a picstore server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase PICSTORE_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a picstore server is running at PICSTORE_API_URL.",
			"hint: start local server manually with: picstore srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
