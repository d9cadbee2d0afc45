package main

import (
	"encoding/json"
	"strings"
	"testing"

	"picstore/internal/api"
	"picstore/internal/format"
)

func TestUserAddListDisable(t *testing.T) {
	cfg := testConfig(t)
	out := captureOutput(t, nil)

	if err := runCmd(t, newUserAddCmd(cfg), "password-123\n", "Alice", "--password-stdin", "--role", "admin"); err != nil {
		t.Fatalf("user add: %v", err)
	}
	if got := out.String(); got != "created admin user alice (id 1)\n" {
		t.Fatalf("unexpected add output %q", got)
	}

	out.Reset()
	if err := runCmd(t, newUserAddCmd(cfg), "password-456", "bob", "--password-stdin"); err != nil {
		t.Fatalf("user add bob: %v", err)
	}
	if !strings.Contains(out.String(), "created member user bob") {
		t.Fatalf("expected member default role, got %q", out.String())
	}

	out.Reset()
	if err := runCmd(t, newUserSetDisabledCmd(cfg, "disable", "", true), "", "bob"); err != nil {
		t.Fatalf("user disable: %v", err)
	}
	if out.String() != "disabled user bob\n" {
		t.Fatalf("unexpected disable output %q", out.String())
	}

	out = captureOutput(t, format.JSONFormatter{})
	if err := runCmd(t, newUserListCmd(cfg), ""); err != nil {
		t.Fatalf("user list: %v", err)
	}
	var listed struct {
		Count int                `json:"count"`
		Users []api.UserResponse `json:"users"`
	}
	if err := json.Unmarshal(out.Bytes(), &listed); err != nil {
		t.Fatalf("decode list output %q: %v", out.String(), err)
	}
	if listed.Count != 2 || len(listed.Users) != 2 {
		t.Fatalf("expected two users, got %+v", listed)
	}
	for _, user := range listed.Users {
		if user.Username == "bob" && !user.Disabled {
			t.Fatal("expected bob disabled")
		}
		if user.Username == "alice" && (user.Role != "admin" || user.ImageCount != 0) {
			t.Fatalf("unexpected alice entry %+v", user)
		}
	}
}

func TestUserAddValidation(t *testing.T) {
	cfg := testConfig(t)
	captureOutput(t, nil)

	cases := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{name: "password flag", args: []string{"alice"}, want: "--password-stdin is required"},
		{name: "short password", stdin: "short", args: []string{"alice", "--password-stdin"}, want: "at least"},
		{name: "bad role", stdin: "password-123", args: []string{"alice", "--password-stdin", "--role", "owner"}, want: "invalid role"},
		{name: "bad username", stdin: "password-123", args: []string{"a b", "--password-stdin"}, want: "invalid username"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := runCmd(t, newUserAddCmd(cfg), tc.stdin, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestUserDisableUnknown(t *testing.T) {
	cfg := testConfig(t)
	captureOutput(t, nil)
	err := runCmd(t, newUserSetDisabledCmd(cfg, "disable", "", true), "", "ghost")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
