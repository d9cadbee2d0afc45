package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		want    Formatter
		wantErr bool
	}{
		{name: "", want: nil},
		{name: "text", want: nil},
		{name: "JSON", want: JSONFormatter{}},
		{name: "yml", want: YAMLFormatter{}},
		{name: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("New(%q)=%#v want %#v", tt.name, got, tt.want)
			}
		})
	}
}

func TestFormatters(t *testing.T) {
	payload := sample{ID: 3, Name: "alice"}

	var jsonOut bytes.Buffer
	if err := (JSONFormatter{}).Write(&jsonOut, payload); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(jsonOut.String(), `"name": "alice"`) {
		t.Fatalf("unexpected json output: %s", jsonOut.String())
	}

	var yamlOut bytes.Buffer
	if err := (YAMLFormatter{}).Write(&yamlOut, payload); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if yamlOut.String() != "id: 3\nname: alice\n" {
		t.Fatalf("unexpected yaml output: %q", yamlOut.String())
	}
}
