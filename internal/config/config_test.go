package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const exampleConfig = `providers:
  zones:
    class: yaml
    settings:
      directory: ./zones
  live:
    class: bind
    settings:
      directory: /var/named
processors:
  acme:
    class: acme-filter
  extdns:
    class: external-dns-filter
    txt_prefix: extdns
    owner_id: my-cluster
    type_prefixes: [a-, cname-]
zones:
  example.com.:
    sources: [zones]
    targets: [live]
    processors: [acme, extdns]
  local.example.:
    sources: [zones]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	cfg, err := LoadFromPath(writeConfig(t, exampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(cfg.Providers))
	}
	if cfg.Providers["live"].Class != "bind" {
		t.Errorf("expected live class 'bind', got %q", cfg.Providers["live"].Class)
	}
	if cfg.Providers["zones"].Settings["directory"] != "./zones" {
		t.Errorf("expected directory './zones', got %q", cfg.Providers["zones"].Settings["directory"])
	}

	extdns := cfg.Processors["extdns"]
	if extdns.Class != "external-dns-filter" {
		t.Errorf("expected class 'external-dns-filter', got %q", extdns.Class)
	}
	wantOptions := map[string]any{
		"txt_prefix":    "extdns",
		"owner_id":      "my-cluster",
		"type_prefixes": []any{"a-", "cname-"},
	}
	if diff := cmp.Diff(wantOptions, extdns.Options); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"example.com.", "local.example."}, cfg.ZoneNames()); diff != "" {
		t.Errorf("zone names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_DefaultPathFromEnv(t *testing.T) {
	t.Setenv("DNS_GITOPS_CONFIG", writeConfig(t, exampleConfig))
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	if _, err := LoadFromPath("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	content := `providers:
  zones:
    settings:
      directory: ./zones
processors:
  broken: {}
zones:
  example.com:
    targets: [nowhere]
    processors: [missing]
`
	_, err := Parse([]byte(content))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{
		`provider "zones": missing required field 'class'`,
		`processor "broken": missing required field 'class'`,
		`zone "example.com": name must end with '.'`,
		`zone "example.com": no sources`,
		`zone "example.com": unknown provider "nowhere"`,
		`zone "example.com": unknown processor "missing"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got: %v", want, err)
		}
	}
}

func TestParse_NoZones(t *testing.T) {
	if _, err := Parse([]byte("providers: {}\n")); err == nil {
		t.Fatal("expected error for config without zones, got nil")
	}
}

func TestDrift(t *testing.T) {
	cfg, err := Parse([]byte(exampleConfig))
	if err != nil {
		t.Fatal(err)
	}

	drift := cfg.Drift()
	want := map[string]ZoneConfig{
		"example.com.": {
			Sources:    []string{"live"},
			Targets:    []string{"zones"},
			Processors: []string{"acme", "extdns"},
		},
	}
	if diff := cmp.Diff(want, drift.Zones); diff != "" {
		t.Errorf("drift zones mismatch (-want +got):\n%s", diff)
	}
	if err := drift.Validate(); err != nil {
		t.Errorf("drift config should be valid: %v", err)
	}

	// The original configuration is untouched.
	if got := cfg.Zones["example.com."].Sources; !cmp.Equal(got, []string{"zones"}) {
		t.Errorf("original sources modified: %v", got)
	}
}
