package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/l2bridge/goswitch/internal/config"
)

func TestLoadDefaultsOnly(t *testing.T) {
	t.Parallel()

	// Dev mode is the only override: without it, Load("") fails
	// validation for the missing jwt_secret (see
	// TestLoadMissingJWTSecretFails), so every other field here comes
	// from DefaultConfig.
	dir := t.TempDir()
	path := filepath.Join(dir, "goswitch.yaml")
	if err := os.WriteFile(path, []byte("admin:\n  dev: true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Admin.Addr != ":8443" {
		t.Errorf("Admin.Addr = %q, want :8443", cfg.Admin.Addr)
	}
	if cfg.STP.PathCostPerHop != 10 {
		t.Errorf("STP.PathCostPerHop = %d, want 10", cfg.STP.PathCostPerHop)
	}
}

func TestLoadMissingJWTSecretFails(t *testing.T) {
	t.Parallel()

	_, err := config.Load("")
	if err == nil {
		t.Fatal("Load: want error for missing jwt_secret without dev mode")
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "goswitch.yaml")
	contents := "admin:\n  addr: \":9443\"\n  jwt_secret: \"s3cret\"\nstp:\n  hello_interval: \"2s\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Admin.Addr != ":9443" {
		t.Errorf("Admin.Addr = %q, want :9443", cfg.Admin.Addr)
	}
	if cfg.STP.HelloInterval.String() != "2s" {
		t.Errorf("STP.HelloInterval = %s, want 2s", cfg.STP.HelloInterval)
	}
}

func TestLoadDevModeSkipsJWTRequirement(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "goswitch.yaml")
	if err := os.WriteFile(path, []byte("admin:\n  dev: true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := config.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"WARN", "WARN"},
		{"nonsense", "INFO"},
	} {
		if got := config.ParseLogLevel(tc.in).String(); got != tc.want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
