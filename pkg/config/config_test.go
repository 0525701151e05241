package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	f := pflag.NewFlagSet("gyp", pflag.ContinueOnError)
	RegisterFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return f
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), newFlags(t))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Format != "summary" {
		t.Errorf("Format = %q, want summary", cfg.Format)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Extension != ".gyp" {
		t.Errorf("Extension = %q, want .gyp", cfg.Extension)
	}
	if len(cfg.Variables) != 0 {
		t.Errorf("Variables = %v, want none", cfg.Variables)
	}
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gyp.toml")
	content := "format = \"dump\"\nport = 9000\nlog-level = \"warn\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GYP_PORT", "9100")
	t.Setenv("GYP_VARIABLE", "OS==mac,USE_X")

	cfg, err := LoadFile(path, newFlags(t, "-f", "json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Format != "json" {
		t.Errorf("flag should win: Format = %q", cfg.Format)
	}
	if cfg.Port != 9100 {
		t.Errorf("env should beat file: Port = %d", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("file should beat defaults: LogLevel = %q", cfg.LogLevel)
	}
	if want := []string{"OS==mac", "USE_X"}; !reflect.DeepEqual(cfg.Variables, want) {
		t.Errorf("Variables = %v, want %v", cfg.Variables, want)
	}
}

func TestLoadVariableFlags(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "none.toml"), newFlags(t, "-D", "A", "--variable", "B"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if want := []string{"A", "B"}; !reflect.DeepEqual(cfg.Variables, want) {
		t.Errorf("Variables = %v, want %v", cfg.Variables, want)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyp.toml")
	if err := os.WriteFile(path, []byte("format = \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path, newFlags(t)); err == nil {
		t.Error("expected an error for a malformed config file")
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "none.toml"), newFlags(t, "-p", "70000")); err == nil {
		t.Error("expected an error for port 70000")
	}
}
