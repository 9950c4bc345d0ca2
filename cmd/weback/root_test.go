package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"weback-home/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if got := strings.TrimSpace(out); got != "weback "+version {
		t.Errorf("output: got %q", got)
	}
}

func TestInfoRequiresTwoArgs(t *testing.T) {
	if _, err := execute(t, "info", "ck-002s"); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestLoadAppliesLogLevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "weback:\n  username: u\n  password: p\n  region: \"1\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	opts := &rootOptions{configPath: path, logLevel: "debug"}
	cfg, logger, err := opts.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level: got %q, want debug", cfg.Log.Level)
	}
	if logger == nil {
		t.Fatal("expected logger")
	}
}

func TestLoginFailsOnMissingConfig(t *testing.T) {
	_, err := execute(t, "login", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("error: got %v, want config error", err)
	}
}

func TestNewCredentialStoreUsesConfiguredPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wb_creds")
	cfg := &config.Config{WeBack: config.WeBackConfig{CredsFile: path}}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := newCredentialStore(cfg, logger)
	if err != nil {
		t.Fatalf("newCredentialStore: %v", err)
	}
	if store.Path() != path {
		t.Errorf("path: got %q, want %q", store.Path(), path)
	}
	if !strings.Contains(buf.String(), path) {
		t.Errorf("cache path not logged: %s", buf.String())
	}
}
