package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/faideww/catchlog/internal/userdata"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_ENGINE", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("SESSION_POLL_SECONDS", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.StoreEngine != "sqlite" || cfg.DBPath != "data/catchlog.db" {
		t.Fatalf("store = %s %s", cfg.StoreEngine, cfg.DBPath)
	}
	if cfg.SessionPoll != 2*time.Minute || cfg.IdentifyRPS != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("STORE_ENGINE", "redis")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unknown engine")
	}
	t.Setenv("STORE_ENGINE", "json")
	t.Setenv("HOME_LAT", "north")
	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "HOME_LAT") {
		t.Fatalf("LoadConfig() error = %v", err)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORE_ENGINE", "json")
	t.Setenv("DB_PATH", filepath.Join(dir, "log.json"))
	t.Setenv("LOG_FILE", filepath.Join(dir, "logs", "catchlog.log"))

	out, err := run(t, "top", "--limit", "3")
	if err != nil {
		t.Fatalf("top error = %v", err)
	}
	if !strings.Contains(out, "No catches yet.") {
		t.Fatalf("top output = %q", out)
	}

	out, err = run(t, "bests")
	if err != nil {
		t.Fatalf("bests error = %v", err)
	}
	if !strings.Contains(out, "Longest Fish") {
		t.Fatalf("bests output = %q", out)
	}

	out, err = run(t, "export", "--out", "-")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	var data userdata.UserData
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("export output not JSON: %v", err)
	}
	if len(data.Lures) != 4 {
		t.Fatalf("exported lures = %d", len(data.Lures))
	}

	if _, err := run(t, "clear"); err == nil {
		t.Fatalf("clear without --yes succeeded")
	}
	if out, err := run(t, "clear", "--yes"); err != nil || !strings.Contains(out, "cleared") {
		t.Fatalf("clear = %q, %v", out, err)
	}
}
