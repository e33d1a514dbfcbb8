package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/agentcore/pkg/agentcli"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func TestLoad_WritesDefaultsWhenMissing(t *testing.T) {
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be written, stat failed: %v", err)
	}
	if cfg.DefaultRunDeadlineSeconds != 600 {
		t.Errorf("DefaultRunDeadlineSeconds = %d, want 600", cfg.DefaultRunDeadlineSeconds)
	}
	if cfg.DefaultStallSeconds != 90 {
		t.Errorf("DefaultStallSeconds = %d, want 90", cfg.DefaultStallSeconds)
	}
	if cfg.SubscriberQueueCapacity != 512 {
		t.Errorf("SubscriberQueueCapacity = %d, want 512", cfg.SubscriberQueueCapacity)
	}
	if cfg.FallbackAgent != string(agentcli.Claude) {
		t.Errorf("FallbackAgent = %q, want %q", cfg.FallbackAgent, agentcli.Claude)
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := Defaults()
	original.LogLevel = "debug"
	original.DefaultStallSeconds = 45
	original.FallbackAgent = string(agentcli.Gemini)

	if err := Save(path, original); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", loaded.LogLevel)
	}
	if loaded.DefaultStallSeconds != 45 {
		t.Errorf("DefaultStallSeconds = %d, want 45", loaded.DefaultStallSeconds)
	}
	if loaded.FallbackAgent != string(agentcli.Gemini) {
		t.Errorf("FallbackAgent = %q, want gemini", loaded.FallbackAgent)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	if err := Save(path, Defaults()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := tempConfigPath(t)
	if err := Save(path, Defaults()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	t.Setenv("AGENTCORE_DEFAULT_STALL_SECONDS", "15")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultStallSeconds != 15 {
		t.Errorf("DefaultStallSeconds = %d, want 15 (env override)", cfg.DefaultStallSeconds)
	}
}

func TestToOrchestratorConfig(t *testing.T) {
	cfg := Defaults()
	cfg.FallbackAgent = string(agentcli.Qwen)

	oc := cfg.ToOrchestratorConfig()
	if oc.FallbackAgent != agentcli.Qwen {
		t.Errorf("FallbackAgent = %v, want qwen", oc.FallbackAgent)
	}
	if oc.DefaultStall.Seconds() != 90 {
		t.Errorf("DefaultStall = %v, want 90s", oc.DefaultStall)
	}
	if oc.SubscriberQueueCapacity != 512 {
		t.Errorf("SubscriberQueueCapacity = %d, want 512", oc.SubscriberQueueCapacity)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.json")

	if err := Save(path, Defaults()); err != nil {
		t.Fatalf("Save should create parent directory, got: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist: %v", err)
	}
}
