// Package config loads the process-scoped configuration enumerated in spec
// §6: on-disk format is a JSON file (as in the teacher), with environment
// variables layered on top at higher precedence, grounded on
// joescharf-pm/cmd/serve.go's viper+cobra wiring. The only command-line
// flag cmd/orchestratord offers is --config, the file's path; no config
// key can be set by a flag.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/user/agentcore/internal/orchestrator"
	"github.com/user/agentcore/pkg/agentcli"
)

// Config is the on-disk/env-overlaid configuration. Field names match
// spec §6's config keys so env vars (AGENTCORE_<KEY>) line up without
// translation.
type Config struct {
	DataDir    string `json:"data_dir" mapstructure:"data_dir"`
	LogLevel   string `json:"log_level" mapstructure:"log_level"`
	ListenAddr string `json:"listen_addr" mapstructure:"listen_addr"`

	DefaultRunDeadlineSeconds     int    `json:"default_run_deadline_seconds" mapstructure:"default_run_deadline_seconds"`
	DefaultStallSeconds           int    `json:"default_stall_seconds" mapstructure:"default_stall_seconds"`
	SubscriberQueueCapacity       int    `json:"subscriber_queue_capacity" mapstructure:"subscriber_queue_capacity"`
	IdleOrchestratorLingerSeconds int    `json:"idle_orchestrator_linger_seconds" mapstructure:"idle_orchestrator_linger_seconds"`
	AvailabilityCacheSeconds      int    `json:"availability_cache_seconds" mapstructure:"availability_cache_seconds"`
	HistoryReplayDefault          int    `json:"history_replay_default" mapstructure:"history_replay_default"`
	FallbackAgent                 string `json:"fallback_agent" mapstructure:"fallback_agent"`
	CancelGraceSeconds            int    `json:"cancel_grace_seconds" mapstructure:"cancel_grace_seconds"`
}

// Defaults returns the spec §6 defaults plus the teacher-style ambient
// fields (data dir, log level, listen address).
func Defaults() *Config {
	return &Config{
		DataDir:    filepath.Join(os.Getenv("HOME"), ".agentcore"),
		LogLevel:   "info",
		ListenAddr: ":8088",

		DefaultRunDeadlineSeconds:     600,
		DefaultStallSeconds:           90,
		SubscriberQueueCapacity:       512,
		IdleOrchestratorLingerSeconds: 30,
		AvailabilityCacheSeconds:      60,
		HistoryReplayDefault:          200,
		FallbackAgent:                 string(agentcli.Claude),
		CancelGraceSeconds:            2,
	}
}

// Load reads path (writing spec-default JSON if it does not yet exist),
// then overlays environment variables prefixed AGENTCORE_ (e.g.
// AGENTCORE_DEFAULT_STALL_SECONDS) at higher precedence than the file.
// The viper instance is private to Load; no flag layer is added on top.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	BindDefaults(v, cfg)
	v.SetEnvPrefix("AGENTCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// BindDefaults registers cfg's values as viper defaults, the lowest
// precedence tier beneath file and env. Load is its only caller.
func BindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("default_run_deadline_seconds", cfg.DefaultRunDeadlineSeconds)
	v.SetDefault("default_stall_seconds", cfg.DefaultStallSeconds)
	v.SetDefault("subscriber_queue_capacity", cfg.SubscriberQueueCapacity)
	v.SetDefault("idle_orchestrator_linger_seconds", cfg.IdleOrchestratorLingerSeconds)
	v.SetDefault("availability_cache_seconds", cfg.AvailabilityCacheSeconds)
	v.SetDefault("history_replay_default", cfg.HistoryReplayDefault)
	v.SetDefault("fallback_agent", cfg.FallbackAgent)
	v.SetDefault("cancel_grace_seconds", cfg.CancelGraceSeconds)
}

// Save atomically writes cfg as indented JSON (temp file + rename, the same
// idiom as internal/adapter.writeIdempotent).
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToOrchestratorConfig converts the flat on-disk representation into the
// orchestrator.Config the Manager consumes.
func (c *Config) ToOrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		DefaultRunDeadline:      time.Duration(c.DefaultRunDeadlineSeconds) * time.Second,
		DefaultStall:            time.Duration(c.DefaultStallSeconds) * time.Second,
		SubscriberQueueCapacity: c.SubscriberQueueCapacity,
		IdleLinger:              time.Duration(c.IdleOrchestratorLingerSeconds) * time.Second,
		AvailabilityCacheTTL:    time.Duration(c.AvailabilityCacheSeconds) * time.Second,
		HistoryReplayDefault:    c.HistoryReplayDefault,
		FallbackAgent:           agentcli.AgentKind(c.FallbackAgent),
		CancelGrace:             time.Duration(c.CancelGraceSeconds) * time.Second,
	}
}
