package orchestrator

import (
	"time"

	"github.com/user/agentcore/pkg/agentcli"
)

// Config holds the eight process-scoped values from spec §6, applied
// uniformly by every project's Orchestrator. internal/config populates this
// from file/env/flag via viper; DefaultConfig matches the spec's defaults.
type Config struct {
	DefaultRunDeadline      time.Duration
	DefaultStall            time.Duration
	SubscriberQueueCapacity int
	IdleLinger              time.Duration
	AvailabilityCacheTTL    time.Duration
	HistoryReplayDefault    int
	FallbackAgent           agentcli.AgentKind
	CancelGrace             time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultRunDeadline:      600 * time.Second,
		DefaultStall:            90 * time.Second,
		SubscriberQueueCapacity: 512,
		IdleLinger:              30 * time.Second,
		AvailabilityCacheTTL:    60 * time.Second,
		HistoryReplayDefault:    200,
		FallbackAgent:           agentcli.Claude,
		CancelGrace:             2 * time.Second,
	}
}
