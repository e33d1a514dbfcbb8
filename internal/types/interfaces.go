// internal/types/interfaces.go
package types

import (
	"context"

	"github.com/user/agentcore/pkg/agentcli"
)

// ProjectStore is the external collaborator described in spec §1: project
// id → workspace path, preferred agent, preferred model. Read-only from the
// core's perspective.
type ProjectStore interface {
	Get(ctx context.Context, id ProjectID) (*Project, error)
}

// MessageStore is the append-only persistence boundary described in spec
// §3/§5/§6. Assumed transactionally safe by the core.
type MessageStore interface {
	// Append assigns no seq itself -- callers (the orchestrator) stamp Seq
	// before calling Append, so persistence and broadcast agree on order.
	Append(ctx context.Context, msg *StoredMessage) error

	// Tail returns the most recent events for a project, in seq order,
	// bounded by limit.
	Tail(ctx context.Context, project ProjectID, limit int) ([]*StoredMessage, error)

	// Since returns every event with seq > afterSeq for a project, in
	// order, for subscribe_from_seq replay (spec §4.5, §8 property 7).
	Since(ctx context.Context, project ProjectID, afterSeq int64) ([]*StoredMessage, error)

	// LatestSessionInfo scans for the most recent session_info event per
	// agent kind, used by the Session State Store to hydrate on startup
	// (spec §4.3).
	LatestSessionInfo(ctx context.Context, project ProjectID) (map[agentcli.AgentKind]*StoredMessage, error)

	// MaxSeq returns the highest seq persisted for a project, or 0 if none.
	MaxSeq(ctx context.Context, project ProjectID) (int64, error)

	// RecentProjects returns up to limit project ids with persisted
	// messages, most-recently-active first. Used by cmd/orchestrator-tui
	// to pick a default project to tail without reaching into the
	// orchestrator's own project directory.
	RecentProjects(ctx context.Context, limit int) ([]ProjectID, error)
}

// PromptLoader reads the plain markdown system prompt for a project+agent.
// The core never parses its content (spec §6); it is handed verbatim to
// Adapter.Initialize.
type PromptLoader interface {
	Load(ctx context.Context, project ProjectID, agent agentcli.AgentKind) (string, error)
}
