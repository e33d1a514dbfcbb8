package agentcli

import (
	"context"
	"time"
)

// RunParams bundles the per-invocation arguments to Adapter.Run. It mirrors
// the subset of the submit payload (spec §6) the adapter itself needs; the
// orchestrator resolves model/session defaults before constructing one.
type RunParams struct {
	Workspace       string
	Instruction     string
	Model           ModelId
	PriorSessionID  string // empty if no session to resume
	IsInitialPrompt bool
	Images          []ImageRef

	// CancelGrace is the soft-interrupt-to-hard-kill window (spec §6
	// cancel_grace_seconds). Zero means the adapter should fall back to its
	// own built-in default.
	CancelGrace time.Duration
}

// ImageRef is an image attachment already written into the project
// workspace by the caller before submit.
type ImageRef struct {
	Path string
	Name string
}

// Adapter is the concrete driver for one external AI CLI. Implementations
// are selected by AgentKind through the Registry; there is no inheritance
// between them; each implements the contract independently against its own
// native protocol (spec §9 "dynamic dispatch" design note).
type Adapter interface {
	// Available performs a non-blocking probe of whether the CLI binary is
	// installed and usable. Callers are expected to cache the result
	// themselves (see adapter.Registry) rather than relying on the adapter
	// to do so, keeping Adapter itself stateless w.r.t. caching policy.
	Available(ctx context.Context) Availability

	// Initialize performs one-time per-workspace setup: writing an
	// agent-specific config/rules file, seeding the system prompt. It must
	// be idempotent — repeated calls with the same systemPrompt leave the
	// workspace byte-identical.
	Initialize(ctx context.Context, workspace, systemPrompt string) error

	// Run launches the subprocess and returns a channel of canonical
	// events. The channel is closed after the adapter has sent a terminal
	// Status event; it is a lazy, finite, single-consumer sequence closed
	// by the adapter, never by the caller. Cancelling ctx triggers the
	// soft-interrupt/grace/kill sequence described in spec §4.1/§5.
	Run(ctx context.Context, params RunParams) <-chan Event

	// Kind reports which AgentKind this adapter implements.
	Kind() AgentKind
}
