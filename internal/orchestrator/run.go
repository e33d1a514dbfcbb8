// Package orchestrator implements the Project Orchestrator (C4, spec
// §4.4): one instance per active project, running a single-threaded FIFO
// loop that owns the subprocess lifecycle, session state, event
// persistence and fan-out, timeouts, cancellation, and fallback.
//
// Grounded on the teacher's internal/gateway package: Run mirrors
// gateway.Run, the per-project loop in loop.go mirrors
// gateway.Queue.processLane collapsed from N-lanes-over-a-semaphore to
// one-lane-per-project (no cross-project cap exists in this spec).
package orchestrator

import (
	"context"
	"time"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

// isTerminalPhase reports whether phase ends a run (spec §3 invariant 2).
func isTerminalPhase(phase agentcli.StatusPhase) bool {
	switch phase {
	case agentcli.StatusComplete, agentcli.StatusCancelled, agentcli.StatusFailed:
		return true
	}
	return false
}

// RunStatus is the per-run state machine position (spec §4.4 state
// diagram).
type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunStarting   RunStatus = "starting"
	RunRunning    RunStatus = "running"
	RunCancelling RunStatus = "cancelling"
	RunEnded      RunStatus = "ended"
)

// run tracks one submitted request end to end, including fallback
// bookkeeping so the loop can enforce "fallback at most once per
// originating request" (spec §4.4).
type run struct {
	id        types.RequestID
	req       types.SubmitRequest
	status    RunStatus
	createdAt time.Time

	cancel context.CancelFunc

	// fellBackFrom is set once this run is itself a synthetic fallback
	// retry, naming the agent the original request targeted, so a second
	// fallback is never attempted.
	fellBackFrom agentcli.AgentKind
	isFallback   bool

	// triedNoSession marks that this request has already been retried once
	// with prior_session_id cleared after a session_stale error (spec S5),
	// so a second stale response ends the request instead of looping.
	triedNoSession bool
	// forceNoSession is set on the synthetic session_stale retry run to
	// suppress passing PriorSessionID even if the session store still has
	// one cached (it races the native side deleting it).
	forceNoSession bool

	// agent is the concrete kind this run actually executes against, resolved
	// once in startRun (req.Agent, defaulting to the project's preferred
	// agent). Distinct from fellBackFrom, which names the originating kind.
	agent agentcli.AgentKind
	// resolvedModel is the canonical model actually used, recorded on the
	// session once the run completes successfully.
	resolvedModel agentcli.ModelId

	// events is the adapter's canonical event stream for this run. nil until
	// startRun launches it (or never set, for the synthetic
	// agent-unavailable fast-fail path).
	events <-chan agentcli.Event

	stallTimer    *time.Timer
	deadlineTimer *time.Timer
	// timeoutFired distinguishes an orchestrator-triggered cancellation
	// (stall/deadline) from a user Cancel() call, so the loop can translate
	// the adapter's generic Status{cancelled} into Error{timeout} +
	// Status{failed,kind=timeout} (spec §4.4 step 6).
	timeoutFired bool

	sawSessionInfo   bool
	sawAssistantText bool
	nativeSessionID  string

	terminalPhase agentcli.StatusPhase
	terminalKind  agentcli.ErrorKind
}
