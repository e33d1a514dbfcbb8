package adapter

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/agentcore/pkg/agentcli"
)

// garbageLimit is the buffered-unparseable-output ceiling before an adapter
// discards it with a warning rather than crashing the stream (spec §4.1
// parsing state machine).
const garbageLimit = 64 * 1024

// lineDecoder turns one native stdout line into a canonical event. ok=false
// means the line did not parse (garbage or a continuation the adapter
// chooses not to buffer further). A native session id reaches the caller
// as a SessionInfo event, not as a separate return value.
type lineDecoder func(line string) (ev agentcli.Event, ok bool)

// runAndDecode drives one subprocess invocation end to end: starts it,
// pumps stdout through decode, emits canonical events on the returned
// channel, and always terminates the channel with exactly one terminal
// Status event (spec invariants 1-2 in §3). name/args/dir/env are handed
// to startSubprocess verbatim; whether any event was decoded before the
// process exited is tracked internally and decides how a crash is classified.
// leading is emitted right after the opening Status{start} -- adapters use
// it for the model_fallback Error (spec §4.1/§7), which is decided before
// the subprocess exists and so can never come from decode. cancelGrace is
// the configured soft-interrupt-to-kill window (spec §6
// cancel_grace_seconds); zero falls back to defaultCancelGrace.
func runAndDecode(ctx context.Context, kind agentcli.AgentKind, name string, args []string, dir string, env []string, cancelGrace time.Duration, decode lineDecoder, leading ...agentcli.Event) <-chan agentcli.Event {
	out := make(chan agentcli.Event, 64)

	go func() {
		defer close(out)
		out <- agentcli.NewStatus(agentcli.StatusStart)
		for _, ev := range leading {
			out <- ev
		}

		sp, err := startSubprocess(ctx, name, args, dir, env, nil, cancelGrace)
		if err != nil {
			out <- agentcli.NewError(agentcli.ErrSpawnFailed, err.Error(), false)
			out <- agentcli.NewStatusFailed(agentcli.ErrSpawnFailed)
			return
		}

		var garbage int
		sawEvent := false
		openCalls := map[string]bool{}
		// lastFatalKind tracks the most recent non-informational Error the
		// native stream reported. model_fallback is purely informational
		// (spec §4.1: "does not fail the run") and never sets this.
		var lastFatalKind agentcli.ErrorKind

		for line := range sp.lines {
			ev, ok := decode(line)
			if !ok {
				garbage += len(line)
				if garbage > garbageLimit {
					slog.Warn("adapter discarding unparseable output", "agent", kind, "bytes", garbage)
					garbage = 0
				}
				continue
			}
			sawEvent = true
			if ev.Kind == agentcli.EventToolCall {
				openCalls[ev.ToolCall.CallID] = true
			}
			if ev.Kind == agentcli.EventToolResult {
				delete(openCalls, ev.ToolResult.CallID)
			}
			if ev.Kind == agentcli.EventError && ev.Error.Kind != agentcli.ErrModelFallback {
				lastFatalKind = ev.Error.Kind
			}
			out <- ev
		}

		waitErr := <-sp.done

		// Spec §3 invariant 3: unmatched ToolCalls at terminal time get a
		// synthesized failed ToolResult.
		for callID := range openCalls {
			out <- agentcli.NewToolResult(callID, false, "", "interrupted")
		}

		switch {
		case ctx.Err() != nil:
			out <- agentcli.NewStatus(agentcli.StatusCancelled)
		case lastFatalKind != "":
			out <- agentcli.NewStatusFailed(lastFatalKind)
		case waitErr != nil && !sawEvent:
			out <- agentcli.NewError(agentcli.ErrCrashedBeforeFirstEvent, waitErr.Error(), false)
			out <- agentcli.NewStatusFailed(agentcli.ErrCrashedBeforeFirstEvent)
		case waitErr != nil:
			out <- agentcli.NewError(agentcli.ErrInternal, waitErr.Error(), false)
			out <- agentcli.NewStatusFailed(agentcli.ErrInternal)
		default:
			out <- agentcli.NewStatus(agentcli.StatusComplete)
		}
	}()

	return out
}
