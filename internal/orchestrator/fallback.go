package orchestrator

import (
	"log/slog"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

// afterRunEnded runs the §4.4 post-terminal decision once a run's last
// event has been persisted and broadcast: update the session on a clean
// completion, or enqueue one synthetic retry (session_stale or fallback).
// A session_stale retry is tried at most once per request; if that retry
// fails with a fallback-eligible error, it can still fall back.
func (o *Orchestrator) afterRunEnded(r *run) {
	o.disarmTimers(r)

	if r.terminalPhase == agentcli.StatusComplete {
		if r.sawSessionInfo && r.sawAssistantText {
			sess := o.sessions.Get(o.project, r.agent)
			sess.NativeSessionID = r.nativeSessionID
			sess.LastModel = r.resolvedModel
			o.sessions.Update(sess)
		}
		return
	}

	if r.terminalPhase != agentcli.StatusFailed {
		return // cancelled: no retry, session left unchanged
	}

	if r.terminalKind == agentcli.ErrSessionStale && !r.triedNoSession {
		retry := &run{
			id:             r.id,
			req:            r.req,
			status:         RunQueued,
			createdAt:      r.createdAt,
			triedNoSession: true,
			forceNoSession: true,
		}
		o.queue = append([]*run{retry}, o.queue...)
		return
	}

	if r.terminalKind.FallbackEligible() && !r.isFallback && r.agent != o.cfg.FallbackAgent {
		avail := o.registry.Availability(o.ctx, o.cfg.FallbackAgent)
		if !avail.Installed {
			slog.Warn("fallback agent also unavailable, giving up", "project", o.project, "fallback_agent", o.cfg.FallbackAgent, "original_error", avail.Error)
			return
		}
		fellbackReq := r.req
		fellbackReq.Agent = o.cfg.FallbackAgent
		retry := &run{
			id:           types.NewRequestID(),
			req:          fellbackReq,
			status:       RunQueued,
			createdAt:    r.createdAt,
			isFallback:   true,
			fellBackFrom: r.agent,
		}
		o.emit(r, agentcli.NewStatusFellback(r.agent, o.cfg.FallbackAgent))
		o.queue = append([]*run{retry}, o.queue...)
	}
}
