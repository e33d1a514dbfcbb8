package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/agentcore/internal/adapter"
	"github.com/user/agentcore/internal/session"
	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

type submitCmd struct {
	req    types.SubmitRequest
	result chan submitResult
}

type submitResult struct {
	id  types.RequestID
	err error
}

type cancelCmd struct {
	id     types.RequestID
	result chan bool
}

// Orchestrator is the Project Orchestrator (C4, spec §4.4): a
// single-threaded FIFO loop owning one project's subprocess lifecycle,
// session state, persistence, and broadcast fan-out.
type Orchestrator struct {
	project        types.ProjectID
	workspace      string
	preferredAgent agentcli.AgentKind

	cfg      Config
	registry *adapter.Registry
	sessions *session.Store
	messages types.MessageStore
	prompts  types.PromptLoader

	ctx    context.Context
	cancel context.CancelFunc

	submitCh  chan submitCmd
	cancelCh  chan cancelCmd
	broadcast chan agentcli.Event
	stopped   chan struct{}

	queue   []*run
	running *run
}

// New constructs an Orchestrator for one project and starts its loop
// goroutine. Callers (internal/orchestrator.Manager) own its lifetime.
func New(project *types.Project, cfg Config, registry *adapter.Registry, sessions *session.Store, messages types.MessageStore, prompts types.PromptLoader) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		project:        project.ID,
		workspace:      project.Workspace,
		preferredAgent: project.PreferredAgent,
		cfg:            cfg,
		registry:       registry,
		sessions:       sessions,
		messages:       messages,
		prompts:        prompts,
		ctx:            ctx,
		cancel:         cancel,
		submitCh:       make(chan submitCmd),
		cancelCh:       make(chan cancelCmd),
		broadcast:      make(chan agentcli.Event, 1024),
		stopped:        make(chan struct{}),
	}
	go o.loop()
	return o
}

// Submit enqueues a request and returns its request id immediately (spec
// §4.4 "returns immediately with a monotonically increasing request id").
func (o *Orchestrator) Submit(ctx context.Context, req types.SubmitRequest) (types.RequestID, error) {
	result := make(chan submitResult, 1)
	select {
	case o.submitCh <- submitCmd{req: req, result: result}:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-o.stopped:
		return "", fmt.Errorf("orchestrator for project %s is shut down", o.project)
	}
	select {
	case r := <-result:
		return r.id, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Cancel sets the cancel signal on the matching run, wherever it is in the
// pipeline (spec §4.4 "Best-effort... Cancelling a queued request discards
// it and emits a Status{cancelled}").
func (o *Orchestrator) Cancel(ctx context.Context, id types.RequestID) (bool, error) {
	result := make(chan bool, 1)
	select {
	case o.cancelCh <- cancelCmd{id: id, result: result}:
	case <-ctx.Done():
		return false, ctx.Err()
	case <-o.stopped:
		return false, fmt.Errorf("orchestrator for project %s is shut down", o.project)
	}
	select {
	case ok := <-result:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Subscribe returns the project's single live canonical-event stream. Only
// the Subscription Hub consumes it; the Hub is responsible for fanning it
// out to individual client connections with their own bounded queues (spec
// §4.5).
func (o *Orchestrator) Subscribe() <-chan agentcli.Event {
	return o.broadcast
}

// Shutdown cancels the in-flight run, discards the pending queue as
// Status{cancelled}, and stops the loop (spec §4.4).
func (o *Orchestrator) Shutdown() {
	o.cancel()
	<-o.stopped
}

func (o *Orchestrator) loop() {
	defer close(o.stopped)
	defer close(o.broadcast)

	for {
		for o.running == nil && len(o.queue) > 0 && o.ctx.Err() == nil {
			next := o.queue[0]
			o.queue = o.queue[1:]
			o.startRun(next)
		}

		var events <-chan agentcli.Event
		var stallC, deadlineC <-chan time.Time
		if o.running != nil {
			events = o.running.events
			if o.running.stallTimer != nil {
				stallC = o.running.stallTimer.C
			}
			if o.running.deadlineTimer != nil {
				deadlineC = o.running.deadlineTimer.C
			}
		}

		select {
		case <-o.ctx.Done():
			o.drainShutdown()
			return

		case cmd := <-o.submitCh:
			id := types.NewRequestID()
			o.queue = append(o.queue, &run{id: id, req: cmd.req, status: RunQueued, createdAt: time.Now()})
			cmd.result <- submitResult{id: id}

		case cmd := <-o.cancelCh:
			cmd.result <- o.handleCancel(cmd.id)

		case ev, ok := <-events:
			if !ok {
				r := o.running
				o.running = nil
				o.afterRunEnded(r)
				continue
			}
			if o.running.stallTimer != nil {
				o.running.stallTimer.Reset(o.cfg.DefaultStall)
			}
			o.handleEvent(o.running, ev)

		case <-stallC:
			o.running.timeoutFired = true
			o.running.cancel()

		case <-deadlineC:
			o.running.timeoutFired = true
			o.running.cancel()
		}
	}
}

// handleCancel implements both halves of spec §4.4's cancel(): discarding a
// still-queued request, or signalling the currently running one.
func (o *Orchestrator) handleCancel(id types.RequestID) bool {
	for i, r := range o.queue {
		if r.id == id {
			o.queue = append(o.queue[:i], o.queue[i+1:]...)
			o.emit(r, agentcli.NewStatus(agentcli.StatusCancelled))
			return true
		}
	}
	if o.running != nil && o.running.id == id {
		o.running.cancel()
		return true
	}
	return false
}

// startRun resolves agent/model/session, pre-checks availability, and
// either launches the adapter or fails the run synthetically without
// spawning a subprocess (spec §8 boundary behavior).
func (o *Orchestrator) startRun(r *run) {
	agent := r.req.Agent
	if agent == "" {
		agent = o.preferredAgent
	}
	r.agent = agent
	r.status = RunStarting

	avail := o.registry.Availability(o.ctx, agent)
	if !avail.Installed {
		o.failFast(r, agentcli.ErrCLINotInstalled, avail.Error)
		return
	}

	ad := o.registry.Get(agent)
	if ad == nil {
		o.failFast(r, agentcli.ErrCLINotInstalled, "no adapter registered for agent")
		return
	}

	sess := o.sessions.Get(o.project, agent)
	model := r.req.Model
	if model == "" {
		model = sess.LastModel
	}
	r.resolvedModel = model

	priorSession := sess.NativeSessionID
	if r.forceNoSession {
		priorSession = ""
	}

	systemPrompt, err := o.prompts.Load(o.ctx, o.project, agent)
	if err != nil {
		slog.Warn("system prompt load failed, proceeding without one", "project", o.project, "agent", agent, "error", err)
		systemPrompt = ""
	}
	if err := ad.Initialize(o.ctx, o.workspace, systemPrompt); err != nil {
		o.failFast(r, agentcli.ErrInternal, err.Error())
		return
	}

	deadline := o.cfg.DefaultRunDeadline
	if r.req.DeadlineSeconds > 0 {
		d := time.Duration(r.req.DeadlineSeconds) * time.Second
		if d < 60*time.Second {
			d = 60 * time.Second
		}
		if d > 3600*time.Second {
			d = 3600 * time.Second
		}
		deadline = d
	}

	runCtx, cancel := context.WithCancel(o.ctx)
	r.cancel = cancel
	r.status = RunRunning
	o.running = r
	o.armTimers(r, deadline)
	r.events = ad.Run(runCtx, agentcli.RunParams{
		Workspace:       o.workspace,
		Instruction:     r.req.Instruction,
		Model:           model,
		PriorSessionID:  priorSession,
		IsInitialPrompt: r.req.IsInitial,
		Images:          r.req.Images,
		CancelGrace:     o.cfg.CancelGrace,
	})
}

// failFast completes a run without ever spawning a subprocess: used when
// the agent is not installed or Initialize itself fails.
func (o *Orchestrator) failFast(r *run, kind agentcli.ErrorKind, detail string) {
	r.status = RunRunning
	o.emit(r, agentcli.NewStatus(agentcli.StatusStart))
	o.emit(r, agentcli.NewError(kind, detail, false))
	o.emit(r, agentcli.NewStatusFailed(kind))
	r.terminalPhase = agentcli.StatusFailed
	r.terminalKind = kind
	o.afterRunEnded(r)
}

// handleEvent records per-run bookkeeping needed by afterRunEnded, applies
// the timeout/cancellation translation from spec §4.4 step 6, and persists
// + broadcasts every event exactly once.
func (o *Orchestrator) handleEvent(r *run, ev agentcli.Event) {
	switch ev.Kind {
	case agentcli.EventSessionInfo:
		r.sawSessionInfo = true
		r.nativeSessionID = ev.SessionInfo.NativeSessionID
	case agentcli.EventAssistantText:
		r.sawAssistantText = true
	case agentcli.EventStatus:
		if ev.Status.Phase == agentcli.StatusCancelled && r.timeoutFired {
			o.emit(r, agentcli.NewError(agentcli.ErrTimeout, "stall or deadline exceeded", false))
			o.emit(r, agentcli.NewStatusFailed(agentcli.ErrTimeout))
			r.terminalPhase = agentcli.StatusFailed
			r.terminalKind = agentcli.ErrTimeout
			return
		}
		if isTerminalPhase(ev.Status.Phase) {
			r.terminalPhase = ev.Status.Phase
			r.terminalKind = ev.Status.Kind
		}
	}
	o.emit(r, ev)
}

// emit stamps the project-scoped seq and request id, persists, and
// broadcasts one event. It is the single point where seq is assigned (spec
// §5: "seq is assigned by the single-writer orchestrator before either
// persistence or broadcast").
func (o *Orchestrator) emit(r *run, ev agentcli.Event) {
	ev.RequestID = string(r.id)
	ev.Seq = o.sessions.NextSeq(o.project, r.agent)

	msg := &types.StoredMessage{
		ProjectID: o.project,
		Seq:       ev.Seq,
		RequestID: r.id,
		Agent:     r.agent,
		Role:      roleFor(ev.Kind),
		Kind:      ev.Kind,
		CreatedAt: time.Now(),
	}
	if body, err := marshalEvent(ev); err != nil {
		slog.Error("failed to marshal canonical event for persistence", "project", o.project, "error", err)
	} else {
		msg.Body = body
		if err := o.messages.Append(o.ctx, msg); err != nil {
			slog.Error("message store append failed", "project", o.project, "error", err)
		}
	}

	o.broadcast <- ev
}

func roleFor(kind agentcli.EventKind) types.Role {
	switch kind {
	case agentcli.EventAssistantText:
		return types.RoleAssistant
	case agentcli.EventToolCall, agentcli.EventToolResult:
		return types.RoleTool
	default:
		return types.RoleAssistant
	}
}

// drainShutdown empties the queue and stops the running adapter, each
// discarded entry observing Status{cancelled} (spec §4.4 shutdown()).
func (o *Orchestrator) drainShutdown() {
	if o.running != nil {
		o.running.cancel()
		for ev := range o.running.events {
			o.handleEvent(o.running, ev)
		}
		o.disarmTimers(o.running)
		o.running = nil
	}
	for _, r := range o.queue {
		o.emit(r, agentcli.NewStatus(agentcli.StatusCancelled))
	}
	o.queue = nil
}
