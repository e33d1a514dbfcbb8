package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/user/agentcore/internal/adapter"
	"github.com/user/agentcore/internal/session"
	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

type fakeProjectStore struct {
	projects map[types.ProjectID]*types.Project
}

func (f *fakeProjectStore) Get(ctx context.Context, id types.ProjectID) (*types.Project, error) {
	return f.projects[id], nil
}

type fakeMessageStore struct {
	mu   sync.Mutex
	rows []*types.StoredMessage
}

func (f *fakeMessageStore) Append(ctx context.Context, msg *types.StoredMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, msg)
	return nil
}
func (f *fakeMessageStore) Tail(ctx context.Context, project types.ProjectID, limit int) ([]*types.StoredMessage, error) {
	return nil, nil
}
func (f *fakeMessageStore) Since(ctx context.Context, project types.ProjectID, afterSeq int64) ([]*types.StoredMessage, error) {
	return nil, nil
}
func (f *fakeMessageStore) LatestSessionInfo(ctx context.Context, project types.ProjectID) (map[agentcli.AgentKind]*types.StoredMessage, error) {
	return nil, nil
}
func (f *fakeMessageStore) MaxSeq(ctx context.Context, project types.ProjectID) (int64, error) {
	return 0, nil
}
func (f *fakeMessageStore) RecentProjects(ctx context.Context, limit int) ([]types.ProjectID, error) {
	return nil, nil
}

type fakePromptLoader struct{}

func (fakePromptLoader) Load(ctx context.Context, project types.ProjectID, agent agentcli.AgentKind) (string, error) {
	return "be concise", nil
}

type scriptedAdapter struct {
	kind  agentcli.AgentKind
	avail agentcli.Availability
	run   func(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event
}

func (a *scriptedAdapter) Kind() agentcli.AgentKind { return a.kind }
func (a *scriptedAdapter) Available(ctx context.Context) agentcli.Availability {
	return a.avail
}
func (a *scriptedAdapter) Initialize(ctx context.Context, workspace, systemPrompt string) error {
	return nil
}
func (a *scriptedAdapter) Run(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event {
	return a.run(ctx, params)
}

func happyPathRun(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event {
	out := make(chan agentcli.Event, 16)
	go func() {
		defer close(out)
		out <- agentcli.NewStatus(agentcli.StatusStart)
		out <- agentcli.NewSessionInfo("sess-A")
		out <- agentcli.NewAssistantText("Creating page.", false)
		out <- agentcli.NewToolCall("t1", "write_file", nil)
		out <- agentcli.NewToolResult("t1", true, "ok", "")
		out <- agentcli.NewAssistantText("Done.", true)
		out <- agentcli.NewStatus(agentcli.StatusComplete)
	}()
	return out
}

func newTestManager(t *testing.T, cfg Config, claude, qwen *scriptedAdapter) (*Manager, *fakeMessageStore) {
	t.Helper()
	registry := adapter.NewRegistry(time.Hour, claude, qwen)
	sessions := session.New()
	messages := &fakeMessageStore{}
	projects := &fakeProjectStore{projects: map[types.ProjectID]*types.Project{
		"p1": {ID: "p1", Workspace: "/tmp/p1", PreferredAgent: agentcli.Claude},
	}}
	return NewManager(cfg, projects, registry, sessions, messages, fakePromptLoader{}), messages
}

func collect(t *testing.T, ch <-chan agentcli.Event, n int, timeout time.Duration) []agentcli.Event {
	t.Helper()
	var got []agentcli.Event
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case ev := <-ch:
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d: %+v", n, len(got), got)
		}
	}
	return got
}

func TestHappyPath(t *testing.T) {
	claude := &scriptedAdapter{kind: agentcli.Claude, avail: agentcli.Availability{Installed: true}, run: happyPathRun}
	qwen := &scriptedAdapter{kind: agentcli.Qwen, avail: agentcli.Availability{Installed: true}, run: happyPathRun}
	mgr, _ := newTestManager(t, DefaultConfig(), claude, qwen)

	ctx := context.Background()
	orch, err := mgr.Acquire(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	sub := orch.Subscribe()

	_, err = orch.Submit(ctx, types.SubmitRequest{Instruction: "add hello page", Agent: agentcli.Claude, Model: "claude-sonnet-4.5"})
	if err != nil {
		t.Fatal(err)
	}

	events := collect(t, sub, 7, 2*time.Second)
	wantKinds := []agentcli.EventKind{
		agentcli.EventStatus, agentcli.EventSessionInfo, agentcli.EventAssistantText,
		agentcli.EventToolCall, agentcli.EventToolResult, agentcli.EventAssistantText, agentcli.EventStatus,
	}
	for i, k := range wantKinds {
		if events[i].Kind != k {
			t.Errorf("event %d kind = %v, want %v", i, events[i].Kind, k)
		}
		if events[i].Seq != int64(i+1) {
			t.Errorf("event %d seq = %d, want %d", i, events[i].Seq, i+1)
		}
	}

	time.Sleep(20 * time.Millisecond) // let afterRunEnded's session write land
	sess := sessions(t, mgr, "p1", agentcli.Claude)
	if sess.NativeSessionID != "sess-A" || sess.LastModel != "claude-sonnet-4.5" {
		t.Errorf("session after happy path = %+v", sess)
	}
}

func sessions(t *testing.T, mgr *Manager, project types.ProjectID, agent agentcli.AgentKind) types.Session {
	t.Helper()
	mgr.mu.Lock()
	e := mgr.entries[project]
	mgr.mu.Unlock()
	return e.orch.sessions.Get(project, agent)
}

func TestCancellationDuringToolCall(t *testing.T) {
	started := make(chan struct{})
	run := func(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event {
		out := make(chan agentcli.Event, 8)
		go func() {
			defer close(out)
			out <- agentcli.NewStatus(agentcli.StatusStart)
			out <- agentcli.NewToolCall("t1", "write_file", nil)
			close(started)
			<-ctx.Done()
			out <- agentcli.NewToolResult("t1", false, "", "interrupted")
			out <- agentcli.NewStatus(agentcli.StatusCancelled)
		}()
		return out
	}
	claude := &scriptedAdapter{kind: agentcli.Claude, avail: agentcli.Availability{Installed: true}, run: run}
	qwen := &scriptedAdapter{kind: agentcli.Qwen, avail: agentcli.Availability{Installed: true}, run: happyPathRun}
	mgr, _ := newTestManager(t, DefaultConfig(), claude, qwen)

	ctx := context.Background()
	orch, _ := mgr.Acquire(ctx, "p1")
	sub := orch.Subscribe()

	id, _ := orch.Submit(ctx, types.SubmitRequest{Instruction: "x", Agent: agentcli.Claude})
	collect(t, sub, 2, time.Second) // start, tool_call
	<-started

	ok, err := orch.Cancel(ctx, id)
	if err != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, err)
	}

	rest := collect(t, sub, 2, time.Second)
	if rest[0].Kind != agentcli.EventToolResult || rest[0].ToolResult.Error != "interrupted" {
		t.Errorf("expected synthesized interrupted tool result, got %+v", rest[0])
	}
	if rest[1].Kind != agentcli.EventStatus || rest[1].Status.Phase != agentcli.StatusCancelled {
		t.Errorf("expected terminal Status{cancelled}, got %+v", rest[1])
	}
}

func TestFallbackOnCLINotInstalled(t *testing.T) {
	claude := &scriptedAdapter{kind: agentcli.Claude, avail: agentcli.Availability{Installed: true}, run: happyPathRun}
	qwen := &scriptedAdapter{kind: agentcli.Qwen, avail: agentcli.Availability{Installed: false, Error: "qwen not found"}}
	mgr, _ := newTestManager(t, DefaultConfig(), claude, qwen)

	ctx := context.Background()
	orch, _ := mgr.Acquire(ctx, "p1")
	sub := orch.Subscribe()

	_, err := orch.Submit(ctx, types.SubmitRequest{Instruction: "x", Agent: agentcli.Qwen})
	if err != nil {
		t.Fatal(err)
	}

	events := collect(t, sub, 11, 2*time.Second)
	wantKinds := []agentcli.EventKind{
		agentcli.EventStatus, agentcli.EventError, agentcli.EventStatus, agentcli.EventStatus,
		agentcli.EventStatus, agentcli.EventSessionInfo, agentcli.EventAssistantText,
		agentcli.EventToolCall, agentcli.EventToolResult, agentcli.EventAssistantText, agentcli.EventStatus,
	}
	for i, k := range wantKinds {
		if events[i].Kind != k {
			t.Errorf("event %d kind = %v, want %v", i, events[i].Kind, k)
		}
	}
	if events[1].Error.Kind != agentcli.ErrCLINotInstalled {
		t.Errorf("expected cli_not_installed error, got %+v", events[1].Error)
	}
	if events[2].Status.Phase != agentcli.StatusFailed || events[2].Status.Kind != agentcli.ErrCLINotInstalled {
		t.Errorf("expected Status{failed,kind=cli_not_installed}, got %+v", events[2].Status)
	}
	if events[3].Status.Phase != agentcli.StatusFellback || events[3].Status.From != agentcli.Qwen || events[3].Status.To != agentcli.Claude {
		t.Errorf("expected Status{fellback,from=qwen,to=claude}, got %+v", events[3].Status)
	}
}

func TestStallTimeout(t *testing.T) {
	run := func(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event {
		out := make(chan agentcli.Event, 4)
		go func() {
			defer close(out)
			out <- agentcli.NewStatus(agentcli.StatusStart)
			<-ctx.Done()
			out <- agentcli.NewStatus(agentcli.StatusCancelled)
		}()
		return out
	}
	claude := &scriptedAdapter{kind: agentcli.Claude, avail: agentcli.Availability{Installed: true}, run: run}
	qwen := &scriptedAdapter{kind: agentcli.Qwen, avail: agentcli.Availability{Installed: true}, run: happyPathRun}

	cfg := DefaultConfig()
	cfg.DefaultStall = 30 * time.Millisecond
	mgr, _ := newTestManager(t, cfg, claude, qwen)

	ctx := context.Background()
	orch, _ := mgr.Acquire(ctx, "p1")
	sub := orch.Subscribe()

	_, err := orch.Submit(ctx, types.SubmitRequest{Instruction: "x", Agent: agentcli.Claude})
	if err != nil {
		t.Fatal(err)
	}

	events := collect(t, sub, 3, 2*time.Second)
	if events[0].Kind != agentcli.EventStatus || events[0].Status.Phase != agentcli.StatusStart {
		t.Fatalf("event 0 = %+v", events[0])
	}
	if events[1].Kind != agentcli.EventError || events[1].Error.Kind != agentcli.ErrTimeout {
		t.Errorf("expected Error{timeout}, got %+v", events[1])
	}
	if events[2].Kind != agentcli.EventStatus || events[2].Status.Phase != agentcli.StatusFailed || events[2].Status.Kind != agentcli.ErrTimeout {
		t.Errorf("expected Status{failed,kind=timeout}, got %+v", events[2])
	}
}

func TestSessionStaleRetry(t *testing.T) {
	var calls int32
	run := func(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event {
		out := make(chan agentcli.Event, 8)
		first := calls == 0
		calls++
		go func() {
			defer close(out)
			if first {
				if params.PriorSessionID == "" {
					t.Error("expected first attempt to carry the prior session id")
				}
				out <- agentcli.NewStatus(agentcli.StatusStart)
				out <- agentcli.NewError(agentcli.ErrSessionStale, "stale", true)
				out <- agentcli.NewStatusFailed(agentcli.ErrSessionStale)
				return
			}
			if params.PriorSessionID != "" {
				t.Error("expected retry to clear the prior session id")
			}
			out <- agentcli.NewStatus(agentcli.StatusStart)
			out <- agentcli.NewSessionInfo("sess-B")
			out <- agentcli.NewAssistantText("ok", true)
			out <- agentcli.NewStatus(agentcli.StatusComplete)
		}()
		return out
	}
	claude := &scriptedAdapter{kind: agentcli.Claude, avail: agentcli.Availability{Installed: true}, run: run}
	qwen := &scriptedAdapter{kind: agentcli.Qwen, avail: agentcli.Availability{Installed: true}, run: happyPathRun}
	mgr, _ := newTestManager(t, DefaultConfig(), claude, qwen)

	ctx := context.Background()
	orch, _ := mgr.Acquire(ctx, "p1")
	orch.sessions.Update(types.Session{ProjectID: "p1", Agent: agentcli.Claude, NativeSessionID: "sess-OLD"})
	sub := orch.Subscribe()

	id, err := orch.Submit(ctx, types.SubmitRequest{Instruction: "x", Agent: agentcli.Claude})
	if err != nil {
		t.Fatal(err)
	}

	events := collect(t, sub, 7, 2*time.Second)
	for _, ev := range events[:3] {
		if ev.RequestID != string(id) {
			t.Errorf("expected retry to reuse request id %s, got %s", id, ev.RequestID)
		}
	}
	if events[2].Status.Kind != agentcli.ErrSessionStale {
		t.Fatalf("expected first attempt to fail with session_stale, got %+v", events[2])
	}
	if events[6].Status.Phase != agentcli.StatusComplete {
		t.Errorf("expected retry to complete, got %+v", events[6])
	}
}
