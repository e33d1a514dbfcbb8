package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/user/agentcore/pkg/agentcli"
)

func TestResolveModel(t *testing.T) {
	cases := []struct {
		name        string
		kind        agentcli.AgentKind
		canonical   agentcli.ModelId
		wantDefault bool
	}{
		{"known claude model", agentcli.Claude, "claude-sonnet-4.5", false},
		{"unknown model falls back", agentcli.Claude, "nonexistent-model", true},
		{"empty model falls back", agentcli.Claude, "", true},
		{"known qwen model", agentcli.Qwen, "qwen3-coder", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			native, usedDefault := resolveModel(tc.kind, tc.canonical)
			if usedDefault != tc.wantDefault {
				t.Errorf("usedDefault = %v, want %v", usedDefault, tc.wantDefault)
			}
			if native == "" {
				t.Errorf("native flag empty")
			}
		})
	}
}

func TestDecodeClaudeLine(t *testing.T) {
	cases := []struct {
		line    string
		wantOK  bool
		wantKnd agentcli.EventKind
	}{
		{`{"type":"assistant","text":"hi","done":false}`, true, agentcli.EventAssistantText},
		{`{"type":"tool_use","id":"t1","name":"write_file","input":{"path":"a"}}`, true, agentcli.EventToolCall},
		{`{"type":"tool_result","id":"t1","ok":true,"output":"done"}`, true, agentcli.EventToolResult},
		{`{"type":"session","session_id":"sess-A"}`, true, agentcli.EventSessionInfo},
		{`not json at all`, false, ""},
	}
	for _, tc := range cases {
		ev, ok := decodeClaudeLine(tc.line)
		if ok != tc.wantOK {
			t.Fatalf("decodeClaudeLine(%q) ok = %v, want %v", tc.line, ok, tc.wantOK)
		}
		if ok && ev.Kind != tc.wantKnd {
			t.Errorf("kind = %v, want %v", ev.Kind, tc.wantKnd)
		}
	}
}

func TestDecodeCursorLine(t *testing.T) {
	ev, ok := decodeCursorLine(">>TOOL_CALL id=t1 name=write_file args=foo")
	if !ok || ev.Kind != agentcli.EventToolCall || ev.ToolCall.CallID != "t1" {
		t.Fatalf("unexpected decode: %+v ok=%v", ev, ok)
	}

	ev, ok = decodeCursorLine(">>RESULT is_error=true subtype=timeout message=stalled")
	if !ok || ev.Kind != agentcli.EventError || ev.Error.Kind != agentcli.ErrTimeout {
		t.Fatalf("unexpected decode: %+v ok=%v", ev, ok)
	}

	if _, ok := decodeCursorLine("plain garbage"); ok {
		t.Fatal("expected garbage line to not parse")
	}
}

func TestCodexPatchBlockBuffering(t *testing.T) {
	d := newCodexDecoder()
	if _, ok := d.decode(`{"type":"patch_begin","call_id":"c1","tool":"apply_patch"}`); ok {
		t.Fatal("patch_begin should not itself emit an event")
	}
	if !d.inPatch {
		t.Fatal("expected decoder to be in patch mode")
	}
	if _, ok := d.decode("--- a/file.go"); ok {
		t.Fatal("diff body line should not parse as an event")
	}
	ev, ok := d.decode(`{"type":"patch_end"}`)
	if !ok || ev.Kind != agentcli.EventToolCall || ev.ToolCall.CallID != "c1" {
		t.Fatalf("expected patch_end to emit a ToolCall, got %+v ok=%v", ev, ok)
	}
	if d.inPatch {
		t.Fatal("expected decoder to leave patch mode after patch_end")
	}
}

func TestRegistryAvailabilityCaches(t *testing.T) {
	fa := &fakeAdapter{kind: agentcli.Claude, available: agentcli.Availability{Installed: true, Version: "1.0"}}
	r := NewRegistry(time.Hour, fa)

	first := r.Availability(context.Background(), agentcli.Claude)
	if !first.Installed {
		t.Fatal("expected first probe installed")
	}

	fa.available = agentcli.Availability{Installed: false, Error: "now broken"}
	second := r.Availability(context.Background(), agentcli.Claude)
	if !second.Installed {
		t.Fatal("expected cached value to still report installed within TTL")
	}
	if fa.calls != 1 {
		t.Fatalf("expected exactly one underlying probe, got %d", fa.calls)
	}
}

type fakeAdapter struct {
	kind      agentcli.AgentKind
	available agentcli.Availability
	calls     int
}

func (f *fakeAdapter) Kind() agentcli.AgentKind { return f.kind }
func (f *fakeAdapter) Available(ctx context.Context) agentcli.Availability {
	f.calls++
	return f.available
}
func (f *fakeAdapter) Initialize(ctx context.Context, workspace, systemPrompt string) error {
	return nil
}
func (f *fakeAdapter) Run(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event {
	ch := make(chan agentcli.Event)
	close(ch)
	return ch
}
