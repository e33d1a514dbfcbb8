package adapter

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/user/agentcore/pkg/agentcli"
)

// CodexAdapter drives OpenAI's `codex` CLI. Its native stream is a hybrid:
// most lines are single JSON objects, but a "patch" tool call is instead
// introduced by a {"type":"patch_begin",...} line and closed by a
// {"type":"patch_end"} line, with raw diff text in between that must be
// buffered as one multi-line block (spec §4.1: "a continuation of a
// multi-line block that the adapter must buffer until a boundary").
type CodexAdapter struct {
	binary string
}

func NewCodexAdapter() *CodexAdapter {
	return &CodexAdapter{binary: "codex"}
}

func (a *CodexAdapter) Kind() agentcli.AgentKind { return agentcli.Codex }

func (a *CodexAdapter) Available(ctx context.Context) agentcli.Availability {
	if _, ok := binaryInstalled(a.binary); !ok {
		return agentcli.Availability{Installed: false, Error: "codex not found on PATH; install with `npm install -g @openai/codex`"}
	}
	out, err := versionProbe(ctx, a.binary, "--version")
	if err != nil {
		return agentcli.Availability{Installed: false, Error: err.Error()}
	}
	return agentcli.Availability{Installed: true, Version: out}
}

func (a *CodexAdapter) Initialize(ctx context.Context, workspace, systemPrompt string) error {
	return writeIdempotent(filepath.Join(workspace, "AGENTS.md"), []byte(systemPrompt))
}

func (a *CodexAdapter) Run(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event {
	native, usedDefault := resolveModel(agentcli.Codex, params.Model)
	args := []string{"exec", "--json", "--model", native, params.Instruction}
	if params.PriorSessionID != "" {
		args = append(args, "--resume", params.PriorSessionID)
	}
	env := sanitizedEnv()
	dec := newCodexDecoder()
	leading := modelFallbackEvents(agentcli.Codex, params.Model, usedDefault)
	return runAndDecode(ctx, agentcli.Codex, a.binary, args, params.Workspace, env, params.CancelGrace, dec.decode, leading...)
}

type codexLine struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Last    bool   `json:"last"`
	CallID  string `json:"call_id"`
	Tool    string `json:"tool"`
	Success bool   `json:"success"`
	Output  string `json:"output"`
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// codexDecoder holds the in-progress patch block across lines. Each Run
// gets its own instance -- state must not leak between concurrent runs.
type codexDecoder struct {
	inPatch   bool
	patchID   string
	patchTool string
	buf       strings.Builder
}

func newCodexDecoder() *codexDecoder {
	return &codexDecoder{}
}

func (d *codexDecoder) decode(line string) (agentcli.Event, bool) {
	if d.inPatch {
		var l codexLine
		if err := json.Unmarshal([]byte(line), &l); err == nil && l.Type == "patch_end" {
			d.inPatch = false
			diff := d.buf.String()
			d.buf.Reset()
			return agentcli.NewToolCall(d.patchID, d.patchTool, map[string]any{"diff": diff}), true
		}
		d.buf.WriteString(line)
		d.buf.WriteByte('\n')
		return agentcli.Event{}, false
	}

	var l codexLine
	if err := json.Unmarshal([]byte(line), &l); err != nil {
		return agentcli.Event{}, false
	}
	switch l.Type {
	case "patch_begin":
		d.inPatch = true
		d.patchID = l.CallID
		d.patchTool = l.Tool
		return agentcli.Event{}, false
	case "message":
		return agentcli.NewAssistantText(l.Text, l.Last), true
	case "tool_call":
		return agentcli.NewToolCall(l.CallID, l.Tool, nil), true
	case "tool_result":
		if l.Success {
			return agentcli.NewToolResult(l.CallID, true, l.Output, ""), true
		}
		return agentcli.NewToolResult(l.CallID, false, "", l.Output), true
	case "session":
		return agentcli.NewSessionInfo(l.ID), true
	case "error":
		return agentcli.NewError(agentcli.ErrorKind(l.Kind), l.Message, l.Retry), true
	default:
		return agentcli.Event{}, false
	}
}
