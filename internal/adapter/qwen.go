package adapter

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/user/agentcore/pkg/agentcli"
)

// QwenAdapter drives the `qwen` CLI (Qwen Code), a third, narrower NDJSON
// shape than Claude's or Gemini's -- tool arguments arrive as an unparsed
// "raw_args" string, and a message's "done" field marks its final chunk.
type QwenAdapter struct {
	binary string
}

func NewQwenAdapter() *QwenAdapter {
	return &QwenAdapter{binary: "qwen"}
}

func (a *QwenAdapter) Kind() agentcli.AgentKind { return agentcli.Qwen }

func (a *QwenAdapter) Available(ctx context.Context) agentcli.Availability {
	if _, ok := binaryInstalled(a.binary); !ok {
		return agentcli.Availability{Installed: false, Error: "qwen not found on PATH; install with `npm install -g qwen-code`"}
	}
	out, err := versionProbe(ctx, a.binary, "-v")
	if err != nil {
		return agentcli.Availability{Installed: false, Error: err.Error()}
	}
	return agentcli.Availability{Installed: true, Version: out}
}

func (a *QwenAdapter) Initialize(ctx context.Context, workspace, systemPrompt string) error {
	return writeIdempotent(filepath.Join(workspace, ".qwen", "SYSTEM.md"), []byte(systemPrompt))
}

func (a *QwenAdapter) Run(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event {
	native, usedDefault := resolveModel(agentcli.Qwen, params.Model)
	args := []string{"chat", "--stream", "--model", native, "--message", params.Instruction}
	if params.PriorSessionID != "" {
		args = append(args, "--session", params.PriorSessionID)
	}
	env := sanitizedEnv()
	leading := modelFallbackEvents(agentcli.Qwen, params.Model, usedDefault)
	return runAndDecode(ctx, agentcli.Qwen, a.binary, args, params.Workspace, env, params.CancelGrace, decodeQwenLine, leading...)
}

type qwenLine struct {
	T        string `json:"t"`
	Chunk    string `json:"chunk"`
	Done     bool   `json:"done"`
	ID       string `json:"id"`
	Tool     string `json:"tool"`
	RawArgs  string `json:"raw_args"`
	Ok       bool   `json:"ok"`
	Text     string `json:"text"`
	Session  string `json:"session"`
	ErrCode  string `json:"err_code"`
	ErrText  string `json:"err_text"`
}

func decodeQwenLine(line string) (agentcli.Event, bool) {
	var l qwenLine
	if err := json.Unmarshal([]byte(line), &l); err != nil {
		return agentcli.Event{}, false
	}
	switch l.T {
	case "msg":
		return agentcli.NewAssistantText(l.Chunk, l.Done), true
	case "tool":
		var args map[string]any
		_ = json.Unmarshal([]byte(l.RawArgs), &args)
		return agentcli.NewToolCall(l.ID, l.Tool, args), true
	case "tool_done":
		if l.Ok {
			return agentcli.NewToolResult(l.ID, true, l.Text, ""), true
		}
		return agentcli.NewToolResult(l.ID, false, "", l.Text), true
	case "session":
		return agentcli.NewSessionInfo(l.Session), true
	case "err":
		retryable := l.ErrCode == "rate_limited"
		return agentcli.NewError(agentcli.ErrorKind(l.ErrCode), l.ErrText, retryable), true
	default:
		return agentcli.Event{}, false
	}
}
