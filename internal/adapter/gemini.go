package adapter

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/user/agentcore/pkg/agentcli"
)

// GeminiAdapter drives the `gemini` CLI. Its NDJSON shape differs from
// Claude's in field names only; the parsing state machine is the same
// shared helper (spec §4.1: "Mapping rules identical in shape, content
// differs").
type GeminiAdapter struct {
	binary string
}

func NewGeminiAdapter() *GeminiAdapter {
	return &GeminiAdapter{binary: "gemini"}
}

func (a *GeminiAdapter) Kind() agentcli.AgentKind { return agentcli.Gemini }

func (a *GeminiAdapter) Available(ctx context.Context) agentcli.Availability {
	if _, ok := binaryInstalled(a.binary); !ok {
		return agentcli.Availability{Installed: false, Error: "gemini not found on PATH; install with `npm install -g @google/gemini-cli`"}
	}
	out, err := versionProbe(ctx, a.binary, "--version")
	if err != nil {
		return agentcli.Availability{Installed: false, Error: err.Error()}
	}
	return agentcli.Availability{Installed: true, Version: out}
}

func (a *GeminiAdapter) Initialize(ctx context.Context, workspace, systemPrompt string) error {
	return writeIdempotent(filepath.Join(workspace, ".gemini", "instructions.md"), []byte(systemPrompt))
}

func (a *GeminiAdapter) Run(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event {
	native, usedDefault := resolveModel(agentcli.Gemini, params.Model)
	args := []string{"--prompt", params.Instruction, "--model", native, "--json"}
	if params.PriorSessionID != "" {
		args = append(args, "--checkpoint", params.PriorSessionID)
	}
	env := sanitizedEnv()
	leading := modelFallbackEvents(agentcli.Gemini, params.Model, usedDefault)
	return runAndDecode(ctx, agentcli.Gemini, a.binary, args, params.Workspace, env, params.CancelGrace, decodeGeminiLine, leading...)
}

type geminiLine struct {
	Event     string         `json:"event"`
	Delta     string         `json:"delta"`
	Final     bool           `json:"final"`
	CallID    string         `json:"call_id"`
	Func      string         `json:"function"`
	Args      map[string]any `json:"args"`
	Success   bool           `json:"success"`
	Result    string         `json:"result"`
	Checkpoint string        `json:"checkpoint"`
	ErrKind   string         `json:"err_kind"`
	ErrMsg    string         `json:"err_msg"`
	Transient bool           `json:"transient"`
}

func decodeGeminiLine(line string) (agentcli.Event, bool) {
	var l geminiLine
	if err := json.Unmarshal([]byte(line), &l); err != nil {
		return agentcli.Event{}, false
	}
	switch l.Event {
	case "text":
		return agentcli.NewAssistantText(l.Delta, l.Final), true
	case "function_call":
		return agentcli.NewToolCall(l.CallID, l.Func, l.Args), true
	case "function_result":
		if l.Success {
			return agentcli.NewToolResult(l.CallID, true, l.Result, ""), true
		}
		return agentcli.NewToolResult(l.CallID, false, "", l.Result), true
	case "checkpoint":
		return agentcli.NewSessionInfo(l.Checkpoint), true
	case "error":
		return agentcli.NewError(agentcli.ErrorKind(l.ErrKind), l.ErrMsg, l.Transient), true
	default:
		return agentcli.Event{}, false
	}
}
