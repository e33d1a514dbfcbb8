package adapter

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/user/agentcore/pkg/agentcli"
)

// CursorAdapter drives `cursor-agent`. Unlike Claude/Gemini/Qwen's NDJSON,
// cursor-agent emits a framed line-oriented text protocol
// (">>KIND key=value ...") and a trailing ">>RESULT" line. A RESULT with
// is_error=true decodes to an Error event; a successful RESULT emits
// nothing. The run's outcome is then decided like every other adapter's:
// any non-informational Error seen in the stream, mid-stream or from
// RESULT, fails the run.
type CursorAdapter struct {
	binary string
}

func NewCursorAdapter() *CursorAdapter {
	return &CursorAdapter{binary: "cursor-agent"}
}

func (a *CursorAdapter) Kind() agentcli.AgentKind { return agentcli.Cursor }

func (a *CursorAdapter) Available(ctx context.Context) agentcli.Availability {
	if _, ok := binaryInstalled(a.binary); !ok {
		return agentcli.Availability{Installed: false, Error: "cursor-agent not found on PATH; install from cursor.com/cli"}
	}
	out, err := versionProbe(ctx, a.binary, "--version")
	if err != nil {
		return agentcli.Availability{Installed: false, Error: err.Error()}
	}
	return agentcli.Availability{Installed: true, Version: out}
}

func (a *CursorAdapter) Initialize(ctx context.Context, workspace, systemPrompt string) error {
	return writeIdempotent(filepath.Join(workspace, ".cursor", "rules.md"), []byte(systemPrompt))
}

func (a *CursorAdapter) Run(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event {
	native, usedDefault := resolveModel(agentcli.Cursor, params.Model)
	args := []string{"agent", "-p", params.Instruction, "-m", native, "--print", "--output-format=text"}
	if params.PriorSessionID != "" {
		args = append(args, "--resume="+params.PriorSessionID)
	}
	env := sanitizedEnv()
	leading := modelFallbackEvents(agentcli.Cursor, params.Model, usedDefault)
	return runAndDecode(ctx, agentcli.Cursor, a.binary, args, params.Workspace, env, params.CancelGrace, decodeCursorLine, leading...)
}

// parseFields turns "key=value key2=value2" (space-separated, no quoting
// support needed for this framed protocol) into a map.
func parseFields(s string) map[string]string {
	fields := map[string]string{}
	for _, tok := range strings.Fields(s) {
		k, v, ok := strings.Cut(tok, "=")
		if ok {
			fields[k] = v
		}
	}
	return fields
}

func decodeCursorLine(line string) (agentcli.Event, bool) {
	rest, ok := strings.CutPrefix(line, ">>")
	if !ok {
		return agentcli.Event{}, false
	}
	kind, body, _ := strings.Cut(rest, " ")
	switch kind {
	case "ASSISTANT":
		return agentcli.NewAssistantText(body, false), true
	case "ASSISTANT_DONE":
		return agentcli.NewAssistantText(body, true), true
	case "TOOL_CALL":
		f := parseFields(body)
		return agentcli.NewToolCall(f["id"], f["name"], map[string]any{"raw": f["args"]}), true
	case "TOOL_RESULT":
		f := parseFields(body)
		ok := f["ok"] == "true"
		if ok {
			return agentcli.NewToolResult(f["id"], true, f["output"], ""), true
		}
		return agentcli.NewToolResult(f["id"], false, "", f["output"]), true
	case "SESSION":
		f := parseFields(body)
		return agentcli.NewSessionInfo(f["id"]), true
	case "RESULT":
		f := parseFields(body)
		isError, _ := strconv.ParseBool(f["is_error"])
		if isError {
			return agentcli.NewError(agentcli.ErrorKind(f["subtype"]), f["message"], false), true
		}
		return agentcli.Event{}, false // a successful RESULT line carries no new information
	default:
		return agentcli.Event{}, false
	}
}
