package adapter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/user/agentcore/pkg/agentcli"
)

// ClaudeAdapter drives the `claude` CLI. Session-reuse keying, the
// style/efficiency system-prompt suffix, and the initial-prompt repo-map
// seeding are grounded on
// original_source/apps/api/app/services/cli/adapters/claude_code.py.
type ClaudeAdapter struct {
	binary string
}

func NewClaudeAdapter() *ClaudeAdapter {
	return &ClaudeAdapter{binary: "claude"}
}

func (a *ClaudeAdapter) Kind() agentcli.AgentKind { return agentcli.Claude }

func (a *ClaudeAdapter) Available(ctx context.Context) agentcli.Availability {
	if _, ok := binaryInstalled(a.binary); !ok {
		return agentcli.Availability{Installed: false, Error: "claude not found on PATH; install with `pnpm add -g @anthropic-ai/claude-code` then `claude login`"}
	}
	out, err := versionProbe(ctx, a.binary, "--version")
	if err != nil {
		return agentcli.Availability{Installed: false, Error: err.Error()}
	}
	return agentcli.Availability{Installed: true, Version: out}
}

// styleSuffix is the concise-response/efficiency directive claude_code.py
// appends to the loaded system prompt on every run.
const styleSuffix = `

## Style & efficiency rules
- Prefer concise responses; avoid long step-by-step breakdowns unless asked.
- Use file-editing tools (write/edit) rather than pasting code inline.
- Search before reading: prefer glob/grep over opening large files blind.
- Skip node_modules, .next, dist, coverage and other generated paths.
- If a read would exceed roughly 200KB, propose a narrower plan instead.
- Maintain context/session-summary.md as a short running log of this session.`

func (a *ClaudeAdapter) Initialize(ctx context.Context, workspace, systemPrompt string) error {
	full := systemPrompt + styleSuffix
	if err := writeIdempotent(filepath.Join(workspace, "context", "system-prompt.md"), []byte(full)); err != nil {
		return err
	}
	return nil
}

// seedRepoMap writes a compact top-level directory/notable-file map for the
// first run of a project, instead of letting the CLI dump a full directory
// listing into its own context window (claude_code.py's repo-map.json).
func seedRepoMap(workspace string) error {
	entries, err := os.ReadDir(workspace)
	if err != nil {
		return nil // best-effort; workspace listing is a nicety, not required
	}
	type dirEntry struct {
		Name string `json:"name"`
	}
	type fileEntry struct {
		Name  string `json:"name"`
		Bytes int64  `json:"bytes"`
	}
	var dirs []dirEntry
	var notable []fileEntry
	notableNames := map[string]bool{
		"package.json": true, "tsconfig.json": true, "go.mod": true,
		"Cargo.toml": true, "requirements.txt": true, "pyproject.toml": true,
	}
	for _, e := range entries {
		if e.IsDir() {
			if len(dirs) < 20 {
				dirs = append(dirs, dirEntry{Name: e.Name()})
			}
			continue
		}
		if notableNames[e.Name()] {
			info, err := e.Info()
			if err == nil {
				notable = append(notable, fileEntry{Name: e.Name(), Bytes: info.Size()})
			}
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })

	out, err := json.MarshalIndent(map[string]any{"top_level_dirs": dirs, "notable_files": notable}, "", "  ")
	if err != nil {
		return err
	}
	return writeIdempotent(filepath.Join(workspace, "context", "repo-map.json"), out)
}

func (a *ClaudeAdapter) Run(ctx context.Context, params agentcli.RunParams) <-chan agentcli.Event {
	if params.IsInitialPrompt {
		_ = seedRepoMap(params.Workspace)
	}

	native, usedDefault := resolveModel(agentcli.Claude, params.Model)
	args := []string{"-p", params.Instruction, "--model", native, "--output-format", "stream-json"}
	if params.PriorSessionID != "" {
		args = append(args, "--resume", params.PriorSessionID)
	}

	env := sanitizedEnv("CLAUDE_WORKSPACE=" + params.Workspace)
	leading := modelFallbackEvents(agentcli.Claude, params.Model, usedDefault)
	return runAndDecode(ctx, agentcli.Claude, a.binary, args, params.Workspace, env, params.CancelGrace, decodeClaudeLine, leading...)
}

// claudeLine is the NDJSON shape claude --output-format stream-json emits.
type claudeLine struct {
	Type      string         `json:"type"`
	Text      string         `json:"text"`
	Done      bool           `json:"done"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	Ok        bool           `json:"ok"`
	Output    string         `json:"output"`
	SessionID string         `json:"session_id"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
}

func decodeClaudeLine(line string) (agentcli.Event, bool) {
	var l claudeLine
	if err := json.Unmarshal([]byte(line), &l); err != nil {
		return agentcli.Event{}, false
	}
	switch l.Type {
	case "assistant":
		return agentcli.NewAssistantText(l.Text, l.Done), true
	case "tool_use":
		return agentcli.NewToolCall(l.ID, l.Name, l.Input), true
	case "tool_result":
		if l.Ok {
			return agentcli.NewToolResult(l.ID, true, l.Output, ""), true
		}
		return agentcli.NewToolResult(l.ID, false, "", l.Output), true
	case "session":
		return agentcli.NewSessionInfo(l.SessionID), true
	case "error":
		return agentcli.NewError(agentcli.ErrorKind(l.Kind), l.Message, l.Retryable), true
	default:
		return agentcli.Event{}, false
	}
}
