package adapter

import (
	"fmt"

	"github.com/user/agentcore/pkg/agentcli"
)

// modelTable maps (AgentKind, canonical ModelId) -> native flag value,
// implementing the Registry's resolve_model operation (spec §3, §4.2).
// Seeded with the default models claude_code.py validates against for
// Claude, and plausible current-generation analogs for the other four.
var modelTable = map[agentcli.AgentKind]map[agentcli.ModelId]string{
	agentcli.Claude: {
		"claude-sonnet-4.5": "claude-sonnet-4-5-20250929",
		"claude-opus-4.1":   "claude-opus-4-1-20250805",
	},
	agentcli.Cursor: {
		"gpt-5":    "gpt-5",
		"sonnet-4": "claude-sonnet-4-5-20250929",
	},
	agentcli.Codex: {
		"gpt-5-codex": "gpt-5-codex",
	},
	agentcli.Gemini: {
		"gemini-2.5-pro":   "gemini-2.5-pro",
		"gemini-2.5-flash": "gemini-2.5-flash",
	},
	agentcli.Qwen: {
		"qwen3-coder": "qwen3-coder-plus",
	},
}

var defaultModel = map[agentcli.AgentKind]string{
	agentcli.Claude: "claude-sonnet-4-5-20250929",
	agentcli.Cursor: "gpt-5",
	agentcli.Codex:  "gpt-5-codex",
	agentcli.Gemini: "gemini-2.5-pro",
	agentcli.Qwen:   "qwen3-coder-plus",
}

// resolveModel returns the native flag value for a canonical model id, and
// whether it required falling back to the adapter's default (spec §4.1
// "Model selection").
func resolveModel(kind agentcli.AgentKind, canonical agentcli.ModelId) (native string, usedDefault bool) {
	if canonical == "" {
		return defaultModel[kind], true
	}
	if table, ok := modelTable[kind]; ok {
		if native, ok := table[canonical]; ok {
			return native, false
		}
	}
	return defaultModel[kind], true
}

// modelFallbackEvents returns the informational Error{kind=model_fallback}
// event a Run should lead with when the caller named a model that resolved
// to the adapter's default (spec §4.1: "falls back to the adapter's default
// model and emits a warning event... informational"). A caller that leaves
// Model unset isn't asking for a specific model, so that case -- also
// usedDefault -- is silent.
func modelFallbackEvents(kind agentcli.AgentKind, requested agentcli.ModelId, usedDefault bool) []agentcli.Event {
	if !usedDefault || requested == "" {
		return nil
	}
	msg := fmt.Sprintf("unknown model %q for %s, falling back to default %s", requested, kind, defaultModel[kind])
	return []agentcli.Event{agentcli.NewError(agentcli.ErrModelFallback, msg, false)}
}
