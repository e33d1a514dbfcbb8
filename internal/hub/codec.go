package hub

import (
	"encoding/json"
	"fmt"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

// decodeStoredEvent recovers the CanonicalEvent from a persisted row. The
// orchestrator stamps request_id/seq into the body before persisting (see
// internal/orchestrator.emit), so no extra merging is needed here.
func decodeStoredEvent(msg *types.StoredMessage) (agentcli.Event, error) {
	var ev agentcli.Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		return agentcli.Event{}, fmt.Errorf("unmarshal stored event: %w", err)
	}
	return ev, nil
}

// toEnvelope converts a CanonicalEvent into the outbound wire envelope
// (spec §6): type mirrors the event kind, data carries the variant's
// payload.
func toEnvelope(ev agentcli.Event) Envelope {
	env := Envelope{
		Type:      string(ev.Kind),
		RequestID: ev.RequestID,
		Seq:       ev.Seq,
	}
	switch ev.Kind {
	case agentcli.EventAssistantText:
		env.Data = ev.AssistantText
	case agentcli.EventToolCall:
		env.Data = ev.ToolCall
	case agentcli.EventToolResult:
		env.Data = ev.ToolResult
	case agentcli.EventSessionInfo:
		env.Data = ev.SessionInfo
	case agentcli.EventStatus:
		env.Data = ev.Status
	case agentcli.EventError:
		env.Data = ev.Error
	}
	return env
}
