package main

import (
	"encoding/json"
	"fmt"

	"github.com/user/agentcore/pkg/agentcli"
)

// wireEnvelope mirrors the Hub's outbound frame (internal/hub.Envelope) on
// the wire. It is redefined locally -- the dashboard speaks only JSON over
// HTTP/WebSocket, never the orchestrator's Go types.
type wireEnvelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
}

// decodeEvent recovers the typed payload of env for rendering, dispatching
// on Type the same way internal/hub.toEnvelope encoded it.
func decodeEvent(env wireEnvelope) (agentcli.Event, error) {
	ev := agentcli.Event{Kind: agentcli.EventKind(env.Type), RequestID: env.RequestID, Seq: env.Seq}
	if len(env.Data) == 0 {
		return ev, nil
	}
	switch ev.Kind {
	case agentcli.EventAssistantText:
		ev.AssistantText = &agentcli.AssistantText{}
		return ev, json.Unmarshal(env.Data, ev.AssistantText)
	case agentcli.EventToolCall:
		ev.ToolCall = &agentcli.ToolCall{}
		return ev, json.Unmarshal(env.Data, ev.ToolCall)
	case agentcli.EventToolResult:
		ev.ToolResult = &agentcli.ToolResult{}
		return ev, json.Unmarshal(env.Data, ev.ToolResult)
	case agentcli.EventSessionInfo:
		ev.SessionInfo = &agentcli.SessionInfo{}
		return ev, json.Unmarshal(env.Data, ev.SessionInfo)
	case agentcli.EventStatus:
		ev.Status = &agentcli.Status{}
		return ev, json.Unmarshal(env.Data, ev.Status)
	case agentcli.EventError:
		ev.Error = &agentcli.Error{}
		return ev, json.Unmarshal(env.Data, ev.Error)
	default:
		return ev, fmt.Errorf("unknown envelope type %q", env.Type)
	}
}

// renderEvent formats ev as one timeline line. Mirrors the shape of the
// canonical events spec §6 describes, not their raw JSON.
func renderEvent(ev agentcli.Event) string {
	switch ev.Kind {
	case agentcli.EventAssistantText:
		if ev.AssistantText == nil {
			return "assistant_text"
		}
		return ev.AssistantText.Text
	case agentcli.EventToolCall:
		if ev.ToolCall == nil {
			return "tool_call"
		}
		return fmt.Sprintf("tool_call %s(%s)", ev.ToolCall.Tool, ev.ToolCall.CallID)
	case agentcli.EventToolResult:
		if ev.ToolResult == nil {
			return "tool_result"
		}
		if ev.ToolResult.Ok {
			return fmt.Sprintf("tool_result %s ok", ev.ToolResult.CallID)
		}
		return fmt.Sprintf("tool_result %s failed: %s", ev.ToolResult.CallID, ev.ToolResult.Error)
	case agentcli.EventSessionInfo:
		if ev.SessionInfo == nil {
			return "session_info"
		}
		return fmt.Sprintf("session_info native_session_id=%s", ev.SessionInfo.NativeSessionID)
	case agentcli.EventStatus:
		if ev.Status == nil {
			return "status"
		}
		switch ev.Status.Phase {
		case agentcli.StatusFellback:
			return fmt.Sprintf("status fellback %s -> %s", ev.Status.From, ev.Status.To)
		case agentcli.StatusFailed:
			return fmt.Sprintf("status failed (%s)", ev.Status.Kind)
		default:
			return fmt.Sprintf("status %s", ev.Status.Phase)
		}
	case agentcli.EventError:
		if ev.Error == nil {
			return "error"
		}
		return fmt.Sprintf("error [%s] %s", ev.Error.Kind, ev.Error.Message)
	default:
		return string(ev.Kind)
	}
}
