// internal/types/models.go
package types

import (
	"encoding/json"
	"time"

	"github.com/user/agentcore/pkg/agentcli"
)

// Project is external, read-only to the core (spec §3): the Project Store
// owns it, the core only ever reads it.
type Project struct {
	ID             ProjectID
	Workspace      string
	PreferredAgent agentcli.AgentKind
	PreferredModel agentcli.ModelId
}

// Session is identified by (project id, agent kind). See spec §3 for the
// native-session-id write invariant, enforced by internal/orchestrator, not
// by this type.
type Session struct {
	ProjectID       ProjectID
	Agent           agentcli.AgentKind
	NativeSessionID string
	LastModel       agentcli.ModelId
	Seq             int64
}

// Role is the chat-message role a StoredMessage is attributed to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// StoredMessage is one append-only Message Store row (spec §6 "Message
// Store row"). Body is the serialized CanonicalEvent.
type StoredMessage struct {
	ProjectID ProjectID
	Seq       int64
	RequestID RequestID
	Agent     agentcli.AgentKind
	Role      Role
	Kind      agentcli.EventKind
	Body      json.RawMessage
	CreatedAt time.Time
}

// SubmitRequest carries the fields a client posts to Orchestrator.Submit
// (spec §6 "Submit payload").
type SubmitRequest struct {
	Instruction     string
	Agent           agentcli.AgentKind
	Model           agentcli.ModelId
	Images          []agentcli.ImageRef
	IsInitial       bool
	DeadlineSeconds int
}
