// Package hub implements the Subscription Hub (spec §4.5): a WebSocket
// gateway that accepts one persistent bidirectional connection per
// (client, project), forwards submit/cancel commands into the project's
// Orchestrator, and fans canonical events back out to every subscriber of
// that project.
package hub

import "github.com/user/agentcore/pkg/agentcli"

// Close codes for the outbound WebSocket close frame (spec §6).
const (
	CloseNormal         = 1000
	CloseSlowConsumer   = 4001
	CloseUnauthorized   = 4002
	CloseProjectUnknown = 4003
)

// Envelope is the wire frame every non-keepalive text frame carries, both
// inbound and outbound (spec §6). Text frames carrying the literal strings
// "ping"/"pong" bypass this envelope entirely.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Seq       int64  `json:"seq,omitempty"`
}

// Inbound envelope types.
const (
	TypeSubmit            = "submit"
	TypeCancel            = "cancel"
	TypeSubscribeFromSeq  = "subscribe_from_seq"
)

// submitData is the JSON shape of a TypeSubmit envelope's data field (spec
// §6 "Submit payload").
type submitData struct {
	Instruction     string              `json:"instruction"`
	Agent           agentcli.AgentKind  `json:"agent"`
	Model           agentcli.ModelId    `json:"model,omitempty"`
	Images          []imageRefData      `json:"images,omitempty"`
	IsInitial       bool                `json:"is_initial"`
	DeadlineSeconds int                 `json:"deadline_seconds,omitempty"`
}

type imageRefData struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// cancelData is the JSON shape of a TypeCancel envelope's data field.
type cancelData struct {
	RequestID string `json:"request_id"`
}

// subscribeFromSeqData is the JSON shape of a TypeSubscribeFromSeq
// envelope's data field.
type subscribeFromSeqData struct {
	Seq int64 `json:"seq"`
}
