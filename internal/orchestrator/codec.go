package orchestrator

import (
	"encoding/json"

	"github.com/user/agentcore/pkg/agentcli"
)

// marshalEvent serializes a canonical event for a Message Store row body
// (spec §3 "StoredMessage... serialized event body").
func marshalEvent(ev agentcli.Event) ([]byte, error) {
	return json.Marshal(ev)
}
