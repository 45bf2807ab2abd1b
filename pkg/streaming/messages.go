package streaming

import (
	"encoding/json"

	"github.com/distsim/transformsync/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeJoinSession    = "join_session"
	TypeLeaveSession   = "leave_session"
	TypeSnapshot       = "snapshot"
	TypeAuthorityGrant = "authority_grant"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// JoinSessionPayload announces a participant to the relay.
type JoinSessionPayload struct {
	Session     string `json:"session"`
	Participant string `json:"participant"`
}

// SnapshotPayload carries one compressed transform snapshot.
// Timestamp is assigned by the relay on receipt, not by the sender;
// receivers trust it as-is for stale-update rejection.
type SnapshotPayload struct {
	ObjectID  core.ObjectID `json:"objectId"`
	Key       string        `json:"key"`
	Timestamp float64       `json:"timestamp,omitempty"`
	Data      []byte        `json:"data"` // base64 via encoding/json
	Immediate bool          `json:"immediate,omitempty"`
}

// AuthorityGrantPayload tells a participant it now owns an object.
type AuthorityGrantPayload struct {
	ObjectID      core.ObjectID `json:"objectId"`
	Authoritative bool          `json:"authoritative"`
}
