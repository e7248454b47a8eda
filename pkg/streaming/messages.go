package streaming

import (
	"encoding/json"

	"github.com/supremacy-go/combat/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartCombat = "start_combat"
	TypeEndCombat   = "end_combat"
	TypeRound       = "round"
	TypeUnitState   = "unit_state"
	TypeSitRep      = "sitrep"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type     string `json:"type"`               // always "ack"
	For      string `json:"for"`                // the message type being acknowledged
	CombatID int    `json:"combatId,omitempty"` // the combat the message belonged to
}

// StartCombatPayload carries the combat header.
type StartCombatPayload struct {
	Combat *core.Combat `json:"combat"`
}

// EndCombatPayload carries the final result.
type EndCombatPayload struct {
	Result *core.CombatResult `json:"result"`
}
