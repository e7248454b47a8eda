package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/supremacy-go/combat/pkg/core"
	"github.com/supremacy-go/combat/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	Logger *slog.Logger
}

// Backend streams combat reports over WebSocket to the report server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "storage.websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartCombat sends the combat header and waits for server ack.
func (b *Backend) StartCombat(c *core.Combat) error {
	data, err := marshalEnvelope(streaming.TypeStartCombat, streaming.StartCombatPayload{Combat: c})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.cacheStart(c.ID, data)

	return b.conn.sendAndWait(data, streaming.TypeStartCombat, c.ID, ackTimeout)
}

// EndCombat sends end_combat and waits for server ack.
func (b *Backend) EndCombat(r *core.CombatResult) error {
	data, err := marshalEnvelope(streaming.TypeEndCombat, streaming.EndCombatPayload{Result: r})
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndCombat, r.CombatID, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.forgetStart(r.CombatID)
	return err
}

func (b *Backend) RecordRound(s *core.RoundSummary) error {
	return b.sendEnvelope(streaming.TypeRound, s)
}

func (b *Backend) RecordUnitState(s *core.UnitState) error {
	return b.sendEnvelope(streaming.TypeUnitState, s)
}

func (b *Backend) RecordSitRep(s *core.SitRep) error {
	return b.sendEnvelope(streaming.TypeSitRep, s)
}
