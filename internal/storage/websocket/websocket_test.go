package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supremacy-go/combat/internal/storage"
	"github.com/supremacy-go/combat/pkg/core"
	"github.com/supremacy-go/combat/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

type serverOptions struct {
	noAck bool
	// dropFirst closes the first connection after acking its first start_combat.
	dropFirst bool
}

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and acks start_combat/end_combat.
func testServer(t *testing.T, opts serverOptions) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}
	var conns atomic.Int32

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()
		connNum := conns.Add(1)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if opts.noAck {
				continue
			}
			if env.Type != streaming.TypeStartCombat && env.Type != streaming.TypeEndCombat {
				continue
			}
			ack := streaming.AckMessage{Type: "ack", For: env.Type, CombatID: combatIDOf(env)}
			data, _ := json.Marshal(ack)
			if err := c.WriteMessage(ws.TextMessage, data); err != nil {
				return
			}
			if opts.dropFirst && connNum == 1 && env.Type == streaming.TypeStartCombat {
				return
			}
		}
	}))

	return srv, ml
}

func combatIDOf(env streaming.Envelope) int {
	switch env.Type {
	case streaming.TypeStartCombat:
		var p streaming.StartCombatPayload
		if json.Unmarshal(env.Payload, &p) == nil && p.Combat != nil {
			return p.Combat.ID
		}
	case streaming.TypeEndCombat:
		var p streaming.EndCombatPayload
		if json.Unmarshal(env.Payload, &p) == nil && p.Result != nil {
			return p.Result.CombatID
		}
	}
	return 0
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secret   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) count(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndCombat(t *testing.T) {
	srv, ml := testServer(t, serverOptions{})
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartCombat(&core.Combat{ID: 1, Tag: "Skirmish"}))
	require.NoError(t, b.EndCombat(&core.CombatResult{CombatID: 1, Rounds: 2}))

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartCombat, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndCombat, msgs[len(msgs)-1].Type)
	assert.Equal(t, "test", ml.secret)

	b.conn.mu.Lock()
	assert.Empty(t, b.conn.cachedStartMsgs, "ended combats are not replayed")
	b.conn.mu.Unlock()
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t, serverOptions{})
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartCombat(&core.Combat{ID: 2}))
	require.NoError(t, b.RecordRound(&core.RoundSummary{CombatID: 2, Round: 1}))
	require.NoError(t, b.RecordUnitState(&core.UnitState{CombatID: 2, Round: 1, ObjectID: 4}))
	require.NoError(t, b.RecordUnitState(&core.UnitState{CombatID: 2, Round: 1, ObjectID: 5}))
	require.NoError(t, b.RecordSitRep(&core.SitRep{CombatID: 2, Kind: core.SitRepDestroyed}))
	require.NoError(t, b.EndCombat(&core.CombatResult{CombatID: 2}))

	assert.Eventually(t, func() bool {
		return ml.count(streaming.TypeEndCombat) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, ml.count(streaming.TypeStartCombat))
	assert.Equal(t, 1, ml.count(streaming.TypeRound))
	assert.Equal(t, 2, ml.count(streaming.TypeUnitState))
	assert.Equal(t, 1, ml.count(streaming.TypeSitRep))
}

func TestConcurrentCombatsGetTheirOwnAcks(t *testing.T) {
	srv, ml := testServer(t, serverOptions{})
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)})
	require.NoError(t, b.Init())
	defer b.Close()

	var wg sync.WaitGroup
	for id := 1; id <= 5; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			assert.NoError(t, b.StartCombat(&core.Combat{ID: id}))
			assert.NoError(t, b.EndCombat(&core.CombatResult{CombatID: id}))
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 5, ml.count(streaming.TypeStartCombat))
	assert.Equal(t, 5, ml.count(streaming.TypeEndCombat))
}

func TestSendAndWaitTimeout(t *testing.T) {
	srv, _ := testServer(t, serverOptions{noAck: true})
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)})
	require.NoError(t, b.Init())
	defer b.Close()

	data, err := marshalEnvelope(streaming.TypeStartCombat, streaming.StartCombatPayload{Combat: &core.Combat{ID: 3}})
	require.NoError(t, err)

	err = b.conn.sendAndWait(data, streaming.TypeStartCombat, 3, 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")

	b.conn.mu.Lock()
	assert.Empty(t, b.conn.waiters)
	b.conn.mu.Unlock()
}

func TestReconnectReplaysRunningCombats(t *testing.T) {
	srv, ml := testServer(t, serverOptions{dropFirst: true})
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartCombat(&core.Combat{ID: 8}))

	assert.Eventually(t, func() bool {
		return ml.count(streaming.TypeStartCombat) >= 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestInitFailsWithoutServer(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/stream"})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestEnvelopeSerialization(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeSitRep, core.SitRep{CombatID: 4, Kind: core.SitRepRetreated, Text: "Scout escaped"})
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeSitRep, decoded.Type)

	var s core.SitRep
	require.NoError(t, json.Unmarshal(decoded.Payload, &s))
	assert.Equal(t, 4, s.CombatID)
	assert.Equal(t, core.SitRepRetreated, s.Kind)
}
