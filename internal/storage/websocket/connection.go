package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/supremacy-go/combat/pkg/streaming"
)

const (
	sendChSize   = 10_000
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// connection manages a WebSocket connection with a single write goroutine.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{} // closed on shutdown
	closed bool

	wsURL  string
	secret string

	// start_combat messages of running combats, replayed on reconnect.
	cachedStartMsgs map[int][]byte

	// pending sendAndWait calls, released by readLoop
	waiters map[ackKey]chan struct{}

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		logger: logger,

		cachedStartMsgs: make(map[int][]byte),
		waiters:         make(map[ackKey]chan struct{}),
	}
}

type ackKey struct {
	msgType  string
	combatID int
}

// dial connects to the WebSocket server and starts read/write loops.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop(conn)
	go c.readLoop(conn)

	return nil
}

// dialOnce performs a single WebSocket dial with the secret query param.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// writeLoop drains sendCh and writes messages to conn. It returns on error,
// on shutdown, or once reconnect has replaced conn, so at most one loop
// writes to a connection.
func (c *connection) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			c.mu.Lock()
			current := c.conn
			c.mu.Unlock()

			if current != conn {
				c.requeue(data)
				return
			}

			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				c.requeue(data)
				go c.reconnect(conn)
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				c.requeue(data)
				go c.reconnect(conn)
				return
			}
		}
	}
}

// requeue puts an unsent message back for the next write loop.
func (c *connection) requeue(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// readLoop reads ack messages from the server and releases their waiters.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			go c.reconnect(conn)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}

		if ack.Type == "ack" {
			c.release(ack)
		}
	}
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff. On success it replays the start_combat messages of
// running combats and restarts the read/write loops.
func (c *connection) reconnect(broken *ws.Conn) {
	c.mu.Lock()
	// The read and write loops both report a broken connection; only the
	// first report reconnects.
	if c.closed || c.conn != broken {
		c.mu.Unlock()
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	c.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		default:
		}

		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		time.Sleep(backoff)

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		cached := make([][]byte, 0, len(c.cachedStartMsgs))
		for _, id := range slices.Sorted(maps.Keys(c.cachedStartMsgs)) {
			cached = append(cached, c.cachedStartMsgs[id])
		}
		c.mu.Unlock()

		if err := replay(conn, cached); err != nil {
			c.logger.Warn("Failed to replay start_combat after reconnect", "error", err)
			_ = conn.Close()
			continue
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		go c.writeLoop(conn)
		go c.readLoop(conn)
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// replay writes the cached start messages so the server knows which combats
// are being recorded.
func replay(conn *ws.Conn, msgs [][]byte) error {
	for _, msg := range msgs {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		if err := conn.WriteMessage(ws.TextMessage, msg); err != nil {
			return err
		}
	}
	return nil
}

// cacheStart remembers the start message of a running combat.
func (c *connection) cacheStart(combatID int, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedStartMsgs[combatID] = data
}

// forgetStart drops the start message of an ended combat.
func (c *connection) forgetStart(combatID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cachedStartMsgs, combatID)
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// release wakes the waiter an ack belongs to. Acks without a combat id
// release any waiter for that message type.
func (c *connection) release(ack streaming.AckMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := ackKey{ack.For, ack.CombatID}
	if ack.CombatID == 0 {
		for k := range c.waiters {
			if k.msgType == ack.For {
				key = k
				break
			}
		}
	}
	if ch, ok := c.waiters[key]; ok {
		close(ch)
		delete(c.waiters, key)
		return
	}
	c.logger.Debug("Unexpected ack", "for", ack.For, "combatId", ack.CombatID)
}

// sendAndWait sends data and blocks until the server acknowledges with a
// matching ack message or the timeout expires.
func (c *connection) sendAndWait(data []byte, ackFor string, combatID int, timeout time.Duration) error {
	key := ackKey{ackFor, combatID}
	acked := make(chan struct{})
	c.mu.Lock()
	c.waiters[key] = acked
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.waiters[key] == acked {
			delete(c.waiters, key)
		}
		c.mu.Unlock()
	}()

	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-acked:
		return nil
	case <-timer.C:
		return fmt.Errorf("timeout waiting for ack of %q", ackFor)
	case <-c.done:
		return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
	}
}

// close sends a WebSocket close frame and shuts down all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
