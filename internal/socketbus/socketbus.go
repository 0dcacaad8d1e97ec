// Package socketbus maintains the set of live bot transport connections,
// runs the heartbeat sweep, and dispatches envelopes to bots with
// acknowledgment tracking. Connections are accepted over
// gofiber/contrib/websocket; the framing and ack bookkeeping below mirror
// the persistent-client pattern the rest of this codebase uses for its
// outbound WebSocket bridge, flipped from dial to accept.
package socketbus

import (
	"sync"
	"time"

	gws "github.com/gofiber/contrib/websocket"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/slackemu/emulator/internal/metrics"
	"github.com/slackemu/emulator/internal/state"
)

const (
	heartbeatInterval = 30 * time.Second
	pongGrace         = 40 * time.Second
)

// Connection is one live bot transport connection.
type Connection struct {
	ID          string
	conn        *gws.Conn
	writeMu     sync.Mutex
	ConnectedAt time.Time
	lastPong    time.Time
	lastPongMu  sync.Mutex
}

func (c *Connection) touchPong() {
	c.lastPongMu.Lock()
	c.lastPong = time.Now()
	c.lastPongMu.Unlock()
}

func (c *Connection) sincePong() time.Duration {
	c.lastPongMu.Lock()
	defer c.lastPongMu.Unlock()
	return time.Since(c.lastPong)
}

func (c *Connection) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Bus is the live connection registry plus the ack-tracking dispatcher.
type Bus struct {
	logger  zerolog.Logger
	state   *state.State
	metrics *metrics.Metrics

	mu          sync.Mutex
	connections map[string]*Connection
	order       []string // insertion order, oldest first
	claimed     map[string]bool

	pendingMu sync.Mutex
	pending   map[string]chan Ack // "connID:envelopeID" -> ack channel

	stopCh chan struct{}
}

// New creates a Bus bound to the given state and metrics registry.
func New(logger zerolog.Logger, st *state.State, m *metrics.Metrics) *Bus {
	return &Bus{
		logger:      logger.With().Str("component", "socketbus").Logger(),
		state:       st,
		metrics:     m,
		connections: make(map[string]*Connection),
		claimed:     make(map[string]bool),
		pending:     make(map[string]chan Ack),
		stopCh:      make(chan struct{}),
	}
}

// HandleConnection takes ownership of an upgraded websocket connection for
// its entire lifetime: registers it, sends hello, runs the read loop until
// the socket closes, then unregisters it.
func (b *Bus) HandleConnection(conn *gws.Conn) {
	c := &Connection{
		ID:          newConnectionID(),
		conn:        conn,
		ConnectedAt: time.Now(),
		lastPong:    time.Now(),
	}

	b.mu.Lock()
	b.connections[c.ID] = c
	b.order = append(b.order, c.ID)
	count := len(b.connections)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.SetConnectionsActive(float64(count))
	}

	conn.SetPongHandler(func(string) error {
		c.touchPong()
		return nil
	})

	resumed := b.state.TryReconnectBot(c.ID)
	_ = c.writeJSON(helloEnvelope(c.ID, count))
	if !resumed {
		b.state.EmitBotConnecting(c.ID)
	}

	b.readLoop(c)

	b.mu.Lock()
	delete(b.connections, c.ID)
	for i, id := range b.order {
		if id == c.ID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	delete(b.claimed, c.ID)
	remaining := len(b.connections)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.SetConnectionsActive(float64(remaining))
	}
	b.state.UnregisterBot(c.ID)
}

func (b *Bus) readLoop(c *Connection) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		ack, ok := parseAck(data)
		if !ok {
			continue
		}
		b.resolveAck(c.ID, ack)
	}
}

// RunHeartbeat runs the 30s ping/timeout sweep until the stop channel is
// closed. Intended to run in its own goroutine for the gateway's lifetime.
func (b *Bus) RunHeartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.sweep()
		}
	}
}

func (b *Bus) sweep() {
	b.mu.Lock()
	conns := make([]*Connection, 0, len(b.connections))
	for _, c := range b.connections {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	active := make(map[string]bool, len(conns))
	for _, c := range conns {
		if c.sincePong() > pongGrace {
			_ = c.conn.Close()
			continue
		}
		active[c.ID] = true
		if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
			_ = c.conn.Close()
			continue
		}
	}

	for _, orphan := range b.state.GetOrphanedBots(active) {
		b.state.UnregisterBot(orphan.ConnectionID)
	}
}

// Connected reports the number of live connections.
func (b *Bus) Connected() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.connections)
}
