package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/airhockey/go/internal/hockey/events"
	"github.com/mcdev12/airhockey/go/internal/hockey/matchmaker"
	"github.com/mcdev12/airhockey/go/internal/hockey/physics"
	"github.com/mcdev12/airhockey/go/internal/hockey/session"
	"github.com/rs/zerolog/log"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// sendBufferSize is roughly four seconds of gameState frames at 60 Hz.
const sendBufferSize = 256

// ConnectionManager owns every live WebSocket connection and hands new ones
// to the matchmaker.
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	matchmaker *matchmaker.Matchmaker
	registry   *session.Registry
	metrics    events.MetricsCollector
}

// Connection is one player's WebSocket. It satisfies matchmaker.Contender.
type Connection struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	manager     *ConnectionManager
	connectedAt time.Time

	mu        sync.Mutex
	closed    bool
	bound     bool
	sessionID session.ID
	side      physics.Side

	closeOnce sync.Once
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     OriginChecker(nil),
	}
}

// OriginChecker accepts requests whose Origin header is in origins. An empty
// list or "*" accepts everything. Requests without an Origin header are
// accepted.
func OriginChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, mm *matchmaker.Matchmaker, registry *session.Registry, metrics events.MetricsCollector) *ConnectionManager {
	if metrics == nil {
		metrics = events.NoOpMetricsCollector{}
	}
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:     config,
		matchmaker: mm,
		registry:   registry,
		metrics:    metrics,
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and queues the
// player for a match.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		id:          uuid.New().String(),
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		manager:     cm,
		connectedAt: time.Now(),
	}

	cm.registerConnection(connection)
	go connection.writePump()

	log.Info().
		Str("connection_id", connection.id).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	// The read pump starts after Arrive so a disconnect always finds the
	// connection either parked or bound.
	if s := cm.matchmaker.Arrive(connection); s != nil {
		s.Start()
	}
	go connection.readPump()

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	cm.connections[conn.id] = conn
	total := len(cm.connections)
	cm.mu.Unlock()

	cm.metrics.ConnectionOpened()
	log.Debug().
		Str("connection_id", conn.id).
		Int("total_connections", total).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	_, exists := cm.connections[conn.id]
	delete(cm.connections, conn.id)
	cm.mu.Unlock()

	if exists {
		cm.metrics.ConnectionClosed()
		log.Info().
			Str("connection_id", conn.id).
			Dur("connected_for", time.Since(conn.connectedAt)).
			Msg("connection unregistered")
	}
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	total := len(cm.connections)
	cm.mu.RUnlock()

	waiting := 0
	if cm.matchmaker.Waiting() {
		waiting = 1
	}
	return map[string]interface{}{
		"total_connections": total,
		"active_sessions":   cm.registry.Len(),
		"waiting_players":   waiting,
	}
}

// CloseAll disconnects every connection with a close frame.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for _, c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		c.disconnect()
	}
	log.Info().Int("connections", len(conns)).Msg("closed all connections")
}

// ID returns the connection id.
func (c *Connection) ID() string { return c.id }

// Send queues a frame for the write pump without blocking. A full buffer
// drops the frame.
func (c *Connection) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		c.manager.metrics.FrameDropped()
		return ErrSendBufferFull
	}
}

// Join binds the connection to a session side. Called by the matchmaker.
func (c *Connection) Join(id session.ID, side physics.Side) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bound = true
	c.sessionID = id
	c.side = side
}

// Binding returns the session and side this connection plays, if any.
func (c *Connection) Binding() (session.ID, physics.Side, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID, c.side, c.bound
}

// disconnect runs once per connection, whatever ended it.
func (c *Connection) disconnect() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()

		cm := c.manager
		cm.unregisterConnection(c)

		if cm.matchmaker.Depart(c) {
			return
		}
		id, side, bound := c.Binding()
		if !bound {
			return
		}
		if s, ok := cm.registry.Lookup(id); ok {
			s.Terminate(side)
		}
	})
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	config := c.manager.config
	ticker := time.NewTicker(config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	config := c.manager.config
	defer func() {
		c.disconnect()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected WebSocket close error")
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))

		if messageType != websocket.TextMessage {
			c.manager.metrics.ProtocolError("binary")
			log.Debug().Str("connection_id", c.id).Msg("ignoring non-text frame")
			continue
		}
		c.handleClientMessage(message)
	}
}
