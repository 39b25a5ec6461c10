package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// BinderConfig tunes the per-connection transport behavior.
type BinderConfig struct {
	// SendQueueSize bounds each connection's outbound queue. Frames are
	// dropped, never blocked on, when the queue is full.
	SendQueueSize int

	// WriteTimeout is the per-frame write deadline.
	WriteTimeout time.Duration

	// MaxMessageSize limits inbound frame size.
	MaxMessageSize int64

	// ReadBufferSize and WriteBufferSize are passed to the upgrader.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin overrides the upgrader origin check. Nil allows all
	// origins, matching the permissive CORS posture of the HTTP API.
	CheckOrigin func(r *http.Request) bool
}

// DefaultBinderConfig returns the default transport configuration.
func DefaultBinderConfig() *BinderConfig {
	return &BinderConfig{
		SendQueueSize:   32,
		WriteTimeout:    10 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Binder accepts websocket upgrades and runs the per-connection handshake
// state machine: a connection is anonymous until its first well-formed
// auth frame, at which point it is entered into the Registry; it is
// removed, exactly once, when the transport closes.
//
// The handshake's asserted userId is trusted as-is. The realtime channel
// does not cross-check it against the authenticated HTTP session, so a
// client could claim another user's id and receive that user's events.
// This mirrors the behavior the protocol was built around; binding the
// handshake to the session cookie is the known hardening for deployments
// that need it.
type Binder struct {
	registry *Registry
	config   *BinderConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *Metrics
}

// NewBinder creates a Binder that registers bound connections in registry.
func NewBinder(registry *Registry, config *BinderConfig, logger *slog.Logger, metrics *Metrics) *Binder {
	if config == nil {
		config = DefaultBinderConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Binder{
		registry: registry,
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     checkOrigin,
		},
		logger:  logger.With("component", "binder"),
		metrics: metrics,
	}
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (b *Binder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	ws.SetReadLimit(b.config.MaxMessageSize)

	conn := newConn(ws, b.config.SendQueueSize, b.config.WriteTimeout, b.logger, b.metrics)
	b.readLoop(conn)
}

// readLoop reads frames until the transport reports closure or error, then
// runs the terminal transition. Cleanup is unconditional: it never depends
// on a cooperating client.
func (b *Binder) readLoop(conn *Conn) {
	defer b.teardown(conn)

	for {
		_, msg, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				b.logger.Error("read error", "user_id", conn.userID, "error", err)
			}
			return
		}
		b.handleFrame(conn, msg)
	}
}

// handleFrame advances the handshake state machine for one inbound frame.
// Malformed frames are logged and ignored; they never crash the connection.
func (b *Binder) handleFrame(conn *Conn, msg []byte) {
	var frame authFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		b.metrics.handshakeError()
		b.logger.Warn("malformed frame ignored", "error", err)
		return
	}
	if frame.Type != msgTypeAuth || frame.UserID == nil {
		b.metrics.handshakeError()
		b.logger.Warn("unexpected frame ignored", "frame_type", frame.Type)
		return
	}

	switch connState(conn.state.Load()) {
	case stateUnbound:
		conn.userID = *frame.UserID
		conn.isAdmin = frame.IsAdmin
		conn.state.Store(int32(stateBound))
		conn.bound.Store(true)
		b.registry.Register(conn, conn.userID, conn.isAdmin)
		b.sendAck(conn, "ok")

	case stateBound:
		if *frame.UserID != conn.userID {
			// Rebinding a live connection to a different identity is
			// rejected; the original binding stands.
			b.metrics.handshakeError()
			b.logger.Warn("rebind attempt rejected",
				"bound_user_id", conn.userID,
				"claimed_user_id", *frame.UserID)
			b.sendAck(conn, "error")
			return
		}
		// Flaky clients re-send the handshake; re-assertion is a no-op.
		b.registry.Register(conn, conn.userID, conn.isAdmin)
		b.sendAck(conn, "ok")

	case stateClosed:
	}
}

func (b *Binder) sendAck(conn *Conn, status string) {
	frame, err := json.Marshal(authAck{Type: msgTypeAuth, Status: status})
	if err != nil {
		return
	}
	conn.enqueue(frame)
}

// teardown runs the Closed transition. Bound-ness is read from its own
// flag, not from state: a write error may have stored stateClosed already,
// and the connection still has to leave the registry. An unbound
// connection tears down cleanly too.
func (b *Binder) teardown(conn *Conn) {
	conn.shutdown()
	if conn.bound.Load() {
		b.registry.Unregister(conn, conn.userID, conn.isAdmin)
	}
}
