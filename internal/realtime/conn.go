package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// connState tracks the handshake state machine.
type connState int32

const (
	stateUnbound connState = iota
	stateBound
	stateClosed
)

// Conn is a single live realtime channel to one client tab or device.
// It owns a buffered send queue drained by one writer goroutine; enqueue
// never blocks and drops the frame when the queue is full.
type Conn struct {
	ws *websocket.Conn

	send chan []byte
	done chan struct{}

	state atomic.Int32

	// bound stays true once the handshake completes, independent of
	// state: the write side may store stateClosed before the read side
	// tears down, and teardown still has to unregister.
	bound atomic.Bool

	// Identity fixed by the binder on the unbound→bound transition.
	userID  int64
	isAdmin bool

	closeOnce sync.Once

	writeTimeout time.Duration
	logger       *slog.Logger
	metrics      *Metrics
}

func newConn(ws *websocket.Conn, queueSize int, writeTimeout time.Duration, logger *slog.Logger, metrics *Metrics) *Conn {
	c := &Conn{
		ws:           ws,
		send:         make(chan []byte, queueSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		logger:       logger,
		metrics:      metrics,
	}
	go c.writeLoop()
	return c
}

// UserID returns the bound user id, or 0 while unbound.
func (c *Conn) UserID() int64 { return c.userID }

// IsAdmin reports whether the handshake declared administrator role.
func (c *Conn) IsAdmin() bool { return c.isAdmin }

// open reports whether the connection can still accept frames.
func (c *Conn) open() bool {
	return connState(c.state.Load()) != stateClosed
}

// enqueue queues a frame for delivery. Closed or stalled connections are
// skipped silently: a full queue drops the frame rather than blocking the
// caller's fan-out loop.
func (c *Conn) enqueue(frame []byte) {
	if !c.open() {
		return
	}
	select {
	case c.send <- frame:
	case <-c.done:
	default:
		c.metrics.droppedFrame()
		c.logger.Warn("send queue full, dropping frame", "user_id", c.userID)
	}
}

// writeLoop is the single writer for the underlying socket. Serialized
// writes preserve per-connection delivery order.
func (c *Conn) writeLoop() {
	for {
		select {
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			return
		}
	}
}

// shutdown runs the terminal transition exactly once, no matter how many
// of the close/error paths fire.
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(stateClosed))
		close(c.done)
		if c.ws != nil {
			c.ws.Close()
		}
	})
}
