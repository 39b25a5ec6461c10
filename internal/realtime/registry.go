package realtime

import (
	"log/slog"
	"sync"
)

// Registry maps user identity to that user's live connections, plus the
// set of administrator connections. It is the only shared mutable state in
// the realtime core; all access goes through the mutex because HTTP
// handlers, read loops, and the notifier touch it from different
// goroutines. Construct one per server process and inject it.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]map[*Conn]struct{}
	admins map[*Conn]struct{}

	logger  *slog.Logger
	metrics *Metrics
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger, metrics *Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byUser:  make(map[int64]map[*Conn]struct{}),
		admins:  make(map[*Conn]struct{}),
		logger:  logger.With("component", "registry"),
		metrics: metrics,
	}
}

// Register files conn under the user's connection set, creating the set if
// absent, and under the admin set when isAdmin. Registering the same
// connection twice is a no-op: set semantics guarantee single delivery.
func (r *Registry) Register(conn *Conn, userID int64, isAdmin bool) {
	r.mu.Lock()
	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		r.byUser[userID] = set
	}
	_, dup := set[conn]
	set[conn] = struct{}{}
	if isAdmin {
		r.admins[conn] = struct{}{}
	}
	n := len(set)
	r.mu.Unlock()

	if !dup {
		r.metrics.connOpened()
		r.logger.Info("connection registered",
			"user_id", userID,
			"is_admin", isAdmin,
			"user_connections", n)
	}
}

// Unregister removes conn from the user's set and from the admin set. When
// the user's set empties, the key is deleted so the map never accumulates
// entries for users with no open connections. Unregistering a connection
// that was never registered is a no-op.
func (r *Registry) Unregister(conn *Conn, userID int64, isAdmin bool) {
	r.mu.Lock()
	removed := false
	if set, ok := r.byUser[userID]; ok {
		if _, ok := set[conn]; ok {
			delete(set, conn)
			removed = true
		}
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
	if isAdmin {
		delete(r.admins, conn)
	}
	r.mu.Unlock()

	if removed {
		r.metrics.connClosed()
		r.logger.Info("connection unregistered", "user_id", userID)
	}
}

// ConnectionsFor returns a snapshot of the user's live connections. The
// copy lets callers iterate and send without holding the registry lock.
func (r *Registry) ConnectionsFor(userID int64) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[userID]
	conns := make([]*Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	return conns
}

// AdminConnections returns a snapshot of every administrator connection.
func (r *Registry) AdminConnections() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Conn, 0, len(r.admins))
	for c := range r.admins {
		conns = append(conns, c)
	}
	return conns
}

// UserConnCount returns the number of open connections for a user.
func (r *Registry) UserConnCount(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// Len returns the total number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.byUser {
		n += len(set)
	}
	return n
}
