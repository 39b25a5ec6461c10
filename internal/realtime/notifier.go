package realtime

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Notifier is the publish side of the fan-out. Mutation handlers call it
// after their write commits; delivery is fire-and-forget and no failure
// here ever reaches, or delays, the HTTP response of the caller that
// triggered the mutation.
type Notifier struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *Metrics

	// now is swappable for tests.
	now func() time.Time
}

// NewNotifier creates a Notifier over the given registry.
func NewNotifier(registry *Registry, logger *slog.Logger, metrics *Metrics) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		registry: registry,
		logger:   logger.With("component", "notifier"),
		metrics:  metrics,
		now:      time.Now,
	}
}

// NotifyUser pushes an update event to every open connection the user has.
// Connections that are closing are skipped silently; they will be reaped
// by their own teardown. Notifying a user with no connections is a no-op.
func (n *Notifier) NotifyUser(userID int64, updateType UpdateType, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		n.logger.Error("event payload marshal failed",
			"update_type", updateType, "error", err)
		return
	}
	frame, err := json.Marshal(UserEvent{
		Type:       msgTypeUpdate,
		UpdateType: updateType,
		Data:       raw,
	})
	if err != nil {
		return
	}

	conns := n.registry.ConnectionsFor(userID)
	for _, c := range conns {
		c.enqueue(frame)
		n.metrics.eventSent(msgTypeUpdate)
	}
	if len(conns) > 0 {
		n.logger.Debug("user event fanned out",
			"user_id", userID,
			"update_type", updateType,
			"connections", len(conns))
	}
}

// NotifyAdmins broadcasts an adminUpdate to every administrator
// connection. The actor id is inferred from the payload's userId or id
// field when present; the timestamp is taken at send time.
func (n *Notifier) NotifyAdmins(updateType UpdateType, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		n.logger.Error("event payload marshal failed",
			"update_type", updateType, "error", err)
		return
	}
	frame, err := json.Marshal(AdminEvent{
		Type:       msgTypeAdminUpdate,
		UpdateType: updateType,
		Data:       raw,
		UserID:     actorID(raw),
		Timestamp:  n.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	conns := n.registry.AdminConnections()
	for _, c := range conns {
		c.enqueue(frame)
		n.metrics.eventSent(msgTypeAdminUpdate)
	}
	if len(conns) > 0 {
		n.logger.Debug("admin event fanned out",
			"update_type", updateType,
			"connections", len(conns))
	}
}

// actorID probes the serialized payload for a userId or id field.
func actorID(raw json.RawMessage) *int64 {
	var probe struct {
		UserID *int64 `json:"userId"`
		ID     *int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}
	if probe.UserID != nil {
		return probe.UserID
	}
	return probe.ID
}
