// Package realtime implements the multi-device update fan-out: a registry
// of live websocket connections keyed by user identity, a handshake binder
// that associates anonymous connections with users and administrators, and
// a notifier that CRUD handlers call after committed mutations to push
// incremental updates to every other device a user has open.
//
// Delivery is best effort. Events are never persisted or replayed; a
// device that is offline when an event fires catches up through the plain
// REST API on its next load.
package realtime
