package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type binderHarness struct {
	registry *Registry
	server   *httptest.Server
}

func newBinderHarness(t *testing.T) *binderHarness {
	t.Helper()
	registry := NewRegistry(testLogger(), nil)
	binder := NewBinder(registry, nil, testLogger(), nil)
	server := httptest.NewServer(binder)
	t.Cleanup(server.Close)
	return &binderHarness{registry: registry, server: server}
}

func (h *binderHarness) wsURL() string {
	return "ws" + strings.TrimPrefix(h.server.URL, "http")
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendAuth(t *testing.T, ws *websocket.Conn, userID int64, isAdmin bool) {
	t.Helper()
	frame, _ := json.Marshal(map[string]any{"type": "auth", "userId": userID, "isAdmin": isAdmin})
	if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write auth: %v", err)
	}
}

func readAck(t *testing.T, ws *websocket.Conn) authAck {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	var ack authAck
	if err := json.Unmarshal(msg, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	return ack
}

func waitForCount(t *testing.T, fn func() int, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fn() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("count never reached %d (last %d)", want, fn())
}

func TestHandshakeRegistersConnection(t *testing.T) {
	h := newBinderHarness(t)
	ws := dialWS(t, h.wsURL())

	sendAuth(t, ws, 7, false)
	if ack := readAck(t, ws); ack.Type != "auth" || ack.Status != "ok" {
		t.Fatalf("ack = %+v, want auth/ok", ack)
	}
	waitForCount(t, func() int { return h.registry.UserConnCount(7) }, 1)
}

func TestAdminHandshakeJoinsBothSets(t *testing.T) {
	h := newBinderHarness(t)
	ws := dialWS(t, h.wsURL())

	sendAuth(t, ws, 1, true)
	readAck(t, ws)

	waitForCount(t, func() int { return h.registry.UserConnCount(1) }, 1)
	waitForCount(t, func() int { return len(h.registry.AdminConnections()) }, 1)
}

func TestMalformedHandshakeIgnored(t *testing.T) {
	h := newBinderHarness(t)
	ws := dialWS(t, h.wsURL())

	// Unparseable JSON, then a frame of the wrong shape: both ignored,
	// connection stays open and unbound.
	ws.WriteMessage(websocket.TextMessage, []byte("{not json"))
	ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))

	// Connection still usable: a valid handshake goes through.
	sendAuth(t, ws, 3, false)
	if ack := readAck(t, ws); ack.Status != "ok" {
		t.Fatalf("ack after malformed frames = %+v", ack)
	}
}

// Scenario D: a second identical handshake is an idempotent re-assertion.
func TestDuplicateHandshakeIdempotent(t *testing.T) {
	h := newBinderHarness(t)
	ws := dialWS(t, h.wsURL())

	sendAuth(t, ws, 3, false)
	readAck(t, ws)
	sendAuth(t, ws, 3, false)
	if ack := readAck(t, ws); ack.Status != "ok" {
		t.Fatalf("re-auth ack = %+v, want ok", ack)
	}

	waitForCount(t, func() int { return h.registry.UserConnCount(3) }, 1)
}

func TestRebindDifferentUserRejected(t *testing.T) {
	h := newBinderHarness(t)
	ws := dialWS(t, h.wsURL())

	sendAuth(t, ws, 3, false)
	readAck(t, ws)
	sendAuth(t, ws, 4, false)
	if ack := readAck(t, ws); ack.Status != "error" {
		t.Fatalf("rebind ack = %+v, want error", ack)
	}

	// Original binding stands; no entry for the claimed id.
	waitForCount(t, func() int { return h.registry.UserConnCount(3) }, 1)
	if got := h.registry.UserConnCount(4); got != 0 {
		t.Errorf("UserConnCount(4) = %d, want 0", got)
	}
}

// Scenario C: closing the only connection removes the user's key; a
// subsequent notify is a safe no-op.
func TestCloseCleansUpRegistry(t *testing.T) {
	h := newBinderHarness(t)
	ws := dialWS(t, h.wsURL())

	sendAuth(t, ws, 5, false)
	readAck(t, ws)
	waitForCount(t, func() int { return h.registry.UserConnCount(5) }, 1)

	ws.Close()
	waitForCount(t, func() int { return h.registry.UserConnCount(5) }, 0)

	notifier := NewNotifier(h.registry, testLogger(), nil)
	notifier.NotifyUser(5, UpdateEntryAdded, map[string]int{"id": 1})
}

func TestUnboundCloseIsClean(t *testing.T) {
	h := newBinderHarness(t)
	ws := dialWS(t, h.wsURL())

	// Close before any handshake; nothing to unregister, nothing panics.
	ws.Close()
	waitForCount(t, func() int { return h.registry.Len() }, 0)
}

func TestEventDeliveredOverTransport(t *testing.T) {
	h := newBinderHarness(t)
	ws := dialWS(t, h.wsURL())
	sendAuth(t, ws, 7, false)
	readAck(t, ws)
	waitForCount(t, func() int { return h.registry.UserConnCount(7) }, 1)

	notifier := NewNotifier(h.registry, testLogger(), nil)
	notifier.NotifyUser(7, UpdateEntryAdded, map[string]int{"id": 42})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var event UserEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.UpdateType != UpdateEntryAdded {
		t.Errorf("updateType = %q, want entryAdded", event.UpdateType)
	}
}

func TestTeardownAfterWriterClose(t *testing.T) {
	registry := NewRegistry(testLogger(), nil)
	b := NewBinder(registry, nil, testLogger(), nil)

	conn := testConn(4)
	frame, _ := json.Marshal(map[string]any{"type": "auth", "userId": 5, "isAdmin": true})
	b.handleFrame(conn, frame)
	if got := registry.UserConnCount(5); got != 1 {
		t.Fatalf("UserConnCount = %d after bind, want 1", got)
	}

	// A write error closes the connection from the writer side before the
	// read loop observes the failure. Teardown must still unregister.
	conn.shutdown()
	b.teardown(conn)

	if got := registry.UserConnCount(5); got != 0 {
		t.Fatalf("UserConnCount = %d after teardown, want 0", got)
	}
	if got := len(registry.AdminConnections()); got != 0 {
		t.Fatalf("admin connections = %d after teardown, want 0", got)
	}
	if got := registry.Len(); got != 0 {
		t.Fatalf("registry.Len() = %d after teardown, want 0", got)
	}
}
