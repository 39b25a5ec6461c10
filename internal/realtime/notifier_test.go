package realtime

import (
	"encoding/json"
	"testing"
	"time"
)

func drainFrame(t *testing.T, c *Conn) []byte {
	t.Helper()
	select {
	case frame := <-c.send:
		return frame
	default:
		t.Fatal("expected a queued frame, got none")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case frame := <-c.send:
		t.Fatalf("unexpected frame queued: %s", frame)
	default:
	}
}

// Scenario A: both of a user's tabs receive the event; nobody else does.
func TestNotifyUserFansOutToAllTabs(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	n := NewNotifier(r, testLogger(), nil)

	tab1 := testConn(4)
	tab2 := testConn(4)
	other := testConn(4)
	r.Register(tab1, 7, false)
	r.Register(tab2, 7, false)
	r.Register(other, 8, false)

	n.NotifyUser(7, UpdateEntryAdded, map[string]int{"id": 42})

	for _, c := range []*Conn{tab1, tab2} {
		var event UserEvent
		if err := json.Unmarshal(drainFrame(t, c), &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Type != "update" {
			t.Errorf("type = %q, want update", event.Type)
		}
		if event.UpdateType != UpdateEntryAdded {
			t.Errorf("updateType = %q, want entryAdded", event.UpdateType)
		}
		var data struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil || data.ID != 42 {
			t.Errorf("data = %s, want {\"id\":42}", event.Data)
		}
	}

	// Isolation: user 8's connection sees nothing.
	assertNoFrame(t, other)
}

// Scenario B: admin broadcast reaches admin connections only, with the
// actor id inferred from the payload and a server timestamp.
func TestNotifyAdminsBroadcast(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	n := NewNotifier(r, testLogger(), nil)
	fixed := time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	admin := testConn(4)
	regular := testConn(4)
	r.Register(admin, 1, true)
	r.Register(regular, 2, false)

	n.NotifyAdmins(UpdateUserRegistered, map[string]any{"id": 99, "username": "bob"})

	var event AdminEvent
	if err := json.Unmarshal(drainFrame(t, admin), &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.Type != "adminUpdate" {
		t.Errorf("type = %q, want adminUpdate", event.Type)
	}
	if event.UpdateType != UpdateUserRegistered {
		t.Errorf("updateType = %q, want userRegistered", event.UpdateType)
	}
	if event.UserID == nil || *event.UserID != 99 {
		t.Errorf("userId = %v, want 99", event.UserID)
	}
	if event.Timestamp != "2026-02-14T10:30:00Z" {
		t.Errorf("timestamp = %q", event.Timestamp)
	}

	assertNoFrame(t, regular)
}

func TestNotifyAdminsPrefersUserIDOverID(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	n := NewNotifier(r, testLogger(), nil)
	admin := testConn(4)
	r.Register(admin, 1, true)

	n.NotifyAdmins(UpdateEntryAdded, map[string]int{"id": 5, "userId": 12})

	var event AdminEvent
	if err := json.Unmarshal(drainFrame(t, admin), &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.UserID == nil || *event.UserID != 12 {
		t.Errorf("userId = %v, want 12", event.UserID)
	}
}

func TestNotifyAdminsNullActor(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	n := NewNotifier(r, testLogger(), nil)
	admin := testConn(4)
	r.Register(admin, 1, true)

	n.NotifyAdmins(UpdateAdminToggled, map[string]string{"note": "no ids here"})

	var event AdminEvent
	if err := json.Unmarshal(drainFrame(t, admin), &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.UserID != nil {
		t.Errorf("userId = %v, want null", *event.UserID)
	}
}

// Scenario C: notifying a user with no connections delivers to nobody and
// does not panic.
func TestNotifyUserNobodyConnected(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	n := NewNotifier(r, testLogger(), nil)

	n.NotifyUser(5, UpdateEntryDeleted, map[string]int{"id": 1})
}

// P1: a connection registered twice still receives exactly one copy.
func TestDuplicateRegistrationSingleDelivery(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	n := NewNotifier(r, testLogger(), nil)
	c := testConn(4)
	r.Register(c, 3, false)
	r.Register(c, 3, false)

	n.NotifyUser(3, UpdateWaterAdded, map[string]int{"id": 1})

	drainFrame(t, c)
	assertNoFrame(t, c)
}

// P5: events issued in order arrive in order on a single connection.
func TestOrderPreservedPerConnection(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	n := NewNotifier(r, testLogger(), nil)
	c := testConn(8)
	r.Register(c, 4, false)

	n.NotifyUser(4, UpdateEntryAdded, map[string]int{"seq": 1})
	n.NotifyUser(4, UpdateEntryAdded, map[string]int{"seq": 2})

	for want := 1; want <= 2; want++ {
		var event UserEvent
		if err := json.Unmarshal(drainFrame(t, c), &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		var data struct {
			Seq int `json:"seq"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			t.Fatalf("unmarshal data: %v", err)
		}
		if data.Seq != want {
			t.Fatalf("event %d arrived out of order (seq %d)", want, data.Seq)
		}
	}
}

// P6: a closed connection is skipped silently and does not block delivery
// to the remaining connections in the same fan-out call.
func TestClosedConnectionSkipped(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	n := NewNotifier(r, testLogger(), nil)
	closed := testConn(4)
	live := testConn(4)
	r.Register(closed, 6, false)
	r.Register(live, 6, false)
	closed.shutdown()

	n.NotifyUser(6, UpdateWeightAdded, map[string]int{"id": 2})

	drainFrame(t, live)
	assertNoFrame(t, closed)
}

// A stalled connection (full queue) drops rather than blocks.
func TestFullQueueDropsFrame(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	n := NewNotifier(r, testLogger(), nil)
	c := testConn(1)
	r.Register(c, 2, false)

	n.NotifyUser(2, UpdateEntryAdded, map[string]int{"seq": 1})
	done := make(chan struct{})
	go func() {
		n.NotifyUser(2, UpdateEntryAdded, map[string]int{"seq": 2})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyUser blocked on a full send queue")
	}

	drainFrame(t, c)
	assertNoFrame(t, c)
}
