package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndFetchUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	email := "alice@example.com"
	created, err := s.CreateUser(ctx, "alice", &email, "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected assigned id")
	}

	byName, err := s.UserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("UserByUsername: %v", err)
	}
	if byName.ID != created.ID || byName.PasswordHash != "hash" {
		t.Errorf("fetched %+v, want id %d", byName, created.ID)
	}
	if byName.Email == nil || *byName.Email != email {
		t.Errorf("email = %v, want %q", byName.Email, email)
	}

	if _, err := s.UserByID(ctx, created.ID); err != nil {
		t.Errorf("UserByID: %v", err)
	}
	if _, err := s.UserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user error = %v, want ErrNotFound", err)
	}
}

func TestDuplicateUsername(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "bob", nil, "h1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := s.CreateUser(ctx, "bob", nil, "h2"); !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("duplicate error = %v, want ErrDuplicateUsername", err)
	}
}

func TestEntryCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "carol", nil, "h")

	added, err := s.AddEntry(ctx, Entry{
		UserID: u.ID, Sex: "f", Height: 170, Neck: 32, Waist: 70, Hip: 95,
		BodyFat: 24.5, Group: "morning",
	})
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	entries, err := s.Entries(ctx, u.ID)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != added.ID || entries[0].BodyFat != 24.5 {
		t.Fatalf("Entries = %+v", entries)
	}

	if err := s.DeleteEntry(ctx, u.ID, added.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := s.DeleteEntry(ctx, u.ID, added.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestDeleteEntryOwnerScoped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner, _ := s.CreateUser(ctx, "owner", nil, "h")
	intruder, _ := s.CreateUser(ctx, "intruder", nil, "h")

	added, _ := s.AddEntry(ctx, Entry{UserID: owner.ID, Sex: "m"})
	if err := s.DeleteEntry(ctx, intruder.ID, added.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user delete = %v, want ErrNotFound", err)
	}
	entries, _ := s.Entries(ctx, owner.ID)
	if len(entries) != 1 {
		t.Fatal("entry deleted by non-owner")
	}
}

func TestWaterAndWeightLogs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "dave", nil, "h")

	water, err := s.AddWaterLog(ctx, u.ID, 250)
	if err != nil {
		t.Fatalf("AddWaterLog: %v", err)
	}
	weight, err := s.AddWeightLog(ctx, u.ID, 81.3)
	if err != nil {
		t.Fatalf("AddWeightLog: %v", err)
	}

	waters, _ := s.WaterLogs(ctx, u.ID)
	if len(waters) != 1 || waters[0].AmountML != 250 {
		t.Errorf("WaterLogs = %+v", waters)
	}
	weights, _ := s.WeightLogs(ctx, u.ID)
	if len(weights) != 1 || weights[0].WeightKG != 81.3 {
		t.Errorf("WeightLogs = %+v", weights)
	}

	if err := s.DeleteWaterLog(ctx, u.ID, water.ID); err != nil {
		t.Errorf("DeleteWaterLog: %v", err)
	}
	if err := s.DeleteWeightLog(ctx, u.ID, weight.ID); err != nil {
		t.Errorf("DeleteWeightLog: %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "erin", nil, "h")
	s.AddEntry(ctx, Entry{UserID: u.ID})
	s.AddWaterLog(ctx, u.ID, 100)

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	entries, _ := s.Entries(ctx, u.ID)
	if len(entries) != 0 {
		t.Error("entries survived user deletion")
	}
	waters, _ := s.WaterLogs(ctx, u.ID)
	if len(waters) != 0 {
		t.Error("water logs survived user deletion")
	}
	if err := s.DeleteUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestAdminBitAndPassword(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "frank", nil, "old")

	if err := s.SetAdmin(ctx, u.ID, true); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	got, _ := s.UserByID(ctx, u.ID)
	if !got.IsAdmin {
		t.Error("is_admin not set")
	}

	if err := s.UpdatePassword(ctx, u.ID, "new"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	got, _ = s.UserByID(ctx, u.ID)
	if got.PasswordHash != "new" {
		t.Error("password hash not updated")
	}

	if err := s.SetAdmin(ctx, 9999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetAdmin missing user = %v, want ErrNotFound", err)
	}
}

func TestStatsAndListUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, _ := s.CreateUser(ctx, "gina", nil, "h")
	b, _ := s.CreateUser(ctx, "hank", nil, "h")
	s.SetAdmin(ctx, a.ID, true)
	s.AddEntry(ctx, Entry{UserID: a.ID})
	s.AddEntry(ctx, Entry{UserID: b.ID})
	s.AddWaterLog(ctx, b.ID, 300)

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalUsers != 2 || stats.AdminCount != 1 ||
		stats.TotalEntries != 2 || stats.TotalWaterLogs != 1 {
		t.Errorf("Stats = %+v", stats)
	}
	if len(stats.RecentUsers) != 2 {
		t.Errorf("RecentUsers = %+v", stats.RecentUsers)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("ListUsers = %d rows", len(users))
	}
	for _, u := range users {
		if u.ID == b.ID {
			if u.EntriesCount != 1 || u.WaterLogCount != 1 {
				t.Errorf("counts for %s = %d/%d", u.Username, u.EntriesCount, u.WaterLogCount)
			}
		}
	}

	detail, err := s.UserDetail(ctx, b.ID)
	if err != nil {
		t.Fatalf("UserDetail: %v", err)
	}
	if detail.LastEntry == nil || detail.LastWaterLog == nil {
		t.Error("UserDetail last-activity timestamps missing")
	}
}
