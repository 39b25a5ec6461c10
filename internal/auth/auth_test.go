package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash equals plaintext")
	}
	if !VerifyPassword(hash, "s3cret") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	token, err := m.Issue(Identity{UserID: 7, Username: "alice"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	id, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != 7 || id.Username != "alice" {
		t.Errorf("identity = %+v", id)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, _ := NewManager("secret-a", time.Hour).Issue(Identity{UserID: 1})
	if _, err := NewManager("secret-b", time.Hour).Verify(token); err == nil {
		t.Error("token signed with another secret accepted")
	}
}

func TestTokenExpired(t *testing.T) {
	m := NewManager("secret", -time.Minute)
	token, _ := m.Issue(Identity{UserID: 1})
	if _, err := m.Verify(token); err == nil {
		t.Error("expired token accepted")
	}
}

func newAuthedRequest(t *testing.T, m *Manager, id Identity) *http.Request {
	t.Helper()
	token, err := m.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	return r
}

func testErrorWriter(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func TestMiddleware(t *testing.T) {
	m := NewManager("secret", time.Hour)
	var seen Identity
	handler := m.Middleware(testErrorWriter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	// No cookie → 401.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no cookie status = %d, want 401", rec.Code)
	}

	// Garbage token → 403.
	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusForbidden {
		t.Errorf("bad token status = %d, want 403", rec.Code)
	}

	// Valid token → identity in context.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newAuthedRequest(t, m, Identity{UserID: 5, Username: "eve"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token status = %d", rec.Code)
	}
	if seen.UserID != 5 || seen.Username != "eve" {
		t.Errorf("context identity = %+v", seen)
	}
}
