package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/OsianJL/questions-app/internal/auth"
	"github.com/OsianJL/questions-app/internal/crypto"
	"github.com/OsianJL/questions-app/internal/store"
)

type fakeThrottle struct {
	failures map[string]int
}

func (f *fakeThrottle) LoginAllowed(ctx context.Context, email string, limit int) (bool, error) {
	return f.failures[email] < limit, nil
}

func (f *fakeThrottle) RecordLoginFailure(ctx context.Context, email string) error {
	f.failures[email]++
	return nil
}

func (f *fakeThrottle) ResetLoginFailures(ctx context.Context, email string) error {
	delete(f.failures, email)
	return nil
}

func (f *fakeThrottle) Ping(ctx context.Context) error { return nil }

func newThrottledHandler(t *testing.T) (*Handler, *fakeThrottle) {
	t.Helper()
	ctx := context.Background()

	ds, err := store.NewSQLiteStore(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ds.Close)

	hash, err := crypto.HashPassword("secret1")
	if err != nil {
		t.Fatal(err)
	}
	u, err := ds.CreateUser(ctx, "ana@example.com", hash)
	if err != nil {
		t.Fatal(err)
	}
	if err := ds.ConfirmUser(ctx, u.ID); err != nil {
		t.Fatal(err)
	}

	tokens, err := auth.NewTokenService("handlers-test", time.Hour, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	throttle := &fakeThrottle{failures: make(map[string]int)}
	return NewHandler(ds, throttle, tokens, zerolog.Nop(), "http://questions.test"), throttle
}

func login(h *Handler, email, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(CredentialsRequest{Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func TestLoginThrottle(t *testing.T) {
	h, throttle := newThrottledHandler(t)

	for i := 0; i < maxLoginFailures; i++ {
		if rec := login(h, "ana@example.com", "wrong-password"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, rec.Code)
		}
	}
	if throttle.failures["ana@example.com"] != maxLoginFailures {
		t.Fatalf("recorded failures = %d", throttle.failures["ana@example.com"])
	}

	// Locked out even with the right password.
	if rec := login(h, "ANA@example.com ", "secret1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestLoginSuccessResetsFailures(t *testing.T) {
	h, throttle := newThrottledHandler(t)

	for i := 0; i < maxLoginFailures-1; i++ {
		login(h, "ana@example.com", "wrong-password")
	}

	rec := login(h, "ana@example.com", "secret1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.AccessToken == "" {
		t.Fatalf("expected access token, got %+v (%v)", resp, err)
	}
	if _, ok := throttle.failures["ana@example.com"]; ok {
		t.Fatal("failures not reset after successful login")
	}
}

func TestUnknownEmailCountsAsFailure(t *testing.T) {
	h, throttle := newThrottledHandler(t)

	if rec := login(h, "nobody@example.com", "secret1"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if throttle.failures["nobody@example.com"] != 1 {
		t.Fatalf("failures = %v", throttle.failures)
	}
}
