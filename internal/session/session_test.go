package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/faideww/catchlog/internal/clock"
	"github.com/faideww/catchlog/internal/kvstore"
	"github.com/faideww/catchlog/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.MemoryStore, *clock.Fake) {
	t.Helper()
	st := store.NewMemoryStore(0)
	clk := clock.NewFake(time.Date(2026, 7, 4, 9, 0, 0, 0, time.UTC))
	kv := kvstore.New(st, clk, nil)
	return NewManager(kv, clk, nil), st, clk
}

func TestLoginAndCurrentUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, clk := newTestManager(t)

	if m.IsLoggedIn(ctx) {
		t.Fatalf("expected logged out initially")
	}
	err := m.Login(ctx, LoginInfo{Email: "a@b.ca", Name: "Sam"}, &Profile{Name: "Sam", Username: "sam_f"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !m.IsLoggedIn(ctx) {
		t.Fatalf("expected logged in")
	}
	info, ok := m.CurrentUser(ctx)
	if !ok || info.Name != "Sam" || !info.LoginTime.Equal(clk.Now()) {
		t.Fatalf("CurrentUser() = %+v ok=%v", info, ok)
	}
	if p, ok := m.Profile(ctx); !ok || p.Username != "sam_f" {
		t.Fatalf("Profile() = %+v ok=%v", p, ok)
	}
}

func TestLoginRejectsIncompleteInfo(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t)

	if err := m.Login(context.Background(), LoginInfo{Name: "Sam"}, nil); !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("expected ErrInvalidLogin, got %v", err)
	}
}

func TestSessionExpiresAfterTimeout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, st, clk := newTestManager(t)

	_ = m.Login(ctx, LoginInfo{Email: "a@b.ca", Name: "Sam"}, nil)
	clk.Advance(Timeout)
	if !m.IsLoggedIn(ctx) {
		t.Fatalf("session exactly at the timeout should still be valid")
	}

	clk.Advance(time.Second)
	if m.IsLoggedIn(ctx) {
		t.Fatalf("expected session to expire")
	}
	if _, ok, _ := st.Get(ctx, kvstore.Prefix+KeyLogin); ok {
		t.Fatalf("expiry should log out and remove login payload")
	}
}

func TestTouchExtendsSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, clk := newTestManager(t)

	_ = m.Login(ctx, LoginInfo{Email: "a@b.ca", Name: "Sam"}, nil)
	clk.Advance(90 * time.Minute)
	if err := m.Touch(ctx); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	clk.Advance(90 * time.Minute)
	if !m.IsLoggedIn(ctx) {
		t.Fatalf("expected touched session to still be valid")
	}
}

func TestLogoutSweepsSensitiveRemnants(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, st, _ := newTestManager(t)

	_ = m.Login(ctx, LoginInfo{Email: "a@b.ca", Name: "Sam"}, nil)
	_ = st.Set(ctx, "legacy_password", "hunter2")
	_ = st.Set(ctx, "oauth_token", "abc")
	_ = st.Set(ctx, "unrelated", "keep")

	m.Logout(ctx)

	keys, _ := st.Keys(ctx)
	if len(keys) != 1 || keys[0] != "unrelated" {
		t.Fatalf("unexpected keys after Logout: %v", keys)
	}
	if m.IsLoggedIn(ctx) {
		t.Fatalf("expected logged out")
	}
}

func TestValidateSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, _ := newTestManager(t)
	_ = m.Login(ctx, LoginInfo{Email: "a@b.ca", Name: "Sam"}, nil)

	tests := []struct {
		tr   Transport
		want bool
	}{
		{Transport{Scheme: "https", Host: "fish.example.com"}, true},
		{Transport{Scheme: "http", Host: "localhost:8080"}, true},
		{Transport{Scheme: "http", Host: "127.0.0.1:8080"}, true},
		{Transport{Scheme: "http", Host: "fish.example.com"}, false},
	}
	for _, tt := range tests {
		if got := m.ValidateSession(ctx, tt.tr); got != tt.want {
			t.Fatalf("ValidateSession(%+v) = %v, want %v", tt.tr, got, tt.want)
		}
	}
	if !m.IsLoggedIn(ctx) {
		t.Fatalf("insecure transport must not log the user out")
	}
}

func TestValidateSessionForcesLogoutOnInconsistency(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, st, _ := newTestManager(t)

	_ = m.Login(ctx, LoginInfo{Email: "a@b.ca", Name: "Sam"}, nil)
	_ = st.Delete(ctx, kvstore.Prefix+KeyLogin)

	if m.ValidateSession(ctx, Transport{Scheme: "https", Host: "x"}) {
		t.Fatalf("expected inconsistent session to be rejected")
	}
	if _, ok, _ := st.Get(ctx, kvstore.Prefix+KeyLoggedIn); ok {
		t.Fatalf("expected forced logout to clear the flag")
	}
}

func TestWatchReportsExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, clk := newTestManager(t)
	_ = m.Login(ctx, LoginInfo{Email: "a@b.ca", Name: "Sam"}, nil)

	expired := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, PollInterval, func() { close(expired) })
	}()

	// each poll of a live session schedules the next one
	for i := 0; i < int(Timeout/PollInterval)+1; i++ {
		waitForTimer(t, clk)
		clk.Advance(PollInterval)
	}

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatalf("Watch did not report expiry")
	}
	if err := <-done; err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	m, _, clk := newTestManager(t)
	_ = m.Login(ctx, LoginInfo{Email: "a@b.ca", Name: "Sam"}, nil)

	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, time.Minute, nil) }()
	waitForTimer(t, clk)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Watch did not return after cancel")
	}
}

func waitForTimer(t *testing.T, clk *clock.Fake) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for clk.Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for a scheduled timer")
		}
		time.Sleep(time.Millisecond)
	}
}
