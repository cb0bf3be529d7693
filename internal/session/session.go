package session

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/faideww/catchlog/internal/clock"
	"github.com/faideww/catchlog/internal/kvstore"
	"github.com/faideww/catchlog/internal/logging"
)

const (
	KeyLogin     = "user_login"
	KeyLoggedIn  = "is_logged_in"
	KeyTimestamp = "session_timestamp"
	KeyProfile   = "user_profile"

	Timeout      = 2 * time.Hour
	PollInterval = 2 * time.Minute
)

var ErrInvalidLogin = errors.New("invalid login information")

type LoginInfo struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	LoginTime time.Time `json:"loginTime"`
}

type Profile struct {
	Name         string `json:"name"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
}

// Transport describes how the client reached us, for ValidateSession.
type Transport struct {
	Scheme string
	Host   string
}

type Manager struct {
	kv    *kvstore.KV
	clock clock.Clock
	log   *log.Logger
}

func NewManager(kv *kvstore.KV, clk clock.Clock, logger *log.Logger) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{kv: kv, clock: clk, log: logger}
}

// Login records a demo sign-in. No credentials are ever stored. A nil
// profile leaves any stored profile untouched.
func (m *Manager) Login(ctx context.Context, info LoginInfo, profile *Profile) error {
	if strings.TrimSpace(info.Email) == "" || strings.TrimSpace(info.Name) == "" {
		return ErrInvalidLogin
	}
	if info.LoginTime.IsZero() {
		info.LoginTime = m.clock.Now()
	}

	if err := m.kv.Set(ctx, KeyLogin, info); err != nil {
		return err
	}
	if err := m.kv.Set(ctx, KeyLoggedIn, true); err != nil {
		return err
	}
	if err := m.Touch(ctx); err != nil {
		return err
	}
	if profile != nil {
		if err := m.kv.Set(ctx, KeyProfile, profile); err != nil {
			return err
		}
	}
	m.log.Info("session started", "user", info.Name)
	return nil
}

// Touch refreshes the session timestamp.
func (m *Manager) Touch(ctx context.Context) error {
	return m.kv.Set(ctx, KeyTimestamp, m.clock.Now().UnixMilli())
}

// IsLoggedIn checks the flag and expires the session lazily once the
// timestamp is older than Timeout.
func (m *Manager) IsLoggedIn(ctx context.Context) bool {
	var loggedIn bool
	m.kv.Get(ctx, KeyLoggedIn, &loggedIn)

	var ts int64
	if m.kv.Get(ctx, KeyTimestamp, &ts) {
		if m.clock.Now().Sub(time.UnixMilli(ts)) > Timeout {
			m.log.Info("session expired, logging out")
			m.Logout(ctx)
			return false
		}
	}
	return loggedIn
}

func (m *Manager) CurrentUser(ctx context.Context) (LoginInfo, bool) {
	if !m.IsLoggedIn(ctx) {
		return LoginInfo{}, false
	}
	var info LoginInfo
	ok := m.kv.Get(ctx, KeyLogin, &info)
	return info, ok
}

func (m *Manager) Profile(ctx context.Context) (Profile, bool) {
	var p Profile
	ok := m.kv.Get(ctx, KeyProfile, &p)
	return p, ok
}

func (m *Manager) SaveProfile(ctx context.Context, p Profile) error {
	return m.kv.Set(ctx, KeyProfile, p)
}

// Logout removes the session keys, then sweeps the raw store for any
// key that looks like it holds a credential.
func (m *Manager) Logout(ctx context.Context) {
	for _, k := range []string{KeyLogin, KeyLoggedIn, KeyProfile, KeyTimestamp} {
		m.kv.Remove(ctx, k)
	}

	keys, err := m.kv.RawKeys(ctx)
	if err != nil {
		m.log.Error("failed to list keys during logout", "err", err)
		return
	}
	for _, k := range keys {
		if kvstore.IsSensitive(k) {
			if err := m.kv.RemoveRaw(ctx, k); err != nil {
				m.log.Error("failed to remove sensitive remnant", "item", k, "err", err)
			}
		}
	}
	m.log.Info("session cleared")
}

// ValidateSession rejects plain http from a non-local host and forces a
// logout when the logged-in flag has no login payload behind it.
func (m *Manager) ValidateSession(ctx context.Context, tr Transport) bool {
	if strings.EqualFold(tr.Scheme, "http") && !isLocalHost(tr.Host) {
		m.log.Warn("insecure context detected", "host", tr.Host)
		return false
	}
	return m.consistent(ctx)
}

func (m *Manager) consistent(ctx context.Context) bool {
	var loggedIn bool
	m.kv.Get(ctx, KeyLoggedIn, &loggedIn)
	if loggedIn && !m.kv.Get(ctx, KeyLogin, nil) {
		m.log.Warn("session inconsistency detected, clearing session")
		m.Logout(ctx)
		return false
	}
	return true
}

// Watch polls the session every interval until it ends, then calls
// onExpired once and returns. It does not refresh the timestamp; that
// is Touch's job.
func (m *Manager) Watch(ctx context.Context, interval time.Duration, onExpired func()) error {
	if interval <= 0 {
		interval = PollInterval
	}
	tick := make(chan struct{}, 1)
	for {
		t := m.clock.AfterFunc(interval, func() {
			select {
			case tick <- struct{}{}:
			default:
			}
		})
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-tick:
		}

		if !m.consistent(ctx) || !m.IsLoggedIn(ctx) {
			if onExpired != nil {
				onExpired()
			}
			return nil
		}
	}
}

func isLocalHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
