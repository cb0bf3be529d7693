package identify

import (
	"context"
	"net"
	"sync/atomic"
	"time"
)

// ConnectivityProbe reports whether the network is reachable right now.
type ConnectivityProbe interface {
	Online(ctx context.Context) bool
}

// StaticProbe is a switchable probe, for tests and for forcing offline
// mode from configuration.
type StaticProbe struct {
	online atomic.Bool
}

func NewStaticProbe(online bool) *StaticProbe {
	p := &StaticProbe{}
	p.online.Store(online)
	return p
}

func (p *StaticProbe) Online(context.Context) bool { return p.online.Load() }

func (p *StaticProbe) Set(online bool) { p.online.Store(online) }

// DialProbe treats a successful TCP dial to Addr as being online.
type DialProbe struct {
	Addr    string
	Timeout time.Duration
}

func (p DialProbe) Online(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
