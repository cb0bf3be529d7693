package ratelimit

import (
	"sync"
	"time"

	"github.com/faideww/catchlog/internal/clock"
)

const DefaultKey = "global"

// sweepEvery controls how often idle keys are dropped.
const sweepEvery = 64

// Limiter allows at most max events per key within any trailing window.
type Limiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
	clk    clock.Clock
	calls  int
}

func NewLimiter(max int, window time.Duration, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.Real{}
	}
	if max < 1 {
		max = 1
	}
	return &Limiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		clk:    clk,
	}
}

// TryKey records an event for key if the window has room. When it does
// not, it reports how long until the oldest event leaves the window.
func (l *Limiter) TryKey(key string) (bool, time.Duration) {
	if key == "" {
		key = DefaultKey
	}
	now := l.clk.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(now)
	}

	valid := trim(l.hits[key], now.Add(-l.window))
	if len(valid) >= l.max {
		l.hits[key] = valid
		return false, valid[0].Add(l.window).Sub(now)
	}

	l.hits[key] = append(valid, now)
	return true, 0
}

func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.hits, key)
	l.mu.Unlock()
}

// Remaining reports how many events key may still record right now.
func (l *Limiter) Remaining(key string) int {
	if key == "" {
		key = DefaultKey
	}
	now := l.clk.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.max - len(trim(l.hits[key], now.Add(-l.window)))
}

// sweep drops keys with no events in the last two windows.
func (l *Limiter) sweep(now time.Time) {
	cutoff := now.Add(-2 * l.window)
	for k, hits := range l.hits {
		if len(trim(hits, cutoff)) == 0 {
			delete(l.hits, k)
		}
	}
}

// trim drops events at or before cutoff. hits is in time order.
func trim(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
