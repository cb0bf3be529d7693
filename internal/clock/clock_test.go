package clock

import (
	"testing"
	"time"
)

func TestFakeAdvanceFiresDueTimersInOrder(t *testing.T) {
	c := NewFake(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))

	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "late") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "early") })
	c.AfterFunc(5*time.Second, func() { fired = append(fired, "never") })

	c.Advance(3 * time.Second)

	if len(fired) != 2 || fired[0] != "early" || fired[1] != "late" {
		t.Fatalf("expected [early late], got %v", fired)
	}
	if c.Pending() != 1 {
		t.Fatalf("expected 1 pending timer, got %d", c.Pending())
	}
}

func TestFakeStoppedTimerDoesNotFire(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Fatalf("Stop() = false, want true")
	}
	if tm.Stop() {
		t.Fatalf("second Stop() = true, want false")
	}
	c.Advance(time.Minute)
	if fired {
		t.Fatalf("stopped timer fired")
	}
}
