package export

import (
	"errors"
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time         { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestRateLimiterFirstCallAllowed(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(time.Second, WithClock(clock.Now))

	if !l.Ready() || !l.Allow() {
		t.Fatal("first call should be allowed")
	}
	if l.Allow() {
		t.Fatal("second call within the interval should be limited")
	}
	clock.Advance(time.Second)
	if !l.Allow() {
		t.Fatal("call after a full interval should be allowed")
	}
}

func TestRateLimiterReadyDoesNotConsume(t *testing.T) {
	l := NewRateLimiter(time.Second, WithClock(newFakeClock().Now))
	for i := 0; i < 3; i++ {
		if !l.Ready() {
			t.Fatalf("Ready #%d = false", i)
		}
	}
	if !l.Allow() {
		t.Fatal("Allow after Ready should succeed")
	}
}

func TestRateLimiterZeroIntervalNeverLimits(t *testing.T) {
	l := NewRateLimiter(0)
	for i := 0; i < 10; i++ {
		if !l.Allow() {
			t.Fatalf("Allow #%d = false", i)
		}
	}
}

// TestRateLimiterSixtyFPS feeds a one second limiter 60 frames per second for five seconds.
func TestRateLimiterSixtyFPS(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(time.Second, WithClock(clock.Now))

	const frames = 300
	var allowed []int
	for i := 0; i < frames; i++ {
		if l.Allow() {
			allowed = append(allowed, i)
		}
		clock.Advance(time.Second / 60)
	}

	if len(allowed) < 4 || len(allowed) > 5 {
		t.Fatalf("allowed %d frames out of %d, want 4 or 5: %v", len(allowed), frames, allowed)
	}
	for i := 1; i < len(allowed); i++ {
		if gap := allowed[i] - allowed[i-1]; gap < 60 {
			t.Errorf("dispatches %d and %d are only %d frames apart", allowed[i-1], allowed[i], gap)
		}
	}
}

func TestBindingRecoversConsumerPanic(t *testing.T) {
	b := newBinding("boom", ConsumerFunc(func(Frame) error { panic("sink exploded") }))

	_, err := b.offer(Frame{Number: 1})
	if !errors.Is(err, ErrSinkDispatch) {
		t.Fatalf("err = %v, want ErrSinkDispatch", err)
	}
	if s := b.stats(); s.Failed != 1 || s.Dispatched != 0 {
		t.Errorf("stats = %+v, want one failure", s)
	}
}

func TestBindingSetsName(t *testing.T) {
	var got string
	b := newBinding("disk", ConsumerFunc(func(f Frame) error {
		got = f.Binding
		return nil
	}))
	if _, err := b.offer(Frame{}); err != nil {
		t.Fatalf("offer failed: %v", err)
	}
	if got != "disk" {
		t.Errorf("Binding = %q, want disk", got)
	}
}
