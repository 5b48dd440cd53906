package export

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Frame is one normalized frame delivered to a consumer.
type Frame struct {
	// Number is the render frame the pixels were copied in.
	Number uint64

	// Source is the id of the export source.
	Source SourceID

	// Label is the export source's label.
	Label string

	// Binding is the name the consumer was attached under.
	Binding string

	// TraceID identifies the readback; every binding of the same frame sees the same id.
	TraceID string

	// Pixels is shared read-only with the source's other consumers and only valid during Consume.
	Pixels *PixelBuffer
}

// Consumer receives normalized frames from an export source.
type Consumer interface {
	// Consume handles one frame. It runs on the render thread, so slow work should be handed off
	// after cloning the pixels. Returned errors are logged and counted; they never abort the frame.
	//
	// Parameters:
	//   - frame: the frame to handle
	//
	// Returns:
	//   - error: a failure wrapping ErrSinkConstruction or ErrSinkDispatch, or nil
	Consume(frame Frame) error
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(frame Frame) error

// Consume calls f(frame).
func (f ConsumerFunc) Consume(frame Frame) error {
	return f(frame)
}

// RateLimiter gates dispatch to at most once per interval. The first call is always allowed.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	primed   bool
	now      func() time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithClock replaces the limiter's time source.
//
// Parameters:
//   - now: the function returning the current time
//
// Returns:
//   - RateLimiterOption: option function to apply
func WithClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) {
		l.now = now
	}
}

// NewRateLimiter creates a RateLimiter with the given interval. An interval <= 0 never limits.
//
// Parameters:
//   - interval: the minimum time between allowed events
//   - options: functional options (clock injection)
//
// Returns:
//   - *RateLimiter: the new limiter
func NewRateLimiter(interval time.Duration, options ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Interval returns the configured interval.
func (l *RateLimiter) Interval() time.Duration {
	return l.interval
}

// Ready reports whether Allow would succeed now, without consuming the slot.
func (l *RateLimiter) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready(l.now())
}

// Allow reports whether the interval has elapsed and, if so, starts a new interval.
func (l *RateLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !l.ready(now) {
		return false
	}
	l.last = now
	l.primed = true
	return true
}

func (l *RateLimiter) ready(now time.Time) bool {
	return l.interval <= 0 || !l.primed || now.Sub(l.last) >= l.interval
}

// BindingStats counts what happened to frames offered to one binding.
type BindingStats struct {
	Dispatched  uint64
	RateLimited uint64
	Failed      uint64
}

// BindingOption configures a consumer binding.
type BindingOption func(*binding)

// WithRateLimit limits the binding to one dispatch per interval.
//
// Parameters:
//   - interval: the minimum time between dispatches
//
// Returns:
//   - BindingOption: option function to apply
func WithRateLimit(interval time.Duration) BindingOption {
	return func(b *binding) {
		b.limiter = NewRateLimiter(interval)
	}
}

// WithRateLimiter uses a caller-owned limiter for the binding.
//
// Parameters:
//   - l: the limiter
//
// Returns:
//   - BindingOption: option function to apply
func WithRateLimiter(l *RateLimiter) BindingOption {
	return func(b *binding) {
		b.limiter = l
	}
}

type binding struct {
	name     string
	consumer Consumer
	limiter  *RateLimiter

	dispatched  atomic.Uint64
	rateLimited atomic.Uint64
	failed      atomic.Uint64
}

func newBinding(name string, consumer Consumer, options ...BindingOption) *binding {
	b := &binding{name: name, consumer: consumer}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// ready reports whether the binding would accept a frame now.
func (b *binding) ready() bool {
	return b.limiter == nil || b.limiter.Ready()
}

// offer dispatches the frame unless the binding is rate limited. Consumer panics are
// converted to dispatch errors so one sink cannot take down the render thread.
func (b *binding) offer(frame Frame) (dispatched bool, err error) {
	if b.limiter != nil && !b.limiter.Allow() {
		b.rateLimited.Add(1)
		return false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: consumer panic: %v", ErrSinkDispatch, r)
		}
		if err != nil {
			b.failed.Add(1)
			return
		}
		b.dispatched.Add(1)
	}()

	frame.Binding = b.name
	return true, b.consumer.Consume(frame)
}

func (b *binding) stats() BindingStats {
	return BindingStats{
		Dispatched:  b.dispatched.Load(),
		RateLimited: b.rateLimited.Load(),
		Failed:      b.failed.Load(),
	}
}
