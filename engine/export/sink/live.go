package sink

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-export/engine/export"
	"golang.org/x/image/draw"
)

// LiveSinkStats counts the outcome of frames handed to a LiveSink.
type LiveSinkStats struct {
	Sent      uint64
	Failed    uint64
	Recreated uint64
}

// LiveSink sends frames to a live video output through a Sender.
//
// The sender is shared between the render thread and any other caller of WithSender, so every
// access is serialized by one mutex. A sender that panics is closed and recreated through the
// factory on next use; a failed recreation is retried on the following frame.
type LiveSink interface {
	export.Consumer
	io.Closer

	// Name returns the name the sender was created with.
	//
	// Returns:
	//   - string: the sender name
	Name() string

	// WithSender runs fn with exclusive access to the sender.
	//
	// Parameters:
	//   - fn: the function to run
	//
	// Returns:
	//   - error: fn's error wrapped with export.ErrSinkDispatch, or an error if the sink is closed
	//     or the sender could not be recreated
	WithSender(fn func(s Sender) error) error

	// Stats returns the sink's counters.
	//
	// Returns:
	//   - LiveSinkStats: the counters
	Stats() LiveSinkStats
}

type liveSink struct {
	mu      sync.Mutex
	name    string
	factory SenderFactory
	sender  Sender
	closed  bool

	maxDim      int
	frameRateN  int
	frameRateD  int
	frameFormat FrameFormat
	start       time.Time
	now         func() time.Time

	sent      atomic.Uint64
	failed    atomic.Uint64
	recreated atomic.Uint64
}

var _ LiveSink = &liveSink{}

// NewLiveSink creates a LiveSink and its first sender.
//
// Parameters:
//   - name: the sender name passed to the factory
//   - factory: creates the sender, now and after failures
//   - options: functional options for the sink
//
// Returns:
//   - LiveSink: the new sink
//   - error: an error wrapping export.ErrSenderInit if the first sender cannot be created
func NewLiveSink(name string, factory SenderFactory, options ...LiveSinkBuilderOption) (LiveSink, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: %q: nil sender factory", export.ErrSenderInit, name)
	}
	s := &liveSink{
		name:        name,
		factory:     factory,
		frameRateN:  60,
		frameRateD:  1,
		frameFormat: FrameFormatProgressive,
		now:         time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	sender, err := factory(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", export.ErrSenderInit, name, err)
	}
	s.sender = sender
	s.start = s.now()
	export.Logger().Info("live sink opened", "name", name)
	return s, nil
}

func (s *liveSink) Name() string {
	return s.name
}

func (s *liveSink) Consume(frame export.Frame) error {
	if frame.Pixels == nil {
		return fmt.Errorf("%w: frame %d has no pixels", export.ErrSinkDispatch, frame.Number)
	}
	img := fitWithin(frame.Pixels.Image(), s.maxDim, draw.ApproxBiLinear)
	vf, err := NewVideoFrame(img.Rect.Dx(), img.Rect.Dy(), img.Pix,
		WithStride(img.Stride),
		WithFrameFormat(s.frameFormat),
		WithColorFormat(ColorFormatRGBA),
		WithFrameRate(s.frameRateN, s.frameRateD),
		WithTimestamp(s.now().Sub(s.start)),
	)
	if err != nil {
		s.failed.Add(1)
		return err
	}

	if err := s.WithSender(func(sender Sender) error { return sender.SendVideo(vf) }); err != nil {
		s.failed.Add(1)
		return err
	}
	s.sent.Add(1)
	return nil
}

func (s *liveSink) WithSender(fn func(s Sender) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: live sink %q closed", export.ErrSinkDispatch, s.name)
	}
	if s.sender == nil {
		sender, err := s.factory(s.name)
		if err != nil {
			return fmt.Errorf("%w: recreate sender %q: %w", export.ErrSinkDispatch, s.name, err)
		}
		s.sender = sender
		s.recreated.Add(1)
		export.Logger().Info("live sink sender recreated", "name", s.name)
	}
	return s.call(fn)
}

// call runs fn on the current sender. Caller holds s.mu.
func (s *liveSink) call(fn func(s Sender) error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		export.Logger().Warn("live sink sender panicked, recreating on next use", "name", s.name, "panic", r)
		s.discardSender()
		err = fmt.Errorf("%w: sender %q panic: %v", export.ErrSinkDispatch, s.name, r)
	}()

	if err := fn(s.sender); err != nil {
		if errors.Is(err, export.ErrSinkConstruction) || errors.Is(err, export.ErrSinkDispatch) {
			return err
		}
		return fmt.Errorf("%w: sender %q: %w", export.ErrSinkDispatch, s.name, err)
	}
	return nil
}

// discardSender closes and forgets a sender left in an unknown state. Caller holds s.mu.
func (s *liveSink) discardSender() {
	sender := s.sender
	s.sender = nil
	defer func() {
		if r := recover(); r != nil {
			export.Logger().Warn("live sink sender panicked on close", "name", s.name, "panic", r)
		}
	}()
	if err := sender.Close(); err != nil {
		export.Logger().Debug("live sink close broken sender", "name", s.name, "err", err)
	}
}

func (s *liveSink) Stats() LiveSinkStats {
	return LiveSinkStats{
		Sent:      s.sent.Load(),
		Failed:    s.failed.Load(),
		Recreated: s.recreated.Load(),
	}
}

func (s *liveSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.sender == nil {
		return nil
	}
	err := s.sender.Close()
	s.sender = nil
	return err
}
