package sink

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Sender delivers video frames to an external video output.
type Sender interface {
	// SendVideo sends one frame. The frame's data must not be retained after return.
	//
	// Parameters:
	//   - frame: the frame to send
	//
	// Returns:
	//   - error: an error if the frame could not be sent
	SendVideo(frame VideoFrame) error

	// Close releases the sender.
	//
	// Returns:
	//   - error: an error if releasing failed
	Close() error
}

// SenderFactory creates a named Sender. It is called when a LiveSink is constructed and again
// whenever a broken sender has to be replaced.
type SenderFactory func(name string) (Sender, error)

// RawStreamMagic starts every frame header written by a RawStreamSender.
const RawStreamMagic = "OXYF"

// RawStreamHeaderSize is the size in bytes of a RawStreamSender frame header.
const RawStreamHeaderSize = 24

type rawStreamSender struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	header bool
	hdr    [RawStreamHeaderSize]byte
}

// RawStreamSenderOption configures a raw stream sender.
type RawStreamSenderOption func(*rawStreamSender)

// WithoutHeader writes bare pixel rows, suitable for piping into a player that expects raw
// video of a known size.
func WithoutHeader() RawStreamSenderOption {
	return func(s *rawStreamSender) {
		s.header = false
	}
}

// NewRawStreamSender creates a Sender writing frames to w as tightly packed rows.
// Each frame is preceded by a little-endian header: the magic, width, height, color format,
// and timestamp in nanoseconds. If w is an io.Closer it is closed with the sender.
//
// Parameters:
//   - w: the destination stream
//   - options: functional options for the sender
//
// Returns:
//   - Sender: the new sender
func NewRawStreamSender(w io.Writer, options ...RawStreamSenderOption) Sender {
	s := &rawStreamSender{
		w:      bufio.NewWriterSize(w, 1<<20),
		header: true,
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// NewRawStreamFactory returns a SenderFactory opening a new stream for each sender it creates.
//
// Parameters:
//   - open: opens the destination stream for a sender name
//   - options: options applied to every created sender
//
// Returns:
//   - SenderFactory: the factory
func NewRawStreamFactory(open func(name string) (io.Writer, error), options ...RawStreamSenderOption) SenderFactory {
	return func(name string) (Sender, error) {
		w, err := open(name)
		if err != nil {
			return nil, fmt.Errorf("open raw stream %q: %w", name, err)
		}
		return NewRawStreamSender(w, options...), nil
	}
}

func (s *rawStreamSender) SendVideo(frame VideoFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.header {
		copy(s.hdr[0:4], RawStreamMagic)
		binary.LittleEndian.PutUint32(s.hdr[4:8], uint32(frame.Width))
		binary.LittleEndian.PutUint32(s.hdr[8:12], uint32(frame.Height))
		binary.LittleEndian.PutUint32(s.hdr[12:16], uint32(frame.ColorFormat))
		binary.LittleEndian.PutUint64(s.hdr[16:24], uint64(frame.Timestamp))
		if _, err := s.w.Write(s.hdr[:]); err != nil {
			return err
		}
	}
	for y := 0; y < frame.Height; y++ {
		if _, err := s.w.Write(frame.Row(y)); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

func (s *rawStreamSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
		s.closer = nil
	}
	return err
}
