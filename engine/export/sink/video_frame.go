package sink

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-export/engine/export"
)

// FrameFormat is the scan type of a video frame.
type FrameFormat int

const (
	FrameFormatProgressive FrameFormat = iota
	FrameFormatInterlaced
)

func (f FrameFormat) String() string {
	switch f {
	case FrameFormatProgressive:
		return "progressive"
	case FrameFormatInterlaced:
		return "interlaced"
	default:
		return fmt.Sprintf("FrameFormat(%d)", int(f))
	}
}

// ColorFormat is the byte order of a video frame's pixels.
type ColorFormat int

const (
	ColorFormatRGBA ColorFormat = iota
	ColorFormatBGRA
)

func (c ColorFormat) String() string {
	switch c {
	case ColorFormatRGBA:
		return "rgba"
	case ColorFormatBGRA:
		return "bgra"
	default:
		return fmt.Sprintf("ColorFormat(%d)", int(c))
	}
}

// VideoFrame is one frame handed to a Sender. Data is only valid during SendVideo.
type VideoFrame struct {
	Width       int
	Height      int
	Stride      int
	FrameFormat FrameFormat
	ColorFormat ColorFormat

	// FrameRateN and FrameRateD give the nominal frame rate as a fraction.
	FrameRateN int
	FrameRateD int

	// Timestamp is the frame's presentation time relative to the stream start.
	Timestamp time.Duration

	Data []byte
}

// VideoFrameOption configures a VideoFrame built by NewVideoFrame.
type VideoFrameOption func(*VideoFrame)

// WithStride sets the bytes between row starts. Defaults to Width*4.
func WithStride(stride int) VideoFrameOption {
	return func(f *VideoFrame) {
		f.Stride = stride
	}
}

// WithFrameFormat sets the scan type. Defaults to FrameFormatProgressive.
func WithFrameFormat(ff FrameFormat) VideoFrameOption {
	return func(f *VideoFrame) {
		f.FrameFormat = ff
	}
}

// WithColorFormat sets the pixel byte order. Defaults to ColorFormatRGBA.
func WithColorFormat(cf ColorFormat) VideoFrameOption {
	return func(f *VideoFrame) {
		f.ColorFormat = cf
	}
}

// WithFrameRate sets the nominal frame rate n/d.
func WithFrameRate(n, d int) VideoFrameOption {
	return func(f *VideoFrame) {
		f.FrameRateN = n
		f.FrameRateD = d
	}
}

// WithTimestamp sets the presentation time.
func WithTimestamp(ts time.Duration) VideoFrameOption {
	return func(f *VideoFrame) {
		f.Timestamp = ts
	}
}

// NewVideoFrame builds and validates a VideoFrame over data.
//
// Parameters:
//   - width: the frame width in pixels
//   - height: the frame height in pixels
//   - data: the pixel bytes, at least Stride*(height-1)+width*4 long
//   - options: functional options for the frame
//
// Returns:
//   - VideoFrame: the frame
//   - error: an error wrapping export.ErrSinkConstruction if the frame is inconsistent
func NewVideoFrame(width, height int, data []byte, options ...VideoFrameOption) (VideoFrame, error) {
	f := VideoFrame{
		Width:      width,
		Height:     height,
		Stride:     width * export.OutputBytesPerPixel,
		FrameRateN: 60,
		FrameRateD: 1,
		Data:       data,
	}
	for _, opt := range options {
		opt(&f)
	}
	if err := f.validate(); err != nil {
		return VideoFrame{}, fmt.Errorf("%w: %w", export.ErrSinkConstruction, err)
	}
	return f, nil
}

func (f VideoFrame) validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("video frame size %dx%d", f.Width, f.Height)
	}
	rowBytes := f.Width * export.OutputBytesPerPixel
	if f.Stride < rowBytes {
		return fmt.Errorf("video frame stride %d below row size %d", f.Stride, rowBytes)
	}
	if need := f.Stride*(f.Height-1) + rowBytes; len(f.Data) < need {
		return fmt.Errorf("video frame data %d bytes, need %d", len(f.Data), need)
	}
	switch f.FrameFormat {
	case FrameFormatProgressive, FrameFormatInterlaced:
	default:
		return fmt.Errorf("unknown frame format %d", int(f.FrameFormat))
	}
	switch f.ColorFormat {
	case ColorFormatRGBA, ColorFormatBGRA:
	default:
		return fmt.Errorf("unknown color format %d", int(f.ColorFormat))
	}
	if f.FrameRateN <= 0 || f.FrameRateD <= 0 {
		return fmt.Errorf("frame rate %d/%d", f.FrameRateN, f.FrameRateD)
	}
	return nil
}

// Row returns the pixel bytes of row y without stride padding.
func (f VideoFrame) Row(y int) []byte {
	start := y * f.Stride
	return f.Data[start : start+f.Width*export.OutputBytesPerPixel]
}
