package sink

import "time"

// LiveSinkBuilderOption is a functional option for configuring a LiveSink.
type LiveSinkBuilderOption func(*liveSink)

// WithLiveMaxDimension downscales frames so neither side exceeds px before sending.
//
// Parameters:
//   - px: the maximum width or height, 0 to disable
//
// Returns:
//   - LiveSinkBuilderOption: option function to apply
func WithLiveMaxDimension(px int) LiveSinkBuilderOption {
	return func(s *liveSink) {
		s.maxDim = px
	}
}

// WithLiveFrameRate sets the nominal frame rate reported on sent frames. Defaults to 60/1.
//
// Parameters:
//   - n: the numerator
//   - d: the denominator
//
// Returns:
//   - LiveSinkBuilderOption: option function to apply
func WithLiveFrameRate(n, d int) LiveSinkBuilderOption {
	return func(s *liveSink) {
		s.frameRateN = n
		s.frameRateD = d
	}
}

// WithLiveFrameFormat sets the scan type reported on sent frames. Defaults to progressive.
//
// Parameters:
//   - ff: the frame format
//
// Returns:
//   - LiveSinkBuilderOption: option function to apply
func WithLiveFrameFormat(ff FrameFormat) LiveSinkBuilderOption {
	return func(s *liveSink) {
		s.frameFormat = ff
	}
}

// WithLiveClock replaces the clock used for frame timestamps.
//
// Parameters:
//   - now: the function returning the current time
//
// Returns:
//   - LiveSinkBuilderOption: option function to apply
func WithLiveClock(now func() time.Time) LiveSinkBuilderOption {
	return func(s *liveSink) {
		s.now = now
	}
}
