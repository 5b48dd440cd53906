package sink

import "os"

// DefaultBacklog is the number of frames a DiskSink queues before dropping new ones.
const DefaultBacklog = 8

// DiskSinkBuilderOption is a functional option for configuring a DiskSink.
type DiskSinkBuilderOption func(*diskSink)

// WithWorkers encodes frames asynchronously on a pool of n workers.
// With n <= 0 (the default) frames are encoded on the calling goroutine.
//
// Parameters:
//   - n: the number of encode workers
//
// Returns:
//   - DiskSinkBuilderOption: option function to apply
func WithWorkers(n int) DiskSinkBuilderOption {
	return func(s *diskSink) {
		s.workers = n
	}
}

// WithBacklog sets how many frames may be queued or encoding at once before new frames are
// dropped. Only used with WithWorkers.
//
// Parameters:
//   - n: the backlog size
//
// Returns:
//   - DiskSinkBuilderOption: option function to apply
func WithBacklog(n int) DiskSinkBuilderOption {
	return func(s *diskSink) {
		s.backlog = n
	}
}

// WithMaxDimension downscales frames so neither side exceeds px before encoding.
//
// Parameters:
//   - px: the maximum width or height, 0 to disable
//
// Returns:
//   - DiskSinkBuilderOption: option function to apply
func WithMaxDimension(px int) DiskSinkBuilderOption {
	return func(s *diskSink) {
		s.maxDim = px
	}
}

// WithJPEGQuality sets the quality of .jpg output.
//
// Parameters:
//   - q: the quality, 1-100
//
// Returns:
//   - DiskSinkBuilderOption: option function to apply
func WithJPEGQuality(q int) DiskSinkBuilderOption {
	return func(s *diskSink) {
		s.jpegQuality = q
	}
}

// WithEncoder overrides the encoder chosen from the pattern's extension.
//
// Parameters:
//   - enc: the encoder
//
// Returns:
//   - DiskSinkBuilderOption: option function to apply
func WithEncoder(enc Encoder) DiskSinkBuilderOption {
	return func(s *diskSink) {
		s.encoder = enc
	}
}

// WithDirMode sets the permissions of directories created for output files.
//
// Parameters:
//   - mode: the directory mode
//
// Returns:
//   - DiskSinkBuilderOption: option function to apply
func WithDirMode(mode os.FileMode) DiskSinkBuilderOption {
	return func(s *diskSink) {
		s.dirMode = mode
	}
}
