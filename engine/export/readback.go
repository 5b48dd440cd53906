package export

import (
	"fmt"
)

// Reader maps prepared staging buffers and turns their contents into dense RGBA frames.
type Reader interface {
	// Read maps the prepared buffer, blocks polling the device until the mapping completes,
	// copies the bytes out, unmaps, and normalizes the result. It must only be called after the
	// frame's copy into the buffer has been submitted.
	//
	// Mapping failures are not surfaced: the frame is reported as not ready and nothing is retried.
	//
	// Parameters:
	//   - p: the prepared buffer holding this frame's copy
	//
	// Returns:
	//   - *PixelBuffer: the normalized frame, or nil
	//   - bool: false if the frame could not be read
	Read(p *PreparedBuffer) (*PixelBuffer, bool)
}

type reader struct {
	device Device
}

var _ Reader = &reader{}

// NewReader creates a Reader that drives the given device while waiting for mappings.
//
// Parameters:
//   - device: the device owning the staging buffers
//
// Returns:
//   - Reader: the new reader
func NewReader(device Device) Reader {
	return &reader{device: device}
}

func (r *reader) Read(p *PreparedBuffer) (*PixelBuffer, bool) {
	raw, err := r.readRaw(p)
	if err != nil {
		Logger().Debug("export: readback skipped", "source", p.Source, "err", err)
		return nil, false
	}
	return Normalize(raw, p.Layout, p.Format), true
}

// readRaw returns an owned copy of the whole staging buffer. The buffer is unmapped before return.
func (r *reader) readRaw(p *PreparedBuffer) ([]byte, error) {
	// Buffered so a callback firing after we stop listening never blocks the backend.
	done := make(chan error, 1)
	if err := p.Buffer.MapRead(func(err error) { done <- err }); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMappingFailed, err)
	}

	var mapErr error
wait:
	for {
		select {
		case mapErr = <-done:
			break wait
		default:
			r.device.Poll(true)
		}
	}
	if mapErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMappingFailed, mapErr)
	}

	mapped := p.Buffer.MappedRange()
	raw := make([]byte, len(mapped))
	copy(raw, mapped)

	if err := p.Buffer.Unmap(); err != nil {
		Logger().Warn("export: unmap staging buffer", "source", p.Source, "err", err)
	}

	if uint64(len(raw)) < p.Size() {
		return nil, fmt.Errorf("%w: mapped %d bytes, want %d", ErrMappingFailed, len(raw), p.Size())
	}
	return raw, nil
}
