package export

import (
	"fmt"
	"sync"
)

// PreparedBuffer is the GPU-side state derived from a Source: the staging buffer and the row
// layout the copy stage and the reader agree on. It is immutable once prepared.
type PreparedBuffer struct {
	Source SourceID
	Buffer StagingBuffer
	Layout RowLayout
	Format PixelFormat

	texture Texture
}

// Size returns the staging buffer size, PaddedBytesPerRow*Height.
func (p *PreparedBuffer) Size() uint64 {
	return p.Layout.Size()
}

// matches reports whether the prepared buffer was derived from this exact texture and extent.
func (p *PreparedBuffer) matches(tex Texture) bool {
	return p.texture == tex &&
		p.Layout.Width == tex.Width() &&
		p.Layout.Height == tex.Height() &&
		p.Format == tex.Format()
}

// Registry maps export sources to their prepared staging buffers.
type Registry interface {
	// Prepare computes the row layout for the source's current texture, allocates a staging
	// buffer for it and records the result. Any buffer previously prepared for the source is released.
	//
	// Parameters:
	//   - src: the source to prepare
	//
	// Returns:
	//   - *PreparedBuffer: the new prepared buffer
	//   - error: ErrSourceTextureMissing if the source has no texture, ErrUnsupportedFormat if the
	//     texture cannot be normalized, or the device allocation error
	Prepare(src *Source) (*PreparedBuffer, error)

	// Sync returns the prepared buffer for the source, preparing it again only when the source's
	// texture was replaced or resized since the last Prepare.
	//
	// Parameters:
	//   - src: the source to synchronize
	//
	// Returns:
	//   - *PreparedBuffer: the current prepared buffer
	//   - error: any error returned by Prepare
	Sync(src *Source) (*PreparedBuffer, error)

	// Lookup returns the prepared buffer for the source id without side effects.
	//
	// Parameters:
	//   - id: the source id
	//
	// Returns:
	//   - *PreparedBuffer: the prepared buffer, or nil
	//   - bool: false if the source has not been prepared
	Lookup(id SourceID) (*PreparedBuffer, bool)

	// Remove drops and releases the prepared buffer for the source id, if any.
	//
	// Parameters:
	//   - id: the source id
	Remove(id SourceID)

	// Len returns the number of prepared sources.
	Len() int

	// Release drops and releases every prepared buffer.
	Release()
}

type registry struct {
	mu      sync.RWMutex
	device  Device
	entries map[SourceID]*PreparedBuffer
}

var _ Registry = &registry{}

// NewRegistry creates an empty Registry allocating staging buffers on the given device.
//
// Parameters:
//   - device: the GPU device that owns staging buffers
//
// Returns:
//   - Registry: the new registry
func NewRegistry(device Device) Registry {
	return &registry{
		device:  device,
		entries: make(map[SourceID]*PreparedBuffer),
	}
}

func (r *registry) Prepare(src *Source) (*PreparedBuffer, error) {
	tex := src.Texture()
	if tex == nil {
		return nil, fmt.Errorf("source %d (%s): %w", src.ID(), src.Label(), ErrSourceTextureMissing)
	}
	if tex.Width() == 0 || tex.Height() == 0 {
		return nil, fmt.Errorf("source %d (%s): empty extent: %w", src.ID(), src.Label(), ErrSourceTextureMissing)
	}
	format := tex.Format()
	if !format.Supported() {
		return nil, fmt.Errorf("source %d (%s): %s: %w", src.ID(), src.Label(), format, ErrUnsupportedFormat)
	}

	layout := NewRowLayout(tex.Width(), tex.Height(), format.BytesPerPixel(), r.device.RowAlignment())
	buf, err := r.device.CreateStagingBuffer(fmt.Sprintf("%s Export Staging Buffer", src.Label()), layout.Size())
	if err != nil {
		return nil, fmt.Errorf("source %d (%s): create staging buffer: %w", src.ID(), src.Label(), err)
	}

	p := &PreparedBuffer{
		Source:  src.ID(),
		Buffer:  buf,
		Layout:  layout,
		Format:  format,
		texture: tex,
	}

	r.mu.Lock()
	stale := r.entries[src.ID()]
	r.entries[src.ID()] = p
	r.mu.Unlock()

	if stale != nil {
		stale.Buffer.Release()
	}
	return p, nil
}

func (r *registry) Sync(src *Source) (*PreparedBuffer, error) {
	tex := src.Texture()
	if tex == nil {
		return nil, fmt.Errorf("source %d (%s): %w", src.ID(), src.Label(), ErrSourceTextureMissing)
	}

	r.mu.RLock()
	p, ok := r.entries[src.ID()]
	r.mu.RUnlock()
	if ok && p.matches(tex) {
		return p, nil
	}
	return r.Prepare(src)
}

func (r *registry) Lookup(id SourceID) (*PreparedBuffer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[id]
	return p, ok
}

func (r *registry) Remove(id SourceID) {
	r.mu.Lock()
	p, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		p.Buffer.Release()
	}
}

func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *registry) Release() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[SourceID]*PreparedBuffer)
	r.mu.Unlock()

	for _, p := range entries {
		p.Buffer.Release()
	}
}
