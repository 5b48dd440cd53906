package export

import (
	"sync"
	"sync/atomic"
)

// SourceID uniquely identifies an export source within the process.
type SourceID uint64

var nextSourceID atomic.Uint64

// Source designates one render target for readback. The texture may be swapped at any time
// (for example on resize) and may be nil until the host creates it.
type Source struct {
	id    SourceID
	label string

	mu      sync.RWMutex
	texture Texture
}

// NewSource creates a Source with a fresh id.
//
// Parameters:
//   - label: a human readable name, used in logs and output paths
//   - texture: the render target to export, or nil if it does not exist yet
//
// Returns:
//   - *Source: the new source
func NewSource(label string, texture Texture) *Source {
	return &Source{
		id:      SourceID(nextSourceID.Add(1)),
		label:   label,
		texture: texture,
	}
}

// ID returns the source's unique id.
func (s *Source) ID() SourceID {
	return s.id
}

// Label returns the source's label.
func (s *Source) Label() string {
	return s.label
}

// Texture returns the current backing texture, or nil.
func (s *Source) Texture() Texture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.texture
}

// SetTexture replaces the backing texture. The registry re-prepares the staging buffer on
// the next copy stage.
func (s *Source) SetTexture(texture Texture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texture = texture
}
