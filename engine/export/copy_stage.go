package export

import (
	"errors"
	"fmt"
)

// CopyStage issues the per-frame texture-to-buffer copies for a set of sources.
type CopyStage struct {
	device   Device
	registry Registry
}

// NewCopyStage creates a CopyStage that prepares buffers through registry and records copies on device.
//
// Parameters:
//   - device: the GPU device to submit copies to
//   - registry: the registry holding prepared staging buffers
//
// Returns:
//   - *CopyStage: the new copy stage
func NewCopyStage(device Device, registry Registry) *CopyStage {
	return &CopyStage{device: device, registry: registry}
}

// Run prepares (or re-prepares after a resize) each source's staging buffer and submits one
// copy per source whose texture exists. Each source is submitted on its own, so a rejected copy
// only costs that source its frame. Sources without a texture or whose buffer cannot be
// prepared are skipped for this frame.
//
// Parameters:
//   - sources: the sources to copy
//
// Returns:
//   - []*PreparedBuffer: the buffers that received this frame's copy
//   - error: the joined copy errors of the sources that were dropped, or nil
func (c *CopyStage) Run(sources []*Source) ([]*PreparedBuffer, error) {
	prepared := make([]*PreparedBuffer, 0, len(sources))
	var errs []error

	for _, src := range sources {
		tex := src.Texture()
		if tex == nil {
			Logger().Debug("export: source not ready", "source", src.ID(), "label", src.Label())
			continue
		}
		p, err := c.registry.Sync(src)
		if err != nil {
			if errors.Is(err, ErrSourceTextureMissing) {
				Logger().Debug("export: source not ready", "source", src.ID(), "label", src.Label())
			} else {
				Logger().Warn("export: prepare staging buffer", "source", src.ID(), "label", src.Label(), "err", err)
			}
			continue
		}

		err = c.device.CopyTextureToBuffer(TextureCopy{Source: p.texture, Destination: p.Buffer, Layout: p.Layout})
		if err != nil {
			if errors.Is(err, ErrSourceTextureMissing) {
				Logger().Debug("export: source not ready", "source", src.ID(), "label", src.Label())
				continue
			}
			errs = append(errs, fmt.Errorf("source %d (%s): %w", src.ID(), src.Label(), err))
			continue
		}
		prepared = append(prepared, p)
	}
	return prepared, errors.Join(errs...)
}
