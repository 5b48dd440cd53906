package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-export/engine/export"
	"github.com/cogentcore/webgpu/wgpu"
)

// RenderTarget is a single-sampled color texture a camera renders into. It can be copied out,
// so it doubles as an export texture.
type RenderTarget interface {
	export.WGPUTexture

	// Label returns the target's debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// TextureFormat returns the wgpu format of the target.
	//
	// Returns:
	//   - wgpu.TextureFormat: the texture format
	TextureFormat() wgpu.TextureFormat

	// View returns the view used as the render pass color attachment or resolve target.
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view
	View() *wgpu.TextureView
}

type renderTarget struct {
	mu      sync.RWMutex
	label   string
	width   uint32
	height  uint32
	format  wgpu.TextureFormat
	res     *targetResources
	backend RendererBackend
}

var _ RenderTarget = &renderTarget{}

func newRenderTarget(backend RendererBackend, label string, width, height uint32, format wgpu.TextureFormat) (*renderTarget, error) {
	res, err := backend.CreateTarget(label, width, height, format)
	if err != nil {
		return nil, err
	}
	return &renderTarget{
		label:   label,
		width:   width,
		height:  height,
		format:  format,
		res:     res,
		backend: backend,
	}, nil
}

func (t *renderTarget) Label() string {
	return t.label
}

func (t *renderTarget) Width() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.width
}

func (t *renderTarget) Height() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.height
}

func (t *renderTarget) Format() export.PixelFormat {
	return export.PixelFormatFromWGPU(t.format)
}

func (t *renderTarget) TextureFormat() wgpu.TextureFormat {
	return t.format
}

func (t *renderTarget) WGPUTexture() *wgpu.Texture {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.res == nil {
		return nil
	}
	return t.res.texture
}

func (t *renderTarget) View() *wgpu.TextureView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.res == nil {
		return nil
	}
	return t.res.view
}

func (t *renderTarget) resources() *targetResources {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.res
}

// resize reallocates the target at the new size. The old texture is released; work already
// submitted against it keeps it alive on the GPU side.
func (t *renderTarget) resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	t.mu.RLock()
	same := width == t.width && height == t.height
	released := t.res == nil
	t.mu.RUnlock()
	if same || released {
		return nil
	}

	res, err := t.backend.CreateTarget(t.label, width, height, t.format)
	if err != nil {
		return err
	}
	t.mu.Lock()
	old := t.res
	t.res = res
	t.width = width
	t.height = height
	t.mu.Unlock()
	old.release()
	return nil
}

// release frees the GPU resources. A released target reports a zero extent, so export
// sources still pointing at it are treated as not ready.
func (t *renderTarget) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.res != nil {
		t.res.release()
		t.res = nil
	}
	t.width = 0
	t.height = 0
}
