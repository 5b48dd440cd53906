package renderer

import "fmt"

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	default:
		return fmt.Sprintf("RendererBackendType(%d)", int(t))
	}
}

// PresentMode controls how preview frames are presented to the window surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank, capping the preview to the display
	// refresh rate.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents immediately. The render loop is then bounded only by the
	// engine frame limit and export readback.
	PresentModeUncapped
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeUncapped:
		return "uncapped"
	default:
		return fmt.Sprintf("PresentMode(%d)", int(m))
	}
}

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Camera targets stay single-sampled so they can be copied out; with MSAA enabled each camera
// renders into a multisampled attachment that resolves into its target.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1). This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8x multisample anti-aliasing. Adapter-dependent.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16x multisample anti-aliasing. Adapter-dependent.
	MSAA16x MSAASampleCount = 16
)

// Enabled reports whether the count selects a multisampled attachment.
func (c MSAASampleCount) Enabled() bool {
	return c > MSAAOff
}

func (c MSAASampleCount) String() string {
	if !c.Enabled() {
		return "off"
	}
	return fmt.Sprintf("%dx", uint32(c))
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
