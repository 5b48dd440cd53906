package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets how preview frames are delivered to the window surface.
// Has no effect when the renderer is headless.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the sample count of camera passes. Targets stay single-sampled so they can be
// exported; the multisampled attachment resolves into them. When not specified, MSAA is off.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer requests the fallback (software) adapter. Needs a software Vulkan
// ICD such as lavapipe or SwiftShader; intended for headless export on machines without a GPU.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithDefaultTargetFormat sets the color format of camera targets created without
// WithTargetFormat. Defaults to RGBA8UnormSrgb. Exportable formats are the 8-bit RGBA and
// BGRA variants.
//
// Parameters:
//   - format: the default target format
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithDefaultTargetFormat(format wgpu.TextureFormat) RendererBuilderOption {
	return func(r *renderer) {
		r.defaultFormat = format
	}
}

// WithDefaultClearColor sets the clear color of cameras created without WithClearColor.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithDefaultClearColor(color wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.defaultClearColor = color
	}
}
