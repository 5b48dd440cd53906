package renderer

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Camera owns an offscreen render target that is cleared and drawn once per frame by the
// camera driver node.
type Camera interface {
	// Label returns the camera's label, also used for its target.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Target returns the camera's render target.
	//
	// Returns:
	//   - RenderTarget: the target
	Target() RenderTarget

	// ClearColor returns the color the target is cleared to each frame.
	//
	// Returns:
	//   - wgpu.Color: the clear color
	ClearColor() wgpu.Color

	// SetClearColor sets the color the target is cleared to from the next frame on.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c wgpu.Color)

	// Active reports whether the camera is rendered.
	//
	// Returns:
	//   - bool: true if active
	Active() bool

	// SetActive enables or disables rendering of the camera.
	//
	// Parameters:
	//   - active: true to render the camera
	SetActive(active bool)

	// FollowsSurface reports whether the target is resized along with the window surface.
	//
	// Returns:
	//   - bool: true if the target follows the surface size
	FollowsSurface() bool

	// Presents reports whether the target is copied to the window surface each frame.
	//
	// Returns:
	//   - bool: true if the camera is the preview camera
	Presents() bool
}

type camera struct {
	mu         sync.RWMutex
	label      string
	target     *renderTarget
	clearColor wgpu.Color
	active     bool

	format        wgpu.TextureFormat
	followSurface bool
	present       bool
}

var _ Camera = &camera{}

func (c *camera) Label() string {
	return c.label
}

func (c *camera) Target() RenderTarget {
	return c.target
}

func (c *camera) ClearColor() wgpu.Color {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clearColor
}

func (c *camera) SetClearColor(color wgpu.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearColor = color
}

func (c *camera) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

func (c *camera) SetActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = active
}

func (c *camera) FollowsSurface() bool {
	return c.followSurface
}

func (c *camera) Presents() bool {
	return c.present
}

// CameraBuilderOption is a functional option applied to a camera created via Renderer.AddCamera.
type CameraBuilderOption func(*camera)

// WithClearColor sets the initial clear color. Defaults to a dark grey.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithClearColor(color wgpu.Color) CameraBuilderOption {
	return func(c *camera) {
		c.clearColor = color
	}
}

// WithTargetFormat sets the target's texture format. Defaults to the renderer's default
// format; preview cameras always use the surface format.
//
// Parameters:
//   - format: the texture format
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithTargetFormat(format wgpu.TextureFormat) CameraBuilderOption {
	return func(c *camera) {
		c.format = format
	}
}

// WithFollowSurface resizes the camera's target whenever the window surface is resized.
//
// Parameters:
//   - follow: true to follow the surface size
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithFollowSurface(follow bool) CameraBuilderOption {
	return func(c *camera) {
		c.followSurface = follow
	}
}

// WithPresent copies the camera's target to the window surface each frame. Implies
// WithFollowSurface. Ignored when the renderer is headless.
//
// Parameters:
//   - present: true to make this the preview camera
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithPresent(present bool) CameraBuilderOption {
	return func(c *camera) {
		c.present = present
	}
}
