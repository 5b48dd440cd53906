package renderer

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-export/engine/export"
	"github.com/Carmen-Shannon/oxy-export/engine/graph"
	"github.com/Carmen-Shannon/oxy-export/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultClearColor is the camera clear color used unless WithDefaultClearColor overrides it.
var DefaultClearColor = wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	cameras      []*camera
	pendingSize  *[2]int
	exportDevice export.Device

	backendType RendererBackendType
	backend     RendererBackend

	defaultFormat     wgpu.TextureFormat
	defaultClearColor wgpu.Color

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
}

// Renderer defines the interface for the rendering system.
//
// The Renderer owns the GPU device and a set of cameras, each rendering into its own offscreen
// target. It contributes the camera driver node to a render graph; nodes that consume camera
// output (such as the export copy stage) are ordered after it. When created with a window, one
// camera can be previewed on the window surface.
type Renderer interface {
	// AddCamera creates a camera with a new render target.
	//
	// Parameters:
	//   - label: the camera and target label
	//   - width: the target width in pixels, ignored for cameras following the surface
	//   - height: the target height in pixels, ignored for cameras following the surface
	//   - options: functional options for the camera
	//
	// Returns:
	//   - Camera: the new camera
	//   - error: an error if the size is invalid or the target cannot be allocated
	AddCamera(label string, width, height int, options ...CameraBuilderOption) (Camera, error)

	// RemoveCamera removes a camera and releases its target. Export sources built from the
	// target are skipped as not ready until they are given a new texture.
	//
	// Parameters:
	//   - c: the camera to remove
	RemoveCamera(c Camera)

	// Cameras returns the cameras in creation order.
	//
	// Returns:
	//   - []Camera: the cameras
	Cameras() []Camera

	// Register adds the camera driver node to the graph under graph.CameraDriverNode.
	//
	// Parameters:
	//   - g: the render graph
	//
	// Returns:
	//   - error: an error if the node name is taken
	Register(g graph.RenderGraph) error

	// RenderCameras clears every active camera target and, if a preview camera exists,
	// copies it to the surface. All work is submitted in one command buffer.
	//
	// Parameters:
	//   - frame: the current frame
	//
	// Returns:
	//   - error: an error if the frame could not be encoded or submitted
	RenderCameras(frame graph.Frame) error

	// Resize reconfigures the surface and resizes cameras following it. The change is applied
	// at the start of the next RenderCameras call on the render goroutine.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height int)

	// SetPresentMode changes the surface present mode. The surface is reconfigured at the start
	// of the next RenderCameras call.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Present presents the preview image recorded by the last RenderCameras call.
	Present()

	// ExportDevice returns the device wrapper the export pipeline copies and maps through.
	//
	// Returns:
	//   - export.Device: the export device
	ExportDevice() export.Device

	// Device returns the wgpu device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Queue returns the wgpu queue all frame work is submitted to.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue

	// Release releases every camera target and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer. With a nil window the renderer is headless.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - win: the window to present to, or nil
//   - options: functional options for the renderer
//
// Returns:
//   - Renderer: the new renderer
//   - error: an error if no adapter or device is available
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:                &sync.Mutex{},
		backendType:       backendType,
		defaultFormat:     wgpu.TextureFormatRGBA8UnormSrgb,
		defaultClearColor: DefaultClearColor,
	}

	for _, opt := range options {
		opt(r)
	}

	msaa := MSAAOff
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	var surfaceDescriptor *wgpu.SurfaceDescriptor
	if win != nil {
		surfaceDescriptor = win.SurfaceDescriptor()
	}

	var err error
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(surfaceDescriptor, r.forceFallbackAdapter, msaa)
	}
	if err != nil {
		return nil, err
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if win != nil {
		r.backend.ConfigureSurface(win.Width(), win.Height())
	}
	if format, ok := r.backend.SurfaceFormat(); ok {
		log.Printf("[Renderer] %s backend, surface %v, msaa %s", backendType, format, msaa)
	} else {
		log.Printf("[Renderer] %s backend, headless, msaa %s", backendType, msaa)
	}
	r.exportDevice = export.NewWGPUDevice(r.backend.Device(), r.backend.Queue())
	return r, nil
}

func (r *renderer) AddCamera(label string, width, height int, options ...CameraBuilderOption) (Camera, error) {
	c := &camera{
		label:      label,
		clearColor: r.defaultClearColor,
		active:     true,
		format:     r.defaultFormat,
	}
	for _, opt := range options {
		opt(c)
	}

	if c.present {
		format, ok := r.backend.SurfaceFormat()
		if ok {
			c.format = format
			c.followSurface = true
		} else {
			c.present = false
		}
	}
	if c.followSurface {
		if w, h := r.backend.SurfaceSize(); w > 0 && h > 0 {
			width, height = int(w), int(h)
		}
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("camera %q: invalid size %dx%d", label, width, height)
	}

	target, err := newRenderTarget(r.backend, label, uint32(width), uint32(height), c.format)
	if err != nil {
		return nil, err
	}
	c.target = target

	r.mu.Lock()
	r.cameras = append(r.cameras, c)
	r.mu.Unlock()
	return c, nil
}

func (r *renderer) RemoveCamera(c Camera) {
	r.mu.Lock()
	idx := slices.IndexFunc(r.cameras, func(cam *camera) bool { return Camera(cam) == c })
	if idx < 0 {
		r.mu.Unlock()
		return
	}
	cam := r.cameras[idx]
	r.cameras = slices.Delete(r.cameras, idx, idx+1)
	r.mu.Unlock()

	cam.target.release()
}

func (r *renderer) Cameras() []Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Camera, len(r.cameras))
	for i, c := range r.cameras {
		out[i] = c
	}
	return out
}

func (r *renderer) Register(g graph.RenderGraph) error {
	return g.AddNode(graph.CameraDriverNode, graph.NodeFunc(r.RenderCameras))
}

func (r *renderer) RenderCameras(frame graph.Frame) error {
	r.mu.Lock()
	pending := r.pendingSize
	r.pendingSize = nil
	cameras := slices.Clone(r.cameras)
	r.mu.Unlock()

	if pending != nil {
		r.applyResize(cameras, pending[0], pending[1])
	}

	var active []*camera
	for _, c := range cameras {
		if c.Active() {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return nil
	}

	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	var preview *camera
	for _, c := range active {
		r.backend.ClearTarget(c.target.resources(), c.ClearColor())
		if preview == nil && c.present {
			preview = c
		}
	}
	if preview != nil {
		t := preview.target
		if err := r.backend.BlitToSurface(t.resources(), t.Width(), t.Height()); err != nil {
			log.Printf("[Renderer] frame %d: preview skipped: %v", frame.Number, err)
		}
	}
	return r.backend.EndFrame()
}

func (r *renderer) applyResize(cameras []*camera, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.backend.ConfigureSurface(width, height)

	var errs []error
	for _, c := range cameras {
		if !c.followSurface {
			continue
		}
		if err := c.target.resize(uint32(width), uint32(height)); err != nil {
			errs = append(errs, fmt.Errorf("camera %q: %w", c.label, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Printf("[Renderer] resize to %dx%d: %v", width, height, err)
	}
}

func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingSize = &[2]int{width, height}
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
	if w, h := r.backend.SurfaceSize(); w > 0 && h > 0 {
		r.Resize(int(w), int(h))
	}
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) ExportDevice() export.Device {
	return r.exportDevice
}

func (r *renderer) Device() *wgpu.Device {
	return r.backend.Device()
}

func (r *renderer) Queue() *wgpu.Queue {
	return r.backend.Queue()
}

func (r *renderer) Release() {
	r.mu.Lock()
	cameras := r.cameras
	r.cameras = nil
	r.mu.Unlock()

	for _, c := range cameras {
		c.target.release()
	}
	r.backend.Release()
}
