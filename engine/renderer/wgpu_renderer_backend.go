package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// targetResources holds the GPU objects backing one camera target.
type targetResources struct {
	texture     *wgpu.Texture
	view        *wgpu.TextureView
	msaaTexture *wgpu.Texture
	msaaView    *wgpu.TextureView
}

func (t *targetResources) release() {
	if t.msaaView != nil {
		t.msaaView.Release()
	}
	if t.msaaTexture != nil {
		t.msaaTexture.Release()
	}
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface // nil when headless

	surfaceFormat *wgpu.TextureFormat
	surfaceWidth  uint32
	surfaceHeight uint32

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	sampleCount MSAASampleCount

	// Frame state for batching every camera pass into a single GPU submission
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
}

type wgpuRendererBackend interface {
	// ConfigureSurface (re)configures the presentation surface. No-op when headless.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the present mode used the next time the surface is configured.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SurfaceFormat returns the configured surface format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format
	//   - bool: false when headless or not yet configured
	SurfaceFormat() (wgpu.TextureFormat, bool)

	// SurfaceSize returns the configured surface size, zero when headless.
	//
	// Returns:
	//   - uint32: the surface width
	//   - uint32: the surface height
	SurfaceSize() (uint32, uint32)

	// CreateTarget allocates a copyable color target and, with MSAA on, its multisampled attachment.
	//
	// Parameters:
	//   - label: the debug label
	//   - width: the width in pixels
	//   - height: the height in pixels
	//   - format: the color format
	//
	// Returns:
	//   - *targetResources: the allocated resources
	//   - error: an error if texture or view creation fails
	CreateTarget(label string, width, height uint32, format wgpu.TextureFormat) (*targetResources, error)

	// BeginFrame opens the frame's command encoder.
	//
	// Returns:
	//   - error: an error if a frame is already open or the encoder cannot be created
	BeginFrame() error

	// ClearTarget records a render pass clearing the target to color.
	//
	// Parameters:
	//   - target: the target to clear
	//   - color: the clear color
	ClearTarget(target *targetResources, color wgpu.Color)

	// BlitToSurface acquires the surface image and records a copy of target into it.
	// Sizes and formats must match the surface configuration.
	//
	// Parameters:
	//   - target: the source target
	//   - width: the target width
	//   - height: the target height
	//
	// Returns:
	//   - error: an error if the surface image cannot be acquired or the copy is invalid
	BlitToSurface(target *targetResources, width, height uint32) error

	// EndFrame finishes and submits the frame's commands.
	//
	// Returns:
	//   - error: an error if encoding failed
	EndFrame() error

	// Present presents the surface image acquired by BlitToSurface, if any.
	Present()

	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface

	// Release releases the device and every backend-owned GPU object.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) (wgpuRendererBackend, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: sampleCount,
	}
	if surfaceDescriptor != nil {
		w.surface = w.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Export Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]
	b.surfaceWidth = uint32(width)
	b.surfaceHeight = uint32(height)

	// CopyDst lets a camera target be copied straight into the swapchain image.
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopyDst,
		Format:      *b.surfaceFormat,
		Width:       b.surfaceWidth,
		Height:      b.surfaceHeight,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() (wgpu.TextureFormat, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surfaceFormat == nil {
		return 0, false
	}
	return *b.surfaceFormat, true
}

func (b *wgpuRendererBackendImpl) SurfaceSize() (uint32, uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceWidth, b.surfaceHeight
}

func (b *wgpuRendererBackendImpl) CreateTarget(label string, width, height uint32, format wgpu.TextureFormat) (*targetResources, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create target texture %q: %w", label, err)
	}
	res := &targetResources{texture: tex}
	res.view, err = tex.CreateView(nil)
	if err != nil {
		res.release()
		return nil, fmt.Errorf("failed to create target view %q: %w", label, err)
	}

	if b.sampleCount.Enabled() {
		count := uint32(b.sampleCount)
		res.msaaTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         label + " MSAA",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        format,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			res.release()
			return nil, fmt.Errorf("failed to create MSAA texture %q: %w", label, err)
		}
		res.msaaView, err = res.msaaTexture.CreateView(nil)
		if err != nil {
			res.release()
			return nil, fmt.Errorf("failed to create MSAA view %q: %w", label, err)
		}
	}
	return res, nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return errors.New("previous frame not yet submitted")
	}
	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: "Camera Driver Encoder",
	})
	if err != nil {
		return err
	}
	b.frameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) ClearTarget(target *targetResources, color wgpu.Color) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// With MSAA the multisampled attachment is drawn and resolved into the target.
	attachment := wgpu.RenderPassColorAttachment{
		View:       target.view,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: color,
	}
	if target.msaaView != nil {
		attachment.View = target.msaaView
		attachment.ResolveTarget = target.view
		attachment.StoreOp = wgpu.StoreOpDiscard
	}

	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{attachment},
	})
	pass.End()
}

func (b *wgpuRendererBackendImpl) BlitToSurface(target *targetResources, width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return nil
	}
	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}
	if width != b.surfaceWidth || height != b.surfaceHeight {
		return fmt.Errorf("target %dx%d does not match surface %dx%d", width, height, b.surfaceWidth, b.surfaceHeight)
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	err = b.frameEncoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: target.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: surfaceTexture, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	b.frameSurface = surfaceTexture
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return nil
	}
	encoder := b.frameEncoder
	b.frameEncoder = nil
	defer encoder.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		if b.frameSurface != nil {
			b.frameSurface.Release()
			b.frameSurface = nil
		}
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Instance() *wgpu.Instance {
	return b.instance
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
