package export

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// WGPUTexture is a Texture backed by a wgpu texture created with TextureUsageCopySrc.
type WGPUTexture interface {
	Texture

	// WGPUTexture returns the underlying wgpu texture, or nil once the texture is released.
	WGPUTexture() *wgpu.Texture
}

// PixelFormatFromWGPU maps a wgpu texture format to the export PixelFormat.
//
// Parameters:
//   - f: the wgpu texture format
//
// Returns:
//   - PixelFormat: the matching format, or PixelFormatUnknown
func PixelFormatFromWGPU(f wgpu.TextureFormat) PixelFormat {
	switch f {
	case wgpu.TextureFormatRGBA8Unorm:
		return PixelFormatRGBA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return PixelFormatRGBA8UnormSrgb
	case wgpu.TextureFormatBGRA8Unorm:
		return PixelFormatBGRA8Unorm
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return PixelFormatBGRA8UnormSrgb
	default:
		return PixelFormatUnknown
	}
}

type wgpuDevice struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue
}

var _ Device = &wgpuDevice{}

// NewWGPUDevice wraps a wgpu device and queue as an export Device.
// The queue must be the one the host submits its render work to so copies are ordered after it.
//
// Parameters:
//   - device: the wgpu device
//   - queue: the device's queue
//
// Returns:
//   - Device: the export device
func NewWGPUDevice(device *wgpu.Device, queue *wgpu.Queue) Device {
	return &wgpuDevice{
		mu:     &sync.Mutex{},
		device: device,
		queue:  queue,
	}
}

func (d *wgpuDevice) RowAlignment() uint32 {
	return DefaultRowAlignment
}

func (d *wgpuDevice) CreateStagingBuffer(label string, size uint64) (StagingBuffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuStagingBuffer{buffer: buf, size: size}, nil
}

func (d *wgpuDevice) CopyTextureToBuffer(copies ...TextureCopy) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: "Export Copy Encoder",
	})
	if err != nil {
		return err
	}
	defer encoder.Release()

	for _, c := range copies {
		tex, ok := c.Source.(WGPUTexture)
		if !ok {
			return fmt.Errorf("%T: %w", c.Source, ErrUnsupportedTexture)
		}
		dst, ok := c.Destination.(*wgpuStagingBuffer)
		if !ok {
			return fmt.Errorf("%T: %w", c.Destination, ErrUnsupportedTexture)
		}
		texture := tex.WGPUTexture()
		if texture == nil {
			return fmt.Errorf("texture released: %w", ErrSourceTextureMissing)
		}

		err := encoder.CopyTextureToBuffer(
			&wgpu.ImageCopyTexture{
				Texture:  texture,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			&wgpu.ImageCopyBuffer{
				Buffer: dst.buffer,
				Layout: wgpu.TextureDataLayout{
					Offset:       0,
					BytesPerRow:  c.Layout.PaddedBytesPerRow,
					RowsPerImage: c.Layout.Height,
				},
			},
			&wgpu.Extent3D{
				Width:              c.Layout.Width,
				Height:             c.Layout.Height,
				DepthOrArrayLayers: 1,
			},
		)
		if err != nil {
			return fmt.Errorf("copy texture to buffer: %w", err)
		}
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (d *wgpuDevice) Poll(wait bool) bool {
	return d.device.Poll(wait, nil)
}

type wgpuStagingBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

func (b *wgpuStagingBuffer) Size() uint64 {
	return b.size
}

func (b *wgpuStagingBuffer) MapRead(callback func(err error)) error {
	return b.buffer.MapAsync(wgpu.MapModeRead, 0, b.size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			callback(fmt.Errorf("map status %v", status))
			return
		}
		callback(nil)
	})
}

func (b *wgpuStagingBuffer) MappedRange() []byte {
	return b.buffer.GetMappedRange(0, uint(b.size))
}

func (b *wgpuStagingBuffer) Unmap() error {
	return b.buffer.Unmap()
}

func (b *wgpuStagingBuffer) Release() {
	b.buffer.Release()
}
