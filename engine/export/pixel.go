package export

import (
	"fmt"
	"image"
)

// PixelFormat identifies the texel layout of an exportable texture.
type PixelFormat int

const (
	// PixelFormatUnknown is any format the export pipeline cannot normalize.
	PixelFormatUnknown PixelFormat = iota

	// PixelFormatRGBA8Unorm is 8-bit RGBA with linear encoding.
	PixelFormatRGBA8Unorm

	// PixelFormatRGBA8UnormSrgb is 8-bit RGBA with sRGB encoding. This is the output format.
	PixelFormatRGBA8UnormSrgb

	// PixelFormatBGRA8Unorm is 8-bit BGRA with linear encoding, common for swapchain surfaces.
	PixelFormatBGRA8Unorm

	// PixelFormatBGRA8UnormSrgb is 8-bit BGRA with sRGB encoding.
	PixelFormatBGRA8UnormSrgb
)

// OutputBytesPerPixel is the size of one texel in every PixelBuffer handed to consumers.
const OutputBytesPerPixel = 4

// BytesPerPixel returns the texel size of the format, or 0 for unsupported formats.
func (f PixelFormat) BytesPerPixel() uint32 {
	switch f {
	case PixelFormatRGBA8Unorm, PixelFormatRGBA8UnormSrgb, PixelFormatBGRA8Unorm, PixelFormatBGRA8UnormSrgb:
		return 4
	default:
		return 0
	}
}

// Supported reports whether textures of this format can be exported.
func (f PixelFormat) Supported() bool {
	return f.BytesPerPixel() == OutputBytesPerPixel
}

// SwapsRedBlue reports whether the format stores blue in the first channel.
func (f PixelFormat) SwapsRedBlue() bool {
	return f == PixelFormatBGRA8Unorm || f == PixelFormatBGRA8UnormSrgb
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA8Unorm:
		return "rgba8unorm"
	case PixelFormatRGBA8UnormSrgb:
		return "rgba8unorm-srgb"
	case PixelFormatBGRA8Unorm:
		return "bgra8unorm"
	case PixelFormatBGRA8UnormSrgb:
		return "bgra8unorm-srgb"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// PixelBuffer is a tightly packed 8-bit RGBA frame, display-referred, one sample per pixel.
//
// A PixelBuffer handed to a consumer is shared read-only with every other consumer bound to
// the same source and is only valid for the duration of the call. Use Clone to retain it.
type PixelBuffer struct {
	Width  uint32
	Height uint32
	Pix    []byte
}

// NewPixelBuffer allocates a zeroed buffer of the given dimensions.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//
// Returns:
//   - *PixelBuffer: the allocated buffer
func NewPixelBuffer(width, height uint32) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, int(width)*int(height)*OutputBytesPerPixel),
	}
}

// Stride returns the number of bytes between the starts of consecutive rows (always Width*4).
func (b *PixelBuffer) Stride() int {
	return int(b.Width) * OutputBytesPerPixel
}

// Format returns the fixed output format.
func (b *PixelBuffer) Format() PixelFormat {
	return PixelFormatRGBA8UnormSrgb
}

// Clone returns a deep copy that the caller may keep beyond the dispatch callback.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]byte, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Image wraps the buffer as an *image.RGBA without copying. The image aliases Pix.
func (b *PixelBuffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Stride(),
		Rect:   image.Rect(0, 0, int(b.Width), int(b.Height)),
	}
}
