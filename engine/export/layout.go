package export

// DefaultRowAlignment is the WebGPU copy row-pitch alignment (COPY_BYTES_PER_ROW_ALIGNMENT).
const DefaultRowAlignment uint32 = 256

// AlignCopyBytesPerRow rounds bytesPerRow up to the smallest multiple of alignment.
// An alignment of 0 or 1 leaves the value unchanged.
//
// Parameters:
//   - bytesPerRow: the tightly packed row size in bytes
//   - alignment: the device's required copy row alignment in bytes
//
// Returns:
//   - uint32: the padded row size in bytes
func AlignCopyBytesPerRow(bytesPerRow, alignment uint32) uint32 {
	if alignment <= 1 {
		return bytesPerRow
	}
	return (bytesPerRow + alignment - 1) / alignment * alignment
}

// RowLayout describes how one texture's rows are laid out in a staging buffer.
type RowLayout struct {
	Width             uint32
	Height            uint32
	BytesPerRow       uint32
	PaddedBytesPerRow uint32
}

// NewRowLayout computes the row layout for a texture of the given extent and texel size.
//
// Parameters:
//   - width: texture width in pixels
//   - height: texture height in pixels
//   - bytesPerPixel: size of one texel in bytes
//   - alignment: the device's required copy row alignment in bytes
//
// Returns:
//   - RowLayout: the computed layout
func NewRowLayout(width, height, bytesPerPixel, alignment uint32) RowLayout {
	bpr := width * bytesPerPixel
	return RowLayout{
		Width:             width,
		Height:            height,
		BytesPerRow:       bpr,
		PaddedBytesPerRow: AlignCopyBytesPerRow(bpr, alignment),
	}
}

// Size returns the staging buffer size needed for the layout.
func (l RowLayout) Size() uint64 {
	return uint64(l.PaddedBytesPerRow) * uint64(l.Height)
}

// Padded reports whether rows carry trailing alignment padding.
func (l RowLayout) Padded() bool {
	return l.PaddedBytesPerRow != l.BytesPerRow
}
