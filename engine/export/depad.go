package export

// Depad strips per-row alignment padding from raw and returns a tightly packed buffer of
// exactly bytesPerRow*height bytes. When the pitches are equal raw is returned as-is,
// truncated to the packed size, without copying.
//
// Parameters:
//   - raw: the mapped bytes, at least paddedBytesPerRow*(height-1)+bytesPerRow long
//   - bytesPerRow: the tightly packed row size
//   - paddedBytesPerRow: the row pitch used by the GPU copy
//   - height: the number of rows
//
// Returns:
//   - []byte: the tightly packed rows in order
func Depad(raw []byte, bytesPerRow, paddedBytesPerRow, height uint32) []byte {
	packed := int(bytesPerRow) * int(height)
	if bytesPerRow == paddedBytesPerRow {
		return raw[:packed]
	}

	out := make([]byte, packed)
	src, dst := 0, 0
	for row := uint32(0); row < height; row++ {
		copy(out[dst:dst+int(bytesPerRow)], raw[src:src+int(bytesPerRow)])
		src += int(paddedBytesPerRow)
		dst += int(bytesPerRow)
	}
	return out
}

// Normalize depads raw according to layout and converts it in place to RGBA channel order.
//
// Parameters:
//   - raw: the owned copy of the mapped staging buffer
//   - layout: the row layout the copy was issued with
//   - format: the source texture format
//
// Returns:
//   - *PixelBuffer: the dense RGBA frame
func Normalize(raw []byte, layout RowLayout, format PixelFormat) *PixelBuffer {
	pix := Depad(raw, layout.BytesPerRow, layout.PaddedBytesPerRow, layout.Height)
	if format.SwapsRedBlue() {
		for i := 0; i+3 < len(pix); i += 4 {
			pix[i], pix[i+2] = pix[i+2], pix[i]
		}
	}
	return &PixelBuffer{Width: layout.Width, Height: layout.Height, Pix: pix}
}
