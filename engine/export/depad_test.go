package export

import (
	"bytes"
	"math/rand"
	"testing"
)

// padRows builds a padded buffer from packed rows, filling padding with filler.
func padRows(packed []byte, bytesPerRow, paddedBytesPerRow, height uint32, filler byte) []byte {
	raw := bytes.Repeat([]byte{filler}, int(paddedBytesPerRow*height))
	for row := uint32(0); row < height; row++ {
		copy(raw[row*paddedBytesPerRow:], packed[row*bytesPerRow:(row+1)*bytesPerRow])
	}
	return raw
}

func TestDepadScenario4x4(t *testing.T) {
	const bytesPerRow, padded, height = 16, 256, 4

	raw := make([]byte, padded*height)
	for r := 0; r < height; r++ {
		row := raw[r*padded : (r+1)*padded]
		for i := range row {
			if i < bytesPerRow {
				row[i] = byte(r)
			} else {
				row[i] = 0xFF
			}
		}
	}

	got := Depad(raw, bytesPerRow, padded, height)
	if len(got) != 64 {
		t.Fatalf("len = %d, want 64", len(got))
	}
	for r := 0; r < height; r++ {
		want := bytes.Repeat([]byte{byte(r)}, bytesPerRow)
		if !bytes.Equal(got[r*bytesPerRow:(r+1)*bytesPerRow], want) {
			t.Errorf("row %d = %v, want %v", r, got[r*bytesPerRow:(r+1)*bytesPerRow], want)
		}
	}
}

func TestDepadRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		width := uint32(rng.Intn(300) + 1)
		height := uint32(rng.Intn(40) + 1)
		bytesPerRow := width * 4
		padded := AlignCopyBytesPerRow(bytesPerRow, 256) + uint32(rng.Intn(2))*256

		packed := make([]byte, bytesPerRow*height)
		rng.Read(packed)
		raw := padRows(packed, bytesPerRow, padded, height, 0xFF)

		got := Depad(raw, bytesPerRow, padded, height)
		if !bytes.Equal(got, packed) {
			t.Fatalf("width %d height %d padded %d: round trip mismatch", width, height, padded)
		}
	}
}

func TestDepadNoOp(t *testing.T) {
	raw := make([]byte, 256*3)
	for i := range raw {
		raw[i] = byte(i)
	}

	got := Depad(raw, 256, 256, 3)
	if !bytes.Equal(got, raw) {
		t.Fatal("no-op depad changed content")
	}
	if &got[0] != &raw[0] {
		t.Error("no-op depad copied the buffer")
	}
}

func TestNormalizeSwizzlesBGRA(t *testing.T) {
	layout := NewRowLayout(2, 1, 4, 256)
	raw := make([]byte, layout.Size())
	copy(raw, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	pb := Normalize(raw, layout, PixelFormatBGRA8UnormSrgb)
	want := []byte{3, 2, 1, 4, 7, 6, 5, 8}
	if !bytes.Equal(pb.Pix, want) {
		t.Errorf("Pix = %v, want %v", pb.Pix, want)
	}
	if pb.Width != 2 || pb.Height != 1 || pb.Stride() != 8 {
		t.Errorf("dims = %dx%d stride %d, want 2x1 stride 8", pb.Width, pb.Height, pb.Stride())
	}
}

func TestNormalizeKeepsRGBA(t *testing.T) {
	layout := NewRowLayout(1, 2, 4, 256)
	raw := make([]byte, layout.Size())
	copy(raw, []byte{1, 2, 3, 4})
	copy(raw[256:], []byte{5, 6, 7, 8})

	pb := Normalize(raw, layout, PixelFormatRGBA8Unorm)
	if want := []byte{1, 2, 3, 4, 5, 6, 7, 8}; !bytes.Equal(pb.Pix, want) {
		t.Errorf("Pix = %v, want %v", pb.Pix, want)
	}
}

func TestPixelBufferImageAliases(t *testing.T) {
	pb := NewPixelBuffer(2, 2)
	img := pb.Image()
	img.Pix[0] = 42
	if pb.Pix[0] != 42 {
		t.Error("Image() does not alias Pix")
	}

	clone := pb.Clone()
	clone.Pix[0] = 7
	if pb.Pix[0] != 42 {
		t.Error("Clone() shares Pix with the original")
	}
}
