package sink

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-export/engine/export"
	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// decoders is keyed by extension. TGA has no magic number, so image.Decode cannot sniff it.
var decoders = map[string]func(io.Reader) (image.Image, error){
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".webp": nativewebp.Decode,
	".bmp":  bmp.Decode,
	".tiff": tiff.Decode,
	".tga":  tga.Decode,
}

// testFrame returns a frame whose pixel (x, y) is (x*10, y*10, number, 255).
func testFrame(number uint64, width, height uint32) export.Frame {
	pb := export.NewPixelBuffer(width, height)
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			i := int(y)*pb.Stride() + int(x)*4
			pb.Pix[i+0] = byte(x * 10)
			pb.Pix[i+1] = byte(y * 10)
			pb.Pix[i+2] = byte(number)
			pb.Pix[i+3] = 255
		}
	}
	return export.Frame{Number: number, Source: 1, Label: "cam", Binding: "disk", Pixels: pb}
}

func decodeFile(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	img, err := decoders[strings.ToLower(filepath.Ext(path))](f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}

func TestDiskSinkLosslessFormats(t *testing.T) {
	for _, ext := range []string{"png", "webp", "bmp", "tiff", "tga"} {
		t.Run(ext, func(t *testing.T) {
			dir := t.TempDir()
			s, err := NewDiskSink(filepath.Join(dir, "{source}", "{frame:04}."+ext))
			if err != nil {
				t.Fatalf("NewDiskSink failed: %v", err)
			}
			defer s.Close()

			if err := s.Consume(testFrame(3, 5, 4)); err != nil {
				t.Fatalf("Consume failed: %v", err)
			}
			img := decodeFile(t, filepath.Join(dir, "cam", "0003."+ext))
			if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 4 {
				t.Fatalf("decoded size %v, want 5x4", img.Bounds())
			}
			r, g, b, a := img.At(2, 1).RGBA()
			if r>>8 != 20 || g>>8 != 10 || b>>8 != 3 || a>>8 != 255 {
				t.Errorf("pixel (2,1) = %d %d %d %d, want 20 10 3 255", r>>8, g>>8, b>>8, a>>8)
			}
		})
	}
}

func TestDiskSinkJPEG(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskSink(filepath.Join(dir, "out.jpg"), WithJPEGQuality(75))
	if err != nil {
		t.Fatalf("NewDiskSink failed: %v", err)
	}
	if err := s.Consume(testFrame(1, 16, 16)); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if img := decodeFile(t, filepath.Join(dir, "out.jpg")); img.Bounds().Dx() != 16 {
		t.Errorf("decoded width %d, want 16", img.Bounds().Dx())
	}
}

func TestDiskSinkFixedPathOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.png")
	s, _ := NewDiskSink(path)

	_ = s.Consume(testFrame(1, 2, 2))
	_ = s.Consume(testFrame(2, 2, 2))

	_, _, b, _ := decodeFile(t, path).At(0, 0).RGBA()
	if b>>8 != 2 {
		t.Errorf("fixed path holds frame %d, want 2", b>>8)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the output file", len(entries))
	}
	if st := s.Stats(); st.Written != 2 {
		t.Errorf("Written = %d, want 2", st.Written)
	}
}

func TestDiskSinkDownscale(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewDiskSink(filepath.Join(dir, "small.png"), WithMaxDimension(8))
	_ = s.Consume(testFrame(1, 32, 16))

	b := decodeFile(t, filepath.Join(dir, "small.png")).Bounds()
	if b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("downscaled size %dx%d, want 8x4", b.Dx(), b.Dy())
	}
}

func TestDiskSinkUnsupportedExtension(t *testing.T) {
	_, err := NewDiskSink(filepath.Join(t.TempDir(), "out.gif"))
	if !errors.Is(err, export.ErrSinkConstruction) {
		t.Fatalf("err = %v, want ErrSinkConstruction", err)
	}
	_, err = NewDiskSink("out/{nope}.png")
	if !errors.Is(err, export.ErrSinkConstruction) {
		t.Fatalf("bad template err = %v, want ErrSinkConstruction", err)
	}
}

func TestDiskSinkEncodeFailure(t *testing.T) {
	boom := errors.New("encoder broke")
	s, _ := NewDiskSink(filepath.Join(t.TempDir(), "x.png"),
		WithEncoder(func(io.Writer, image.Image) error { return boom }))

	err := s.Consume(testFrame(1, 2, 2))
	if !errors.Is(err, export.ErrSinkDispatch) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want dispatch failure wrapping the encoder error", err)
	}
	if st := s.Stats(); st.Failed != 1 {
		t.Errorf("Failed = %d, want 1", st.Failed)
	}
}

func TestDiskSinkAsync(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskSink(filepath.Join(dir, "{frame:03}.png"), WithWorkers(2), WithBacklog(64))
	if err != nil {
		t.Fatalf("NewDiskSink failed: %v", err)
	}

	for n := uint64(1); n <= 10; n++ {
		f := testFrame(n, 4, 4)
		if err := s.Consume(f); err != nil {
			t.Fatalf("Consume failed: %v", err)
		}
		// The exporter reuses its buffer after Consume returns.
		clear(f.Pixels.Pix)
	}
	s.Flush()

	for n := 1; n <= 10; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%03d.png", n))
		_, _, b, _ := decodeFile(t, path).At(1, 1).RGBA()
		if int(b>>8) != n {
			t.Errorf("%s holds blue %d, want %d", path, b>>8, n)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Consume(testFrame(11, 4, 4)); !errors.Is(err, export.ErrSinkDispatch) {
		t.Errorf("Consume after Close err = %v", err)
	}
}

func TestDiskSinkAsyncDropsWhenBacklogFull(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var encoded int
	s, _ := NewDiskSink(filepath.Join(t.TempDir(), "{frame}.png"),
		WithWorkers(1),
		WithBacklog(2),
		WithEncoder(func(w io.Writer, img image.Image) error {
			<-release
			mu.Lock()
			encoded++
			mu.Unlock()
			_, err := io.Copy(w, bytes.NewReader([]byte("x")))
			return err
		}))

	for n := uint64(1); n <= 5; n++ {
		_ = s.Consume(testFrame(n, 2, 2))
	}
	close(release)
	s.Flush()

	st := s.Stats()
	if st.Written != 2 || st.Dropped != 3 {
		t.Errorf("stats = %+v, want 2 written 3 dropped", st)
	}
	mu.Lock()
	defer mu.Unlock()
	if encoded != 2 {
		t.Errorf("encoded %d frames, want 2", encoded)
	}
	_ = s.Close()
}
