package sink

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-export/engine/export"
	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// DefaultJPEGQuality is the quality used for .jpg output unless overridden.
const DefaultJPEGQuality = 90

// Encoder writes an image in one file format.
type Encoder func(w io.Writer, img image.Image) error

var pngEncoder = &png.Encoder{CompressionLevel: png.BestSpeed}

// EncoderFor returns the encoder matching the extension of path.
// Supported extensions are .png, .jpg, .jpeg, .webp, .bmp, .tif, .tiff and .tga.
//
// Parameters:
//   - path: the output path or file name
//   - jpegQuality: the quality for JPEG output, 1-100
//
// Returns:
//   - Encoder: the encoder for the extension
//   - error: an error wrapping export.ErrSinkConstruction if the extension is unsupported
func EncoderFor(path string, jpegQuality int) (Encoder, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return pngEncoder.Encode, nil
	case ".jpg", ".jpeg":
		if jpegQuality < 1 || jpegQuality > 100 {
			jpegQuality = DefaultJPEGQuality
		}
		opts := &jpeg.Options{Quality: jpegQuality}
		return func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, opts)
		}, nil
	case ".webp":
		return func(w io.Writer, img image.Image) error {
			return nativewebp.Encode(w, img, nil)
		}, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	case ".tga":
		return tga.Encode, nil
	default:
		return nil, fmt.Errorf("%w: unsupported output extension %q", export.ErrSinkConstruction, ext)
	}
}
