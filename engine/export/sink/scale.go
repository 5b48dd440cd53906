package sink

import (
	"image"

	"golang.org/x/image/draw"
)

// fitWithin scales img down so neither side exceeds maxDimension, keeping the aspect ratio.
// img is returned as is when maxDimension <= 0 or it already fits.
func fitWithin(img *image.RGBA, maxDimension int, interp draw.Interpolator) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDimension <= 0 || (w <= maxDimension && h <= maxDimension) {
		return img
	}

	nw, nh := maxDimension, maxDimension
	if w >= h {
		nh = max(1, h*maxDimension/w)
	} else {
		nw = max(1, w*maxDimension/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	interp.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
