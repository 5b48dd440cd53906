package common

import "math"

// HSVToRGB converts a hue/saturation/value triple to linear RGB components in [0, 1].
//
// Parameters:
//   - h: hue in degrees; values outside [0, 360) wrap
//   - s: saturation, clamped to [0, 1]
//   - v: value, clamped to [0, 1]
//
// Returns:
//   - r, g, b: the RGB components
func HSVToRGB(h, s, v float64) (r, g, b float64) {
	s = Clamp(s, 0, 1)
	v = Clamp(v, 0, 1)
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}
