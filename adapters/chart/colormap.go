package chart

import (
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// midpointNormalize maps v from [vmin, vmax] to [0, 1] with the midpoint
// pinned to 0.5, so diverging colormaps stay centered on a meaningful
// value (0 for correlations and slopes, the significance threshold for
// p-value maps) even when the data range is asymmetric.
func midpointNormalize(v, vmin, midpoint, vmax float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v <= vmin {
		return 0
	}
	if v >= vmax {
		return 1
	}
	if v <= midpoint {
		if midpoint == vmin {
			return 0.5
		}
		return 0.5 * (v - vmin) / (midpoint - vmin)
	}
	if vmax == midpoint {
		return 0.5
	}
	return 0.5 + 0.5*(v-midpoint)/(vmax-midpoint)
}

// divergingColor interpolates blue -> white -> vermillion over t in [0, 1]
func divergingColor(t float64) drawing.Color {
	low := drawing.ColorFromHex("0072B2")
	high := drawing.ColorFromHex("D55E00")
	white := drawing.ColorWhite

	if t <= 0.5 {
		return lerpColor(low, white, t*2)
	}
	return lerpColor(white, high, (t-0.5)*2)
}

func lerpColor(a, b drawing.Color, t float64) drawing.Color {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return drawing.Color{
		R: lerp(a.R, b.R),
		G: lerp(a.G, b.G),
		B: lerp(a.B, b.B),
		A: 255,
	}
}
