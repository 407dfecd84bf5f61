// Package motion holds the pointer-motion sample type shared by the endpoint
// and the service, the normalization applied before a sample reaches the
// model, and the sampler that builds samples from a live pointer.
package motion

import (
	"math"

	"github.com/dmitrijs2005/mousetrap/internal/common"
)

// Dot is one motion sample: pointer position and speed averaged over a short
// window, in reference-display coordinates.
type Dot struct {
	X int     `json:"x"`
	Y int     `json:"y"`
	V float64 `json:"v"`
}

const (
	xMax = common.ReferenceWidth - 1
	yMax = common.ReferenceHeight - 1
)

// Rescale maps a position on a w×h display onto the reference display.
func Rescale(x, y, w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		return x, y
	}
	rx := int(float64(x) / float64(w) * common.ReferenceWidth)
	ry := int(float64(y) / float64(h) * common.ReferenceHeight)
	return rx, ry
}

// Speed returns the pointer speed in reference pixels per second.
func Speed(x0, y0, x1, y1 int, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Hypot(float64(x1-x0), float64(y1-y0)) / seconds
}

// MaxSpeed returns the largest V in dots, or 0 for an empty slice.
func MaxSpeed(dots []Dot) float64 {
	var m float64
	for _, d := range dots {
		if d.V > m {
			m = d.V
		}
	}
	return m
}

// Normalize converts dots to model input vectors in [0,1]^3.
//
// Coordinates are divided by the reference display bounds. Speeds are divided
// by maxSpeed; when maxSpeed is not positive the largest speed in dots is
// used instead, and DefaultMaxSpeed if that is zero too.
func Normalize(dots []Dot, maxSpeed float64) [][]float64 {
	if maxSpeed <= 0 {
		maxSpeed = MaxSpeed(dots)
	}
	if maxSpeed <= 0 {
		maxSpeed = common.DefaultMaxSpeed
	}

	out := make([][]float64, len(dots))
	for i, d := range dots {
		out[i] = []float64{
			clamp01(float64(d.X) / xMax),
			clamp01(float64(d.Y) / yMax),
			clamp01(d.V / maxSpeed),
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
