// Package value holds the tagged scalar payload carried by a leaf node:
// a CONSTANT's rounded magnitude or a VARIABLE's sample-vector index,
// both stored in the same float field, plus whether it has been set.
package value

import "math"

// Value is the payload of a leaf node. IsSet distinguishes a freshly
// allocated, not-yet-initialised leaf (a structural-validation concern,
// §7.4) from one holding a real 0.
type Value struct {
	Scalar float64
	IsSet  bool
}

// Unset is the zero Value, matching a just-allocated leaf.
var Unset = Value{}

// Clamp rounds a constant to decimalPlaces and applies the
// minConstant/maxConstant saturation rule of invariant 5: magnitudes
// below min collapse to 0, magnitudes above max saturate to signed
// infinity.
func Clamp(scalar float64, decimalPlaces int, minConstant, maxConstant float64) float64 {
	if math.IsNaN(scalar) {
		return scalar
	}
	sign := 1.0
	mag := scalar
	if mag < 0 {
		sign = -1
		mag = -mag
	}
	switch {
	case mag < minConstant:
		return 0
	case mag > maxConstant:
		return sign * math.Inf(1)
	}
	return sign * roundTo(mag, decimalPlaces)
}

func roundTo(x float64, places int) float64 {
	if places <= 0 {
		return float64(int64(x + 0.5))
	}
	scale := pow10(places)
	return float64(int64(x*scale+0.5)) / scale
}

func pow10(n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= 10
	}
	return out
}
