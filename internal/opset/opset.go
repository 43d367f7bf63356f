// Package opset implements the eleven primitive scalar functions a tree
// operator node evaluates to, keyed by nodekind.Kind.
package opset

import (
	"math"

	"symreg/internal/nodekind"
)

// Fn is a primitive's signature: binary operators use both x and y;
// unary operators ignore y.
type Fn func(x, y float64) float64

var table = map[nodekind.Kind]Fn{
	nodekind.Inverse:  func(x, y float64) float64 { return inverse(x) },
	nodekind.Negative: func(x, y float64) float64 { return -x },
	nodekind.Add:      func(x, y float64) float64 { return x + y },
	nodekind.Subtract: func(x, y float64) float64 { return x - y },
	nodekind.Multiply: func(x, y float64) float64 { return x * y },
	nodekind.Divide:   divide,
	nodekind.Power:    func(x, y float64) float64 { return math.Pow(x, y) },
	nodekind.Abs:      func(x, y float64) float64 { return math.Abs(x) },
	nodekind.Sin:      func(x, y float64) float64 { return math.Sin(x) },
	nodekind.Cos:      func(x, y float64) float64 { return math.Cos(x) },
	nodekind.Tan:      func(x, y float64) float64 { return math.Tan(x) },
}

// Lookup returns the primitive for an operator kind. ok is false for
// leaf kinds and sentinels, which have no primitive.
func Lookup(k nodekind.Kind) (Fn, bool) {
	fn, ok := table[k]
	return fn, ok
}

func inverse(x float64) float64 {
	return divide(1, x)
}

// divide guards against division by zero by returning 0 rather than
// raising a floating-point exception or propagating Inf/NaN; IEEE
// semantics are left alone for every other input.
func divide(x, y float64) float64 {
	if y == 0 {
		return 0
	}
	return x / y
}
