// Package scoring implements the two per-tree measurements the
// evolutionary loop sorts on: RMS accuracy against a dataset (§4.6 "RMS
// score") and structural complexity (§4.6 "Complexity"), including the
// variable-descriptor shadow-tree path.
package scoring

import (
	"math"

	"symreg/internal/nodekind"
	"symreg/internal/tree"
)

// Dataset is a flat set of sample points: each Points[i] is one sample's
// input vector, Results[i] its target scalar. NumVars is the column
// count shared by every point.
type Dataset struct {
	Points  [][]float64
	Results []float64
	NumVars int
}

// RMS computes the tree's root-mean-square error against d, clamping
// predicted and actual values to [minClamp, maxClamp] first when
// useClamp is set, and square-rooting the mean when useSqrt is set. Any
// NaN intermediate collapses the whole score to +Inf (§4.6, §7.6).
func RMS(r *tree.Root, d Dataset, useClamp bool, minClamp, maxClamp float64, useSqrt bool) float64 {
	if len(d.Points) == 0 {
		return 0
	}
	sum := 0.0
	for i, pt := range d.Points {
		predicted := r.Compute(pt)
		actual := d.Results[i]
		if useClamp {
			predicted = clamp(predicted, minClamp, maxClamp)
			actual = clamp(actual, minClamp, maxClamp)
		}
		diff := predicted - actual
		sq := diff * diff
		if math.IsNaN(sq) {
			return math.Inf(1)
		}
		sum += sq
	}
	mean := sum / float64(len(d.Points))
	if math.IsNaN(mean) {
		return math.Inf(1)
	}
	if useSqrt {
		return math.Sqrt(mean)
	}
	return mean
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// ChildTag classifies a child slot for the complexity lookup table: a
// missing child, a constant leaf, or any operator (variable leaves also
// count as NONE-equivalent "no structural cost" in the original table,
// so they share the None tag with absent children).
type ChildTag int

const (
	TagNone ChildTag = iota
	TagConstant
	TagOperator
)

func childTag(r *tree.Root, slot int) ChildTag {
	if slot == tree.NoSlot {
		return TagNone
	}
	switch r.Kind(slot) {
	case nodekind.Constant:
		return TagConstant
	case nodekind.Variable:
		return TagNone
	default:
		return TagOperator
	}
}

// Table holds the per-operator (lhs-tag, rhs-tag) -> weight lookup of
// §4.6's complexity table; an entry absent from the map falls back to
// the configured default.
type Table map[nodekind.Kind]map[[2]ChildTag]float64

// DefaultTable is a reasonable default complexity weighting: operators
// with two operator children cost more than those with leaf children,
// reflecting the original's bias toward parsimony for deeply nested
// trees. It is not the original's per-operator table: the same shape
// weights are copied to every operator. Shapes not listed here (an
// operator right child after a leaf left child) fall back to the
// default complexity passed to Complexity. Individual entries are
// overridden by a loaded configuration's complexityWeights option.
func DefaultTable() Table {
	leafLeaf := map[[2]ChildTag]float64{
		{TagNone, TagNone}:         1,
		{TagConstant, TagNone}:     1,
		{TagNone, TagConstant}:     1,
		{TagConstant, TagConstant}: 1.5,
		{TagOperator, TagNone}:     2,
		{TagOperator, TagConstant}: 2,
		{TagOperator, TagOperator}: 3,
	}
	t := make(Table, len(nodekind.Operators))
	for _, k := range nodekind.Operators {
		cp := make(map[[2]ChildTag]float64, len(leafLeaf))
		for k2, v := range leafLeaf {
			cp[k2] = v
		}
		t[k] = cp
	}
	return t
}

// Complexity recursively sums table-entry weights over the tree; a leaf
// contributes 0 (§4.6).
func Complexity(r *tree.Root, table Table, defaultComplexity float64) float64 {
	return complexityNode(r, r.RootSlot(), table, defaultComplexity)
}

func complexityNode(r *tree.Root, slot int, table Table, defaultComplexity float64) float64 {
	if slot == tree.NoSlot {
		return 0
	}
	kind := r.Kind(slot)
	if nodekind.IsLeaf(kind) {
		return 0
	}
	arity := r.Arity(slot)
	lhs := r.Child(slot, 0)
	rhs := tree.NoSlot
	if arity == 2 {
		rhs = r.Child(slot, 1)
	}
	cost := defaultComplexity
	if byShape, ok := table[kind]; ok {
		key := [2]ChildTag{childTag(r, lhs), childTag(r, rhs)}
		if w, ok := byShape[key]; ok {
			cost = w
		}
	}
	total := cost + complexityNode(r, lhs, table, defaultComplexity)
	if arity == 2 {
		total += complexityNode(r, rhs, table, defaultComplexity)
	}
	return total
}

// ComplexityWithDescriptors computes a tree's reported complexity as
// the minimum of its own complexity and that of its "shadow" tree — a
// clone with every descriptor-bearing VARIABLE leaf replaced by a copy
// of its descriptor subtree, simplified (§4.6 "Variable descriptors").
// shadow is a caller-owned scratch Root reused across generations for
// this candidate's slot: it is reset and rebuilt in place rather than
// allocated and freed on every call, so the candidate's shadow pool is
// actually reused instead of churned (§4.7's per-candidate shadow
// population). simplifyFn runs the shared fixed-point simplifier on
// the shadow without this package depending on internal/simplify
// directly, since doing so would make scoring depend on the rewrite
// engine for what is fundamentally an evo-level orchestration step.
func ComplexityWithDescriptors(r *tree.Root, table Table, defaultComplexity float64, descriptors map[int]*tree.Root, shadow *tree.Root, simplifyFn func(*tree.Root)) float64 {
	own := Complexity(r, table, defaultComplexity)
	if len(descriptors) == 0 {
		return own
	}
	shadow.Reset()
	r.Copy(shadow)
	newRoot := substituteDescriptors(shadow, shadow.RootSlot(), tree.NoSlot, 0, descriptors)
	if newRoot != shadow.RootSlot() {
		shadow.SetRootSlot(newRoot)
	}
	if simplifyFn != nil {
		simplifyFn(shadow)
	}
	shadowComplexity := Complexity(shadow, table, defaultComplexity)
	if shadowComplexity < own {
		return shadowComplexity
	}
	return own
}

// substituteDescriptors walks r's own tree in place, find-and-replacing
// every descriptor-bearing VARIABLE leaf with a fresh clone of its
// descriptor subtree (grafted from a different root's pool via
// tree.Root.GraftFrom), and returns the (possibly new) slot that should
// occupy this position.
func substituteDescriptors(r *tree.Root, slot, parent, childIndex int, descriptors map[int]*tree.Root) int {
	if slot == tree.NoSlot {
		return slot
	}
	if r.Kind(slot) == nodekind.Variable {
		idx := int(r.Scalar(slot))
		descriptor, ok := descriptors[idx]
		if !ok {
			return slot
		}
		newSlot := r.GraftFrom(parent, descriptor, descriptor.RootSlot())
		r.Discard(slot)
		return newSlot
	}
	arity := r.Arity(slot)
	for i := 0; i < arity; i++ {
		child := r.Child(slot, i)
		newChild := substituteDescriptors(r, child, slot, i, descriptors)
		if newChild != child {
			r.ReplaceChild(slot, i, newChild)
		}
	}
	return slot
}
