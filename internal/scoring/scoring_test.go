package scoring

import (
	"math"
	"testing"

	"symreg/internal/nodekind"
	"symreg/internal/tree"
)

func TestRMSPerfectFitIsZero(t *testing.T) {
	r := tree.NewEmpty(1)
	v := r.NewVariableLeaf(tree.NoSlot, 0)
	r.SetRootSlot(v)
	defer r.Free()

	d := Dataset{Points: [][]float64{{1}, {2}, {3}}, Results: []float64{1, 2, 3}, NumVars: 1}
	if got := RMS(r, d, false, 0, 0, false); got != 0 {
		t.Errorf("RMS(identity, matching data) = %v, want 0", got)
	}
}

func TestRMSConstantOffset(t *testing.T) {
	r := tree.NewEmpty(1)
	c := r.NewConstantLeaf(tree.NoSlot, 0)
	r.SetRootSlot(c)
	defer r.Free()

	d := Dataset{Points: [][]float64{{0}, {0}}, Results: []float64{2, 2}, NumVars: 1}
	if got := RMS(r, d, false, 0, 0, false); got != 4 {
		t.Errorf("RMS(const 0 vs targets 2) = %v, want 4 (mean squared error)", got)
	}
	if got := RMS(r, d, false, 0, 0, true); got != 2 {
		t.Errorf("RMS with sqrt = %v, want 2", got)
	}
}

func TestRMSEmptyDatasetIsZero(t *testing.T) {
	r := tree.NewEmpty(0)
	c := r.NewConstantLeaf(tree.NoSlot, 1)
	r.SetRootSlot(c)
	defer r.Free()

	if got := RMS(r, Dataset{}, false, 0, 0, false); got != 0 {
		t.Errorf("RMS(empty dataset) = %v, want 0", got)
	}
}

func TestRMSClampsValues(t *testing.T) {
	r := tree.NewEmpty(1)
	c := r.NewConstantLeaf(tree.NoSlot, 1000)
	r.SetRootSlot(c)
	defer r.Free()

	d := Dataset{Points: [][]float64{{0}}, Results: []float64{0}, NumVars: 1}
	got := RMS(r, d, true, -10, 10, false)
	if got != 100 {
		t.Errorf("RMS with clamp to [-10,10] = %v, want 100 (10^2)", got)
	}
}

func TestComplexityLeafIsZero(t *testing.T) {
	r := tree.NewEmpty(1)
	v := r.NewVariableLeaf(tree.NoSlot, 0)
	r.SetRootSlot(v)
	defer r.Free()

	if got := Complexity(r, DefaultTable(), 2); got != 0 {
		t.Errorf("Complexity(leaf) = %v, want 0", got)
	}
}

func TestComplexityNestedOperatorsCostMore(t *testing.T) {
	table := DefaultTable()

	shallow := tree.NewEmpty(1)
	a := shallow.NewVariableLeaf(tree.NoSlot, 0)
	b := shallow.NewVariableLeaf(tree.NoSlot, 0)
	shallow.SetRootSlot(shallow.NewOperator(tree.NoSlot, nodekind.Add, a, b))
	defer shallow.Free()

	deep := tree.NewEmpty(1)
	x := deep.NewVariableLeaf(tree.NoSlot, 0)
	y := deep.NewVariableLeaf(tree.NoSlot, 0)
	inner := deep.NewOperator(tree.NoSlot, nodekind.Add, x, y)
	z := deep.NewVariableLeaf(tree.NoSlot, 0)
	deep.SetRootSlot(deep.NewOperator(tree.NoSlot, nodekind.Multiply, inner, z))
	defer deep.Free()

	shallowCost := Complexity(shallow, table, 2)
	deepCost := Complexity(deep, table, 2)
	if deepCost <= shallowCost {
		t.Errorf("Complexity(deep)=%v should exceed Complexity(shallow)=%v", deepCost, shallowCost)
	}
}

func TestComplexityWithDescriptorsPrefersSmaller(t *testing.T) {
	table := DefaultTable()

	r := tree.NewEmpty(1)
	v := r.NewVariableLeaf(tree.NoSlot, 0)
	a := r.NewVariableLeaf(tree.NoSlot, 0)
	b := r.NewVariableLeaf(tree.NoSlot, 0)
	op := r.NewOperator(tree.NoSlot, nodekind.Add, a, b)
	root := r.NewOperator(tree.NoSlot, nodekind.Multiply, v, op)
	r.SetRootSlot(root)
	defer r.Free()

	descriptor := tree.NewEmpty(1)
	dv := descriptor.NewVariableLeaf(tree.NoSlot, 0)
	descriptor.SetRootSlot(dv)
	defer descriptor.Free()

	shadow := tree.NewEmpty(1)
	defer shadow.Free()

	withoutDescriptors := Complexity(r, table, 2)
	withDescriptors := ComplexityWithDescriptors(r, table, 2, map[int]*tree.Root{0: descriptor}, shadow, nil)
	if withDescriptors > withoutDescriptors {
		t.Errorf("ComplexityWithDescriptors = %v, should not exceed plain Complexity %v", withDescriptors, withoutDescriptors)
	}
}

func TestRMSNaNCollapsesToInf(t *testing.T) {
	r := tree.NewEmpty(1)
	zero := r.NewConstantLeaf(tree.NoSlot, 0)
	v := r.NewVariableLeaf(tree.NoSlot, 0)
	r.SetRootSlot(r.NewOperator(tree.NoSlot, nodekind.Divide, v, zero))
	defer r.Free()

	d := Dataset{Points: [][]float64{{1}}, Results: []float64{math.NaN()}, NumVars: 1}
	got := RMS(r, d, false, 0, 0, false)
	if !math.IsInf(got, 1) {
		t.Errorf("RMS with NaN target = %v, want +Inf", got)
	}
}
