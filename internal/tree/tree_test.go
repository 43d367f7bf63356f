package tree

import (
	"testing"

	"symreg/internal/nodekind"
	"symreg/internal/rng"
)

func buildAddVar0Var1(r *Root) int {
	a := r.NewVariableLeaf(NoSlot, 0)
	b := r.NewVariableLeaf(NoSlot, 1)
	op := r.NewOperator(NoSlot, nodekind.Add, a, b)
	r.SetRootSlot(op)
	return op
}

func TestComputeAdd(t *testing.T) {
	r := NewEmpty(2)
	buildAddVar0Var1(r)
	if got := r.Compute([]float64{2, 3}); got != 5 {
		t.Errorf("Compute(var0+var1, [2,3]) = %v, want 5", got)
	}
}

func TestComputeVariableOutOfRangeIsZero(t *testing.T) {
	r := NewEmpty(1)
	slot := r.NewVariableLeaf(NoSlot, 5)
	r.SetRootSlot(slot)
	if got := r.Compute([]float64{1}); got != 0 {
		t.Errorf("Compute(var5, [1]) = %v, want 0", got)
	}
}

func TestStringForm(t *testing.T) {
	r := NewEmpty(2)
	buildAddVar0Var1(r)
	if got := r.String(); got != "add(var0, var1)" {
		t.Errorf("String() = %q, want %q", got, "add(var0, var1)")
	}
}

func TestRecomputeFormIgnoresConstantsAndVariableIndices(t *testing.T) {
	r1 := NewEmpty(2)
	a := r1.NewConstantLeaf(NoSlot, 1)
	b := r1.NewVariableLeaf(NoSlot, 0)
	r1.SetRootSlot(r1.NewOperator(NoSlot, nodekind.Add, a, b))
	r1.RecomputeForm()

	r2 := NewEmpty(2)
	c := r2.NewConstantLeaf(NoSlot, 99)
	d := r2.NewVariableLeaf(NoSlot, 1)
	r2.SetRootSlot(r2.NewOperator(NoSlot, nodekind.Add, c, d))
	r2.RecomputeForm()

	if r1.Form() != r2.Form() {
		t.Errorf("Form() differ despite identical structure: %q vs %q", r1.Form(), r2.Form())
	}
}

func TestCopyProducesIndependentTree(t *testing.T) {
	src := NewEmpty(2)
	buildAddVar0Var1(src)

	dst := NewEmpty(2)
	src.Copy(dst)

	if dst.Compute([]float64{4, 6}) != 10 {
		t.Errorf("copied tree computed wrong value")
	}
	dst.SetScalar(dst.Child(dst.RootSlot(), 0), 0)
	if src.Compute([]float64{4, 6}) != 10 {
		t.Errorf("mutating copy affected source tree")
	}
}

func TestCopyWithGraft(t *testing.T) {
	dest := NewEmpty(2)
	base := NewEmpty(2)
	a := base.NewVariableLeaf(NoSlot, 0)
	b := base.NewVariableLeaf(NoSlot, 1)
	baseRoot := base.NewOperator(NoSlot, nodekind.Add, a, b)
	base.SetRootSlot(baseRoot)

	graft := NewEmpty(2)
	gc := graft.NewConstantLeaf(NoSlot, 7)
	graft.SetRootSlot(gc)

	base.CopyWithGraft(dest, a, graft, gc)
	if got := dest.Compute([]float64{0, 3}); got != 10 {
		t.Errorf("CopyWithGraft result = %v, want 10 (7+3)", got)
	}
}

func TestMutateAddIncreasesNodeCount(t *testing.T) {
	rngSrc := rng.New(1)
	r := NewEmpty(2)
	buildAddVar0Var1(r)
	before := len(r.ListOfNodes().All)
	r.MutateAdd(1, rngSrc, []nodekind.Kind{nodekind.Add, nodekind.Multiply})
	after := len(r.ListOfNodes().All)
	if after <= before {
		t.Errorf("MutateAdd did not grow tree: before=%d after=%d", before, after)
	}
}

func TestMutateRemoveShrinksTree(t *testing.T) {
	rngSrc := rng.New(2)
	r := NewEmpty(2)
	buildAddVar0Var1(r)
	before := len(r.ListOfNodes().All)
	r.MutateRemove(1, rngSrc)
	after := len(r.ListOfNodes().All)
	if after >= before {
		t.Errorf("MutateRemove did not shrink tree: before=%d after=%d", before, after)
	}
}

func TestValidateDetectsBadVariableIndex(t *testing.T) {
	r := NewEmpty(1)
	slot := r.NewVariableLeaf(NoSlot, 9)
	r.SetRootSlot(slot)
	issues := r.Validate()
	if len(issues) == 0 {
		t.Fatal("Validate() found no issues for out-of-range variable index")
	}
}

func TestValidateCleanTree(t *testing.T) {
	r := NewEmpty(2)
	buildAddVar0Var1(r)
	if issues := r.Validate(); len(issues) != 0 {
		t.Errorf("Validate() = %v, want no issues", issues)
	}
}

func TestFreeReleasesAllNodes(t *testing.T) {
	r := NewEmpty(2)
	buildAddVar0Var1(r)
	if r.LiveCount() == 0 {
		t.Fatal("expected live nodes before Free")
	}
	r.Free()
	if r.LiveCount() != 0 {
		t.Errorf("LiveCount() after Free = %d, want 0", r.LiveCount())
	}
}

func TestRandomTreeIsValid(t *testing.T) {
	rngSrc := rng.New(5)
	ops := []nodekind.Kind{nodekind.Add, nodekind.Subtract, nodekind.Multiply}
	r := RandomTree(3, rngSrc, ops)
	if issues := r.Validate(); len(issues) != 0 {
		t.Errorf("RandomTree produced invalid tree: %v", issues)
	}
}
