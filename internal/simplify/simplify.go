// Package simplify implements the bottom-up, fixed-point algebraic
// rewriter of spec §4.4. applyRule switches on the node's kind to one
// rule function per operator kind; each function tests its child-shape
// patterns in a fixed order and the first match wins.
package simplify

import (
	"symreg/internal/nodekind"
	"symreg/internal/opset"
	"symreg/internal/tree"
)

// FixedPoint applies simplification passes until one changes nothing,
// per §4.4's "invokes simplify repeatedly ... until it returns null (a
// fixed point)".
func FixedPoint(r *tree.Root, denyOp nodekind.Kind) {
	for pass(r, denyOp) {
	}
	r.RecomputeForm()
}

func pass(r *tree.Root, denyOp nodekind.Kind) bool {
	if r.RootSlot() == tree.NoSlot {
		return false
	}
	changed := false
	newRoot := simplifyNode(r, r.RootSlot(), denyOp, &changed)
	if newRoot != r.RootSlot() {
		r.ReplaceChild(tree.NoSlot, 0, newRoot)
	}
	return changed
}

func simplifyNode(r *tree.Root, slot int, denyOp nodekind.Kind, changed *bool) int {
	kind := r.Kind(slot)
	if nodekind.IsLeaf(kind) {
		return slot
	}
	arity := r.Arity(slot)
	for i := 0; i < arity; i++ {
		child := r.Child(slot, i)
		newChild := simplifyNode(r, child, denyOp, changed)
		if newChild != child {
			r.ReplaceChild(slot, i, newChild)
			*changed = true
		}
	}
	if kind == denyOp {
		return slot
	}
	if newSlot, ok := applyRule(r, slot); ok {
		*changed = true
		return newSlot
	}
	return slot
}

func applyRule(r *tree.Root, slot int) (int, bool) {
	switch r.Kind(slot) {
	case nodekind.Inverse:
		return ruleInverse(r, slot)
	case nodekind.Negative:
		return ruleNegative(r, slot)
	case nodekind.Add:
		return ruleAdd(r, slot)
	case nodekind.Subtract:
		return ruleSubtract(r, slot)
	case nodekind.Multiply:
		return ruleMultiply(r, slot)
	case nodekind.Divide:
		return ruleDivide(r, slot)
	case nodekind.Power:
		return rulePower(r, slot)
	case nodekind.Abs:
		return ruleAbs(r, slot)
	case nodekind.Sin, nodekind.Cos, nodekind.Tan:
		return ruleTrig(r, slot)
	}
	return slot, false
}

// --- shared helpers -----------------------------------------------------

func isConst(r *tree.Root, slot int) bool { return r.Kind(slot) == nodekind.Constant }
func isVar(r *tree.Root, slot int) bool   { return r.Kind(slot) == nodekind.Variable }

func sameVariable(r *tree.Root, a, b int) bool {
	return isVar(r, a) && isVar(r, b) && r.Scalar(a) == r.Scalar(b)
}

func isUnarySet(k nodekind.Kind) bool {
	switch k {
	case nodekind.Sin, nodekind.Cos, nodekind.Tan, nodekind.Abs, nodekind.Inverse, nodekind.Negative:
		return true
	}
	return false
}

func keep(slots ...int) map[int]bool {
	m := make(map[int]bool, len(slots))
	for _, s := range slots {
		m[s] = true
	}
	return m
}

// discardExcept frees slot's subtree, stopping at (and preserving) any
// node in keepSet, so a rewrite can reuse those subtrees in the
// replacement it returns.
func discardExcept(r *tree.Root, slot int, keepSet map[int]bool) {
	if slot == tree.NoSlot || keepSet[slot] {
		return
	}
	arity := r.Arity(slot)
	for i := 0; i < arity; i++ {
		discardExcept(r, r.Child(slot, i), keepSet)
	}
	r.FreeNode(slot)
}

func replaceConst(r *tree.Root, oldSlot int, val float64) int {
	newSlot := r.NewConstantLeaf(tree.NoSlot, val)
	r.Discard(oldSlot)
	return newSlot
}

func newUnary(r *tree.Root, kind nodekind.Kind, child int) int {
	return r.NewOperator(tree.NoSlot, kind, child)
}

func newBinary(r *tree.Root, kind nodekind.Kind, a, b int) int {
	return r.NewOperator(tree.NoSlot, kind, a, b)
}

func fold(kind nodekind.Kind, x, y float64) float64 {
	fn, _ := opset.Lookup(kind)
	return fn(x, y)
}

// --- INVERSE -----------------------------------------------------------

func ruleInverse(r *tree.Root, slot int) (int, bool) {
	child := r.Child(slot, 0)
	switch {
	case isConst(r, child):
		return replaceConst(r, slot, fold(nodekind.Inverse, r.Scalar(child), 0)), true
	case r.Kind(child) == nodekind.Inverse:
		a := r.Child(child, 0)
		discardExcept(r, slot, keep(a))
		return a, true
	case r.Kind(child) == nodekind.Power:
		base, exp := r.Child(child, 0), r.Child(child, 1)
		if isConst(r, exp) {
			negExp := r.NewConstantLeaf(tree.NoSlot, -r.Scalar(exp))
			newSlot := newBinary(r, nodekind.Power, base, negExp)
			discardExcept(r, slot, keep(base))
			return newSlot, true
		}
		negO := newUnary(r, nodekind.Negative, exp)
		newSlot := newBinary(r, nodekind.Power, base, negO)
		discardExcept(r, slot, keep(base, exp))
		return newSlot, true
	case r.Kind(child) == nodekind.Divide:
		a, b := r.Child(child, 0), r.Child(child, 1)
		newSlot := newBinary(r, nodekind.Divide, b, a)
		discardExcept(r, slot, keep(a, b))
		return newSlot, true
	}
	return slot, false
}

// --- NEGATIVE ------------------------------------------------------

func ruleNegative(r *tree.Root, slot int) (int, bool) {
	child := r.Child(slot, 0)
	switch {
	case isConst(r, child):
		return replaceConst(r, slot, -r.Scalar(child)), true
	case r.Kind(child) == nodekind.Negative:
		a := r.Child(child, 0)
		discardExcept(r, slot, keep(a))
		return a, true
	case r.Kind(child) == nodekind.Subtract:
		a, b := r.Child(child, 0), r.Child(child, 1)
		newSlot := newBinary(r, nodekind.Subtract, b, a)
		discardExcept(r, slot, keep(a, b))
		return newSlot, true
	case r.Kind(child) == nodekind.Add:
		c0, c1 := r.Child(child, 0), r.Child(child, 1)
		if isConst(r, c0) {
			negC := r.NewConstantLeaf(tree.NoSlot, -r.Scalar(c0))
			newSlot := newBinary(r, nodekind.Subtract, negC, c1)
			discardExcept(r, slot, keep(c1))
			return newSlot, true
		}
	}
	return slot, false
}

// --- ADD -----------------------------------------------------------

func ruleAdd(r *tree.Root, slot int) (int, bool) {
	l, rr := r.Child(slot, 0), r.Child(slot, 1)

	if isConst(r, l) && isConst(r, rr) {
		return replaceConst(r, slot, r.Scalar(l)+r.Scalar(rr)), true
	}
	if r.Kind(l) == nodekind.Negative && r.Kind(rr) == nodekind.Negative {
		a, b := r.Child(l, 0), r.Child(rr, 0)
		newAdd := newBinary(r, nodekind.Add, a, b)
		newSlot := newUnary(r, nodekind.Negative, newAdd)
		discardExcept(r, slot, keep(a, b))
		return newSlot, true
	}
	if !isConst(r, l) && isConst(r, rr) {
		r.ReplaceChild(slot, 0, rr)
		r.ReplaceChild(slot, 1, l)
		return slot, true
	}
	if isConst(r, l) && r.Scalar(l) == 0 {
		discardExcept(r, slot, keep(rr))
		return rr, true
	}
	if isConst(r, l) && r.Kind(rr) == nodekind.Add && isConst(r, r.Child(rr, 0)) {
		c2o := rr
		o := r.Child(c2o, 1)
		newC := r.NewConstantLeaf(tree.NoSlot, r.Scalar(l)+r.Scalar(r.Child(c2o, 0)))
		newSlot := newBinary(r, nodekind.Add, newC, o)
		discardExcept(r, slot, keep(o))
		return newSlot, true
	}
	if r.Kind(l) == nodekind.Add && isConst(r, r.Child(l, 0)) && r.Kind(rr) == nodekind.Add && isConst(r, r.Child(rr, 0)) {
		o1, o2 := r.Child(l, 1), r.Child(rr, 1)
		newC := r.NewConstantLeaf(tree.NoSlot, r.Scalar(r.Child(l, 0))+r.Scalar(r.Child(rr, 0)))
		newO := newBinary(r, nodekind.Add, o1, o2)
		newSlot := newBinary(r, nodekind.Add, newC, newO)
		discardExcept(r, slot, keep(o1, o2))
		return newSlot, true
	}
	if r.Kind(rr) == nodekind.Negative {
		b := r.Child(rr, 0)
		newSlot := newBinary(r, nodekind.Subtract, l, b)
		discardExcept(r, slot, keep(l, b))
		return newSlot, true
	}
	if isVar(r, l) && sameVariable(r, l, rr) {
		two := r.NewConstantLeaf(tree.NoSlot, 2)
		newSlot := newBinary(r, nodekind.Multiply, l, two)
		discardExcept(r, slot, keep(l))
		return newSlot, true
	}
	if isUnarySet(r.Kind(l)) && r.Kind(l) == r.Kind(rr) && sameVariable(r, r.Child(l, 0), r.Child(rr, 0)) {
		two := r.NewConstantLeaf(tree.NoSlot, 2)
		newSlot := newBinary(r, nodekind.Multiply, l, two)
		discardExcept(r, slot, keep(l))
		return newSlot, true
	}
	return slot, false
}

// --- SUBTRACT ------------------------------------------------------

func ruleSubtract(r *tree.Root, slot int) (int, bool) {
	l, rr := r.Child(slot, 0), r.Child(slot, 1)

	if isConst(r, l) && isConst(r, rr) {
		return replaceConst(r, slot, r.Scalar(l)-r.Scalar(rr)), true
	}
	if !isConst(r, l) && isConst(r, rr) {
		negC := r.NewConstantLeaf(tree.NoSlot, -r.Scalar(rr))
		newSlot := newBinary(r, nodekind.Add, l, negC)
		discardExcept(r, slot, keep(l))
		return newSlot, true
	}
	if r.Kind(rr) == nodekind.Negative {
		b := r.Child(rr, 0)
		newSlot := newBinary(r, nodekind.Add, l, b)
		discardExcept(r, slot, keep(l, b))
		return newSlot, true
	}
	if r.Kind(l) == nodekind.Negative {
		a := r.Child(l, 0)
		newAdd := newBinary(r, nodekind.Add, a, rr)
		newSlot := newUnary(r, nodekind.Negative, newAdd)
		discardExcept(r, slot, keep(a, rr))
		return newSlot, true
	}
	if isConst(r, l) && r.Scalar(l) == 0 {
		a := rr
		newSlot := newUnary(r, nodekind.Negative, a)
		discardExcept(r, slot, keep(a))
		return newSlot, true
	}
	if isVar(r, l) && sameVariable(r, l, rr) {
		return replaceConst(r, slot, 0), true
	}
	return slot, false
}

// --- MULTIPLY ------------------------------------------------------

func rank(r *tree.Root, slot int) int {
	switch {
	case isConst(r, slot):
		return 0
	case isVar(r, slot):
		return 1
	default:
		return 2
	}
}

func ruleMultiply(r *tree.Root, slot int) (int, bool) {
	l, rr := r.Child(slot, 0), r.Child(slot, 1)

	if isConst(r, l) && isConst(r, rr) {
		return replaceConst(r, slot, r.Scalar(l)*r.Scalar(rr)), true
	}
	if rank(r, l) > rank(r, rr) {
		r.ReplaceChild(slot, 0, rr)
		r.ReplaceChild(slot, 1, l)
		return slot, true
	}
	if isConst(r, l) && r.Kind(rr) == nodekind.Multiply && isConst(r, r.Child(rr, 0)) {
		o := r.Child(rr, 1)
		newC := r.NewConstantLeaf(tree.NoSlot, r.Scalar(l)*r.Scalar(r.Child(rr, 0)))
		newSlot := newBinary(r, nodekind.Multiply, newC, o)
		discardExcept(r, slot, keep(o))
		return newSlot, true
	}
	if r.Kind(l) == nodekind.Multiply && isConst(r, r.Child(l, 0)) && r.Kind(rr) == nodekind.Multiply && isConst(r, r.Child(rr, 0)) {
		o1, o2 := r.Child(l, 1), r.Child(rr, 1)
		newC := r.NewConstantLeaf(tree.NoSlot, r.Scalar(r.Child(l, 0))*r.Scalar(r.Child(rr, 0)))
		newO := newBinary(r, nodekind.Multiply, o1, o2)
		newSlot := newBinary(r, nodekind.Multiply, newC, newO)
		discardExcept(r, slot, keep(o1, o2))
		return newSlot, true
	}
	if r.Kind(l) == nodekind.Negative && r.Kind(rr) == nodekind.Negative {
		a, b := r.Child(l, 0), r.Child(rr, 0)
		newSlot := newBinary(r, nodekind.Multiply, a, b)
		discardExcept(r, slot, keep(a, b))
		return newSlot, true
	}
	if isConst(r, l) && r.Scalar(l) == 0 {
		return replaceConst(r, slot, 0), true
	}
	if isConst(r, l) && r.Scalar(l) == 1 {
		discardExcept(r, slot, keep(rr))
		return rr, true
	}
	if isConst(r, l) && r.Scalar(l) == -1 {
		newSlot := newUnary(r, nodekind.Negative, rr)
		discardExcept(r, slot, keep(rr))
		return newSlot, true
	}
	if r.Kind(l) == nodekind.Inverse && r.Kind(rr) == nodekind.Inverse {
		a, b := r.Child(l, 0), r.Child(rr, 0)
		newMul := newBinary(r, nodekind.Multiply, a, b)
		newSlot := newUnary(r, nodekind.Inverse, newMul)
		discardExcept(r, slot, keep(a, b))
		return newSlot, true
	}
	if r.Kind(rr) == nodekind.Inverse {
		b := r.Child(rr, 0)
		newSlot := newBinary(r, nodekind.Divide, l, b)
		discardExcept(r, slot, keep(l, b))
		return newSlot, true
	}
	if isVar(r, l) && sameVariable(r, l, rr) {
		two := r.NewConstantLeaf(tree.NoSlot, 2)
		newSlot := newBinary(r, nodekind.Power, l, two)
		discardExcept(r, slot, keep(l))
		return newSlot, true
	}
	if isUnarySet(r.Kind(l)) && r.Kind(l) == r.Kind(rr) && sameVariable(r, r.Child(l, 0), r.Child(rr, 0)) {
		two := r.NewConstantLeaf(tree.NoSlot, 2)
		newSlot := newBinary(r, nodekind.Power, l, two)
		discardExcept(r, slot, keep(l))
		return newSlot, true
	}
	if isVar(r, l) && r.Kind(rr) == nodekind.Multiply && isVar(r, r.Child(rr, 0)) && sameVariable(r, l, r.Child(rr, 0)) {
		o := r.Child(rr, 1)
		two := r.NewConstantLeaf(tree.NoSlot, 2)
		pw := newBinary(r, nodekind.Power, l, two)
		newSlot := newBinary(r, nodekind.Multiply, pw, o)
		discardExcept(r, slot, keep(l, o))
		return newSlot, true
	}
	if isVar(r, l) && r.Kind(rr) == nodekind.Divide && isVar(r, r.Child(rr, 0)) && sameVariable(r, l, r.Child(rr, 0)) {
		o := r.Child(rr, 1)
		two := r.NewConstantLeaf(tree.NoSlot, 2)
		pw := newBinary(r, nodekind.Power, l, two)
		newSlot := newBinary(r, nodekind.Divide, pw, o)
		discardExcept(r, slot, keep(l, o))
		return newSlot, true
	}
	return slot, false
}

// --- DIVIDE ----------------------------------------------------------

func ruleDivide(r *tree.Root, slot int) (int, bool) {
	l, rr := r.Child(slot, 0), r.Child(slot, 1)

	if isConst(r, l) && isConst(r, rr) {
		return replaceConst(r, slot, fold(nodekind.Divide, r.Scalar(l), r.Scalar(rr))), true
	}
	if r.Kind(l) == nodekind.Inverse {
		a := r.Child(l, 0)
		newMul := newBinary(r, nodekind.Multiply, a, rr)
		newSlot := newUnary(r, nodekind.Inverse, newMul)
		discardExcept(r, slot, keep(a, rr))
		return newSlot, true
	}
	if r.Kind(rr) == nodekind.Inverse {
		b := r.Child(rr, 0)
		newSlot := newBinary(r, nodekind.Multiply, l, b)
		discardExcept(r, slot, keep(l, b))
		return newSlot, true
	}
	if isConst(r, l) && r.Scalar(l) == 0 {
		return replaceConst(r, slot, 0), true
	}
	if isConst(r, l) && r.Scalar(l) == 1 {
		newSlot := newUnary(r, nodekind.Inverse, rr)
		discardExcept(r, slot, keep(rr))
		return newSlot, true
	}
	if isVar(r, l) && sameVariable(r, l, rr) {
		return replaceConst(r, slot, 1), true
	}
	if r.Kind(l) == nodekind.Multiply && isVar(r, rr) {
		c0, c1 := r.Child(l, 0), r.Child(l, 1)
		if sameVariable(r, c0, rr) {
			discardExcept(r, slot, keep(c1))
			return c1, true
		}
		if sameVariable(r, c1, rr) {
			discardExcept(r, slot, keep(c0))
			return c0, true
		}
	}
	if isVar(r, l) && r.Kind(rr) == nodekind.Multiply {
		d0, d1 := r.Child(rr, 0), r.Child(rr, 1)
		if sameVariable(r, d0, l) {
			newSlot := newUnary(r, nodekind.Inverse, d1)
			discardExcept(r, slot, keep(d1))
			return newSlot, true
		}
		if sameVariable(r, d1, l) {
			newSlot := newUnary(r, nodekind.Inverse, d0)
			discardExcept(r, slot, keep(d0))
			return newSlot, true
		}
	}
	if isUnarySet(r.Kind(l)) && r.Kind(l) == r.Kind(rr) && sameVariable(r, r.Child(l, 0), r.Child(rr, 0)) {
		return replaceConst(r, slot, 1), true
	}
	if r.Kind(l) == nodekind.Sin && r.Kind(rr) == nodekind.Cos && sameVariable(r, r.Child(l, 0), r.Child(rr, 0)) {
		x := r.Child(l, 0)
		newSlot := newUnary(r, nodekind.Tan, x)
		discardExcept(r, slot, keep(x))
		return newSlot, true
	}
	return slot, false
}

// --- POWER -----------------------------------------------------------

func rulePower(r *tree.Root, slot int) (int, bool) {
	l, rr := r.Child(slot, 0), r.Child(slot, 1)

	if isConst(r, l) && isConst(r, rr) {
		return replaceConst(r, slot, fold(nodekind.Power, r.Scalar(l), r.Scalar(rr))), true
	}
	if isConst(r, rr) && r.Scalar(rr) == 0 {
		return replaceConst(r, slot, 1), true
	}
	if isConst(r, rr) && r.Scalar(rr) == 1 {
		discardExcept(r, slot, keep(l))
		return l, true
	}
	if isConst(r, l) && r.Scalar(l) == 1 {
		return replaceConst(r, slot, 1), true
	}
	if r.Kind(l) == nodekind.Power {
		a, b := r.Child(l, 0), r.Child(l, 1)
		newExp := newBinary(r, nodekind.Multiply, b, rr)
		newSlot := newBinary(r, nodekind.Power, a, newExp)
		discardExcept(r, slot, keep(a, b, rr))
		return newSlot, true
	}
	if r.Kind(l) == nodekind.Inverse && isConst(r, rr) {
		a := r.Child(l, 0)
		negC := r.NewConstantLeaf(tree.NoSlot, -r.Scalar(rr))
		newSlot := newBinary(r, nodekind.Power, a, negC)
		discardExcept(r, slot, keep(a))
		return newSlot, true
	}
	if r.Kind(l) == nodekind.Inverse {
		a := r.Child(l, 0)
		newPow := newBinary(r, nodekind.Power, a, rr)
		newSlot := newUnary(r, nodekind.Inverse, newPow)
		discardExcept(r, slot, keep(a, rr))
		return newSlot, true
	}
	return slot, false
}

// --- ABS -----------------------------------------------------------

func ruleAbs(r *tree.Root, slot int) (int, bool) {
	child := r.Child(slot, 0)
	switch {
	case isConst(r, child):
		v := r.Scalar(child)
		if v < 0 {
			v = -v
		}
		return replaceConst(r, slot, v), true
	case r.Kind(child) == nodekind.Abs:
		discardExcept(r, slot, keep(child))
		return child, true
	case r.Kind(child) == nodekind.Negative:
		a := r.Child(child, 0)
		newSlot := newUnary(r, nodekind.Abs, a)
		discardExcept(r, slot, keep(a))
		return newSlot, true
	}
	return slot, false
}

// --- SIN / COS / TAN -------------------------------------------------

func ruleTrig(r *tree.Root, slot int) (int, bool) {
	child := r.Child(slot, 0)
	if !isConst(r, child) {
		return slot, false
	}
	return replaceConst(r, slot, fold(r.Kind(slot), r.Scalar(child), 0)), true
}
