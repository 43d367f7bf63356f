// Package tree implements the expression-tree data model of spec §3: a
// node's kind, arity, and value live in a per-root slab (internal/pool),
// addressed by slot index rather than by pointer — the "tagged node
// variants ... slot indices instead of raw pointers" rewrite called for
// in spec §9. A Root owns exactly one Pool and one tree.
package tree

import (
	"fmt"
	"strconv"
	"strings"

	"symreg/internal/nodekind"
	"symreg/internal/opset"
	"symreg/internal/pool"
	"symreg/internal/rng"
	"symreg/internal/value"
)

const noSlot = -1

// node is the payload stored at one pool slot. Operator nodes use Child
// positions per nodekind.Arity; leaves use neither.
type node struct {
	Kind   nodekind.Kind
	Val    value.Value
	Parent int
	Child  [2]int
}

func newLeafNode(kind nodekind.Kind, parent int, val value.Value) *node {
	return &node{Kind: kind, Val: val, Parent: parent, Child: [2]int{noSlot, noSlot}}
}

func newOpNode(kind nodekind.Kind, parent int) *node {
	return &node{Kind: kind, Parent: parent, Child: [2]int{noSlot, noSlot}}
}

// Root owns one expression tree and the arena it lives in. Score and
// Complexity are mutated by the caller (internal/evo) between phases;
// Complete is the work-dispatcher's per-slot completion flag (§4.10).
type Root struct {
	pool     *pool.Pool
	rootSlot int
	NumVars  int

	Score      float64
	Complexity float64
	Complete   bool

	form string
}

// NewEmpty creates a Root with a fresh pool and no tree yet — the
// caller must populate it via Parse, RandomOperator, or CopyWithGraft
// before the tree is usable.
func NewEmpty(numVars int) *Root {
	return &Root{pool: pool.New(), rootSlot: noSlot, NumVars: numVars}
}

// RootSlot exposes the root node's slot index, used as the pointer-
// identity stand-in by callers needing to name "this particular node"
// (e.g. the mutation target passed to CopyWithGraft).
func (r *Root) RootSlot() int { return r.rootSlot }

// SetRootSlot installs slot as the tree's root. Used by parsers and
// random constructors once the first node has been allocated.
func (r *Root) SetRootSlot(slot int) { r.rootSlot = slot }

func (r *Root) get(slot int) *node {
	d := r.pool.Get(slot)
	if d == nil {
		return nil
	}
	return d.(*node)
}

// Free releases the whole arena in one shot without traversing the
// tree, per §4.2's "Why this design": each root's pool dies with it.
func (r *Root) Free() {
	r.pool.Release()
}

// LiveCount reports the pool's current live-node count (used by
// scenario 6's memory test).
func (r *Root) LiveCount() int64 { return r.pool.Live() }

// Reset discards the current tree (if any) without releasing the
// underlying pool, so a Root can be rebuilt and reused across
// generations instead of being freed and reallocated — used by the
// per-candidate shadow trees internal/scoring substitutes descriptors
// into.
func (r *Root) Reset() {
	if r.rootSlot == noSlot {
		return
	}
	r.freeSubtree(r.rootSlot)
	r.rootSlot = noSlot
	r.form = ""
}

// SetComplete implements dispatch.Completable: the work dispatcher
// clears this before a phase visits the slot and sets it after (§4.10).
func (r *Root) SetComplete(v bool) { r.Complete = v }

// --- construction -----------------------------------------------------

// NewConstantLeaf allocates a CONSTANT leaf with parent slot (noSlot for
// a standalone root) and returns its slot index.
func (r *Root) NewConstantLeaf(parent int, scalar float64) int {
	return r.pool.Allocate(newLeafNode(nodekind.Constant, parent, value.Value{Scalar: scalar, IsSet: true}))
}

// NewVariableLeaf allocates a VARIABLE leaf referencing sample index idx.
func (r *Root) NewVariableLeaf(parent int, idx int) int {
	return r.pool.Allocate(newLeafNode(nodekind.Variable, parent, value.Value{Scalar: float64(idx), IsSet: true}))
}

// NewOperator allocates an operator node of kind with the given
// children (already allocated elsewhere in this pool); it relinks each
// child's parent pointer to the new node.
func (r *Root) NewOperator(parent int, kind nodekind.Kind, children ...int) int {
	n := newOpNode(kind, parent)
	for i, c := range children {
		if i > 1 {
			break
		}
		n.Child[i] = c
	}
	slot := r.pool.Allocate(n)
	for _, c := range children {
		if c != noSlot {
			r.get(c).Parent = slot
		}
	}
	return slot
}

// RandomVariableLeaf allocates a VARIABLE leaf with a uniformly random
// index in [0, NumVars).
func (r *Root) RandomVariableLeaf(parent int, rngSrc *rng.Source) int {
	return r.NewVariableLeaf(parent, rngSrc.IntN(r.NumVars))
}

// RandomConstantLeaf allocates a CONSTANT leaf with a random magnitude
// in [minConstant, maxConstant), rounded and clamped per value.Clamp.
func (r *Root) RandomConstantLeaf(parent int, rngSrc *rng.Source, decimalPlaces int, minConstant, maxConstant float64) int {
	raw := minConstant + rngSrc.Float64()*(maxConstant-minConstant)
	if rngSrc.Chance(50) {
		raw = -raw
	}
	return r.NewConstantLeaf(parent, value.Clamp(raw, decimalPlaces, minConstant, maxConstant))
}

// RandomOperator allocates a random operator from ops with randomly
// generated variable-leaf children, and returns its slot. Used both for
// fresh-tree construction and inside MutateAdd.
func (r *Root) RandomOperator(parent int, rngSrc *rng.Source, ops []nodekind.Kind) int {
	kind := ops[rngSrc.IntN(len(ops))]
	arity := nodekind.Arity(kind)
	n := newOpNode(kind, parent)
	slot := r.pool.Allocate(n)
	for i := 0; i < arity; i++ {
		n.Child[i] = r.RandomVariableLeaf(slot, rngSrc)
	}
	return slot
}

// RandomTree builds a fresh random operator root plus three mutate_add
// passes, matching the "synthesise a random operator node plus three
// mutate_add steps" initial-state rule of §4.7.
func RandomTree(numVars int, rngSrc *rng.Source, ops []nodekind.Kind) *Root {
	r := NewEmpty(numVars)
	r.rootSlot = r.RandomOperator(noSlot, rngSrc, ops)
	r.MutateAdd(3, rngSrc, ops)
	r.RecomputeForm()
	return r
}

// --- enumeration --------------------------------------------------------

// NodeLists buckets a pre-order traversal by role, per §4.3's
// list_of_nodes contract.
type NodeLists struct {
	Operators []int
	Variables []int
	Constants []int
	All       []int
}

// ListOfNodes performs a pre-order enumeration of the tree.
func (r *Root) ListOfNodes() NodeLists {
	var lists NodeLists
	r.walk(r.rootSlot, func(slot int, n *node) {
		lists.All = append(lists.All, slot)
		switch {
		case n.Kind == nodekind.Constant:
			lists.Constants = append(lists.Constants, slot)
		case n.Kind == nodekind.Variable:
			lists.Variables = append(lists.Variables, slot)
		default:
			lists.Operators = append(lists.Operators, slot)
		}
	})
	return lists
}

func (r *Root) walk(slot int, visit func(int, *node)) {
	if slot == noSlot {
		return
	}
	n := r.get(slot)
	visit(slot, n)
	arity := nodekind.Arity(n.Kind)
	for i := 0; i < arity; i++ {
		r.walk(n.Child[i], visit)
	}
}

// RandomNode returns a uniformly random slot from the whole tree.
func (r *Root) RandomNode(rngSrc *rng.Source) int {
	all := r.ListOfNodes().All
	return all[rngSrc.IntN(len(all))]
}

// --- compute --------------------------------------------------------

// Compute evaluates the tree against a sample-point vector. A VARIABLE
// index out of range evaluates to 0 (§4.3).
func (r *Root) Compute(vars []float64) float64 {
	return r.computeNode(r.rootSlot, vars)
}

func (r *Root) computeNode(slot int, vars []float64) float64 {
	n := r.get(slot)
	switch n.Kind {
	case nodekind.Constant:
		return n.Val.Scalar
	case nodekind.Variable:
		idx := int(n.Val.Scalar)
		if idx < 0 || idx >= len(vars) {
			return 0
		}
		return vars[idx]
	default:
		fn, _ := opset.Lookup(n.Kind)
		x := r.computeNode(n.Child[0], vars)
		y := 0.0
		if nodekind.Arity(n.Kind) == 2 {
			y = r.computeNode(n.Child[1], vars)
		}
		return fn(x, y)
	}
}

// --- string / form ------------------------------------------------------

// String renders the tree in the "op(arg[, arg])" / "N[.M]" / "varK"
// grammar the parser accepts (§6 "Tree string form").
func (r *Root) String() string {
	if r.rootSlot == noSlot {
		return ""
	}
	return r.stringNode(r.rootSlot)
}

func (r *Root) stringNode(slot int) string {
	n := r.get(slot)
	switch n.Kind {
	case nodekind.Constant:
		return formatConstant(n.Val.Scalar)
	case nodekind.Variable:
		return "var" + strconv.Itoa(int(n.Val.Scalar))
	default:
		arity := nodekind.Arity(n.Kind)
		if arity == 1 {
			return fmt.Sprintf("%s(%s)", n.Kind.String(), r.stringNode(n.Child[0]))
		}
		return fmt.Sprintf("%s(%s, %s)", n.Kind.String(), r.stringNode(n.Child[0]), r.stringNode(n.Child[1]))
	}
}

func formatConstant(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") && !strings.ContainsAny(s, "+-") {
		return s
	}
	return s
}

// RecomputeForm rebuilds the cached structural-form string: it depends
// only on kinds and shape (invariant 7), so structurally identical
// trees with different constants/variable indices share a form.
func (r *Root) RecomputeForm() {
	if r.rootSlot == noSlot {
		r.form = ""
		return
	}
	r.form = r.formNode(r.rootSlot)
}

// Form returns the cached structural form; call RecomputeForm after any
// mutation or graft.
func (r *Root) Form() string { return r.form }

func (r *Root) formNode(slot int) string {
	n := r.get(slot)
	if nodekind.IsLeaf(n.Kind) {
		return n.Kind.String()
	}
	arity := nodekind.Arity(n.Kind)
	if arity == 1 {
		return n.Kind.String() + "(" + r.formNode(n.Child[0]) + ")"
	}
	return n.Kind.String() + "(" + r.formNode(n.Child[0]) + "," + r.formNode(n.Child[1]) + ")"
}

// --- copy / graft ------------------------------------------------------

// Copy clones the whole tree into dest's pool and installs it as dest's
// root, returning the new root slot.
func (r *Root) Copy(dest *Root) int {
	slot := r.copyNode(r.rootSlot, dest, noSlot)
	dest.rootSlot = slot
	dest.RecomputeForm()
	return slot
}

func (r *Root) copyNode(slot int, dest *Root, destParent int) int {
	n := r.get(slot)
	if nodekind.IsLeaf(n.Kind) {
		return dest.pool.Allocate(newLeafNode(n.Kind, destParent, n.Val))
	}
	arity := nodekind.Arity(n.Kind)
	newSlot := dest.pool.Allocate(newOpNode(n.Kind, destParent))
	dn := dest.get(newSlot)
	for i := 0; i < arity; i++ {
		dn.Child[i] = r.copyNode(n.Child[i], dest, newSlot)
	}
	return newSlot
}

// CopyWithGraft clones r's tree into dest, except that when the
// traversal reaches toSlot (a slot index within r's own tree), the
// subtree is replaced by a fresh copy of graft's subtree rooted at
// graftSlot. This realises §4.3's copy_with_graft and is the core
// crossover primitive used by repopulation (§4.7 step 1).
func (r *Root) CopyWithGraft(dest *Root, toSlot int, graft *Root, graftSlot int) int {
	slot := r.copyGraftNode(r.rootSlot, dest, noSlot, toSlot, graft, graftSlot)
	dest.rootSlot = slot
	dest.RecomputeForm()
	return slot
}

func (r *Root) copyGraftNode(slot int, dest *Root, destParent, toSlot int, graft *Root, graftSlot int) int {
	if slot == toSlot {
		return graft.copyNode(graftSlot, dest, destParent)
	}
	n := r.get(slot)
	if nodekind.IsLeaf(n.Kind) {
		return dest.pool.Allocate(newLeafNode(n.Kind, destParent, n.Val))
	}
	arity := nodekind.Arity(n.Kind)
	newSlot := dest.pool.Allocate(newOpNode(n.Kind, destParent))
	dn := dest.get(newSlot)
	for i := 0; i < arity; i++ {
		dn.Child[i] = r.copyGraftNode(n.Child[i], dest, newSlot, toSlot, graft, graftSlot)
	}
	return newSlot
}

// GraftFrom clones src's subtree rooted at srcSlot into r's own pool
// with the given parent, returning the new slot. Unlike CopyWithGraft
// (which clones a whole tree into a fresh Root), this splices a clone
// into a tree that is already live — used by the variable-descriptor
// substitution in internal/scoring.
func (r *Root) GraftFrom(parent int, src *Root, srcSlot int) int {
	return src.copyNode(srcSlot, r, parent)
}

// --- mutation ------------------------------------------------------

func (r *Root) replaceInParent(oldSlot, newSlot, parent int) {
	if parent == noSlot {
		r.rootSlot = newSlot
		return
	}
	pn := r.get(parent)
	if pn.Child[0] == oldSlot {
		pn.Child[0] = newSlot
	} else {
		pn.Child[1] = newSlot
	}
}

func (r *Root) freeSubtree(slot int) {
	if slot == noSlot {
		return
	}
	n := r.get(slot)
	arity := nodekind.Arity(n.Kind)
	children := n.Child
	for i := 0; i < arity; i++ {
		r.freeSubtree(children[i])
	}
	r.pool.Deallocate(slot)
}

// MutateAdd wraps k uniformly-random nodes in a freshly allocated
// random operator whose other children are random variable leaves
// (§4.5 mutate_add).
func (r *Root) MutateAdd(k int, rngSrc *rng.Source, ops []nodekind.Kind) {
	for i := 0; i < k; i++ {
		target := r.RandomNode(rngSrc)
		tn := r.get(target)
		parent := tn.Parent

		kind := ops[rngSrc.IntN(len(ops))]
		arity := nodekind.Arity(kind)
		newOp := r.pool.Allocate(newOpNode(kind, parent))
		opn := r.get(newOp)

		pos := 0
		if arity == 2 {
			pos = rngSrc.IntN(2)
		}
		for c := 0; c < arity; c++ {
			if c == pos {
				opn.Child[c] = target
				tn.Parent = newOp
			} else {
				opn.Child[c] = r.RandomVariableLeaf(newOp, rngSrc)
			}
		}
		r.replaceInParent(target, newOp, parent)
	}
}

// MutateRemove replaces k uniformly-random operator nodes with one of
// their own children, freeing the rest (§4.5 mutate_remove).
func (r *Root) MutateRemove(k int, rngSrc *rng.Source) {
	for i := 0; i < k; i++ {
		ops := r.ListOfNodes().Operators
		if len(ops) == 0 {
			return
		}
		target := ops[rngSrc.IntN(len(ops))]
		n := r.get(target)
		arity := nodekind.Arity(n.Kind)
		keep := 0
		if arity == 2 {
			keep = rngSrc.IntN(2)
		}
		kept := n.Child[keep]
		parent := n.Parent

		for c := 0; c < arity; c++ {
			if c != keep {
				r.freeSubtree(n.Child[c])
			}
		}
		r.pool.Deallocate(target)
		r.get(kept).Parent = parent
		r.replaceInParent(target, kept, parent)
	}
}

// ChangeParams groups the probability/range knobs MutateChange needs so
// the tree package stays free of a direct dependency on internal/config.
type ChangeParams struct {
	OperatorChance, ConstantChance float64
	Operators                      []nodekind.Kind
	DecimalPlaces                  int
	MinConstant, MaxConstant       float64
}

// MutateChange reshapes k uniformly-random nodes into a newly drawn
// kind in place, adjusting arity by freeing shed children or growing
// random new ones (§4.5 mutate_change).
func (r *Root) MutateChange(k int, rngSrc *rng.Source, p ChangeParams) {
	for i := 0; i < k; i++ {
		target := r.RandomNode(rngSrc)
		n := r.get(target)
		oldArity := nodekind.Arity(n.Kind)

		var newKind nodekind.Kind
		switch {
		case rngSrc.Chance(p.OperatorChance):
			newKind = p.Operators[rngSrc.IntN(len(p.Operators))]
		case rngSrc.Chance(p.ConstantChance):
			newKind = nodekind.Constant
		default:
			newKind = nodekind.Variable
		}
		newArity := nodekind.Arity(newKind)

		for idx := newArity; idx < oldArity; idx++ {
			r.freeSubtree(n.Child[idx])
			n.Child[idx] = noSlot
		}
		for idx := oldArity; idx < newArity; idx++ {
			n.Child[idx] = r.RandomVariableLeaf(target, rngSrc)
		}

		n.Kind = newKind
		switch newKind {
		case nodekind.Constant:
			raw := p.MinConstant + rngSrc.Float64()*(p.MaxConstant-p.MinConstant)
			if rngSrc.Chance(50) {
				raw = -raw
			}
			n.Val = value.Value{Scalar: value.Clamp(raw, p.DecimalPlaces, p.MinConstant, p.MaxConstant), IsSet: true}
		case nodekind.Variable:
			n.Val = value.Value{Scalar: float64(rngSrc.IntN(r.NumVars)), IsSet: true}
		default:
			n.Val = value.Value{}
		}
	}
}

// MutateParams bundles the knobs Mutate needs to pick among
// MutateChange/MutateAdd/MutateRemove.
type MutateParams struct {
	ChangeChance float64
	Change       ChangeParams
}

// Mutate applies one of the three mutation operators per §4.5's
// mutate(rt, k): with probability ChangeChance, MutateChange; otherwise
// MutateAdd or MutateRemove with equal probability.
func (r *Root) Mutate(k int, rngSrc *rng.Source, p MutateParams) {
	switch {
	case rngSrc.Chance(p.ChangeChance):
		r.MutateChange(k, rngSrc, p.Change)
	case rngSrc.Chance(50):
		r.MutateAdd(k, rngSrc, p.Change.Operators)
	default:
		r.MutateRemove(k, rngSrc)
	}
}

// --- accessors for external packages (simplify, evo) --------------------

// Kind returns the kind stored at slot.
func (r *Root) Kind(slot int) nodekind.Kind { return r.get(slot).Kind }

// Scalar returns the leaf value stored at slot.
func (r *Root) Scalar(slot int) float64 { return r.get(slot).Val.Scalar }

// SetScalar overwrites a leaf's value in place (used by constant-fold
// rewrites and by the fitness loop's direct constant writes).
func (r *Root) SetScalar(slot int, v float64) {
	n := r.get(slot)
	n.Val = value.Value{Scalar: v, IsSet: true}
}

// Child returns slot's i'th child, or noSlot if it has none.
func (r *Root) Child(slot, i int) int {
	n := r.get(slot)
	if i < 0 || i > 1 {
		return noSlot
	}
	return n.Child[i]
}

// Arity returns the fixed arity of the kind stored at slot.
func (r *Root) Arity(slot int) int { return nodekind.Arity(r.get(slot).Kind) }

// Parent returns slot's parent, or noSlot at the root.
func (r *Root) Parent(slot int) int { return r.get(slot).Parent }

// NoSlot is the sentinel "no such slot" value, exposed for comparison
// by callers outside this package.
const NoSlot = noSlot

// FreeNode releases just slot's own slot without recursing into its
// children — the "free" primitive of §3's Lifecycles, as opposed to the
// recursive "free_all" that Discard performs.
func (r *Root) FreeNode(slot int) { r.pool.Deallocate(slot) }

// Discard frees slot and its entire subtree. Used once a rewrite or
// graft has fully replaced a subtree and the original is no longer
// reachable from anywhere.
func (r *Root) Discard(slot int) { r.freeSubtree(slot) }

// ReplaceChild installs newChild as parent's childIndex'th child and
// relinks newChild's parent pointer; if parent is noSlot, newChild
// becomes the tree's root instead.
func (r *Root) ReplaceChild(parent, childIndex, newChild int) {
	if parent == noSlot {
		r.rootSlot = newChild
	} else {
		r.get(parent).Child[childIndex] = newChild
	}
	if newChild != noSlot {
		r.get(newChild).Parent = parent
	}
}

// --- validation ------------------------------------------------------

// Validate checks the structural invariants of §3 and returns a
// human-readable issue per violation found (empty when the tree is
// sound). These are diagnostics only (§7.4): a non-empty result
// indicates a bug to log, not a condition the caller must recover from.
func (r *Root) Validate() []string {
	var issues []string
	if r.rootSlot == noSlot {
		return issues
	}
	root := r.get(r.rootSlot)
	if root.Parent != noSlot {
		issues = append(issues, "root node has non-nil parent")
	}
	r.walk(r.rootSlot, func(slot int, n *node) {
		wantArity := nodekind.Arity(n.Kind)
		switch {
		case nodekind.IsLeaf(n.Kind):
			if !n.Val.IsSet {
				issues = append(issues, fmt.Sprintf("slot %d: unset leaf value", slot))
			}
			if n.Kind == nodekind.Variable {
				idx := int(n.Val.Scalar)
				if idx < 0 || idx >= r.NumVars {
					issues = append(issues, fmt.Sprintf("slot %d: variable index %d out of range", slot, idx))
				}
			}
		case n.Kind == nodekind.None || n.Kind == nodekind.RandomOp || n.Kind == nodekind.RandomVar:
			issues = append(issues, fmt.Sprintf("slot %d: sentinel kind %s in constructed tree", slot, n.Kind))
		default:
			for i := 0; i < wantArity; i++ {
				c := n.Child[i]
				if c == noSlot {
					issues = append(issues, fmt.Sprintf("slot %d: missing child %d", slot, i))
					continue
				}
				if r.get(c).Parent != slot {
					issues = append(issues, fmt.Sprintf("slot %d: child %d has mismatched parent link", slot, i))
				}
			}
		}
	})
	return issues
}
