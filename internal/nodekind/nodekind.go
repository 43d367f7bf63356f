// Package nodekind defines the closed set of expression-tree node kinds,
// their fixed arity, and their canonical string names.
package nodekind

// Kind identifies the function (or leaf role) a tree node plays.
// RANDOM_OP and RANDOM_VAR are construction-time sentinels: they select a
// concrete kind when a node is built and must never survive into a
// constructed tree. NONE is never a valid constructed kind.
type Kind int

const (
	None Kind = iota
	RandomOp
	RandomVar
	Constant
	Variable
	Inverse
	Negative
	Add
	Subtract
	Multiply
	Divide
	Power
	Abs
	Sin
	Cos
	Tan
)

var names = map[Kind]string{
	None:      "none",
	RandomOp:  "random_op",
	RandomVar: "random_var",
	Constant:  "const",
	Variable:  "var",
	Inverse:   "inv",
	Negative:  "neg",
	Add:       "add",
	Subtract:  "sub",
	Multiply:  "mul",
	Divide:    "div",
	Power:     "pow",
	Abs:       "abs",
	Sin:       "sin",
	Cos:       "cos",
	Tan:       "tan",
}

var byName = func() map[string]Kind {
	m := make(map[string]Kind, len(names))
	for k, v := range names {
		m[v] = k
	}
	return m
}()

// arity is fixed per kind; leaves (Constant, Variable) have arity 0.
var arity = map[Kind]int{
	Constant: 0,
	Variable: 0,
	Inverse:  1,
	Negative: 1,
	Abs:      1,
	Sin:      1,
	Cos:      1,
	Tan:      1,
	Add:      2,
	Subtract: 2,
	Multiply: 2,
	Divide:   2,
	Power:    2,
}

// Arity returns the fixed child count for kind. Sentinel and None kinds
// report 0 since they never carry children of their own.
func Arity(k Kind) int {
	return arity[k]
}

// IsLeaf reports whether k is a variable or constant leaf.
func IsLeaf(k Kind) bool {
	return k == Constant || k == Variable
}

// IsUnary reports whether k takes exactly one operand.
func IsUnary(k Kind) bool {
	return arity[k] == 1
}

// IsBinary reports whether k takes exactly two operands.
func IsBinary(k Kind) bool {
	return arity[k] == 2
}

// String returns the canonical lowercase name used in the parser grammar
// and in a tree's structural form and string representation.
func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown"
}

// Lookup resolves an operator name (as accepted by the string grammar)
// back to its Kind. ok is false for unknown names, "none", RandomOp/RandomVar, or
// the leaf names "const"/"var" (those are handled by the parser directly
// since they carry payload, not by name lookup alone).
func Lookup(name string) (Kind, bool) {
	k, ok := byName[name]
	if !ok || k == None || k == RandomOp || k == RandomVar || IsLeaf(k) {
		return None, false
	}
	return k, true
}

// Operators is the canonical enumeration of operator kinds (excludes
// leaves and sentinels), in table order. Used as the default
// operatorFunctions set and for random operator selection.
var Operators = []Kind{Inverse, Negative, Add, Subtract, Multiply, Divide, Power, Abs, Sin, Cos, Tan}
