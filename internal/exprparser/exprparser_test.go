package exprparser

import (
	"testing"

	"symreg/internal/nodekind"
)

var allOps = []nodekind.Kind{
	nodekind.Add, nodekind.Subtract, nodekind.Multiply, nodekind.Divide,
	nodekind.Power, nodekind.Sin, nodekind.Cos, nodekind.Tan, nodekind.Abs,
	nodekind.Negative, nodekind.Inverse,
}

func TestParseSimpleOperator(t *testing.T) {
	r, err := Parse("add(var0, var1)", 2, allOps)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer r.Free()
	if got := r.Compute([]float64{2, 3}); got != 5 {
		t.Errorf("Compute() = %v, want 5", got)
	}
}

func TestParseUnary(t *testing.T) {
	r, err := Parse("sin(var0)", 1, allOps)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer r.Free()
	if got := r.Compute([]float64{0}); got != 0 {
		t.Errorf("Compute(sin(0)) = %v, want 0", got)
	}
}

func TestParseNestedExpression(t *testing.T) {
	r, err := Parse("mul(add(var0, 1), var1)", 2, allOps)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer r.Free()
	if got := r.Compute([]float64{2, 3}); got != 9 {
		t.Errorf("Compute((var0+1)*var1) = %v, want 9", got)
	}
}

func TestParseNegativeConstant(t *testing.T) {
	r, err := Parse("-3.5", 0, allOps)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer r.Free()
	if got := r.Compute(nil); got != -3.5 {
		t.Errorf("Compute(-3.5) = %v, want -3.5", got)
	}
}

func TestParseVariableOutOfRangeFails(t *testing.T) {
	_, err := Parse("var5", 2, allOps)
	if err == nil {
		t.Fatal("Parse() expected error for out-of-range variable, got nil")
	}
}

func TestParseUnknownOperatorFails(t *testing.T) {
	_, err := Parse("bogus(var0)", 1, allOps)
	if err == nil {
		t.Fatal("Parse() expected error for unknown operator, got nil")
	}
}

func TestParseDisallowedOperatorFails(t *testing.T) {
	_, err := Parse("sin(var0)", 1, []nodekind.Kind{nodekind.Add})
	if err == nil {
		t.Fatal("Parse() expected error for disallowed operator, got nil")
	}
}

func TestParseMissingParenFails(t *testing.T) {
	_, err := Parse("add(var0, var1", 2, allOps)
	if err == nil {
		t.Fatal("Parse() expected error for unterminated expression, got nil")
	}
}

func TestParseTrailingGarbageFails(t *testing.T) {
	_, err := Parse("var0 extra", 1, allOps)
	if err == nil {
		t.Fatal("Parse() expected error for trailing input, got nil")
	}
}

func TestParseMalformedNumberFails(t *testing.T) {
	_, err := Parse("add(var0, .)", 1, allOps)
	if err == nil {
		t.Fatal("Parse() expected error for malformed constant, got nil")
	}
}

func TestParseRoundTripsThroughString(t *testing.T) {
	r, err := Parse("div(var0, var1)", 2, allOps)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer r.Free()
	s := r.String()
	r2, err := Parse(s, 2, allOps)
	if err != nil {
		t.Fatalf("re-Parse(%q) error = %v", s, err)
	}
	defer r2.Free()
	if r2.Compute([]float64{10, 2}) != 5 {
		t.Errorf("round-tripped tree computed wrong value")
	}
}
