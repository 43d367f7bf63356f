package rng

import "testing"

func TestFloat64Range(t *testing.T) {
	s := New(42)
	for i := 0; i < 1000; i++ {
		v := s.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64() = %v, want [0,1)", v)
		}
	}
}

func TestIntNRange(t *testing.T) {
	s := New(7)
	for i := 0; i < 1000; i++ {
		v := s.IntN(5)
		if v < 0 || v >= 5 {
			t.Fatalf("IntN(5) = %d, want [0,5)", v)
		}
	}
}

func TestChanceExtremes(t *testing.T) {
	s := New(1)
	for i := 0; i < 100; i++ {
		if s.Chance(100) == false {
			t.Fatal("Chance(100) must always succeed")
		}
	}
	for i := 0; i < 100; i++ {
		if s.Chance(0) == true {
			t.Fatal("Chance(0) must never succeed")
		}
	}
}

func TestIntRangeInclusive(t *testing.T) {
	s := New(3)
	for i := 0; i < 500; i++ {
		v := s.IntRange(2, 5)
		if v < 2 || v > 5 {
			t.Fatalf("IntRange(2,5) = %d, want [2,5]", v)
		}
	}
	if got := s.IntRange(4, 4); got != 4 {
		t.Errorf("IntRange(4,4) = %d, want 4", got)
	}
}

func TestWeightedIndexFallback(t *testing.T) {
	s := New(9)
	idx := s.WeightedIndex(5, 0)
	if idx != 0 {
		t.Errorf("WeightedIndex with 0%% chance = %d, want 0 (no success falls back to 0)", idx)
	}
}

func TestPermutationIsBijection(t *testing.T) {
	s := New(11)
	p := s.Permutation(10)
	seen := make([]bool, 10)
	for _, v := range p {
		if v < 0 || v >= 10 || seen[v] {
			t.Fatalf("Permutation(10) produced invalid/duplicate value %d", v)
		}
		seen[v] = true
	}
}

func TestReproducibleWithSameSeed(t *testing.T) {
	a := New(123)
	b := New(123)
	for i := 0; i < 20; i++ {
		if a.Float64() != b.Float64() {
			t.Fatal("two Sources seeded identically must draw identically")
		}
	}
}
