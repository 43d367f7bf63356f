package value

import (
	"math"
	"testing"
)

func TestClampBelowMinCollapsesToZero(t *testing.T) {
	if got := Clamp(0.05, 2, 0.1, 100); got != 0 {
		t.Errorf("Clamp(0.05) = %v, want 0", got)
	}
}

func TestClampAboveMaxSaturates(t *testing.T) {
	if got := Clamp(500, 2, 0.1, 100); !math.IsInf(got, 1) {
		t.Errorf("Clamp(500) = %v, want +Inf", got)
	}
	if got := Clamp(-500, 2, 0.1, 100); !math.IsInf(got, -1) {
		t.Errorf("Clamp(-500) = %v, want -Inf", got)
	}
}

func TestClampRoundsToDecimalPlaces(t *testing.T) {
	if got := Clamp(1.23456, 2, 0.1, 100); got != 1.23 {
		t.Errorf("Clamp(1.23456, 2 places) = %v, want 1.23", got)
	}
}

func TestClampPreservesSign(t *testing.T) {
	if got := Clamp(-1.23456, 2, 0.1, 100); got != -1.23 {
		t.Errorf("Clamp(-1.23456, 2 places) = %v, want -1.23", got)
	}
}

func TestClampNaNPassesThrough(t *testing.T) {
	got := Clamp(math.NaN(), 2, 0.1, 100)
	if !math.IsNaN(got) {
		t.Errorf("Clamp(NaN) = %v, want NaN", got)
	}
}

func TestUnsetIsZeroValue(t *testing.T) {
	if Unset.IsSet || Unset.Scalar != 0 {
		t.Errorf("Unset = %+v, want zero value", Unset)
	}
}
