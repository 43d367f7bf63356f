package pool

import "testing"

func TestAllocateGetSet(t *testing.T) {
	p := New()
	idx := p.Allocate(42)
	if got := p.Get(idx); got != 42 {
		t.Errorf("Get(idx) = %v, want 42", got)
	}
	p.Set(idx, 43)
	if got := p.Get(idx); got != 43 {
		t.Errorf("Get(idx) after Set = %v, want 43", got)
	}
}

func TestDeallocateThenGetReturnsNil(t *testing.T) {
	p := New()
	idx := p.Allocate("x")
	p.Deallocate(idx)
	if got := p.Get(idx); got != nil {
		t.Errorf("Get(idx) after Deallocate = %v, want nil", got)
	}
}

func TestDeallocateTwiceIsNoop(t *testing.T) {
	p := New()
	idx := p.Allocate("x")
	p.Deallocate(idx)
	before := p.Live()
	p.Deallocate(idx)
	if after := p.Live(); after != before {
		t.Errorf("double Deallocate changed Live() from %d to %d", before, after)
	}
}

func TestLiveCounts(t *testing.T) {
	p := New()
	if p.Live() != 0 {
		t.Fatalf("new pool Live() = %d, want 0", p.Live())
	}
	a := p.Allocate(1)
	p.Allocate(2)
	if p.Live() != 2 {
		t.Errorf("Live() = %d, want 2", p.Live())
	}
	p.Deallocate(a)
	if p.Live() != 1 {
		t.Errorf("Live() after one Deallocate = %d, want 1", p.Live())
	}
}

func TestGrowPastSlabSize(t *testing.T) {
	p := New()
	idxs := make([]int, SlabSize+5)
	for i := range idxs {
		idxs[i] = p.Allocate(i)
	}
	for i, idx := range idxs {
		if got := p.Get(idx); got != i {
			t.Fatalf("Get(idxs[%d]) = %v, want %d", i, got, i)
		}
	}
	if p.Live() != int64(len(idxs)) {
		t.Errorf("Live() = %d, want %d", p.Live(), len(idxs))
	}
}

func TestFreeListReuse(t *testing.T) {
	p := New()
	a := p.Allocate("a")
	p.Deallocate(a)
	b := p.Allocate("b")
	if b != a {
		t.Errorf("Allocate after Deallocate reused slot %d, got new slot %d", a, b)
	}
}

func TestGetOutOfRangeReturnsNil(t *testing.T) {
	p := New()
	if got := p.Get(-1); got != nil {
		t.Errorf("Get(-1) = %v, want nil", got)
	}
	if got := p.Get(10000); got != nil {
		t.Errorf("Get(10000) = %v, want nil", got)
	}
}

func TestTotalLiveTracksAcrossPools(t *testing.T) {
	before := TotalLive()
	p1 := New()
	p2 := New()
	p1.Allocate(1)
	p2.Allocate(2)
	p2.Allocate(3)
	if got := TotalLive(); got != before+3 {
		t.Errorf("TotalLive() = %d, want %d", got, before+3)
	}
	p1.Release()
	p2.Release()
	if got := TotalLive(); got != before {
		t.Errorf("TotalLive() after Release = %d, want %d", got, before)
	}
}

func TestReleaseClearsLive(t *testing.T) {
	p := New()
	p.Allocate(1)
	p.Allocate(2)
	p.Release()
	if p.Live() != 0 {
		t.Errorf("Live() after Release = %d, want 0", p.Live())
	}
}
