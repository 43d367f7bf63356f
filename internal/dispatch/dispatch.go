// Package dispatch implements the parallel work dispatcher of spec
// §4.10: a phase fans out across T workers with interleaved indexing
// (worker k visits start+k, start+k+T, start+k+2T, ...) and the call
// blocks until every worker returns. It is grounded on the teacher's
// internal/concurrency worker-pool pattern, generalized to use
// golang.org/x/sync/errgroup so a worker's returned error cancels its
// siblings instead of being silently dropped. Panics are not recovered
// here.
package dispatch

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Dispatcher holds the thread count a phase runs with. It never
// overlaps phases: Run blocks until every worker in this call finishes
// before the caller starts the next phase (§5 "phases do not overlap").
type Dispatcher struct {
	Threads int
}

// New picks T = runtime.NumCPU(), forced to 1 when singleThreaded is
// set, per §4.10.
func New(singleThreaded bool) *Dispatcher {
	t := runtime.NumCPU()
	if singleThreaded || t < 1 {
		t = 1
	}
	return &Dispatcher{Threads: t}
}

// Indexed is the per-index unit of work a phase dispatches.
type Indexed func(ctx context.Context, index int) error

// Run spawns d.Threads workers over [start, stop) with interleaved
// indexing and waits for all of them. The dispatcher does not
// serialize access to whatever fn touches; fn must only touch state
// local to its index (§4.10's "workers must avoid touching other
// workers' slots").
func (d *Dispatcher) Run(ctx context.Context, start, stop int, fn Indexed) error {
	if stop <= start {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for k := 0; k < d.Threads; k++ {
		k := k
		g.Go(func() error {
			for idx := start + k; idx < stop; idx += d.Threads {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				if err := fn(gctx, idx); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// Completable is implemented by anything carrying §4.10's per-slot
// completion flag (tree.Root does).
type Completable interface {
	SetComplete(bool)
}

// RunOverSlots clears every slot's completion flag, runs fn over
// [0, len(slots)) via Run, and marks each visited slot complete
// afterward, matching §4.10's "Each slot the worker visits must have
// its complete flag cleared beforehand; the worker sets it after
// processing."
func RunOverSlots[T Completable](d *Dispatcher, ctx context.Context, slots []T, fn func(ctx context.Context, index int, slot T) error) error {
	for _, s := range slots {
		s.SetComplete(false)
	}
	return d.Run(ctx, 0, len(slots), func(ctx context.Context, idx int) error {
		if err := fn(ctx, idx, slots[idx]); err != nil {
			return err
		}
		slots[idx].SetComplete(true)
		return nil
	})
}
