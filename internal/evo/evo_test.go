package evo

import (
	"context"
	"testing"

	"symreg/internal/config"
	"symreg/internal/nodekind"
	"symreg/internal/rng"
	"symreg/internal/scoring"
	"symreg/internal/tree"
)

func TestRoundRatio(t *testing.T) {
	tests := []struct {
		n     int
		ratio float64
		want  int
	}{
		{100, 0.05, 5},
		{10, 0, 0},
		{10, 1, 10},
		{10, 1.5, 10},
		{10, -1, 0},
	}
	for _, tt := range tests {
		if got := roundRatio(tt.n, tt.ratio); got != tt.want {
			t.Errorf("roundRatio(%d, %v) = %d, want %d", tt.n, tt.ratio, got, tt.want)
		}
	}
}

func TestEstimatePoolBytesScalesWithPopulation(t *testing.T) {
	p := config.DefaultParameters()
	p.PopulationSize = 100
	small := EstimatePoolBytes(p)
	p.PopulationSize = 200
	large := EstimatePoolBytes(p)
	if large != 2*small {
		t.Errorf("EstimatePoolBytes did not scale linearly: small=%d large=%d", small, large)
	}
}

func TestEstimatePoolBytesDoublesWithDescriptors(t *testing.T) {
	p := config.DefaultParameters()
	p.PopulationSize = 50
	without := EstimatePoolBytes(p)
	d := tree.NewEmpty(1)
	d.SetRootSlot(d.NewConstantLeaf(tree.NoSlot, 1))
	p.VariableDescriptors = map[int]*tree.Root{0: d}
	with := EstimatePoolBytes(p)
	if with != 2*without {
		t.Errorf("EstimatePoolBytes with descriptors = %d, want %d (2x)", with, 2*without)
	}
}

func newTestEngine() *Engine {
	p := config.DefaultParameters()
	p.PopulationSize = 12
	p.GenerationCount = 3
	p.SingleThreaded = true
	p.AccuracyCompletion = -1 // never stop early on accuracy
	p.Operators = []nodekind.Kind{nodekind.Add, nodekind.Multiply, nodekind.Subtract}

	pts := make([][]float64, 8)
	res := make([]float64, 8)
	for i := range pts {
		x := float64(i)
		pts[i] = []float64{x}
		res[i] = 2*x + 1
	}
	data := scoring.Dataset{Points: pts, Results: res, NumVars: 1}
	return New(p, data, rng.New(42), "test-run")
}

func TestParsimonyReweightPenalizesComplexity(t *testing.T) {
	e := newTestEngine()
	simple := tree.NewEmpty(1)
	simple.SetRootSlot(simple.NewVariableLeaf(tree.NoSlot, 0))
	simple.Score = 1
	simple.Complexity = 0
	defer simple.Free()

	complexTree := tree.NewEmpty(1)
	complexTree.SetRootSlot(complexTree.NewVariableLeaf(tree.NoSlot, 0))
	complexTree.Score = 1
	complexTree.Complexity = 1000
	defer complexTree.Free()

	e.population = []*tree.Root{simple, complexTree}
	e.parsimonyReweight()

	if complexTree.Score <= simple.Score {
		t.Errorf("parsimonyReweight did not penalize complexity: simple=%v complex=%v", simple.Score, complexTree.Score)
	}
}

func TestRunProducesValidBestTree(t *testing.T) {
	e := newTestEngine()
	best, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	defer best.Free()

	if issues := best.Validate(); len(issues) != 0 {
		t.Errorf("Run() returned an invalid tree: %v", issues)
	}
	if best.RootSlot() == tree.NoSlot {
		t.Error("Run() returned a tree with no root")
	}
}

type recordingLogger struct {
	generations int
	finalCalled bool
}

func (l *recordingLogger) Generation(gen int, best *tree.Root, rawRMS float64) { l.generations++ }
func (l *recordingLogger) Final(best *tree.Root, rawRMS float64, generations int) {
	l.finalCalled = true
}

func TestRunInvokesLoggerEveryGeneration(t *testing.T) {
	e := newTestEngine()
	logger := &recordingLogger{}
	e.Logger = logger

	best, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	defer best.Free()

	if logger.generations != e.Params.GenerationCount {
		t.Errorf("Logger.Generation called %d times, want %d", logger.generations, e.Params.GenerationCount)
	}
	if !logger.finalCalled {
		t.Error("Logger.Final was never called")
	}
}
