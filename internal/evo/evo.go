// Package evo implements the outer generational loop of spec §4.7: it
// owns the population of roots, drives repopulation, parallel scoring,
// the inner fitness pass, simplification, and parsimony reweighting
// each generation, and decides when to stop. It is grounded on the
// original's evolution.cpp main loop, reshaped around config.Parameters
// and the dispatch.Dispatcher built earlier in this module.
package evo

import (
	"context"
	"math"
	"sort"

	"symreg/internal/config"
	"symreg/internal/dispatch"
	"symreg/internal/exprparser"
	"symreg/internal/fitness"
	"symreg/internal/pool"
	"symreg/internal/rng"
	"symreg/internal/scoring"
	"symreg/internal/simplify"
	"symreg/internal/tree"
)

// Logger receives one call per generation plus a final call, matching
// §6's "per generation, a log line with the best tree's form, score,
// and complexity" output contract. internal/evolog implements this; a
// nil Logger silently skips logging.
type Logger interface {
	Generation(gen int, best *tree.Root, rawRMS float64)
	Final(best *tree.Root, rawRMS float64, generations int)
}

// Visualizer receives the best tree's sample points each generation, the
// original's VisualEvo::Graph::drawAdd contract. A nil Visualizer is a
// no-op.
type Visualizer interface {
	DrawAdd(label string, points [][2]float64)
}

// Summary is the record a completed run leaves behind for
// internal/runstore; it deliberately excludes population state (§1
// Non-goals forbid persisting populations).
type Summary struct {
	RunID       string
	BestForm    string
	RawRMS      float64
	Complexity  float64
	Generations int
}

// RunStore persists a Summary once a run completes. A nil RunStore is a
// no-op.
type RunStore interface {
	SaveRun(ctx context.Context, s Summary) error
}

// Engine owns one run's population and drives it to completion.
type Engine struct {
	Params *config.Parameters
	Data   scoring.Dataset
	RNG    *rng.Source
	RunID  string

	Logger     Logger
	Visualizer Visualizer
	RunStore   RunStore

	dispatcher *dispatch.Dispatcher
	population []*tree.Root
	shadows    []*tree.Root
	history    []float64
}

// historyDepth bounds the "bounded score history" of §4.7 step 8.
const historyDepth = 20

// New builds an Engine ready for Run. data must already be loaded
// (internal/csvdata) and params resolved (internal/config).
func New(params *config.Parameters, data scoring.Dataset, rngSrc *rng.Source, runID string) *Engine {
	return &Engine{
		Params:     params,
		Data:       data,
		RNG:        rngSrc,
		RunID:      runID,
		dispatcher: dispatch.New(params.SingleThreaded),
	}
}

// Run drives the outer loop to completion and returns the best tree
// found, per §4.7's initial-state and per-generation pipeline. The
// caller owns the returned root and must Free it.
func (e *Engine) Run(ctx context.Context) (*tree.Root, error) {
	if err := e.initialize(ctx); err != nil {
		return nil, err
	}

	gen := 0
	for {
		if err := e.repopulate(ctx); err != nil {
			return nil, err
		}
		if err := e.scorePhase(ctx, e.Data); err != nil {
			return nil, err
		}
		e.sortPopulation()

		if err := e.innerFitnessPhase(ctx); err != nil {
			return nil, err
		}
		e.populationCopySafeguard()

		if err := e.simplifyComplexityScorePhase(ctx); err != nil {
			return nil, err
		}
		e.sortPopulation()
		e.parsimonyReweight()
		e.sortPopulation()

		best := e.population[0]
		e.recordHistory(best.Score)
		if e.Logger != nil {
			e.Logger.Generation(gen, best, e.rawRMS(best))
		}
		if e.Visualizer != nil {
			e.Visualizer.DrawAdd(best.String(), e.samplePlot(best))
		}

		gen++
		if e.terminated(gen) {
			break
		}
	}

	best := e.population[0]
	if e.Logger != nil {
		e.Logger.Final(best, e.rawRMS(best), gen)
	}
	if e.RunStore != nil {
		_ = e.RunStore.SaveRun(ctx, Summary{
			RunID:       e.RunID,
			BestForm:    best.String(),
			RawRMS:      e.rawRMS(best),
			Complexity:  best.Complexity,
			Generations: gen,
		})
	}

	e.freeAllExcept(0)
	return best, nil
}

func (e *Engine) rawRMS(r *tree.Root) float64 {
	p := e.Params
	return scoring.RMS(r, e.Data, p.UseRMSClamp, p.MinRMSClamp, p.MaxRMSClamp, p.UseSqrtRMS)
}

func (e *Engine) samplePlot(r *tree.Root) [][2]float64 {
	n := len(e.Data.Points)
	if n == 0 {
		return nil
	}
	pts := make([][2]float64, n)
	for i, row := range e.Data.Points {
		x := 0.0
		if len(row) > 0 {
			x = row[0]
		}
		pts[i] = [2]float64{x, r.Compute(row)}
	}
	return pts
}

// initialize allocates popSize roots: root 0 tries precalculatedTree,
// every other slot (and root 0 on parse failure) gets a random operator
// plus three mutate_add steps (§4.7 "Initial state").
func (e *Engine) initialize(ctx context.Context) error {
	p := e.Params
	e.population = make([]*tree.Root, p.PopulationSize)
	for i := range e.population {
		e.population[i] = e.freshRoot(i)
	}
	if err := e.scorePhase(ctx, e.Data); err != nil {
		return err
	}
	e.sortPopulation()

	if len(p.VariableDescriptors) > 0 {
		e.shadows = make([]*tree.Root, p.PopulationSize)
		for i := range e.shadows {
			e.shadows[i] = tree.NewEmpty(e.Data.NumVars)
		}
	}
	return nil
}

func (e *Engine) freshRoot(slot int) *tree.Root {
	p := e.Params
	if slot == 0 && p.PrecalculatedTree != "" {
		r, err := exprparser.Parse(p.PrecalculatedTree, e.Data.NumVars, p.Operators)
		if err == nil {
			return r
		}
	}
	return tree.RandomTree(e.Data.NumVars, e.RNG, p.Operators)
}

// repopulate implements §4.7 step 1.
func (e *Engine) repopulate(ctx context.Context) error {
	p := e.Params
	n := len(e.population)
	cutoff := roundRatio(n, p.SurvivalRatio)
	if cutoff >= n {
		return nil
	}

	err := e.dispatcher.Run(ctx, cutoff, n, func(_ context.Context, i int) error {
		a := e.selectParent(cutoff)
		b := e.selectParent(cutoff)
		parentA := e.population[a]
		parentB := e.population[b]

		old := e.population[i]
		child := tree.NewEmpty(e.Data.NumVars)
		parentA.CopyWithGraft(child, parentA.RandomNode(e.RNG), parentB, parentB.RandomNode(e.RNG))
		old.Free()
		e.population[i] = child

		if e.RNG.Chance(p.MutationChance) {
			child.Mutate(p.MutationCount, e.RNG, e.mutateParams())
		}
		child.RecomputeForm()
		return nil
	})
	if err != nil {
		return err
	}

	e.removeDuplicates(cutoff)
	return nil
}

func (e *Engine) selectParent(cutoff int) int {
	if cutoff <= 0 {
		return 0
	}
	p := e.Params
	if p.WeighedMutation {
		return e.RNG.WeightedIndex(cutoff, p.WeightChance)
	}
	return e.RNG.IntN(cutoff)
}

func (e *Engine) mutateParams() tree.MutateParams {
	p := e.Params
	return tree.MutateParams{
		ChangeChance: p.ChangeChance,
		Change: tree.ChangeParams{
			OperatorChance: p.OperatorChance,
			ConstantChance: p.ConstantChance,
			Operators:      p.Operators,
			DecimalPlaces:  p.DecimalPrecision,
			MinConstant:    p.MinConstant,
			MaxConstant:    p.MaxConstant,
		},
	}
}

// removeDuplicates implements the duplicate-form sweep closing out §4.7
// step 1: up to maxDuplicateRemoval passes over [cutoff, n), re-mutating
// one of any two slots sharing a form.
func (e *Engine) removeDuplicates(cutoff int) {
	p := e.Params
	n := len(e.population)
	for pass := 0; pass < p.MaxDuplicateRemoval; pass++ {
		seen := make(map[string]int, n-cutoff)
		found := false
		for i := cutoff; i < n; i++ {
			r := e.population[i]
			if _, dup := seen[r.Form()]; dup {
				r.Mutate(3, e.RNG, e.mutateParams())
				r.RecomputeForm()
				found = true
				continue
			}
			seen[r.Form()] = i
		}
		if !found {
			break
		}
	}
}

// scorePhase implements §4.7 step 2: parallel RMS against d.
func (e *Engine) scorePhase(ctx context.Context, d scoring.Dataset) error {
	p := e.Params
	return dispatch.RunOverSlots(e.dispatcher, ctx, e.population, func(_ context.Context, _ int, r *tree.Root) error {
		r.Score = scoring.RMS(r, d, p.UseRMSClamp, p.MinRMSClamp, p.MaxRMSClamp, p.UseSqrtRMS)
		return nil
	})
}

func (e *Engine) sortPopulation() {
	sort.Slice(e.population, func(i, j int) bool {
		return e.population[i].Score < e.population[j].Score
	})
}

// innerFitnessPhase implements §4.7 step 4: fitness.Refine on the top
// cutoff roots, in parallel.
func (e *Engine) innerFitnessPhase(ctx context.Context) error {
	p := e.Params
	cutoff := roundRatio(len(e.population), p.SurvivalRatio)
	if cutoff <= 0 {
		return nil
	}
	top := e.population[:cutoff]
	fp := fitness.Params{
		Enabled:        p.Fitness.Enabled,
		SampleRatio:    p.Fitness.SampleRatio,
		PopulationSize: p.Fitness.PopulationSize,
		IterationCount: p.Fitness.IterationCount,
		SurvivalRatio:  p.Fitness.SurvivalRatio,
		ChangeChance:   p.Fitness.ChangeChance,
		UseRMSClamp:    p.UseRMSClamp,
		MinRMSClamp:    p.MinRMSClamp,
		MaxRMSClamp:    p.MaxRMSClamp,
		UseSqrtRMS:     p.UseSqrtRMS,
	}
	return dispatch.RunOverSlots(e.dispatcher, ctx, top, func(_ context.Context, _ int, r *tree.Root) error {
		r.Score = fitness.Refine(r, e.Data, e.RNG, fp)
		return nil
	})
}

// populationCopySafeguard implements §4.7 step 5.
func (e *Engine) populationCopySafeguard() {
	n := len(e.population)
	save := e.Params.PopulationCopyCount
	if save <= 0 || save > n {
		return
	}
	for i := 0; i < save; i++ {
		tail := n - save + i
		if tail <= i {
			continue
		}
		old := e.population[tail]
		clone := tree.NewEmpty(e.Data.NumVars)
		e.population[i].Copy(clone)
		clone.Score = e.population[i].Score
		clone.Complexity = e.population[i].Complexity
		old.Free()
		e.population[tail] = clone
	}
}

// simplifyComplexityScorePhase implements §4.7 step 6.
func (e *Engine) simplifyComplexityScorePhase(ctx context.Context) error {
	p := e.Params
	return dispatch.RunOverSlots(e.dispatcher, ctx, e.population, func(_ context.Context, idx int, r *tree.Root) error {
		simplify.FixedPoint(r, p.DenySimplifyKind)
		r.RecomputeForm()
		if len(p.VariableDescriptors) > 0 {
			r.Complexity = scoring.ComplexityWithDescriptors(r, p.ComplexityWeights, defaultComplexity, p.VariableDescriptors, e.shadows[idx], func(shadow *tree.Root) {
				simplify.FixedPoint(shadow, p.DenySimplifyKind)
			})
		} else {
			r.Complexity = scoring.Complexity(r, p.ComplexityWeights, defaultComplexity)
		}
		r.Score = scoring.RMS(r, e.Data, p.UseRMSClamp, p.MinRMSClamp, p.MaxRMSClamp, p.UseSqrtRMS)
		return nil
	})
}

// defaultComplexity is the table-miss fallback weight (§4.6 "falls back
// to default_complexity"); the original exposes this as a constant
// rather than a configuration option.
const defaultComplexity = 2.0

// parsimonyReweight implements §4.6's reweighting formula.
func (e *Engine) parsimonyReweight() {
	p := e.Params
	n := len(e.population)
	if n == 0 {
		return
	}
	idx := int(float64(n) * p.SurvivalRatio)
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	minScore := e.population[idx].Score
	if minScore == 0 || math.IsInf(minScore, 0) {
		minScore = 1
	}
	a := p.ParsimonyRatio
	for _, r := range e.population {
		accTerm := a * (r.Score / minScore)
		complexityPenalty := math.Max(0, (r.Complexity-p.TargetComplexity)/p.TargetComplexity)
		r.Score = accTerm + (1-a)*complexityPenalty
	}
}

func (e *Engine) recordHistory(score float64) {
	e.history = append([]float64{score}, e.history...)
	if len(e.history) > historyDepth {
		e.history = e.history[:historyDepth]
	}
}

// terminated implements §4.7 step 9. It re-scores the best tree's raw
// RMS since population[0].Score may already carry the parsimony
// reweighting, not the unweighted accuracy the termination test needs.
func (e *Engine) terminated(gen int) bool {
	p := e.Params
	if gen >= p.GenerationCount {
		return true
	}
	best := e.population[0]
	return e.rawRMS(best) <= p.AccuracyCompletion
}

func (e *Engine) freeAllExcept(keep int) {
	for i, r := range e.population {
		if i == keep {
			continue
		}
		r.Free()
	}
	for _, s := range e.shadows {
		if s != nil {
			s.Free()
		}
	}
}

func roundRatio(n int, ratio float64) int {
	v := int(math.Round(float64(n) * ratio))
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}

// EstimatePoolBytes reproduces the original's pre-flight memory estimate
// (parameters.cpp's pool size hint) from the configured population size
// and initial-tree shape: a fresh random tree starts as one operator
// node plus three mutate_add wraps, so roughly 1+3*2=7 nodes rounded up
// to full slabs, doubled when variable descriptors require a parallel
// shadow population (§4.7).
func EstimatePoolBytes(p *config.Parameters) int64 {
	const approxNodesPerTree = 7
	const approxBytesPerSlot = 96 // node payload + pool.Slot bookkeeping, interface-boxed

	slabsPerTree := (approxNodesPerTree + pool.SlabSize - 1) / pool.SlabSize
	if slabsPerTree < 1 {
		slabsPerTree = 1
	}
	perTree := int64(slabsPerTree) * int64(pool.SlabSize) * approxBytesPerSlot
	total := perTree * int64(p.PopulationSize)
	if len(p.VariableDescriptors) > 0 {
		total *= 2
	}
	return total
}
