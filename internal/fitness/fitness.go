// Package fitness implements the inner constant-refinement loop of spec
// §4.8: a small differential-like evolution over a single root's
// constant-leaf values, scored against a random subsample of the
// dataset. Params mirrors config.Parameters' fitnessAlgo group without
// this package depending on internal/config directly, matching the
// tree package's own ChangeParams/MutateParams pattern (§9 "parameters
// passed explicitly, never a package global").
package fitness

import (
	"math"
	"sort"

	"symreg/internal/rng"
	"symreg/internal/scoring"
	"symreg/internal/tree"
)

// Params bundles the inner loop's knobs plus the RMS shaping options it
// needs to score candidates (config's top-level useRMSClamp/useSqrtRMS
// group applies to the inner loop too, §4.8).
type Params struct {
	Enabled        bool
	SampleRatio    float64
	PopulationSize int
	IterationCount int
	SurvivalRatio  float64
	ChangeChance   float64

	UseRMSClamp bool
	MinRMSClamp float64
	MaxRMSClamp float64
	UseSqrtRMS  bool
}

// Refine runs the inner loop on r's constant leaves against full,
// writes the best candidate's values back into the tree, and returns
// that candidate's score (measured on the same subsample the loop used,
// per §4.8). When fewer than two constants exist or the loop is
// disabled, it simply scores r against full and leaves its constants
// untouched (§4.8 "when m <= 1 the inner loop is skipped").
func Refine(r *tree.Root, full scoring.Dataset, rngSrc *rng.Source, p Params) float64 {
	constants := r.ListOfNodes().Constants
	m := len(constants)
	if !p.Enabled || m <= 1 {
		return scoring.RMS(r, full, p.UseRMSClamp, p.MinRMSClamp, p.MaxRMSClamp, p.UseSqrtRMS)
	}

	sample := subsample(full, rngSrc, p.SampleRatio)

	base := make([]float64, m)
	for i, slot := range constants {
		base[i] = r.Scalar(slot)
	}

	popSize := p.PopulationSize
	if popSize < 1 {
		popSize = 1
	}
	pop := make([][]float64, popSize)
	pop[0] = append([]float64(nil), base...)
	for i := 1; i < popSize; i++ {
		pop[i] = mutateChange(base, rngSrc, p.ChangeChance)
	}

	scores := make([]float64, popSize)
	for i, cand := range pop {
		scores[i] = scoreCandidate(r, constants, cand, sample, p)
	}
	sortByScore(pop, scores)

	cutoff := int(math.Round(float64(popSize) * p.SurvivalRatio))
	if cutoff < 1 {
		cutoff = 1
	}
	if cutoff > popSize {
		cutoff = popSize
	}

	for iter := 0; iter < p.IterationCount; iter++ {
		for i := cutoff; i < popSize; i++ {
			a := rngSrc.IntN(cutoff)
			b := a
			if cutoff > 1 {
				b = rngSrc.IntN(cutoff - 1)
				if b >= a {
					b++
				}
			}
			child := mutateCross(pop[a], pop[b], rngSrc)
			child = mutateChange(child, rngSrc, p.ChangeChance)
			pop[i] = child
			scores[i] = scoreCandidate(r, constants, child, sample, p)
		}
		sortByScore(pop, scores)
	}

	for i, slot := range constants {
		r.SetScalar(slot, pop[0][i])
	}
	return scores[0]
}

// mutateChange scales each non-infinite position by up to +-50%
// multiplicatively with probability changeChance (§4.8).
func mutateChange(base []float64, rngSrc *rng.Source, changeChance float64) []float64 {
	child := append([]float64(nil), base...)
	for j, v := range child {
		if math.IsInf(v, 0) || math.IsInf(v, -1) {
			continue
		}
		if rngSrc.Chance(changeChance) {
			u := rngSrc.Float64()
			child[j] = v * (1 + (u - 0.5))
		}
	}
	return child
}

// mutateCross draws one threshold r and, position by position, copies
// from a when a fresh uniform draw is <= r, else from b; if every
// position came from b, one random position is forced to a's value so
// the child is never an exact copy of b (§4.8).
func mutateCross(a, b []float64, rngSrc *rng.Source) []float64 {
	threshold := rngSrc.Float64()
	child := make([]float64, len(a))
	anyFromA := false
	for j := range child {
		if rngSrc.Float64() <= threshold {
			child[j] = a[j]
			anyFromA = true
		} else {
			child[j] = b[j]
		}
	}
	if !anyFromA && len(child) > 0 {
		j := rngSrc.IntN(len(child))
		child[j] = a[j]
	}
	return child
}

func scoreCandidate(r *tree.Root, constants []int, values []float64, d scoring.Dataset, p Params) float64 {
	for i, slot := range constants {
		r.SetScalar(slot, values[i])
	}
	return scoring.RMS(r, d, p.UseRMSClamp, p.MinRMSClamp, p.MaxRMSClamp, p.UseSqrtRMS)
}

func subsample(full scoring.Dataset, rngSrc *rng.Source, ratio float64) scoring.Dataset {
	n := len(full.Points)
	if n == 0 {
		return full
	}
	k := int(math.Round(float64(n) * ratio))
	if k < 1 {
		k = 1
	}
	if k >= n {
		return full
	}
	perm := rngSrc.Permutation(n)
	pts := make([][]float64, k)
	res := make([]float64, k)
	for i, idx := range perm[:k] {
		pts[i] = full.Points[idx]
		res[i] = full.Results[idx]
	}
	return scoring.Dataset{Points: pts, Results: res, NumVars: full.NumVars}
}

type byScore struct {
	pop    [][]float64
	scores []float64
}

func (s byScore) Len() int           { return len(s.scores) }
func (s byScore) Less(i, j int) bool { return s.scores[i] < s.scores[j] }
func (s byScore) Swap(i, j int) {
	s.scores[i], s.scores[j] = s.scores[j], s.scores[i]
	s.pop[i], s.pop[j] = s.pop[j], s.pop[i]
}

func sortByScore(pop [][]float64, scores []float64) {
	sort.Stable(byScore{pop: pop, scores: scores})
}
