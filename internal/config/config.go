// Package config defines the Parameters struct of spec §6 and its JSON
// loader, grounded on the original's parameters.cpp/jsonloader.cpp key
// mapping. It is the one place spec §9's "pass parameters explicitly as
// a borrowed reference" design note is realised: internal/evo takes a
// *Parameters, and internal/fitness and internal/tree take small
// parameter structs evo builds from it; none reads a package-level
// global.
package config

import (
	"encoding/json"
	"os"

	"strconv"

	"symreg/internal/exprparser"
	"symreg/internal/nodekind"
	"symreg/internal/scoring"
	"symreg/internal/symerr"
	"symreg/internal/tree"
)

// FitnessParameters bundles the inner constant-refinement loop's knobs
// (§6's fitnessAlgo.* group).
type FitnessParameters struct {
	Enabled        bool    `json:"enabled"`
	SampleRatio    float64 `json:"sampleRatio"`
	PopulationSize int     `json:"populationSize"`
	IterationCount int     `json:"iterationCount"`
	SurvivalRatio  float64 `json:"survivalRatio"`
	ChangeChance   float64 `json:"changeChance"`
}

// Parameters is the full configuration struct of spec §6, populated
// from JSON by Load and otherwise left at DefaultParameters' values.
type Parameters struct {
	PopulationSize       int     `json:"populationSize"`
	GenerationCount      int     `json:"generationCount"`
	SurvivalRatio        float64 `json:"survivalRatio"`
	TargetComplexity     float64 `json:"targetComplexity"`
	ParsimonyRatio       float64 `json:"parsimonyRatio"`
	AccuracyCompletion   float64 `json:"accuracyCompletion"`
	WeighedMutation      bool    `json:"weighedMutation"`
	WeightChance         float64 `json:"weightChance"`
	MaxDuplicateRemoval  int     `json:"maxDuplicateRemoval"`
	PopulationCopyCount  int     `json:"populationCopyCount"`
	MutationCount        int     `json:"mutationCount"`
	DecimalPrecision     int     `json:"decimalPrecision"`
	MinConstant          float64 `json:"minConstant"`
	MaxConstant          float64 `json:"maxConstant"`
	MinRMSClamp          float64 `json:"minRMSClamp"`
	MaxRMSClamp          float64 `json:"maxRMSClamp"`
	UseRMSClamp          bool    `json:"useRMSClamp"`
	ConstantChance       float64 `json:"constantChance"`
	ChangeChance         float64 `json:"changeChance"`
	OperatorChance       float64 `json:"operatorChance"`
	MutationChance       float64 `json:"mutationChance"`
	UseSqrtRMS           bool    `json:"useSqrtRMS"`
	DefaultCSV           string  `json:"defaultCSV"`
	PrecalculatedTree    string  `json:"precalculatedTree"`
	SingleThreaded       bool    `json:"singleThreaded"`
	DenySimplifyOperator string  `json:"denySimplifyOperator"`

	// Raw, JSON-facing forms of fields that need post-processing
	// before use (an operator name list, a descriptor string list, a
	// per-operator complexity table). Load resolves these into the
	// typed fields below; callers should read the typed fields.
	OperatorFunctionNames []string                     `json:"operatorFunctions"`
	ComplexityWeightsRaw  map[string][]ComplexityEntry `json:"complexityWeights"`
	VariableDescriptorsRaw []string                    `json:"variableDescriptors"`
	Fitness               FitnessParameters            `json:"fitnessAlgo"`

	// Resolved forms, populated by Load (or by DefaultParameters).
	Operators           []nodekind.Kind     `json:"-"`
	ComplexityWeights   scoring.Table       `json:"-"`
	DenySimplifyKind    nodekind.Kind       `json:"-"`
	VariableDescriptors map[int]*tree.Root  `json:"-"`
}

// ComplexityEntry is one (lhs, rhs, weight) row of a complexityWeights
// table entry in the JSON document.
type ComplexityEntry struct {
	Lhs    string  `json:"lhs"`
	Rhs    string  `json:"rhs"`
	Weight float64 `json:"weight"`
}

// DefaultParameters returns the defaults enumerated in the original's
// parameters.cpp (popSize 4000, generationCount 75, survivalRatio 0.05,
// targetComplexity 10, parsimony 0.65, accuracy 0.02, ...).
func DefaultParameters() *Parameters {
	p := &Parameters{
		PopulationSize:      4000,
		GenerationCount:     75,
		SurvivalRatio:       0.05,
		TargetComplexity:    10,
		ParsimonyRatio:      0.65,
		AccuracyCompletion:  0.02,
		WeighedMutation:     true,
		WeightChance:        1.5,
		MaxDuplicateRemoval: 0,
		PopulationCopyCount: 0,
		MutationCount:       2,
		DecimalPrecision:    2,
		MinConstant:         0.1,
		MaxConstant:         100,
		MinRMSClamp:         -500,
		MaxRMSClamp:         500,
		UseRMSClamp:         true,
		ConstantChance:      50,
		ChangeChance:        60,
		OperatorChance:      50,
		MutationChance:      50,
		UseSqrtRMS:          true,
		Fitness: FitnessParameters{
			Enabled:        true,
			SampleRatio:    0.5,
			PopulationSize: 50,
			IterationCount: 10,
			SurvivalRatio:  0.9,
			ChangeChance:   75,
		},
		Operators:         append([]nodekind.Kind(nil), nodekind.Operators...),
		ComplexityWeights: scoring.DefaultTable(),
		DenySimplifyKind:  nodekind.None,
	}
	return p
}

// Load reads a JSON configuration file over the defaults. Unknown
// fields are ignored by encoding/json already; unknown operator names,
// malformed complexity entries, and bad descriptor expressions are
// individually reported via the returned warnings slice and leave that
// one option at its default (§7.1) rather than aborting the load.
func Load(path string, numVars int) (*Parameters, []error, error) {
	p := DefaultParameters()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, symerr.Wrap(symerr.Configuration, err, "reading configuration file")
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, nil, symerr.Wrap(symerr.Configuration, err, "parsing configuration JSON")
	}

	var warnings []error

	if len(p.OperatorFunctionNames) > 0 {
		resolved := make([]nodekind.Kind, 0, len(p.OperatorFunctionNames))
		for _, name := range p.OperatorFunctionNames {
			kind, ok := nodekind.Lookup(name)
			if !ok || nodekind.IsLeaf(kind) {
				warnings = append(warnings, symerr.New(symerr.Configuration, "unknown operator name "+name+", ignoring"))
				continue
			}
			resolved = append(resolved, kind)
		}
		if len(resolved) > 0 {
			p.Operators = resolved
		} else {
			warnings = append(warnings, symerr.New(symerr.Configuration, "operatorFunctions resolved to no usable operators, keeping defaults"))
		}
	}

	if p.DenySimplifyOperator != "" {
		if kind, ok := nodekind.Lookup(p.DenySimplifyOperator); ok {
			p.DenySimplifyKind = kind
		} else {
			warnings = append(warnings, symerr.New(symerr.Configuration, "unknown denySimplifyOperator "+p.DenySimplifyOperator+", ignoring"))
		}
	}

	if len(p.ComplexityWeightsRaw) > 0 {
		table := scoring.DefaultTable()
		for opName, entries := range p.ComplexityWeightsRaw {
			kind, ok := nodekind.Lookup(opName)
			if !ok {
				warnings = append(warnings, symerr.New(symerr.Configuration, "complexityWeights: unknown operator "+opName+", ignoring"))
				continue
			}
			shape := make(map[[2]scoring.ChildTag]float64, len(entries))
			for _, e := range entries {
				lhs, lok := tagByName(e.Lhs)
				rhs, rok := tagByName(e.Rhs)
				if !lok || !rok {
					warnings = append(warnings, symerr.New(symerr.Configuration, "complexityWeights: malformed entry for "+opName+", ignoring"))
					continue
				}
				shape[[2]scoring.ChildTag{lhs, rhs}] = e.Weight
			}
			table[kind] = shape
		}
		p.ComplexityWeights = table
	}

	if len(p.VariableDescriptorsRaw) > 0 {
		p.VariableDescriptors = make(map[int]*tree.Root, len(p.VariableDescriptorsRaw))
		for i, src := range p.VariableDescriptorsRaw {
			if src == "" {
				continue
			}
			descriptor, err := exprparser.Parse(src, numVars, p.Operators)
			if err != nil {
				warnings = append(warnings, symerr.Wrap(symerr.Configuration, err, "variableDescriptors["+strconv.Itoa(i)+"]"))
				continue
			}
			p.VariableDescriptors[i] = descriptor
		}
	}

	return p, warnings, nil
}

func tagByName(s string) (scoring.ChildTag, bool) {
	switch s {
	case "NONE":
		return scoring.TagNone, true
	case "CONSTANT":
		return scoring.TagConstant, true
	case "OPERATOR":
		return scoring.TagOperator, true
	}
	return scoring.TagNone, false
}
