package engine

import (
	"context"
	"fmt"

	"github.com/piwi3910/BarCut/internal/model"
)

// ComparisonScenario defines a named set of settings to compare.
type ComparisonScenario struct {
	Name     string         `json:"name"`
	Settings model.Settings `json:"settings"`
}

// ComparisonResult holds the optimization result and computed statistics
// for a single scenario.
type ComparisonResult struct {
	Scenario        ComparisonScenario   `json:"scenario"`
	Result          model.OptimizeResult `json:"result"`
	BarsUsed        int                  `json:"bars_used"`
	TotalWaste      int                  `json:"total_waste"`
	UtilizationRate float64              `json:"utilization_rate"`
	RemainingPieces int                  `json:"remaining_pieces"`
	Err             error                `json:"-"`
	Error           string               `json:"error,omitempty"`
}

// CompareScenarios runs optimization for each scenario and returns the results
// in scenario order. A scenario whose run fails keeps its error and partial
// result; the others are unaffected. Cancellation stops the remaining runs.
func CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, models []model.CutModel) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		if ctx.Err() != nil {
			break
		}
		result, err := New(scenario.Settings).Optimize(ctx, models)

		cr := ComparisonResult{
			Scenario:        scenario,
			Result:          result,
			BarsUsed:        result.Global.TotalBarsUsed,
			TotalWaste:      result.Global.TotalWaste,
			UtilizationRate: result.TotalEfficiency(),
			RemainingPieces: result.Global.TotalRemainingPieces,
			Err:             err,
		}
		if err != nil {
			cr.Error = err.Error()
		}
		results = append(results, cr)
	}

	return results
}

// BuildDefaultScenarios generates a set of comparison scenarios based on
// the current settings, varying key parameters to show what-if alternatives.
func BuildDefaultScenarios(base model.Settings) []ComparisonScenario {
	base = base.WithDefaults()
	scenarios := []ComparisonScenario{
		{Name: "Current Settings", Settings: base},
	}

	// Each single algorithm the base does not already run on its own.
	for _, alg := range []model.Algorithm{model.AlgorithmFFD, model.AlgorithmILP} {
		if alg == base.Algorithm {
			continue
		}
		s := base
		s.Algorithm = alg
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("%s only", alg),
			Settings: s,
		})
	}

	wide := base
	wide.MaxPatterns *= 2
	wide.TotalMaxPatterns *= 2
	wide.MaxILPPatterns *= 2
	scenarios = append(scenarios, ComparisonScenario{
		Name:     fmt.Sprintf("Wide pattern budget (%d per stock)", wide.MaxPatterns),
		Settings: wide,
	})

	if base.MaxPatterns > 1 {
		tight := base
		tight.MaxPatterns = max(1, base.MaxPatterns/4)
		tight.TotalMaxPatterns = max(1, base.TotalMaxPatterns/4)
		tight.MaxILPPatterns = max(1, base.MaxILPPatterns/4)
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("Tight pattern budget (%d per stock)", tight.MaxPatterns),
			Settings: tight,
		})
	}

	return scenarios
}
