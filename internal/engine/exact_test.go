package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/BarCut/internal/model"
)

// stubSolver returns a fixed solution, error or panic.
type stubSolver struct {
	sol   Solution
	err   error
	panic bool
	calls int
}

func (s *stubSolver) Solve(_ context.Context, _ *Model, _ time.Duration) (Solution, error) {
	s.calls++
	if s.panic {
		panic("backend crashed")
	}
	return s.sol, s.err
}

func mustPattern(t *testing.T, stock int, comp map[int]int) model.CuttingPattern {
	t.Helper()
	p, err := model.NewCuttingPattern(stock, comp)
	require.NoError(t, err)
	return p
}

func TestBuildModel(t *testing.T) {
	patterns := []model.CuttingPattern{
		mustPattern(t, 6000, map[int]int{2500: 1}),
		mustPattern(t, 6000, map[int]int{2500: 2}),
		mustPattern(t, 5000, map[int]int{2500: 2}),
	}
	stock := []model.StockBar{{Length: 6000, Quantity: 3}, {Length: 5000, Quantity: model.UnlimitedQuantity}, {Length: 4000, Quantity: 2}}

	m := BuildModel(patterns, stock, []model.PieceDemand{{Length: 2500, Quantity: 3}})

	require.Len(t, m.Variables, 3)
	// Lowest waste first.
	assert.Equal(t, "5000:2500x2", m.Variables[0].Pattern.Key())
	assert.Equal(t, "pattern_0", m.Variables[0].Name)
	assert.Equal(t, []Constraint{{Name: "demand_2500", Length: 2500, Value: 3}}, m.Demand)
	// Unlimited 5000 and unused 4000 get no row.
	assert.Equal(t, []Constraint{{Name: "stock_6000", Length: 6000, Value: 3}}, m.Stock)
	assert.Equal(t, 1, m.Variables[1].Coefficients["stock_6000"])
	assert.Equal(t, 2, m.Variables[1].Coefficients["demand_2500"])
	assert.Empty(t, m.Uncovered())
}

func TestBuildModel_Limit(t *testing.T) {
	patterns := []model.CuttingPattern{
		mustPattern(t, 6000, map[int]int{1000: 1}),
		mustPattern(t, 6000, map[int]int{1000: 6}),
		mustPattern(t, 6000, map[int]int{1000: 3}),
	}
	m := buildModel(patterns, nil, []model.PieceDemand{{Length: 1000, Quantity: 6}, {Length: 700, Quantity: 1}}, 2)

	require.Len(t, m.Variables, 2)
	assert.Equal(t, "6000:1000x6", m.Variables[0].Pattern.Key())
	assert.Equal(t, []int{700}, m.Uncovered())
}

func TestBranchAndBound_Solve(t *testing.T) {
	patterns := []model.CuttingPattern{
		mustPattern(t, 6000, map[int]int{2500: 2}),
		mustPattern(t, 6000, map[int]int{2500: 1}),
	}
	m := BuildModel(patterns, []model.StockBar{{Length: 6000, Quantity: 100}}, []model.PieceDemand{{Length: 2500, Quantity: 3}})

	sol, err := BranchAndBound{NodeLimit: 1000}.Solve(context.Background(), m, time.Second)

	require.NoError(t, err)
	require.True(t, sol.Feasible)
	assert.InDelta(t, 2, sol.Result, 1e-6)
	assert.InDelta(t, 1, sol.Values["pattern_0"], 1e-6)
	assert.InDelta(t, 1, sol.Values["pattern_1"], 1e-6)
}

func TestBranchAndBound_InfeasibleIsNotAnError(t *testing.T) {
	patterns := []model.CuttingPattern{
		mustPattern(t, 6000, map[int]int{3000: 2}),
		mustPattern(t, 6000, map[int]int{3000: 1}),
	}
	m := BuildModel(patterns, []model.StockBar{{Length: 6000, Quantity: 1}}, []model.PieceDemand{{Length: 3000, Quantity: 3}})

	sol, err := BranchAndBound{NodeLimit: 1000}.Solve(context.Background(), m, time.Second)

	require.NoError(t, err)
	assert.False(t, sol.Feasible)
}

func TestBranchAndBound_EmptyModel(t *testing.T) {
	_, err := BranchAndBound{}.Solve(context.Background(), &Model{}, time.Second)
	assert.Error(t, err)
}

func TestPriceScore(t *testing.T) {
	p := mustPattern(t, 6000, map[int]int{2500: 2})

	assert.Equal(t, 3000.0, priceScore(p, map[int]int{2500: 3}))
	// One piece too many: 2500 - 2*1000 - 15 - 10.
	assert.Equal(t, 475.0, priceScore(p, map[int]int{2500: 1}))
	assert.Equal(t, float64(exhaustedLengthScore), priceScore(p, map[int]int{2500: 0}))
}

func TestAdaptPattern(t *testing.T) {
	p := mustPattern(t, 6000, map[int]int{2500: 2, 500: 2})

	adapted, ok := adaptPattern(p, map[int]int{2500: 1, 500: 5})
	require.True(t, ok)
	assert.Equal(t, "6000:2500x1,500x2", adapted.Key())
	assert.Equal(t, 2500, adapted.Waste)

	_, ok = adaptPattern(p, map[int]int{})
	assert.False(t, ok)
}

func TestColumnGeneration_StockShortage(t *testing.T) {
	patterns := []model.CuttingPattern{
		mustPattern(t, 6000, map[int]int{3000: 2}),
		mustPattern(t, 6000, map[int]int{3000: 1}),
	}
	r := SolveByColumnGeneration(patterns, []model.StockBar{{Length: 6000, Quantity: 1}}, []model.PieceDemand{{Length: 3000, Quantity: 3}})

	require.Len(t, r.Bars, 1)
	assert.Equal(t, "6000:3000x2", r.Bars[0].Key())
	assert.Equal(t, 1, r.Remaining[3000])
	assert.Equal(t, 0, r.StockLeft[6000])
	assert.False(t, r.Satisfied())
}

func TestColumnGeneration_NeverOverproduces(t *testing.T) {
	patterns := []model.CuttingPattern{mustPattern(t, 6000, map[int]int{2500: 2})}
	r := SolveByColumnGeneration(patterns, []model.StockBar{{Length: 6000, Quantity: 10}}, []model.PieceDemand{{Length: 2500, Quantity: 3}})

	require.True(t, r.Satisfied())
	require.Len(t, r.Bars, 2)
	assert.Equal(t, "6000:2500x2", r.Bars[0].Key())
	assert.Equal(t, "6000:2500x1", r.Bars[1].Key())
	assert.Equal(t, 8, r.StockLeft[6000])
}

func TestColumnGeneration_SynthesizesCustomPattern(t *testing.T) {
	r := SolveByColumnGeneration(nil, []model.StockBar{{Length: 6000, Quantity: 2}, {Length: 7000, Quantity: 2}},
		[]model.PieceDemand{{Length: 2000, Quantity: 3}})

	require.True(t, r.Satisfied())
	require.Len(t, r.Bars, 1)
	assert.Equal(t, "6000:2000x3", r.Bars[0].Key())
	assert.Equal(t, 1, r.CustomPatterns)
}

func TestColumnGeneration_StopsPricingPatternAtMaxUsage(t *testing.T) {
	// 2000x3 fits the demand of 4 once; the last piece needs its own pattern.
	patterns := []model.CuttingPattern{mustPattern(t, 6000, map[int]int{2000: 3})}
	r := SolveByColumnGeneration(patterns, []model.StockBar{{Length: 6000, Quantity: 10}}, []model.PieceDemand{{Length: 2000, Quantity: 4}})

	require.True(t, r.Satisfied())
	require.Len(t, r.Bars, 2)
	assert.Equal(t, "6000:2000x3", r.Bars[0].Key())
	assert.Equal(t, "6000:2000x1", r.Bars[1].Key())
	assert.Equal(t, 1, r.CustomPatterns)
}

func TestPriceBest_SkipsUnusablePatterns(t *testing.T) {
	patterns := []model.CuttingPattern{
		mustPattern(t, 6000, map[int]int{2000: 3}),
		mustPattern(t, 6000, map[int]int{2000: 2}),
	}
	remaining := map[int]int{2000: 6}
	stock := map[int]int{6000: 5}

	best, _, ok := priceBest(patterns, remaining, stock, func(model.CuttingPattern) bool { return true })
	require.True(t, ok)
	assert.Equal(t, "6000:2000x3", best.Key())

	best, _, ok = priceBest(patterns, remaining, stock, func(p model.CuttingPattern) bool { return p.Key() != "6000:2000x3" })
	require.True(t, ok)
	assert.Equal(t, "6000:2000x2", best.Key())

	_, _, ok = priceBest(patterns, remaining, stock, func(model.CuttingPattern) bool { return false })
	assert.False(t, ok)
}

func TestColumnGeneration_UnlimitedStock(t *testing.T) {
	patterns := []model.CuttingPattern{mustPattern(t, 6000, map[int]int{1000: 6})}
	r := SolveByColumnGeneration(patterns, []model.StockBar{{Length: 6000, Quantity: model.UnlimitedQuantity}},
		[]model.PieceDemand{{Length: 1000, Quantity: 12}})

	require.True(t, r.Satisfied())
	assert.Len(t, r.Bars, 2)
	assert.Equal(t, model.UnlimitedQuantity, r.StockLeft[6000])
}

func TestGreedyResidue_BestFit(t *testing.T) {
	b := newCutBar(6000)
	b.add(4000)
	stock := map[int]int{6000: 1}

	bars, unplaced := greedyResidue([]*cutBar{b}, stock, map[int]int{3000: 1, 1500: 1})

	assert.Empty(t, unplaced)
	require.Len(t, bars, 2)
	assert.Equal(t, []int{4000, 1500}, bars[0].cuts)
	assert.Equal(t, []int{3000}, bars[1].cuts)
	assert.Equal(t, 0, stock[6000])
}

func TestGreedyResidue_ReportsUnplaced(t *testing.T) {
	bars, unplaced := greedyResidue(nil, map[int]int{}, map[int]int{3000: 2})

	assert.Empty(t, bars)
	assert.Equal(t, map[int]int{3000: 2}, unplaced)
}

func TestExactSolver_ILPPath(t *testing.T) {
	e := NewExactSolver(model.DefaultSettings(), nil)
	r := e.Solve(context.Background(), "m", []model.StockBar{{Length: 6000, Quantity: 100}}, []model.PieceDemand{{Length: 2500, Quantity: 3}})

	assert.Equal(t, model.AlgorithmILP, r.Algorithm)
	assert.Equal(t, StrategyILP, r.Strategy)
	assert.Equal(t, []string{"TryExact", "Done"}, r.Path)
	assert.Equal(t, 2, r.BarsUsed())
	assert.True(t, r.Complete())
}

func TestExactSolver_FallsBackOnSolverError(t *testing.T) {
	stub := &stubSolver{err: errors.New("timeout")}
	e := NewExactSolver(model.DefaultSettings(), stub)
	r := e.Solve(context.Background(), "m", []model.StockBar{{Length: 6000, Quantity: 100}}, []model.PieceDemand{{Length: 2500, Quantity: 3}})

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, StrategyColumnGeneration, r.Strategy)
	assert.Equal(t, []string{"TryExact", "TryColumnGeneration", "Done"}, r.Path)
	assert.Equal(t, 2, r.BarsUsed())
	assert.True(t, r.Complete())
	assert.Empty(t, r.Stats.Overproduced)
}

func TestExactSolver_FallsBackOnSolverPanic(t *testing.T) {
	e := NewExactSolver(model.DefaultSettings(), &stubSolver{panic: true})
	r := e.Solve(context.Background(), "m", []model.StockBar{{Length: 6000, Quantity: 100}}, []model.PieceDemand{{Length: 2500, Quantity: 3}})

	assert.Equal(t, []string{"TryExact", "TryColumnGeneration", "Done"}, r.Path)
	assert.True(t, r.Complete())
}

func TestExactSolver_RejectsBadSolutions(t *testing.T) {
	tests := []struct {
		name string
		sol  Solution
	}{
		{"infeasible", Solution{Feasible: false}},
		{"zero objective", Solution{Feasible: true, Result: 0, Values: map[string]float64{}}},
		{"overproduction", Solution{Feasible: true, Result: 2, Values: map[string]float64{"pattern_0": 2}}},
		{"underproduction", Solution{Feasible: true, Result: 1, Values: map[string]float64{"pattern_0": 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExactSolver(model.DefaultSettings(), &stubSolver{sol: tt.sol})
			r := e.Solve(context.Background(), "m", []model.StockBar{{Length: 6000, Quantity: 100}}, []model.PieceDemand{{Length: 2500, Quantity: 3}})

			assert.Equal(t, StrategyColumnGeneration, r.Strategy)
			assert.True(t, r.Complete())
			assert.Empty(t, r.Stats.Overproduced)
		})
	}
}

func TestExactSolver_StockShortageEndsWithResidue(t *testing.T) {
	e := NewExactSolver(model.DefaultSettings(), nil)
	r := e.Solve(context.Background(), "m", []model.StockBar{{Length: 6000, Quantity: 1}}, []model.PieceDemand{{Length: 3000, Quantity: 3}})

	assert.Equal(t, []string{"TryExact", "TryColumnGeneration", "TryGreedyResidue", "DoneWithResidue"}, r.Path)
	assert.Equal(t, StrategyGreedyResidue, r.Strategy)
	assert.Equal(t, 1, r.BarsUsed())
	assert.Equal(t, []model.PieceDemand{{Length: 3000, Quantity: 1}}, r.RawData.RemainingPieces)
	assert.Empty(t, r.Stats.Overproduced)
}

func TestExactSolver_NoStockEndsInfeasible(t *testing.T) {
	e := NewExactSolver(model.DefaultSettings(), nil)
	r := e.Solve(context.Background(), "m", []model.StockBar{{Length: 6000, Quantity: 0}}, []model.PieceDemand{{Length: 3000, Quantity: 2}})

	assert.Equal(t, []string{"TryExact", "TryColumnGeneration", "TryGreedyResidue", "Infeasible"}, r.Path)
	assert.Equal(t, 0, r.BarsUsed())
	assert.Equal(t, []model.PieceDemand{{Length: 3000, Quantity: 2}}, r.RawData.RemainingPieces)
}

func TestExactSolver_DeadlineInterruptsBranchAndBound(t *testing.T) {
	settings := model.DefaultSettings()
	settings.ILPTimeoutMs = 1000
	e := NewExactSolver(settings, nil)
	stock := []model.StockBar{
		{Length: 5495, Quantity: 26},
		{Length: 4253, Quantity: 17},
		{Length: 3085, Quantity: model.UnlimitedQuantity},
	}
	pieces := []model.PieceDemand{
		{Length: 2389, Quantity: 9},
		{Length: 812, Quantity: 11},
		{Length: 2675, Quantity: 7},
		{Length: 219, Quantity: 8},
	}

	start := time.Now()
	r := e.Solve(context.Background(), "m", stock, pieces)
	elapsed := time.Since(start)

	require.NotNil(t, r)
	assert.Less(t, elapsed, settings.ILPTimeout()+time.Second)
	assert.Contains(t, r.Path, "TryColumnGeneration")
	assert.Empty(t, r.Stats.Overproduced)
}

func TestExactSolver_GreedyResidueCompletes(t *testing.T) {
	settings := model.DefaultSettings()
	settings.ColumnGenerationIterations = 1
	e := NewExactSolver(settings, &stubSolver{err: errors.New("unavailable")})

	r := e.Solve(context.Background(), "m", []model.StockBar{{Length: 6000, Quantity: 10}}, []model.PieceDemand{{Length: 2000, Quantity: 6}})

	assert.Equal(t, []string{"TryExact", "TryColumnGeneration", "TryGreedyResidue", "Done"}, r.Path)
	assert.Equal(t, StrategyGreedyResidue, r.Strategy)
	assert.True(t, r.Complete())
	assert.Equal(t, 2, r.BarsUsed())
}

func TestFallbackState_String(t *testing.T) {
	assert.Equal(t, "TryColumnGeneration", stateTryColumnGeneration.String())
	assert.Equal(t, "DoneWithResidue", stateDoneWithResidue.String())
	assert.True(t, stateInfeasible.terminal())
	assert.False(t, stateTryGreedyResidue.terminal())
	assert.Equal(t, "fallbackState(42)", fallbackState(42).String())
}
