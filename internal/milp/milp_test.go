package milp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolve_RootIntegral(t *testing.T) {
	p := Problem{
		C:       []float64{1},
		A:       mat.NewDense(1, 1, []float64{1}),
		B:       []float64{2},
		Integer: []bool{true},
	}
	sol, err := p.Solve(context.Background(), Options{})
	require.NoError(t, err)
	assert.InDelta(t, 2, sol.X[0], 1e-9)
	assert.True(t, sol.Optimal)
	assert.Equal(t, 1, sol.Log[DecisionRootIntegral])
}

func TestSolve_Branching(t *testing.T) {
	// max 5x1 + 4x2, 6x1 + 4x2 <= 24, x1 + 2x2 <= 6. LP optimum (3, 1.5), integer optimum (4, 0).
	p := Problem{
		C:       []float64{-5, -4},
		G:       mat.NewDense(2, 2, []float64{6, 4, 1, 2}),
		H:       []float64{24, 6},
		Integer: []bool{true, true},
	}
	sol, err := p.Solve(context.Background(), Options{NodeLimit: 1000})
	require.NoError(t, err)
	assert.InDelta(t, -20, sol.Z, 1e-6)
	assert.Equal(t, []float64{4, 0}, sol.X)
	assert.True(t, sol.Optimal)
	assert.Greater(t, sol.Log[DecisionBranch], 0)
}

func TestSolve_CuttingStockEqualities(t *testing.T) {
	// Patterns: 3A, 1A+1B, 2B, 1A, 1B. Demand A=4, B=2.
	p := Problem{
		C: []float64{1, 1, 1, 1, 1},
		A: mat.NewDense(2, 5, []float64{
			3, 1, 0, 1, 0,
			0, 1, 2, 0, 1,
		}),
		B:       []float64{4, 2},
		Integer: []bool{true, true, true, true, true},
	}
	sol, err := p.Solve(context.Background(), Options{NodeLimit: 1000})
	require.NoError(t, err)
	assert.InDelta(t, 3, sol.Z, 1e-6)

	a := 3*sol.X[0] + sol.X[1] + sol.X[3]
	b := sol.X[1] + 2*sol.X[2] + sol.X[4]
	assert.Equal(t, 4.0, a)
	assert.Equal(t, 2.0, b)
}

func TestSolve_Infeasible(t *testing.T) {
	p := Problem{
		C:       []float64{1},
		A:       mat.NewDense(1, 1, []float64{1}),
		B:       []float64{1},
		G:       mat.NewDense(1, 1, []float64{1}),
		H:       []float64{0},
		Integer: []bool{true},
	}
	_, err := p.Solve(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolve_NoIntegerSolution(t *testing.T) {
	p := Problem{
		C:       []float64{1},
		A:       mat.NewDense(1, 1, []float64{2}),
		B:       []float64{1},
		Integer: []bool{true},
	}
	_, err := p.Solve(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrNoIntegerSolution)
}

func TestSolve_NodeLimit(t *testing.T) {
	p := Problem{
		C:       []float64{-5, -4},
		G:       mat.NewDense(2, 2, []float64{6, 4, 1, 2}),
		H:       []float64{24, 6},
		Integer: []bool{true, true},
	}
	_, err := p.Solve(context.Background(), Options{NodeLimit: 1})
	assert.ErrorIs(t, err, ErrNodeLimit)
}

func TestSolve_CancelledContext(t *testing.T) {
	p := Problem{
		C:       []float64{-5, -4},
		G:       mat.NewDense(2, 2, []float64{6, 4, 1, 2}),
		H:       []float64{24, 6},
		Integer: []bool{true, true},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Solve(ctx, Options{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSolve_DeadlineStopsExponentialSearch(t *testing.T) {
	// 2x1 + ... + 2x30 = 31 has LP solutions at every node but no integer
	// one, so only the deadline can end the search.
	const n = 30
	row := make([]float64, n)
	for i := range row {
		row[i] = 2
	}
	p := Problem{
		C:       make([]float64, n),
		A:       mat.NewDense(1, n, row),
		B:       []float64{31},
		Integer: make([]bool, n),
	}
	for i := range p.Integer {
		p.Integer[i] = true
	}

	start := time.Now()
	sol, err := p.Solve(context.Background(), Options{Timeout: 200 * time.Millisecond})
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Greater(t, sol.Nodes, 1)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestSolve_InvalidDimensions(t *testing.T) {
	p := Problem{
		C:       []float64{1, 1},
		A:       mat.NewDense(1, 2, []float64{1, 1}),
		B:       []float64{1},
		Integer: []bool{true},
	}
	_, err := p.Solve(context.Background(), Options{})
	assert.Error(t, err)

	_, err = Problem{C: []float64{1}, Integer: []bool{true}}.Solve(context.Background(), Options{})
	assert.Error(t, err)
}

func TestConvertToEqualities(t *testing.T) {
	c, A, b := convertToEqualities(
		[]float64{1, 2},
		mat.NewDense(1, 2, []float64{1, 1}), []float64{3},
		mat.NewDense(1, 2, []float64{0, 1}), []float64{1},
	)
	assert.Equal(t, []float64{1, 2, 0}, c)
	assert.Equal(t, []float64{3, 1}, b)
	r, cols := A.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, cols)
	assert.Equal(t, 1.0, A.At(1, 2))
	assert.Equal(t, 0.0, A.At(0, 2))
}

func TestDecisionLogString(t *testing.T) {
	var l DecisionLog
	l.record(DecisionBranch)
	l.record(DecisionBranch)
	l.record(DecisionInfeasible)
	assert.Contains(t, l.String(), string(DecisionBranch)+": 2")
}
