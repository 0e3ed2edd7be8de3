package engine

import (
	"context"
	"errors"
	"time"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"

	"github.com/piwi3910/BarCut/internal/milp"
)

// Solution is what a MILP backend returns for a Model: feasibility, the
// objective value and the value of each named variable.
type Solution struct {
	Feasible bool
	Result   float64
	Values   map[string]float64
}

// Solver is the narrow interface to a MILP backend.
type Solver interface {
	Solve(ctx context.Context, m *Model, timeout time.Duration) (Solution, error)
}

// BranchAndBound solves models with the milp package.
type BranchAndBound struct {
	NodeLimit int
}

// Solve maps demand rows to equalities and stock rows to inequalities.
// Infeasibility is reported as an infeasible Solution, not as an error.
func (bb BranchAndBound) Solve(ctx context.Context, m *Model, timeout time.Duration) (Solution, error) {
	n := len(m.Variables)
	if n == 0 || len(m.Demand) == 0 {
		return Solution{}, errors.New("empty model")
	}

	p := milp.Problem{
		C:       make([]float64, n),
		A:       mat.NewDense(len(m.Demand), n, nil),
		B:       make([]float64, len(m.Demand)),
		Integer: make([]bool, n),
	}
	for j, v := range m.Variables {
		p.C[j] = 1
		p.Integer[j] = true
		for i, d := range m.Demand {
			p.A.Set(i, j, float64(v.Coefficients[d.Name]))
		}
	}
	for i, d := range m.Demand {
		p.B[i] = float64(d.Value)
	}
	if len(m.Stock) > 0 {
		p.G = mat.NewDense(len(m.Stock), n, nil)
		p.H = make([]float64, len(m.Stock))
		for i, s := range m.Stock {
			p.H[i] = float64(s.Value)
			for j, v := range m.Variables {
				p.G.Set(i, j, float64(v.Coefficients[s.Name]))
			}
		}
	}

	sol, err := p.Solve(ctx, milp.Options{Timeout: timeout, NodeLimit: bb.NodeLimit})
	if errors.Is(err, milp.ErrInfeasible) || errors.Is(err, milp.ErrNoIntegerSolution) {
		return Solution{Feasible: false}, nil
	}
	if err != nil {
		return Solution{}, err
	}
	log.V(1).Infof("milp: objective %.0f after %d nodes, optimal=%t (%s)", sol.Z, sol.Nodes, sol.Optimal, sol.Log)

	values := make(map[string]float64, n)
	for j, v := range m.Variables {
		values[v.Name] = sol.X[j]
	}
	return Solution{Feasible: true, Result: sol.Z, Values: values}, nil
}
