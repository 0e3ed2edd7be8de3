package milp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// subProblem is one node of the enumeration tree: the root problem plus the
// bound constraints added on the way down.
type subProblem struct {
	id     int
	parent int
	depth  int

	// shared with the root problem, never modified
	c []float64
	A *mat.Dense
	b []float64
	G *mat.Dense
	h []float64

	bounds []boundConstraint
}

// boundConstraint is the row g·x <= h added by a branching step.
type boundConstraint struct {
	variable int
	factor   float64 // 1 for x <= v, -1 for -x <= -v
	rhs      float64
}

type relaxation struct {
	problem *subProblem
	x       []float64
	z       float64
}

// inequalities returns the original inequality rows stacked with the branch
// bounds, or nil when there are none.
func (p *subProblem) inequalities() (*mat.Dense, []float64) {
	if len(p.bounds) == 0 {
		if p.G == nil {
			return nil, nil
		}
		return p.G, p.h
	}

	n := len(p.c)
	bnbG := mat.NewDense(len(p.bounds), n, nil)
	h := make([]float64, 0, len(p.h)+len(p.bounds))
	h = append(h, p.h...)
	for i, bc := range p.bounds {
		bnbG.Set(i, bc.variable, bc.factor)
		h = append(h, bc.rhs)
	}
	if p.G == nil {
		return bnbG, h
	}

	origRows, _ := p.G.Dims()
	G := mat.NewDense(origRows+len(p.bounds), n, nil)
	G.Stack(p.G, bnbG)
	return G, h
}

// convertToEqualities adds one slack variable per inequality so the problem
// is in the standard form lp.Simplex expects.
func convertToEqualities(c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64) ([]float64, *mat.Dense, []float64) {
	nVar := len(c)
	nCons := len(b)
	nIneq := len(h)

	cNew := make([]float64, nVar+nIneq)
	copy(cNew, c)

	bNew := make([]float64, nCons+nIneq)
	copy(bNew, b)
	copy(bNew[nCons:], h)

	aNew := mat.NewDense(nCons+nIneq, nVar+nIneq, nil)
	if A != nil && nCons > 0 {
		aNew.Slice(0, nCons, 0, nVar).(*mat.Dense).Copy(A)
	}
	aNew.Slice(nCons, nCons+nIneq, 0, nVar).(*mat.Dense).Copy(G)
	for i := 0; i < nIneq; i++ {
		aNew.Set(nCons+i, nVar+i, 1)
	}
	return cNew, aNew, bNew
}

// solve computes the LP relaxation of the node. Any simplex failure other
// than infeasibility is reported as errDegenerate.
func (p *subProblem) solve() (relaxation, error) {
	c, A, b := p.c, p.A, p.b
	if G, h := p.inequalities(); G != nil {
		c, A, b = convertToEqualities(p.c, p.A, p.b, G, h)
	}

	z, x, err := lp.Simplex(c, A, b, 0, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return relaxation{problem: p}, ErrInfeasible
		}
		return relaxation{problem: p}, errDegenerate
	}
	if len(x) > len(p.c) {
		x = x[:len(p.c)]
	}
	return relaxation{problem: p, x: x, z: z}, nil
}

// child returns a copy of p with one more bound constraint.
func (p *subProblem) child(id, variable int, factor, rhs float64) *subProblem {
	bounds := make([]boundConstraint, len(p.bounds), len(p.bounds)+1)
	copy(bounds, p.bounds)
	bounds = append(bounds, boundConstraint{variable: variable, factor: factor, rhs: rhs})
	return &subProblem{
		id:     id,
		parent: p.id,
		depth:  p.depth + 1,
		c:      p.c,
		A:      p.A,
		b:      p.b,
		G:      p.G,
		h:      p.h,
		bounds: bounds,
	}
}

// branch splits the node on variable i into x_i <= floor(v) and
// x_i >= floor(v)+1.
func (r relaxation) branch(i int, nextID func() int) (down, up *subProblem) {
	v := math.Floor(r.x[i])
	down = r.problem.child(nextID(), i, 1, v)
	up = r.problem.child(nextID(), i, -1, -(v + 1))
	return down, up
}
