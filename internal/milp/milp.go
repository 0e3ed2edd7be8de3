// Package milp solves small mixed-integer linear programs by depth-first
// branch-and-bound over the gonum simplex.
//
// Problems have the form
//
//	minimize    cᵀx
//	subject to  A x  = b
//	            G x <= h
//	            x >= 0, x_i integer where Integer[i]
package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInfeasible        = errors.New("milp: problem is infeasible")
	ErrNoIntegerSolution = errors.New("milp: no integer feasible solution found")
	ErrTimeout           = errors.New("milp: deadline reached before an integer solution was found")
	ErrNodeLimit         = errors.New("milp: node limit reached before an integer solution was found")

	errDegenerate  = errors.New("milp: degenerate subproblem")
	errSolverPanic = errors.New("milp: solver panic")
)

// integralityTolerance is how far a value may be from an integer and still
// count as integral.
const integralityTolerance = 1e-6

// Problem is a minimization MILP. A/B and G/H may each be nil, but not both.
type Problem struct {
	C       []float64
	A       *mat.Dense
	B       []float64
	G       *mat.Dense
	H       []float64
	Integer []bool
}

// Options bound the search.
type Options struct {
	Timeout   time.Duration // 0 means no deadline beyond ctx
	NodeLimit int           // 0 means unlimited
}

// Solution is the best integer solution found.
type Solution struct {
	X       []float64
	Z       float64
	Nodes   int
	Optimal bool // false when the search stopped at a limit with an incumbent
	Log     DecisionLog
}

// Solve runs branch-and-bound. When a limit is hit after an integer solution
// has been found, that incumbent is returned with Optimal set to false.
// Panics raised inside the simplex are recovered and returned as errors.
func (p Problem) Solve(ctx context.Context, opts Options) (sol Solution, err error) {
	if err := p.validate(); err != nil {
		return Solution{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			sol = Solution{}
			err = fmt.Errorf("milp: solver panic: %v", r)
		}
	}()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	s := &search{problem: p, opts: opts}
	return s.run(ctx)
}

func (p Problem) validate() error {
	n := len(p.C)
	if n == 0 {
		return errors.New("milp: no variables")
	}
	if len(p.Integer) != n {
		return fmt.Errorf("milp: %d integrality flags for %d variables", len(p.Integer), n)
	}
	if p.A == nil && p.G == nil {
		return errors.New("milp: no constraint matrices provided")
	}
	if p.A != nil {
		r, c := p.A.Dims()
		if r != len(p.B) || c != n {
			return fmt.Errorf("milp: A is %dx%d, want %dx%d", r, c, len(p.B), n)
		}
	}
	if p.G != nil {
		r, c := p.G.Dims()
		if r != len(p.H) || c != n {
			return fmt.Errorf("milp: G is %dx%d, want %dx%d", r, c, len(p.H), n)
		}
	}
	return nil
}

type search struct {
	problem   Problem
	opts      Options
	incumbent *relaxation
	nodes     int
	lastID    int
	log       DecisionLog
}

func (s *search) nextID() int {
	s.lastID++
	return s.lastID
}

func (s *search) run(ctx context.Context) (Solution, error) {
	root := &subProblem{
		c: s.problem.C,
		A: s.problem.A,
		b: s.problem.B,
		G: s.problem.G,
		h: s.problem.H,
	}
	rx, err := s.relax(ctx, root)
	s.nodes++
	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(err, errSolverPanic) {
			return Solution{Nodes: s.nodes}, err
		}
		if errors.Is(err, ErrInfeasible) {
			return Solution{Nodes: s.nodes}, ErrInfeasible
		}
		return Solution{Nodes: s.nodes}, fmt.Errorf("milp: root relaxation failed: %w", err)
	}
	log.V(2).Infof("milp: root relaxation z=%.4f", rx.z)

	if s.fractional(rx.x) < 0 {
		s.log.record(DecisionRootIntegral)
		return s.solution(&rx, true), nil
	}

	// Depth-first: the down branch is pushed last so it is explored first.
	down, up := rx.branch(s.fractional(rx.x), s.nextID)
	stack := []*subProblem{up, down}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return s.stopped(ErrTimeout)
		}
		if s.opts.NodeLimit > 0 && s.nodes >= s.opts.NodeLimit {
			return s.stopped(ErrNodeLimit)
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		candidate, err := s.relax(ctx, node)
		s.nodes++
		switch {
		case errors.Is(err, ErrTimeout):
			return s.stopped(ErrTimeout)
		case errors.Is(err, errSolverPanic):
			return Solution{Nodes: s.nodes, Log: s.log}, err
		case errors.Is(err, ErrInfeasible):
			s.log.record(DecisionInfeasible)
		case err != nil:
			s.log.record(DecisionDegenerate)
		case !s.improves(candidate.z):
			s.log.record(DecisionWorseThanIncumbent)
		default:
			i := s.fractional(candidate.x)
			if i < 0 {
				s.incumbent = &candidate
				s.log.record(DecisionNewIncumbent)
				log.V(2).Infof("milp: incumbent z=%.0f at node %d depth %d", candidate.z, node.id, node.depth)
				continue
			}
			down, up := candidate.branch(i, s.nextID)
			stack = append(stack, up, down)
			s.log.record(DecisionBranch)
		}
	}

	if s.incumbent == nil {
		return Solution{Nodes: s.nodes, Log: s.log}, ErrNoIntegerSolution
	}
	return s.solution(s.incumbent, true), nil
}

type relaxResult struct {
	rx  relaxation
	err error
}

// relax solves the LP relaxation of p without blocking past ctx. The simplex
// cannot be interrupted, so on cancellation its goroutine is left to finish
// on its own and the result is dropped.
func (s *search) relax(ctx context.Context, p *subProblem) (relaxation, error) {
	if ctx.Err() != nil {
		return relaxation{}, ErrTimeout
	}
	done := make(chan relaxResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- relaxResult{err: fmt.Errorf("%w: %v", errSolverPanic, r)}
			}
		}()
		rx, err := p.solve()
		done <- relaxResult{rx: rx, err: err}
	}()

	select {
	case res := <-done:
		return res.rx, res.err
	case <-ctx.Done():
		return relaxation{}, ErrTimeout
	}
}

// improves reports whether a relaxation bound z can still beat the
// incumbent. With an integer objective, a node whose bound rounds up to the
// incumbent's value cannot improve it.
func (s *search) improves(z float64) bool {
	if s.incumbent == nil {
		return true
	}
	bound := z
	if s.integerObjective() {
		bound = math.Ceil(z - integralityTolerance)
	}
	return bound < s.incumbent.z-integralityTolerance
}

// integerObjective reports whether every objective coefficient is integral
// and sits on an integer variable.
func (s *search) integerObjective() bool {
	for i, c := range s.problem.C {
		if c == 0 {
			continue
		}
		if !s.problem.Integer[i] || !isIntegral(c) {
			return false
		}
	}
	return true
}

// fractional returns the integer-constrained variable whose value is
// furthest from an integer, or -1 when all of them are integral. Ties go to
// the lowest index so the search order is deterministic.
func (s *search) fractional(x []float64) int {
	best := -1
	bestDist := integralityTolerance
	for i, v := range x {
		if !s.problem.Integer[i] {
			continue
		}
		_, f := math.Modf(v)
		dist := math.Min(f, 1-f)
		if dist > bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}

func (s *search) stopped(reason error) (Solution, error) {
	if s.incumbent == nil {
		return Solution{Nodes: s.nodes, Log: s.log}, reason
	}
	log.V(1).Infof("milp: %v, returning incumbent z=%.0f after %d nodes", reason, s.incumbent.z, s.nodes)
	return s.solution(s.incumbent, false), nil
}

func (s *search) solution(rx *relaxation, optimal bool) Solution {
	x := make([]float64, len(rx.x))
	for i, v := range rx.x {
		if s.problem.Integer[i] {
			v = math.Round(v)
		}
		x[i] = v
	}
	return Solution{
		X:       x,
		Z:       rx.z,
		Nodes:   s.nodes,
		Optimal: optimal,
		Log:     s.log,
	}
}

func isIntegral(v float64) bool {
	return math.Abs(v-math.Round(v)) <= integralityTolerance
}
