package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	log "github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/model"
)

// Strategy names reported by the exact path.
const (
	StrategyILP              = "ilp"
	StrategyColumnGeneration = "column-generation"
	StrategyGreedyResidue    = "column-generation+greedy-residue"
)

// fallbackState is a state of the exact path's degradation chain.
type fallbackState int

const (
	stateTryExact fallbackState = iota
	stateTryColumnGeneration
	stateTryGreedyResidue
	stateDone
	stateDoneWithResidue
	stateInfeasible
)

func (s fallbackState) String() string {
	switch s {
	case stateTryExact:
		return "TryExact"
	case stateTryColumnGeneration:
		return "TryColumnGeneration"
	case stateTryGreedyResidue:
		return "TryGreedyResidue"
	case stateDone:
		return "Done"
	case stateDoneWithResidue:
		return "DoneWithResidue"
	case stateInfeasible:
		return "Infeasible"
	default:
		return fmt.Sprintf("fallbackState(%d)", int(s))
	}
}

func (s fallbackState) terminal() bool {
	return s == stateDone || s == stateDoneWithResidue || s == stateInfeasible
}

// ExactSolver runs the integer program and degrades to column generation
// and then to a greedy residue pass when the program cannot be solved.
type ExactSolver struct {
	Settings model.Settings
	Solver   Solver
}

func NewExactSolver(settings model.Settings, solver Solver) *ExactSolver {
	settings = settings.WithDefaults()
	if solver == nil {
		solver = BranchAndBound{NodeLimit: settings.ILPNodeLimit}
	}
	return &ExactSolver{Settings: settings, Solver: solver}
}

// exactRun is the mutable state of one pass through the state machine.
type exactRun struct {
	key      string
	stock    []model.StockBar
	demand   []model.PieceDemand
	patterns []model.CuttingPattern
	safe     SafePatterns

	bars      []*cutBar
	remaining map[int]int
	stockLeft map[int]int
	strategy  string
	path      []string
}

// Solve returns the exact-path result for one model. Every state visited is
// listed in the result's Path.
func (e *ExactSolver) Solve(ctx context.Context, modelKey string, stock []model.StockBar, pieces []model.PieceDemand) *model.SolverResult {
	run := &exactRun{
		key:    modelKey,
		stock:  model.MergeStock(stock),
		demand: model.MergePieces(pieces),
	}

	state := stateTryExact
	for !state.terminal() {
		run.path = append(run.path, state.String())
		var next fallbackState
		switch state {
		case stateTryExact:
			next = e.tryExact(ctx, run)
		case stateTryColumnGeneration:
			next = e.tryColumnGeneration(run)
		case stateTryGreedyResidue:
			next = e.tryGreedyResidue(run)
		}
		log.V(1).Infof("%s: %s -> %s", modelKey, state, next)
		state = next
	}
	run.path = append(run.path, state.String())

	result := assembleResult(model.AlgorithmILP, run.strategy, run.bars, run.demand)
	result.Path = run.path
	return result
}

func (e *ExactSolver) tryExact(ctx context.Context, run *exactRun) fallbackState {
	run.patterns = generateAllPatterns(run.key, run.demand, run.stock, e.Settings)
	run.safe = FilterSafe(run.patterns, run.demand)
	if len(run.safe.Patterns) == 0 {
		log.Warningf("%s: no safe patterns, falling back to column generation", run.key)
		return stateTryColumnGeneration
	}

	m := buildModel(run.safe.Patterns, run.stock, run.demand, e.Settings.MaxILPPatterns)
	if missing := m.Uncovered(); len(missing) > 0 {
		log.Warningf("%s: no pattern cuts lengths %v, falling back to column generation", run.key, missing)
		return stateTryColumnGeneration
	}
	if len(m.Variables) < len(m.Demand) {
		log.Warningf("%s: %d patterns for %d demand rows, falling back to column generation", run.key, len(m.Variables), len(m.Demand))
		return stateTryColumnGeneration
	}

	sol, err := e.invoke(ctx, m)
	if err != nil {
		log.Warningf("%s: solver failed (%v), falling back to column generation", run.key, err)
		return stateTryColumnGeneration
	}
	bars, reason := acceptSolution(m, sol, run.stock, run.demand)
	if bars == nil {
		log.Warningf("%s: solution rejected (%s), falling back to column generation", run.key, reason)
		return stateTryColumnGeneration
	}

	run.bars = bars
	run.strategy = StrategyILP
	return stateDone
}

// invoke calls the solver, turning a panic into an error.
func (e *ExactSolver) invoke(ctx context.Context, m *Model) (sol Solution, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("solver panic: %v", r)
		}
	}()
	return e.Solver.Solve(ctx, m, e.Settings.ILPTimeout())
}

// acceptSolution decodes a solver solution into bars. It returns nil and a
// reason unless the solution is feasible, has a finite positive objective,
// uses at least one pattern, meets demand exactly and respects stock.
func acceptSolution(m *Model, sol Solution, stock []model.StockBar, demand []model.PieceDemand) ([]*cutBar, string) {
	if !sol.Feasible {
		return nil, "infeasible"
	}
	if math.IsNaN(sol.Result) || math.IsInf(sol.Result, 0) || sol.Result <= 0 {
		return nil, fmt.Sprintf("objective %v", sol.Result)
	}

	var bars []*cutBar
	produced := make(map[int]int)
	usedStock := make(map[int]int)
	for _, v := range m.Variables {
		n := int(math.Round(sol.Values[v.Name]))
		for i := 0; i < n; i++ {
			bars = append(bars, barFromPattern(v.Pattern))
		}
		for length, count := range v.Pattern.Composition {
			produced[length] += n * count
		}
		usedStock[v.Pattern.StockLength] += n
	}
	if len(bars) == 0 {
		return nil, "no pattern used"
	}

	for length, q := range model.DemandMap(demand) {
		if produced[length] != q {
			return nil, fmt.Sprintf("length %d produced %d of %d", length, produced[length], q)
		}
	}
	available := model.StockMap(stock)
	for length, n := range usedStock {
		if n > available[length] {
			return nil, fmt.Sprintf("stock %d used %d of %d", length, n, available[length])
		}
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].length > bars[j].length })
	return bars, ""
}

func (e *ExactSolver) tryColumnGeneration(run *exactRun) fallbackState {
	cg := solveByColumnGeneration(run.safe, run.stock, run.demand, e.Settings.ColumnGenerationIterations)
	log.V(1).Infof("%s: column generation committed %d bars in %d iterations (%d custom patterns)",
		run.key, len(cg.Bars), cg.Iterations, cg.CustomPatterns)

	run.bars = make([]*cutBar, 0, len(cg.Bars))
	for _, p := range cg.Bars {
		run.bars = append(run.bars, barFromPattern(p))
	}
	run.remaining = cg.Remaining
	run.stockLeft = cg.StockLeft
	run.strategy = StrategyColumnGeneration

	if cg.Satisfied() {
		return stateDone
	}
	return stateTryGreedyResidue
}

func (e *ExactSolver) tryGreedyResidue(run *exactRun) fallbackState {
	bars, unplaced := greedyResidue(run.bars, run.stockLeft, run.remaining)
	run.bars = bars
	run.strategy = StrategyGreedyResidue
	if len(unplaced) == 0 {
		return stateDone
	}
	lengths := make([]int, 0, len(unplaced))
	for l := range unplaced {
		lengths = append(lengths, l)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(lengths)))
	for _, l := range lengths {
		log.Warningf("%s: %d pieces of length %d could not be placed", run.key, unplaced[l], l)
	}
	if len(bars) == 0 {
		return stateInfeasible
	}
	return stateDoneWithResidue
}
