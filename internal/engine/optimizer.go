package engine

import (
	"context"
	"errors"
	"fmt"

	log "github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/model"
)

// Optimizer solves every cut model with the configured algorithm.
type Optimizer struct {
	Settings model.Settings
	Solver   Solver
}

func New(settings model.Settings) *Optimizer {
	settings = settings.WithDefaults()
	if alg, err := model.ParseAlgorithm(string(settings.Algorithm)); err == nil {
		settings.Algorithm = alg
	}
	return &Optimizer{
		Settings: settings,
		Solver:   BranchAndBound{NodeLimit: settings.ILPNodeLimit},
	}
}

// Optimize validates all models, then solves them one after the other.
// Malformed input is returned immediately as model.ErrMalformedInput.
// A model whose longest piece fits no stock bar is marked unsolved and its
// *model.InfeasibleModelError is joined into the returned error while the
// remaining models are still solved. Cancellation is checked between models.
func (o *Optimizer) Optimize(ctx context.Context, models []model.CutModel) (model.OptimizeResult, error) {
	if _, err := model.ParseAlgorithm(string(o.Settings.Algorithm)); err != nil {
		return model.OptimizeResult{}, err
	}
	if len(models) == 0 {
		return model.OptimizeResult{}, fmt.Errorf("%w: no models to optimize", model.ErrMalformedInput)
	}
	for _, m := range models {
		if err := m.Validate(); err != nil {
			return model.OptimizeResult{}, err
		}
	}

	var result model.OptimizeResult
	var errs []error
	for _, m := range models {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		mr, err := o.OptimizeModel(ctx, m)
		if err != nil {
			errs = append(errs, err)
		}
		result.Models = append(result.Models, mr)
	}

	result.Global = model.ComputeGlobalStats(result.Models)
	log.Infof("optimized %d/%d models: %d bars, %d waste, %.3f%% utilization",
		result.Global.SolvedModels, len(models), result.Global.TotalBarsUsed,
		result.Global.TotalWaste, result.Global.UtilizationRate)
	return result, errors.Join(errs...)
}

// OptimizeModel solves a single model. The returned ModelResult is always
// populated; err is non-nil only for an infeasible model.
func (o *Optimizer) OptimizeModel(ctx context.Context, m model.CutModel) (model.ModelResult, error) {
	key := m.Key()
	mr := model.ModelResult{
		ModelKey:    key,
		Profile:     m.Profile,
		Orientation: m.Orientation,
		Feasibility: m.Feasibility(),
	}
	if !mr.Feasibility.Sufficient {
		log.Warningf("%s: demand %d exceeds stock %d, expect remaining pieces", key, mr.Feasibility.DemandLength, mr.Feasibility.StockLength)
	}

	if err := m.CheckFeasible(); err != nil {
		log.Warningf("%s: %v", key, err)
		mr.Unsolved = true
		mr.Error = err.Error()
		return mr, err
	}

	var heuristic, exact *model.SolverResult
	if o.Settings.Algorithm != model.AlgorithmILP {
		heuristic = NewHeuristicSolver(o.Settings).Solve(m.Stock, m.Pieces)
	}
	if o.Settings.Algorithm != model.AlgorithmFFD {
		exact = NewExactSolver(o.Settings, o.Solver).Solve(ctx, key, m.Stock, m.Pieces)
	}

	mr.Selected = Select(key, heuristic, exact)
	if r := mr.Selected.Result; r != nil {
		mr.Offcuts = model.DetectOffcuts(key, r.RawData.UsedBars, o.Settings.MinOffcutLength)
		log.Infof("%s: %s (%s) %d bars, %.3f%% utilization, %d remaining; %s",
			key, mr.Selected.AlgoUsed, r.Strategy, r.BarsUsed(), r.Stats.UtilizationRate,
			r.RemainingCount(), mr.Selected.Comparison.Reason)
		if !r.Complete() {
			log.Warningf("%s: residual demand %v", key, r.RawData.RemainingPieces)
		}
	}
	return mr, nil
}
