package engine

import (
	"fmt"

	"github.com/piwi3910/BarCut/internal/model"
)

// Select picks between the heuristic and exact results for a model. A
// missing side loses. Otherwise the higher utilization (3 decimals) wins,
// even over a side that places more pieces. Equal utilization falls back to
// fewer bars, then fewer unplaced pieces, and on a full tie the heuristic
// result. The comparison is always attached.
func Select(modelKey string, heuristic, ilp *model.SolverResult) *model.SelectedResult {
	sel := &model.SelectedResult{
		ModelKey: modelKey,
		Comparison: model.Comparison{
			FFD: summarize(heuristic),
			ILP: summarize(ilp),
		},
	}

	pick := func(r *model.SolverResult, reason string, args ...any) *model.SelectedResult {
		sel.Result = r
		sel.AlgoUsed = r.Algorithm
		sel.Comparison.Reason = fmt.Sprintf(reason, args...)
		return sel
	}

	switch {
	case heuristic == nil && ilp == nil:
		sel.Comparison.Reason = "no result available"
		return sel
	case ilp == nil:
		return pick(heuristic, "ffd only: ilp result unavailable")
	case heuristic == nil:
		return pick(ilp, "ilp only: ffd result unavailable")
	}

	hu, iu := model.Round3(heuristic.Stats.UtilizationRate), model.Round3(ilp.Stats.UtilizationRate)
	switch hu.Cmp(iu) {
	case 1:
		return pick(heuristic, "ffd has higher utilization (%s%% vs %s%%)", hu.StringFixed(3), iu.StringFixed(3))
	case -1:
		return pick(ilp, "ilp has higher utilization (%s%% vs %s%%)", iu.StringFixed(3), hu.StringFixed(3))
	}

	hb, ib := heuristic.BarsUsed(), ilp.BarsUsed()
	switch {
	case ib < hb:
		return pick(ilp, "equal utilization, ilp uses fewer bars (%d vs %d)", ib, hb)
	case hb < ib:
		return pick(heuristic, "equal utilization, ffd uses fewer bars (%d vs %d)", hb, ib)
	}

	hr, ir := heuristic.RemainingCount(), ilp.RemainingCount()
	switch {
	case hr < ir:
		return pick(heuristic, "equal utilization and bars, ffd places more pieces (%d unplaced vs %d)", hr, ir)
	case ir < hr:
		return pick(ilp, "equal utilization and bars, ilp places more pieces (%d unplaced vs %d)", ir, hr)
	}
	return pick(heuristic, "tie at %s%% and %d bars, keeping ffd", hu.StringFixed(3), hb)
}

func summarize(r *model.SolverResult) model.CandidateSummary {
	if r == nil {
		return model.CandidateSummary{}
	}
	return model.CandidateSummary{
		Available:       true,
		UtilizationRate: r.Stats.UtilizationRate,
		BarsUsed:        r.BarsUsed(),
		RemainingPieces: r.RemainingCount(),
	}
}
