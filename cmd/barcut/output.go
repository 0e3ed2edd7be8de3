package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/model"
)

type jsonOutput struct {
	Result      model.OptimizeResult      `json:"result"`
	Comparisons []engine.ComparisonResult `json:"comparisons,omitempty"`
}

func writeJSON(w io.Writer, result model.OptimizeResult, comparisons []engine.ComparisonResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonOutput{Result: result, Comparisons: comparisons})
}

// writeText prints one block per model with its layouts, then the totals.
func writeText(w io.Writer, result model.OptimizeResult, elapsed time.Duration) {
	for _, m := range result.Models {
		fmt.Fprintf(w, "== %s (profile %s, %s)\n", m.ModelKey, m.Profile, m.Orientation)
		if m.Selected == nil || m.Selected.Result == nil {
			fmt.Fprintf(w, "   UNSOLVED: %s\n\n", m.Error)
			continue
		}
		r := m.Selected.Result
		fmt.Fprintf(w, "   %s (%s): %d bars, %d mm waste, %.3f%% utilization\n",
			m.Selected.AlgoUsed, r.Strategy, r.BarsUsed(), r.Stats.TotalWasteLength, r.Stats.UtilizationRate)
		if reason := m.Selected.Comparison.Reason; reason != "" {
			fmt.Fprintf(w, "   %s\n", reason)
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, l := range r.Layouts {
			cuts := strings.Join(lo.Map(l.Cuts, func(c int, _ int) string { return fmt.Sprint(c) }), " + ")
			fmt.Fprintf(tw, "   %dx\t%d mm\t[%s]\twaste %d\n", l.Count, l.OriginalLength, cuts, l.Waste)
		}
		tw.Flush()

		for _, p := range r.RawData.RemainingPieces {
			fmt.Fprintf(w, "   NOT PLACED: %d x %d mm\n", p.Quantity, p.Length)
		}
		if len(m.Offcuts) > 0 {
			lengths := lo.Map(m.Offcuts, func(o model.Offcut, _ int) string { return fmt.Sprint(o.Length) })
			fmt.Fprintf(w, "   Reusable offcuts: %s mm\n", strings.Join(lengths, ", "))
		}
		fmt.Fprintln(w)
	}

	g := result.Global
	fmt.Fprintf(w, "Solved %d/%d models in %s: %d bars, %d mm stock, %d mm waste, %.3f%% utilization\n",
		g.SolvedModels, g.TotalModels, elapsed.Round(time.Millisecond), g.TotalBarsUsed, g.TotalBarLength, g.TotalWaste, g.UtilizationRate)
	if g.TotalRemainingPieces > 0 {
		fmt.Fprintf(w, "%d pieces could not be placed\n", g.TotalRemainingPieces)
	}
}

func writeComparison(w io.Writer, comparisons []engine.ComparisonResult) {
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Scenario\tBars\tWaste (mm)\tUtilization\tNot placed\t")
	for _, c := range comparisons {
		if c.Err != nil && len(c.Result.Models) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s\n", c.Scenario.Name, c.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.3f%%\t%d\t\n", c.Scenario.Name, c.BarsUsed, c.TotalWaste, c.UtilizationRate, c.RemainingPieces)
	}
	tw.Flush()
}
