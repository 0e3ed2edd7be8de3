package model

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// RawData is the bar-level detail behind a SolverResult.
type RawData struct {
	UsedBars            []UsedBar     `json:"used_bars"`
	WasteLength         int           `json:"waste_length"`
	TotalMotherBarsUsed int           `json:"total_mother_bars_used"`
	RemainingPieces     []PieceDemand `json:"remaining_pieces"` // Demand that could not be placed
}

// ProductionDelta records a piece length whose produced count differs from demand.
type ProductionDelta struct {
	Length   int `json:"length"`
	Demanded int `json:"demanded"`
	Produced int `json:"produced"`
}

// ResultStats summarizes a SolverResult.
type ResultStats struct {
	UtilizationRate  float64           `json:"utilization_rate"` // Percent, 3 decimals
	TotalUsedLength  int               `json:"total_used_length"`
	TotalWasteLength int               `json:"total_waste_length"`
	TotalBarLength   int               `json:"total_bar_length"`
	Overproduced     []ProductionDelta `json:"overproduced,omitempty"`
	Underproduced    []ProductionDelta `json:"underproduced,omitempty"`
}

// SolverResult is the outcome of one solving path for one model.
type SolverResult struct {
	Algorithm Algorithm   `json:"algorithm"`
	Strategy  string      `json:"strategy"` // Which strategy produced the bars
	Layouts   []Layout    `json:"layouts"`
	RawData   RawData     `json:"raw_data"`
	Stats     ResultStats `json:"stats"`
	Path      []string    `json:"path,omitempty"` // Fallback states visited
}

// RemainingCount returns the number of unplaced pieces.
func (r *SolverResult) RemainingCount() int {
	return lo.SumBy(r.RawData.RemainingPieces, func(p PieceDemand) int { return p.Quantity })
}

// Complete reports whether every demanded piece was placed.
func (r *SolverResult) Complete() bool {
	return r.RemainingCount() == 0
}

// BarsUsed returns the number of stock bars consumed.
func (r *SolverResult) BarsUsed() int {
	return r.RawData.TotalMotherBarsUsed
}

// CandidateSummary is one side of a Comparison.
type CandidateSummary struct {
	Available       bool    `json:"available"`
	UtilizationRate float64 `json:"utilization_rate"`
	BarsUsed        int     `json:"bars_used"`
	RemainingPieces int     `json:"remaining_pieces"`
}

// Comparison records why one algorithm was preferred over the other.
type Comparison struct {
	FFD    CandidateSummary `json:"ffd"`
	ILP    CandidateSummary `json:"ilp"`
	Reason string           `json:"reason"`
}

// SelectedResult is the chosen result for one model.
type SelectedResult struct {
	ModelKey   string        `json:"model_key"`
	AlgoUsed   Algorithm     `json:"algo_used"`
	Result     *SolverResult `json:"result"`
	Comparison Comparison    `json:"comparison"`
}

// ModelResult holds everything computed for one model.
type ModelResult struct {
	ModelKey    string          `json:"model_key"`
	Profile     string          `json:"profile"`
	Orientation string          `json:"orientation"`
	Feasibility Feasibility     `json:"feasibility"`
	Selected    *SelectedResult `json:"selected,omitempty"`
	Unsolved    bool            `json:"unsolved"`
	Error       string          `json:"error,omitempty"`
	Offcuts     []Offcut        `json:"offcuts,omitempty"`
}

// GlobalStats aggregates results across models.
type GlobalStats struct {
	TotalModels          int     `json:"total_models"`
	SolvedModels         int     `json:"solved_models"`
	TotalBarsUsed        int     `json:"total_bars_used"`
	TotalBarLength       int     `json:"total_bar_length"`
	TotalWaste           int     `json:"total_waste"`
	TotalRemainingPieces int     `json:"total_remaining_pieces"`
	TotalOffcutLength    int     `json:"total_offcut_length"`
	UtilizationRate      float64 `json:"utilization_rate"`
}

// OptimizeResult holds the full solution.
type OptimizeResult struct {
	Models []ModelResult `json:"models"`
	Global GlobalStats   `json:"global"`
}

// TotalEfficiency returns overall material usage percentage.
func (or OptimizeResult) TotalEfficiency() float64 {
	return or.Global.UtilizationRate
}

// AllOffcuts returns every reusable leftover, longest first.
func (or OptimizeResult) AllOffcuts() []Offcut {
	var all []Offcut
	for _, m := range or.Models {
		all = append(all, m.Offcuts...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Length > all[j].Length
	})
	return all
}

// ComputeGlobalStats sums bars, waste and bar length over all solved models.
func ComputeGlobalStats(models []ModelResult) GlobalStats {
	gs := GlobalStats{TotalModels: len(models)}
	for _, m := range models {
		gs.TotalOffcutLength += TotalOffcutLength(m.Offcuts)
		if m.Selected == nil || m.Selected.Result == nil {
			continue
		}
		gs.SolvedModels++
		r := m.Selected.Result
		gs.TotalBarsUsed += r.RawData.TotalMotherBarsUsed
		gs.TotalBarLength += r.Stats.TotalBarLength
		gs.TotalWaste += r.Stats.TotalWasteLength
		gs.TotalRemainingPieces += r.RemainingCount()
	}
	gs.UtilizationRate = UtilizationRate(gs.TotalBarLength-gs.TotalWaste, gs.TotalBarLength)
	return gs
}

// UtilizationRate returns used/total as a percentage rounded to 3 decimals.
// An empty total yields 0.
func UtilizationRate(used, total int) float64 {
	if total <= 0 {
		return 0
	}
	rate := decimal.NewFromInt(int64(used)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 3)
	f, _ := rate.Float64()
	return f
}

// Round3 rounds a rate to 3 decimals.
func Round3(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(3)
}
