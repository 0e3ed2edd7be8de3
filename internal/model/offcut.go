package model

import (
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Offcut is a leftover long enough to be reused as stock.
type Offcut struct {
	ID       string `json:"id"`
	ModelKey string `json:"model_key"` // Which model it came from
	BarIndex int    `json:"bar_index"` // Index of the source bar in the result
	BarID    string `json:"bar_id"`
	Length   int    `json:"length"` // mm
}

// ToStockBar converts an offcut into a stock bar for reuse in a later run.
func (o Offcut) ToStockBar() StockBar {
	return StockBar{Length: o.Length, Quantity: 1}
}

// DetectOffcuts returns the leftovers of the given bars that are at least
// minLength long, longest first.
func DetectOffcuts(modelKey string, bars []UsedBar, minLength int) []Offcut {
	var offcuts []Offcut
	for i, b := range bars {
		if b.RemainingLength <= 0 || b.RemainingLength < minLength {
			continue
		}
		offcuts = append(offcuts, Offcut{
			ID:       uuid.New().String()[:8],
			ModelKey: modelKey,
			BarIndex: i,
			BarID:    b.ID,
			Length:   b.RemainingLength,
		})
	}

	sort.SliceStable(offcuts, func(i, j int) bool {
		return offcuts[i].Length > offcuts[j].Length
	})
	return offcuts
}

// OffcutsAsStock merges offcuts of equal length into stock bars.
func OffcutsAsStock(offcuts []Offcut) []StockBar {
	counts := lo.CountValuesBy(offcuts, func(o Offcut) int { return o.Length })
	return MergeStock(lo.MapToSlice(counts, func(length, qty int) StockBar {
		return StockBar{Length: length, Quantity: qty}
	}))
}

// TotalOffcutLength returns the total length of all offcuts in mm.
func TotalOffcutLength(offcuts []Offcut) int {
	return lo.SumBy(offcuts, func(o Offcut) int { return o.Length })
}
