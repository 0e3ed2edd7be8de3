package model

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// UndefinedOrientation is used for pieces imported without an orientation.
const UndefinedOrientation = "undefined"

// ProfilePiece is a piece record as produced by an importer.
type ProfilePiece struct {
	Profile     string `json:"profile"`
	Orientation string `json:"orientation,omitempty"`
	Length      int    `json:"length"`
	Quantity    int    `json:"quantity"`
}

// ProfileBar is a stock bar record as produced by an importer.
type ProfileBar struct {
	Profile  string `json:"profile"`
	Length   int    `json:"length"`
	Quantity int    `json:"quantity"`
}

// CutModel is one independently solved group: a profile in one orientation.
type CutModel struct {
	Profile     string        `json:"profile"`
	Orientation string        `json:"orientation"`
	Pieces      []PieceDemand `json:"pieces"`
	Stock       []StockBar    `json:"stock"`
}

// Key returns "profile_orientation".
func (m CutModel) Key() string {
	return m.Profile + "_" + m.Orientation
}

// Validate checks that every length and quantity is positive.
func (m CutModel) Validate() error {
	if len(m.Pieces) == 0 {
		return fmt.Errorf("%w: model %s has no pieces", ErrMalformedInput, m.Key())
	}
	total := 0
	for _, p := range m.Pieces {
		if p.Length <= 0 || p.Quantity <= 0 {
			return fmt.Errorf("%w: model %s piece length %d quantity %d", ErrMalformedInput, m.Key(), p.Length, p.Quantity)
		}
		total += min(p.Quantity, MaxModelPieces+1)
		if total > MaxModelPieces {
			return fmt.Errorf("%w: model %s has more than %d pieces", ErrMalformedInput, m.Key(), MaxModelPieces)
		}
	}
	for _, s := range m.Stock {
		if s.Length <= 0 || s.Quantity <= 0 {
			return fmt.Errorf("%w: model %s bar length %d quantity %d", ErrMalformedInput, m.Key(), s.Length, s.Quantity)
		}
	}
	return nil
}

// CheckFeasible returns an *InfeasibleModelError when the longest piece is
// longer than every stock bar.
func (m CutModel) CheckFeasible() error {
	longestPiece := lo.MaxBy(m.Pieces, func(a, b PieceDemand) bool { return a.Length > b.Length }).Length
	longestStock := lo.MaxBy(m.Stock, func(a, b StockBar) bool { return a.Length > b.Length }).Length
	if longestPiece > longestStock {
		return &InfeasibleModelError{
			ModelKey:       m.Key(),
			PieceLength:    longestPiece,
			MaxStockLength: longestStock,
		}
	}
	return nil
}

// Feasibility compares demanded length against available stock length.
type Feasibility struct {
	DemandLength int     `json:"demand_length"`
	StockLength  int     `json:"stock_length"`
	Unlimited    bool    `json:"unlimited"`
	Ratio        float64 `json:"ratio"`   // Demand as a percentage of supply
	Deficit      int     `json:"deficit"` // Missing length, 0 when supply suffices
	Sufficient   bool    `json:"sufficient"`
}

// Feasibility summarizes whether the stock can cover the demanded length.
// Sufficient total length is necessary, not sufficient, for a full solution.
func (m CutModel) Feasibility() Feasibility {
	f := Feasibility{
		DemandLength: lo.SumBy(m.Pieces, func(p PieceDemand) int { return p.Length * p.Quantity }),
		Unlimited:    lo.SomeBy(m.Stock, func(s StockBar) bool { return s.Unlimited() }),
	}
	for _, s := range m.Stock {
		if s.Unlimited() {
			continue
		}
		f.StockLength += s.Length * s.Quantity
	}
	if f.Unlimited {
		f.Sufficient = true
		return f
	}
	f.Ratio = UtilizationRate(f.DemandLength, f.StockLength)
	if f.DemandLength > f.StockLength {
		f.Deficit = f.DemandLength - f.StockLength
	}
	f.Sufficient = f.Deficit == 0
	return f
}

// BuildCutModels groups raw records by profile and orientation. Every
// orientation of a profile receives a copy of that profile's stock bars;
// bars for a profile without pieces are ignored. Models are returned sorted
// by key so runs are reproducible.
func BuildCutModels(pieces []ProfilePiece, bars []ProfileBar) []CutModel {
	type group struct {
		profile, orientation string
		pieces               []PieceDemand
	}
	groups := make(map[string]*group)
	for _, p := range pieces {
		orientation := p.Orientation
		if orientation == "" {
			orientation = UndefinedOrientation
		}
		key := p.Profile + "_" + orientation
		g, ok := groups[key]
		if !ok {
			g = &group{profile: p.Profile, orientation: orientation}
			groups[key] = g
		}
		g.pieces = append(g.pieces, PieceDemand{Length: p.Length, Quantity: p.Quantity})
	}

	stockByProfile := lo.GroupBy(bars, func(b ProfileBar) string { return b.Profile })

	keys := lo.Keys(groups)
	sort.Strings(keys)
	models := make([]CutModel, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		stock := lo.Map(stockByProfile[g.profile], func(b ProfileBar, _ int) StockBar {
			return StockBar{Length: b.Length, Quantity: b.Quantity}
		})
		models = append(models, CutModel{
			Profile:     g.profile,
			Orientation: g.orientation,
			Pieces:      MergePieces(g.pieces),
			Stock:       MergeStock(stock),
		})
	}
	return models
}

// MergePieces sums quantities of equal lengths and sorts by length descending.
func MergePieces(pieces []PieceDemand) []PieceDemand {
	totals := make(map[int]int)
	for _, p := range pieces {
		totals[p.Length] += p.Quantity
	}
	merged := lo.MapToSlice(totals, func(length, qty int) PieceDemand {
		return PieceDemand{Length: length, Quantity: qty}
	})
	sort.Slice(merged, func(i, j int) bool { return merged[i].Length > merged[j].Length })
	return merged
}

// MergeStock sums quantities of equal lengths, capping at UnlimitedQuantity,
// and sorts by length descending.
func MergeStock(stock []StockBar) []StockBar {
	totals := make(map[int]int)
	for _, s := range stock {
		totals[s.Length] = min(totals[s.Length]+s.Quantity, UnlimitedQuantity)
	}
	merged := lo.MapToSlice(totals, func(length, qty int) StockBar {
		return StockBar{Length: length, Quantity: qty}
	})
	sort.Slice(merged, func(i, j int) bool { return merged[i].Length > merged[j].Length })
	return merged
}

// DemandMap returns piece length -> quantity.
func DemandMap(pieces []PieceDemand) map[int]int {
	m := make(map[int]int, len(pieces))
	for _, p := range pieces {
		m[p.Length] += p.Quantity
	}
	return m
}

// StockMap returns stock length -> available quantity.
func StockMap(stock []StockBar) map[int]int {
	m := make(map[int]int, len(stock))
	for _, s := range stock {
		m[s.Length] = min(m[s.Length]+s.Quantity, UnlimitedQuantity)
	}
	return m
}
