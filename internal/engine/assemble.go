package engine

import (
	"sort"

	log "github.com/golang/glog"
	"github.com/samber/lo"

	"github.com/piwi3910/BarCut/internal/model"
)

// cutBar is a stock bar being filled by a solving strategy.
type cutBar struct {
	length    int
	cuts      []int
	remaining int
}

func newCutBar(length int) *cutBar {
	return &cutBar{length: length, remaining: length}
}

func (b *cutBar) fits(piece int) bool {
	return b.remaining >= piece
}

func (b *cutBar) add(piece int) {
	b.cuts = append(b.cuts, piece)
	b.remaining -= piece
}

func (b *cutBar) clone() *cutBar {
	return &cutBar{length: b.length, cuts: append([]int(nil), b.cuts...), remaining: b.remaining}
}

// barFromPattern turns a committed pattern into a bar.
func barFromPattern(p model.CuttingPattern) *cutBar {
	b := newCutBar(p.StockLength)
	for _, piece := range p.Pieces {
		b.add(piece)
	}
	return b
}

// assembleResult converts the bars produced by any strategy into the
// standardized result shape. Production is compared against demand: any
// shortfall becomes RemainingPieces, any excess is reported as overproduced.
func assembleResult(algorithm model.Algorithm, strategy string, bars []*cutBar, demand []model.PieceDemand) *model.SolverResult {
	r := &model.SolverResult{Algorithm: algorithm, Strategy: strategy}

	produced := make(map[int]int)
	for _, b := range bars {
		if len(b.cuts) == 0 {
			continue
		}
		ub, err := model.NewUsedBar(b.length, b.cuts)
		if err != nil {
			// Strategies only add pieces that fit, so this is a programming error.
			log.Errorf("%s: dropping invalid bar: %v", strategy, err)
			continue
		}
		r.RawData.UsedBars = append(r.RawData.UsedBars, ub)
		for _, c := range ub.Cuts {
			produced[c]++
		}
		r.Stats.TotalBarLength += ub.OriginalLength
		r.Stats.TotalUsedLength += ub.UsedLength()
		r.RawData.WasteLength += ub.RemainingLength
	}
	r.RawData.TotalMotherBarsUsed = len(r.RawData.UsedBars)
	r.Stats.TotalWasteLength = r.RawData.WasteLength
	r.Stats.UtilizationRate = model.UtilizationRate(r.Stats.TotalUsedLength, r.Stats.TotalBarLength)
	r.Layouts = model.GroupLayouts(r.RawData.UsedBars)

	demanded := model.DemandMap(demand)
	lengths := lo.Uniq(append(lo.Keys(demanded), lo.Keys(produced)...))
	sort.Sort(sort.Reverse(sort.IntSlice(lengths)))
	for _, l := range lengths {
		d, p := demanded[l], produced[l]
		delta := model.ProductionDelta{Length: l, Demanded: d, Produced: p}
		switch {
		case p > d:
			r.Stats.Overproduced = append(r.Stats.Overproduced, delta)
		case p < d:
			r.Stats.Underproduced = append(r.Stats.Underproduced, delta)
			r.RawData.RemainingPieces = append(r.RawData.RemainingPieces, model.PieceDemand{Length: l, Quantity: d - p})
		}
	}
	return r
}

// expandPieces lists every individual piece, longest first.
func expandPieces(pieces []model.PieceDemand) []int {
	var expanded []int
	for _, p := range pieces {
		for i := 0; i < p.Quantity; i++ {
			expanded = append(expanded, p.Length)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(expanded)))
	return expanded
}

// stockLengthsAscending returns the stock lengths with remaining quantity.
func stockLengthsAscending(stock map[int]int) []int {
	lengths := lo.Filter(lo.Keys(stock), func(l int, _ int) bool { return stock[l] > 0 })
	sort.Ints(lengths)
	return lengths
}

// takeStock consumes one bar of the smallest length that can hold piece.
// It returns 0 when no stock bar is long enough.
func takeStock(stock map[int]int, piece int) int {
	for _, l := range stockLengthsAscending(stock) {
		if l >= piece {
			if stock[l] < model.UnlimitedQuantity {
				stock[l]--
			}
			return l
		}
	}
	return 0
}
