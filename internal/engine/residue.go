package engine

import (
	"github.com/piwi3910/BarCut/internal/model"
)

// greedyResidue places leftover demand by best-fit decreasing: each piece
// goes into the bar whose remaining length fits it most tightly, and a new
// bar of the smallest sufficient stock length is opened only when no bar
// has room. bars and stock are updated in place; the returned map holds the
// pieces that could not be placed.
func greedyResidue(bars []*cutBar, stock map[int]int, remaining map[int]int) ([]*cutBar, map[int]int) {
	var pieces []model.PieceDemand
	for length, q := range remaining {
		if q > 0 {
			pieces = append(pieces, model.PieceDemand{Length: length, Quantity: q})
		}
	}

	unplaced := make(map[int]int)
	for _, piece := range expandPieces(pieces) {
		var best *cutBar
		for _, b := range bars {
			if b.fits(piece) && (best == nil || b.remaining < best.remaining) {
				best = b
			}
		}
		if best == nil {
			if l := takeStock(stock, piece); l > 0 {
				best = newCutBar(l)
				bars = append(bars, best)
			}
		}
		if best == nil {
			unplaced[piece]++
			continue
		}
		best.add(piece)
	}
	return bars, unplaced
}
