package engine

import (
	"math"

	log "github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/model"
)

// defaultColumnGenerationIterations caps the pricing loop.
const defaultColumnGenerationIterations = 100

// Pricing penalties.
const (
	wastePenalty          = 2
	overproducedTypeCost  = 15
	overproducedPieceCost = 10
	exhaustedLengthScore  = -1000
)

// ColumnGenerationResult is the raw outcome of the pricing loop.
type ColumnGenerationResult struct {
	Bars           []model.CuttingPattern // One committed pattern per bar
	Remaining      map[int]int            // Piece length -> unmet demand
	StockLeft      map[int]int            // Stock length -> bars still available
	Iterations     int
	CustomPatterns int
}

// Satisfied reports whether all demand was met.
func (r ColumnGenerationResult) Satisfied() bool {
	for _, q := range r.Remaining {
		if q > 0 {
			return false
		}
	}
	return true
}

// SolveByColumnGeneration repeatedly commits the best-priced safe pattern,
// synthesizing a knapsack pattern when none prices above zero, for at most
// 100 iterations. A pattern is priced only until it has been committed as
// often as FilterSafe allows.
func SolveByColumnGeneration(patterns []model.CuttingPattern, stock []model.StockBar, demand []model.PieceDemand) ColumnGenerationResult {
	return solveByColumnGeneration(FilterSafe(patterns, demand), stock, demand, defaultColumnGenerationIterations)
}

func solveByColumnGeneration(safe SafePatterns, stock []model.StockBar, demand []model.PieceDemand, maxIterations int) ColumnGenerationResult {
	r := ColumnGenerationResult{
		Remaining: model.DemandMap(demand),
		StockLeft: model.StockMap(stock),
	}
	used := make(map[string]int)
	patterns := safe.Patterns

	for r.Iterations < maxIterations && !r.Satisfied() {
		r.Iterations++

		chosen, score, ok := priceBest(patterns, r.Remaining, r.StockLeft, func(p model.CuttingPattern) bool {
			return used[p.Key()] < safe.MaxUsage[p.Key()]
		})
		synthesized := !ok || score <= 0
		if synthesized {
			custom, found := synthesizePattern(r.Remaining, r.StockLeft)
			if !found {
				log.V(1).Infof("column generation: no useful pattern at iteration %d", r.Iterations)
				break
			}
			chosen = custom
			r.CustomPatterns++
			log.V(2).Infof("column generation: custom pattern %s", chosen.Key())
		} else {
			log.V(2).Infof("column generation: pattern %s scored %.0f", chosen.Key(), score)
		}

		// Master update.
		if r.StockLeft[chosen.StockLength] <= 0 {
			break
		}
		adapted, ok := adaptPattern(chosen, r.Remaining)
		if !ok {
			break
		}
		if r.StockLeft[chosen.StockLength] < model.UnlimitedQuantity {
			r.StockLeft[chosen.StockLength]--
		}
		for length, count := range adapted.Composition {
			r.Remaining[length] -= count
		}
		if !synthesized {
			used[chosen.Key()]++
		}
		r.Bars = append(r.Bars, adapted)
	}
	return r
}

// priceBest returns the highest-scoring pattern whose stock length is still
// available and that usable accepts. Ties keep the earlier pattern.
func priceBest(patterns []model.CuttingPattern, remaining, stockLeft map[int]int, usable func(model.CuttingPattern) bool) (model.CuttingPattern, float64, bool) {
	bestScore := math.Inf(-1)
	best := -1
	for i, p := range patterns {
		if stockLeft[p.StockLength] <= 0 || !usable(p) {
			continue
		}
		if s := priceScore(p, remaining); s > bestScore {
			bestScore = s
			best = i
		}
	}
	if best < 0 {
		return model.CuttingPattern{}, 0, false
	}
	return patterns[best], bestScore, true
}

// priceScore values the length a pattern would usefully cut, minus
// penalties for waste and for overproduction. A pattern cutting a length
// whose demand is already met scores exhaustedLengthScore.
func priceScore(p model.CuttingPattern, remaining map[int]int) float64 {
	if len(p.Composition) == 0 {
		return exhaustedLengthScore
	}
	usable, overTypes, overPieces := 0, 0, 0
	for length, count := range p.Composition {
		need := remaining[length]
		if need <= 0 {
			return exhaustedLengthScore
		}
		usable += min(count, need) * length
		if count > need {
			overTypes++
			overPieces += count - need
		}
	}
	return float64(usable - wastePenalty*p.Waste - overproducedTypeCost*overTypes - overproducedPieceCost*overPieces)
}

// adaptPattern strips piece counts above the remaining demand.
func adaptPattern(p model.CuttingPattern, remaining map[int]int) (model.CuttingPattern, bool) {
	composition := make(map[int]int)
	for length, count := range p.Composition {
		if n := min(count, remaining[length]); n > 0 {
			composition[length] = n
		}
	}
	if len(composition) == 0 {
		return model.CuttingPattern{}, false
	}
	adapted, err := model.NewCuttingPattern(p.StockLength, composition)
	if err != nil {
		return model.CuttingPattern{}, false
	}
	return adapted, true
}

// synthesizePattern runs the knapsack for every available stock length and
// keeps the best utilization, preferring the shorter bar on ties.
func synthesizePattern(remaining, stockLeft map[int]int) (model.CuttingPattern, bool) {
	var pieces []model.PieceDemand
	for length, q := range remaining {
		if q > 0 {
			pieces = append(pieces, model.PieceDemand{Length: length, Quantity: q})
		}
	}
	if len(pieces) == 0 {
		return model.CuttingPattern{}, false
	}

	var best model.CuttingPattern
	bestRate := 0.0
	found := false
	for _, l := range stockLengthsAscending(stockLeft) {
		p, ok := Knapsack(pieces, l)
		if !ok {
			continue
		}
		rate := float64(p.UsedLength()) / float64(l)
		if rate > bestRate {
			best, bestRate, found = p, rate, true
		}
	}
	return best, found
}
