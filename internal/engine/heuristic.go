package engine

import (
	log "github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/model"
)

// Heuristic strategy names, in the order they are tried.
const (
	StrategyClassicFFD = "classic-ffd"
	StrategyGrouping   = "intelligent-grouping"
	StrategyExhaustive = "exhaustive"
)

// Grouping score weights.
const (
	groupingFillWeight  = 0.4
	groupingWasteWeight = 0.4
	groupingNeedWeight  = 0.2
)

// HeuristicSolver runs several greedy strategies and keeps the best.
type HeuristicSolver struct {
	Settings model.Settings
}

func NewHeuristicSolver(settings model.Settings) *HeuristicSolver {
	return &HeuristicSolver{Settings: settings.WithDefaults()}
}

// strategyFunc fills bars from a private copy of the stock. ok is false when
// the strategy declined to run.
type strategyFunc func(stock map[int]int, pieces []model.PieceDemand) (bars []*cutBar, ok bool)

// Solve runs classic FFD, intelligent grouping and, for small instances, a
// bounded exhaustive search. The best result has the highest utilization,
// then the fewest unplaced pieces; ties keep the earlier strategy.
func (h *HeuristicSolver) Solve(stock []model.StockBar, pieces []model.PieceDemand) *model.SolverResult {
	pieces = model.MergePieces(pieces)
	strategies := []struct {
		name string
		run  strategyFunc
	}{
		{StrategyClassicFFD, h.classicFFD},
		{StrategyGrouping, h.intelligentGrouping},
		{StrategyExhaustive, h.exhaustive},
	}

	var best *model.SolverResult
	for _, s := range strategies {
		bars, ok := s.run(model.StockMap(stock), pieces)
		if !ok {
			log.V(2).Infof("heuristic: %s skipped", s.name)
			continue
		}
		result := assembleResult(model.AlgorithmFFD, s.name, bars, pieces)
		log.V(2).Infof("heuristic: %s used %d bars at %.3f%%, %d unplaced",
			s.name, result.BarsUsed(), result.Stats.UtilizationRate, result.RemainingCount())
		if best == nil || betterHeuristic(result, best) {
			best = result
		}
	}
	return best
}

func betterHeuristic(candidate, incumbent *model.SolverResult) bool {
	if candidate.Stats.UtilizationRate != incumbent.Stats.UtilizationRate {
		return candidate.Stats.UtilizationRate > incumbent.Stats.UtilizationRate
	}
	return candidate.RemainingCount() < incumbent.RemainingCount()
}

// classicFFD places pieces longest first into the first open bar with room,
// opening the smallest sufficient stock bar when none has.
func (h *HeuristicSolver) classicFFD(stock map[int]int, pieces []model.PieceDemand) ([]*cutBar, bool) {
	var bars []*cutBar
	for _, piece := range expandPieces(pieces) {
		placed := false
		for _, b := range bars {
			if b.fits(piece) {
				b.add(piece)
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		if l := takeStock(stock, piece); l > 0 {
			b := newCutBar(l)
			b.add(piece)
			bars = append(bars, b)
		}
	}
	return bars, true
}

// intelligentGrouping handles one piece length at a time, longest first,
// repeatedly choosing the open bar or new stock bar with the best score.
func (h *HeuristicSolver) intelligentGrouping(stock map[int]int, pieces []model.PieceDemand) ([]*cutBar, bool) {
	var bars []*cutBar
	for _, p := range pieces {
		need := p.Quantity
		for need > 0 {
			bestScore := -1.0
			var bestBar *cutBar
			bestNew := 0
			bestFit := 0

			consider := func(remaining, original int) (float64, int) {
				fit := min(remaining/p.Length, need)
				if fit == 0 {
					return -1, 0
				}
				used := fit * p.Length
				score := groupingFillWeight*float64(used)/float64(remaining) +
					groupingWasteWeight*(1-float64(remaining-used)/float64(original)) +
					groupingNeedWeight*float64(fit)/float64(need)
				return score, fit
			}

			for _, b := range bars {
				if score, fit := consider(b.remaining, b.length); score > bestScore {
					bestScore, bestBar, bestNew, bestFit = score, b, 0, fit
				}
			}
			for _, l := range stockLengthsAscending(stock) {
				if score, fit := consider(l, l); score > bestScore {
					bestScore, bestBar, bestNew, bestFit = score, nil, l, fit
				}
			}

			if bestFit == 0 {
				break
			}
			if bestBar == nil {
				bestBar = newCutBar(bestNew)
				if stock[bestNew] < model.UnlimitedQuantity {
					stock[bestNew]--
				}
				bars = append(bars, bestBar)
			}
			for i := 0; i < bestFit; i++ {
				bestBar.add(p.Length)
			}
			need -= bestFit
		}
	}
	return bars, true
}

// exhaustiveSearch is a depth-first assignment of pieces to bars that
// minimizes the total length of opened bars.
type exhaustiveSearch struct {
	pieces    []int
	stock     map[int]int
	lengths   []int
	nodeLimit int
	nodes     int

	bars       []*cutBar
	openLength int

	best       []*cutBar
	bestLength int
}

// exhaustive only runs for small instances; it declines when the piece or
// stock-type count is over the configured bound, or when it finds no
// complete assignment within the node limit.
func (h *HeuristicSolver) exhaustive(stock map[int]int, pieces []model.PieceDemand) ([]*cutBar, bool) {
	expanded := expandPieces(pieces)
	lengths := stockLengthsAscending(stock)
	if len(expanded) > h.Settings.ExhaustiveMaxPieces || len(lengths) > h.Settings.ExhaustiveMaxStockTypes {
		return nil, false
	}

	s := &exhaustiveSearch{
		pieces:    expanded,
		stock:     stock,
		lengths:   lengths,
		nodeLimit: h.Settings.ExhaustiveNodeLimit,
	}
	s.search(0)
	if s.best == nil {
		return nil, false
	}
	if s.nodes >= s.nodeLimit {
		log.V(1).Infof("heuristic: exhaustive search stopped at node limit %d", s.nodeLimit)
	}
	return s.best, true
}

func (s *exhaustiveSearch) search(i int) {
	if s.nodes >= s.nodeLimit {
		return
	}
	s.nodes++

	if s.best != nil && s.openLength >= s.bestLength {
		return
	}
	if i == len(s.pieces) {
		s.best = make([]*cutBar, len(s.bars))
		for j, b := range s.bars {
			s.best[j] = b.clone()
		}
		s.bestLength = s.openLength
		return
	}

	piece := s.pieces[i]

	// Bars in the same state are interchangeable; try each state once.
	tried := make(map[[2]int]bool)
	for _, b := range s.bars {
		state := [2]int{b.length, b.remaining}
		if !b.fits(piece) || tried[state] {
			continue
		}
		tried[state] = true
		b.add(piece)
		s.search(i + 1)
		b.cuts = b.cuts[:len(b.cuts)-1]
		b.remaining += piece
	}

	for _, l := range s.lengths {
		if l < piece || s.stock[l] == 0 {
			continue
		}
		s.stock[l]--
		b := newCutBar(l)
		b.add(piece)
		s.bars = append(s.bars, b)
		s.openLength += l

		s.search(i + 1)

		s.openLength -= l
		s.bars = s.bars[:len(s.bars)-1]
		s.stock[l]++
	}
}
