package engine

import (
	"sort"

	log "github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/model"
)

const (
	// maxBranchResults caps the compositions returned by one recursion branch.
	maxBranchResults = 100
	// homogeneousTypes is how many of the longest piece types get a
	// single-length pattern.
	homogeneousTypes = 5
	// highDemandTypes is how many of the most demanded piece types are
	// combined into one extra pattern.
	highDemandTypes = 3
)

// memoKey identifies a recursion state: the first piece type still to
// decide and the length left on the bar.
type memoKey struct {
	index     int
	remaining int
}

// patternSearch owns the state of one enumeration run.
type patternSearch struct {
	pieces      []model.PieceDemand // Fitting piece types, longest first
	stockLength int
	maxPatterns int

	memo     map[memoKey][][]int
	seen     map[string]bool
	patterns []model.CuttingPattern
	overflow bool
}

// GeneratePatterns enumerates the ways of cutting one bar of stockLength
// from the given pieces. At most maxPatterns patterns are returned, sorted
// by waste ascending and piece count descending. When no piece fits, the
// result is a single all-waste pattern.
func GeneratePatterns(pieces []model.PieceDemand, stockLength int, maxPatterns int) []model.CuttingPattern {
	patterns, _ := generatePatterns(pieces, stockLength, maxPatterns)
	return patterns
}

// generatePatterns is GeneratePatterns that also reports whether a cap cut
// the enumeration short.
func generatePatterns(pieces []model.PieceDemand, stockLength int, maxPatterns int) ([]model.CuttingPattern, bool) {
	s := &patternSearch{
		stockLength: stockLength,
		maxPatterns: maxPatterns,
		memo:        make(map[memoKey][][]int),
		seen:        make(map[string]bool),
	}
	for _, p := range model.MergePieces(pieces) {
		if p.Length <= stockLength && p.Quantity > 0 {
			s.pieces = append(s.pieces, p)
		}
	}

	if len(s.pieces) == 0 {
		allWaste, _ := model.NewCuttingPattern(stockLength, nil)
		return []model.CuttingPattern{allWaste}, false
	}

	for _, counts := range s.combinations(0, stockLength) {
		if len(s.patterns) >= s.maxPatterns {
			s.overflow = true
			break
		}
		s.accept(counts)
	}

	s.augment()

	sort.SliceStable(s.patterns, func(i, j int) bool {
		a, b := s.patterns[i], s.patterns[j]
		if a.Waste != b.Waste {
			return a.Waste < b.Waste
		}
		if a.PieceCount() != b.PieceCount() {
			return a.PieceCount() > b.PieceCount()
		}
		return a.Key() < b.Key()
	})
	if len(s.patterns) > s.maxPatterns {
		s.patterns = s.patterns[:s.maxPatterns]
		s.overflow = true
	}
	return s.patterns, s.overflow
}

// combinations returns count vectors for piece types index.. that fit in
// remaining, densest first. Each vector has one entry per type from index on.
func (s *patternSearch) combinations(index, remaining int) [][]int {
	if index == len(s.pieces) {
		return [][]int{{}}
	}
	key := memoKey{index: index, remaining: remaining}
	if cached, ok := s.memo[key]; ok {
		return cached
	}

	p := s.pieces[index]
	maxCount := min(p.Quantity, remaining/p.Length)

	var results [][]int
branches:
	for count := maxCount; count >= 0; count-- {
		for _, rest := range s.combinations(index+1, remaining-count*p.Length) {
			if len(results) >= maxBranchResults {
				break branches
			}
			counts := make([]int, 0, len(rest)+1)
			counts = append(counts, count)
			counts = append(counts, rest...)
			results = append(results, counts)
		}
	}

	s.memo[key] = results
	return results
}

// accept adds the pattern for a full count vector unless it is empty or
// already known.
func (s *patternSearch) accept(counts []int) {
	composition := make(map[int]int)
	for i, c := range counts {
		if c > 0 {
			composition[s.pieces[i].Length] = c
		}
	}
	s.acceptComposition(composition)
}

func (s *patternSearch) acceptComposition(composition map[int]int) {
	if len(composition) == 0 {
		return
	}
	p, err := model.NewCuttingPattern(s.stockLength, composition)
	if err != nil {
		return
	}
	key := p.Key()
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.patterns = append(s.patterns, p)
}

// augment adds heuristic patterns the bounded search may have missed.
func (s *patternSearch) augment() {
	// Greedy largest-first fill.
	s.acceptComposition(greedyFill(s.pieces, s.stockLength))

	// Bars filled with a single length, for the longest types.
	for _, p := range s.pieces[:min(homogeneousTypes, len(s.pieces))] {
		s.acceptComposition(map[int]int{p.Length: min(p.Quantity, s.stockLength/p.Length)})
	}

	// The most demanded types, filled longest first.
	byDemand := append([]model.PieceDemand(nil), s.pieces...)
	sort.SliceStable(byDemand, func(i, j int) bool {
		return byDemand[i].Quantity > byDemand[j].Quantity
	})
	top := byDemand[:min(highDemandTypes, len(byDemand))]
	sort.SliceStable(top, func(i, j int) bool { return top[i].Length > top[j].Length })
	s.acceptComposition(greedyFill(top, s.stockLength))
}

// greedyFill packs pieces longest first, bounded by their quantities.
// pieces must be sorted by length descending.
func greedyFill(pieces []model.PieceDemand, capacity int) map[int]int {
	composition := make(map[int]int)
	remaining := capacity
	for _, p := range pieces {
		n := min(p.Quantity, remaining/p.Length)
		if n > 0 {
			composition[p.Length] = n
			remaining -= n * p.Length
		}
	}
	return composition
}

// generateAllPatterns enumerates patterns for every stock length, shortest
// first, under the global TotalMaxPatterns cap.
func generateAllPatterns(modelKey string, pieces []model.PieceDemand, stock []model.StockBar, settings model.Settings) []model.CuttingPattern {
	lengths := make([]int, 0, len(stock))
	for _, sb := range model.MergeStock(stock) {
		lengths = append(lengths, sb.Length)
	}
	sort.Ints(lengths)

	var all []model.CuttingPattern
	for _, l := range lengths {
		budget := min(settings.MaxPatterns, settings.TotalMaxPatterns-len(all))
		if budget <= 0 {
			log.Warningf("%s: pattern overflow, global cap of %d reached before stock length %d", modelKey, settings.TotalMaxPatterns, l)
			break
		}
		patterns, overflow := generatePatterns(pieces, l, budget)
		if overflow {
			log.Warningf("%s: pattern overflow for stock length %d, kept %d patterns", modelKey, l, len(patterns))
		}
		log.V(1).Infof("%s: %d patterns for stock length %d", modelKey, len(patterns), l)
		all = append(all, patterns...)
	}
	return all
}
