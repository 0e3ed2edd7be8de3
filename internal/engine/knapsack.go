package engine

import (
	"sort"

	"github.com/piwi3910/BarCut/internal/model"
)

// maxKnapsackCapacity bounds the DP table. Larger capacities are first
// scaled down by the gcd of the piece lengths; if that is not enough the
// synthesis falls back to a greedy fill.
const maxKnapsackCapacity = 200_000

// knapsackItem is one 0/1 item of the binary split of a bounded type.
type knapsackItem struct {
	length int // Piece length in original units
	count  int // Pieces represented by this item
	weight int // Scaled total length
}

// Knapsack builds the pattern that uses as much of a bar of capacity as
// possible, each piece length bounded by its quantity. It reports false when
// no piece fits.
func Knapsack(pieces []model.PieceDemand, capacity int) (model.CuttingPattern, bool) {
	var fitting []model.PieceDemand
	for _, p := range model.MergePieces(pieces) {
		if p.Length > 0 && p.Quantity > 0 && p.Length <= capacity {
			fitting = append(fitting, p)
		}
	}
	if len(fitting) == 0 || capacity <= 0 {
		return model.CuttingPattern{}, false
	}

	g := 0
	for _, p := range fitting {
		g = gcd(g, p.Length)
	}
	scaled := capacity / g

	var composition map[int]int
	if scaled > maxKnapsackCapacity {
		composition = greedyFill(fitting, capacity)
	} else {
		composition = knapsackDP(fitting, scaled, g)
	}
	if len(composition) == 0 {
		return model.CuttingPattern{}, false
	}
	p, err := model.NewCuttingPattern(capacity, composition)
	if err != nil {
		return model.CuttingPattern{}, false
	}
	return p, true
}

// knapsackDP solves the bounded subset-sum over scaled capacity. Bounded
// types are split into power-of-two items so the table stays 0/1.
func knapsackDP(pieces []model.PieceDemand, capacity, scale int) map[int]int {
	var items []knapsackItem
	for _, p := range pieces {
		w := p.Length / scale
		remaining := min(p.Quantity, capacity/w)
		for k := 1; remaining > 0; k *= 2 {
			n := min(k, remaining)
			items = append(items, knapsackItem{length: p.Length, count: n, weight: n * w})
			remaining -= n
		}
	}
	// Heavier items first finds a full bar sooner.
	sort.SliceStable(items, func(i, j int) bool { return items[i].weight > items[j].weight })

	// from[c] is the item that first reached sum c, -1 if unreachable.
	from := make([]int, capacity+1)
	for i := range from {
		from[i] = -1
	}
	reached := make([]bool, capacity+1)
	reached[0] = true
	best := 0

	for i, it := range items {
		for c := capacity; c >= it.weight; c-- {
			if reached[c] || !reached[c-it.weight] {
				continue
			}
			reached[c] = true
			from[c] = i
			if c > best {
				best = c
			}
		}
		if best == capacity {
			break
		}
	}

	composition := make(map[int]int)
	for c := best; c > 0; {
		it := items[from[c]]
		composition[it.length] += it.count
		c -= it.weight
	}
	return composition
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
