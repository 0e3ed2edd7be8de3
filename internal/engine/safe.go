package engine

import (
	"github.com/piwi3910/BarCut/internal/model"
)

// SafePatterns are the patterns that can be repeated without overproducing.
type SafePatterns struct {
	Patterns []model.CuttingPattern
	MaxUsage map[string]int // Pattern key -> times it may be used
}

// FilterSafe computes, for each pattern, how often it can be applied before
// any piece length exceeds its demand, and drops patterns that cannot be
// applied at all. A pattern cutting a length that is not demanded, or
// cutting nothing, is never safe.
func FilterSafe(patterns []model.CuttingPattern, demand []model.PieceDemand) SafePatterns {
	remaining := model.DemandMap(demand)
	safe := SafePatterns{MaxUsage: make(map[string]int)}
	for _, p := range patterns {
		usage := maxUsage(p, remaining)
		if usage <= 0 {
			continue
		}
		key := p.Key()
		if _, dup := safe.MaxUsage[key]; dup {
			continue
		}
		safe.MaxUsage[key] = usage
		safe.Patterns = append(safe.Patterns, p)
	}
	return safe
}

func maxUsage(p model.CuttingPattern, remaining map[int]int) int {
	if len(p.Composition) == 0 {
		return 0
	}
	usage := -1
	for length, count := range p.Composition {
		d, ok := remaining[length]
		if !ok || count <= 0 {
			return 0
		}
		if u := d / count; usage < 0 || u < usage {
			usage = u
		}
	}
	return usage
}
