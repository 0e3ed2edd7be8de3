package engine

import (
	"fmt"
	"sort"

	"github.com/piwi3910/BarCut/internal/model"
)

// defaultMaxILPPatterns is how many of the lowest-waste patterns BuildModel keeps.
const defaultMaxILPPatterns = 800

// Variable is one pattern column of the integer program.
type Variable struct {
	Name         string
	Pattern      model.CuttingPattern
	Coefficients map[string]int // Constraint name -> coefficient
}

// Constraint is one row: demand rows are equalities, stock rows are upper bounds.
type Constraint struct {
	Name   string
	Length int
	Value  int
}

// Model is the pattern-based cutting-stock program:
// minimize sum(pattern_i) subject to demand_L = quantity and stock_S <= availability.
type Model struct {
	Variables []Variable
	Demand    []Constraint
	Stock     []Constraint
}

// Uncovered returns the demanded lengths that no variable can produce.
func (m *Model) Uncovered() []int {
	var missing []int
	for _, d := range m.Demand {
		covered := false
		for _, v := range m.Variables {
			if v.Coefficients[d.Name] > 0 {
				covered = true
				break
			}
		}
		if !covered {
			missing = append(missing, d.Length)
		}
	}
	return missing
}

func demandName(length int) string { return fmt.Sprintf("demand_%d", length) }
func stockName(length int) string  { return fmt.Sprintf("stock_%d", length) }

// BuildModel builds the program from safe patterns, keeping the 800
// lowest-waste ones.
func BuildModel(patterns []model.CuttingPattern, stock []model.StockBar, demand []model.PieceDemand) *Model {
	return buildModel(patterns, stock, demand, defaultMaxILPPatterns)
}

func buildModel(patterns []model.CuttingPattern, stock []model.StockBar, demand []model.PieceDemand, limit int) *Model {
	kept := append([]model.CuttingPattern(nil), patterns...)
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Waste < kept[j].Waste })
	if len(kept) > limit {
		kept = kept[:limit]
	}

	m := &Model{}
	for _, d := range model.MergePieces(demand) {
		m.Demand = append(m.Demand, Constraint{Name: demandName(d.Length), Length: d.Length, Value: d.Quantity})
	}

	// Unlimited stock and stock no pattern uses need no capacity row.
	usedLengths := make(map[int]bool)
	for _, p := range kept {
		usedLengths[p.StockLength] = true
	}
	for _, s := range model.MergeStock(stock) {
		if s.Unlimited() || !usedLengths[s.Length] {
			continue
		}
		m.Stock = append(m.Stock, Constraint{Name: stockName(s.Length), Length: s.Length, Value: s.Quantity})
	}
	stockRows := make(map[int]bool)
	for _, c := range m.Stock {
		stockRows[c.Length] = true
	}

	for i, p := range kept {
		v := Variable{
			Name:         fmt.Sprintf("pattern_%d", i),
			Pattern:      p,
			Coefficients: make(map[string]int, len(p.Composition)+1),
		}
		for length, count := range p.Composition {
			v.Coefficients[demandName(length)] = count
		}
		if stockRows[p.StockLength] {
			v.Coefficients[stockName(p.StockLength)] = 1
		}
		m.Variables = append(m.Variables, v)
	}
	return m
}
