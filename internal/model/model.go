package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// UnlimitedQuantity is the stock quantity treated as "effectively unlimited".
// Stock at or above this value gets no capacity constraint.
const UnlimitedQuantity = 1_000_000

// MaxModelPieces bounds the total piece count of one model. The heuristic
// strategies hold one entry per piece.
const MaxModelPieces = 100_000

// PieceDemand is a required cut length and the exact number of pieces to produce.
type PieceDemand struct {
	Length   int `json:"length"`   // mm
	Quantity int `json:"quantity"` // pieces
}

// StockBar is an available raw-material length.
type StockBar struct {
	Length   int `json:"length"`   // mm
	Quantity int `json:"quantity"` // bars, UnlimitedQuantity for no limit
}

// Unlimited reports whether the bar supply has no practical limit.
func (s StockBar) Unlimited() bool {
	return s.Quantity >= UnlimitedQuantity
}

// CuttingPattern is one way of cutting a single stock bar.
type CuttingPattern struct {
	Pieces      []int       `json:"pieces"`       // Piece lengths, descending
	Waste       int         `json:"waste"`        // Unused length
	StockLength int         `json:"stock_length"` // Length of the bar being cut
	Composition map[int]int `json:"composition"`  // Piece length -> count
}

// NewCuttingPattern builds a pattern from a composition. It rejects
// non-positive lengths or counts and compositions longer than the bar.
func NewCuttingPattern(stockLength int, composition map[int]int) (CuttingPattern, error) {
	if stockLength <= 0 {
		return CuttingPattern{}, fmt.Errorf("%w: stock length %d", ErrMalformedInput, stockLength)
	}
	comp := make(map[int]int, len(composition))
	var pieces []int
	used := 0
	for length, count := range composition {
		if count == 0 {
			continue
		}
		if length <= 0 || count < 0 {
			return CuttingPattern{}, fmt.Errorf("%w: piece %dx%d", ErrMalformedInput, length, count)
		}
		comp[length] = count
		used += length * count
		for i := 0; i < count; i++ {
			pieces = append(pieces, length)
		}
	}
	if used > stockLength {
		return CuttingPattern{}, fmt.Errorf("pattern uses %d of a %d bar", used, stockLength)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(pieces)))
	return CuttingPattern{
		Pieces:      pieces,
		Waste:       stockLength - used,
		StockLength: stockLength,
		Composition: comp,
	}, nil
}

// Key returns a canonical identity for the pattern: stock length plus the
// composition in descending piece order, e.g. "6000:2500x2,1000x1".
func (p CuttingPattern) Key() string {
	lengths := lo.Keys(p.Composition)
	sort.Sort(sort.Reverse(sort.IntSlice(lengths)))
	parts := make([]string, 0, len(lengths))
	for _, l := range lengths {
		parts = append(parts, strconv.Itoa(l)+"x"+strconv.Itoa(p.Composition[l]))
	}
	return strconv.Itoa(p.StockLength) + ":" + strings.Join(parts, ",")
}

// PieceCount returns the number of pieces cut by the pattern.
func (p CuttingPattern) PieceCount() int {
	return len(p.Pieces)
}

// UsedLength returns the total length of all pieces.
func (p CuttingPattern) UsedLength() int {
	return p.StockLength - p.Waste
}

// UsedBar is one physical stock bar with its cuts.
type UsedBar struct {
	ID              string `json:"id"`
	OriginalLength  int    `json:"original_length"`
	Cuts            []int  `json:"cuts"`
	RemainingLength int    `json:"remaining_length"`
}

// NewUsedBar creates a bar from its cuts; the remaining length is derived
// so that cuts plus remaining always equals the original length.
func NewUsedBar(originalLength int, cuts []int) (UsedBar, error) {
	used := lo.Sum(cuts)
	if used > originalLength {
		return UsedBar{}, fmt.Errorf("cuts total %d exceed bar length %d", used, originalLength)
	}
	sorted := append([]int(nil), cuts...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	return UsedBar{
		ID:              uuid.New().String()[:8],
		OriginalLength:  originalLength,
		Cuts:            sorted,
		RemainingLength: originalLength - used,
	}, nil
}

// UsedLength returns the total length of all cuts.
func (b UsedBar) UsedLength() int {
	return lo.Sum(b.Cuts)
}

// Efficiency returns the usage percentage.
func (b UsedBar) Efficiency() float64 {
	if b.OriginalLength == 0 {
		return 0
	}
	return float64(b.UsedLength()) / float64(b.OriginalLength) * 100.0
}

// Layout groups identical bars: same original length and same cuts.
type Layout struct {
	OriginalLength int   `json:"original_length"`
	Cuts           []int `json:"cuts"`
	Waste          int   `json:"waste"`
	Count          int   `json:"count"`
}

// GroupLayouts collapses bars with identical length and cuts into layouts,
// ordered by count descending and then by bar length descending.
func GroupLayouts(bars []UsedBar) []Layout {
	index := make(map[string]int)
	var layouts []Layout
	for _, b := range bars {
		key := strconv.Itoa(b.OriginalLength) + ":" + strings.Join(lo.Map(b.Cuts, func(c int, _ int) string {
			return strconv.Itoa(c)
		}), ",")
		if i, ok := index[key]; ok {
			layouts[i].Count++
			continue
		}
		index[key] = len(layouts)
		layouts = append(layouts, Layout{
			OriginalLength: b.OriginalLength,
			Cuts:           append([]int(nil), b.Cuts...),
			Waste:          b.RemainingLength,
			Count:          1,
		})
	}
	sort.SliceStable(layouts, func(i, j int) bool {
		if layouts[i].Count != layouts[j].Count {
			return layouts[i].Count > layouts[j].Count
		}
		return layouts[i].OriginalLength > layouts[j].OriginalLength
	})
	return layouts
}

// Algorithm selects which solving paths the optimizer runs.
type Algorithm string

const (
	AlgorithmFFD     Algorithm = "ffd"     // Heuristic solver only
	AlgorithmILP     Algorithm = "ilp"     // Exact solver with column-generation fallback only
	AlgorithmCompare Algorithm = "compare" // Run both and keep the better
)

// ParseAlgorithm accepts the algorithm names used on the command line and in
// API requests. The empty string means compare.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlgorithmCompare:
		return AlgorithmCompare, nil
	case AlgorithmFFD:
		return AlgorithmFFD, nil
	case AlgorithmILP:
		return AlgorithmILP, nil
	}
	return "", fmt.Errorf("%w: unknown algorithm %q", ErrMalformedInput, s)
}

// Settings holds the optimizer configuration.
type Settings struct {
	Algorithm Algorithm `json:"algorithm"` // "ffd", "ilp" or "compare"

	// Pattern enumeration
	MaxPatterns      int `json:"max_patterns"`       // Per stock length
	TotalMaxPatterns int `json:"total_max_patterns"` // Across all stock lengths
	MaxILPPatterns   int `json:"max_ilp_patterns"`   // Lowest-waste patterns kept in the ILP

	// Exact solver
	ILPTimeoutMs int `json:"ilp_timeout_ms"`
	ILPNodeLimit int `json:"ilp_node_limit"`

	// Fallback
	ColumnGenerationIterations int `json:"column_generation_iterations"`

	// Heuristic exhaustive search bounds
	ExhaustiveMaxPieces     int `json:"exhaustive_max_pieces"`
	ExhaustiveMaxStockTypes int `json:"exhaustive_max_stock_types"`
	ExhaustiveNodeLimit     int `json:"exhaustive_node_limit"`

	MinOffcutLength int `json:"min_offcut_length"` // Leftovers at or above this are reusable
}

// ILPTimeout returns the exact solver deadline.
func (s Settings) ILPTimeout() time.Duration {
	return time.Duration(s.ILPTimeoutMs) * time.Millisecond
}

func DefaultSettings() Settings {
	return Settings{
		Algorithm:                  AlgorithmCompare,
		MaxPatterns:                200,
		TotalMaxPatterns:           2000,
		MaxILPPatterns:             800,
		ILPTimeoutMs:               10_000,
		ILPNodeLimit:               20_000,
		ColumnGenerationIterations: 100,
		ExhaustiveMaxPieces:        20,
		ExhaustiveMaxStockTypes:    5,
		ExhaustiveNodeLimit:        200_000,
		MinOffcutLength:            500,
	}
}

// MaxSettings caps every search bound a caller can raise.
var MaxSettings = Settings{
	MaxPatterns:                5_000,
	TotalMaxPatterns:           20_000,
	MaxILPPatterns:             5_000,
	ILPTimeoutMs:               120_000,
	ILPNodeLimit:               1_000_000,
	ColumnGenerationIterations: 10_000,
	ExhaustiveMaxPieces:        40,
	ExhaustiveMaxStockTypes:    10,
	ExhaustiveNodeLimit:        5_000_000,
}

// WithDefaults fills zero-valued fields from DefaultSettings and clamps the
// search bounds to MaxSettings, so any request runs with bounded search.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.Algorithm == "" {
		s.Algorithm = d.Algorithm
	}
	if s.MaxPatterns <= 0 {
		s.MaxPatterns = d.MaxPatterns
	}
	if s.TotalMaxPatterns <= 0 {
		s.TotalMaxPatterns = d.TotalMaxPatterns
	}
	if s.MaxILPPatterns <= 0 {
		s.MaxILPPatterns = d.MaxILPPatterns
	}
	if s.ILPTimeoutMs <= 0 {
		s.ILPTimeoutMs = d.ILPTimeoutMs
	}
	if s.ILPNodeLimit <= 0 {
		s.ILPNodeLimit = d.ILPNodeLimit
	}
	if s.ColumnGenerationIterations <= 0 {
		s.ColumnGenerationIterations = d.ColumnGenerationIterations
	}
	if s.ExhaustiveMaxPieces <= 0 {
		s.ExhaustiveMaxPieces = d.ExhaustiveMaxPieces
	}
	if s.ExhaustiveMaxStockTypes <= 0 {
		s.ExhaustiveMaxStockTypes = d.ExhaustiveMaxStockTypes
	}
	if s.ExhaustiveNodeLimit <= 0 {
		s.ExhaustiveNodeLimit = d.ExhaustiveNodeLimit
	}
	if s.MinOffcutLength <= 0 {
		s.MinOffcutLength = d.MinOffcutLength
	}

	c := MaxSettings
	s.MaxPatterns = min(s.MaxPatterns, c.MaxPatterns)
	s.TotalMaxPatterns = min(s.TotalMaxPatterns, c.TotalMaxPatterns)
	s.MaxILPPatterns = min(s.MaxILPPatterns, c.MaxILPPatterns)
	s.ILPTimeoutMs = min(s.ILPTimeoutMs, c.ILPTimeoutMs)
	s.ILPNodeLimit = min(s.ILPNodeLimit, c.ILPNodeLimit)
	s.ColumnGenerationIterations = min(s.ColumnGenerationIterations, c.ColumnGenerationIterations)
	s.ExhaustiveMaxPieces = min(s.ExhaustiveMaxPieces, c.ExhaustiveMaxPieces)
	s.ExhaustiveMaxStockTypes = min(s.ExhaustiveMaxStockTypes, c.ExhaustiveMaxStockTypes)
	s.ExhaustiveNodeLimit = min(s.ExhaustiveNodeLimit, c.ExhaustiveNodeLimit)
	return s
}
