package importer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/BarCut/internal/model"
)

// point2D is a drawing coordinate.
type point2D struct {
	X, Y float64
}

// segment represents a straight piece between two 2D points.
type segment struct {
	start point2D
	end   point2D
}

func (s segment) length() float64 {
	return math.Hypot(s.end.X-s.start.X, s.end.Y-s.start.Y)
}

// ImportDXF reads a drawing where every straight segment is a piece to
// cut: each LINE and each edge of an LWPOLYLINE (including the closing edge
// of a closed polyline) becomes one piece of the given profile. Segments of
// equal rounded length are merged into one demand record.
func ImportDXF(path, profile string) ImportResult {
	result := ImportResult{}
	if profile == "" {
		profile = DefaultProfile
		result.Warnings = append(result.Warnings, fmt.Sprintf("No profile given for DXF pieces, using '%s'", DefaultProfile))
	}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	var segments []segment
	skipped := 0
	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.Line:
			segments = append(segments, segment{
				start: point2D{X: e.Start[0], Y: e.Start[1]},
				end:   point2D{X: e.End[0], Y: e.End[1]},
			})
		case *entity.LwPolyline:
			segments = append(segments, lwPolylineSegments(e)...)
		default:
			skipped++
		}
	}
	if skipped > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Skipped %d unsupported entities", skipped))
	}

	pieces, warnings := segmentsToPieces(segments, profile)
	result.Warnings = append(result.Warnings, warnings...)
	if len(pieces) == 0 {
		result.Errors = append(result.Errors, "No straight segments found in DXF file")
		return result
	}
	result.Pieces = pieces
	return result
}

// lwPolylineSegments returns the straight edges of a polyline. Bulged
// (arc) edges are measured by their chord.
func lwPolylineSegments(lw *entity.LwPolyline) []segment {
	n := len(lw.Vertices)
	if n < 2 {
		return nil
	}
	last := n - 1
	if lw.Closed {
		last = n
	}
	segs := make([]segment, 0, last)
	for i := 0; i < last; i++ {
		a, b := lw.Vertices[i], lw.Vertices[(i+1)%n]
		segs = append(segs, segment{start: point2D{X: a[0], Y: a[1]}, end: point2D{X: b[0], Y: b[1]}})
	}
	return segs
}

// segmentsToPieces rounds each segment to whole units and counts equal
// lengths, longest first. Degenerate segments are reported and dropped.
func segmentsToPieces(segs []segment, profile string) ([]model.ProfilePiece, []string) {
	var warnings []string
	var lengths []int
	for _, s := range segs {
		l := int(math.Round(s.length()))
		if l <= 0 {
			warnings = append(warnings, fmt.Sprintf("Skipped degenerate segment (%.3f mm)", s.length()))
			continue
		}
		lengths = append(lengths, l)
	}

	counts := lo.CountValues(lengths)
	keys := lo.Keys(counts)
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	pieces := make([]model.ProfilePiece, 0, len(keys))
	for _, l := range keys {
		pieces = append(pieces, model.ProfilePiece{
			Profile:     profile,
			Orientation: model.UndefinedOrientation,
			Length:      l,
			Quantity:    counts[l],
		})
	}
	return pieces, warnings
}

// ParseBars reads a stock specification such as "6000x10,12000" into bars
// for one profile. A length without a quantity is unlimited.
func ParseBars(spec, profile string) ([]model.ProfileBar, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	var bars []model.ProfileBar
	for _, item := range strings.Split(spec, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lengthStr, qtyStr, hasQty := strings.Cut(strings.ToLower(item), "x")
		length, err := strconv.Atoi(strings.TrimSpace(lengthStr))
		if err != nil || length <= 0 {
			return nil, fmt.Errorf("%w: bar length %q", model.ErrMalformedInput, item)
		}
		qty := model.UnlimitedQuantity
		if hasQty {
			qty, err = strconv.Atoi(strings.TrimSpace(qtyStr))
			if err != nil || qty <= 0 {
				return nil, fmt.Errorf("%w: bar quantity %q", model.ErrMalformedInput, item)
			}
		}
		bars = append(bars, model.ProfileBar{Profile: profile, Length: length, Quantity: qty})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: empty bar specification", model.ErrMalformedInput)
	}
	return bars, nil
}
