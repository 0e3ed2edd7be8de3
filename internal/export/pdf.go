// Package export provides functionality for exporting cut optimization results
// to various file formats.
package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/BarCut/internal/model"
)

// pieceColor represents an RGB color for a cut piece.
type pieceColor struct {
	R, G, B int
}

// pieceColors is the palette cycled through by piece length.
var pieceColors = []pieceColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	drawAreaTop  = marginTop + headerHeight + 10.0
	countColumn  = 22.0 // Width reserved for the "x N" column left of each bar
	barHeight    = 8.0
	barSpacing   = 6.0
)

// ExportPDF generates a PDF document containing the optimization results.
// Each solved model is rendered on its own page (continued on further pages
// when it has many layouts) with proportional bar drawings, followed by a
// summary page with overall statistics.
func ExportPDF(path string, result model.OptimizeResult, settings model.Settings) error {
	if len(result.Models) == 0 {
		return fmt.Errorf("no models to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, m := range result.Models {
		if m.Selected == nil || m.Selected.Result == nil {
			continue
		}
		renderModelPages(pdf, m)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, result, settings)

	return pdf.OutputFileAndClose(path)
}

// colorFor picks a stable color for a piece length within one model.
func colorFor(colors map[int]pieceColor, length int) pieceColor {
	if c, ok := colors[length]; ok {
		return c
	}
	c := pieceColors[len(colors)%len(pieceColors)]
	colors[length] = c
	return c
}

// renderModelPages draws the layouts of one model, adding pages as needed.
func renderModelPages(pdf *fpdf.Fpdf, m model.ModelResult) {
	r := m.Selected.Result

	longest := 0
	for _, l := range r.Layouts {
		longest = max(longest, l.OriginalLength)
	}
	if longest == 0 {
		return
	}

	drawWidth := pageWidth - marginLeft - marginRight - countColumn
	scale := drawWidth / float64(longest)
	colors := make(map[int]pieceColor)

	page := 0
	y := pageHeight // Forces a page on the first layout
	for _, layout := range r.Layouts {
		if y+barHeight+barSpacing > pageHeight-marginBottom-10 {
			page++
			pdf.AddPage()
			renderModelHeader(pdf, m, page)
			y = drawAreaTop
		}
		drawLayout(pdf, layout, colors, scale, y)
		y += barHeight + barSpacing
	}

	if rem := r.RawData.RemainingPieces; len(rem) > 0 {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, pageHeight-marginBottom-8)
		text := "Not placed:"
		for _, p := range rem {
			text += fmt.Sprintf(" %d mm x %d,", p.Length, p.Quantity)
		}
		pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, text[:len(text)-1], "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
}

func renderModelHeader(pdf *fpdf.Fpdf, m model.ModelResult, page int) {
	r := m.Selected.Result

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Profile %s (%s)", m.Profile, m.Orientation)
	if page > 1 {
		title += fmt.Sprintf(" - continued (%d)", page)
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Algorithm: %s (%s) | Bars: %d | Utilization: %.3f%% | Waste: %d mm | Not placed: %d",
		m.Selected.AlgoUsed, r.Strategy, r.BarsUsed(), r.Stats.UtilizationRate, r.Stats.TotalWasteLength, r.RemainingCount())
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(marginLeft, marginTop+headerHeight+5)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, m.Selected.Comparison.Reason, "", 0, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// drawLayout draws one bar to scale: colored pieces left to right, then the
// hatched waste.
func drawLayout(pdf *fpdf.Fpdf, layout model.Layout, colors map[int]pieceColor, scale, y float64) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetXY(marginLeft, y+1)
	pdf.CellFormat(countColumn-2, barHeight-2, fmt.Sprintf("x %d", layout.Count), "", 0, "L", false, 0, "")

	x := marginLeft + countColumn
	barW := float64(layout.OriginalLength) * scale

	// Stock bar background
	pdf.SetFillColor(220, 220, 220)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.4)
	pdf.Rect(x, y, barW, barHeight, "FD")

	for _, cut := range layout.Cuts {
		w := float64(cut) * scale
		col := colorFor(colors, cut)
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(x, y, w, barHeight, "FD")

		label := fmt.Sprintf("%d", cut)
		pdf.SetFont("Helvetica", "", labelFontSize(w))
		if lw := pdf.GetStringWidth(label); lw < w-1 {
			pdf.SetXY(x+(w-lw)/2, y+barHeight/2-2)
			pdf.CellFormat(lw, 4, label, "", 0, "C", false, 0, "")
		}
		x += w
	}

	if layout.Waste > 0 {
		w := float64(layout.Waste) * scale
		drawHatchPattern(pdf, x, y, w, barHeight)
		label := fmt.Sprintf("%d", layout.Waste)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 0, 0)
		if lw := pdf.GetStringWidth(label); lw < w-1 {
			pdf.SetXY(x+(w-lw)/2, y+barHeight/2-2)
			pdf.CellFormat(lw, 4, label, "", 0, "C", false, 0, "")
		}
		pdf.SetTextColor(0, 0, 0)
	}

	// Bar length below
	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(80, 80, 80)
	pdf.SetXY(marginLeft+countColumn, y+barHeight)
	pdf.CellFormat(barW, 3, fmt.Sprintf("%d mm", layout.OriginalLength), "", 0, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// drawHatchPattern draws diagonal lines inside a rectangle to mark waste.
func drawHatchPattern(pdf *fpdf.Fpdf, x, y, w, h float64) {
	pdf.SetDrawColor(200, 0, 0)
	pdf.SetLineWidth(0.15)

	spacing := 2.0
	maxDist := w + h

	for d := spacing; d < maxDist; d += spacing {
		x1 := x + math.Max(0, d-h)
		y1 := y + math.Min(h, d)
		x2 := x + math.Min(w, d)
		y2 := y + math.Max(0, d-w)

		pdf.Line(x1, y1, x2, y2)
	}
}

// renderSummaryPage draws the final summary page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, result model.OptimizeResult, settings model.Settings) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Bar Cutting Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	g := result.Global
	summaryItems := []struct {
		label string
		value string
	}{
		{"Models Solved", fmt.Sprintf("%d / %d", g.SolvedModels, g.TotalModels)},
		{"Total Bars Used", fmt.Sprintf("%d", g.TotalBarsUsed)},
		{"Total Bar Length", fmt.Sprintf("%d mm", g.TotalBarLength)},
		{"Total Waste", fmt.Sprintf("%d mm", g.TotalWaste)},
		{"Overall Utilization", fmt.Sprintf("%.3f%%", result.TotalEfficiency())},
		{"Reusable Offcuts", fmt.Sprintf("%d mm", g.TotalOffcutLength)},
		{"Pieces Not Placed", fmt.Sprintf("%d", g.TotalRemainingPieces)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Model Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{55, 30, 45, 20, 35, 35, 47}
	headers := []string{"Model", "Algorithm", "Strategy", "Bars", "Utilization", "Waste", "Status"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, m := range result.Models {
		if y > pageHeight-marginBottom-20 {
			pdf.AddPage()
			y = marginTop
		}
		rowData := summaryRow(m)

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		xPos = marginLeft
		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	y += 8
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Settings", "", 0, "L", false, 0, "")
	y += 9

	settingsItems := []struct {
		label string
		value string
	}{
		{"Algorithm", string(settings.Algorithm)},
		{"Patterns per Stock Length", fmt.Sprintf("%d", settings.MaxPatterns)},
		{"ILP Timeout", settings.ILPTimeout().String()},
		{"Minimum Offcut", fmt.Sprintf("%d mm", settings.MinOffcutLength)},
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range settingsItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, item.label+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 5, item.value, "", 0, "L", false, 0, "")
		y += 5
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by BarCut - 1D Cutting Stock Optimizer", "", 0, "C", false, 0, "")
}

// summaryRow formats one model for the breakdown table.
func summaryRow(m model.ModelResult) []string {
	if m.Selected == nil || m.Selected.Result == nil {
		return []string{m.ModelKey, "-", "-", "-", "-", "-", "Unsolved"}
	}
	r := m.Selected.Result
	status := "Complete"
	if n := r.RemainingCount(); n > 0 {
		status = fmt.Sprintf("%d not placed", n)
	}
	return []string{
		m.ModelKey,
		string(m.Selected.AlgoUsed),
		r.Strategy,
		fmt.Sprintf("%d", r.BarsUsed()),
		fmt.Sprintf("%.3f%%", r.Stats.UtilizationRate),
		fmt.Sprintf("%d mm", r.Stats.TotalWasteLength),
		status,
	}
}

// labelFontSize returns a font size that fits a piece of the given drawn width.
func labelFontSize(w float64) float64 {
	switch {
	case w > 40:
		return 8
	case w > 20:
		return 7
	default:
		return 6
	}
}
