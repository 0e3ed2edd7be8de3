package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/BarCut/internal/model"
)

// LabelInfo holds the data encoded into each piece label's QR code.
type LabelInfo struct {
	ModelKey    string `json:"model"`
	Profile     string `json:"profile"`
	Orientation string `json:"orientation"`
	Length      int    `json:"length_mm"`
	BarIndex    int    `json:"bar"`
	BarID       string `json:"bar_id"`
	BarLength   int    `json:"bar_length_mm"`
	CutIndex    int    `json:"cut"`
	Offset      int    `json:"offset_mm"` // Distance of the cut start from the bar start
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportLabels generates a PDF with one QR-coded label per cut piece.
// Each label shows the profile, the piece length and where it is cut;
// the QR code encodes the same metadata as JSON.
func ExportLabels(path string, result model.OptimizeResult) error {
	labels := CollectLabelInfos(result)
	if len(labels) == 0 {
		return fmt.Errorf("no cut pieces to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, i, label); err != nil {
			return fmt.Errorf("failed to render label %d for %s: %w", i+1, label.ModelKey, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, index int, info LabelInfo) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%d", index)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	// Length first, it is what the operator checks.
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 5, fmt.Sprintf("%d mm", info.Length), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetXY(textX, y+labelPadding+6)
	pdf.CellFormat(textW, 3.5, truncate(pdf, info.Profile, textW), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+10)
	pdf.CellFormat(textW, 3, info.Orientation, "", 1, "L", false, 0, "")

	pdf.SetXY(textX, y+labelPadding+13.5)
	barInfo := fmt.Sprintf("Bar %d (%d mm) cut %d @ %d", info.BarIndex, info.BarLength, info.CutIndex, info.Offset)
	pdf.CellFormat(textW, 3, truncate(pdf, barInfo, textW), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)

	return nil
}

// truncate shortens s with an ellipsis until it fits width in the current font.
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// CollectLabelInfos lists one label per cut piece, bar by bar in result
// order. Unsolved models contribute nothing.
func CollectLabelInfos(result model.OptimizeResult) []LabelInfo {
	var labels []LabelInfo
	for _, m := range result.Models {
		if m.Selected == nil || m.Selected.Result == nil {
			continue
		}
		for barIdx, bar := range m.Selected.Result.RawData.UsedBars {
			offset := 0
			for cutIdx, cut := range bar.Cuts {
				labels = append(labels, LabelInfo{
					ModelKey:    m.ModelKey,
					Profile:     m.Profile,
					Orientation: m.Orientation,
					Length:      cut,
					BarIndex:    barIdx + 1,
					BarID:       bar.ID,
					BarLength:   bar.OriginalLength,
					CutIndex:    cutIdx + 1,
					Offset:      offset,
				})
				offset += cut
			}
		}
	}
	return labels
}
