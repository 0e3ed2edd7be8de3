package export

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/BarCut/internal/model"
)

// SummarySheet is the name of the workbook's first sheet.
const SummarySheet = "Summary"

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

var summaryHeader = []interface{}{
	"Model", "Profile", "Orientation", "Algorithm", "Bars Used", "Bar Length (mm)", "Waste (mm)", "Utilization (%)", "Not Placed", "Status",
}

var layoutHeader = []interface{}{"Count", "Bar Length (mm)", "Cuts (mm)", "Waste (mm)"}

// ExportXLSX writes the cutting plan as a workbook: a summary sheet followed
// by one sheet per model listing its layouts and any unplaced pieces.
func ExportXLSX(path string, result model.OptimizeResult) error {
	if len(result.Models) == 0 {
		return fmt.Errorf("no models to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, result); err != nil {
		return err
	}

	used := map[string]bool{SummarySheet: true}
	for _, m := range result.Models {
		name := uniqueSheetName(m.ModelKey, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet for %s: %w", m.ModelKey, err)
		}
		if err := writeModelSheet(f, name, m); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, result model.OptimizeResult) error {
	if err := setRow(f, SummarySheet, 1, summaryHeader); err != nil {
		return err
	}
	row := 2
	for _, m := range result.Models {
		values := []interface{}{m.ModelKey, m.Profile, m.Orientation, "", 0, 0, 0, 0.0, 0, "unsolved"}
		if m.Selected != nil && m.Selected.Result != nil {
			r := m.Selected.Result
			status := "complete"
			if !r.Complete() {
				status = "partial"
			}
			values = []interface{}{
				m.ModelKey, m.Profile, m.Orientation, string(m.Selected.AlgoUsed),
				r.BarsUsed(), r.Stats.TotalBarLength, r.Stats.TotalWasteLength,
				r.Stats.UtilizationRate, r.RemainingCount(), status,
			}
		}
		if err := setRow(f, SummarySheet, row, values); err != nil {
			return err
		}
		row++
	}

	g := result.Global
	row++
	total := []interface{}{
		"Total", "", "", "", g.TotalBarsUsed, g.TotalBarLength, g.TotalWaste,
		g.UtilizationRate, g.TotalRemainingPieces, fmt.Sprintf("%d/%d solved", g.SolvedModels, g.TotalModels),
	}
	return setRow(f, SummarySheet, row, total)
}

func writeModelSheet(f *excelize.File, sheet string, m model.ModelResult) error {
	if err := setRow(f, sheet, 1, []interface{}{"Model", m.ModelKey}); err != nil {
		return err
	}
	if m.Selected == nil || m.Selected.Result == nil {
		msg := m.Error
		if msg == "" {
			msg = "no result"
		}
		return setRow(f, sheet, 2, []interface{}{"Error", msg})
	}
	r := m.Selected.Result

	if err := setRow(f, sheet, 2, []interface{}{"Algorithm", string(m.Selected.AlgoUsed)}); err != nil {
		return err
	}
	if err := setRow(f, sheet, 4, layoutHeader); err != nil {
		return err
	}
	row := 5
	for _, l := range r.Layouts {
		cuts := strings.Join(lo.Map(l.Cuts, func(c int, _ int) string { return fmt.Sprint(c) }), " + ")
		if err := setRow(f, sheet, row, []interface{}{l.Count, l.OriginalLength, cuts, l.Waste}); err != nil {
			return err
		}
		row++
	}

	if len(r.RawData.RemainingPieces) > 0 {
		row++
		if err := setRow(f, sheet, row, []interface{}{"Not Placed", "Length (mm)", "Quantity"}); err != nil {
			return err
		}
		row++
		for _, p := range r.RawData.RemainingPieces {
			if err := setRow(f, sheet, row, []interface{}{"", p.Length, p.Quantity}); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// uniqueSheetName strips characters Excel forbids and truncates to the
// sheet name limit, suffixing a counter on collision.
func uniqueSheetName(key string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, key)
	if base == "" {
		base = "model"
	}
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}
	name := base
	for i := 2; used[name]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		trimmed := base
		if len(trimmed)+len(suffix) > maxSheetName {
			trimmed = trimmed[:maxSheetName-len(suffix)]
		}
		name = trimmed + suffix
	}
	used[name] = true
	return name
}
