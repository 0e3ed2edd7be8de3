// Package importer reads piece and stock-bar lists from CSV, Excel and DXF
// files. It supports automatic delimiter detection, flexible column mapping
// and case-insensitive header recognition, including the French labels
// (fille/mère) used on shop-floor cut lists.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/BarCut/internal/model"
)

// DefaultProfile is used for rows that carry no profile name.
const DefaultProfile = "default"

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Pieces   []model.ProfilePiece
	Bars     []model.ProfileBar
	Errors   []string
	Warnings []string
}

// Models groups the imported records into cut models.
func (r ImportResult) Models() []model.CutModel {
	return model.BuildCutModels(r.Pieces, r.Bars)
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	Type        int
	Profile     int
	Length      int
	Quantity    int
	Orientation int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"type":        {"type", "kind", "role", "category", "barre"},
	"profile":     {"profile", "profil", "section", "reference", "ref"},
	"length":      {"length", "len", "l", "longueur", "long"},
	"quantity":    {"quantity", "qty", "count", "num", "amount", "pcs", "quantite", "quantité", "nb"},
	"orientation": {"orientation", "orient", "position"},
}

// recordKind is what a row describes.
type recordKind int

const (
	kindUnknown recordKind = iota
	kindPiece
	kindBar
)

var kindAliases = map[string]recordKind{
	"piece":       kindPiece,
	"pieces":      kindPiece,
	"pièce":       kindPiece,
	"part":        kindPiece,
	"cut":         kindPiece,
	"fille":       kindPiece,
	"barre fille": kindPiece,
	"daughter":    kindPiece,
	"bar":         kindBar,
	"bars":        kindBar,
	"mere":        kindBar,
	"mère":        kindBar,
	"barre mere":  kindBar,
	"barre mère":  kindBar,
	"mother":      kindBar,
	"stock":       kindBar,
}

func parseKind(s string) recordKind {
	return kindAliases[strings.ToLower(strings.TrimSpace(s))]
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping type, profile, length, quantity, orientation and false otherwise.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{Type: -1, Profile: -1, Length: -1, Quantity: -1, Orientation: -1}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				var slot *int
				switch role {
				case "type":
					slot = &mapping.Type
				case "profile":
					slot = &mapping.Profile
				case "length":
					slot = &mapping.Length
				case "quantity":
					slot = &mapping.Quantity
				case "orientation":
					slot = &mapping.Orientation
				}
				if *slot == -1 {
					*slot = i
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{Type: 0, Profile: 1, Length: 2, Quantity: 3, Orientation: 4}, false
	}
	return mapping, true
}

// normalizeOrientation maps the known spellings onto "a-plat" and "debout".
// Unknown values are kept lowercased and reported as not recognized.
func normalizeOrientation(s string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "-", "undefined", "non-définie", "non-definie", "none":
		return model.UndefinedOrientation, true
	case "a-plat", "à plat", "a plat", "à-plat", "flat":
		return "a-plat", true
	case "debout", "upright", "standing", "edge":
		return "debout", true
	default:
		return v, false
	}
}

// parseLength accepts integer lengths; decimal input is rounded to the
// nearest unit with a warning.
func parseLength(s string) (int, bool, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false, err
	}
	return int(d.Round(0).IntPart()), !d.IsInteger(), nil
}

// getCell safely retrieves a cell value from a row by column index.
// Returns empty string if the index is out of range or negative.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// rowRecord is one parsed row, either a piece or a bar.
type rowRecord struct {
	kind  recordKind
	piece model.ProfilePiece
	bar   model.ProfileBar
}

// parseRow extracts a record from a row using the given column mapping.
// Returns the record, any error message, and any warnings.
func parseRow(row []string, mapping ColumnMapping, rowLabel string) (rowRecord, string, []string) {
	var warnings []string

	typeStr := getCell(row, mapping.Type)
	kind := parseKind(typeStr)
	if kind == kindUnknown {
		return rowRecord{}, fmt.Sprintf("%s: Unknown record type '%s'", rowLabel, typeStr), nil
	}

	profile := getCell(row, mapping.Profile)
	if profile == "" {
		profile = DefaultProfile
		warnings = append(warnings, fmt.Sprintf("%s: Missing profile, using '%s'", rowLabel, DefaultProfile))
	}

	lengthStr := getCell(row, mapping.Length)
	if lengthStr == "" {
		return rowRecord{}, fmt.Sprintf("%s: Missing length value", rowLabel), nil
	}
	length, rounded, err := parseLength(lengthStr)
	if err != nil {
		return rowRecord{}, fmt.Sprintf("%s: Invalid length '%s'", rowLabel, lengthStr), nil
	}
	if rounded {
		warnings = append(warnings, fmt.Sprintf("%s: Length '%s' rounded to %d", rowLabel, lengthStr, length))
	}

	qtyStr := getCell(row, mapping.Quantity)
	if qtyStr == "" {
		return rowRecord{}, fmt.Sprintf("%s: Missing quantity value", rowLabel), nil
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil {
		return rowRecord{}, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, qtyStr), nil
	}

	if length <= 0 || qty <= 0 {
		return rowRecord{}, fmt.Sprintf("%s: Length and quantity must be positive", rowLabel), nil
	}

	if kind == kindBar {
		if getCell(row, mapping.Orientation) != "" {
			warnings = append(warnings, fmt.Sprintf("%s: Orientation ignored for stock bars", rowLabel))
		}
		return rowRecord{kind: kind, bar: model.ProfileBar{Profile: profile, Length: length, Quantity: qty}}, "", warnings
	}

	orientStr := getCell(row, mapping.Orientation)
	orientation, ok := normalizeOrientation(orientStr)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("%s: Unknown orientation '%s', kept as is", rowLabel, orientStr))
	}
	return rowRecord{kind: kind, piece: model.ProfilePiece{
		Profile:     profile,
		Orientation: orientation,
		Length:      length,
		Quantity:    qty,
	}}, "", warnings
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportCSV imports pieces and bars from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	var warnings []string
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	records, err := readCSV(bytes.NewReader(data), delimiter)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", warnings)
}

// ImportCSVFromReader imports pieces and bars from a CSV reader with a
// specific delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	records, err := readCSV(reader, delimiter)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", nil)
}

func readCSV(r io.Reader, delimiter rune) ([][]string, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1
	return csvReader.ReadAll()
}

// ImportExcel imports pieces and bars from an Excel (.xlsx) file.
// Reads the first sheet and auto-detects column mapping from headers.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "Sheet is empty")
		return result
	}

	return importFromRows(rows, "Row", nil)
}

// ImportFile picks the importer from the file extension. DXF files need a
// profile name for the pieces they describe.
func ImportFile(path, dxfProfile string) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ImportExcel(path)
	case ".dxf":
		return ImportDXF(path, dxfProfile)
	default:
		return ImportCSV(path)
	}
}

// importFromRows is the shared import logic for both CSV and Excel data.
// It detects headers, maps columns, and parses each row into records.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		missing := []string{}
		if mapping.Type == -1 {
			missing = append(missing, "Type")
		}
		if mapping.Length == -1 {
			missing = append(missing, "Length")
		}
		if mapping.Quantity == -1 {
			missing = append(missing, "Quantity")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 3 && parseKind(getCell(rows[0], 0)) == kindUnknown {
		// Unrecognized header: skip it but keep the positional mapping.
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		rec, errMsg, warnings := parseRow(row, mapping, rowLabel)
		result.Warnings = append(result.Warnings, warnings...)
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}

		switch rec.kind {
		case kindPiece:
			result.Pieces = append(result.Pieces, rec.piece)
		case kindBar:
			result.Bars = append(result.Bars, rec.bar)
		}
	}

	if len(result.Pieces) > 0 && len(result.Bars) == 0 {
		result.Warnings = append(result.Warnings, "No stock bars found")
	}
	return result
}
