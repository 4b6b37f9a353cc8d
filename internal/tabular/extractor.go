// Package tabular turns a raw uploaded file (CSV or spreadsheet) into a
// rectangular grid of string cells. It detects the delimiter, repairs
// the encoding, and reports structural anomalies (duplicate and empty
// rows, header presence) instead of failing on them. The only hard
// failure is unreadable input.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Format identifies the physical file format of the source.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// delimiterSampleLines is how many lines are inspected when sniffing
// the delimiter of a delimited-text file.
const delimiterSampleLines = 5

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// Grid is the extraction result: every row of the file as string cells
// plus best-effort structural analysis.
type Grid struct {
	Rows          [][]string
	Format        Format
	Delimiter     rune // zero for spreadsheets
	HasHeader     bool
	DuplicateRows int
	EmptyRows     int
}

// Header returns the header row, or nil when none was detected.
func (g *Grid) Header() []string {
	if !g.HasHeader || len(g.Rows) == 0 {
		return nil
	}
	return g.Rows[0]
}

// DataRows returns all rows below the header (or every row when no
// header was detected).
func (g *Grid) DataRows() [][]string {
	if g.HasHeader && len(g.Rows) > 0 {
		return g.Rows[1:]
	}
	return g.Rows
}

// Extract parses raw bytes into a Grid. The format is chosen by file
// extension; anything that is not a spreadsheet is treated as delimited
// text. Returns an error only for unreadable input.
func Extract(data []byte, fileName string) (*Grid, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("file %q is empty", fileName)
	}

	var grid *Grid
	var err error
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xls", ".xlsm":
		grid, err = extractSpreadsheet(data)
	default:
		grid, err = extractDelimited(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %q: %w", fileName, err)
	}

	grid.analyze()
	return grid, nil
}

func extractDelimited(data []byte) (*Grid, error) {
	text := decodeText(data)
	delim := sniffDelimiter(text)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows in file")
	}

	// Drop rows that are entirely blank; they carry no data and would
	// break the header heuristic.
	kept := rows[:0]
	empty := 0
	for _, row := range rows {
		if isEmptyRow(row) {
			empty++
			continue
		}
		kept = append(kept, row)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("only blank rows in file")
	}

	return &Grid{Rows: kept, Format: FormatCSV, Delimiter: delim, EmptyRows: empty}, nil
}

func extractSpreadsheet(data []byte) (*Grid, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	kept := make([][]string, 0, len(rows))
	empty := 0
	for _, row := range rows {
		if isEmptyRow(row) {
			empty++
			continue
		}
		kept = append(kept, row)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("sheet %q has only blank rows", sheet)
	}

	return &Grid{Rows: kept, Format: FormatXLSX, EmptyRows: empty}, nil
}

// analyze fills in the header heuristic and duplicate-row count.
func (g *Grid) analyze() {
	g.HasHeader = detectHeader(g.Rows)

	seen := make(map[string]bool, len(g.Rows))
	for _, row := range g.Rows {
		key := strings.Join(row, "\x1f")
		if seen[key] {
			g.DuplicateRows++
		}
		seen[key] = true
	}
}

// detectHeader is deliberately binary: the first row is a header when
// it contains at least one non-numeric textual cell and the second row
// contains at least one numeric cell. Headers below row 0 are not
// searched for.
func detectHeader(rows [][]string) bool {
	if len(rows) < 2 {
		return false
	}
	textual := false
	for _, cell := range rows[0] {
		cell = strings.TrimSpace(cell)
		if cell != "" && !isNumericCell(cell) {
			textual = true
			break
		}
	}
	if !textual {
		return false
	}
	for _, cell := range rows[1] {
		if isNumericCell(strings.TrimSpace(cell)) {
			return true
		}
	}
	return false
}

// sniffDelimiter counts candidate delimiters over the first few lines
// and picks the most frequent one. Comma wins ties by candidate order.
func sniffDelimiter(text string) rune {
	lines := strings.SplitN(text, "\n", delimiterSampleLines+1)
	if len(lines) > delimiterSampleLines {
		lines = lines[:delimiterSampleLines]
	}
	sample := strings.Join(lines, "\n")

	best := ','
	bestCount := 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(sample, string(d)); n > bestCount {
			best = d
			bestCount = n
		}
	}
	return best
}

// decodeText repairs the byte stream into valid UTF-8. Legacy Brazilian
// exports are commonly Windows-1252; when the input is not valid UTF-8
// it is decoded through that charmap, which never fails.
func decodeText(data []byte) string {
	// Strip a UTF-8 BOM if present.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		// Unreachable for Windows-1252, but keep a safe fallback.
		return string(data)
	}
	return string(decoded)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isNumericCell(s string) bool {
	if s == "" {
		return false
	}
	// Accept pt-BR decimals ("1.234,56") as numeric.
	normalized := strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	if _, err := strconv.ParseFloat(normalized, 64); err == nil {
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
