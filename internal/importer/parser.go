package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	enc "github.com/duartefn/mercado/internal/encoding"
	"github.com/duartefn/mercado/internal/purchase"
)

// Header names accepted in the first non-empty row, case-insensitive.
const (
	colName     = "nome"
	colCategory = "categoria"
	colDate     = "data"
	colPrice    = "preco_unitario"
	colQuantity = "quantidade"
	colUnit     = "unidade"
	colCurrency = "moeda"
	colLocation = "local"
	colNotes    = "observacoes"
)

var requiredCols = []string{colName, colCategory, colDate, colPrice, colQuantity, colUnit}

// Parser reads semicolon-separated purchase CSVs. The file may start with
// blank or title rows; the first row containing all required headers is
// treated as the header.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// colIndex maps normalized header names to their position in the row.
type colIndex map[string]int

func (p *Parser) Parse(r io.Reader) ([]purchase.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cols, headerIdx := findHeader(rows)
	if cols == nil {
		return nil, fmt.Errorf("no header row found: expected columns %s", strings.Join(requiredCols, ", "))
	}

	return parseRows(cols, rows[headerIdx+1:], headerIdx)
}

func findHeader(rows [][]string) (colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			if name != "" {
				cols[name] = i
			}
		}

		if hasRequired(cols) {
			return cols, rowIdx
		}
	}

	return nil, 0
}

func hasRequired(cols colIndex) bool {
	for _, name := range requiredCols {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows turns data rows into create params. headerIdx is the 0-based
// header position in the original file, used for row numbers in errors.
func parseRows(cols colIndex, rows [][]string, headerIdx int) ([]purchase.CreateParams, error) {
	var params []purchase.CreateParams

	for i, row := range rows {
		rowNum := headerIdx + i + 2 // 1-based file row

		if isBlank(row) {
			continue
		}

		name := cellValue(row, cols, colName)
		if name == "" {
			return nil, fmt.Errorf("row %d: missing name", rowNum)
		}

		date, err := parseDate(cellValue(row, cols, colDate))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		price, err := parseAmount(cellValue(row, cols, colPrice))
		if err != nil {
			return nil, fmt.Errorf("row %d: unit price: %w", rowNum, err)
		}

		quantity, err := parseAmount(cellValue(row, cols, colQuantity))
		if err != nil {
			return nil, fmt.Errorf("row %d: quantity: %w", rowNum, err)
		}

		params = append(params, purchase.CreateParams{
			Name:         name,
			Category:     purchase.Category(cellValue(row, cols, colCategory)),
			PurchaseDate: date,
			UnitPrice:    price,
			Quantity:     quantity,
			UnitMeasure:  purchase.Unit(cellValue(row, cols, colUnit)),
			Currency:     cellValue(row, cols, colCurrency),
			Location:     cellValue(row, cols, colLocation),
			Observations: cellValue(row, cols, colNotes),
		})
	}

	return params, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

func cellValue(row []string, cols colIndex, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

var dateLayouts = []string{"02-01-2006", "02/01/2006", time.DateOnly}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseAmount accepts both Brazilian ("1.234,56") and plain ("1234.56")
// decimal notation.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	clean := s
	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unrecognized amount %q", s)
	}

	return d, nil
}
