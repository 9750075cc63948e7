package catalog

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var importColumns = []string{"name", "image_url", "price", "sizes", "colors", "condition", "category", "stock"}

// RowError reports a rejected spreadsheet row. Row is 1-based and counts the header.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportReport struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors,omitempty"`
}

// ParseSheet reads the first sheet of an .xlsx workbook into product rows.
// Rows that fail validation are reported and skipped.
func ParseSheet(r io.Reader, supplierListID string) ([]ProductRow, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, apperr.Validation(apperr.CodeValidation, "unreadable spreadsheet: "+err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, apperr.Validation(apperr.CodeValidation, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, apperr.Wrap(err, "read sheet")
	}
	if len(rows) == 0 {
		return nil, nil, apperr.Validation(apperr.CodeValidation, "sheet is empty")
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range importColumns {
		if _, ok := col[c]; !ok {
			return nil, nil, apperr.Validation(apperr.CodeValidation, "missing column "+c)
		}
	}

	var out []ProductRow
	var rowErrs []RowError
	for i, cells := range rows[1:] {
		rowNum := i + 2
		get := func(name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}
		if isBlank(cells) {
			continue
		}
		p, reason := parseRow(get)
		if reason != "" {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Reason: reason})
			continue
		}
		p.ID = uuid.NewString()
		p.SupplierListID = supplierListID
		out = append(out, p)
	}
	return out, rowErrs, nil
}

func parseRow(get func(string) string) (ProductRow, string) {
	name := get("name")
	if name == "" {
		return ProductRow{}, "name is required"
	}
	price, err := decimal.NewFromString(get("price"))
	if err != nil || !price.IsPositive() {
		return ProductRow{}, "price must be a positive number"
	}
	if price.Exponent() < -2 {
		return ProductRow{}, "price has more than two decimals"
	}
	stock, err := strconv.Atoi(get("stock"))
	if err != nil || stock < 0 {
		return ProductRow{}, "stock must be a non-negative integer"
	}
	p := ProductRow{
		SKU:             get("sku"),
		Name:            name,
		PriceCents:      price.Shift(2).IntPart(),
		Condition:       get("condition"),
		Category:        get("category"),
		Stock:           stock,
		AvailableSizes:  splitList(get("sizes")),
		AvailableColors: splitList(get("colors")),
	}
	if img := get("image_url"); img != "" {
		p.ImageURLs = []string{img}
	}
	return p, ""
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' || r == ';' }) {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Import parses a workbook and stores its valid rows under the list.
func (s *Service) Import(ctx context.Context, supplierListID string, r io.Reader) (ImportReport, error) {
	rows, rowErrs, err := ParseSheet(r, supplierListID)
	if err != nil {
		return ImportReport{}, err
	}
	rep := ImportReport{Errors: rowErrs}
	if len(rows) == 0 {
		return rep, nil
	}
	if err := s.Store.InsertRows(ctx, rows); err != nil {
		return rep, apperr.Wrap(err, fmt.Sprintf("insert %d products", len(rows)))
	}
	rep.Imported = len(rows)
	if err := s.Invalidate(ctx, supplierListID); err != nil {
		s.logger().Warn("catalog invalidate after import", zap.Error(err))
	}
	return rep, nil
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
