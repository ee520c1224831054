package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"listing-sync-service/internal/asin"
	"listing-sync-service/internal/models"
)

// FileFormat identifies the tabular input format
type FileFormat string

const (
	FileFormatCSV  FileFormat = "csv"
	FileFormatXLSX FileFormat = "xlsx"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
var ErrUnsupportedFormat = fmt.Errorf("only CSV and XLSX files are supported")

// ExtractionService classifies SKUs from tabular uploads into Amazon,
// eBay and manual review buckets
type ExtractionService struct {
	logger *logrus.Logger
}

// NewExtractionService creates a new extraction service
func NewExtractionService(logger *logrus.Logger) *ExtractionService {
	return &ExtractionService{logger: logger}
}

// DetectFormat resolves the file format from its name
func DetectFormat(filename string) (FileFormat, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return FileFormatCSV, nil
	case strings.HasSuffix(lower, ".xlsx"):
		return FileFormatXLSX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ParseFile reads a CSV or XLSX upload into header-keyed rows. Header
// names are lowercased and trimmed; each row carries its source line
// number under "_row".
func (s *ExtractionService) ParseFile(filename string, file io.Reader) ([]map[string]string, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	if format == FileFormatCSV {
		return s.parseCSV(file)
	}
	return s.parseXLSX(file)
}

func (s *ExtractionService) parseCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
	}

	var rows []map[string]string
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
		}

		row := make(map[string]string)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(lineNum + 1)
		rows = append(rows, row)
		lineNum++
	}

	return rows, nil
}

func (s *ExtractionService) parseXLSX(file io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	excelRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	headers := excelRows[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
	}

	var rows []map[string]string
	for rowIdx, excelRow := range excelRows[1:] {
		row := make(map[string]string)
		for i, value := range excelRow {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(rowIdx + 2)
		rows = append(rows, row)
	}

	return rows, nil
}

// NormalizeCell repairs cell values that spreadsheet tools rewrote as
// floats. Scientific notation such as "1.97190135509E+11" is expanded
// back to the original digit string, and a trailing ".0" is stripped.
func NormalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}

	if strings.Contains(strings.ToUpper(value), "E+") {
		if num, err := strconv.ParseFloat(value, 64); err == nil {
			if num == math.Trunc(num) {
				return strconv.FormatFloat(num, 'f', -1, 64)
			}
		}
	}

	if strings.HasSuffix(value, ".0") {
		trimmed := strings.TrimSuffix(value, ".0")
		if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return trimmed
		}
	}

	return value
}

func rowField(row map[string]string, names ...string) string {
	for _, name := range names {
		if v, ok := row[name]; ok && v != "" {
			return v
		}
	}
	return ""
}

// ExtractBatch classifies every row's SKU and assembles the scrape
// result. Rows with an empty SKU are counted but excluded from both
// output sheets.
func (s *ExtractionService) ExtractBatch(rows []map[string]string) *models.ScrapeResult {
	result := &models.ScrapeResult{
		Matched:      []models.MatchedRow{},
		ManualReview: []models.ReviewRow{},
		TotalRows:    len(rows),
	}

	for _, row := range rows {
		store := rowField(row, "store name", "store")
		sku := NormalizeCell(rowField(row, "sku"))

		extraction, err := asin.Extract(sku)
		if err != nil {
			result.EmptySKUs++
			continue
		}

		identifier := extraction.Identifier
		link := extraction.Link
		if extraction.NeedsManualReview() {
			// Re-uploaded review sheets carry the operator's answer in
			// the MANUAL ASIN column; a well-formed entry promotes the
			// row to matched.
			manual := NormalizeCell(rowField(row, "manual asin", "manual"))
			kind, ok := asin.ValidIdentifier(manual)
			if !ok {
				result.ManualReview = append(result.ManualReview, models.ReviewRow{
					Store: store,
					SKU:   sku,
				})
				continue
			}
			identifier = manual
			link = asin.Link(kind, identifier)
		}

		matched := models.MatchedRow{
			Store:      store,
			SKU:        sku,
			Identifier: identifier,
			Length:     len(identifier),
			Link:       link,
		}

		if stockStr := NormalizeCell(rowField(row, "stock", "inventory", "quantity")); stockStr != "" {
			if stock, err := strconv.Atoi(stockStr); err == nil {
				matched.Stock = &stock
			}
		}
		if priceStr := rowField(row, "posted price", "price"); priceStr != "" {
			priceStr = strings.TrimPrefix(strings.TrimSpace(priceStr), "$")
			priceStr = strings.ReplaceAll(priceStr, ",", "")
			if price, err := strconv.ParseFloat(priceStr, 64); err == nil {
				matched.PostedPrice = &price
			}
		}

		result.Matched = append(result.Matched, matched)
	}

	s.logger.WithFields(logrus.Fields{
		"totalRows":    result.TotalRows,
		"matched":      len(result.Matched),
		"manualReview": len(result.ManualReview),
		"emptySkus":    result.EmptySKUs,
	}).Info("Batch extraction completed")

	return result
}

// ParseUpdateRows converts parsed upload rows into update rows for a
// sync job. Rows without a SKU are skipped.
func (s *ExtractionService) ParseUpdateRows(rows []map[string]string) ([]models.UpdateRow, error) {
	var updates []models.UpdateRow

	for _, row := range rows {
		sku := NormalizeCell(rowField(row, "sku"))
		if sku == "" {
			continue
		}

		update := models.UpdateRow{
			Store: rowField(row, "store name", "store"),
			SKU:   sku,
		}
		if rowNum, err := strconv.Atoi(row["_row"]); err == nil {
			update.RowNumber = rowNum
		}

		if stockStr := NormalizeCell(rowField(row, "stock", "inventory", "quantity")); stockStr != "" {
			stock, err := strconv.Atoi(stockStr)
			if err != nil {
				return nil, fmt.Errorf("row %s: invalid stock value %q", row["_row"], stockStr)
			}
			update.Stock = &stock
		}
		if priceStr := rowField(row, "posted price", "price"); priceStr != "" {
			priceStr = strings.TrimPrefix(strings.TrimSpace(priceStr), "$")
			priceStr = strings.ReplaceAll(priceStr, ",", "")
			price, err := strconv.ParseFloat(priceStr, 64)
			if err != nil {
				return nil, fmt.Errorf("row %s: invalid price value %q", row["_row"], priceStr)
			}
			update.PostedPrice = &price
		}

		updates = append(updates, update)
	}

	if len(updates) == 0 {
		return nil, fmt.Errorf("file contains no rows with a SKU")
	}

	return updates, nil
}
