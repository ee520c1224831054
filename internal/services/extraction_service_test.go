package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestExtractionService() *ExtractionService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewExtractionService(logger)
}

func TestDetectFormat(t *testing.T) {
	format, err := DetectFormat("listings.csv")
	require.NoError(t, err)
	assert.Equal(t, FileFormatCSV, format)

	format, err = DetectFormat("Listings.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FileFormatXLSX, format)

	_, err = DetectFormat("listings.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNormalizeCell(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain value", "MZM-4KTCXB0CYZ-New", "MZM-4KTCXB0CYZ-New"},
		{"scientific notation", "1.97190135509E+11", "197190135509"},
		{"lowercase exponent", "8.53596316522e+11", "853596316522"},
		{"trailing point zero", "42.0", "42"},
		{"fractional survives", "299.99", "299.99"},
		{"empty", "", ""},
		{"whitespace trimmed", "  5  ", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCell(tt.input))
		})
	}
}

func TestParseFile_CSV(t *testing.T) {
	svc := newTestExtractionService()

	csvData := "STORE NAME,SKU,STOCK,POSTED PRICE\n" +
		"MZM,MZM-4KTCXB0CYZ-New,3,299.99\n" +
		"MMS,MMS-197190135509-New,1,1200.00\n"

	rows, err := svc.ParseFile("export.csv", strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "MZM", rows[0]["store name"])
	assert.Equal(t, "MZM-4KTCXB0CYZ-New", rows[0]["sku"])
	assert.Equal(t, "3", rows[0]["stock"])
	assert.Equal(t, "2", rows[0]["_row"])
	assert.Equal(t, "3", rows[1]["_row"])
}

func TestParseFile_XLSX(t *testing.T) {
	svc := newTestExtractionService()

	f := excelize.NewFile()
	f.SetSheetRow("Sheet1", "A1", &[]interface{}{"STORE NAME", "SKU", "STOCK"})
	f.SetSheetRow("Sheet1", "A2", &[]interface{}{"GG", "GG-853596316522-New", 2})

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := svc.ParseFile("export.xlsx", &buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "GG", rows[0]["store name"])
	assert.Equal(t, "GG-853596316522-New", rows[0]["sku"])
	assert.Equal(t, "2", rows[0]["stock"])
}

func TestExtractBatch(t *testing.T) {
	svc := newTestExtractionService()

	rows := []map[string]string{
		{"store name": "MZM", "sku": "MZM-4KTCXB0CYZ-New", "stock": "3", "posted price": "299.99"},
		{"store name": "MMS", "sku": "MMS-197190135509-New", "stock": "1", "posted price": "$1,200.00"},
		{"store name": "GG", "sku": "GG-SHORT-New"},
		{"store name": "TSS", "sku": ""},
	}

	result := svc.ExtractBatch(rows)

	assert.Equal(t, 4, result.TotalRows)
	assert.Equal(t, 1, result.EmptySKUs)
	require.Len(t, result.Matched, 2)
	require.Len(t, result.ManualReview, 1)

	amazon := result.Matched[0]
	assert.Equal(t, "B0CYZ4KTCX", amazon.Identifier)
	assert.Equal(t, 10, amazon.Length)
	assert.Equal(t, "https://www.amazon.com/dp/B0CYZ4KTCX", amazon.Link)
	require.NotNil(t, amazon.Stock)
	assert.Equal(t, 3, *amazon.Stock)
	require.NotNil(t, amazon.PostedPrice)
	assert.InDelta(t, 299.99, *amazon.PostedPrice, 0.001)

	ebay := result.Matched[1]
	assert.Equal(t, "135509197190", ebay.Identifier)
	assert.Equal(t, "https://www.ebay.com/itm/135509197190", ebay.Link)
	require.NotNil(t, ebay.PostedPrice)
	assert.InDelta(t, 1200.00, *ebay.PostedPrice, 0.001)

	assert.Equal(t, "GG-SHORT-New", result.ManualReview[0].SKU)
}

func TestExtractBatch_ManualASINPromotesRow(t *testing.T) {
	svc := newTestExtractionService()

	// A re-uploaded review sheet with the MANUAL ASIN column filled in
	rows := []map[string]string{
		{"store name": "GG", "sku": "GG-SHORT-New", "manual asin": "B0CYZ4KTCX", "stock": "2"},
		{"store name": "GG", "sku": "GG-ALSOSHORT-New", "manual asin": "not-an-asin"},
	}

	result := svc.ExtractBatch(rows)

	require.Len(t, result.Matched, 1)
	matched := result.Matched[0]
	assert.Equal(t, "GG-SHORT-New", matched.SKU)
	assert.Equal(t, "B0CYZ4KTCX", matched.Identifier)
	assert.Equal(t, "https://www.amazon.com/dp/B0CYZ4KTCX", matched.Link)
	require.NotNil(t, matched.Stock)
	assert.Equal(t, 2, *matched.Stock)

	require.Len(t, result.ManualReview, 1)
	assert.Equal(t, "GG-ALSOSHORT-New", result.ManualReview[0].SKU)
}

func TestExtractBatch_ScientificNotationSKU(t *testing.T) {
	svc := newTestExtractionService()

	// Excel rewrote the middle segment of an all-digit SKU; extraction
	// still fails but the row keeps its repaired SKU for review
	rows := []map[string]string{
		{"store name": "MMS", "sku": "1.97190135509E+11"},
	}

	result := svc.ExtractBatch(rows)
	require.Len(t, result.ManualReview, 1)
	assert.Equal(t, "197190135509", result.ManualReview[0].SKU)
}

func TestParseUpdateRows(t *testing.T) {
	svc := newTestExtractionService()

	rows := []map[string]string{
		{"store name": "MZM", "sku": "MZM-4KTCXB0CYZ-New", "stock": "3", "posted price": "299.99", "_row": "2"},
		{"store name": "MMS", "sku": "MMS-197190135509-New", "_row": "3"},
		{"store name": "GG", "sku": "", "_row": "4"},
	}

	updates, err := svc.ParseUpdateRows(rows)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	assert.Equal(t, "MZM-4KTCXB0CYZ-New", updates[0].SKU)
	require.NotNil(t, updates[0].Stock)
	assert.Equal(t, 3, *updates[0].Stock)
	assert.Equal(t, 2, updates[0].RowNumber)

	// missing stock cell means zero inventory at update time
	assert.Nil(t, updates[1].Stock)
	assert.Equal(t, 0, updates[1].Quantity())
}

func TestParseUpdateRows_InvalidStock(t *testing.T) {
	svc := newTestExtractionService()

	rows := []map[string]string{
		{"store name": "MZM", "sku": "MZM-4KTCXB0CYZ-New", "stock": "lots", "_row": "2"},
	}

	_, err := svc.ParseUpdateRows(rows)
	assert.Error(t, err)
}

func TestParseUpdateRows_NoUsableRows(t *testing.T) {
	svc := newTestExtractionService()

	_, err := svc.ParseUpdateRows([]map[string]string{{"store name": "MZM", "sku": ""}})
	assert.Error(t, err)
}
