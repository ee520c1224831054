package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"listing-sync-service/internal/models"
)

func TestWriteScrapeWorkbook(t *testing.T) {
	stock := 3
	price := 299.99
	result := &models.ScrapeResult{
		Matched: []models.MatchedRow{
			{
				Store:       "MZM",
				SKU:         "MZM-4KTCXB0CYZ-New",
				Identifier:  "B0CYZ4KTCX",
				Length:      10,
				Link:        "https://www.amazon.com/dp/B0CYZ4KTCX",
				Stock:       &stock,
				PostedPrice: &price,
			},
			{
				Store:      "MMS",
				SKU:        "MMS-197190135509-New",
				Identifier: "135509197190",
				Length:     12,
				Link:       "https://www.ebay.com/itm/135509197190",
			},
		},
		ManualReview: []models.ReviewRow{
			{Store: "GG", SKU: "GG-SHORT-New"},
		},
		TotalRows: 3,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteScrapeWorkbook(&buf, result))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Data")
	assert.Contains(t, sheets, "Manual Review")

	header, err := f.GetCellValue("Data", "A1")
	require.NoError(t, err)
	assert.Equal(t, "STORE NAME", header)

	// numeric eBay identifier must survive as text
	identifier, err := f.GetCellValue("Data", "C3")
	require.NoError(t, err)
	assert.Equal(t, "135509197190", identifier)

	link, err := f.GetCellValue("Data", "E2")
	require.NoError(t, err)
	assert.Equal(t, "https://www.amazon.com/dp/B0CYZ4KTCX", link)

	reviewSKU, err := f.GetCellValue("Manual Review", "B2")
	require.NoError(t, err)
	assert.Equal(t, "GG-SHORT-New", reviewSKU)

	// manual ASIN column stays blank for the operator to fill in
	manual, err := f.GetCellValue("Manual Review", "C2")
	require.NoError(t, err)
	assert.Empty(t, manual)
}

func TestWriteVarianceWorkbook(t *testing.T) {
	variances := []models.PriceVariance{
		{
			Store:       "MZM",
			SKU:         "MZM-4KTCXB0CYZ-New",
			ListingID:   "12345678",
			PostedPrice: 400.00,
			ReverbPrice: 299.99,
			Difference:  100.01,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteVarianceWorkbook(&buf, variances))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, f.GetSheetList(), "Price Review")

	listingID, err := f.GetCellValue("Price Review", "C2")
	require.NoError(t, err)
	assert.Equal(t, "12345678", listingID)

	posted, err := f.GetCellValue("Price Review", "D2")
	require.NoError(t, err)
	assert.Equal(t, "400", posted)
}
