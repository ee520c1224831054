package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"listing-sync-service/internal/models"
)

const (
	dataSheet   = "Data"
	reviewSheet = "Manual Review"
)

var dataHeaders = []string{"STORE NAME", "SKU", "ASIN", "LEN", "LINKS", "STOCK", "POSTED PRICE"}

var reviewHeaders = []string{"STORE NAME", "SKU", "MANUAL ASIN"}

var varianceHeaders = []string{"STORE NAME", "SKU", "LISTING ID", "POSTED PRICE", "REVERB PRICE", "DIFFERENCE"}

// WriteScrapeWorkbook renders extraction results as a two-sheet
// workbook: matched rows on the Data sheet, unresolved rows on the
// Manual Review sheet. The ASIN column is text-formatted so Excel does
// not mangle numeric identifiers.
func WriteScrapeWorkbook(w io.Writer, result *models.ScrapeResult) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", dataSheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})

	textFmt := "@"
	textStyle, _ := f.NewStyle(&excelize.Style{
		CustomNumFmt: &textFmt,
	})

	for i, h := range dataHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(dataSheet, cell, h)
		f.SetCellStyle(dataSheet, cell, cell, headerStyle)
	}

	for rowIdx, row := range result.Matched {
		rowNum := rowIdx + 2
		asinCell, _ := excelize.CoordinatesToCellName(3, rowNum)
		f.SetCellStyle(dataSheet, asinCell, asinCell, textStyle)

		f.SetCellValue(dataSheet, fmt.Sprintf("A%d", rowNum), row.Store)
		f.SetCellValue(dataSheet, fmt.Sprintf("B%d", rowNum), row.SKU)
		f.SetCellStr(dataSheet, fmt.Sprintf("C%d", rowNum), row.Identifier)
		f.SetCellValue(dataSheet, fmt.Sprintf("D%d", rowNum), row.Length)
		f.SetCellValue(dataSheet, fmt.Sprintf("E%d", rowNum), row.Link)
		if row.Stock != nil {
			f.SetCellValue(dataSheet, fmt.Sprintf("F%d", rowNum), *row.Stock)
		}
		if row.PostedPrice != nil {
			f.SetCellValue(dataSheet, fmt.Sprintf("G%d", rowNum), *row.PostedPrice)
		}
	}

	f.SetColWidth(dataSheet, "A", "B", 22)
	f.SetColWidth(dataSheet, "C", "C", 16)
	f.SetColWidth(dataSheet, "E", "E", 45)

	f.NewSheet(reviewSheet)
	for i, h := range reviewHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(reviewSheet, cell, h)
		f.SetCellStyle(reviewSheet, cell, cell, headerStyle)
	}
	for rowIdx, row := range result.ManualReview {
		rowNum := rowIdx + 2
		f.SetCellValue(reviewSheet, fmt.Sprintf("A%d", rowNum), row.Store)
		f.SetCellValue(reviewSheet, fmt.Sprintf("B%d", rowNum), row.SKU)
	}
	f.SetColWidth(reviewSheet, "A", "C", 22)

	sheetIdx, _ := f.GetSheetIndex(dataSheet)
	f.SetActiveSheet(sheetIdx)

	return f.Write(w)
}

// WriteVarianceWorkbook renders price variances recorded during a sync
// job as a single-sheet review workbook.
func WriteVarianceWorkbook(w io.Writer, variances []models.PriceVariance) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Price Review"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})

	for i, h := range varianceHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, v := range variances {
		rowNum := rowIdx + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), v.Store)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), v.SKU)
		f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), v.ListingID)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), v.PostedPrice)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), v.ReverbPrice)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), v.Difference)
	}

	f.SetColWidth(sheetName, "A", "B", 22)
	f.SetColWidth(sheetName, "C", "C", 16)

	return f.Write(w)
}
