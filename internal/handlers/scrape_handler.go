package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listing-sync-service/internal/models"
	"listing-sync-service/internal/report"
	"listing-sync-service/internal/services"
)

// ScrapeHandler turns uploaded store exports into a classified workbook
type ScrapeHandler struct {
	extraction *services.ExtractionService
	logger     *logrus.Logger
}

// NewScrapeHandler creates a new scrape handler
func NewScrapeHandler(extraction *services.ExtractionService, logger *logrus.Logger) *ScrapeHandler {
	return &ScrapeHandler{extraction: extraction, logger: logger}
}

// Scrape accepts one or more CSV/XLSX uploads and streams back a
// combined workbook with Data and Manual Review sheets
// POST /api/v1/scrape
func (h *ScrapeHandler) Scrape(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload one or more CSV or Excel files",
			},
		})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload one or more CSV or Excel files",
			},
		})
		return
	}

	combined := &models.ScrapeResult{
		Matched:      []models.MatchedRow{},
		ManualReview: []models.ReviewRow{},
	}

	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "FILE_READ_ERROR",
					Message: fmt.Sprintf("%s: %v", header.Filename, err),
				},
			})
			return
		}

		rows, parseErr := h.extraction.ParseFile(header.Filename, file)
		file.Close()
		if parseErr != nil {
			code := "PARSE_ERROR"
			if errors.Is(parseErr, services.ErrUnsupportedFormat) {
				code = "INVALID_FORMAT"
			}
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    code,
					Message: fmt.Sprintf("%s: %v", header.Filename, parseErr),
				},
			})
			return
		}

		result := h.extraction.ExtractBatch(rows)
		combined.Matched = append(combined.Matched, result.Matched...)
		combined.ManualReview = append(combined.ManualReview, result.ManualReview...)
		combined.EmptySKUs += result.EmptySKUs
		combined.TotalRows += result.TotalRows
	}

	h.logger.WithFields(logrus.Fields{
		"files":        len(files),
		"totalRows":    combined.TotalRows,
		"matched":      len(combined.Matched),
		"manualReview": len(combined.ManualReview),
	}).Info("Scrape upload processed")

	filename := fmt.Sprintf("listing_links_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := report.WriteScrapeWorkbook(c.Writer, combined); err != nil {
		h.logger.WithError(err).Error("Failed to write scrape workbook")
	}
}
