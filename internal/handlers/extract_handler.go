package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"listing-sync-service/internal/asin"
)

// ExtractHandler handles SKU extraction endpoints
type ExtractHandler struct{}

// NewExtractHandler creates a new extract handler
func NewExtractHandler() *ExtractHandler {
	return &ExtractHandler{}
}

// ExtractRequest is the payload for a single extraction
type ExtractRequest struct {
	SKU string `json:"sku"`
}

// BatchExtractRequest is the payload for a batch extraction
type BatchExtractRequest struct {
	SKUs []string `json:"skus" binding:"required"`
}

// BatchExtractItem pairs an input SKU with its classification
type BatchExtractItem struct {
	SKU        string `json:"sku"`
	Kind       string `json:"kind"`
	Identifier string `json:"identifier,omitempty"`
	Link       string `json:"link,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Extract classifies a single SKU
// POST /api/v1/extract
func (h *ExtractHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	extraction, err := asin.Extract(req.SKU)
	if err != nil {
		if errors.Is(err, asin.ErrEmptySKU) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sku is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": extraction})
}

// ExtractBatch classifies a list of SKUs
// POST /api/v1/extract/batch
func (h *ExtractHandler) ExtractBatch(c *gin.Context) {
	var req BatchExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]BatchExtractItem, 0, len(req.SKUs))
	for _, sku := range req.SKUs {
		item := BatchExtractItem{SKU: sku}
		extraction, err := asin.Extract(sku)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Kind = string(extraction.Kind)
			item.Identifier = extraction.Identifier
			item.Link = extraction.Link
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"total": len(items),
	})
}
