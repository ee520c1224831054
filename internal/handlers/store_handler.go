package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listing-sync-service/internal/services"
)

// StoreHandler exposes the configured store list and connectivity checks
type StoreHandler struct {
	updates *services.UpdateService
	logger  *logrus.Logger
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(updates *services.UpdateService, logger *logrus.Logger) *StoreHandler {
	return &StoreHandler{updates: updates, logger: logger}
}

// StoreInfo is the public view of a configured store
type StoreInfo struct {
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
	HasToken bool   `json:"hasToken"`
}

// ListStores returns the configured stores
// GET /api/v1/stores
func (h *StoreHandler) ListStores(c *gin.Context) {
	stores := h.updates.Stores()
	infos := make([]StoreInfo, 0, len(stores))
	for _, store := range stores {
		infos = append(infos, StoreInfo{
			Code:     store.Code,
			Name:     store.Name,
			HasToken: store.HasToken(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": infos})
}

// TestStore runs a connectivity smoke test against one store
// POST /api/v1/stores/:code/test
func (h *StoreHandler) TestStore(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	if err := h.updates.TestStore(c.Request.Context(), code); err != nil {
		h.logger.WithField("store", code).WithError(err).Warn("Store connectivity test failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"store":     code,
			"connected": false,
			"error":     err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store":     code,
		"connected": true,
	})
}
