package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"listing-sync-service/internal/config"
	"listing-sync-service/internal/models"
	"listing-sync-service/internal/report"
	"listing-sync-service/internal/repository"
	"listing-sync-service/internal/services"
)

// SyncHandler handles update job endpoints
type SyncHandler struct {
	updates    *services.UpdateService
	extraction *services.ExtractionService
	config     *config.Config
	logger     *logrus.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(updates *services.UpdateService, extraction *services.ExtractionService, cfg *config.Config, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{updates: updates, extraction: extraction, config: cfg, logger: logger}
}

// pageSize clamps a requested page size to the configured bounds
func (h *SyncHandler) pageSize(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return h.config.DefaultPageSize
	}
	if limit > h.config.MaxPageSize {
		return h.config.MaxPageSize
	}
	return limit
}

// CreateJob starts an update job from an uploaded CSV/XLSX file
// POST /api/v1/sync
func (h *SyncHandler) CreateJob(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please upload a CSV or Excel file"})
		return
	}
	defer file.Close()

	mode := models.SyncMode(strings.ToUpper(c.DefaultPostForm("mode", string(models.SyncModeInventory))))

	rows, err := h.extraction.ParseFile(header.Filename, file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updateRows, err := h.extraction.ParseUpdateRows(rows)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := &services.StartSyncRequest{
		Mode:           mode,
		Filename:       header.Filename,
		Rows:           updateRows,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
		TriggeredBy:    models.TriggerManual,
		CreatedBy:      c.PostForm("createdBy"),
	}

	job, err := h.updates.StartSync(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"jobId": job.ID,
		"mode":  job.Mode,
		"rows":  len(updateRows),
	}).Info("Update job started")

	c.JSON(http.StatusCreated, gin.H{"data": job})
}

// ListJobs returns update jobs with pagination
// GET /api/v1/sync
func (h *SyncHandler) ListJobs(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	opts := repository.SyncListOptions{
		Status: models.SyncStatus(c.Query("status")),
		Mode:   models.SyncMode(c.Query("mode")),
		Limit:  h.pageSize(c),
		Offset: offset,
	}

	jobs, total, err := h.updates.ListJobs(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  jobs,
		"total": total,
	})
}

// GetJob returns a single update job
// GET /api/v1/sync/:id
func (h *SyncHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	job, err := h.updates.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": job})
}

// GetJobLogs returns logs for an update job
// GET /api/v1/sync/:id/logs
func (h *SyncHandler) GetJobLogs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, err := h.updates.GetJobLogs(c.Request.Context(), id, repository.LogListOptions{
		Level:  models.LogLevel(c.Query("level")),
		Store:  c.Query("store"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

// CancelJob cancels a running update job
// POST /api/v1/sync/:id/cancel
func (h *SyncHandler) CancelJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.updates.CancelJob(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job cancelled"})
}

// GetJobVariances streams the price variance review workbook for a job
// GET /api/v1/sync/:id/variances
func (h *SyncHandler) GetJobVariances(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	variances, err := h.updates.GetJobVariances(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{"data": variances, "total": len(variances)})
		return
	}

	filename := fmt.Sprintf("price_review_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := report.WriteVarianceWorkbook(c.Writer, variances); err != nil {
		h.logger.WithError(err).Error("Failed to write variance workbook")
	}
}

// GetStats returns aggregate job statistics
// GET /api/v1/sync/stats
func (h *SyncHandler) GetStats(c *gin.Context) {
	stats, err := h.updates.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
