package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncMode represents what an update run writes to the marketplace
type SyncMode string

const (
	SyncModeInventory         SyncMode = "INVENTORY"
	SyncModePriceAndInventory SyncMode = "PRICE_AND_INVENTORY"
	SyncModePriceVariance     SyncMode = "PRICE_VARIANCE"
)

// SyncStatus represents the status of a sync job
type SyncStatus string

const (
	SyncStatusPending   SyncStatus = "PENDING"
	SyncStatusRunning   SyncStatus = "RUNNING"
	SyncStatusCompleted SyncStatus = "COMPLETED"
	SyncStatusFailed    SyncStatus = "FAILED"
	SyncStatusCancelled SyncStatus = "CANCELLED"
)

// TriggerType represents what triggered the sync
type TriggerType string

const (
	TriggerManual    TriggerType = "MANUAL"
	TriggerScheduled TriggerType = "SCHEDULED"
)

// LogLevel for sync log entries
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// SyncProgress tracks the progress of a sync job
type SyncProgress struct {
	TotalItems      int     `json:"totalItems"`
	ProcessedItems  int     `json:"processedItems"`
	SuccessfulItems int     `json:"successfulItems"`
	FailedItems     int     `json:"failedItems"`
	SkippedItems    int     `json:"skippedItems"`
	NotFoundItems   int     `json:"notFoundItems"`
	VarianceItems   int     `json:"varianceItems"`
	Percentage      float64 `json:"percentage"`
}

// SyncJob represents one multi-store update run against the marketplace
type SyncJob struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Mode     SyncMode   `gorm:"type:varchar(50);not null" json:"mode"`
	Status   SyncStatus `gorm:"type:varchar(50);not null;default:'PENDING';index:idx_sync_jobs_status" json:"status"`
	Filename string     `gorm:"type:varchar(512)" json:"filename,omitempty"`

	// Stores covered by this run, in processing order
	Stores JSONB `gorm:"type:jsonb" json:"stores,omitempty"`

	// Progress tracking
	Progress JSONB `gorm:"type:jsonb;default:'{\"totalItems\":0,\"processedItems\":0,\"successfulItems\":0,\"failedItems\":0,\"skippedItems\":0,\"notFoundItems\":0,\"varianceItems\":0,\"percentage\":0}'" json:"progress"`

	// Idempotency
	IdempotencyKey string `gorm:"type:varchar(255);index:idx_sync_jobs_idempotency" json:"idempotencyKey,omitempty"`

	// Timing
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Error tracking
	ErrorMessage string `gorm:"type:text" json:"errorMessage,omitempty"`

	// Audit
	TriggeredBy TriggerType `gorm:"type:varchar(50)" json:"triggeredBy,omitempty"`
	CreatedBy   string      `gorm:"type:varchar(255)" json:"createdBy,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Logs      []SyncLog       `gorm:"foreignKey:SyncJobID" json:"logs,omitempty"`
	Variances []PriceVariance `gorm:"foreignKey:SyncJobID" json:"variances,omitempty"`
}

// TableName specifies the table name for SyncJob
func (SyncJob) TableName() string {
	return "sync_jobs"
}

// GetProgress returns the sync progress as a structured object
func (j *SyncJob) GetProgress() *SyncProgress {
	progress := &SyncProgress{}
	if j.Progress == nil {
		return progress
	}
	read := func(key string) int {
		if v, ok := j.Progress[key].(float64); ok {
			return int(v)
		}
		return 0
	}
	progress.TotalItems = read("totalItems")
	progress.ProcessedItems = read("processedItems")
	progress.SuccessfulItems = read("successfulItems")
	progress.FailedItems = read("failedItems")
	progress.SkippedItems = read("skippedItems")
	progress.NotFoundItems = read("notFoundItems")
	progress.VarianceItems = read("varianceItems")
	if v, ok := j.Progress["percentage"].(float64); ok {
		progress.Percentage = v
	}
	return progress
}

// SetProgress stores the progress object on the job
func (j *SyncJob) SetProgress(p *SyncProgress) {
	j.Progress = JSONB{
		"totalItems":      p.TotalItems,
		"processedItems":  p.ProcessedItems,
		"successfulItems": p.SuccessfulItems,
		"failedItems":     p.FailedItems,
		"skippedItems":    p.SkippedItems,
		"notFoundItems":   p.NotFoundItems,
		"varianceItems":   p.VarianceItems,
		"percentage":      p.Percentage,
	}
}

// IsTerminal reports whether the job has finished one way or another
func (j *SyncJob) IsTerminal() bool {
	return j.Status == SyncStatusCompleted || j.Status == SyncStatusFailed || j.Status == SyncStatusCancelled
}

// SyncLog is a structured log entry attached to a sync job
type SyncLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SyncJobID uuid.UUID `gorm:"type:uuid;not null;index:idx_sync_logs_job" json:"syncJobId"`
	Level     LogLevel  `gorm:"type:varchar(20);not null" json:"level"`
	Store     string    `gorm:"type:varchar(50)" json:"store,omitempty"`
	SKU       string    `gorm:"type:varchar(255)" json:"sku,omitempty"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Data      JSONB     `gorm:"type:jsonb" json:"data,omitempty"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for SyncLog
func (SyncLog) TableName() string {
	return "sync_logs"
}

// PriceVariance records a row whose posted price diverged from the live
// marketplace price by at least the review threshold. The price is still
// updated; the record exists so an operator can double-check the listing.
type PriceVariance struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SyncJobID   uuid.UUID `gorm:"type:uuid;not null;index:idx_price_variances_job" json:"syncJobId"`
	Store       string    `gorm:"type:varchar(50);not null" json:"store"`
	SKU         string    `gorm:"type:varchar(255);not null" json:"sku"`
	ListingID   string    `gorm:"type:varchar(64)" json:"listingId,omitempty"`
	PostedPrice float64   `json:"postedPrice"`
	ReverbPrice float64   `json:"reverbPrice"`
	Difference  float64   `json:"difference"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for PriceVariance
func (PriceVariance) TableName() string {
	return "price_variances"
}
