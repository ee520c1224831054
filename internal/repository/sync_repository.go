package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"listing-sync-service/internal/models"
)

// SyncListOptions filters and paginates job listings
type SyncListOptions struct {
	Status models.SyncStatus
	Mode   models.SyncMode
	Limit  int
	Offset int
}

// LogListOptions filters and paginates job log queries
type LogListOptions struct {
	Level  models.LogLevel
	Store  string
	Limit  int
	Offset int
}

// SyncStats summarizes job history
type SyncStats struct {
	TotalJobs      int64 `json:"totalJobs"`
	RunningJobs    int64 `json:"runningJobs"`
	CompletedJobs  int64 `json:"completedJobs"`
	FailedJobs     int64 `json:"failedJobs"`
	TotalVariances int64 `json:"totalVariances"`
}

// SyncRepositoryInterface abstracts job persistence for testing
type SyncRepositoryInterface interface {
	CreateJob(ctx context.Context, job *models.SyncJob) error
	GetJobByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error)
	GetJobByIdempotencyKey(ctx context.Context, key string) (*models.SyncJob, error)
	GetRunningJobs(ctx context.Context) ([]models.SyncJob, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, errorMessage string) error
	UpdateJobProgress(ctx context.Context, id uuid.UUID, progress *models.SyncProgress) error
	ListJobs(ctx context.Context, opts SyncListOptions) ([]models.SyncJob, int64, error)
	CreateLog(ctx context.Context, log *models.SyncLog) error
	GetJobLogs(ctx context.Context, jobID uuid.UUID, opts LogListOptions) ([]models.SyncLog, error)
	CreateVariance(ctx context.Context, variance *models.PriceVariance) error
	GetJobVariances(ctx context.Context, jobID uuid.UUID) ([]models.PriceVariance, error)
	GetStats(ctx context.Context) (*SyncStats, error)
}

// SyncRepository handles database operations for sync jobs
type SyncRepository struct {
	db *gorm.DB
}

var _ SyncRepositoryInterface = (*SyncRepository)(nil)

// NewSyncRepository creates a new sync repository
func NewSyncRepository(db *gorm.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// CreateJob creates a new sync job
func (r *SyncRepository) CreateJob(ctx context.Context, job *models.SyncJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetJobByID retrieves a sync job by ID
func (r *SyncRepository) GetJobByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	var job models.SyncJob
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobByIdempotencyKey retrieves a sync job by idempotency key
func (r *SyncRepository) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.SyncJob, error) {
	var job models.SyncJob
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetRunningJobs returns jobs currently in a non-terminal state
func (r *SyncRepository) GetRunningJobs(ctx context.Context) ([]models.SyncJob, error) {
	var jobs []models.SyncJob
	err := r.db.WithContext(ctx).
		Where("status IN ?", []models.SyncStatus{models.SyncStatusPending, models.SyncStatusRunning}).
		Find(&jobs).Error
	return jobs, err
}

// UpdateJobStatus updates the job status, stamping completion time on
// terminal transitions
func (r *SyncRepository) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, errorMessage string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
		"updated_at":    time.Now(),
	}
	if status == models.SyncStatusCompleted || status == models.SyncStatusFailed || status == models.SyncStatusCancelled {
		now := time.Now()
		updates["completed_at"] = &now
	}
	return r.db.WithContext(ctx).
		Model(&models.SyncJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateJobProgress updates the job progress
func (r *SyncRepository) UpdateJobProgress(ctx context.Context, id uuid.UUID, progress *models.SyncProgress) error {
	progressJSON := models.JSONB{
		"totalItems":      progress.TotalItems,
		"processedItems":  progress.ProcessedItems,
		"successfulItems": progress.SuccessfulItems,
		"failedItems":     progress.FailedItems,
		"skippedItems":    progress.SkippedItems,
		"notFoundItems":   progress.NotFoundItems,
		"varianceItems":   progress.VarianceItems,
		"percentage":      progress.Percentage,
	}
	return r.db.WithContext(ctx).
		Model(&models.SyncJob{}).
		Where("id = ?", id).
		Update("progress", progressJSON).Error
}

// ListJobs retrieves sync jobs with pagination and filtering
func (r *SyncRepository) ListJobs(ctx context.Context, opts SyncListOptions) ([]models.SyncJob, int64, error) {
	var jobs []models.SyncJob
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SyncJob{})

	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Mode != "" {
		query = query.Where("mode = ?", opts.Mode)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	err := query.Order("created_at DESC").Find(&jobs).Error
	return jobs, total, err
}

// CreateLog creates a sync log entry
func (r *SyncRepository) CreateLog(ctx context.Context, log *models.SyncLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// GetJobLogs retrieves logs for a sync job
func (r *SyncRepository) GetJobLogs(ctx context.Context, jobID uuid.UUID, opts LogListOptions) ([]models.SyncLog, error) {
	var logs []models.SyncLog

	query := r.db.WithContext(ctx).Where("sync_job_id = ?", jobID)
	if opts.Level != "" {
		query = query.Where("level = ?", opts.Level)
	}
	if opts.Store != "" {
		query = query.Where("store = ?", opts.Store)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	err := query.Order("created_at ASC").Find(&logs).Error
	return logs, err
}

// CreateVariance records a price variance for a job
func (r *SyncRepository) CreateVariance(ctx context.Context, variance *models.PriceVariance) error {
	return r.db.WithContext(ctx).Create(variance).Error
}

// GetJobVariances retrieves all price variances recorded for a job
func (r *SyncRepository) GetJobVariances(ctx context.Context, jobID uuid.UUID) ([]models.PriceVariance, error) {
	var variances []models.PriceVariance
	err := r.db.WithContext(ctx).
		Where("sync_job_id = ?", jobID).
		Order("created_at ASC").
		Find(&variances).Error
	return variances, err
}

// GetStats summarizes job history
func (r *SyncRepository) GetStats(ctx context.Context) (*SyncStats, error) {
	stats := &SyncStats{}

	if err := r.db.WithContext(ctx).Model(&models.SyncJob{}).Count(&stats.TotalJobs).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("status = ?", models.SyncStatusRunning).Count(&stats.RunningJobs).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("status = ?", models.SyncStatusCompleted).Count(&stats.CompletedJobs).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("status = ?", models.SyncStatusFailed).Count(&stats.FailedJobs).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.PriceVariance{}).Count(&stats.TotalVariances).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
