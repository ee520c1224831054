package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"listing-sync-service/internal/clients/reverb"
	"listing-sync-service/internal/config"
	"listing-sync-service/internal/events"
	"listing-sync-service/internal/models"
	"listing-sync-service/internal/repository"
)

// ListingClient is the marketplace surface the update service needs.
// Satisfied by *reverb.Client.
type ListingClient interface {
	GetListingBySKU(ctx context.Context, sku string) (*reverb.Listing, error)
	UpdateListing(ctx context.Context, listingID string, update reverb.ListingUpdate) error
	TestConnection(ctx context.Context) error
}

// ClientFactory builds a marketplace client for a store token
type ClientFactory func(token string) ListingClient

// UpdateService runs multi-store listing update jobs
type UpdateService struct {
	syncRepo   repository.SyncRepositoryInterface
	stores     []models.Store
	newClient  ClientFactory
	publisher  *events.SyncEventPublisher
	config     *config.Config
	logger     *logrus.Logger
	activeJobs map[uuid.UUID]context.CancelFunc
	mu         sync.RWMutex
}

// NewUpdateService creates a new update service
func NewUpdateService(
	syncRepo repository.SyncRepositoryInterface,
	stores []models.Store,
	cfg *config.Config,
	logger *logrus.Logger,
) *UpdateService {
	return &UpdateService{
		syncRepo: syncRepo,
		stores:   stores,
		newClient: func(token string) ListingClient {
			return reverb.NewClient(token)
		},
		config:     cfg,
		logger:     logger,
		activeJobs: make(map[uuid.UUID]context.CancelFunc),
	}
}

// SetClientFactory overrides how per-store clients are built
func (s *UpdateService) SetClientFactory(factory ClientFactory) {
	s.newClient = factory
}

// SetEventPublisher attaches a job lifecycle event publisher
func (s *UpdateService) SetEventPublisher(publisher *events.SyncEventPublisher) {
	s.publisher = publisher
}

// Stores returns the configured store list
func (s *UpdateService) Stores() []models.Store {
	return s.stores
}

// TestStore runs a connectivity smoke test against one store's account
func (s *UpdateService) TestStore(ctx context.Context, code string) error {
	for _, store := range s.stores {
		if store.Code == code {
			if !store.HasToken() {
				return fmt.Errorf("store %s has no API token configured", code)
			}
			return s.newClient(store.APIToken).TestConnection(ctx)
		}
	}
	return fmt.Errorf("unknown store: %s", code)
}

// StartSyncRequest contains the data for starting an update job
type StartSyncRequest struct {
	Mode           models.SyncMode    `json:"mode"`
	Filename       string             `json:"filename,omitempty"`
	Rows           []models.UpdateRow `json:"rows"`
	IdempotencyKey string             `json:"idempotencyKey,omitempty"`
	TriggeredBy    models.TriggerType `json:"triggeredBy,omitempty"`
	CreatedBy      string             `json:"createdBy,omitempty"`
}

// StartSync creates a job and runs it in the background
func (s *UpdateService) StartSync(ctx context.Context, req *StartSyncRequest) (*models.SyncJob, error) {
	switch req.Mode {
	case models.SyncModeInventory, models.SyncModePriceAndInventory, models.SyncModePriceVariance:
	default:
		return nil, fmt.Errorf("unsupported sync mode: %s", req.Mode)
	}
	if len(req.Rows) == 0 {
		return nil, fmt.Errorf("no rows to process")
	}

	if req.IdempotencyKey != "" {
		existingJob, err := s.syncRepo.GetJobByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil && existingJob != nil {
			return existingJob, nil
		}
	}

	grouped, unknown := s.groupByStore(req.Rows)
	if len(grouped) == 0 {
		return nil, fmt.Errorf("no rows matched a configured store")
	}

	var storeCodes []string
	for _, store := range s.stores {
		if len(grouped[store.Code]) > 0 {
			storeCodes = append(storeCodes, store.Code)
		}
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = models.TriggerManual
	}
	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = fmt.Sprintf("%s-%d", req.Mode, time.Now().UnixNano())
	}

	now := time.Now()
	job := &models.SyncJob{
		ID:             uuid.New(),
		Mode:           req.Mode,
		Status:         models.SyncStatusRunning,
		Filename:       req.Filename,
		Stores:         models.JSONB{"codes": storeCodes},
		IdempotencyKey: idempotencyKey,
		StartedAt:      &now,
		TriggeredBy:    triggeredBy,
		CreatedBy:      req.CreatedBy,
	}
	job.SetProgress(&models.SyncProgress{TotalItems: len(req.Rows)})

	if err := s.syncRepo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if len(unknown) > 0 {
		s.logEvent(ctx, job.ID, models.LogLevelWarn, "", "",
			fmt.Sprintf("%d rows skipped: store not recognized", len(unknown)),
			models.JSONB{"rows": len(unknown)})
	}

	jobCtx, cancel := context.WithTimeout(context.Background(), s.config.SyncTimeout)
	s.mu.Lock()
	s.activeJobs[job.ID] = cancel
	s.mu.Unlock()

	go s.runJob(jobCtx, job, grouped, len(unknown))

	return job, nil
}

// GetJob retrieves a sync job by ID
func (s *UpdateService) GetJob(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	return s.syncRepo.GetJobByID(ctx, id)
}

// ListJobs lists sync jobs
func (s *UpdateService) ListJobs(ctx context.Context, opts repository.SyncListOptions) ([]models.SyncJob, int64, error) {
	return s.syncRepo.ListJobs(ctx, opts)
}

// GetJobLogs retrieves logs for a sync job
func (s *UpdateService) GetJobLogs(ctx context.Context, jobID uuid.UUID, opts repository.LogListOptions) ([]models.SyncLog, error) {
	if opts.Limit == 0 {
		opts.Limit = 100
	}
	return s.syncRepo.GetJobLogs(ctx, jobID, opts)
}

// GetJobVariances retrieves the price variances recorded for a job
func (s *UpdateService) GetJobVariances(ctx context.Context, jobID uuid.UUID) ([]models.PriceVariance, error) {
	return s.syncRepo.GetJobVariances(ctx, jobID)
}

// GetStats summarizes job history
func (s *UpdateService) GetStats(ctx context.Context) (*repository.SyncStats, error) {
	return s.syncRepo.GetStats(ctx)
}

// CancelJob cancels a running job
func (s *UpdateService) CancelJob(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	cancel, exists := s.activeJobs[id]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("job not found or not running")
	}

	cancel()
	return s.syncRepo.UpdateJobStatus(ctx, id, models.SyncStatusCancelled, "Cancelled by user")
}

// groupByStore buckets rows per configured store code. Rows whose store
// name matches nothing land in the unknown slice.
func (s *UpdateService) groupByStore(rows []models.UpdateRow) (map[string][]models.UpdateRow, []models.UpdateRow) {
	codes := make([]string, len(s.stores))
	for i, store := range s.stores {
		codes[i] = store.Code
	}

	grouped := make(map[string][]models.UpdateRow)
	var unknown []models.UpdateRow

	for _, row := range rows {
		code := models.NormalizeStoreName(row.Store, codes)
		if code == "" {
			unknown = append(unknown, row)
			continue
		}
		grouped[code] = append(grouped[code], row)
	}

	return grouped, unknown
}

func (s *UpdateService) runJob(ctx context.Context, job *models.SyncJob, grouped map[string][]models.UpdateRow, skippedUnknown int) {
	defer func() {
		s.mu.Lock()
		delete(s.activeJobs, job.ID)
		s.mu.Unlock()
	}()

	storeCodes := make([]string, 0, len(grouped))
	for _, store := range s.stores {
		if len(grouped[store.Code]) > 0 {
			storeCodes = append(storeCodes, store.Code)
		}
	}

	s.publishEvent(events.SyncJobStarted, job, storeCodes, "")
	s.logEvent(ctx, job.ID, models.LogLevelInfo, "", "", "Update job started", models.JSONB{
		"mode":   string(job.Mode),
		"stores": storeCodes,
	})

	progress := &models.SyncProgress{
		TotalItems:   job.GetProgress().TotalItems,
		SkippedItems: skippedUnknown,
	}
	progress.ProcessedItems = skippedUnknown

	for _, store := range s.stores {
		rows := grouped[store.Code]
		if len(rows) == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			s.finishCancelled(ctx, job)
			return
		default:
		}

		if !store.HasToken() {
			progress.SkippedItems += len(rows)
			progress.ProcessedItems += len(rows)
			s.logEvent(ctx, job.ID, models.LogLevelWarn, store.Code, "",
				"Store skipped: no API token configured", models.JSONB{"rows": len(rows)})
			continue
		}

		client := s.newClient(store.APIToken)
		storeVariances := s.processStore(ctx, job, store.Code, client, rows, progress)
		if ctx.Err() != nil {
			s.finishCancelled(ctx, job)
			return
		}

		if storeVariances > 0 {
			s.logEvent(ctx, job.ID, models.LogLevelInfo, store.Code, "",
				fmt.Sprintf("Store completed with %d price variances flagged for review", storeVariances), nil)
		}
		_ = s.syncRepo.UpdateJobProgress(ctx, job.ID, progress)
	}

	_ = s.syncRepo.UpdateJobProgress(context.Background(), job.ID, progress)
	_ = s.syncRepo.UpdateJobStatus(context.Background(), job.ID, models.SyncStatusCompleted, "")
	s.logEvent(context.Background(), job.ID, models.LogLevelInfo, "", "", "Update job completed", models.JSONB{
		"successful": progress.SuccessfulItems,
		"failed":     progress.FailedItems,
		"skipped":    progress.SkippedItems,
		"notFound":   progress.NotFoundItems,
		"variances":  progress.VarianceItems,
	})
	s.publishEvent(events.SyncJobCompleted, job, storeCodes, "")
}

// processStore runs every row for one store and returns how many price
// variances it recorded
func (s *UpdateService) processStore(ctx context.Context, job *models.SyncJob, storeCode string, client ListingClient, rows []models.UpdateRow, progress *models.SyncProgress) int {
	variances := 0

	for _, row := range rows {
		select {
		case <-ctx.Done():
			return variances
		default:
		}

		outcome, err := s.processRow(ctx, job, storeCode, client, row)
		switch {
		case err != nil:
			progress.FailedItems++
			s.logEvent(ctx, job.ID, models.LogLevelError, storeCode, row.SKU, err.Error(), nil)
		case outcome == rowUpdated:
			progress.SuccessfulItems++
		case outcome == rowNotFound:
			progress.NotFoundItems++
			progress.SkippedItems++
		case outcome == rowSkipped:
			progress.SkippedItems++
		case outcome == rowVariance:
			progress.SuccessfulItems++
			progress.VarianceItems++
			variances++
		}
		progress.ProcessedItems++
		if progress.TotalItems > 0 {
			progress.Percentage = float64(progress.ProcessedItems) / float64(progress.TotalItems) * 100
		}

		if progress.ProcessedItems%10 == 0 {
			_ = s.syncRepo.UpdateJobProgress(ctx, job.ID, progress)
		}
	}

	return variances
}

// rowOutcome classifies what processRow did with one row
type rowOutcome int

const (
	rowUpdated rowOutcome = iota
	rowNotFound
	rowSkipped
	rowVariance
)

func (s *UpdateService) processRow(ctx context.Context, job *models.SyncJob, storeCode string, client ListingClient, row models.UpdateRow) (rowOutcome, error) {
	listing, err := client.GetListingBySKU(ctx, row.SKU)
	if err != nil {
		if errors.Is(err, reverb.ErrListingNotFound) {
			s.logEvent(ctx, job.ID, models.LogLevelWarn, storeCode, row.SKU, "Listing not found", nil)
			return rowNotFound, nil
		}
		return rowSkipped, fmt.Errorf("lookup failed: %w", err)
	}

	update := reverb.ListingUpdate{}
	writeInventory := job.Mode == models.SyncModeInventory || job.Mode == models.SyncModePriceAndInventory
	// A missing or zero posted price means the sheet carries no price for
	// the row; never push 0.00 to a live listing.
	writePrice := row.PostedPrice != nil && *row.PostedPrice > 0 &&
		(job.Mode == models.SyncModePriceAndInventory || job.Mode == models.SyncModePriceVariance)

	if writeInventory {
		qty := row.Quantity()
		update.Inventory = &qty
	}

	var diff float64
	if writePrice {
		diff = *row.PostedPrice - listing.Price.AmountFloat()
		update.Price = &reverb.Price{
			Amount:   strconv.FormatFloat(*row.PostedPrice, 'f', 2, 64),
			Currency: "USD",
		}
	}

	if update.Inventory == nil && update.Price == nil {
		return rowSkipped, nil
	}

	if err := client.UpdateListing(ctx, listing.ID.String(), update); err != nil {
		return rowSkipped, fmt.Errorf("update failed: %w", err)
	}

	// Variances are recorded only for updates that actually landed, so
	// the review sheet never lists a price that was not pushed.
	outcome := rowUpdated
	if writePrice && math.Abs(diff) >= s.config.ReviewThreshold {
		posted := *row.PostedPrice
		live := listing.Price.AmountFloat()
		variance := &models.PriceVariance{
			ID:          uuid.New(),
			SyncJobID:   job.ID,
			Store:       storeCode,
			SKU:         row.SKU,
			ListingID:   listing.ID.String(),
			PostedPrice: posted,
			ReverbPrice: live,
			Difference:  diff,
		}
		if err := s.syncRepo.CreateVariance(ctx, variance); err != nil {
			s.logEvent(ctx, job.ID, models.LogLevelError, storeCode, row.SKU,
				"Failed to record price variance", models.JSONB{"error": err.Error()})
		} else {
			outcome = rowVariance
			s.publishEvent(events.SyncVarianceFound, job, []string{storeCode},
				fmt.Sprintf("%s: posted %.2f vs live %.2f", row.SKU, posted, live))
		}
	}

	if update.Inventory != nil {
		s.validateInventory(ctx, job, storeCode, client, row.SKU, *update.Inventory)
	}

	return outcome, nil
}

// validateInventory re-reads the listing until the written quantity is
// visible or the retry budget is spent. Mismatches are logged on the
// job, never fatal.
func (s *UpdateService) validateInventory(ctx context.Context, job *models.SyncJob, storeCode string, client ListingClient, sku string, expected int) {
	for attempt := 1; attempt <= s.config.ValidationRetries; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.ValidationDelay):
		}

		listing, err := client.GetListingBySKU(ctx, sku)
		if err != nil {
			continue
		}
		if listing.Quantity() == expected {
			return
		}
	}

	s.logEvent(ctx, job.ID, models.LogLevelWarn, storeCode, sku,
		"Post-update validation failed: inventory does not match", models.JSONB{
			"expected": expected,
		})
}

// finishCancelled records the terminal state for a job whose context
// ended early. A deadline hit is a failure; everything else is a user
// cancellation.
func (s *UpdateService) finishCancelled(ctx context.Context, job *models.SyncJob) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.failJob(job, "Job timed out")
		return
	}
	bg := context.Background()
	_ = s.syncRepo.UpdateJobStatus(bg, job.ID, models.SyncStatusCancelled, "Cancelled")
	s.logEvent(bg, job.ID, models.LogLevelInfo, "", "", "Update job cancelled", nil)
	s.publishEvent(events.SyncJobCancelled, job, nil, "")
}

func (s *UpdateService) failJob(job *models.SyncJob, message string) {
	ctx := context.Background()
	_ = s.syncRepo.UpdateJobStatus(ctx, job.ID, models.SyncStatusFailed, message)
	s.logEvent(ctx, job.ID, models.LogLevelError, "", "", message, nil)
	s.publishEvent(events.SyncJobFailed, job, nil, message)
}

func (s *UpdateService) logEvent(ctx context.Context, jobID uuid.UUID, level models.LogLevel, store, sku, message string, data models.JSONB) {
	entry := &models.SyncLog{
		ID:        uuid.New(),
		SyncJobID: jobID,
		Level:     level,
		Store:     store,
		SKU:       sku,
		Message:   message,
		Data:      data,
	}
	if err := s.syncRepo.CreateLog(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("jobId", jobID).Warn("Failed to persist sync log")
	}
}

func (s *UpdateService) publishEvent(eventType events.SyncEventType, job *models.SyncJob, stores []string, message string) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.publisher.PublishJobEvent(ctx, eventType, job.ID, string(job.Mode), stores, message)
}
