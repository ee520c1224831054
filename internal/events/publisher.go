// Package events provides NATS event publishing for sync job lifecycle
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

const streamName = "SYNC_EVENTS"

// SyncEventType identifies a job lifecycle event
type SyncEventType string

const (
	SyncJobStarted    SyncEventType = "sync.job.started"
	SyncJobCompleted  SyncEventType = "sync.job.completed"
	SyncJobFailed     SyncEventType = "sync.job.failed"
	SyncJobCancelled  SyncEventType = "sync.job.cancelled"
	SyncVarianceFound SyncEventType = "sync.variance.found"
)

// SyncEvent is the payload published for every job transition
type SyncEvent struct {
	EventType SyncEventType `json:"eventType"`
	JobID     uuid.UUID     `json:"jobId"`
	Mode      string        `json:"mode"`
	Stores    []string      `json:"stores,omitempty"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// SyncEventPublisher publishes sync job events to a JetStream stream
type SyncEventPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

// NewSyncEventPublisher connects to NATS and ensures the sync stream
// exists
func NewSyncEventPublisher(natsURL string, logger *logrus.Logger) (*SyncEventPublisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("NATS URL is required")
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("listing-sync-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &SyncEventPublisher{
		nc:     nc,
		js:     js,
		logger: logger.WithField("component", "sync-events"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.ensureStream(ctx); err != nil {
		p.logger.WithError(err).Warn("Failed to ensure sync stream exists")
	}

	return p, nil
}

func (p *SyncEventPublisher) ensureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"sync.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
	})
	return err
}

// PublishJobEvent publishes a job lifecycle event. Failures are logged,
// not fatal; event delivery never blocks a sync.
func (p *SyncEventPublisher) PublishJobEvent(ctx context.Context, eventType SyncEventType, jobID uuid.UUID, mode string, stores []string, message string) error {
	event := SyncEvent{
		EventType: eventType,
		JobID:     jobID,
		Mode:      mode,
		Stores:    stores,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, string(eventType), data); err != nil {
		p.logger.WithFields(logrus.Fields{
			"eventType": eventType,
			"jobId":     jobID,
		}).WithError(err).Error("Failed to publish sync event")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"eventType": eventType,
		"jobId":     jobID,
	}).Debug("Published sync event")
	return nil
}

// IsConnected returns true if connected to NATS
func (p *SyncEventPublisher) IsConnected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close drains the NATS connection
func (p *SyncEventPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
