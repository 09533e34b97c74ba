package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GeorgePierce1984/teachlink-api/pkg/jobs"
)

// NotificationEvent describes a lifecycle change worth telling a user about.
type NotificationEvent struct {
	Type          string                 `json:"type"`
	ApplicationID string                 `json:"applicationId"`
	RecipientID   string                 `json:"recipientId"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

// NotificationSender delivers a single event to its recipient.
type NotificationSender interface {
	Send(ctx context.Context, event NotificationEvent) error
}

// NotificationSenderFunc allows using plain functions as senders.
type NotificationSenderFunc func(ctx context.Context, event NotificationEvent) error

// Send implements NotificationSender.
func (f NotificationSenderFunc) Send(ctx context.Context, event NotificationEvent) error {
	return f(ctx, event)
}

// NotificationService pushes lifecycle events onto a background queue so the
// request path never waits on delivery.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NotificationQueueConfig tunes the background workers.
type NotificationQueueConfig struct {
	Workers    int
	MaxRetries int
}

// NewNotificationService builds the service around an in-process queue.
func NewNotificationService(sender NotificationSender, cfg NotificationQueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = NotificationSenderFunc(func(ctx context.Context, event NotificationEvent) error {
			logger.Info("notification delivered",
				zap.String("type", event.Type),
				zap.String("application_id", event.ApplicationID),
				zap.String("recipient_id", event.RecipientID))
			return nil
		})
	}

	svc := &NotificationService{logger: logger}
	svc.queue = jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(NotificationEvent)
		if !ok {
			logger.Warn("dropping notification with unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		return sender.Send(ctx, event)
	}, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return svc
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues an event. Failure to enqueue is logged, never returned: a
// missed notification must not fail the write that triggered it.
func (s *NotificationService) Notify(event NotificationEvent) {
	if s == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    event.Type,
		Payload: event,
	}); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", event.Type),
			zap.String("application_id", event.ApplicationID),
			zap.Error(err))
	}
}
