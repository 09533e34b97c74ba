package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
)

// Timeline event labels shown to clients.
const (
	TimelineApplied   = "Applied"
	TimelineReviewing = "Status Changed"
	TimelineInterview = "Interview Scheduled"
	TimelineHired     = "Hired"
	TimelineDeclined  = "Declined"
)

// TimelineService reconstructs a displayable history from an application's
// current fields. No event log exists; intermediate stages are inferred from
// the stage ordering and stamped with the last write time.
type TimelineService struct {
	apps   applicationReader
	logger *zap.Logger
}

// NewTimelineService constructs the service.
func NewTimelineService(apps applicationReader, logger *zap.Logger) *TimelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimelineService{apps: apps, logger: logger}
}

// Get loads the application and projects its timeline.
func (s *TimelineService) Get(ctx context.Context, applicationID string, claims *models.JWTClaims) ([]models.TimelineEvent, error) {
	app, err := loadAuthorizedApplication(ctx, s.apps, applicationID, claims)
	if err != nil {
		return nil, err
	}
	return s.Build(app), nil
}

// Build projects the timeline for an already-loaded application. An
// application at a later stage is assumed to have passed through every
// earlier one; inferred entries carry the Approximate flag.
func (s *TimelineService) Build(app *models.Application) []models.TimelineEvent {
	events := []models.TimelineEvent{{
		Action:     TimelineApplied,
		Status:     models.StatusApplied,
		OccurredAt: app.AppliedAt(),
	}}

	rank := app.Status.Rank()
	if rank >= models.StatusReviewing.Rank() {
		events = append(events, models.TimelineEvent{
			Action:      TimelineReviewing,
			Status:      models.StatusReviewing,
			OccurredAt:  app.UpdatedAt,
			Approximate: true,
		})
	}
	if rank >= models.StatusInterview.Rank() {
		event := models.TimelineEvent{
			Action: TimelineInterview,
			Status: models.StatusInterview,
		}
		if app.InterviewDate != nil {
			event.OccurredAt = *app.InterviewDate
		} else {
			event.OccurredAt = app.UpdatedAt
			event.Approximate = true
		}
		events = append(events, event)
	}
	if app.Status.Terminal() {
		action := TimelineDeclined
		if app.Status == models.StatusHired {
			action = TimelineHired
		}
		events = append(events, models.TimelineEvent{
			Action:     action,
			Status:     app.Status,
			OccurredAt: app.UpdatedAt,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
	return events
}
