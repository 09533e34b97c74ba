package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GeorgePierce1984/teachlink-api/internal/dto"
	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	"github.com/GeorgePierce1984/teachlink-api/internal/repository"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/flight"
)

type interviewStore interface {
	GetByApplication(ctx context.Context, applicationID string) (*models.InterviewRequest, error)
	CreateWithTransition(ctx context.Context, req *models.InterviewRequest) error
	UpdateNegotiation(ctx context.Context, params repository.UpdateNegotiationParams) error
}

type applicationReader interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
}

// InterviewService runs the scheduling negotiation between school and teacher.
type InterviewService struct {
	repo     interviewStore
	apps     applicationReader
	activity activityStore
	notifier notifier
	guard    *flight.Guard
	metrics  *MetricsService
	logger   *zap.Logger
}

// InterviewServiceOption configures the service.
type InterviewServiceOption func(*InterviewService)

// WithInterviewActivityLog wires the audit store.
func WithInterviewActivityLog(store activityStore) InterviewServiceOption {
	return func(s *InterviewService) { s.activity = store }
}

// WithInterviewNotifier wires the notification dispatcher.
func WithInterviewNotifier(n notifier) InterviewServiceOption {
	return func(s *InterviewService) { s.notifier = n }
}

// WithInterviewGuard shares a mutation guard across services.
func WithInterviewGuard(g *flight.Guard) InterviewServiceOption {
	return func(s *InterviewService) {
		if g != nil {
			s.guard = g
		}
	}
}

// WithInterviewMetrics wires the Prometheus collectors.
func WithInterviewMetrics(m *MetricsService) InterviewServiceOption {
	return func(s *InterviewService) { s.metrics = m }
}

// NewInterviewService constructs the service.
func NewInterviewService(repo interviewStore, apps applicationReader, logger *zap.Logger, opts ...InterviewServiceOption) *InterviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &InterviewService{
		repo:   repo,
		apps:   apps,
		guard:  flight.NewGuard(),
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// SendInvite creates the interview request for an application. The application
// moves to INTERVIEW as part of the same write; an application that already
// left the APPLIED or REVIEWING stage rejects the invite.
func (s *InterviewService) SendInvite(ctx context.Context, applicationID string, req dto.SendInviteRequest, claims *models.JWTClaims) (*models.InterviewRequest, error) {
	key := flight.Key(applicationID, "interview")
	if !s.guard.Acquire(key) {
		s.metrics.RecordInFlightRejection()
		return nil, appErrors.Clone(appErrors.ErrOperationInFlight, "")
	}
	defer s.guard.Release(key)

	if claims.Role == models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the hiring school can request an interview")
	}

	app, err := s.loadOwned(ctx, applicationID, claims)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByApplication(ctx, applicationID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an interview request was already sent for this application")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing interview request")
	}

	if !models.ValidDuration(req.Duration) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "duration must be one of 15, 30, 45, 60 or 90 minutes")
	}
	if !req.LocationType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown location type %q", req.LocationType))
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "location is required")
	}
	slots, err := models.ValidateSlots(req.TimeSlots)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrIncompleteSlot, err.Error())
	}

	invite := &models.InterviewRequest{
		ApplicationID: applicationID,
		Duration:      req.Duration,
		LocationType:  req.LocationType,
		Location:      location,
		TimeSlots:     slots,
		Status:        models.InterviewPending,
	}
	if message := strings.TrimSpace(req.Message); message != "" {
		invite.Message = &message
	}

	if err := s.repo.CreateWithTransition(ctx, invite); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("an interview cannot be requested while the application is %s", app.Status))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create interview request")
	}

	s.metrics.RecordNegotiation("invite_sent")
	s.emitActivity(ctx, claims, models.ActivityInterviewRequested, map[string]interface{}{
		"applicationId": applicationID,
		"slots":         len(slots),
	})
	if s.notifier != nil {
		s.notifier.Notify(NotificationEvent{
			Type:          "interview.requested",
			ApplicationID: applicationID,
			RecipientID:   app.TeacherID,
		})
	}

	return invite, nil
}

// Respond records the teacher's reply: accept one of the offered slots by
// index, or counter-propose an alternative time.
func (s *InterviewService) Respond(ctx context.Context, applicationID string, req dto.InterviewResponseRequest, claims *models.JWTClaims) (*models.InterviewRequest, error) {
	key := flight.Key(applicationID, "interview")
	if !s.guard.Acquire(key) {
		s.metrics.RecordInFlightRejection()
		return nil, appErrors.Clone(appErrors.ErrOperationInFlight, "")
	}
	defer s.guard.Release(key)

	if claims.Role == models.RoleSchool {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the applying teacher can respond to an interview request")
	}

	app, err := s.loadOwned(ctx, applicationID, claims)
	if err != nil {
		return nil, err
	}

	invite, err := s.loadInvite(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if invite.Status != models.InterviewPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "this interview request was already answered")
	}

	if (req.SelectedSlot == nil) == (req.AlternativeSlot == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "provide either a selected slot or an alternative time, not both")
	}

	now := time.Now().UTC()
	if req.SelectedSlot != nil {
		idx := *req.SelectedSlot
		if idx < 0 || idx >= len(invite.TimeSlots) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("selected slot %d is out of range", idx))
		}
		agreed := invite.TimeSlots[idx]
		when, err := agreed.When()
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "selected slot has an unreadable date")
		}
		if err := s.repo.UpdateNegotiation(ctx, repository.UpdateNegotiationParams{
			ID:            invite.ID,
			Status:        models.InterviewAccepted,
			SelectedSlot:  &idx,
			AgreedTime:    &agreed,
			ApplicationID: applicationID,
			InterviewDate: &when,
		}); err != nil {
			return nil, s.negotiationError(err)
		}
		invite.Status = models.InterviewAccepted
		invite.SelectedSlot = &idx
		invite.AgreedTime = &agreed
		invite.UpdatedAt = now

		s.metrics.RecordNegotiation("slot_accepted")
		s.emitActivity(ctx, claims, models.ActivitySlotAccepted, map[string]interface{}{
			"applicationId": applicationID,
			"slot":          idx,
		})
		s.notifySchool(app, "interview.accepted")
		return invite, nil
	}

	alt := *req.AlternativeSlot
	if !alt.Complete() {
		return nil, appErrors.Clone(appErrors.ErrIncompleteSlot, "")
	}
	if _, err := alt.When(); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "alternative time has an unreadable date")
	}
	if err := s.repo.UpdateNegotiation(ctx, repository.UpdateNegotiationParams{
		ID:              invite.ID,
		Status:          models.InterviewAlternativeSuggested,
		AlternativeSlot: &alt,
	}); err != nil {
		return nil, s.negotiationError(err)
	}
	invite.Status = models.InterviewAlternativeSuggested
	invite.AlternativeSlot = &alt
	invite.UpdatedAt = now

	s.metrics.RecordNegotiation("alternative_suggested")
	s.emitActivity(ctx, claims, models.ActivityAlternativeSuggested, map[string]interface{}{
		"applicationId": applicationID,
	})
	s.notifySchool(app, "interview.alternative_suggested")
	return invite, nil
}

// RespondToAlternative records the school's decision on a counter-proposal.
// Accepting makes the alternative the agreed time with no selected slot;
// declining returns the request to pending so the teacher can pick again.
func (s *InterviewService) RespondToAlternative(ctx context.Context, applicationID string, req dto.AlternativeResponseRequest, claims *models.JWTClaims) (*models.InterviewRequest, error) {
	key := flight.Key(applicationID, "interview")
	if !s.guard.Acquire(key) {
		s.metrics.RecordInFlightRejection()
		return nil, appErrors.Clone(appErrors.ErrOperationInFlight, "")
	}
	defer s.guard.Release(key)

	if claims.Role == models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the hiring school can decide on an alternative time")
	}

	app, err := s.loadOwned(ctx, applicationID, claims)
	if err != nil {
		return nil, err
	}

	invite, err := s.loadInvite(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	alt := invite.ActiveAlternative()
	if alt == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "no alternative time is awaiting a response")
	}

	now := time.Now().UTC()
	switch req.Action {
	case dto.AlternativeAccept:
		when, err := alt.When()
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "alternative time has an unreadable date")
		}
		if err := s.repo.UpdateNegotiation(ctx, repository.UpdateNegotiationParams{
			ID:            invite.ID,
			Status:        models.InterviewAccepted,
			ClearSelected: true,
			AgreedTime:    alt,
			ApplicationID: applicationID,
			InterviewDate: &when,
		}); err != nil {
			return nil, s.negotiationError(err)
		}
		invite.Status = models.InterviewAccepted
		invite.SelectedSlot = nil
		invite.AgreedTime = alt
		invite.UpdatedAt = now
		s.metrics.RecordNegotiation("alternative_accepted")
	case dto.AlternativeDecline:
		if err := s.repo.UpdateNegotiation(ctx, repository.UpdateNegotiationParams{
			ID:       invite.ID,
			Status:   models.InterviewPending,
			ClearAlt: true,
		}); err != nil {
			return nil, s.negotiationError(err)
		}
		invite.Status = models.InterviewPending
		invite.AlternativeSlot = nil
		invite.UpdatedAt = now
		s.metrics.RecordNegotiation("alternative_declined")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be accept or decline")
	}

	s.emitActivity(ctx, claims, models.ActivityAlternativeResponded, map[string]interface{}{
		"applicationId": applicationID,
		"action":        req.Action,
	})
	if s.notifier != nil {
		s.notifier.Notify(NotificationEvent{
			Type:          "interview.alternative_" + string(req.Action) + "ed",
			ApplicationID: applicationID,
			RecipientID:   app.TeacherID,
		})
	}
	return invite, nil
}

func (s *InterviewService) loadOwned(ctx context.Context, applicationID string, claims *models.JWTClaims) (*models.Application, error) {
	return loadAuthorizedApplication(ctx, s.apps, applicationID, claims)
}

func (s *InterviewService) loadInvite(ctx context.Context, applicationID string) (*models.InterviewRequest, error) {
	invite, err := s.repo.GetByApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no interview request for this application")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load interview request")
	}
	return invite, nil
}

func (s *InterviewService) negotiationError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "interview request no longer exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update interview request")
}

func (s *InterviewService) notifySchool(app *models.Application, eventType string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(NotificationEvent{
		Type:          eventType,
		ApplicationID: app.ID,
		RecipientID:   app.SchoolID,
	})
}

func (s *InterviewService) emitActivity(ctx context.Context, claims *models.JWTClaims, action string, details map[string]interface{}) {
	if s.activity == nil {
		return
	}
	emitActivityLog(ctx, s.activity, s.logger, claims, action, details)
}
