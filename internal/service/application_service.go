package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/GeorgePierce1984/teachlink-api/internal/dto"
	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	"github.com/GeorgePierce1984/teachlink-api/internal/repository"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/flight"
)

type applicationStore interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
	ListByJob(ctx context.Context, jobID string, limit, offset int) ([]models.Application, error)
	UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error
}

type interviewReader interface {
	GetByApplication(ctx context.Context, applicationID string) (*models.InterviewRequest, error)
}

type noteLister interface {
	ListByApplication(ctx context.Context, applicationID string) ([]models.Note, error)
}

type activityStore interface {
	Create(ctx context.Context, log *models.ActivityLog) error
}

type notifier interface {
	Notify(event NotificationEvent)
}

// ApplicationService drives the application lifecycle state machine.
type ApplicationService struct {
	repo       applicationStore
	interviews interviewReader
	notes      noteLister
	activity   activityStore
	notifier   notifier
	guard      *flight.Guard
	metrics    *MetricsService
	logger     *zap.Logger
}

// ApplicationServiceOption configures the service.
type ApplicationServiceOption func(*ApplicationService)

// WithApplicationActivityLog wires the audit store.
func WithApplicationActivityLog(store activityStore) ApplicationServiceOption {
	return func(s *ApplicationService) { s.activity = store }
}

// WithApplicationNotifier wires the notification dispatcher.
func WithApplicationNotifier(n notifier) ApplicationServiceOption {
	return func(s *ApplicationService) { s.notifier = n }
}

// WithApplicationGuard shares a mutation guard across services.
func WithApplicationGuard(g *flight.Guard) ApplicationServiceOption {
	return func(s *ApplicationService) {
		if g != nil {
			s.guard = g
		}
	}
}

// WithApplicationMetrics wires the Prometheus collectors.
func WithApplicationMetrics(m *MetricsService) ApplicationServiceOption {
	return func(s *ApplicationService) { s.metrics = m }
}

// NewApplicationService constructs the service.
func NewApplicationService(repo applicationStore, interviews interviewReader, notes noteLister, logger *zap.Logger, opts ...ApplicationServiceOption) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ApplicationService{
		repo:       repo,
		interviews: interviews,
		notes:      notes,
		guard:      flight.NewGuard(),
		logger:     logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Get loads an application with its negotiation record and notes attached.
func (s *ApplicationService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Application, error) {
	app, err := s.loadOwned(ctx, id, claims)
	if err != nil {
		return nil, err
	}

	if req, err := s.interviews.GetByApplication(ctx, id); err == nil {
		app.InterviewRequest = req
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("failed to load interview request", zap.String("application_id", id), zap.Error(err))
	}

	if notes, err := s.notes.ListByApplication(ctx, id); err == nil {
		app.Notes = notes
	} else {
		s.logger.Warn("failed to load application notes", zap.String("application_id", id), zap.Error(err))
	}

	return app, nil
}

// ListByJob returns a job's applications visible to the caller.
func (s *ApplicationService) ListByJob(ctx context.Context, jobID string, claims *models.JWTClaims, limit, offset int) ([]models.Application, error) {
	if claims.Role == models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only schools can list a job's applications")
	}
	apps, err := s.repo.ListByJob(ctx, jobID, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	if claims.Role == models.RoleAdmin {
		return apps, nil
	}
	visible := apps[:0]
	for _, app := range apps {
		if app.SchoolID == claims.ActorID {
			visible = append(visible, app)
		}
	}
	return visible, nil
}

// UpdateStatus moves an application along the lifecycle and/or appends a note
// in the same write. Terminal stages absorb repeated writes of the same value.
func (s *ApplicationService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, claims *models.JWTClaims) (*models.Application, error) {
	key := flight.Key(id, "status")
	if !s.guard.Acquire(key) {
		s.metrics.RecordInFlightRejection()
		return nil, appErrors.Clone(appErrors.ErrOperationInFlight, "")
	}
	defer s.guard.Release(key)

	if claims.Role == models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the hiring school can update an application")
	}

	app, err := s.loadOwned(ctx, id, claims)
	if err != nil {
		return nil, err
	}

	noteContent := strings.TrimSpace(req.Note)
	if req.Status == nil && noteContent == "" && req.InterviewDate == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}

	params := repository.UpdateStatusParams{ID: id}
	from := app.Status
	var to models.ApplicationStatus
	if req.Status != nil {
		to = *req.Status
		if !to.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", to))
		}
		switch {
		case to == from:
			// repeated write of the current stage is a no-op
		case !models.CanTransition(from, to):
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move from %s to %s", from, to))
		default:
			params.Status = &to
		}
	}

	if req.InterviewDate != "" {
		when, err := parseInterviewDate(req.InterviewDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "interview date must be an ISO date or date-time")
		}
		params.InterviewDate = &when
	}

	if noteContent != "" {
		params.Note = &models.Note{
			ApplicationID: id,
			Content:       noteContent,
			AuthorType:    strings.ToLower(string(claims.Role)),
			AuthorName:    authorName(claims),
		}
	}

	if params.Status == nil && params.InterviewDate == nil && params.Note == nil {
		return app, nil
	}

	if err := s.repo.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application")
	}

	if params.Status != nil {
		s.metrics.RecordTransition(string(from), string(to))
		s.emitActivity(ctx, claims, models.ActivityStatusUpdated, map[string]interface{}{
			"applicationId": id,
			"from":          from,
			"to":            to,
		})
		if s.notifier != nil {
			s.notifier.Notify(NotificationEvent{
				Type:          "application.status_changed",
				ApplicationID: id,
				RecipientID:   app.TeacherID,
				Payload:       map[string]interface{}{"status": to},
			})
		}
		app.Status = to
		app.UpdatedAt = time.Now().UTC()
	}
	if params.Note != nil {
		s.emitActivity(ctx, claims, models.ActivityNoteAdded, map[string]interface{}{
			"applicationId": id,
		})
	}
	if params.InterviewDate != nil {
		app.InterviewDate = params.InterviewDate
	}

	return app, nil
}

func (s *ApplicationService) loadOwned(ctx context.Context, id string, claims *models.JWTClaims) (*models.Application, error) {
	return loadAuthorizedApplication(ctx, s.repo, id, claims)
}

// loadAuthorizedApplication fetches an application and enforces ownership in
// one step. Every read and write path goes through it.
func loadAuthorizedApplication(ctx context.Context, apps applicationReader, id string, claims *models.JWTClaims) (*models.Application, error) {
	app, err := apps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if err := authorizeApplicationAccess(app, claims); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *ApplicationService) emitActivity(ctx context.Context, claims *models.JWTClaims, action string, details map[string]interface{}) {
	if s.activity == nil {
		return
	}
	emitActivityLog(ctx, s.activity, s.logger, claims, action, details)
}

// emitActivityLog records an audit row best-effort: a failed write is logged
// and never fails the triggering operation.
func emitActivityLog(ctx context.Context, store activityStore, logger *zap.Logger, claims *models.JWTClaims, action string, details map[string]interface{}) {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}
	log := &models.ActivityLog{
		Action:  action,
		Details: types.JSONText(payload),
	}
	if claims != nil && claims.UserID != "" {
		userID := claims.UserID
		log.UserID = &userID
	}
	if err := store.Create(ctx, log); err != nil {
		logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}

// authorizeApplicationAccess enforces ownership: schools see their own
// postings' applications, teachers see their own submissions.
func authorizeApplicationAccess(app *models.Application, claims *models.JWTClaims) error {
	if claims == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	switch claims.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleSchool:
		if app.SchoolID == claims.ActorID {
			return nil
		}
	case models.RoleTeacher:
		if app.TeacherID == claims.ActorID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "application does not belong to this account")
}

func authorName(claims *models.JWTClaims) *string {
	if claims == nil || claims.Email == "" {
		return nil
	}
	name := claims.Email
	return &name
}

var interviewDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseInterviewDate(raw string) (time.Time, error) {
	for _, layout := range interviewDateLayouts {
		if when, err := time.Parse(layout, raw); err == nil {
			return when.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date format %q", raw)
}
