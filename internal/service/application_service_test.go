package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GeorgePierce1984/teachlink-api/internal/dto"
	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	"github.com/GeorgePierce1984/teachlink-api/internal/repository"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/flight"
)

type stubAppStore struct {
	apps    map[string]*models.Application
	updates []repository.UpdateStatusParams
}

func (s *stubAppStore) GetByID(_ context.Context, id string) (*models.Application, error) {
	app, ok := s.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *app
	return &clone, nil
}

func (s *stubAppStore) ListByJob(_ context.Context, jobID string, _, _ int) ([]models.Application, error) {
	var out []models.Application
	for _, app := range s.apps {
		if app.JobID == jobID {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (s *stubAppStore) UpdateStatus(_ context.Context, params repository.UpdateStatusParams) error {
	app, ok := s.apps[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	s.updates = append(s.updates, params)
	if params.Status != nil {
		app.Status = *params.Status
	}
	if params.InterviewDate != nil {
		app.InterviewDate = params.InterviewDate
	}
	return nil
}

type stubInterviewReader struct {
	reqs map[string]*models.InterviewRequest
}

func (s *stubInterviewReader) GetByApplication(_ context.Context, applicationID string) (*models.InterviewRequest, error) {
	req, ok := s.reqs[applicationID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

type stubNoteLister struct {
	notes map[string][]models.Note
}

func (s *stubNoteLister) ListByApplication(_ context.Context, applicationID string) ([]models.Note, error) {
	return s.notes[applicationID], nil
}

type stubActivityStore struct {
	logs []*models.ActivityLog
}

func (s *stubActivityStore) Create(_ context.Context, log *models.ActivityLog) error {
	s.logs = append(s.logs, log)
	return nil
}

type stubNotifier struct {
	events []NotificationEvent
}

func (s *stubNotifier) Notify(event NotificationEvent) {
	s.events = append(s.events, event)
}

func schoolClaims(actorID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-" + actorID, Role: models.RoleSchool, ActorID: actorID, Email: "school@example.com"}
}

func teacherClaims(actorID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-" + actorID, Role: models.RoleTeacher, ActorID: actorID, Email: "teacher@example.com"}
}

func seededApp(status models.ApplicationStatus) *models.Application {
	return &models.Application{
		ID:            "app-1",
		JobID:         "job-1",
		SchoolID:      "school-1",
		TeacherID:     "teacher-1",
		Status:        status,
		ApplicantName: "Jane Doe",
	}
}

func newApplicationFixture(status models.ApplicationStatus) (*ApplicationService, *stubAppStore, *stubActivityStore, *stubNotifier) {
	store := &stubAppStore{apps: map[string]*models.Application{"app-1": seededApp(status)}}
	activity := &stubActivityStore{}
	notify := &stubNotifier{}
	svc := NewApplicationService(store, &stubInterviewReader{}, &stubNoteLister{}, zap.NewNop(),
		WithApplicationActivityLog(activity),
		WithApplicationNotifier(notify),
	)
	return svc, store, activity, notify
}

func TestUpdateStatusValidTransition(t *testing.T) {
	svc, store, activity, notify := newApplicationFixture(models.StatusApplied)
	status := models.StatusReviewing

	app, err := svc.UpdateStatus(context.Background(), "app-1", dto.UpdateStatusRequest{Status: &status}, schoolClaims("school-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewing, app.Status)
	require.Len(t, store.updates, 1)
	require.Len(t, activity.logs, 1)
	assert.Equal(t, models.ActivityStatusUpdated, activity.logs[0].Action)
	require.Len(t, notify.events, 1)
	assert.Equal(t, "teacher-1", notify.events[0].RecipientID)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	cases := []struct {
		from, to models.ApplicationStatus
	}{
		{models.StatusApplied, models.StatusHired},
		{models.StatusReviewing, models.StatusApplied},
		{models.StatusReviewing, models.StatusHired},
		{models.StatusDeclined, models.StatusHired},
		{models.StatusHired, models.StatusDeclined},
		{models.StatusInterview, models.StatusReviewing},
	}
	for _, tc := range cases {
		svc, store, _, _ := newApplicationFixture(tc.from)
		to := tc.to
		_, err := svc.UpdateStatus(context.Background(), "app-1", dto.UpdateStatusRequest{Status: &to}, schoolClaims("school-1"))
		require.Error(t, err, "from %s to %s", tc.from, tc.to)
		assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
		assert.Empty(t, store.updates)
	}
}

func TestUpdateStatusTerminalAbsorbsRepeat(t *testing.T) {
	svc, store, _, notify := newApplicationFixture(models.StatusHired)
	status := models.StatusHired

	app, err := svc.UpdateStatus(context.Background(), "app-1", dto.UpdateStatusRequest{Status: &status}, schoolClaims("school-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusHired, app.Status)
	assert.Empty(t, store.updates)
	assert.Empty(t, notify.events)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc, _, _, _ := newApplicationFixture(models.StatusApplied)
	bogus := models.ApplicationStatus("ARCHIVED")

	_, err := svc.UpdateStatus(context.Background(), "app-1", dto.UpdateStatusRequest{Status: &bogus}, schoolClaims("school-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusNoteOnly(t *testing.T) {
	svc, store, activity, _ := newApplicationFixture(models.StatusReviewing)

	app, err := svc.UpdateStatus(context.Background(), "app-1", dto.UpdateStatusRequest{Note: "  solid phone screen  "}, schoolClaims("school-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewing, app.Status)
	require.Len(t, store.updates, 1)
	require.NotNil(t, store.updates[0].Note)
	assert.Equal(t, "solid phone screen", store.updates[0].Note.Content)
	assert.Nil(t, store.updates[0].Status)
	require.Len(t, activity.logs, 1)
	assert.Equal(t, models.ActivityNoteAdded, activity.logs[0].Action)
}

func TestUpdateStatusNothingToUpdate(t *testing.T) {
	svc, _, _, _ := newApplicationFixture(models.StatusApplied)

	_, err := svc.UpdateStatus(context.Background(), "app-1", dto.UpdateStatusRequest{Note: "   "}, schoolClaims("school-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusRejectsTeacher(t *testing.T) {
	svc, _, _, _ := newApplicationFixture(models.StatusApplied)
	status := models.StatusReviewing

	_, err := svc.UpdateStatus(context.Background(), "app-1", dto.UpdateStatusRequest{Status: &status}, teacherClaims("teacher-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusRejectsForeignSchool(t *testing.T) {
	svc, _, _, _ := newApplicationFixture(models.StatusApplied)
	status := models.StatusReviewing

	_, err := svc.UpdateStatus(context.Background(), "app-1", dto.UpdateStatusRequest{Status: &status}, schoolClaims("school-2"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusGuardRejectsConcurrentWrite(t *testing.T) {
	guard := flight.NewGuard()
	store := &stubAppStore{apps: map[string]*models.Application{"app-1": seededApp(models.StatusApplied)}}
	svc := NewApplicationService(store, &stubInterviewReader{}, &stubNoteLister{}, zap.NewNop(),
		WithApplicationGuard(guard))

	require.True(t, guard.Acquire(flight.Key("app-1", "status")))
	defer guard.Release(flight.Key("app-1", "status"))

	status := models.StatusReviewing
	_, err := svc.UpdateStatus(context.Background(), "app-1", dto.UpdateStatusRequest{Status: &status}, schoolClaims("school-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOperationInFlight.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc, _, _, _ := newApplicationFixture(models.StatusApplied)
	status := models.StatusReviewing

	_, err := svc.UpdateStatus(context.Background(), "missing", dto.UpdateStatusRequest{Status: &status}, schoolClaims("school-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGetAttachesInterviewAndNotes(t *testing.T) {
	store := &stubAppStore{apps: map[string]*models.Application{"app-1": seededApp(models.StatusInterview)}}
	interviews := &stubInterviewReader{reqs: map[string]*models.InterviewRequest{
		"app-1": {ID: "int-1", ApplicationID: "app-1", Status: models.InterviewPending},
	}}
	notes := &stubNoteLister{notes: map[string][]models.Note{
		"app-1": {{ID: "note-1", ApplicationID: "app-1", Content: "hi"}},
	}}
	svc := NewApplicationService(store, interviews, notes, zap.NewNop())

	app, err := svc.Get(context.Background(), "app-1", teacherClaims("teacher-1"))
	require.NoError(t, err)
	require.NotNil(t, app.InterviewRequest)
	assert.Equal(t, "int-1", app.InterviewRequest.ID)
	require.Len(t, app.Notes, 1)
}

func TestListByJobFiltersBySchool(t *testing.T) {
	store := &stubAppStore{apps: map[string]*models.Application{
		"app-1": seededApp(models.StatusApplied),
		"app-2": {ID: "app-2", JobID: "job-1", SchoolID: "school-2", TeacherID: "teacher-2", Status: models.StatusApplied},
	}}
	svc := NewApplicationService(store, &stubInterviewReader{}, &stubNoteLister{}, zap.NewNop())

	apps, err := svc.ListByJob(context.Background(), "job-1", schoolClaims("school-1"), 50, 0)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "app-1", apps[0].ID)

	_, err = svc.ListByJob(context.Background(), "job-1", teacherClaims("teacher-1"), 50, 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
