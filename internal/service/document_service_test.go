package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/storage"
)

type dirStorage struct {
	dir string
}

func (d *dirStorage) Open(filename string) (*os.File, error) {
	return os.Open(filepath.Join(d.dir, filename))
}

func newDocumentFixture(t *testing.T, app *models.Application) (*DocumentService, *dirStorage) {
	t.Helper()
	dir := t.TempDir()
	store := &dirStorage{dir: dir}
	apps := &stubAppStore{apps: map[string]*models.Application{app.ID: app}}
	svc := NewDocumentService(apps, store, zap.NewNop(),
		WithDocumentSigner(storage.NewSignedURLSigner("test-secret", time.Minute)))
	return svc, store
}

func TestDownloadResume(t *testing.T) {
	resume := "resumes/jane.pdf"
	app := seededApp(models.StatusApplied)
	app.ResumePath = &resume

	svc, store := newDocumentFixture(t, app)
	require.NoError(t, os.MkdirAll(filepath.Join(store.dir, "resumes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, resume), []byte("%PDF-1.4"), 0o644))

	doc, err := svc.Download(context.Background(), "app-1", DocumentResume, schoolClaims("school-1"))
	require.NoError(t, err)
	defer doc.Content.Close()

	assert.Equal(t, "jane.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	payload, err := io.ReadAll(doc.Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(payload))
}

func TestDownloadMissingResume(t *testing.T) {
	app := seededApp(models.StatusApplied)
	svc, _ := newDocumentFixture(t, app)

	_, err := svc.Download(context.Background(), "app-1", DocumentResume, schoolClaims("school-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDownloadCoverLetterRendersPDF(t *testing.T) {
	letter := "Dear hiring committee,\n\nI would love to teach at your school.\n\nBest,\nJane"
	app := seededApp(models.StatusApplied)
	app.CoverLetter = &letter

	svc, _ := newDocumentFixture(t, app)
	doc, err := svc.Download(context.Background(), "app-1", DocumentCoverLetter, teacherClaims("teacher-1"))
	require.NoError(t, err)
	defer doc.Content.Close()

	assert.Equal(t, "cover_letter_Jane_Doe.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	payload, err := io.ReadAll(doc.Content)
	require.NoError(t, err)
	assert.True(t, len(payload) > 0)
	assert.Equal(t, "%PDF", string(payload[:4]))
}

func TestDownloadUnknownType(t *testing.T) {
	svc, _ := newDocumentFixture(t, seededApp(models.StatusApplied))

	_, err := svc.Download(context.Background(), "app-1", "transcript", schoolClaims("school-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDownloadEnforcesOwnership(t *testing.T) {
	resume := "jane.pdf"
	app := seededApp(models.StatusApplied)
	app.ResumePath = &resume
	svc, _ := newDocumentFixture(t, app)

	_, err := svc.Download(context.Background(), "app-1", DocumentResume, schoolClaims("school-2"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestIssueAndRedeemSignedLink(t *testing.T) {
	letter := "A short letter."
	app := seededApp(models.StatusApplied)
	app.CoverLetter = &letter
	svc, _ := newDocumentFixture(t, app)

	token, expiresAt, err := svc.IssueLink(context.Background(), "app-1", DocumentCoverLetter, schoolClaims("school-1"))
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	doc, err := svc.Redeem(context.Background(), token)
	require.NoError(t, err)
	defer doc.Content.Close()
	assert.Equal(t, "application/pdf", doc.ContentType)

	_, err = svc.Redeem(context.Background(), token+"x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
