package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/flight"
)

type stubNoteStore struct {
	mu      sync.Mutex
	notes   map[string][]models.Note
	listHit int
}

func (s *stubNoteStore) ListByApplication(_ context.Context, applicationID string) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listHit++
	return s.notes[applicationID], nil
}

func (s *stubNoteStore) Create(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if note.ID == "" {
		note.ID = "note-1"
	}
	if s.notes == nil {
		s.notes = make(map[string][]models.Note)
	}
	s.notes[note.ApplicationID] = append([]models.Note{*note}, s.notes[note.ApplicationID]...)
	return nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]models.Note
	deletes []string
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	notes, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	out, ok := dest.(*[]models.Note)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*out = notes
	return nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	notes, ok := value.([]models.Note)
	if !ok {
		return nil
	}
	if c.entries == nil {
		c.entries = make(map[string][]models.Note)
	}
	c.entries[key] = notes
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deletes = append(c.deletes, key)
	return nil
}

func newNoteFixture() (*NoteService, *stubNoteStore, *memoryCache) {
	apps := &stubAppStore{apps: map[string]*models.Application{"app-1": seededApp(models.StatusReviewing)}}
	store := &stubNoteStore{notes: map[string][]models.Note{
		"app-1": {{ID: "note-1", ApplicationID: "app-1", Content: "existing"}},
	}}
	cache := &memoryCache{}
	svc := NewNoteService(store, apps, zap.NewNop(), WithNoteCache(cache, time.Minute))
	return svc, store, cache
}

func TestNoteListPopulatesCache(t *testing.T) {
	svc, store, cache := newNoteFixture()

	notes, err := svc.List(context.Background(), "app-1", schoolClaims("school-1"))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, 1, store.listHit)

	// second read is served from the cache
	notes, err = svc.List(context.Background(), "app-1", schoolClaims("school-1"))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, 1, store.listHit)
	assert.NotEmpty(t, cache.entries)
}

func TestNoteAddInvalidatesCache(t *testing.T) {
	svc, store, cache := newNoteFixture()

	_, err := svc.List(context.Background(), "app-1", schoolClaims("school-1"))
	require.NoError(t, err)

	note, err := svc.Add(context.Background(), "app-1", "  follow up scheduled  ", schoolClaims("school-1"))
	require.NoError(t, err)
	assert.Equal(t, "follow up scheduled", note.Content)
	assert.Equal(t, "school", note.AuthorType)
	require.Contains(t, cache.deletes, noteCacheKey("app-1"))

	notes, err := svc.List(context.Background(), "app-1", schoolClaims("school-1"))
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, 2, store.listHit)
}

func TestNoteAddRejectsBlankContent(t *testing.T) {
	svc, _, _ := newNoteFixture()

	_, err := svc.Add(context.Background(), "app-1", "   \n\t ", schoolClaims("school-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestNoteAddGuardRejectsConcurrentWrite(t *testing.T) {
	guard := flight.NewGuard()
	apps := &stubAppStore{apps: map[string]*models.Application{"app-1": seededApp(models.StatusReviewing)}}
	svc := NewNoteService(&stubNoteStore{}, apps, zap.NewNop(), WithNoteGuard(guard))

	require.True(t, guard.Acquire(flight.Key("app-1", "note")))
	defer guard.Release(flight.Key("app-1", "note"))

	_, err := svc.Add(context.Background(), "app-1", "hello", schoolClaims("school-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOperationInFlight.Code, appErrors.FromError(err).Code)
}

func TestNoteListEnforcesOwnership(t *testing.T) {
	svc, _, _ := newNoteFixture()

	_, err := svc.List(context.Background(), "app-1", teacherClaims("teacher-2"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
