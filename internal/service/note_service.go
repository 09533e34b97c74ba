package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/flight"
)

type noteStore interface {
	ListByApplication(ctx context.Context, applicationID string) ([]models.Note, error)
	Create(ctx context.Context, note *models.Note) error
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NoteService manages the append-only notes ledger. Reads collapse through a
// single-flight fetcher backed by a short-lived cache; writes invalidate it.
type NoteService struct {
	repo     noteStore
	apps     applicationReader
	cache    cacheStore
	cacheTTL time.Duration
	fetcher  *flight.Fetcher
	guard    *flight.Guard
	activity activityStore
	metrics  *MetricsService
	logger   *zap.Logger
}

// NoteServiceOption configures the service.
type NoteServiceOption func(*NoteService)

// WithNoteCache wires the read cache and its TTL.
func WithNoteCache(cache cacheStore, ttl time.Duration) NoteServiceOption {
	return func(s *NoteService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithNoteActivityLog wires the audit store.
func WithNoteActivityLog(store activityStore) NoteServiceOption {
	return func(s *NoteService) { s.activity = store }
}

// WithNoteGuard shares a mutation guard across services.
func WithNoteGuard(g *flight.Guard) NoteServiceOption {
	return func(s *NoteService) {
		if g != nil {
			s.guard = g
		}
	}
}

// WithNoteMetrics wires the Prometheus collectors.
func WithNoteMetrics(m *MetricsService) NoteServiceOption {
	return func(s *NoteService) { s.metrics = m }
}

// NewNoteService constructs the service.
func NewNoteService(repo noteStore, apps applicationReader, logger *zap.Logger, opts ...NoteServiceOption) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NoteService{
		repo:     repo,
		apps:     apps,
		cacheTTL: 2 * time.Minute,
		fetcher:  flight.NewFetcher(),
		guard:    flight.NewGuard(),
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

func noteCacheKey(applicationID string) string {
	return "notes:" + applicationID
}

// List returns an application's notes, newest first. Concurrent callers for
// the same application share one lookup.
func (s *NoteService) List(ctx context.Context, applicationID string, claims *models.JWTClaims) ([]models.Note, error) {
	if _, err := loadAuthorizedApplication(ctx, s.apps, applicationID, claims); err != nil {
		return nil, err
	}

	result, _, err := s.fetcher.Do(ctx, noteCacheKey(applicationID), func(ctx context.Context) (interface{}, error) {
		return s.fetchNotes(ctx, applicationID)
	})
	if err != nil {
		return nil, err
	}
	notes, ok := result.([]models.Note)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInternal, "unexpected note fetch result")
	}
	return notes, nil
}

func (s *NoteService) fetchNotes(ctx context.Context, applicationID string) ([]models.Note, error) {
	key := noteCacheKey(applicationID)
	if s.cache != nil {
		var cached []models.Note
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("note cache read failed", zap.String("application_id", applicationID), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	notes, err := s.repo.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notes")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, notes, s.cacheTTL); err != nil {
			s.logger.Warn("note cache write failed", zap.String("application_id", applicationID), zap.Error(err))
		}
	}
	return notes, nil
}

// Add appends a note to the ledger and invalidates the cached list. Notes are
// never edited or deleted afterwards.
func (s *NoteService) Add(ctx context.Context, applicationID, content string, claims *models.JWTClaims) (*models.Note, error) {
	key := flight.Key(applicationID, "note")
	if !s.guard.Acquire(key) {
		s.metrics.RecordInFlightRejection()
		return nil, appErrors.Clone(appErrors.ErrOperationInFlight, "")
	}
	defer s.guard.Release(key)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "note content is required")
	}

	if _, err := loadAuthorizedApplication(ctx, s.apps, applicationID, claims); err != nil {
		return nil, err
	}

	note := &models.Note{
		ApplicationID: applicationID,
		Content:       content,
		AuthorType:    strings.ToLower(string(claims.Role)),
		AuthorName:    authorName(claims),
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, noteCacheKey(applicationID)); err != nil {
			s.logger.Warn("note cache invalidation failed", zap.String("application_id", applicationID), zap.Error(err))
		}
	}
	if s.activity != nil {
		emitActivityLog(ctx, s.activity, s.logger, claims, models.ActivityNoteAdded, map[string]interface{}{
			"applicationId": applicationID,
		})
	}
	return note, nil
}
