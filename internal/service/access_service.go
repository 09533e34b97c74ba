package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
)

type subscriptionReader interface {
	GetBySchool(ctx context.Context, schoolID string) (*models.Subscription, error)
}

// AccessService gates premium features on subscription state. Teachers are
// never gated. When the billing state cannot be determined the gate stays
// open: a missing row or a lookup failure must not lock a school out.
type AccessService struct {
	repo     subscriptionReader
	cache    cacheStore
	cacheTTL time.Duration
	enforced bool
	metrics  *MetricsService
	logger   *zap.Logger
}

// AccessServiceOption configures the service.
type AccessServiceOption func(*AccessService)

// WithAccessCache wires the subscription lookup cache and its TTL.
func WithAccessCache(cache cacheStore, ttl time.Duration) AccessServiceOption {
	return func(s *AccessService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithAccessMetrics wires the Prometheus collectors.
func WithAccessMetrics(m *MetricsService) AccessServiceOption {
	return func(s *AccessService) { s.metrics = m }
}

// NewAccessService constructs the service. The gate only fires when enforced.
func NewAccessService(repo subscriptionReader, enforced bool, logger *zap.Logger, opts ...AccessServiceOption) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AccessService{
		repo:     repo,
		cacheTTL: 5 * time.Minute,
		enforced: enforced,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// IsBlocked reports whether the caller is locked out of premium features.
func (s *AccessService) IsBlocked(ctx context.Context, claims *models.JWTClaims) bool {
	if !s.enforced || claims == nil {
		return false
	}
	if claims.Role != models.RoleSchool {
		return false
	}

	status, known := s.subscriptionStatus(ctx, claims.ActorID)
	if !known || status == "" {
		return false
	}
	return !strings.EqualFold(status, models.SubscriptionActive)
}

func (s *AccessService) subscriptionStatus(ctx context.Context, schoolID string) (string, bool) {
	key := "subscription:" + schoolID

	if s.cache != nil {
		var cached string
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached, true
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("subscription cache read failed", zap.String("school_id", schoolID), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	sub, err := s.repo.GetBySchool(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.storeStatus(ctx, key, "")
			return "", true
		}
		s.logger.Warn("subscription lookup failed", zap.String("school_id", schoolID), zap.Error(err))
		return "", false
	}

	s.storeStatus(ctx, key, sub.Status)
	return sub.Status, true
}

func (s *AccessService) storeStatus(ctx context.Context, key, status string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, status, s.cacheTTL); err != nil {
		s.logger.Warn("subscription cache write failed", zap.Error(err))
	}
}
