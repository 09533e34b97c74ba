package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
)

// SubscriptionRepository reads school billing state.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository constructs the repository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetBySchool fetches the subscription row for a school.
func (r *SubscriptionRepository) GetBySchool(ctx context.Context, schoolID string) (*models.Subscription, error) {
	const query = `SELECT school_id, status, current_period_end, updated_at
	FROM school_subscriptions WHERE school_id = $1`
	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, schoolID); err != nil {
		return nil, err
	}
	return &sub, nil
}
