package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
)

// ActivityRepository persists audit rows.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts an activity log row.
func (r *ActivityRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (id, user_id, action, details, ip_address, user_agent, created_at)
	VALUES (:id, :user_id, :action, :details, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}
