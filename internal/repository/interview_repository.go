package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
)

// InterviewRepository persists interview negotiation records.
type InterviewRepository struct {
	db *sqlx.DB
}

// NewInterviewRepository constructs the repository.
func NewInterviewRepository(db *sqlx.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

// interviewRow maps the JSONB columns before conversion to the domain model.
type interviewRow struct {
	ID              string          `db:"id"`
	ApplicationID   string          `db:"application_id"`
	Duration        int             `db:"duration"`
	LocationType    string          `db:"location_type"`
	Location        string          `db:"location"`
	Message         *string         `db:"message"`
	TimeSlots       types.JSONText  `db:"time_slots"`
	Status          string          `db:"status"`
	SelectedSlot    *int            `db:"selected_slot"`
	AlternativeSlot *types.JSONText `db:"alternative_slot"`
	AgreedTime      *types.JSONText `db:"agreed_time"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

const interviewColumns = `id, application_id, duration, location_type, location, message,
       time_slots, status, selected_slot, alternative_slot, agreed_time, created_at, updated_at`

func (row *interviewRow) toModel() (*models.InterviewRequest, error) {
	req := &models.InterviewRequest{
		ID:            row.ID,
		ApplicationID: row.ApplicationID,
		Duration:      row.Duration,
		LocationType:  models.LocationType(row.LocationType),
		Location:      row.Location,
		Message:       row.Message,
		Status:        models.InterviewStatus(row.Status),
		SelectedSlot:  row.SelectedSlot,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if err := req.TimeSlots.Scan([]byte(row.TimeSlots)); err != nil {
		return nil, fmt.Errorf("decode time slots: %w", err)
	}
	var err error
	if req.AlternativeSlot, err = decodeSlot(row.AlternativeSlot); err != nil {
		return nil, fmt.Errorf("decode alternative slot: %w", err)
	}
	if req.AgreedTime, err = decodeSlot(row.AgreedTime); err != nil {
		return nil, fmt.Errorf("decode agreed time: %w", err)
	}
	return req, nil
}

func decodeSlot(raw *types.JSONText) (*models.TimeSlot, error) {
	if raw == nil || len(*raw) == 0 || string(*raw) == "null" {
		return nil, nil
	}
	var slot models.TimeSlot
	if err := raw.Unmarshal(&slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

func encodeSlot(slot *models.TimeSlot) (interface{}, error) {
	if slot == nil {
		return nil, nil
	}
	return json.Marshal(slot)
}

// GetByApplication fetches the negotiation record for an application.
func (r *InterviewRepository) GetByApplication(ctx context.Context, applicationID string) (*models.InterviewRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM interview_requests WHERE application_id = $1`, interviewColumns)
	var row interviewRow
	if err := r.db.GetContext(ctx, &row, query, applicationID); err != nil {
		return nil, err
	}
	return row.toModel()
}

// CreateWithTransition inserts the interview request and moves the owning
// application into INTERVIEW in a single transaction: a failure of either
// part leaves both untouched.
func (r *InterviewRepository) CreateWithTransition(ctx context.Context, req *models.InterviewRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	slots, err := req.TimeSlots.Value()
	if err != nil {
		return fmt.Errorf("encode time slots: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin interview create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO interview_requests
	(id, application_id, duration, location_type, location, message, time_slots, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := tx.ExecContext(ctx, insert,
		req.ID, req.ApplicationID, req.Duration, req.LocationType, req.Location,
		req.Message, slots, req.Status, req.CreatedAt, req.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert interview request: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3 AND status IN ($4, $5)`,
		models.StatusInterview, now, req.ApplicationID, models.StatusApplied, models.StatusReviewing,
	)
	if err != nil {
		return fmt.Errorf("transition application to interview: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check interview transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

// UpdateNegotiationParams groups the mutable negotiation columns.
type UpdateNegotiationParams struct {
	ID              string
	Status          models.InterviewStatus
	SelectedSlot    *int
	ClearSelected   bool
	AlternativeSlot *models.TimeSlot
	ClearAlt        bool
	AgreedTime      *models.TimeSlot

	// InterviewDate, when set, mirrors the agreed time onto the owning
	// application row inside the same transaction.
	ApplicationID string
	InterviewDate *time.Time
}

// UpdateNegotiation persists a negotiation step.
func (r *InterviewRepository) UpdateNegotiation(ctx context.Context, params UpdateNegotiationParams) error {
	altPayload, err := encodeSlot(params.AlternativeSlot)
	if err != nil {
		return fmt.Errorf("encode alternative slot: %w", err)
	}
	agreedPayload, err := encodeSlot(params.AgreedTime)
	if err != nil {
		return fmt.Errorf("encode agreed time: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin negotiation update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	query := `UPDATE interview_requests SET status = $1, updated_at = $2`
	args := []interface{}{params.Status, now}

	if params.SelectedSlot != nil {
		args = append(args, *params.SelectedSlot)
		query += fmt.Sprintf(", selected_slot = $%d", len(args))
	} else if params.ClearSelected {
		query += ", selected_slot = NULL"
	}
	if params.AlternativeSlot != nil {
		args = append(args, altPayload)
		query += fmt.Sprintf(", alternative_slot = $%d", len(args))
	} else if params.ClearAlt {
		query += ", alternative_slot = NULL"
	}
	if params.AgreedTime != nil {
		args = append(args, agreedPayload)
		query += fmt.Sprintf(", agreed_time = $%d", len(args))
	}

	args = append(args, params.ID)
	query += fmt.Sprintf(" WHERE id = $%d", len(args))

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update interview negotiation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check negotiation update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if params.InterviewDate != nil && params.ApplicationID != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE applications SET interview_date = $1 WHERE id = $2`,
			*params.InterviewDate, params.ApplicationID,
		); err != nil {
			return fmt.Errorf("mirror interview date: %w", err)
		}
	}

	return tx.Commit()
}
