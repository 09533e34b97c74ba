package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
)

const applicationColumns = `id, job_id, school_id, teacher_id, status, cover_letter, resume_path,
       portfolio_path, applicant_name, interview_date, created_at, updated_at`

// ApplicationRepository persists job applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// GetByID fetches an application by identifier.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1`, applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// ListByJob returns applications for a job posting, newest first.
func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID string, limit, offset int) ([]models.Application, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE job_id = $1 ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		applicationColumns, limit, offset)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, jobID); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// UpdateStatusParams groups the columns touched by a status-changing write.
type UpdateStatusParams struct {
	ID            string
	Status        *models.ApplicationStatus
	InterviewDate *time.Time
	Note          *models.Note
}

// UpdateStatus applies a status change and/or appends a note in one
// transaction, bumping updated_at only when the status actually changed.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, params UpdateStatusParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if params.Status != nil || params.InterviewDate != nil {
		setParts := make([]string, 0, 3)
		args := make([]interface{}, 0, 3)
		if params.Status != nil {
			args = append(args, *params.Status)
			setParts = append(setParts, fmt.Sprintf("status = $%d", len(args)))
			args = append(args, time.Now().UTC())
			setParts = append(setParts, fmt.Sprintf("updated_at = $%d", len(args)))
		}
		if params.InterviewDate != nil {
			args = append(args, *params.InterviewDate)
			setParts = append(setParts, fmt.Sprintf("interview_date = $%d", len(args)))
		}
		args = append(args, params.ID)
		query := fmt.Sprintf("UPDATE applications SET %s WHERE id = $%d", strings.Join(setParts, ", "), len(args))
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update application status: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check status update rows: %w", err)
		}
		if rows == 0 {
			return sql.ErrNoRows
		}
	}

	if params.Note != nil {
		if err := insertNote(ctx, tx, params.Note); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertNote(ctx context.Context, tx *sqlx.Tx, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO application_notes (id, application_id, content, author_type, author_name, created_at)
	VALUES (:id, :application_id, :content, :author_type, :author_name, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("insert application note: %w", err)
	}
	return nil
}
