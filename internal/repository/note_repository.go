package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
)

// NoteRepository persists the append-only notes ledger.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs the repository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// ListByApplication returns all notes for an application, newest first.
func (r *NoteRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.Note, error) {
	const query = `SELECT id, application_id, content, author_type, author_name, created_at
	FROM application_notes WHERE application_id = $1 ORDER BY created_at DESC`
	notes := make([]models.Note, 0)
	if err := r.db.SelectContext(ctx, &notes, query, applicationID); err != nil {
		return nil, fmt.Errorf("list application notes: %w", err)
	}
	return notes, nil
}

// Create appends a note. Notes are never updated or deleted.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO application_notes (id, application_id, content, author_type, author_name, created_at)
	VALUES (:id, :application_id, :content, :author_type, :author_name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create application note: %w", err)
	}
	return nil
}
