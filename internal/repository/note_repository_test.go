package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
)

func TestNoteRepositoryListByApplication(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "application_id", "content", "author_type", "author_name", "created_at"}).
		AddRow("note-2", "app-1", "Second note", "school", "Springfield High", now).
		AddRow("note-1", "app-1", "First note", "school", "Springfield High", now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, application_id, content")).
		WithArgs("app-1").
		WillReturnRows(rows)

	notes, err := repo.ListByApplication(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Equal(t, "note-2", notes[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryListEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)
	rows := sqlmock.NewRows([]string{"id", "application_id", "content", "author_type", "author_name", "created_at"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, application_id, content")).
		WithArgs("app-1").
		WillReturnRows(rows)

	notes, err := repo.ListByApplication(context.Background(), "app-1")
	require.NoError(t, err)
	require.NotNil(t, notes)
	require.Empty(t, notes)
}

func TestNoteRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNoteRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO application_notes")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	note := &models.Note{
		ApplicationID: "app-1",
		Content:       "Great references",
		AuthorType:    "school",
	}
	require.NoError(t, repo.Create(context.Background(), note))
	require.NotEmpty(t, note.ID)
	require.False(t, note.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
