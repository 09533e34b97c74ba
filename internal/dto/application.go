package dto

import "github.com/GeorgePierce1984/teachlink-api/internal/models"

// UpdateStatusRequest moves an application to a new lifecycle stage, with an
// optional note appended in the same write. Omitting status appends the note
// alone. InterviewDate supports the legacy direct-scheduling path where an
// application enters INTERVIEW without a negotiation record.
type UpdateStatusRequest struct {
	Status        *models.ApplicationStatus `json:"status,omitempty"`
	Note          string                    `json:"note,omitempty"`
	InterviewDate string                    `json:"interviewDate,omitempty"`
}

// AddNoteRequest appends an annotation to an application.
type AddNoteRequest struct {
	Content string `json:"content" validate:"required"`
}

// NotesResponse wraps the note list the way the clients expect it.
type NotesResponse struct {
	Notes []models.Note `json:"notes"`
}

// NoteResponse wraps a single created note.
type NoteResponse struct {
	Note models.Note `json:"note"`
}
