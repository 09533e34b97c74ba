package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Activity actions recorded by the lifecycle engine.
const (
	ActivityStatusUpdated        = "APPLICATION_STATUS_UPDATED"
	ActivityNoteAdded            = "APPLICATION_NOTE_ADDED"
	ActivityInterviewRequested   = "INTERVIEW_REQUEST_CREATED"
	ActivitySlotAccepted         = "INTERVIEW_SLOT_ACCEPTED"
	ActivityAlternativeSuggested = "INTERVIEW_ALTERNATIVE_SUGGESTED"
	ActivityAlternativeResponded = "INTERVIEW_ALTERNATIVE_RESPONDED"
	ActivityDocumentDownloaded   = "APPLICATION_DOCUMENT_DOWNLOADED"
)

// ActivityLog is an audit row describing a user-visible action.
type ActivityLog struct {
	ID        string         `db:"id" json:"id"`
	UserID    *string        `db:"user_id" json:"userId,omitempty"`
	Action    string         `db:"action" json:"action"`
	Details   types.JSONText `db:"details" json:"details,omitempty"`
	IPAddress string         `db:"ip_address" json:"ipAddress"`
	UserAgent string         `db:"user_agent" json:"userAgent"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}
