package models

import "time"

// TimelineEvent is a synthesized, displayable history entry. The system keeps
// no event log; these are projected from the application's current fields.
type TimelineEvent struct {
	Action     string            `json:"action"`
	Status     ApplicationStatus `json:"status"`
	OccurredAt time.Time         `json:"occurredAt"`
	Note       string            `json:"note,omitempty"`

	// Approximate marks events whose timestamp was reconstructed from the
	// last write rather than recorded when the stage was entered.
	Approximate bool `json:"approximate,omitempty"`
}
