package dto

import "github.com/GeorgePierce1984/teachlink-api/internal/models"

// SendInviteRequest creates the interview request for an application and, as
// a side effect, moves the application into INTERVIEW.
type SendInviteRequest struct {
	Duration     int                 `json:"duration" validate:"required"`
	LocationType models.LocationType `json:"locationType" validate:"required"`
	Location     string              `json:"location" validate:"required"`
	Message      string              `json:"message,omitempty"`
	TimeSlots    []models.TimeSlot   `json:"timeSlots" validate:"required,min=1,max=5"`
}

// InterviewResponseRequest is the teacher's reply: either accept one of the
// offered slots by index, or counter-propose an alternative time. Exactly one
// of the two fields must be set.
type InterviewResponseRequest struct {
	SelectedSlot    *int             `json:"selectedSlot,omitempty"`
	AlternativeSlot *models.TimeSlot `json:"alternativeSlot,omitempty"`
}

// AlternativeResponseAction is the school's decision on a counter-proposal.
type AlternativeResponseAction string

const (
	AlternativeAccept  AlternativeResponseAction = "accept"
	AlternativeDecline AlternativeResponseAction = "decline"
)

// AlternativeResponseRequest carries the school's accept/decline decision.
type AlternativeResponseRequest struct {
	Action AlternativeResponseAction `json:"action" validate:"required"`
}
