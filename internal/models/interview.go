package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// InterviewStatus tracks the negotiation state of an interview request.
type InterviewStatus string

const (
	InterviewPending              InterviewStatus = "pending"
	InterviewAccepted             InterviewStatus = "accepted"
	InterviewAlternativeSuggested InterviewStatus = "alternative_suggested"
)

// LocationType describes how the interview is conducted. The location string
// is a link for video, a callable number for phone and an address for onsite.
type LocationType string

const (
	LocationVideo  LocationType = "video"
	LocationPhone  LocationType = "phone"
	LocationOnsite LocationType = "onsite"
)

// Valid reports whether the location type is one of the supported modes.
func (t LocationType) Valid() bool {
	switch t {
	case LocationVideo, LocationPhone, LocationOnsite:
		return true
	}
	return false
}

// interviewDurations is the fixed set of accepted durations in minutes.
var interviewDurations = map[int]struct{}{
	15: {}, 30: {}, 45: {}, 60: {}, 90: {},
}

// ValidDuration reports whether the duration belongs to the enumerated set.
func ValidDuration(minutes int) bool {
	_, ok := interviewDurations[minutes]
	return ok
}

// MaxTimeSlots caps the number of proposals a school may offer at once.
const MaxTimeSlots = 5

// TimeSlot is a proposed date/time/timezone triple. A slot is either fully
// populated or empty: a date without a time (or vice versa) is invalid.
type TimeSlot struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

// IsZero reports whether neither date nor time was provided.
func (s TimeSlot) IsZero() bool {
	return s.Date == "" && s.Time == ""
}

// Complete reports whether both date and time are present.
func (s TimeSlot) Complete() bool {
	return s.Date != "" && s.Time != ""
}

// When resolves the slot into a concrete instant. The timezone defaults to
// UTC when missing or unrecognised.
func (s TimeSlot) When() (time.Time, error) {
	if !s.Complete() {
		return time.Time{}, fmt.Errorf("slot is incomplete")
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil || s.Timezone == "" {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.Time, loc)
}

// TimeSlots is the ordered list of proposals stored as a JSONB column.
type TimeSlots []TimeSlot

// Value implements driver.Valuer.
func (s TimeSlots) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *TimeSlots) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("unsupported time slots source %T", src)
}

// ValidateSlots enforces the all-or-nothing slot rule: slot 0 must be fully
// populated, trailing slots may be omitted but not half-filled, and at most
// MaxTimeSlots are accepted. The returned list contains only populated slots.
func ValidateSlots(slots []TimeSlot) (TimeSlots, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("at least one time slot is required")
	}
	if len(slots) > MaxTimeSlots {
		return nil, fmt.Errorf("at most %d time slots are allowed", MaxTimeSlots)
	}
	if !slots[0].Complete() {
		return nil, fmt.Errorf("the first time slot must include both date and time")
	}
	valid := make(TimeSlots, 0, len(slots))
	for i, slot := range slots {
		if i > 0 && slot.IsZero() {
			continue
		}
		if !slot.Complete() {
			return nil, fmt.Errorf("time slot %d is partially filled", i+1)
		}
		valid = append(valid, slot)
	}
	return valid, nil
}

// InterviewRequest is the negotiation record attached to an application once
// a school initiates interview scheduling. One per application.
type InterviewRequest struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"applicationId"`
	Duration      int             `json:"duration"`
	LocationType  LocationType    `json:"locationType"`
	Location      string          `json:"location"`
	Message       *string         `json:"message,omitempty"`
	TimeSlots     TimeSlots       `json:"timeSlots"`
	Status        InterviewStatus `json:"status"`

	// SelectedSlot indexes into TimeSlots and is set only when the teacher
	// accepted one of the originally offered slots.
	SelectedSlot *int `json:"selectedSlot,omitempty"`

	// AlternativeSlot is the teacher's counter-proposal, outside TimeSlots.
	AlternativeSlot *TimeSlot `json:"alternativeSlot,omitempty"`

	// AgreedTime is the authoritative agreed interview time regardless of
	// which path produced it (original slot or accepted alternative).
	AgreedTime *TimeSlot `json:"agreedTime,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ActiveAlternative returns the counter-proposal only while it carries
// decision weight. A leftover alternative from a declined round is ignored
// once the request is back to pending.
func (r *InterviewRequest) ActiveAlternative() *TimeSlot {
	if r.Status != InterviewAlternativeSuggested {
		return nil
	}
	return r.AlternativeSlot
}
