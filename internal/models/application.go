package models

import "time"

// ApplicationStatus captures the lifecycle stage of a job application.
type ApplicationStatus string

const (
	StatusApplied   ApplicationStatus = "APPLIED"
	StatusReviewing ApplicationStatus = "REVIEWING"
	StatusInterview ApplicationStatus = "INTERVIEW"
	StatusDeclined  ApplicationStatus = "DECLINED"
	StatusHired     ApplicationStatus = "HIRED"
)

// statusRank orders stages along the lifecycle. DECLINED and HIRED share the
// terminal rank: an application never moves past either.
var statusRank = map[ApplicationStatus]int{
	StatusApplied:   0,
	StatusReviewing: 1,
	StatusInterview: 2,
	StatusDeclined:  3,
	StatusHired:     3,
}

// transitions enumerates the reachable next states per current state.
// DECLINED is the escape hatch from every non-terminal state.
var transitions = map[ApplicationStatus][]ApplicationStatus{
	StatusApplied:   {StatusReviewing, StatusInterview, StatusDeclined},
	StatusReviewing: {StatusInterview, StatusDeclined},
	StatusInterview: {StatusHired, StatusDeclined},
	StatusDeclined:  {},
	StatusHired:     {},
}

// Valid reports whether the status is a known lifecycle stage.
func (s ApplicationStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transition is permitted.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusDeclined || s == StatusHired
}

// Rank returns the position of the status along the lifecycle ordering.
// Unknown statuses rank below APPLIED.
func (s ApplicationStatus) Rank() int {
	if rank, ok := statusRank[s]; ok {
		return rank
	}
	return -1
}

// CanTransition reports whether moving from one status to another is allowed
// by the lifecycle table.
func CanTransition(from, to ApplicationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Application is a single teacher's submission against one job posting.
type Application struct {
	ID            string            `db:"id" json:"id"`
	JobID         string            `db:"job_id" json:"jobId"`
	SchoolID      string            `db:"school_id" json:"schoolId"`
	TeacherID     string            `db:"teacher_id" json:"teacherId"`
	Status        ApplicationStatus `db:"status" json:"status"`
	CoverLetter   *string           `db:"cover_letter" json:"coverLetter,omitempty"`
	ResumePath    *string           `db:"resume_path" json:"-"`
	PortfolioPath *string           `db:"portfolio_path" json:"-"`
	ApplicantName string            `db:"applicant_name" json:"applicantName"`
	InterviewDate *time.Time        `db:"interview_date" json:"interviewDate,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updatedAt"`

	InterviewRequest *InterviewRequest `db:"-" json:"interviewRequest,omitempty"`
	Notes            []Note            `db:"-" json:"notes,omitempty"`
}

// AppliedAt returns the submission time, falling back to the row creation
// time when the dedicated column was never populated.
func (a *Application) AppliedAt() time.Time {
	return a.CreatedAt
}

// Note is an append-only annotation on an application. Notes are never
// edited or deleted through this engine.
type Note struct {
	ID            string    `db:"id" json:"id"`
	ApplicationID string    `db:"application_id" json:"applicationId"`
	Content       string    `db:"content" json:"content"`
	AuthorType    string    `db:"author_type" json:"authorType"`
	AuthorName    *string   `db:"author_name" json:"authorName,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
