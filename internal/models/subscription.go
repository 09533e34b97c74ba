package models

import "time"

// SubscriptionStatus values mirror the billing provider's state strings.
// Anything other than "active" blocks premium features for schools.
const SubscriptionActive = "active"

// Subscription records a school's current billing state.
type Subscription struct {
	SchoolID         string     `db:"school_id" json:"schoolId"`
	Status           string     `db:"status" json:"status"`
	CurrentPeriodEnd *time.Time `db:"current_period_end" json:"currentPeriodEnd,omitempty"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}
