package models

import "time"

// UserRole represents the available account types.
type UserRole string

const (
	RoleSchool  UserRole = "SCHOOL"
	RoleTeacher UserRole = "TEACHER"
	RoleAdmin   UserRole = "ADMIN"
)

// User is an authenticated account. Schools and teachers reference their
// profile rows through ActorID.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"fullName"`
	Role         UserRole  `db:"role" json:"role"`
	ActorID      string    `db:"actor_id" json:"actorId"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Pagination describes offset-based paging metadata on list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
