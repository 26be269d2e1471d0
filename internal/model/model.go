package model

import "time"

// UserRole orders roles hierarchically; higher levels include the
// capabilities of lower ones.
type UserRole string

const (
	RoleAdmin          UserRole = "ADMIN"
	RoleWorkshopLeader UserRole = "WORKSHOP_LEADER"
	RoleParticipant    UserRole = "PARTICIPANT"
)

func (r UserRole) Level() int {
	switch r {
	case RoleAdmin:
		return 100
	case RoleWorkshopLeader:
		return 2
	case RoleParticipant:
		return 1
	}
	return 0
}

// AtLeast reports whether r grants the capabilities of min.
func (r UserRole) AtLeast(min UserRole) bool {
	return r.Level() >= min.Level()
}

// RegistrationStatus is the lifecycle state of a workshop registration.
// Cancellation is a status transition, never a row deletion.
type RegistrationStatus string

const (
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCancelled RegistrationStatus = "cancelled"
)

type User struct {
	ID          int64     `db:"user_id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	Role        UserRole  `db:"role" json:"role"`
	SubjectID   *string   `db:"subject_id" json:"-"`
	AvatarURL   *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedDate time.Time `db:"created_date" json:"created_date"`
}

type Workshop struct {
	ID                    int64     `db:"workshop_id" json:"id"`
	Title                 string    `db:"title" json:"title"`
	Description           string    `db:"description" json:"description"`
	SessionDateTime       time.Time `db:"session_datetime" json:"session_datetime"`
	DurationMin           int       `db:"duration_min" json:"duration_mins"`
	MaxCapacity           int       `db:"max_capacity" json:"capacity"`
	Prerequisite          string    `db:"prerequisite" json:"prerequisite,omitempty"`
	RequiredInstallations string    `db:"required_installations" json:"required_installations,omitempty"`
	Track                 string    `db:"track" json:"track,omitempty"`
}

// WorkshopSummary is a workshop row with its derived remaining capacity.
// Vacant is always computed from max_capacity minus confirmed registrations,
// never stored.
type WorkshopSummary struct {
	Workshop
	Vacant int `db:"vacant" json:"vacant"`
}

type Registration struct {
	ID           int64              `db:"registration_id" json:"id"`
	WorkshopID   int64              `db:"workshop_id" json:"workshop_id"`
	UserID       int64              `db:"user_id" json:"user_id"`
	Status       RegistrationStatus `db:"status" json:"status"`
	RegisteredAt time.Time          `db:"registered_at" json:"registered_at"`
}

type Skill struct {
	ID   int64  `db:"skill_id" json:"id"`
	Name string `db:"name" json:"name"`
}

type UserSkill struct {
	ID      int64 `db:"user_skill_id" json:"id"`
	UserID  int64 `db:"user_id" json:"user_id"`
	SkillID int64 `db:"skill_id" json:"skill_id"`
	Grade   int   `db:"grade" json:"grade"`
}

type WorkshopSkill struct {
	ID         int64 `db:"workshop_skill_id" json:"id"`
	WorkshopID int64 `db:"workshop_id" json:"workshop_id"`
	SkillID    int64 `db:"skill_id" json:"skill_id"`
}
