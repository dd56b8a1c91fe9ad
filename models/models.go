package models

import (
	"time"
	"unicode"
)

// Priority of a change request.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists every priority in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Status of a change request.
type Status string

const (
	StatusPending     Status = "Pending"
	StatusApproved    Status = "Approved"
	StatusNotApproved Status = "Not Approved"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusNotApproved}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusNotApproved:
		return true
	}
	return false
}

// Decided reports whether the status is the outcome of an approval decision.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusNotApproved
}

// Request is a single change request.
type Request struct {
	ID                int        `db:"id" json:"Id"`
	Title             string     `db:"title" json:"Title" validate:"required,min=5,max=200"`
	Description       string     `db:"description" json:"Description" validate:"required,min=10,max=2000"`
	Priority          Priority   `db:"priority" json:"Priority" validate:"required,priority"`
	Status            Status     `db:"status" json:"Status" validate:"required,status"`
	Date              time.Time  `db:"date" json:"Date"`
	AdminApprovalDate *time.Time `db:"admin_approval_date" json:"AdminApprovalDate"`
	AdminReason       *string    `db:"admin_reason" json:"AdminReason" validate:"omitempty,max=1000"`
	SubmittedBy       string     `db:"submitted_by" json:"SubmittedBy" validate:"required,max=100"`
}

// Role is one of the two principal classes.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleEmployee Role = "Employee"
)

// Roles lists every role, in the order the bootstrap creates them.
var Roles = []Role{RoleEmployee, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee:
		return true
	}
	return false
}

// User is an account able to sign in.
type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// PasswordMinLength is the shortest password accepted for new accounts.
const PasswordMinLength = 8

// ValidatePassword enforces the account password policy: at least
// PasswordMinLength characters with a digit, a lowercase letter, an
// uppercase letter and a non-alphanumeric character.
func ValidatePassword(password string) error {
	if len([]rune(password)) < PasswordMinLength {
		return ErrPasswordTooShort
	}
	var digit, lower, upper, other bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r):
			other = true
		}
	}
	if !digit || !lower || !upper || !other {
		return ErrPasswordTooWeak
	}
	return nil
}
