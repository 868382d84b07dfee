package types

import "time"

// Role is the authorization level assigned to a user. Every user holds
// exactly one role at any time; the set is closed so unknown role names
// fail validation at the edges.
type Role string

const (
	// RoleAdmin grants access to the administrative surface
	// (post management, media uploads).
	RoleAdmin Role = "admin"

	// RoleEditor is reserved for delegated content management.
	RoleEditor Role = "editor"

	// RoleReader is the default role for registered accounts.
	RoleReader Role = "reader"
)

// ValidRole reports whether r names a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleReader:
		return true
	}
	return false
}

// User represents an account in the system.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Role indicates the user's authorization level within the system.
	Role Role `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// PasswordChangedAt is the timestamp of the most recent successful
	// password change. It strictly increases on every change.
	PasswordChangedAt time.Time `json:"-" db:"password_changed_at"`
}

// UserSummary is the public projection of a user returned by the auth
// endpoints. It never carries the password hash.
type UserSummary struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Summary returns the public projection of the user.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
}
