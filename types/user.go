package types

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an account in the system.
// Questions and answers embed a copy of their author taken at creation
// time; later changes to the account are not propagated to those copies.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id"`

	// Username is the display name shown next to posts.
	Username string `json:"username"`

	// Email is the user's email address.
	Email string `json:"email"`

	// Avatar is an optional image reference for the user.
	Avatar string `json:"avatar,omitempty"`

	// Role indicates the user's authorization level.
	Role Role `json:"role"`

	// PasswordHash is only populated when credentials are verified.
	// This field is never exposed in API responses or session snapshots.
	PasswordHash string `json:"-"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at"`
}
