package services

import "errors"

var (
	// ErrNotFound is returned when a question or answer id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyAccepted is returned when a question already has an accepted answer.
	ErrAlreadyAccepted = errors.New("answer already accepted")

	// ErrUnauthenticated is returned when a mutation has no acting user.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidVote is returned for an unknown vote target or direction.
	ErrInvalidVote = errors.New("invalid vote")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrMissingFields      = errors.New("missing required fields")
)
