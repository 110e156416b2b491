package domain

import "errors"

var (
	ErrInvalidCode       = errors.New("Invalid code")
	ErrBackend           = errors.New("Backend unavailable")
	ErrNotFound          = errors.New("Not found")
	ErrAlreadyMember     = errors.New("User is already a team member")
	ErrInvalidTransition = errors.New("Invalid commission status transition")
	ErrUnauthenticated   = errors.New("Authentication required")
)
