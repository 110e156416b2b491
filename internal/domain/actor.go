package domain

import "github.com/google/uuid"

// Actor is the caller of an operation. Services receive it explicitly instead of
// reading a global session.
type Actor struct {
	UserID  *uuid.UUID
	IsAdmin bool
}

// Anonymous is an actor with no signed-in user.
var Anonymous = Actor{}

func (a Actor) Authenticated() bool {
	return a.UserID != nil && *a.UserID != uuid.Nil
}
