package domain

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the given lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when registration collides with an
	// existing account.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrTaskNotFound is returned when a task is absent or outside the
	// caller's scope. The two cases are indistinguishable on purpose.
	ErrTaskNotFound = errors.New("task not found")
)
