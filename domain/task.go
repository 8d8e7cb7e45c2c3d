package domain

import "github.com/google/uuid"

// Task is a single to-do item owned by exactly one user. The owner is fixed
// at creation and never changes afterwards.
type Task struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	UserID      uuid.UUID `json:"user_id"`
}

// TaskUpdate carries the mutable columns of a task. The owner is deliberately
// not part of it so an update statement can never reassign a task.
type TaskUpdate struct {
	Title       string
	Description string
	Status      string
}

// TaskScope bounds which task rows an operation may see or touch.
// A nil OwnerID means unrestricted.
type TaskScope struct {
	OwnerID *uuid.UUID
}

// OwnedBy returns a scope restricted to tasks of the given user.
func OwnedBy(userID uuid.UUID) TaskScope {
	return TaskScope{OwnerID: &userID}
}

// AllTasks returns an unrestricted scope.
func AllTasks() TaskScope {
	return TaskScope{}
}

// Restricted reports whether the scope carries an owner predicate.
func (s TaskScope) Restricted() bool {
	return s.OwnerID != nil
}
