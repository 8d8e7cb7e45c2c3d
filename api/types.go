package api

import (
	"context"

	"taskman-api/domain"
)

// Storage abstracts persistence for handlers. Task operations take an
// explicit scope so the policy layer controls exactly which rows a statement
// may touch.
type Storage interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UserByEmail(ctx context.Context, email string) (domain.User, error)

	ListTasks(ctx context.Context, scope domain.TaskScope) ([]domain.Task, error)
	TaskByID(ctx context.Context, scope domain.TaskScope, id uint) (domain.Task, error)
	CreateTask(ctx context.Context, t *domain.Task) error
	UpdateTask(ctx context.Context, scope domain.TaskScope, id uint, upd domain.TaskUpdate) (domain.Task, error)
	DeleteTask(ctx context.Context, scope domain.TaskScope, id uint) error

	Ping(ctx context.Context) error
}

// TokenService issues and verifies bearer tokens.
type TokenService interface {
	IssueToken(u domain.User) (string, error)
	IdentityFromToken(token string) (Identity, error)
}

// Authenticator is the verification half of TokenService; it is what the
// auth gate needs.
type Authenticator interface {
	IdentityFromToken(token string) (Identity, error)
}
