package api

import (
	"context"
	"errors"

	"taskman-api/domain"
)

// errMissingTaskFields is raised before any store call when a write payload
// lacks a title or status.
var errMissingTaskFields = errors.New("title and status are required")

// taskInput is the wire shape of task writes. UserID is accepted for
// compatibility with older clients and ignored; the owner always comes from
// the verified identity.
type taskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	UserID      string `json:"user_id"`
}

func (in taskInput) validate() error {
	if in.Title == "" || in.Status == "" {
		return errMissingTaskFields
	}
	return nil
}

// Policy decides, per identity and operation, which task rows are visible
// and mutable, and runs the corresponding store operation under that scope.
// Role is the only authorization axis: admins operate unrestricted, everyone
// else behind an owner predicate. A row excluded by the predicate is
// indistinguishable from a row that does not exist.
type Policy struct {
	store Storage
}

// NewPolicy creates a Policy over the given store.
func NewPolicy(store Storage) Policy {
	return Policy{store: store}
}

func scopeFor(ident Identity) domain.TaskScope {
	if ident.IsAdmin() {
		return domain.AllTasks()
	}
	return domain.OwnedBy(ident.UserID)
}

// List returns every task the identity may see.
func (p Policy) List(ctx context.Context, ident Identity) ([]domain.Task, error) {
	return p.store.ListTasks(ctx, scopeFor(ident))
}

// Get returns a single task in scope.
func (p Policy) Get(ctx context.Context, ident Identity, id uint) (domain.Task, error) {
	return p.store.TaskByID(ctx, scopeFor(ident), id)
}

// Create validates the payload and inserts a task owned by the caller. Any
// owner supplied in the payload is discarded.
func (p Policy) Create(ctx context.Context, ident Identity, in taskInput) (domain.Task, error) {
	if err := in.validate(); err != nil {
		return domain.Task{}, err
	}
	task := domain.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		UserID:      ident.UserID,
	}
	if err := p.store.CreateTask(ctx, &task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// Update replaces title, description and status of a task in scope.
func (p Policy) Update(ctx context.Context, ident Identity, id uint, in taskInput) (domain.Task, error) {
	if err := in.validate(); err != nil {
		return domain.Task{}, err
	}
	upd := domain.TaskUpdate{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
	}
	return p.store.UpdateTask(ctx, scopeFor(ident), id, upd)
}

// Delete removes a task in scope. Deletion is permanent.
func (p Policy) Delete(ctx context.Context, ident Identity, id uint) error {
	return p.store.DeleteTask(ctx, scopeFor(ident), id)
}
