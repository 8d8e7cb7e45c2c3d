package api

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"taskman-api/domain"
)

// scopeRecorder captures the scope and payload each store call receives.
type scopeRecorder struct {
	lastScope   domain.TaskScope
	lastUpdate  domain.TaskUpdate
	createdTask *domain.Task
	calls       int
}

func (r *scopeRecorder) CreateUser(context.Context, *domain.User) error { return nil }

func (r *scopeRecorder) UserByEmail(context.Context, string) (domain.User, error) {
	return domain.User{}, domain.ErrUserNotFound
}

func (r *scopeRecorder) ListTasks(_ context.Context, scope domain.TaskScope) ([]domain.Task, error) {
	r.calls++
	r.lastScope = scope
	return nil, nil
}

func (r *scopeRecorder) TaskByID(_ context.Context, scope domain.TaskScope, _ uint) (domain.Task, error) {
	r.calls++
	r.lastScope = scope
	return domain.Task{}, nil
}

func (r *scopeRecorder) CreateTask(_ context.Context, t *domain.Task) error {
	r.calls++
	r.createdTask = t
	t.ID = 1
	return nil
}

func (r *scopeRecorder) UpdateTask(_ context.Context, scope domain.TaskScope, _ uint, upd domain.TaskUpdate) (domain.Task, error) {
	r.calls++
	r.lastScope = scope
	r.lastUpdate = upd
	return domain.Task{}, nil
}

func (r *scopeRecorder) DeleteTask(_ context.Context, scope domain.TaskScope, _ uint) error {
	r.calls++
	r.lastScope = scope
	return nil
}

func (r *scopeRecorder) Ping(context.Context) error { return nil }

func adminIdentity() Identity {
	return Identity{UserID: uuid.New(), Username: "root", Role: domain.RoleAdmin}
}

func userIdentity() Identity {
	return Identity{UserID: uuid.New(), Username: "al", Role: domain.RoleUser}
}

func TestListScopePerRole(t *testing.T) {
	store := &scopeRecorder{}
	policy := NewPolicy(store)

	if _, err := policy.List(context.Background(), adminIdentity()); err != nil {
		t.Fatalf("List: %v", err)
	}
	if store.lastScope.Restricted() {
		t.Fatal("admin list must be unrestricted")
	}

	ident := userIdentity()
	if _, err := policy.List(context.Background(), ident); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !store.lastScope.Restricted() || *store.lastScope.OwnerID != ident.UserID {
		t.Fatalf("expected scope restricted to caller, got %#v", store.lastScope)
	}
}

func TestCreateForcesOwner(t *testing.T) {
	store := &scopeRecorder{}
	policy := NewPolicy(store)
	ident := userIdentity()

	in := taskInput{Title: "t1", Status: "open", UserID: uuid.NewString()}
	task, err := policy.Create(context.Background(), ident, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.UserID != ident.UserID {
		t.Fatalf("expected owner %v, got %v", ident.UserID, task.UserID)
	}
	if store.createdTask.UserID != ident.UserID {
		t.Fatalf("stored owner %v does not match caller %v", store.createdTask.UserID, ident.UserID)
	}
}

func TestCreateValidationPrecedesStore(t *testing.T) {
	tests := []struct {
		name string
		in   taskInput
	}{
		{name: "noTitle", in: taskInput{Status: "open"}},
		{name: "noStatus", in: taskInput{Title: "t1"}},
		{name: "empty", in: taskInput{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &scopeRecorder{}
			policy := NewPolicy(store)
			if _, err := policy.Create(context.Background(), userIdentity(), tt.in); err != errMissingTaskFields {
				t.Fatalf("expected errMissingTaskFields, got %v", err)
			}
			if store.calls != 0 {
				t.Fatal("store must not be touched on validation failure")
			}
		})
	}
}

func TestUpdateScopeAndFields(t *testing.T) {
	store := &scopeRecorder{}
	policy := NewPolicy(store)
	ident := userIdentity()

	in := taskInput{Title: "t2", Description: "d", Status: "done"}
	if _, err := policy.Update(context.Background(), ident, 7, in); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !store.lastScope.Restricted() || *store.lastScope.OwnerID != ident.UserID {
		t.Fatalf("expected owner scope, got %#v", store.lastScope)
	}
	want := domain.TaskUpdate{Title: "t2", Description: "d", Status: "done"}
	if store.lastUpdate != want {
		t.Fatalf("unexpected update payload: %#v", store.lastUpdate)
	}
}

func TestUpdateValidationPrecedesStore(t *testing.T) {
	store := &scopeRecorder{}
	policy := NewPolicy(store)
	if _, err := policy.Update(context.Background(), adminIdentity(), 1, taskInput{Title: "t"}); err != errMissingTaskFields {
		t.Fatalf("expected errMissingTaskFields, got %v", err)
	}
	if store.calls != 0 {
		t.Fatal("store must not be touched on validation failure")
	}
}

func TestDeleteScopePerRole(t *testing.T) {
	store := &scopeRecorder{}
	policy := NewPolicy(store)

	if err := policy.Delete(context.Background(), adminIdentity(), 3); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.lastScope.Restricted() {
		t.Fatal("admin delete must be unrestricted")
	}

	ident := userIdentity()
	if err := policy.Delete(context.Background(), ident, 3); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !store.lastScope.Restricted() || *store.lastScope.OwnerID != ident.UserID {
		t.Fatalf("expected owner scope, got %#v", store.lastScope)
	}
}
