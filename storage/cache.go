package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"taskman-api/domain"
)

type backend interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	ListTasks(ctx context.Context, scope domain.TaskScope) ([]domain.Task, error)
	TaskByID(ctx context.Context, scope domain.TaskScope, id uint) (domain.Task, error)
	CreateTask(ctx context.Context, t *domain.Task) error
	UpdateTask(ctx context.Context, scope domain.TaskScope, id uint, upd domain.TaskUpdate) (domain.Task, error)
	DeleteTask(ctx context.Context, scope domain.TaskScope, id uint) error
	Ping(ctx context.Context) error
}

// Cache wraps a store with Redis-backed caching of task lists. Every
// successful write evicts the owner's list and the unrestricted list before
// returning, so readers never observe a stale row set after their own write.
// User operations and single-task reads pass through.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) CreateUser(ctx context.Context, u *domain.User) error {
	return c.base.CreateUser(ctx, u)
}

func (c *Cache) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	return c.base.UserByEmail(ctx, email)
}

func (c *Cache) ListTasks(ctx context.Context, scope domain.TaskScope) ([]domain.Task, error) {
	if tasks, ok := c.loadTasks(ctx, scope); ok {
		return tasks, nil
	}

	tasks, err := c.base.ListTasks(ctx, scope)
	if err != nil {
		return nil, err
	}

	c.storeTasks(ctx, scope, tasks)
	return tasks, nil
}

func (c *Cache) TaskByID(ctx context.Context, scope domain.TaskScope, id uint) (domain.Task, error) {
	return c.base.TaskByID(ctx, scope, id)
}

func (c *Cache) CreateTask(ctx context.Context, t *domain.Task) error {
	if err := c.base.CreateTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, t.UserID)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, scope domain.TaskScope, id uint, upd domain.TaskUpdate) (domain.Task, error) {
	task, err := c.base.UpdateTask(ctx, scope, id, upd)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, task.UserID)
	return task, nil
}

func (c *Cache) DeleteTask(ctx context.Context, scope domain.TaskScope, id uint) error {
	// The delete statement alone does not reveal the owner when the scope is
	// unrestricted, so resolve the row first to know which list to evict.
	task, err := c.base.TaskByID(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := c.base.DeleteTask(ctx, scope, id); err != nil {
		return err
	}
	c.evict(ctx, task.UserID)
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.base.Ping(ctx)
}

func (c *Cache) loadTasks(ctx context.Context, scope domain.TaskScope) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(scope)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, tasksCacheKey(scope)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(scope)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeTasks(ctx context.Context, scope domain.TaskScope, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey(scope), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, owner uuid.UUID) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey(domain.OwnedBy(owner)), tasksCacheKey(domain.AllTasks())).Result()
}

func tasksCacheKey(scope domain.TaskScope) string {
	if scope.OwnerID != nil {
		return "tasks:" + scope.OwnerID.String()
	}
	return "tasks:all"
}
