package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskman-api/domain"
)

// Storage provides relational persistence for users and tasks. Every task
// operation takes a scope; a restricted scope becomes an owner predicate on
// the statement itself, so an out-of-scope row is never read or written.
type Storage struct {
	db *gorm.DB
}

// New opens a Postgres-backed store and migrates the schema.
func New(dsn string) (*Storage, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return newWithDB(db)
}

func newWithDB(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(&userModel{}, &taskModel{}); err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

type userModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username string    `gorm:"not null"`
	Email    string    `gorm:"uniqueIndex;not null"`
	Password string    `gorm:"not null"`
	Role     string    `gorm:"not null;default:user"`
}

func (userModel) TableName() string { return "users" }

type taskModel struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string
	Status      string    `gorm:"not null"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
}

func (taskModel) TableName() string { return "tasks" }

func (m userModel) toDomain() domain.User {
	return domain.User{
		ID:       m.ID,
		Username: m.Username,
		Email:    m.Email,
		Password: m.Password,
		Role:     m.Role,
	}
}

func (m taskModel) toDomain() domain.Task {
	return domain.Task{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Status:      m.Status,
		UserID:      m.UserID,
	}
}

// CreateUser inserts a new account. The caller hashes the password first.
func (s *Storage) CreateUser(ctx context.Context, u *domain.User) error {
	m := userModel{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Password: u.Password,
		Role:     u.Role,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// UserByEmail looks up an account by its unique email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	return m.toDomain(), nil
}

func scoped(tx *gorm.DB, scope domain.TaskScope) *gorm.DB {
	if scope.OwnerID != nil {
		return tx.Where("user_id = ?", *scope.OwnerID)
	}
	return tx
}

// ListTasks returns every task visible under the scope, oldest first.
func (s *Storage) ListTasks(ctx context.Context, scope domain.TaskScope) ([]domain.Task, error) {
	var models []taskModel
	if err := scoped(s.db.WithContext(ctx), scope).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(models))
	for _, m := range models {
		tasks = append(tasks, m.toDomain())
	}
	return tasks, nil
}

// TaskByID returns a single task visible under the scope.
func (s *Storage) TaskByID(ctx context.Context, scope domain.TaskScope, id uint) (domain.Task, error) {
	var m taskModel
	if err := scoped(s.db.WithContext(ctx).Where("id = ?", id), scope).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Task{}, domain.ErrTaskNotFound
		}
		return domain.Task{}, err
	}
	return m.toDomain(), nil
}

// CreateTask inserts a task and fills in its generated id.
func (s *Storage) CreateTask(ctx context.Context, t *domain.Task) error {
	m := taskModel{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		UserID:      t.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	t.ID = m.ID
	return nil
}

// UpdateTask replaces the mutable columns of a task in scope and returns the
// resulting row. The user_id column is never part of the statement. Zero rows
// affected means the task is absent or out of scope.
func (s *Storage) UpdateTask(ctx context.Context, scope domain.TaskScope, id uint, upd domain.TaskUpdate) (domain.Task, error) {
	res := scoped(s.db.WithContext(ctx).Model(&taskModel{}).Where("id = ?", id), scope).
		Updates(map[string]any{
			"title":       upd.Title,
			"description": upd.Description,
			"status":      upd.Status,
		})
	if res.Error != nil {
		return domain.Task{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return s.TaskByID(ctx, scope, id)
}

// DeleteTask removes a task in scope. Deleting an already-deleted or foreign
// task reports not found.
func (s *Storage) DeleteTask(ctx context.Context, scope domain.TaskScope, id uint) error {
	res := scoped(s.db.WithContext(ctx).Where("id = ?", id), scope).Delete(&taskModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// Ping reports whether the underlying database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
