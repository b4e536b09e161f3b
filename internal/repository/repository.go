// Package repository holds the Postgres-backed stores. Lookups return
// (nil, nil) when nothing matches; callers decide what absence means.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/diagnosis/taskmanager/internal/domain"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

const queryTimeout = 3 * time.Second

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type OTPRepository interface {
	// Upsert stores otp as the single outstanding code for its
	// (email, purpose), replacing any unverified one.
	Upsert(ctx context.Context, otp *domain.OTP) (*domain.OTP, error)
	// Consume marks the matching outstanding, unexpired code verified and
	// returns it. Only one caller can consume a given code.
	Consume(ctx context.Context, email, phone, code string, purpose domain.Purpose, now time.Time) (*domain.OTP, error)
	Delete(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) (*domain.Task, error)
	FindByID(ctx context.Context, id int64) (*domain.Task, error)
	// Update applies patch to the task only if owner owns it; nil means no
	// owned task with that id.
	Update(ctx context.Context, owner, id int64, patch *domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, owner, id int64) (bool, error)
	List(ctx context.Context, owner int64, filter domain.TaskFilter) (*domain.TaskListResult, error)
	Stats(ctx context.Context, owner int64, now time.Time) (*domain.TaskStats, error)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
