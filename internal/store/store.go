package store

import (
	"context"
	"errors"

	"github.com/taskforge/taskforge/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Tasks() Tasks

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to run multi-step operations that must be atomic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the user directory: credential records plus their 2FA material.
type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByEmail is used during login and duplicate checks.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user and returns it with the assigned id.
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)

	// UpdateTwoFASecret replaces the stored (encrypted) TOTP secret.
	UpdateTwoFASecret(ctx context.Context, userID int64, encryptedSecret string) error

	// GetTwoFASecret returns the encrypted TOTP secret, or ErrNotFound when
	// the user has none on file.
	GetTwoFASecret(ctx context.Context, userID int64) (string, error)

	// SetTwoFAEnabled flips the 2FA-enabled flag. Disabling is a directory
	// primitive only; nothing in the login protocol calls it.
	SetTwoFAEnabled(ctx context.Context, userID int64, enabled bool) error
}

// Tasks is owner-scoped task storage. Every operation that addresses a
// single task takes the owner id so one user can never reach another's rows.
type Tasks interface {
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error)

	GetByID(ctx context.Context, ownerID, taskID int64) (domain.Task, error)

	// CreateTask inserts a task and returns it with the assigned id.
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)

	// UpdateTask replaces title/description/due date for the owner's task.
	UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error)

	SetTaskDone(ctx context.Context, ownerID, taskID int64, done bool) error

	DeleteTask(ctx context.Context, ownerID, taskID int64) error
}
