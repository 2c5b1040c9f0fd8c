package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/pkg/cryptox"
)

var ErrDuplicateEmail = errors.New("duplicate_email")

// UserService handles account registration and lookups.
type UserService struct {
	Store store.Store
}

// Register creates a new account with a bcrypt-hashed password. The
// duplicate-email check and insert run in one transaction so two concurrent
// registrations for the same address cannot both succeed.
func (s *UserService) Register(ctx context.Context, name string, age *int, email, password string) (domain.User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	var created domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Users().GetUserByEmail(ctx, email)
		if err == nil {
			return ErrDuplicateEmail
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("check email: %w", err)
		}

		created, err = tx.Users().CreateUser(ctx, domain.User{
			Name:         name,
			Age:          age,
			Email:        email,
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return created, nil
}

// GetByID returns a user, mapping a missing row to ErrUserNotFound.
func (s *UserService) GetByID(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapUserErr(err)
	}
	return user, nil
}

// GetByEmail returns a user, mapping a missing row to ErrUserNotFound.
func (s *UserService) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, mapUserErr(err)
	}
	return user, nil
}

func mapUserErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
