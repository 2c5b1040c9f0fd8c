package domain

import "time"

type User struct {
	ID           int64
	Name         string
	Age          *int
	Email        string
	PasswordHash string  // bcrypt encoded; empty for federated identities
	TwoFAEnabled bool
	TwoFASecret  *string // TOTP secret, encrypted at rest (nullable)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
