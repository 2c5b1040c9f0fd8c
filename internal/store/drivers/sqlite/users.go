package sqlite

import (
	"context"
	"database/sql"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

type usersRepo struct {
	q dbtx
}

const userColumns = `id, name, age, email, password_hash, twofa_enabled, twofa_secret, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u      domain.User
		age    sql.NullInt64
		hash   sql.NullString
		secret sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &age, &u.Email, &hash, &u.TwoFAEnabled, &secret, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Age = mapNullInt(age)
	u.PasswordHash = hash.String
	u.TwoFASecret = mapNullString(secret)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = ?`,
		email,
	)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO users (name, age, email, password_hash)
		VALUES (?, ?, ?, ?)
		RETURNING `+userColumns,
		u.Name,
		mapOptionalInt(u.Age),
		u.Email,
		u.PasswordHash,
	)
	return scanUser(row)
}

func (r *usersRepo) UpdateTwoFASecret(ctx context.Context, userID int64, encryptedSecret string) error {
	return requireRow(r.q.ExecContext(ctx, `
		UPDATE users
		SET twofa_secret = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		encryptedSecret, userID,
	))
}

func (r *usersRepo) GetTwoFASecret(ctx context.Context, userID int64) (string, error) {
	var secret sql.NullString
	err := r.q.QueryRowContext(ctx, `
		SELECT twofa_secret
		FROM users
		WHERE id = ?`,
		userID,
	).Scan(&secret)
	if err != nil {
		return "", mapNotFound(err)
	}

	// A NULL or empty secret means the user never enrolled.
	if !secret.Valid || secret.String == "" {
		return "", store.ErrNotFound
	}
	return secret.String, nil
}

func (r *usersRepo) SetTwoFAEnabled(ctx context.Context, userID int64, enabled bool) error {
	return requireRow(r.q.ExecContext(ctx, `
		UPDATE users
		SET twofa_enabled = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		enabled, userID,
	))
}
