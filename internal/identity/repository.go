package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository is the persistence contract for identities.
// Deletion is intentionally absent.
type Repository interface {
	FindByID(ctx context.Context, id int64) (Identity, error)
	FindByUsername(ctx context.Context, username string) (Identity, error)
	FindByEmail(ctx context.Context, email string) (Identity, error)
	Create(ctx context.Context, i Identity) (Identity, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateAdmin(ctx context.Context, id int64, isAdmin bool) error
}

// PostgresRepo stores identities in the users table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username VARCHAR(80) NOT NULL UNIQUE,
  email VARCHAR(120) NOT NULL UNIQUE,
  password_hash VARCHAR(256) NOT NULL,
  is_admin BOOLEAN NOT NULL DEFAULT FALSE
)
`

// EnsureSchema creates the users table when missing.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, usersSchema); err != nil {
		return fmt.Errorf("ensure users table: %w", err)
	}
	return nil
}

const selectIdentity = `
SELECT id, username, email, password_hash, is_admin
FROM users
`

func (r *PostgresRepo) FindByID(ctx context.Context, id int64) (Identity, error) {
	return r.findOne(ctx, selectIdentity+"WHERE id = $1", id)
}

func (r *PostgresRepo) FindByUsername(ctx context.Context, username string) (Identity, error) {
	return r.findOne(ctx, selectIdentity+"WHERE username = $1", username)
}

func (r *PostgresRepo) FindByEmail(ctx context.Context, email string) (Identity, error) {
	return r.findOne(ctx, selectIdentity+"WHERE email = $1", email)
}

func (r *PostgresRepo) findOne(ctx context.Context, q string, arg any) (Identity, error) {
	var i Identity
	if err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.PasswordHash,
		&i.IsAdmin,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, err
	}
	return i, nil
}

func (r *PostgresRepo) Create(ctx context.Context, i Identity) (Identity, error) {
	const q = `
INSERT INTO users (username, email, password_hash, is_admin)
VALUES ($1, $2, $3, $4)
RETURNING id
`
	if err := r.db.QueryRowContext(ctx, q, i.Username, i.Email, i.PasswordHash, i.IsAdmin).Scan(&i.ID); err != nil {
		return Identity{}, fmt.Errorf("insert user: %w", err)
	}
	return i, nil
}

func (r *PostgresRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.updateOne(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (r *PostgresRepo) UpdateAdmin(ctx context.Context, id int64, isAdmin bool) error {
	return r.updateOne(ctx, `UPDATE users SET is_admin = $2 WHERE id = $1`, id, isAdmin)
}

func (r *PostgresRepo) updateOne(ctx context.Context, q string, id int64, v any) error {
	res, err := r.db.ExecContext(ctx, q, id, v)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
