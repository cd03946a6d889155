package postgres

import (
	"context"
	"errors"

	"github.com/and161185/macronizer/internal/errs"
	"github.com/and161185/macronizer/internal/model"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (name, email, username, pwd_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
	err := r.db.Pool.QueryRow(ctx, q, u.Name, u.Email, u.Username, u.PwdHash).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `
SELECT id, name, email, username, pwd_hash, created_at
FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `
SELECT id, name, email, username, pwd_hash, created_at
FROM users WHERE username=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, username))
}

// UpdateProfile rewrites the editable columns and returns the stored row.
func (r *UserRepo) UpdateProfile(ctx context.Context, id int64, p model.Profile) (*model.User, error) {
	const q = `
UPDATE users SET name=$2, email=$3, username=$4
WHERE id=$1
RETURNING id, name, email, username, pwd_hash, created_at`
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, id, p.Name, p.Email, p.Username))
	if isUniqueViolation(err) {
		return nil, errs.ErrAlreadyExists
	}
	return u, err
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Username, &u.PwdHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
