package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/macronizer/internal/errs"
	"github.com/and161185/macronizer/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "name", "email", "username", "pwd_hash", "created_at"}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	now := time.Date(2022, 2, 1, 10, 0, 0, 0, time.UTC)
	u := &model.User{Name: "John Doe", Email: "john@example.com", Username: "johndoe", PwdHash: "$argon2id$h"}

	mock.ExpectQuery(`INSERT INTO users \(name, email, username, pwd_hash\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING id, created_at`).
		WithArgs(u.Name, u.Email, u.Username, u.PwdHash).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))
	require.NoError(t, r.Create(ctx, u))
	require.Equal(t, int64(7), u.ID)
	require.Equal(t, now, u.CreatedAt)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(u.Name, u.Email, u.Username, u.PwdHash).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, u), errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, name, email, username, pwd_hash, created_at FROM users WHERE id=\$1`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(int64(7), "John Doe", "john@example.com", "johndoe", "h", now))
	u, err := r.GetByID(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "johndoe", u.Username)
	require.Equal(t, "john@example.com", u.Email)

	mock.ExpectQuery(`SELECT id, name, email, username, pwd_hash, created_at FROM users WHERE id=\$1`).
		WithArgs(int64(8)).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, 8)
	require.ErrorIs(t, err, errs.ErrNotFound)

	boom := errors.New("conn reset")
	mock.ExpectQuery(`SELECT id, name, email, username, pwd_hash, created_at FROM users WHERE id=\$1`).
		WithArgs(int64(9)).
		WillReturnError(boom)
	_, err = r.GetByID(ctx, 9)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_GetByUsername(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, name, email, username, pwd_hash, created_at FROM users WHERE username=\$1`).
		WithArgs("johndoe").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(int64(7), "John Doe", "john@example.com", "johndoe", "h", time.Now()))
	u, err := r.GetByUsername(ctx, "johndoe")
	require.NoError(t, err)
	require.Equal(t, int64(7), u.ID)

	mock.ExpectQuery(`SELECT id, name, email, username, pwd_hash, created_at FROM users WHERE username=\$1`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_UpdateProfile(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	p := model.Profile{Name: "Jane", Email: "jane@example.com", Username: "jane"}

	mock.ExpectQuery(`UPDATE users SET name=\$2, email=\$3, username=\$4 WHERE id=\$1 RETURNING id, name, email, username, pwd_hash, created_at`).
		WithArgs(int64(7), p.Name, p.Email, p.Username).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(int64(7), p.Name, p.Email, p.Username, "h", time.Now()))
	u, err := r.UpdateProfile(ctx, 7, p)
	require.NoError(t, err)
	require.Equal(t, "jane", u.Username)

	mock.ExpectQuery(`UPDATE users SET`).
		WithArgs(int64(7), p.Name, p.Email, p.Username).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = r.UpdateProfile(ctx, 7, p)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	mock.ExpectQuery(`UPDATE users SET`).
		WithArgs(int64(99), p.Name, p.Email, p.Username).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.UpdateProfile(ctx, 99, p)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
