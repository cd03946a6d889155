// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/macronizer/internal/model"
)

// UserRepository provides access to user accounts.
type UserRepository interface {
	// Create inserts a new user and fills its ID and CreatedAt.
	// Returns errs.ErrAlreadyExists when username or email is taken.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByUsername loads a user by exact username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// UpdateProfile replaces name, email and username of a user.
	UpdateProfile(ctx context.Context, id int64, p model.Profile) (*model.User, error)
}
