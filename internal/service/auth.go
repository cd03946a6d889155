// Package service contains application services for accounts and the meal log ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pkgcrypto "github.com/and161185/macronizer/internal/crypto"
	"github.com/and161185/macronizer/internal/errs"
	"github.com/and161185/macronizer/internal/limiter"
	"github.com/and161185/macronizer/internal/model"
	"github.com/and161185/macronizer/internal/repository"
)

// AuthService defines registration, authentication and profile operations.
type AuthService interface {
	// Register creates a new user with a hashed password.
	Register(ctx context.Context, r model.Registration) (*model.User, error)
	// Authenticate applies rate limiting and verifies credentials.
	// Unknown username and wrong password both yield errs.ErrUnauthorized.
	Authenticate(ctx context.Context, username, password, ip string) (*model.User, error)
	// UserByID resolves the user behind a session.
	UserByID(ctx context.Context, id int64) (*model.User, error)
	// UpdateProfile edits name, email and username.
	UpdateProfile(ctx context.Context, id int64, p model.Profile) (*model.User, error)
}

type AuthServiceImpl struct {
	users repository.UserRepository
	lim   limiter.Limiter

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, lim limiter.Limiter) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Nop{}
	}
	return &AuthServiceImpl{users: users, lim: lim}
}

// Register hashes the password and stores the user.
func (s *AuthServiceImpl) Register(ctx context.Context, r model.Registration) (*model.User, error) {
	u := &model.User{
		Name:     strings.TrimSpace(r.Name),
		Email:    strings.TrimSpace(r.Email),
		Username: strings.TrimSpace(r.Username),
	}
	if u.Username == "" || r.Password == "" {
		return nil, fmt.Errorf("%w: empty username/password", errs.ErrValidation)
	}
	if u.Name == "" || u.Email == "" {
		return nil, fmt.Errorf("%w: empty name/email", errs.ErrValidation)
	}
	hash, err := pkgcrypto.HashPassword(r.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.PwdHash = hash
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials with lockout by (username, ip).
// The username is trimmed the same way Register stores it.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, username, password, ip string) (*model.User, error) {
	username = strings.TrimSpace(username)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return nil, fmt.Errorf("limiter: %w", err)
	}
	if !allowed {
		return nil, errs.ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	var ok bool
	if u != nil {
		ok = pkgcrypto.VerifyPassword(password, u.PwdHash)
	} else {
		// same cost as a real check
		pkgcrypto.VerifyPassword(password, s.dummy())
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return nil, errs.ErrRateLimited
		}
		return nil, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, username, ipHash)
	return u, nil
}

func (s *AuthServiceImpl) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = pkgcrypto.HashPassword("not-a-real-password")
	})
	return s.dummyHash
}

// UserByID loads a user; missing users are errs.ErrNotFound.
func (s *AuthServiceImpl) UserByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, errs.ErrNotFound
	}
	return s.users.GetByID(ctx, id)
}

// UpdateProfile validates and stores the new profile.
func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, id int64, p model.Profile) (*model.User, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Username = strings.TrimSpace(p.Username)
	if id <= 0 {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if p.Name == "" || p.Email == "" || p.Username == "" {
		return nil, fmt.Errorf("%w: name, email and username are required", errs.ErrValidation)
	}
	return s.users.UpdateProfile(ctx, id, p)
}
