package service

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgcrypto "github.com/and161185/macronizer/internal/crypto"
	"github.com/and161185/macronizer/internal/errs"
	"github.com/and161185/macronizer/internal/limiter"
	"github.com/and161185/macronizer/internal/model"
	"github.com/and161185/macronizer/internal/repository"
)

type fakeUsers struct {
	byName map[string]*model.User
	nextID int64

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byName == nil {
		f.byName = map[string]*model.User{}
	}
	for _, e := range f.byName {
		if e.Username == u.Username || e.Email == u.Email {
			return errs.ErrAlreadyExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	cpy := *u
	f.byName[u.Username] = &cpy
	return nil
}
func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}
func (f *fakeUsers) UpdateProfile(_ context.Context, id int64, p model.Profile) (*model.User, error) {
	for name, u := range f.byName {
		if u.ID == id {
			u.Name, u.Email, u.Username = p.Name, p.Email, p.Username
			delete(f.byName, name)
			f.byName[p.Username] = u
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

func reg(username string) model.Registration {
	return model.Registration{Name: "John Doe", Email: username + "@example.com", Username: username, Password: "password123"}
}

func TestAuth_Register_Basics(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{byName: map[string]*model.User{}}
	s := NewAuthService(users, &fakeLimiter{})
	ctx := context.Background()

	if _, err := s.Register(ctx, model.Registration{}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on empty registration, got %v", err)
	}

	u, err := s.Register(ctx, reg("johndoe"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == 0 {
		t.Fatalf("empty user id")
	}
	if u.PwdHash == "password123" || !pkgcrypto.VerifyPassword("password123", u.PwdHash) {
		t.Fatalf("password must be stored as a verifiable hash")
	}

	if _, err := s.Register(ctx, reg("johndoe")); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate username, got %v", err)
	}

	users.createErr = errors.New("boom")
	if _, err := s.Register(ctx, reg("bob")); err == nil {
		t.Fatalf("want propagated repo error")
	}
}

func TestAuth_Authenticate_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{}
	lim := &fakeLimiter{allowOK: true}
	s := NewAuthService(users, lim)
	ctx := context.Background()
	created, err := s.Register(ctx, reg("alice"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	lim.allowErr = errors.New("lim-err")
	if _, err := s.Authenticate(ctx, "alice", "password123", "1.2.3.4"); err == nil {
		t.Fatalf("want limiter error propagate")
	}
	lim.allowErr = nil

	lim.allowOK = false
	if _, err := s.Authenticate(ctx, "alice", "password123", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	lim.allowOK = true

	_, errUnknown := s.Authenticate(ctx, "nope", "password123", "")
	_, errWrong := s.Authenticate(ctx, "alice", "wrong-password", "")
	if !errors.Is(errUnknown, errs.ErrUnauthorized) || !errors.Is(errWrong, errs.ErrUnauthorized) {
		t.Fatalf("want uniform ErrUnauthorized, got %v / %v", errUnknown, errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("unknown user and wrong password must look identical")
	}
	if lim.failureCalls != 2 {
		t.Fatalf("failures recorded=%d, want 2", lim.failureCalls)
	}

	lim.failBlocked = true
	if _, err := s.Authenticate(ctx, "alice", "wrong-password", ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited when threshold reached, got %v", err)
	}
	lim.failBlocked = false

	u, err := s.Authenticate(ctx, "alice", "password123", "1.2.3.4")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.ID != created.ID {
		t.Fatalf("got user %d, want %d", u.ID, created.ID)
	}
	if lim.successCalls != 1 {
		t.Fatalf("success must reset limiter")
	}

	users.getErr = errors.New("db down")
	if _, err := s.Authenticate(ctx, "alice", "password123", ""); err == nil || errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("storage failure must not be masked as bad credentials, got %v", err)
	}
}

func TestAuth_Authenticate_TrimsUsernameLikeRegister(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{byName: map[string]*model.User{}}
	s := NewAuthService(users, &fakeLimiter{})
	ctx := context.Background()

	created, err := s.Register(ctx, reg(" bob "))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if created.Username != "bob" {
		t.Fatalf("stored username %q, want %q", created.Username, "bob")
	}
	for _, name := range []string{"bob", " bob", "bob\t"} {
		u, err := s.Authenticate(ctx, name, "password123", "")
		if err != nil {
			t.Fatalf("Authenticate(%q): %v", name, err)
		}
		if u.ID != created.ID {
			t.Fatalf("Authenticate(%q) got user %d, want %d", name, u.ID, created.ID)
		}
	}
}

func TestAuth_UserByID_And_UpdateProfile(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	s := NewAuthService(users, nil)
	ctx := context.Background()
	u, err := s.Register(ctx, reg("alice"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := s.UserByID(ctx, u.ID)
	if err != nil || got.Username != "alice" {
		t.Fatalf("UserByID: %v %v", got, err)
	}
	if _, err := s.UserByID(ctx, 0); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound for zero id, got %v", err)
	}

	if _, err := s.UpdateProfile(ctx, u.ID, model.Profile{Name: " ", Email: "a@b.c", Username: "x"}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	upd, err := s.UpdateProfile(ctx, u.ID, model.Profile{Name: " Alice ", Email: "alice@new.io", Username: "alice2"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if upd.Name != "Alice" || upd.Username != "alice2" {
		t.Fatalf("profile not applied: %+v", upd)
	}
}
