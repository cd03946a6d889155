// Package session issues and resolves login sessions. The cookie carries an
// HS256 JWT (sub = user id, jti = session id); the session store makes the jti
// revocable, so logout takes effect server side.
package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie.
const CookieName = "macronizer_session"

// ErrNoSession means the token is missing, forged, expired or revoked.
var ErrNoSession = errors.New("no session")

// Store maps session ids to user ids.
type Store interface {
	// Save binds sid to userID for ttl.
	Save(ctx context.Context, sid string, userID int64, ttl time.Duration) error
	// Lookup returns the user bound to sid or ErrNoSession.
	Lookup(ctx context.Context, sid string) (int64, error)
	// Delete drops sid; deleting a missing sid is not an error.
	Delete(ctx context.Context, sid string) error
}

// Manager issues signed session tokens backed by a Store.
type Manager struct {
	store  Store
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager constructs a Manager. secure sets the Secure cookie attribute.
func NewManager(store Store, signKey []byte, ttl time.Duration, secure bool) *Manager {
	return &Manager{store: store, key: signKey, ttl: ttl, secure: secure, now: time.Now}
}

// Issue starts a session for userID and returns the signed token and its expiry.
func (m *Manager) Issue(ctx context.Context, userID int64) (string, time.Time, error) {
	sid, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}
	now := m.now()
	exp := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		ID:        sid.String(),
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := m.store.Save(ctx, sid.String(), userID, m.ttl); err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Resolve verifies the token and returns the user id it is bound to.
func (m *Manager) Resolve(ctx context.Context, token string) (int64, error) {
	claims, err := m.parse(token)
	if err != nil {
		return 0, ErrNoSession
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrNoSession
	}
	stored, err := m.store.Lookup(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return 0, ErrNoSession
		}
		return 0, err
	}
	if stored != userID {
		return 0, ErrNoSession
	}
	return userID, nil
}

// Revoke ends the session named by token. Unparseable tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil || claims.ID == "" {
		return nil
	}
	return m.store.Delete(ctx, claims.ID)
}

func (m *Manager) parse(token string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.key, nil
	}, jwt.WithLeeway(30*time.Second), jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrNoSession
	}
	if claims.ID == "" {
		return nil, ErrNoSession
	}
	return &claims, nil
}

// TokenFromRequest returns the session cookie value, if any.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetCookie writes the session cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
