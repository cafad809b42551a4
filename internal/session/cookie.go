package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const CookieName = "anonbox.sid"

var ErrNoSession = errors.New("no valid session")

type Store interface {
	Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, error)
	Lookup(ctx context.Context, sid string) (uuid.UUID, error)
	Revoke(ctx context.Context, sid string) error
}

// Manager issues and checks the session cookie. The cookie is an HS256 JWT
// whose jti names a server-side session; both must agree on the user.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	secure bool
}

func NewManager(store Store, secret string, ttl time.Duration, secure bool) *Manager {
	return &Manager{store: store, secret: []byte(secret), ttl: ttl, secure: secure}
}

// Start opens a session for userID and sets the cookie on w.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, userID uuid.UUID) error {
	sid, err := m.store.Create(ctx, userID, m.ttl)
	if err != nil {
		return err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        sid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Authenticate resolves the request's cookie to a user and session id.
func (m *Manager) Authenticate(r *http.Request) (uuid.UUID, string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return uuid.Nil, "", ErrNoSession
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(c.Value, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return uuid.Nil, "", ErrNoSession
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" {
		return uuid.Nil, "", ErrNoSession
	}

	stored, err := m.store.Lookup(r.Context(), claims.ID)
	if errors.Is(err, ErrNotFound) {
		return uuid.Nil, "", ErrNoSession
	}
	if err != nil {
		return uuid.Nil, "", err
	}
	if stored != userID {
		return uuid.Nil, "", ErrNoSession
	}

	return userID, claims.ID, nil
}

// End revokes the request's session, if any, and clears the cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	userID, sid, err := m.Authenticate(r)
	m.clearCookie(w)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return userID, m.store.Revoke(r.Context(), sid)
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
