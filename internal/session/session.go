// Package session keeps the logged-in identity in a signed browser cookie.
// Nothing is stored server side.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"myconnectionsvr/loginportal/internal/config"
)

type Claims struct {
	jwt.RegisteredClaims
	User string `json:"user"`
}

type Manager struct {
	secret     []byte
	cookieName string
	maxAge     time.Duration
	secure     bool
	now        func() time.Time
}

func NewManager(cfg config.SessionConfig) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if cfg.CookieName == "" {
		return nil, fmt.Errorf("session cookie name is required")
	}
	if cfg.MaxAge < 0 {
		return nil, fmt.Errorf("session max age must be >= 0")
	}
	return &Manager{
		secret:     []byte(cfg.Secret),
		cookieName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     cfg.CookieSecure,
		now:        time.Now,
	}, nil
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// User returns the identity carried by the request cookie. A missing,
// tampered or expired cookie reads as anonymous. The identity itself may be
// empty: an empty username is a valid account.
func (m *Manager) User(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	claims, err := m.parse(c.Value)
	if err != nil {
		return "", false
	}
	return claims.User, true
}

func (m *Manager) SetUser(w http.ResponseWriter, username string) error {
	token, err := m.sign(username)
	if err != nil {
		return err
	}

	c := m.cookie(token)
	if m.maxAge > 0 {
		c.MaxAge = int(m.maxAge / time.Second)
		c.Expires = m.now().Add(m.maxAge)
	}
	http.SetCookie(w, c)
	return nil
}

// Clear expires the session cookie whether or not the client sent one.
func (m *Manager) Clear(w http.ResponseWriter) {
	c := m.cookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

func (m *Manager) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) sign(username string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
		User: username,
	}
	if m.maxAge > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.maxAge))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}
