package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	internalauth "picstore/internal/auth"
	"picstore/internal/models"
	"picstore/internal/store"
)

const sessionCookieName = "picstore_session"

var errInvalidCredentials = errors.New("invalid credentials")

// SessionValidator decides whether a request carries a live session.
type SessionValidator interface {
	ValidateSession(ctx context.Context, r *http.Request) (*models.User, bool, error)
}

type authStore interface {
	store.UserStore
	store.SessionStore
}

// AuthService encapsulates browser session operations backed by the store.
type AuthService struct {
	store      authStore
	sessionTTL time.Duration
	now        func() time.Time
}

type loginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(st authStore, sessionTTL time.Duration) *AuthService {
	if st == nil {
		return nil
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		store:      st,
		sessionTTL: sessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (a *AuthService) Login(ctx context.Context, username, password string, now time.Time) (*loginResult, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("auth store is required")
	}

	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidArgument)
	}
	if strings.TrimSpace(password) == "" {
		return nil, badRequestCode(fmt.Errorf("password is required"), ErrCodeMissingRequired)
	}

	user, err := a.store.GetUserByUsername(ctx, normalized)
	if err != nil {
		return nil, storeFailure(err)
	}
	if user == nil {
		internalauth.DummyVerify(password)
		return nil, errInvalidCredentials
	}
	if user.Disabled || !internalauth.VerifyPassword(user.PasswordHash, password) {
		return nil, errInvalidCredentials
	}

	token, err := internalauth.NewSessionToken()
	if err != nil {
		return nil, internalError(err)
	}
	expiresAt := now.Add(a.sessionTTL)
	if err := a.store.CreateSession(ctx, user.ID, internalauth.HashSessionToken(token), expiresAt, now); err != nil {
		return nil, storeFailure(err)
	}

	return &loginResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateSession resolves the session cookie of r to an enabled principal.
func (a *AuthService) ValidateSession(ctx context.Context, r *http.Request) (*models.User, bool, error) {
	token := sessionTokenFromRequest(r)
	if token == "" {
		return nil, false, nil
	}
	user, err := a.AuthenticateSessionToken(ctx, token, a.now())
	if err != nil {
		return nil, false, err
	}
	return user, user != nil, nil
}

func (a *AuthService) AuthenticateSessionToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	if a == nil || a.store == nil {
		return nil, nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return a.store.GetUserBySessionTokenHash(ctx, internalauth.HashSessionToken(token), now)
}

func (a *AuthService) RevokeSessionToken(ctx context.Context, token string, now time.Time) error {
	if a == nil || a.store == nil {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return a.store.RevokeSessionByTokenHash(ctx, internalauth.HashSessionToken(token), now)
}

func sessionTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
