package store

import (
	"context"
	"time"

	"picstore/internal/models"
)

// UserStore is the principal lookup and provisioning surface.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, role models.Role, now time.Time) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// SessionStore persists browser sessions keyed by token hash.
type SessionStore interface {
	CreateSession(ctx context.Context, userID int64, tokenHash string, expiresAt, createdAt time.Time) error
	GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
}

// ImageStore is the image record surface. CreateImage is the only write path
// that touches a principal's profile picture reference.
type ImageStore interface {
	CreateImage(ctx context.Context, image *models.Image, swap ProfileSwap) (*CreateImageResult, error)
	GetImage(ctx context.Context, id int64) (*models.Image, error)
	DeleteImage(ctx context.Context, id int64) (bool, error)
}

var (
	_ UserStore    = (*Store)(nil)
	_ SessionStore = (*Store)(nil)
	_ ImageStore   = (*Store)(nil)
)
