package server

import (
	"context"

	"picstore/internal/models"
)

type principalContextKey struct{}

func contextWithPrincipal(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, principalContextKey{}, user)
}

func principalFromContext(ctx context.Context) (*models.User, bool) {
	if ctx == nil {
		return nil, false
	}
	user, ok := ctx.Value(principalContextKey{}).(*models.User)
	return user, ok && user != nil
}
