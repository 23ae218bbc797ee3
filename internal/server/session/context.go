package session

import (
	"context"

	"github.com/dmitrijs2005/classgate/internal/server/models"
)

type userContextKey struct{}

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the user placed by Middleware.Require.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*models.User)
	return u, ok && u != nil
}
