package auth

import (
	"context"
	"fmt"

	"movie_api/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	UserKey = "user"
)

type ctxKey struct{}

// ContextWithUser attaches the authenticated user to ctx.
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext returns the user stored by ContextWithUser, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(*models.User)
	return user, ok && user != nil
}

// GetUserFromContext extracts the authenticated user from Gin context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(UserKey)
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	user, ok := value.(*models.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return user, nil
}
