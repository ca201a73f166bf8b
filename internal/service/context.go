package service

import (
	"context"

	"ecommerce/api/internal/models"
)

type currentUserKey struct{}

func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, currentUserKey{}, user)
}

func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(currentUserKey{}).(models.User)
	return user, ok
}
