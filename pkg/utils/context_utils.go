package utils

import (
	"context"

	"crm-system/internal/entities"
	"crm-system/pkg/contextkeys"
	apperrors "crm-system/pkg/errors"
)

func GetUserFromCtx(ctx context.Context) (*entities.User, error) {
	user, ok := ctx.Value(contextkeys.UserKey).(*entities.User)
	if !ok || user == nil {
		return nil, apperrors.ErrUserNotFoundInContext
	}
	return user, nil
}

func GetUserIDFromCtx(ctx context.Context) (uint64, error) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(uint64)
	if !ok {
		return 0, apperrors.ErrUserNotFoundInContext
	}
	return userID, nil
}

func WithUser(ctx context.Context, user *entities.User) context.Context {
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, user.ID)
	return context.WithValue(ctx, contextkeys.UserKey, user)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextkeys.RequestIDKey).(string)
	return id
}
