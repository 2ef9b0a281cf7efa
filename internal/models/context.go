package models

import (
	"context"

	"github.com/gin-gonic/gin"
)

// ContextKeyUserID is the gin key holding the authenticated user id.
const ContextKeyUserID = "user_id"

type userIDKey struct{}

// WithUserID stores the authenticated user id in a plain context.Context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserIDFromContext returns the authenticated user id set by the
// bearer-token middleware, or "" when the request is anonymous.
func GetUserIDFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.GetString(ContextKeyUserID)
	}
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	// Detached contexts (context.WithoutCancel) still reach the gin keys.
	if id, ok := ctx.Value(ContextKeyUserID).(string); ok {
		return id
	}
	return ""
}
