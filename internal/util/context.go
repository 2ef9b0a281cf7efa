package util

import (
	"context"

	"github.com/gin-gonic/gin"
)

type ipContextKey struct{}

// SetIPContext stores the client IP in ctx for code that does not see the
// gin context, such as the audit worker.
func SetIPContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipContextKey{}, ip)
}

// GetIPFromContext extracts the client IP address from the context
func GetIPFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.ClientIP()
	}
	if ip, ok := ctx.Value(ipContextKey{}).(string); ok {
		return ip
	}
	return ""
}
