package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// DenialObserver is notified of every permission denial
type DenialObserver interface {
	AccessDenied(permission identity.Permission)
}

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	// Observer counts denials (optional)
	Observer DenialObserver
}

// RequirePermission creates middleware that requires a specific permission.
// It must run after Authenticate.
func RequirePermission(permission identity.Permission) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(PermissionConfig{}, permission)
}

// RequirePermissionWithConfig creates middleware with custom config
func RequirePermissionWithConfig(permission identity.Permission, cfg PermissionConfig) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(cfg, permission)
}

// RequireAnyPermissionWithConfig creates middleware that requires any of
// the specified permissions. Permissions come from the actor's stored role.
func RequireAnyPermissionWithConfig(cfg PermissionConfig, permissions ...identity.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			abortWithError(c, shared.CodeUnauthorized, shared.ErrUnauthorized.Message, nil)
			return
		}

		for _, p := range permissions {
			if actor.Can(p) {
				c.Next()
				return
			}
		}

		handlePermissionDenied(c, cfg, permissions)
	}
}

// handlePermissionDenied logs the denial and answers FORBIDDEN
func handlePermissionDenied(c *gin.Context, cfg PermissionConfig, required []identity.Permission) {
	names := make([]string, len(required))
	for i, p := range required {
		names[i] = string(p)
		if cfg.Observer != nil {
			cfg.Observer.AccessDenied(p)
		}
	}

	logger.L(c.Request.Context()).Warn("Permission denied",
		zap.Strings("required_permissions", names),
		zap.String("path", c.FullPath()),
		zap.String("method", c.Request.Method),
	)

	details := map[string]any{"required_permission": names[0]}
	if len(names) > 1 {
		details = map[string]any{"required_any": names}
	}
	abortWithError(c, shared.CodeForbidden, shared.ErrForbidden.Message, details)
}
