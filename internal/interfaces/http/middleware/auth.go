package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/auth"
	"github.com/shopadmin/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Auth context keys
const (
	ActorKey      = "admin_actor"
	JWTClaimsKey  = "jwt_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Authenticator validates a bearer token and loads the staff user behind it
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (admin.Actor, *auth.Claims, error)
}

// Authenticate requires a valid bearer token. The actor is loaded from the
// store on every request so role changes and deactivation apply at once.
func Authenticate(authenticator Authenticator, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortWithError(c, shared.CodeUnauthorized, shared.ErrUnauthorized.Message, nil)
			return
		}

		actor, claims, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			code := shared.CodeOf(err)
			if code == shared.CodeInternal {
				logger.L(c.Request.Context()).Error("Authentication lookup failed", zap.Error(err))
				abortWithError(c, shared.CodeInternal, "internal server error", nil)
				return
			}
			log.Debug("Authentication rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			// Rejection reasons stay in the logs
			abortWithError(c, shared.CodeUnauthorized, shared.ErrUnauthorized.Message, nil)
			return
		}

		c.Set(ActorKey, actor)
		c.Set(JWTClaimsKey, claims)
		ctx := logger.WithActor(c.Request.Context(), actor.ID.String(), string(actor.Role))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

// GetActor returns the authenticated actor
func GetActor(c *gin.Context) (admin.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return admin.Actor{}, false
	}
	actor, ok := v.(admin.Actor)
	return actor, ok
}

// GetJWTClaims returns the validated token claims
func GetJWTClaims(c *gin.Context) *auth.Claims {
	v, exists := c.Get(JWTClaimsKey)
	if !exists {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}
