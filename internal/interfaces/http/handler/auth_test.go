package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
	"github.com/shopadmin/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func (e *handlerEnv) authRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/api/v1/auth/login", e.auth.Login)
	r.POST("/api/v1/auth/refresh", e.auth.Refresh)
	protected := r.Group("/api/v1", middleware.Authenticate(e.auth.authService, zap.NewNop()))
	protected.POST("/auth/logout", e.auth.Logout)
	protected.GET("/admin/me", e.auth.Me)
	return r
}

func (e *handlerEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	w := testutil.DoJSON(t, e.authRouter(), http.MethodPost, "/api/v1/auth/login",
		map[string]any{"email": email, "password": password}, nil)
	resp := testutil.AssertSuccessResponse(t, w)
	token, _ := resp["data"].(map[string]any)["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestAuthHandler_Login(t *testing.T) {
	env := newHandlerEnv(t)
	testutil.SeedStaff(t, env.db, "finance@shop.test", identity.RoleFinance)

	t.Run("success", func(t *testing.T) {
		w := testutil.DoJSON(t, env.authRouter(), http.MethodPost, "/api/v1/auth/login",
			map[string]any{"email": "Finance@Shop.test", "password": testutil.TestPassword}, nil)
		resp := testutil.AssertSuccessResponse(t, w)
		data := resp["data"].(map[string]any)
		assert.NotEmpty(t, data["access_token"])
		assert.NotEmpty(t, data["refresh_token"])
		assert.Equal(t, "Bearer", data["token_type"])
		user := data["user"].(map[string]any)
		assert.Equal(t, "FINANCE", user["admin_role"])
		assert.Contains(t, user["permissions"], string(identity.PermRefundExecute))
	})

	t.Run("wrong password", func(t *testing.T) {
		w := testutil.DoJSON(t, env.authRouter(), http.MethodPost, "/api/v1/auth/login",
			map[string]any{"email": "finance@shop.test", "password": "wrong-password"}, nil)
		errMap := testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
		assert.Equal(t, "Invalid email or password", errMap["message"])
	})

	t.Run("unknown email looks the same", func(t *testing.T) {
		w := testutil.DoJSON(t, env.authRouter(), http.MethodPost, "/api/v1/auth/login",
			map[string]any{"email": "nobody@shop.test", "password": testutil.TestPassword}, nil)
		testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	})

	t.Run("invalid body", func(t *testing.T) {
		w := testutil.DoJSON(t, env.authRouter(), http.MethodPost, "/api/v1/auth/login",
			map[string]any{"email": "not-an-email"}, nil)
		errMap := testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
		details := errMap["details"].(map[string]any)
		assert.Contains(t, details, "email")
		assert.Contains(t, details, "password")
	})
}

func TestAuthHandler_MeAndLogout(t *testing.T) {
	env := newHandlerEnv(t)
	testutil.SeedStaff(t, env.db, "cs@shop.test", identity.RoleCS)
	token := env.login(t, "cs@shop.test", testutil.TestPassword)
	bearer := map[string]string{"Authorization": "Bearer " + token}

	w := testutil.DoJSON(t, env.authRouter(), http.MethodGet, "/api/v1/admin/me", nil, bearer)
	resp := testutil.AssertSuccessResponse(t, w)
	me := resp["data"].(map[string]any)
	assert.Equal(t, "cs@shop.test", me["email"])
	assert.Equal(t, "CS", me["admin_role"])

	w = testutil.DoJSON(t, env.authRouter(), http.MethodPost, "/api/v1/auth/logout", nil, bearer)
	resp = testutil.AssertSuccessResponse(t, w)
	assert.Equal(t, true, resp["data"].(map[string]any)["logged_out"])

	claims, err := env.jwt.ValidateAccessToken(token)
	require.NoError(t, err)
	revoked, err := env.blacklist.IsBlacklisted(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	w = testutil.DoJSON(t, env.authRouter(), http.MethodGet, "/api/v1/admin/me", nil, bearer)
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthHandler_Unauthenticated(t *testing.T) {
	env := newHandlerEnv(t)

	w := testutil.DoJSON(t, env.authRouter(), http.MethodGet, "/api/v1/admin/me", nil, nil)
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "UNAUTHORIZED")

	w = testutil.DoJSON(t, env.authRouter(), http.MethodGet, "/api/v1/admin/me", nil,
		map[string]string{"Authorization": "Bearer not.a.jwt"})
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthHandler_Refresh(t *testing.T) {
	env := newHandlerEnv(t)
	testutil.SeedStaff(t, env.db, "ops@shop.test", identity.RoleOps)

	w := testutil.DoJSON(t, env.authRouter(), http.MethodPost, "/api/v1/auth/login",
		map[string]any{"email": "ops@shop.test", "password": testutil.TestPassword}, nil)
	data := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	refreshToken := data["refresh_token"].(string)

	t.Run("issues a new pair", func(t *testing.T) {
		w := testutil.DoJSON(t, env.authRouter(), http.MethodPost, "/api/v1/auth/refresh",
			map[string]any{"refresh_token": refreshToken}, nil)
		data := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
		assert.NotEmpty(t, data["access_token"])
		assert.NotEqual(t, refreshToken, data["refresh_token"])
		assert.Equal(t, "OPS", data["user"].(map[string]any)["admin_role"])
	})

	t.Run("a refresh token is redeemed once", func(t *testing.T) {
		w := testutil.DoJSON(t, env.authRouter(), http.MethodPost, "/api/v1/auth/refresh",
			map[string]any{"refresh_token": refreshToken}, nil)
		testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		w := testutil.DoJSON(t, env.authRouter(), http.MethodPost, "/api/v1/auth/refresh",
			map[string]any{"refresh_token": data["access_token"]}, nil)
		testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
	})

	t.Run("missing token", func(t *testing.T) {
		w := testutil.DoJSON(t, env.authRouter(), http.MethodPost, "/api/v1/auth/refresh", map[string]any{}, nil)
		errMap := testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
		assert.Contains(t, errMap["details"], "refresh_token")
	})
}
