package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/auth"
	"github.com/shopadmin/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (admin.Actor, *auth.Claims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(1).(*auth.Claims)
	return args.Get(0).(admin.Actor), claims, args.Error(2)
}

func testActor(role identity.AdminRole) admin.Actor {
	return admin.Actor{
		ID:          uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		Email:       "ops@shop.test",
		Role:        role,
		Permissions: identity.PermissionsFor(role),
	}
}

func newAuthRouter(t *testing.T, authn Authenticator) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(Authenticate(authn, zaptest.NewLogger(t)))
	return router
}

func TestAuthenticate(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		authn := new(mockAuthenticator)
		router := newAuthRouter(t, authn)
		router.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
		authn.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		authn := new(mockAuthenticator)
		router := newAuthRouter(t, authn)
		router.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthHeaderKey, "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejected token hides the reason", func(t *testing.T) {
		authn := new(mockAuthenticator)
		authn.On("Authenticate", mock.Anything, "expired").
			Return(admin.Actor{}, nil, shared.ErrUnauthorized.WithDetails(map[string]any{"reason": "token has expired"}))
		router := newAuthRouter(t, authn)
		router.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthHeaderKey, "Bearer expired")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, w.Body.String(), "expired")
	})

	t.Run("store failure is internal", func(t *testing.T) {
		authn := new(mockAuthenticator)
		authn.On("Authenticate", mock.Anything, "tok").
			Return(admin.Actor{}, nil, errors.New("connection refused"))
		router := newAuthRouter(t, authn)
		router.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthHeaderKey, "Bearer tok")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("valid token stores the actor", func(t *testing.T) {
		actor := testActor(identity.RoleOps)
		claims := &auth.Claims{UserID: actor.ID.String()}
		authn := new(mockAuthenticator)
		authn.On("Authenticate", mock.Anything, "good").Return(actor, claims, nil)
		router := newAuthRouter(t, authn)

		var got admin.Actor
		var gotClaims *auth.Claims
		var logActor string
		router.GET("/me", func(c *gin.Context) {
			got, _ = GetActor(c)
			gotClaims = GetJWTClaims(c)
			logActor = logger.GetActorID(c.Request.Context())
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthHeaderKey, "Bearer good")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, actor.ID, got.ID)
		assert.Same(t, claims, gotClaims)
		assert.Equal(t, actor.ID.String(), logActor)
		authn.AssertExpectations(t)
	})
}

func TestGetActor_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetActor(c)
	assert.False(t, ok)
	assert.Nil(t, GetJWTClaims(c))
}
