package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(body string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, body)
	}
}

// asRole runs the request as a staff member holding role's permissions
func asRole(role identity.AdminRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ActorKey, admin.Actor{
			ID:          uuid.New(),
			Role:        role,
			Permissions: identity.PermissionsFor(role),
		})
		c.Next()
	}
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine).Use(func(c *gin.Context) {
		c.Header("X-Api", "yes")
		c.Next()
	})

	g := NewDomainGroup("test", "/test")
	g.GET("/ping", "", ok("pong"))
	r.Register(g).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/test/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-Api"))
}

func TestDomainGroup(t *testing.T) {
	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.GET("/items", "", ok("list")).
			POST("/items", "", ok("create")).
			PATCH("/items/:id", "", ok("patch")).
			DELETE("/items/:id", "", ok("delete"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		cases := []struct {
			method, path, body string
		}{
			{http.MethodGet, "/api/v1/test/items", "list"},
			{http.MethodPost, "/api/v1/test/items", "create"},
			{http.MethodPatch, "/api/v1/test/items/1", "patch"},
			{http.MethodDelete, "/api/v1/test/items/1", "delete"},
		}
		for _, tc := range cases {
			w := serve(engine, tc.method, tc.path)
			assert.Equal(t, http.StatusOK, w.Code, "%s %s", tc.method, tc.path)
			assert.Equal(t, tc.body, w.Body.String())
		}
	})

	t.Run("read permission is enforced", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("admin", "/admin").Use(asRole(identity.RoleMarketing))
		g.GET("/orders", identity.PermOrderView, ok("orders"))
		g.GET("/me", "", ok("me"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/admin/orders").Code)
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/admin/me").Code)
	})

	t.Run("mutation permission is left to the handler", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("admin", "/admin").Use(asRole(identity.RoleMarketing))
		g.PATCH("/orders/:order_no", identity.PermOrderUpdate, ok("handled"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodPatch, "/api/v1/admin/orders/ORD-1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "handled", w.Body.String())
	})

	t.Run("denials reach the observer", func(t *testing.T) {
		obs := &denialCounter{}
		engine := gin.New()
		g := NewDomainGroup("admin", "/admin").
			WithPermissionConfig(middleware.PermissionConfig{Observer: obs}).
			Use(asRole(identity.RoleOps))
		sub := g.Group("audit", "/audit")
		sub.GET("/logs", identity.PermAuditLogView, ok("logs"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/admin/audit/logs").Code)
		assert.Equal(t, []identity.Permission{identity.PermAuditLogView}, obs.denied)
	})
}

type denialCounter struct {
	denied []identity.Permission
}

func (d *denialCounter) AccessDenied(p identity.Permission) {
	d.denied = append(d.denied, p)
}

func TestRouterRoutes(t *testing.T) {
	r := NewRouter(gin.New())

	auth := NewDomainGroup("auth", "/auth")
	auth.POST("/login", "", ok("login"))

	adm := NewDomainGroup("admin", "/admin")
	adm.GET("/orders", identity.PermOrderView, ok("list"))
	adm.Group("settlements", "/settlements").
		POST("/generate", identity.PermSettlementUpdate, ok("generate"))

	r.Register(auth).Register(adm)

	assert.Equal(t, []RouteInfo{
		{Group: "auth", Method: http.MethodPost, Path: "/api/v1/auth/login"},
		{Group: "admin", Method: http.MethodGet, Path: "/api/v1/admin/orders", Permission: identity.PermOrderView},
		{Group: "settlements", Method: http.MethodPost, Path: "/api/v1/admin/settlements/generate", Permission: identity.PermSettlementUpdate},
	}, r.Routes())
}

func TestJoinRoute(t *testing.T) {
	assert.Equal(t, "/api/v1/admin", joinRoute("/api/v1/admin", ""))
	assert.Equal(t, "/api/v1/admin/orders", joinRoute("/api/v1/admin", "/orders"))
	assert.Equal(t, "/api/v1/admin/orders/", joinRoute("/api/v1/admin", "/orders/"))
}
