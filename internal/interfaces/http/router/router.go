package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouteInfo describes one registered route. Permission is empty for public
// and authenticated-only routes.
type RouteInfo struct {
	Group      string
	Method     string
	Path       string
	Permission identity.Permission
}

// routeLister is implemented by registrars that can describe their routes
type routeLister interface {
	routeInfo(prefix string) []RouteInfo
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
	middleware []gin.HandlerFunc
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Use adds middleware to the versioned API group
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.basePath())
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Routes lists the versioned API routes with the permission each requires
func (r *Router) Routes() []RouteInfo {
	var routes []RouteInfo
	for _, registrar := range r.registrars {
		if l, ok := registrar.(routeLister); ok {
			routes = append(routes, l.routeInfo(r.basePath())...)
		}
	}
	return routes
}

func (r *Router) basePath() string {
	return "/api/" + r.apiVersion
}

// DomainGroup creates a route group for a specific domain
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
	permCfg    middleware.PermissionConfig
}

// routeDefinition is one route of a group; enforce installs
// RequirePermission in front of the handlers
type routeDefinition struct {
	method     string
	path       string
	handlers   []gin.HandlerFunc
	permission identity.Permission
	enforce    bool
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{
		name:       name,
		prefix:     prefix,
		routes:     make([]routeDefinition, 0),
		subgroups:  make([]*DomainGroup, 0),
		middleware: make([]gin.HandlerFunc, 0),
	}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// WithPermissionConfig sets the config used for read permission checks
func (dg *DomainGroup) WithPermissionConfig(cfg middleware.PermissionConfig) *DomainGroup {
	dg.permCfg = cfg
	return dg
}

// GET registers a read route. A non-empty permission is checked before the
// handlers run.
func (dg *DomainGroup) GET(path string, permission identity.Permission, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodGet, path, permission, permission != "", handlers)
}

// POST registers a mutation route. Mutation permissions are checked by the
// admin pipeline so that denials reach the audit log; the permission given
// here is recorded for Routes.
func (dg *DomainGroup) POST(path string, permission identity.Permission, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPost, path, permission, false, handlers)
}

// PATCH registers a mutation route, see POST
func (dg *DomainGroup) PATCH(path string, permission identity.Permission, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPatch, path, permission, false, handlers)
}

// DELETE registers a mutation route, see POST
func (dg *DomainGroup) DELETE(path string, permission identity.Permission, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodDelete, path, permission, false, handlers)
}

func (dg *DomainGroup) add(method, path string, permission identity.Permission, enforce bool, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{
		method:     method,
		path:       path,
		handlers:   handlers,
		permission: permission,
		enforce:    enforce,
	})
	return dg
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	subgroup.permCfg = dg.permCfg
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar interface
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)

	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}

	for _, route := range dg.routes {
		handlers := route.handlers
		if route.enforce {
			handlers = append([]gin.HandlerFunc{
				middleware.RequirePermissionWithConfig(route.permission, dg.permCfg),
			}, handlers...)
		}
		group.Handle(route.method, route.path, handlers...)
	}

	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

func (dg *DomainGroup) routeInfo(prefix string) []RouteInfo {
	base := path.Join(prefix, dg.prefix)
	routes := make([]RouteInfo, 0, len(dg.routes))
	for _, route := range dg.routes {
		routes = append(routes, RouteInfo{
			Group:      dg.name,
			Method:     route.method,
			Path:       joinRoute(base, route.path),
			Permission: route.permission,
		})
	}
	for _, subgroup := range dg.subgroups {
		routes = append(routes, subgroup.routeInfo(base)...)
	}
	return routes
}

// joinRoute joins like gin does, keeping a trailing slash
func joinRoute(base, relative string) string {
	if relative == "" {
		return base
	}
	joined := path.Join(base, relative)
	if relative[len(relative)-1] == '/' && joined[len(joined)-1] != '/' {
		return joined + "/"
	}
	return joined
}
