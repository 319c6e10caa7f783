package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/trendhome-fenster/api/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

const (
	apiPrefix         = "/api"
	requestTimeout    = 60 * time.Second
	errorNotFoundCode = "route_not_found"
)

// routeGroup is a subtree under /api. A group with an empty prefix is handed
// the API root itself; the contact endpoints need that because they span
// /contact and /contacts.
type routeGroup struct {
	name     string
	prefix   string
	fallback []string
}

var (
	groupConfiguration = routeGroup{name: "configuration", prefix: "/configuration"}
	groupOrders        = routeGroup{name: "orders", prefix: "/orders"}
	groupAuth          = routeGroup{name: "auth", prefix: "/auth"}
	groupAdmin         = routeGroup{name: "admin", prefix: "/admin"}
	groupContacts      = routeGroup{name: "contacts", fallback: []string{"/contact", "/contacts"}}
)

var routeGroups = []routeGroup{groupConfiguration, groupOrders, groupAuth, groupAdmin, groupContacts}

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	registrars  map[string]RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

// NewRouter builds the chi router: health endpoints at the root, API groups under /api.
// Groups without a registrar answer 501 so clients can tell a missing
// deployment piece from a wrong path.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.Timeout(requestTimeout),
		},
		registrars: make(map[string]RouteRegistrar),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, "no route for "+req.URL.Path, http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed",
			fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(apiPrefix, func(api chi.Router) {
		for _, group := range routeGroups {
			mountGroup(api, group, cfg.registrars[group.name])
		}
	})
	return r
}

func mountGroup(api chi.Router, group routeGroup, registrar RouteRegistrar) {
	if group.prefix == "" {
		if registrar != nil {
			registrar(api)
			return
		}
		for _, path := range group.fallback {
			api.HandleFunc(path, notImplemented(group.name))
		}
		return
	}
	api.Route(group.prefix, func(sub chi.Router) {
		if registrar != nil {
			registrar(sub)
			return
		}
		handler := notImplemented(group.name)
		sub.HandleFunc("/", handler)
		sub.HandleFunc("/*", handler)
	})
}

func notImplemented(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", name+" routes not implemented", http.StatusNotImplemented))
	}
}

func withRegistrar(group routeGroup, reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.registrars[group.name] = reg
	}
}

// WithMiddlewares appends global middleware after the defaults.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithConfigurationRoutes mounts catalog and price preview routes.
func WithConfigurationRoutes(reg RouteRegistrar) Option {
	return withRegistrar(groupConfiguration, reg)
}

func WithOrderRoutes(reg RouteRegistrar) Option { return withRegistrar(groupOrders, reg) }

// WithContactRoutes mounts /contact and /contacts on the API root.
func WithContactRoutes(reg RouteRegistrar) Option { return withRegistrar(groupContacts, reg) }

func WithAuthRoutes(reg RouteRegistrar) Option { return withRegistrar(groupAuth, reg) }

func WithAdminRoutes(reg RouteRegistrar) Option { return withRegistrar(groupAdmin, reg) }
