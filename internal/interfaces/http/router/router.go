package router

import (
	"net/http"

	"github.com/clinic-ledger/backend/internal/infrastructure/logger"
	"github.com/clinic-ledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config assembles the engine's middleware chain
type Config struct {
	Logger      *zap.Logger
	Tracing     middleware.TracingConfig
	CORS        middleware.CORSConfig
	MaxBodySize int64
	// Auth guards every /api route. Nil leaves the API unauthenticated,
	// which only tests should do.
	Auth           gin.HandlerFunc
	HTTPMetrics    *middleware.HTTPMetrics
	MetricsHandler http.Handler
	Health         gin.HandlerFunc
	// APIDocs serves the Swagger UI under /swagger/. Nil disables it.
	APIDocs        gin.HandlerFunc
	TrustedProxies []string
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	config     Config
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a gin engine with the standard middleware chain
func NewRouter(cfg Config, opts ...RouterOption) (*Router, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.Tracing(cfg.Tracing),
		logger.GinMiddleware(cfg.Logger),
		middleware.Secure(),
		middleware.CORS(cfg.CORS),
		middleware.BodyLimit(cfg.MaxBodySize),
	)
	if cfg.HTTPMetrics != nil {
		engine.Use(cfg.HTTPMetrics.Middleware())
	}

	r := &Router{
		engine:     engine,
		config:     cfg,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers the public endpoints and every registrar under /api/<version>
func (r *Router) Setup() *gin.Engine {
	if r.config.Health != nil {
		r.engine.GET("/health", r.config.Health)
	}
	if r.config.MetricsHandler != nil {
		r.engine.GET("/metrics", gin.WrapH(r.config.MetricsHandler))
	}
	if r.config.APIDocs != nil {
		r.engine.GET("/swagger/*any", r.config.APIDocs)
	}

	api := r.engine.Group("/api/" + r.apiVersion)
	if r.config.Auth != nil {
		api.Use(r.config.Auth)
	}
	api.Use(middleware.SpanEnricher())

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}

	return r.engine
}

// Engine returns the underlying gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
