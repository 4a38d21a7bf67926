package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/appointment-api/internal/handler/health"
	"github.com/jwalitptl/appointment-api/internal/handler/prometheus"
	"github.com/jwalitptl/appointment-api/internal/middleware"
	"github.com/jwalitptl/appointment-api/pkg/auth"
)

// Handler is a handler mounted on a single group.
type Handler interface {
	RegisterRoutes(gin.IRouter)
}

// SplitHandler mounts patient-only routes and routes open to any
// authenticated caller.
type SplitHandler interface {
	RegisterRoutes(patients, authenticated gin.IRouter)
}

type Handlers struct {
	Health       *health.Handler
	Metrics      *prometheus.Handler
	Appointment  Handler
	Notification SplitHandler
	Patient      Handler
}

type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	RateClientTTL  time.Duration
	RequestTimeout time.Duration
	CORSConfig     middleware.CORSConfig
	Production     bool
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	if config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		handlers.Metrics.Middleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig(config.Production)),
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(middleware.DefaultSizeLimitConfig()),
		middleware.Timeout(config.RequestTimeout),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
		TTL:   config.RateClientTTL,
	})
	engine.Use(rateLimiter.RateLimit())

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}
	r.setup()
	return r
}

func (r *Router) setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	// Public routes
	r.handlers.Health.RegisterRoutes(api)
	api.GET("/metrics", r.handlers.Metrics.Handler())

	// Protected routes
	authenticated := api.Group("")
	authenticated.Use(r.auth.Authenticate())

	patients := authenticated.Group("")
	patients.Use(r.auth.RequireRole(auth.RolePatient))

	r.handlers.Appointment.RegisterRoutes(patients)
	r.handlers.Notification.RegisterRoutes(patients, authenticated)
	r.handlers.Patient.RegisterRoutes(patients)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
