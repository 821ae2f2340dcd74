package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atsbeaters-backend/internal/services/health"
	"atsbeaters-backend/internal/shared/config"
	"atsbeaters-backend/internal/shared/metrics"
	"atsbeaters-backend/internal/shared/server/middleware"
	"atsbeaters-backend/internal/shared/server/respond"
)

const runsRateGroup = "RUNS"

// RouteRegistrar registers a handler's routes on an API group.
type RouteRegistrar interface {
	RegisterRoutes(r gin.IRouter)
}

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config      config.Config
	RunsHandler RouteRegistrar
	Health      *health.Service
	Limiter     *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		body, ok := deps.Health.Status(c.Request.Context())
		if !ok {
			respond.JSON(c, http.StatusServiceUnavailable, body)
			return
		}
		respond.JSON(c, http.StatusOK, body)
	})

	runs := api.Group("")
	runs.Use(middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: "DEFAULT",
		Limiter:      deps.Limiter,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost {
				return runsRateGroup
			}
			return "DEFAULT"
		},
		Rules: map[string]middleware.RateLimitRule{
			runsRateGroup: {Rate: 0.2, Burst: 5},
		},
	}))
	if deps.RunsHandler != nil {
		deps.RunsHandler.RegisterRoutes(runs)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
