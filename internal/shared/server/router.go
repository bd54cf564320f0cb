package server

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"resumegen-backend/internal/health"
	"resumegen-backend/internal/shared/metrics"
	"resumegen-backend/internal/shared/server/middleware"
)

// RouteRegistrar attaches a feature's routes to the API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// DevRegistrar attaches development-only helpers.
type DevRegistrar interface {
	RegisterDevRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries everything the HTTP router needs.
type RouterDeps struct {
	Env         string
	CORSOrigins []string
	Health      *health.Handler
	API         []RouteRegistrar
	Dev         []DevRegistrar
}

// Rate limit groups.
const (
	groupGenerate = "GENERATE"
	groupUpload   = "UPLOAD"
)

func rateLimitConfig() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			groupGenerate:                    {Rate: rate.Limit(0.5), Burst: 3},
			groupUpload:                      {Rate: rate.Limit(1), Burst: 5},
			middleware.DefaultRateLimitGroup: {Rate: rate.Limit(25), Burst: 50},
		},
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method != "POST" {
				return ""
			}
			switch c.FullPath() {
			case "/api/v1/generations":
				return groupGenerate
			case "/api/v1/documents":
				return groupUpload
			}
			return ""
		},
	}
}

// NewRouter assembles the middleware chain and mounts all routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.CORSOrigins),
		metrics.HTTP(),
	)

	router.GET("/health", deps.Health.Liveness)
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api/v1", middleware.Auth(deps.Env), middleware.RateLimit(rateLimitConfig()))
	api.GET("/status", deps.Health.Readiness)
	for _, reg := range deps.API {
		reg.RegisterRoutes(api)
	}

	if deps.Env != "production" && len(deps.Dev) > 0 {
		dev := api.Group("/dev")
		for _, reg := range deps.Dev {
			reg.RegisterDevRoutes(dev)
		}
	}

	return router
}
