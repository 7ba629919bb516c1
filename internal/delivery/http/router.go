package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/delivery/http/middleware"
)

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(
	resolver BundleResolver,
	redis *goredis.Client,
	logger *zap.Logger,
	rateLimitPerMin int,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(logger))

	// Metrics endpoint (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check (no rate limiting)
	healthHandler := NewHealthHandler(redis, logger)
	router.GET("/api/healthz", healthHandler.Health)

	// Step status polled by clients while a redeem job runs
	jobHandler := NewJobHandler(resolver, logger)
	router.GET("/api/event/:policy/job/:jobId/step/:stepId", jobHandler.StepStatus)

	// Policy-scoped registration routes (with rate limiting)
	policyHandler := NewPolicyHandler(resolver, logger)
	regHandler := NewRegistrationHandler(resolver, logger)

	limited := router.Group("/", middleware.RateLimiter(rateLimitPerMin))
	{
		limited.GET("/:policy", policyHandler.Get)
		limited.GET("/:policy/:address/current", regHandler.Current)
		limited.GET("/:policy/:address/:domain/check", regHandler.Check)
		limited.POST("/:policy/:address/:domain/register", regHandler.Register)
	}

	return router
}
