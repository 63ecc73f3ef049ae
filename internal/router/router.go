package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/newsletter-api/internal/handler"
	"github.com/jwalitptl/newsletter-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit rate.Limit
	RateBurst int
}

type Router struct {
	engine *gin.Engine
}

func NewRouter(
	cfg Config,
	auth *middleware.AuthMiddleware,
	healthH *handler.HealthHandler,
	authH Handler,
	subscriptionH Handler,
	newsletterH Handler,
	passwordH Handler,
) *Router {
	engine := gin.New()

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  cfg.RateLimit,
		Burst: cfg.RateBurst,
	})

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		limiter.RateLimit(),
	)

	engine.GET("/healthz", healthH.HealthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := engine.Group("/")
	authH.RegisterRoutes(public)
	subscriptionH.RegisterRoutes(public)

	admin := engine.Group("/admin", auth.RequireAuth())
	newsletterH.RegisterRoutes(admin)
	passwordH.RegisterRoutes(admin)

	return &Router{engine: engine}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
