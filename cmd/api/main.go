package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/newsletter-api/internal/config"
	"github.com/jwalitptl/newsletter-api/internal/email"
	"github.com/jwalitptl/newsletter-api/internal/handler"
	authHandler "github.com/jwalitptl/newsletter-api/internal/handler/auth"
	newsletterHandler "github.com/jwalitptl/newsletter-api/internal/handler/newsletter"
	subscriptionHandler "github.com/jwalitptl/newsletter-api/internal/handler/subscription"
	"github.com/jwalitptl/newsletter-api/internal/middleware"
	"github.com/jwalitptl/newsletter-api/internal/model"
	"github.com/jwalitptl/newsletter-api/internal/repository"
	"github.com/jwalitptl/newsletter-api/internal/repository/postgres"
	"github.com/jwalitptl/newsletter-api/internal/router"
	authService "github.com/jwalitptl/newsletter-api/internal/service/auth"
	idempotencyService "github.com/jwalitptl/newsletter-api/internal/service/idempotency"
	newsletterService "github.com/jwalitptl/newsletter-api/internal/service/newsletter"
	subscriptionService "github.com/jwalitptl/newsletter-api/internal/service/subscription"
	"github.com/jwalitptl/newsletter-api/pkg/auth"
	"github.com/jwalitptl/newsletter-api/pkg/logger"
	redisBroker "github.com/jwalitptl/newsletter-api/pkg/messaging/redis"
	"github.com/jwalitptl/newsletter-api/pkg/metrics"
	"github.com/jwalitptl/newsletter-api/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis broker
	broker, err := redisBroker.NewRedisBroker(redisBroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Initialize repositories
	baseRepo := postgres.NewBaseRepository(db)
	idempotencyRepo := postgres.NewIdempotencyRepository(baseRepo)
	issueRepo := postgres.NewIssueRepository(baseRepo)
	subscriptionRepo := postgres.NewSubscriptionRepository(baseRepo)
	userRepo := postgres.NewUserRepository(baseRepo)

	// Initialize services
	appMetrics := metrics.New("newsletter")
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	sender := email.NewSMTPSender(cfg.SMTP)
	authSvc := authService.NewService(userRepo, hasher, jwtSvc)
	coordinator := idempotencyService.NewService(idempotencyRepo, appLogger)
	newsletterSvc := newsletterService.NewService(coordinator, issueRepo, subscriptionRepo, broker, appLogger, appMetrics)
	subscriptionSvc := subscriptionService.NewService(subscriptionRepo, sender, cfg.Server.BaseURL, appLogger)

	if err := ensureAdminUser(context.Background(), userRepo, hasher, cfg.Auth); err != nil {
		log.Fatal().Err(err).Msg("failed to provision admin user")
	}

	// Initialize router
	r := router.NewRouter(
		router.Config{
			RateLimit: rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst: cfg.RateLimit.Burst,
		},
		middleware.NewAuthMiddleware(jwtSvc),
		handler.NewHealthHandler(db),
		authHandler.NewHandler(authSvc),
		subscriptionHandler.NewHandler(subscriptionSvc),
		newsletterHandler.NewHandler(newsletterSvc),
		authHandler.NewPasswordHandler(authSvc),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info("starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down API server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error(err, "forced shutdown")
	}
}

// ensureAdminUser creates the configured admin account on first startup so
// the admin surface is reachable on a fresh database. Existing accounts are
// left untouched.
func ensureAdminUser(ctx context.Context, users repository.UserRepository, hasher security.PasswordHasher, cfg config.AuthConfig) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	existing, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	return users.Create(ctx, &model.User{Email: cfg.AdminEmail, PasswordHash: hash})
}
