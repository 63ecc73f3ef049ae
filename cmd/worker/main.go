package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/newsletter-api/internal/config"
	"github.com/jwalitptl/newsletter-api/internal/email"
	"github.com/jwalitptl/newsletter-api/internal/repository/postgres"
	"github.com/jwalitptl/newsletter-api/internal/worker"
	"github.com/jwalitptl/newsletter-api/pkg/logger"
	redisBroker "github.com/jwalitptl/newsletter-api/pkg/messaging/redis"
	"github.com/jwalitptl/newsletter-api/pkg/metrics"
)

// envOverrides lets deployments retune the delivery loop without touching the
// shared config file.
type envOverrides struct {
	Workers      int           `envconfig:"DELIVERY_WORKERS"`
	PollInterval time.Duration `envconfig:"DELIVERY_POLL_INTERVAL"`
	MaxRetries   int           `envconfig:"DELIVERY_MAX_RETRIES"`
	BaseDelay    time.Duration `envconfig:"DELIVERY_BASE_DELAY"`
	MaxDelay     time.Duration `envconfig:"DELIVERY_MAX_DELAY"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var overrides envOverrides
	if err := envconfig.Process("", &overrides); err != nil {
		log.Fatal().Err(err).Msg("failed to read env overrides")
	}
	applyOverrides(&cfg.Delivery, overrides)

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

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

	baseRepo := postgres.NewBaseRepository(db)
	queueRepo := postgres.NewDeliveryQueueRepository(baseRepo)
	sender := email.NewSMTPSender(cfg.SMTP)
	appMetrics := metrics.New("newsletter_worker")

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < cfg.Delivery.Workers; i++ {
		w := worker.NewDeliveryWorker(
			queueRepo,
			sender,
			broker,
			worker.DeliveryWorkerConfig{
				PollInterval: cfg.Delivery.PollInterval,
				MaxRetries:   cfg.Delivery.MaxRetries,
				BaseDelay:    cfg.Delivery.BaseDelay,
				MaxDelay:     cfg.Delivery.MaxDelay,
			},
			appLogger.WithFields(map[string]interface{}{"worker": i}),
			appMetrics,
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Start(ctx)
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down delivery workers")
	cancel()
	wg.Wait()
}

func applyOverrides(cfg *config.DeliveryConfig, o envOverrides) {
	if o.Workers > 0 {
		cfg.Workers = o.Workers
	}
	if o.PollInterval > 0 {
		cfg.PollInterval = o.PollInterval
	}
	if o.MaxRetries > 0 {
		cfg.MaxRetries = o.MaxRetries
	}
	if o.BaseDelay > 0 {
		cfg.BaseDelay = o.BaseDelay
	}
	if o.MaxDelay > 0 {
		cfg.MaxDelay = o.MaxDelay
	}
}

func setupHealthCheck(logger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			logger.Error(err, "health check server failed")
		}
	}()
}
