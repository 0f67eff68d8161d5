package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"employee-coupon/internal/config"
	"employee-coupon/internal/database"
	"employee-coupon/internal/handlers"
	"employee-coupon/internal/kafka"
	"employee-coupon/internal/logger"
	"employee-coupon/internal/models"
	"employee-coupon/internal/redis"
	"employee-coupon/internal/repository"
	"employee-coupon/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Factory functions for external connections, swappable in tests.
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application aggregates the assembled dependencies.
type application struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	redis     *redis.Client
	consumer  *kafka.Consumer
	pruneJob  *services.PruneJob
	mux       *http.ServeMux
	server    *http.Server
	stopPrune context.CancelFunc
	pruneDone chan struct{}
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting employee coupon service...")

	app.startPruneLoop()

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = app.consumer.Stop()
	app.stopPrune()
	<-app.pruneDone
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	_ = app.redis.Close()
	_ = app.db.Close()
	app.log.Info("Server exited")
}

// buildApplication creates all dependencies (swappable in tests).
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	generator, err := services.NewCodeGenerator(&cfg.Coupon)
	if err != nil {
		return nil, fmt.Errorf("code generator: %w", err)
	}

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	ruleRepo := repository.NewRuleRepository(db, log)
	couponRepo := repository.NewCouponRepository(db, log)

	monthLock := services.NewMonthLock(redisClient, log, cfg.Coupon.LockTTLSeconds)
	ruleManager := services.NewMonthlyRuleManager(ruleRepo, couponRepo, monthLock, &cfg.Coupon, log)
	issuanceService := services.NewCouponIssuanceService(generator, ruleManager, log)
	eventHandler := services.NewCustomerEventHandler(&cfg.Coupon, issuanceService, log)
	pruneJob := services.NewPruneJob(&cfg.Coupon, ruleManager, log)

	registerEventHandlers(consumer, eventHandler)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	healthHandler := handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers, kafkaHealthCheck)

	mux := setupRoutes(healthHandler)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     redisClient,
		consumer:  consumer,
		pruneJob:  pruneJob,
		mux:       mux,
		server:    server,
		stopPrune: func() {},
		pruneDone: make(chan struct{}),
	}, nil
}

// setupRoutes configures the ops HTTP endpoints.
func setupRoutes(healthHandler *handlers.HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/health/readiness", healthHandler.Readiness)
	mux.HandleFunc("/health/liveness", healthHandler.Liveness)
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// registerEventHandlers binds customer lifecycle events to the issuance workflow.
func registerEventHandlers(consumer *kafka.Consumer, handler *services.CustomerEventHandler) {
	consumer.RegisterHandler(models.EventTypeCustomerRegistered, func(ctx context.Context, event *models.Event) error {
		return handler.Handle(ctx, event)
	})
}

// startPruneLoop runs the expired rule cleanup on an interval. The first run
// happens at startup so a long-stopped instance catches up immediately.
func (app *application) startPruneLoop() {
	interval := time.Duration(app.cfg.Coupon.PruneIntervalHours) * time.Hour
	if interval <= 0 {
		close(app.pruneDone)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.stopPrune = cancel

	go func() {
		defer close(app.pruneDone)

		if err := app.pruneJob.Run(ctx); err != nil {
			app.log.WithError(err).Error("Initial prune run failed")
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := app.pruneJob.Run(ctx); err != nil {
					app.log.WithError(err).Error("Scheduled prune run failed")
				}
			}
		}
	}()
}
