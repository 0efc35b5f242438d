// @title           Community Interaction API
// @version         1.0
// @description     투표, 댓글 스레드, 이벤트 참가자 명단 API
// @termsOfService  http://swagger.io/terms/

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /api/community

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"community-interaction-api/internal/cache"
	"community-interaction-api/internal/client"
	"community-interaction-api/internal/config"
	"community-interaction-api/internal/database"
	"community-interaction-api/internal/events"
	"community-interaction-api/internal/job"
	"community-interaction-api/internal/metrics"
	"community-interaction-api/internal/repository"
	"community-interaction-api/internal/router"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Starting Community Interaction Service",
		zap.String("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("base_path", cfg.Server.BasePath),
	)

	m := metrics.NewWithLogger(logger)

	// startup blocks until the database answers
	startCtx, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute)
	db, err := database.NewWithRetry(startCtx, database.Config{
		DSN:             cfg.Database.GetDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, 20, 5*time.Second, logger)
	cancelStart()
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Database connected successfully")

	if err := database.SafeAutoMigrateWithRetry(db, logger, 3); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.Info("Database migrations completed")

	if err := database.RegisterMetricsCallbacks(db, m); err != nil {
		logger.Warn("Failed to register database metrics callbacks", zap.Error(err))
	}
	statsDone := database.StartDBStatsCollector(db, m, 15*time.Second)
	defer close(statsDone)

	// Redis only backs the tally cache; the service runs without it
	var redisClient *redis.Client
	tallyCache := cache.NewNoopTallyCache()
	if cfg.Cache.Enabled {
		redisClient, err = database.NewRedis(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, tally cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			tallyCache = cache.NewRedisTallyCache(redisClient, cfg.Cache.TallyTTL, logger)
		}
	}

	var publisher events.Publisher = events.NewNoOpPublisher(logger)
	if cfg.Broker.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange, logger)
		if err != nil {
			logger.Warn("Broker unavailable, outbox events stay pending", zap.Error(err))
		} else {
			publisher = amqpPublisher
		}
	}
	defer publisher.Close()

	var notifier client.NotificationClient = client.NewNoOpNotificationClient()
	if cfg.Notification.BaseURL != "" {
		notifier = client.NewNotificationClient(cfg.Notification.BaseURL, cfg.Notification.APIKey, cfg.Notification.Timeout, logger, m)
	}

	transactor := database.NewTransactor(db, logger, database.WithRetryRecorder(m))

	scheduler := cron.New(cron.WithSeconds())
	relayJob := job.NewOutboxRelayJob(repository.NewOutboxRepository(db), publisher, m, logger, cfg.Jobs.OutboxBatchSize, cfg.Jobs.OutboxMaxAttempts)
	if _, err := scheduler.AddJob(cfg.Jobs.OutboxRelaySchedule, relayJob); err != nil {
		logger.Fatal("Invalid outbox relay schedule", zap.String("schedule", cfg.Jobs.OutboxRelaySchedule), zap.Error(err))
	}
	reconcileJob := job.NewReconcileJob(db, transactor, tallyCache, m, logger, false)
	if _, err := scheduler.AddJob(cfg.Jobs.ReconcileSchedule, reconcileJob); err != nil {
		logger.Fatal("Invalid reconcile schedule", zap.String("schedule", cfg.Jobs.ReconcileSchedule), zap.Error(err))
	}
	if _, err := scheduler.AddJob("0 * * * * *", metrics.NewBusinessMetricsCollector(db, m, logger)); err != nil {
		logger.Fatal("Failed to schedule business metrics collector", zap.Error(err))
	}
	scheduler.Start()

	r := router.Setup(router.Config{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTSecret:      cfg.JWT.Secret,
		BasePath:       cfg.Server.BasePath,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        m,
		Transactor:     transactor,
		TallyCache:     tallyCache,
		Notifier:       notifier,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Community Interaction Service started successfully", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// wait for a running relay or reconcile pass to finish
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		logger.Warn("Scheduled jobs did not finish before shutdown timeout")
	}

	logger.Info("Server exited gracefully")
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
