package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/config"
	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/events"
	"github.com/dafibh/fortuna/vault-backend/internal/events/kafka"
	"github.com/dafibh/fortuna/vault-backend/internal/handler"
	"github.com/dafibh/fortuna/vault-backend/internal/middleware"
	"github.com/dafibh/fortuna/vault-backend/internal/repository"
	"github.com/dafibh/fortuna/vault-backend/internal/repository/storage"
	"github.com/dafibh/fortuna/vault-backend/internal/service"
	"github.com/dafibh/fortuna/vault-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title Fortuna Vault API
// @version 1.0
// @description Single-tenant ledger with continuously compounding interest, savings and EMI goals, and a Delta investment bridge.
// @BasePath /api/v1
func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Storage
	store, err := repository.Open(ctx, cfg.DatabaseURL, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	var archive domain.SnapshotArchive
	if cfg.S3.Enabled() {
		s3Archive, err := storage.NewS3SnapshotArchive(ctx, cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize snapshot archive")
		}
		archive = s3Archive
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Snapshot archive enabled")
	}

	// Load the ledger, finishing any upgrade left in the snapshot slots
	clock := service.SystemClock{}
	migrationService := service.NewMigrationService(store.State, store.Snapshots, archive, clock, log.Logger)
	state, err := migrationService.LoadOrInit(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ledger state")
	}

	// Initialize services
	ledgerService := service.NewLedgerService(state, store.State, clock, log.Logger, service.LedgerConfig{
		CompoundInterval:          cfg.CompoundInterval,
		HeartbeatCompoundInterval: cfg.HeartbeatCompoundInterval,
	})
	goalService := service.NewGoalService(ledgerService)
	investmentService := service.NewInvestmentService(ledgerService)
	automationService := service.NewAutomationService(ledgerService)
	metricsService := service.NewMetricsService(ledgerService)
	exportService := service.NewExportService(ledgerService)

	// Event sinks
	hub := websocket.NewHub()
	sinks := events.Fanout{hub}
	var kafkaPublisher *kafka.Publisher
	if cfg.Kafka.Enabled() {
		kafkaPublisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log.Logger)
		sinks = append(sinks, kafkaPublisher)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka event stream enabled")
	}
	ledgerService.SetEventPublisher(sinks)

	// Heartbeat
	worker := service.NewAutomationWorker(automationService, log.Logger, service.AutomationWorkerConfig{
		Interval: cfg.HeartbeatInterval,
	})
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	worker.Start(workerCtx)

	// Initialize handlers
	handlers := handler.Handlers{
		Ledger:     handler.NewLedgerHandler(ledgerService, exportService),
		Goal:       handler.NewGoalHandler(goalService),
		Investment: handler.NewInvestmentHandler(investmentService),
		Metrics:    handler.NewMetricsHandler(metricsService, automationService),
		WebSocket:  handler.NewWebSocketHandler(hub, cfg.CORSOrigins),
	}

	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		MaxAge:       86400,
	}))

	// Security headers middleware
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":     "ok",
			"storage":    store.Backend,
			"heartbeat":  worker.IsRunning(),
			"ws_clients": hub.ClientCount(),
		})
	})

	// Register API routes
	handler.RegisterRoutes(e, handlers, middleware.RateLimitMiddleware(rateLimiter))

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", store.Backend).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	worker.Stop()

	if err := ledgerService.Flush(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush ledger state")
	}

	if cfg.SnapshotOnShutdown {
		receipt, err := migrationService.CaptureState(shutdownCtx, ledgerService.Snapshot())
		if err != nil {
			log.Error().Err(err).Msg("Failed to capture upgrade snapshot")
		} else {
			log.Info().Str("archive_key", receipt.ArchiveKey).Msg("Upgrade snapshot captured")
		}
	}

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Kafka publisher")
		}
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
