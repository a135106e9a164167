package main

import (
	"context"
	"evently/api/routes"
	"evently/internal/domainevents"
	"evently/internal/monitoring"
	"evently/internal/reservation"
	"evently/internal/shared/config"
	"evently/internal/shared/database"
	"evently/internal/shared/middleware"
	"evently/pkg/breaker"
	"evently/pkg/logger"
	"evently/pkg/ratelimit"
	"evently/pkg/saga"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	// Initialize DB (runs migrations and constraint setup)
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Circuit breaker guarding the fast reservation store
	reservationBreaker := breaker.New("redis_reservations", breaker.Config{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		RecoveryTimeout:  cfg.CircuitBreaker.RecoveryTimeout,
		HalfOpenMaxCalls: cfg.CircuitBreaker.HalfOpenMaxCalls,
	})
	reservationBreaker.OnStateChange(func(name string, from, to breaker.State) {
		appLogger.LogCircuitBreakerStateChange(context.Background(), name, string(from), string(to))
	})

	// Reservation client over Redis, with Lua scripts preloaded so the
	// first booking does not pay the script-load round trip
	reservations := reservation.NewClient(db.GetRedisClient(), reservationBreaker, appLogger)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := reservations.PreloadScripts(ctx); err != nil {
			appLogger.Warn("Failed to preload Redis Lua scripts, loading on first use", slog.Any("error", err))
		} else {
			appLogger.Info("Redis Lua scripts preloaded for atomic seat reservations")
		}
		cancel()
	}

	// Saga orchestrator with durable state in PostgreSQL
	orchestrator := saga.NewOrchestrator(&saga.OrchestratorConfig{
		Store:  saga.NewGormStore(db.GetPostgreSQL()),
		Logger: appLogger,
	})
	defer orchestrator.Stop()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		recovered, err := orchestrator.RecoverIncompleteSagas(ctx)
		if err != nil {
			appLogger.Warn("Saga recovery failed", slog.Any("error", err))
		} else if recovered > 0 {
			appLogger.Info("Recovered incomplete sagas", slog.Int("count", recovered))
		}
		cancel()
	}
	orchestrator.StartSweeper(context.Background(), 10*time.Minute, time.Hour)

	// Domain-event producer: Kafka when enabled, otherwise a no-op
	var producer domainevents.Producer
	if cfg.Kafka.Enabled {
		kafkaProducer, err := domainevents.NewKafkaProducer(&cfg.Kafka, appLogger)
		if err != nil {
			appLogger.Error("Failed to initialize Kafka producer", slog.Any("error", err))
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		producer = kafkaProducer
		appLogger.Info("Kafka producer initialized",
			slog.Any("brokers", cfg.Kafka.Brokers),
			slog.String("topic", cfg.Kafka.BookingsTopic),
		)
	} else {
		producer = domainevents.NoopProducer{}
		appLogger.Info("Kafka disabled, booking events will not be published")
	}

	// In-process metrics collector for the booking path
	collector := monitoring.NewCollector()

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			PublicRequests:  cfg.RateLimit.PublicRequests,
			AuthRequests:    cfg.RateLimit.AuthRequests,
			BookingRequests: cfg.RateLimit.BookingRequests,
			HealthRequests:  cfg.RateLimit.HealthRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Setup router
	router := setupRouter(cfg, db, reservations, orchestrator, collector, producer, rateLimiter, appLogger)

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", cfg.APIVersion),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
			slog.Bool("kafka", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(
	cfg *config.Config,
	db *database.DB,
	reservations *reservation.Client,
	orchestrator *saga.Orchestrator,
	collector *monitoring.Collector,
	producer domainevents.Producer,
	rateLimiter *ratelimit.RateLimiter,
	appLogger *logger.Logger,
) *gin.Engine {
	engine := gin.New()

	// Built-in middleware: request ids, request logs, panic recovery
	engine.Use(middleware.RequestID(), RequestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
	}

	// Initialize and setup routes
	appRouter := routes.NewRouter(cfg, db, reservations, orchestrator, collector, producer, appLogger)
	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
