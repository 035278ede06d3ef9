package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ajharbinger/dealflowos/internal/api"
	"github.com/ajharbinger/dealflowos/internal/clock"
	"github.com/ajharbinger/dealflowos/internal/database"
	"github.com/ajharbinger/dealflowos/internal/ingest"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/middleware"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/ajharbinger/dealflowos/internal/scanner"
	"github.com/ajharbinger/dealflowos/internal/services"
	"github.com/ajharbinger/dealflowos/internal/underwriting"
	"github.com/ajharbinger/dealflowos/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

const (
	lockTTLFactor   = 5
	rateLimit       = 100
	rateWindow      = time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.New()
	appLogger := logger.NewLogrusLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.JWTSecret == "" {
		appLogger.Fatal("JWT_SECRET must be set", errors.New("missing JWT_SECRET"))
	}

	// Initialize the store
	var repos *repository.Repositories
	var store api.Pinger
	if cfg.UsesMemoryStore() {
		appLogger.Warn("Using in-memory store; data is lost on restart")
		repos = repository.NewMemoryRepositories()
	} else {
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", err)
		}
		defer db.Close()

		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			appLogger.Fatal("Failed to run migrations", err)
		}
		repos = repository.NewRepositories(db.DB)
		store = db
	}

	clk := clock.New()
	engine := underwriting.NewEngine(cfg.DefaultInvestorMultiplier)
	svc := services.NewServices(services.Dependencies{
		Repos:           repos,
		Clock:           clk,
		Logger:          appLogger,
		Normalizer:      ingest.NewStandardNormalizer(),
		Classifier:      ingest.NewKeywordClassifier(),
		Engine:          engine,
		ReminderOffsets: cfg.DefaultReminderOffsets,
	})

	// Due-scanner
	scanCfg := scanner.Config{
		Interval:    cfg.ScannerInterval,
		GracePeriod: cfg.ScannerGracePeriod,
		BatchLimit:  cfg.ScannerBatchLimit,
	}
	sweeper := scanner.New(repos.Reminder, repos.Event, clk, appLogger, scanCfg)
	scanCfg = sweeper.Config()
	health := scanner.NewHealthMonitor(clk, 10*scanCfg.Interval)

	var redisClient *redis.Client
	if cfg.HasRedis() {
		client, err := scanner.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			appLogger.Fatal("Failed to connect to redis", err)
		}
		defer client.Close()
		redisClient = client
	}

	runnerOpts := []scanner.RunnerOption{
		scanner.WithHealthMonitor(health),
		scanner.WithLogger(appLogger),
	}
	if redisClient != nil {
		locker := scanner.NewRedisLocker(redisClient, scanner.DefaultLockKey, scanCfg.Interval*lockTTLFactor)
		runnerOpts = append(runnerOpts, scanner.WithLocker(locker))
	}
	runner := scanner.NewRunner(sweeper, scanCfg.Interval, runnerOpts...)

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.GetTrustedProxies()); err != nil {
		appLogger.Fatal("Invalid TRUSTED_PROXIES", err)
	}

	r.Use(middleware.LoggingMiddleware(appLogger))
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg))
	r.Use(middleware.InputValidationMiddleware(cfg.MaxRequestSize))

	if cfg.EnableRateLimit {
		var limiter middleware.RateLimiter = middleware.NewMemoryRateLimiter(rateLimit, rateWindow)
		if redisClient != nil {
			limiter = middleware.NewRedisRateLimiter(redisClient, rateLimit, rateWindow)
		}
		r.Use(middleware.RateLimitingMiddleware(limiter, appLogger))
	}

	r.Use(gin.Recovery())

	api.SetupRoutes(r, api.Dependencies{
		Config:   cfg,
		Logger:   appLogger,
		Services: svc,
		Engine:   engine,
		Runner:   runner,
		Health:   health,
		Scanner:  scanCfg,
		Store:    store,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ScannerEnabled {
		if err := runner.Start(ctx); err != nil {
			appLogger.Fatal("Failed to start due-scanner", err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server starting", "port", cfg.Port, "store", cfg.StoreDriver, "scanner", cfg.ScannerEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown failed", err)
	}
	if runner.IsRunning() {
		if err := runner.Stop(); err != nil {
			appLogger.Error("Scanner stop failed", err)
		}
	}
}
