package main

// @title LeadIntake API
// @version 1.0
// @description Buyer lead intake and management API for real-estate teams.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/leadintake/config"
	"github.com/jordanlanch/leadintake/pkg/api/handlers"
	"github.com/jordanlanch/leadintake/pkg/audit"
	"github.com/jordanlanch/leadintake/pkg/auth"
	"github.com/jordanlanch/leadintake/pkg/buyers"
	"github.com/jordanlanch/leadintake/pkg/cache"
	"github.com/jordanlanch/leadintake/pkg/database"
	"github.com/jordanlanch/leadintake/pkg/export"
	"github.com/jordanlanch/leadintake/pkg/importer"
	"github.com/jordanlanch/leadintake/pkg/jobs"
	"github.com/jordanlanch/leadintake/pkg/logger"
	"github.com/jordanlanch/leadintake/pkg/metrics"
	custommiddleware "github.com/jordanlanch/leadintake/pkg/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()
	appLogger := logger.New(cfg.LogLevel, cfg.APIEnvironment)
	appLogger.Info("configuration loaded", "environment", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			appLogger.Warn("failed to initialize sentry", "error", err)
		} else {
			appLogger.Info("sentry initialized", "environment", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		appLogger.Info("sentry disabled (no DSN configured)")
	}

	// Initialize database
	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis cache. The API degrades gracefully without it:
	// searches just skip the cache.
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		appLogger.Warn("redis unavailable, search cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// JWT blacklist for logout. With redis down it is a no-op and tokens
	// only expire naturally.
	tokenBlacklist := auth.NewTokenBlacklist(redisClient)

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()

	// Initialize services
	auditService := audit.NewService(db.DB, appLogger)
	buyerService := buyers.NewService(db.DB, redisClient, auditService, appLogger).
		WithMetrics(prometheusMetrics).
		WithCacheTTL(time.Duration(cfg.SearchCacheTTLSeconds) * time.Second)
	importService := importer.NewService(db.DB, auditService, buyerService, appLogger, cfg.ImportMaxRows)
	exportService := export.NewService(buyerService)

	// Initialize cron manager for the history retention sweep
	cronManager := jobs.NewCronManager(auditService, appLogger, cfg.HistoryRetentionDays)
	if err := cronManager.SetupJobs(); err != nil {
		log.Fatalf("failed to setup cron jobs: %v", err)
	}
	cronManager.Start()
	defer cronManager.Stop()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Initialize rate limiters
	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	defer globalRateLimiter.Stop()
	createRateLimiter := custommiddleware.NewRateLimiter(cfg.CreateRateLimitPerMinute, 3)
	defer createRateLimiter.Stop()
	authRateLimiter := custommiddleware.NewRateLimiter(5, 2)
	defer authRateLimiter.Stop()

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			appLogger.Info("request", "method", c.Request().Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())
	e.Use(globalRateLimiter.Middleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "LeadIntake API",
			"version":     custommiddleware.CurrentAPIVersion.Version,
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		dbStatus := "up"
		if err := db.Ping(ctx); err != nil {
			dbStatus = "down"
		}

		cacheStatus := "up"
		if redisClient == nil {
			cacheStatus = "disabled"
		} else if err := redisClient.Redis.Ping(ctx).Err(); err != nil {
			cacheStatus = "down"
		}

		status := http.StatusOK
		if dbStatus == "down" {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, map[string]any{
			"status":   map[bool]string{true: "healthy", false: "unhealthy"}[status == http.StatusOK],
			"database": dbStatus,
			"cache":    cacheStatus,
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db.DB, cfg, tokenBlacklist)
	buyerHandler := handlers.NewBuyerHandler(buyerService, prometheusMetrics)
	importExportHandler := handlers.NewImportExportHandler(importService, exportService, prometheusMetrics)
	adminHandler := handlers.NewAdminHandler(auditService, cfg.HistoryRetentionDays)

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.Use(custommiddleware.APIVersionMiddleware(custommiddleware.CurrentAPIVersion))

	v1.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, custommiddleware.VersionInfo(custommiddleware.CurrentAPIVersion))
	})

	// Auth routes (public, rate limited)
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register, authRateLimiter.Middleware())
	authGroup.POST("/login", authHandler.Login, authRateLimiter.Middleware())

	// Authenticated routes
	jwtMW := custommiddleware.JWTMiddlewareWithBlacklist(cfg.JWTSecret, tokenBlacklist, db.DB)
	authGroup.GET("/me", authHandler.Me, jwtMW)
	authGroup.POST("/logout", authHandler.Logout, jwtMW)

	buyersGroup := v1.Group("/buyers", jwtMW)
	buyersGroup.GET("", buyerHandler.Search)
	buyersGroup.POST("", buyerHandler.Create, createRateLimiter.Middleware())
	buyersGroup.GET("/export", importExportHandler.ExportCSV)
	buyersGroup.GET("/export/xlsx", importExportHandler.ExportXLSX)
	buyersGroup.GET("/import/template", importExportHandler.Template)
	buyersGroup.POST("/import", importExportHandler.ImportCSV)
	buyersGroup.POST("/import/rows", importExportHandler.ImportRows)
	buyersGroup.GET("/:id", buyerHandler.Get)
	buyersGroup.PUT("/:id", buyerHandler.Update)
	buyersGroup.DELETE("/:id", buyerHandler.Delete)
	buyersGroup.GET("/:id/history", buyerHandler.History)

	// Admin routes
	adminGroup := v1.Group("/admin", jwtMW, custommiddleware.RequireAdmin(db.DB))
	adminGroup.POST("/history/prune", adminHandler.PruneHistory)

	// Start server
	go func() {
		address := cfg.APIHost + ":" + cfg.APIPort
		appLogger.Info("starting server", "address", address)
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		appLogger.Error("forced shutdown", "error", err)
	}
	appLogger.Info("server stopped")
}
