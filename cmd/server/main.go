package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/config"
	"github.com/smarttransit/network-index/internal/database"
	"github.com/smarttransit/network-index/internal/handlers"
	"github.com/smarttransit/network-index/internal/loader"
	"github.com/smarttransit/network-index/internal/middleware"
	"github.com/smarttransit/network-index/internal/network"
	"github.com/smarttransit/network-index/internal/services"
	"github.com/smarttransit/network-index/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SmartTransit network index")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Live tracking database
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Stop geometry may live in a separate database, e.g. a local SQLite file
	geometryDB := db
	if cfg.Geometry.URL != cfg.Database.URL || cfg.Geometry.Driver != cfg.Database.Driver {
		logger.WithField("driver", cfg.Geometry.Driver).Info("Connecting to geometry database...")
		geometryDB, err = database.NewConnection(cfg.Geometry, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to geometry database: %v", err)
		}
		defer geometryDB.Close()
	}

	// Initialize services
	logger.Info("Initializing services...")
	registry := network.NewRegistry()
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.TokenExpiry)

	refreshService := services.NewRefreshService(
		registry,
		cfg.Feeds,
		loader.NewSource(cfg.Refresh.FetchTimeout, logger),
		loader.ParseGTFS,
		database.NewGeometryRepository(geometryDB),
		cfg.Refresh.Concurrency,
		logger,
	)
	vehicleService := services.NewVehicleService(database.NewVehicleRepository(db), logger)

	// A whole refresh may fetch every feed in turn
	refreshTimeout := cfg.Refresh.FetchTimeout * time.Duration(len(cfg.Feeds)+1)

	limits := services.DefaultRateLimitConfig()
	limits.MaxOperatorRequests = cfg.Refresh.ManualMaxPerOperator
	limits.MaxIPRequests = cfg.Refresh.ManualMaxPerIP
	rateLimitService := services.NewRateLimitService(limits)

	cronService := services.NewCronService(refreshService, cfg.Refresh.Schedule, refreshTimeout, logger).
		WithRateLimitCleanup(rateLimitService)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	if cfg.Refresh.RunOnStartup {
		// Network endpoints answer 503 until this first publish completes
		go cronService.RunRefreshNow()
	}

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}
	router.Use(cors.New(corsConfig(cfg.CORS)))

	routes := &handlers.Router{
		Health:  handlers.NewHealthHandler(db, registry, version, logger),
		Network: handlers.NewNetworkHandler(registry, logger),
		Vehicle: handlers.NewVehicleHandler(vehicleService, registry, logger),
		Admin:   handlers.NewAdminHandler(refreshService, rateLimitService, refreshTimeout, logger),
	}
	routes.RegisterRoutes(router, middleware.AuthMiddleware(jwtService, logger))

	router.GET("/api/v1/admin/cron/status",
		middleware.AuthMiddleware(jwtService, logger),
		middleware.RequireRole(jwt.RoleAdmin),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, cronService.GetJobStatus())
		},
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: refreshTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

func corsConfig(c config.CORSConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:  c.AllowedMethods,
		AllowHeaders:  c.AllowedHeaders,
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(c.AllowedOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = c.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	return corsCfg
}
