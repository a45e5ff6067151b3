package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"card-service/internal/cache"
	"card-service/internal/config"
	"card-service/internal/events"
	"card-service/internal/handlers"
	"card-service/internal/middleware"
	"card-service/internal/repository"
	"card-service/internal/scheduler"
	"card-service/internal/services"
	"card-service/internal/workers"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger := logrus.New()
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	switch cfg.LogLevel {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.Info("Starting Card Service...")

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	logger.Info("Connected to database")

	// Initialize Redis-backed cache (optional)
	redisClient := cache.Connect(cfg.RedisURL, logger)
	dashboardCache := cache.New(redisClient, logger)

	// Initialize NATS events publisher (optional)
	publisher, err := events.NewPublisher(logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize events publisher (events won't be published)")
	}
	defer publisher.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	cardRepo := repository.NewCardRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	// Initialize services
	passwordService := services.NewPasswordService()
	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTExpiryHours)
	authService := services.NewAuthService(userRepo, passwordService, jwtService, logger)
	cardService := services.NewCardService(cardRepo, publisher, cfg.PublicBaseURL, logger)
	trackingService := services.NewTrackingService(analyticsRepo, cardRepo, publisher, logger)
	aggregationService := services.NewAggregationService(analyticsRepo, logger)
	dashboardService := services.NewDashboardService(analyticsRepo, cardRepo, dashboardCache, logger)

	// Initialize handlers
	healthHandlers := handlers.NewHealthHandlers(db)
	authHandlers := handlers.NewAuthHandlers(authService, logger)
	cardHandlers := handlers.NewCardHandlers(cardService, logger)
	publicHandlers := handlers.NewPublicHandlers(cardService, trackingService, logger)
	analyticsHandlers := handlers.NewAnalyticsHandlers(dashboardService, aggregationService, logger)

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aggregationScheduler := scheduler.NewAggregationScheduler(aggregationService, cfg.AggregationSchedule, logger)
	if err := aggregationScheduler.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start aggregation scheduler")
	}
	defer aggregationScheduler.Stop()

	cleanupWorker := workers.NewCleanupWorker(analyticsRepo, cfg.EventRetentionDays, cfg.CleanupInterval, logger)
	go cleanupWorker.Start(ctx)

	// Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Apply middleware
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoints
	router.GET("/health", healthHandlers.Health)
	router.GET("/ready", healthHandlers.Ready)

	// Public card resolution by slug
	router.GET("/p/:slug", publicHandlers.GetCardBySlug)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandlers.Register)
			auth.POST("/login", authHandlers.Login)
		}

		// Public event tracking
		api.POST("/track", publicHandlers.TrackEvent)

		// Authenticated surface
		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(jwtService))
		{
			cards := authed.Group("/cards")
			{
				cards.POST("", cardHandlers.Create)
				cards.GET("", cardHandlers.List)
				cards.GET("/:id", cardHandlers.Get)
				cards.PUT("/:id", cardHandlers.Update)
				cards.DELETE("/:id", cardHandlers.Delete)
				cards.POST("/:id/publish", cardHandlers.Publish)
				cards.POST("/:id/unpublish", cardHandlers.Unpublish)
			}

			analytics := authed.Group("/analytics")
			{
				analytics.GET("/overview", analyticsHandlers.GetOverview)
				analytics.GET("/cards/:id", analyticsHandlers.GetCardAnalytics)
				analytics.POST("/aggregate", analyticsHandlers.Aggregate)
			}
		}
	}

	// Start server
	addr := cfg.GetServerAddress()
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.WithField("address", addr).Info("Card Service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	cancel()
	cleanupWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shut down")
	}
}
