package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"listing-sync-service/internal/config"
	"listing-sync-service/internal/events"
	"listing-sync-service/internal/handlers"
	"listing-sync-service/internal/middleware"
	"listing-sync-service/internal/models"
	"listing-sync-service/internal/repository"
	"listing-sync-service/internal/secrets"
	"listing-sync-service/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize logrus logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.SyncJob{},
		&models.SyncLog{},
		&models.PriceVariance{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize GCP Secret Manager
	var secretManager *secrets.GCPSecretManager
	if cfg.GCPProjectID != "" {
		secretManager, err = secrets.NewGCPSecretManager(context.Background(), cfg.GCPProjectID)
		if err != nil {
			log.Printf("Warning: Failed to initialize GCP Secret Manager: %v", err)
		} else {
			log.Println("GCP Secret Manager initialized")
		}
	}

	// Resolve store tokens
	stores := cfg.ResolveStores(context.Background(), secretManager)
	for _, store := range stores {
		if !store.HasToken() {
			logger.WithField("store", store.Code).Warn("Store has no API token; its rows will be skipped")
		}
	}

	// Initialize NATS event publisher (optional - graceful degradation if NATS unavailable)
	var eventPublisher *events.SyncEventPublisher
	if cfg.NATSURL != "" {
		eventPublisher, err = events.NewSyncEventPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("Warning: Failed to initialize NATS event publisher: %v", err)
			log.Println("Continuing without event publishing...")
		} else {
			log.Println("Connected to NATS JetStream for event publishing")
			defer eventPublisher.Close()
		}
	} else {
		log.Println("NATS_URL not configured, event publishing disabled")
	}

	// Initialize repositories and services
	syncRepo := repository.NewSyncRepository(db)
	extractionService := services.NewExtractionService(logger)
	updateService := services.NewUpdateService(syncRepo, stores, cfg, logger)
	if eventPublisher != nil {
		updateService.SetEventPublisher(eventPublisher)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	extractHandler := handlers.NewExtractHandler()
	scrapeHandler := handlers.NewScrapeHandler(extractionService, logger)
	syncHandler := handlers.NewSyncHandler(updateService, extractionService, cfg, logger)
	storeHandler := handlers.NewStoreHandler(updateService, logger)

	router := setupRouter(cfg, logger, healthHandler, extractHandler, scrapeHandler, syncHandler, storeHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port": cfg.Port,
			"env":  cfg.Environment,
		}).Info("Listing sync service starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	logger.Info("Server exited")
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	healthHandler *handlers.HealthHandler,
	extractHandler *handlers.ExtractHandler,
	scrapeHandler *handlers.ScrapeHandler,
	syncHandler *handlers.SyncHandler,
	storeHandler *handlers.StoreHandler,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(middleware.CORS(origins))

	// Health check
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/extract", extractHandler.Extract)
		v1.POST("/extract/batch", extractHandler.ExtractBatch)
		v1.POST("/scrape", scrapeHandler.Scrape)

		syncJobs := v1.Group("/sync")
		{
			syncJobs.POST("", syncHandler.CreateJob)
			syncJobs.GET("", syncHandler.ListJobs)
			syncJobs.GET("/stats", syncHandler.GetStats)
			syncJobs.GET("/:id", syncHandler.GetJob)
			syncJobs.GET("/:id/logs", syncHandler.GetJobLogs)
			syncJobs.POST("/:id/cancel", syncHandler.CancelJob)
			syncJobs.GET("/:id/variances", syncHandler.GetJobVariances)
		}

		stores := v1.Group("/stores")
		{
			stores.GET("", storeHandler.ListStores)
			stores.POST("/:code/test", storeHandler.TestStore)
		}
	}

	return router
}
