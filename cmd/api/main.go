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
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"quill-sign/signing-portal/signing-portal-backend/internal/auth"
	"quill-sign/signing-portal/signing-portal-backend/internal/config"
	"quill-sign/signing-portal/signing-portal-backend/internal/documents"
	"quill-sign/signing-portal/signing-portal-backend/internal/notifications"
	"quill-sign/signing-portal/signing-portal-backend/internal/settings"
	"quill-sign/signing-portal/signing-portal-backend/internal/signing"
	"quill-sign/signing-portal/signing-portal-backend/pkg/pdf"
	"quill-sign/signing-portal/signing-portal-backend/pkg/storage"
)

func main() {
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Security.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// The notifications email log rides on GORM against the same database
	gormDB, err := gorm.Open(gormpostgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	ctx := context.Background()

	// Storage + email providers
	s3Client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize S3 client", zap.Error(err))
	}
	storageProvider := documents.NewStorageProvider(s3Client, cfg.Storage.Bucket)

	emailChannel, err := notifications.NewSESChannel(ctx, cfg.Email.FromAddress)
	if err != nil {
		logger.Fatal("Failed to initialize SES channel", zap.Error(err))
	}
	notifier, err := notifications.NewService(gormDB, emailChannel, cfg.App.BaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notifications", zap.Error(err))
	}

	// ---------------- AUTH ----------------
	authService := auth.NewService(db, cfg.Security.JWTSecret)
	authHandler := auth.NewHandler(authService)

	// ---------------- DOCUMENTS ----------------
	documentsRepo := documents.NewRepository(db)
	documentsService := documents.NewService(documentsRepo, storageProvider, notifier, logger)
	documentsHandler := documents.NewHandler(documentsService)

	// ---------------- SIGNING ----------------
	aggregator := signing.NewAggregator(documentsRepo)
	signingService := signing.NewService(documentsRepo, aggregator, notifier, storageProvider, pdf.NewGenerator(), logger)
	signingHandler := signing.NewHandler(signingService)

	// ---------------- SETTINGS ----------------
	settingsRepo := settings.NewRepository(db)
	settingsService := settings.NewService(settingsRepo)
	settingsHandler := settings.NewHandler(settingsService)

	// Setup Router
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	{
		auth.RegisterRoutes(api, authHandler)

		authed := api.Group("", auth.RequireAuth(authService))
		documentsHandler.RegisterRoutes(authed)
		settingsHandler.RegisterRoutes(authed.Group("/settings"))
	}

	// Signing links carry their own credential; a session is only consulted
	// when the document's auth rules require one.
	sign := router.Group("/sign", auth.OptionalAuth(authService))
	signingHandler.RegisterRoutes(sign)

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
