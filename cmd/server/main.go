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
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/fairwaylabs/caddie-backend/internal/api"
	"github.com/fairwaylabs/caddie-backend/internal/api/handlers"
	"github.com/fairwaylabs/caddie-backend/internal/api/middleware"
	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/internal/services"
	"github.com/fairwaylabs/caddie-backend/pkg/config"
	"github.com/fairwaylabs/caddie-backend/pkg/database"
	"github.com/fairwaylabs/caddie-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	log := logger.InitLogger("", cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	cacheService := services.NewCacheService(redisClient)

	// Background jobs: keep hole geometry hot in the cache so voice commands
	// never wait on a cold read mid-round
	var scheduler *cron.Cron
	if cfg.EnableBackgroundJobs {
		courseSvc := services.NewCourseService(db, cacheService, logger.WithService("geometry_warmup"))
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.GeometryWarmupSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := courseSvc.WarmGeometryCache(ctx); err != nil {
				log.WithError(err).Warn("Geometry cache warmup failed")
			}
		}); err != nil {
			log.Fatalf("Invalid geometry warmup schedule %q: %v", cfg.GeometryWarmupSchedule, err)
		}
		if _, err := scheduler.AddFunc("@daily", func() {
			cutoff := time.Now().AddDate(0, 0, -30)
			res := db.Where("created_at < ?", cutoff).Delete(&models.VoiceCommandLog{})
			if res.Error != nil {
				log.WithError(res.Error).Warn("Voice command log cleanup failed")
			} else if res.RowsAffected > 0 {
				log.WithField("deleted", res.RowsAffected).Info("Pruned old voice command logs")
			}
		}); err != nil {
			log.Fatalf("Failed to schedule voice log cleanup: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Health endpoints at root level
	healthHandler := handlers.NewHealthHandler(db, cacheService)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	// API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, db, cacheService, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
