package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fairwaylabs/caddie-backend/internal/api/handlers"
	"github.com/fairwaylabs/caddie-backend/internal/services"
	"github.com/fairwaylabs/caddie-backend/pkg/config"
	"github.com/fairwaylabs/caddie-backend/pkg/database"
	"github.com/fairwaylabs/caddie-backend/pkg/logger"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, db *database.DB, cache *services.CacheService, cfg *config.Config) {
	// Initialize services
	courseSvc := services.NewCourseService(db, cache, logger.WithService("course"))
	matchSvc := services.NewMatchService(db, courseSvc, cache, logger.WithService("match"))
	statsSvc := services.NewPlayerStatsService(db, cfg, cache, logger.WithService("player_stats"))
	recSvc := services.NewRecommendationService(courseSvc, cfg, logger.WithService("recommendation"))
	weatherSvc := services.NewWeatherService(cfg, cache, logger.WithService("weather"))

	var model services.TextModel
	if cfg.AnthropicAPIKey != "" {
		model = services.NewAnthropicClient(cfg, logger.WithService("anthropic"))
	} else {
		logrus.Warn("No Anthropic API key configured, voice intents fall back to shot recommendation")
	}
	classifier := services.NewIntentClassifier(model, logger.WithService("intent_classifier"))

	voiceSvc := services.NewVoiceCommandService(
		db,
		classifier,
		services.NewTerrainResolver(),
		courseSvc,
		matchSvc,
		statsSvc,
		recSvc,
		weatherSvc,
		logger.WithService("voice"),
	)
	if model != nil {
		voiceSvc.WithPhrasing(model)
	}

	// Initialize handlers
	voiceHandler := handlers.NewVoiceHandler(voiceSvc, logger.WithService("voice_handler"))
	golfHandler := handlers.NewGolfHandler(courseSvc, logger.WithService("golf_handler"))
	playerHandler := handlers.NewPlayerHandler(db, statsSvc, logger.WithService("player_handler"))
	matchHandler := handlers.NewMatchHandler(matchSvc, courseSvc, logger.WithService("match_handler"))

	// Voice endpoint
	group.POST("/voice/command", voiceHandler.ProcessCommand)

	// Course and hole geometry endpoints
	group.GET("/courses", golfHandler.ListCourses)
	group.GET("/courses/:id", golfHandler.GetCourse)
	group.GET("/courses/:id/holes/:number", golfHandler.GetHole)
	group.GET("/courses/:id/holes/:number/distance", golfHandler.GetDistance)
	group.GET("/courses/:id/identify-hole", golfHandler.IdentifyHole)

	// Player profile and club statistics endpoints
	group.POST("/players", playerHandler.CreateProfile)
	group.GET("/players/:userId", playerHandler.GetProfile)
	group.GET("/players/:userId/statistics", playerHandler.GetStatistics)
	group.POST("/players/:userId/statistics/seed", playerHandler.SeedStatistics)
	group.POST("/players/:userId/statistics/outcome", playerHandler.RecordOutcome)
	group.GET("/clubs", playerHandler.ListClubs)

	// Match endpoints
	group.POST("/matches", matchHandler.CreateMatch)
	group.POST("/matches/:id/start", matchHandler.StartMatch)
	group.GET("/matches/:id", matchHandler.GetMatch)
	group.GET("/matches/:id/state", matchHandler.GetMatchState)
	group.GET("/matches/:id/leaderboard", matchHandler.GetLeaderboard)
	group.POST("/matches/:id/scores", matchHandler.RecordHoleScore)
	group.PUT("/matches/:id/scores", matchHandler.UpdateHoleScore)
}
