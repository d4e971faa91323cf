package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/internal/services"
	"github.com/fairwaylabs/caddie-backend/pkg/database"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

// PlayerHandler manages player profiles and their club statistics
type PlayerHandler struct {
	db     *database.DB
	stats  *services.PlayerStatsService
	logger *logrus.Entry
}

func NewPlayerHandler(db *database.DB, stats *services.PlayerStatsService, logger *logrus.Entry) *PlayerHandler {
	return &PlayerHandler{
		db:     db,
		stats:  stats,
		logger: logger,
	}
}

type createProfileRequest struct {
	UserID      uint              `json:"user_id" binding:"required"`
	DisplayName string            `json:"display_name"`
	Gender      models.Gender     `json:"gender" binding:"required"`
	SkillLevel  models.SkillLevel `json:"skill_level" binding:"required"`
	Handicap    *float64          `json:"handicap"`
}

// CreateProfile handles POST /players
func (h *PlayerHandler) CreateProfile(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid profile payload", err.Error())
		return
	}

	profile := models.PlayerProfile{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Gender:      req.Gender,
		SkillLevel:  req.SkillLevel,
		Handicap:    req.Handicap,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&profile).Error; err != nil {
		h.logger.WithError(err).Warn("Failed to create player profile")
		utils.SendConflict(c, "A profile already exists for this user")
		return
	}

	// a fresh profile starts from the defaults for its gender and level
	if _, err := h.stats.SeedDefaults(c.Request.Context(), profile.ID); err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, profile)
}

// GetProfile handles GET /players/:userId
func (h *PlayerHandler) GetProfile(c *gin.Context) {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		utils.SendValidationError(c, "Invalid user id", err.Error())
		return
	}

	profile, err := h.stats.GetProfileByUser(c.Request.Context(), userID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, profile)
}

// GetStatistics handles GET /players/:userId/statistics
func (h *PlayerHandler) GetStatistics(c *gin.Context) {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		utils.SendValidationError(c, "Invalid user id", err.Error())
		return
	}

	profile, err := h.stats.GetProfileByUser(c.Request.Context(), userID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	stats, err := h.stats.GetStatistics(c.Request.Context(), profile.ID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"profile_id": profile.ID, "statistics": stats})
}

// SeedStatistics handles POST /players/:userId/statistics/seed
func (h *PlayerHandler) SeedStatistics(c *gin.Context) {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		utils.SendValidationError(c, "Invalid user id", err.Error())
		return
	}

	profile, err := h.stats.GetProfileByUser(c.Request.Context(), userID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	stats, err := h.stats.SeedDefaults(c.Request.Context(), profile.ID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"profile_id": profile.ID, "statistics": stats})
}

type recordOutcomeRequest struct {
	ClubID       uint    `json:"club_id" binding:"required"`
	TargetMeters float64 `json:"target_meters" binding:"required"`
	ActualMeters float64 `json:"actual_meters" binding:"required"`
}

// RecordOutcome handles POST /players/:userId/statistics/outcome
func (h *PlayerHandler) RecordOutcome(c *gin.Context) {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		utils.SendValidationError(c, "Invalid user id", err.Error())
		return
	}

	var req recordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid outcome payload", err.Error())
		return
	}

	profile, err := h.stats.GetProfileByUser(c.Request.Context(), userID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	stat, err := h.stats.RecordOutcome(c.Request.Context(), profile.ID, req.ClubID, req.TargetMeters, req.ActualMeters)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, stat)
}

// ListClubs handles GET /clubs
func (h *PlayerHandler) ListClubs(c *gin.Context) {
	clubs, err := h.stats.ListClubs(c.Request.Context())
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"clubs": clubs})
}
