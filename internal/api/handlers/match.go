package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fairwaylabs/caddie-backend/internal/services"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

// MatchHandler manages match lifecycle and scoring endpoints
type MatchHandler struct {
	matches *services.MatchService
	course  *services.CourseService
	logger  *logrus.Entry
}

func NewMatchHandler(matches *services.MatchService, course *services.CourseService, logger *logrus.Entry) *MatchHandler {
	return &MatchHandler{
		matches: matches,
		course:  course,
		logger:  logger,
	}
}

type createMatchRequest struct {
	CourseID     uint   `json:"course_id" binding:"required"`
	UserIDs      []uint `json:"user_ids" binding:"required"`
	StartingHole int    `json:"starting_hole"`
}

// CreateMatch handles POST /matches
func (h *MatchHandler) CreateMatch(c *gin.Context) {
	var req createMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid match payload", err.Error())
		return
	}
	if req.StartingHole == 0 {
		req.StartingHole = 1
	}

	match, err := h.matches.CreateMatch(c.Request.Context(), req.CourseID, req.UserIDs, req.StartingHole)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, match)
}

// StartMatch handles POST /matches/:id/start
func (h *MatchHandler) StartMatch(c *gin.Context) {
	matchID, err := parseUintParam(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid match id", err.Error())
		return
	}

	match, err := h.matches.StartMatch(c.Request.Context(), matchID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, match)
}

// GetMatch handles GET /matches/:id
func (h *MatchHandler) GetMatch(c *gin.Context) {
	matchID, err := parseUintParam(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid match id", err.Error())
		return
	}

	match, err := h.matches.GetMatch(c.Request.Context(), matchID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, match)
}

// GetMatchState handles GET /matches/:id/state?user_id=
func (h *MatchHandler) GetMatchState(c *gin.Context) {
	matchID, err := parseUintParam(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid match id", err.Error())
		return
	}
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid user id", err.Error())
		return
	}

	state, err := h.matches.GetMatchState(c.Request.Context(), matchID, uint(userID))
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, state)
}

// GetLeaderboard handles GET /matches/:id/leaderboard
func (h *MatchHandler) GetLeaderboard(c *gin.Context) {
	matchID, err := parseUintParam(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid match id", err.Error())
		return
	}

	entries, err := h.matches.Leaderboard(c.Request.Context(), matchID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"leaderboard": entries})
}

type holeScoreRequest struct {
	UserID     uint `json:"user_id" binding:"required"`
	HoleNumber int  `json:"hole_number" binding:"required"`
	Strokes    int  `json:"strokes" binding:"required"`
}

// RecordHoleScore handles POST /matches/:id/scores
func (h *MatchHandler) RecordHoleScore(c *gin.Context) {
	matchID, err := parseUintParam(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid match id", err.Error())
		return
	}

	var req holeScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid score payload", err.Error())
		return
	}

	match, err := h.matches.GetMatch(c.Request.Context(), matchID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	hole, err := h.course.GetHoleByNumber(c.Request.Context(), match.CourseID, req.HoleNumber)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	score, err := h.matches.RecordHoleScore(c.Request.Context(), matchID, req.UserID, hole, req.Strokes)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, score)
}

// UpdateHoleScore handles PUT /matches/:id/scores
func (h *MatchHandler) UpdateHoleScore(c *gin.Context) {
	matchID, err := parseUintParam(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid match id", err.Error())
		return
	}

	var req holeScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid score payload", err.Error())
		return
	}

	match, err := h.matches.GetMatch(c.Request.Context(), matchID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	hole, err := h.course.GetHoleByNumber(c.Request.Context(), match.CourseID, req.HoleNumber)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	score, err := h.matches.UpdateHoleScore(c.Request.Context(), matchID, req.UserID, hole, req.Strokes)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, score)
}
