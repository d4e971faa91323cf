package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fairwaylabs/caddie-backend/internal/services"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

// VoiceHandler exposes the voice command endpoint
type VoiceHandler struct {
	voice  *services.VoiceCommandService
	logger *logrus.Entry
}

func NewVoiceHandler(voice *services.VoiceCommandService, logger *logrus.Entry) *VoiceHandler {
	return &VoiceHandler{
		voice:  voice,
		logger: logger,
	}
}

// ProcessCommand handles POST /voice/command
func (h *VoiceHandler) ProcessCommand(c *gin.Context) {
	var cmd services.VoiceCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		utils.SendValidationError(c, "Invalid voice command payload", err.Error())
		return
	}

	result, err := h.voice.Process(c.Request.Context(), cmd)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"match_id": cmd.MatchID,
			"user_id":  cmd.UserID,
		}).Warn("Voice command failed")
		utils.SendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, result)
}
