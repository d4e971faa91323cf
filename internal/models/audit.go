package models

import (
	"time"

	"gorm.io/datatypes"
)

// VoiceCommandLog is the audit trail of processed voice commands. Response
// holds the full serialized result for later replay and debugging.
type VoiceCommandLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	RequestID  string         `gorm:"type:varchar(36);index" json:"request_id"`
	MatchID    uint           `gorm:"index" json:"match_id"`
	UserID     uint           `json:"user_id"`
	Query      string         `json:"query"`
	Intent     Intent         `gorm:"type:varchar(40)" json:"intent"`
	Confidence float64        `json:"confidence"`
	Response   datatypes.JSON `gorm:"type:jsonb" json:"response"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (VoiceCommandLog) TableName() string {
	return "voice_command_logs"
}
