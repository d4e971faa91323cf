package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatchStatus is the lifecycle state of a match
type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchAbandoned  MatchStatus = "abandoned"
)

// Match is one round of golf on a course, played by one or more players
type Match struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	CourseID  uint        `gorm:"not null;index" json:"course_id"`
	Status    MatchStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	StartedAt *time.Time  `json:"started_at,omitempty"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	Course  *Course       `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Players []MatchPlayer `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE" json:"players,omitempty"`
}

func (Match) TableName() string {
	return "matches"
}

// MatchPlayer links a user to a match and records the hole they teed off on
type MatchPlayer struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	MatchID      uint `gorm:"not null;uniqueIndex:idx_match_user,priority:1" json:"match_id"`
	UserID       uint `gorm:"not null;uniqueIndex:idx_match_user,priority:2" json:"user_id"`
	StartingHole int  `gorm:"not null;default:1" json:"starting_hole"`
}

func (MatchPlayer) TableName() string {
	return "match_players"
}

// HoleScore is a player's running score on one hole of a match. Strokes is
// incremented during play and frozen when Completed is set.
type HoleScore struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	MatchID     uint        `gorm:"not null;uniqueIndex:idx_match_user_hole,priority:1" json:"match_id"`
	UserID      uint        `gorm:"not null;uniqueIndex:idx_match_user_hole,priority:2" json:"user_id"`
	HoleID      uint        `gorm:"not null;uniqueIndex:idx_match_user_hole,priority:3" json:"hole_id"`
	HoleNumber  int         `gorm:"not null" json:"hole_number"`
	Strokes     int         `gorm:"not null;default:0" json:"strokes"`
	Completed   bool        `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (HoleScore) TableName() string {
	return "hole_scores"
}

// Stroke records one shot during a match: where the ball started, what was
// proposed, and once the next position is known, how it turned out.
type Stroke struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MatchID      uint      `gorm:"not null;index:idx_stroke_lookup,priority:1" json:"match_id"`
	UserID       uint      `gorm:"not null;index:idx_stroke_lookup,priority:2" json:"user_id"`
	HoleID       uint      `gorm:"not null;index:idx_stroke_lookup,priority:3" json:"hole_id"`
	StrokeNumber int       `gorm:"not null" json:"stroke_number"`

	BallStartLat float64     `gorm:"not null" json:"ball_start_lat"`
	BallStartLon float64     `gorm:"not null" json:"ball_start_lon"`
	StartTerrain TerrainType `gorm:"type:varchar(20)" json:"start_terrain"`

	ProposedClubID         *uint    `json:"proposed_club_id,omitempty"`
	ProposedDistanceMeters *float64 `json:"proposed_distance_meters,omitempty"`
	ProposedSwing          *string  `json:"proposed_swing,omitempty"`

	BallEndLat *float64     `json:"ball_end_lat,omitempty"`
	BallEndLon *float64     `json:"ball_end_lon,omitempty"`
	EndTerrain *TerrainType `gorm:"type:varchar(20)" json:"end_terrain,omitempty"`

	Evaluated            bool     `gorm:"not null;default:false" json:"evaluated"`
	Quality              *float64 `json:"quality,omitempty"`
	DistanceErrorMeters  *float64 `json:"distance_error_meters,omitempty"`
	ActualDistanceMeters *float64 `json:"actual_distance_meters,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Stroke) TableName() string {
	return "strokes"
}

// BeforeCreate assigns the stroke ID so inserts work on any driver
func (s *Stroke) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
