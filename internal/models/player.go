package models

import "time"

// Gender keys the default statistics catalog
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// SkillLevel keys the default statistics catalog
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillProfessional SkillLevel = "professional"
)

// ClubCategory groups clubs by their role in the bag
type ClubCategory string

const (
	CategoryWood   ClubCategory = "wood"
	CategoryHybrid ClubCategory = "hybrid"
	CategoryIron   ClubCategory = "iron"
	CategoryWedge  ClubCategory = "wedge"
	CategoryPutter ClubCategory = "putter"
)

// PlayerProfile holds the per-player attributes that seed and own club
// statistics. One profile per user.
type PlayerProfile struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	DisplayName string     `json:"display_name"`
	Gender      Gender     `gorm:"type:varchar(10);not null" json:"gender"`
	SkillLevel  SkillLevel `gorm:"type:varchar(20);not null" json:"skill_level"`
	Handicap    *float64   `json:"handicap,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Statistics []PlayerClubStatistic `gorm:"foreignKey:PlayerProfileID;constraint:OnDelete:CASCADE" json:"statistics,omitempty"`
}

func (PlayerProfile) TableName() string {
	return "player_profiles"
}

// GolfClub is a catalog entry shared by all players
type GolfClub struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null;uniqueIndex" json:"name"`
	Category  ClubCategory `gorm:"type:varchar(10);not null" json:"category"`
	SortOrder int          `gorm:"not null" json:"sort_order"`
}

func (GolfClub) TableName() string {
	return "golf_clubs"
}

// PlayerClubStatistic tracks a player's performance with one club. Distances
// and errors are meters. Rows are updated with an exponentially weighted
// moving average as shots are recorded.
type PlayerClubStatistic struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	PlayerProfileID       uint      `gorm:"not null;uniqueIndex:idx_profile_club,priority:1" json:"player_profile_id"`
	GolfClubID            uint      `gorm:"not null;uniqueIndex:idx_profile_club,priority:2" json:"golf_club_id"`
	AverageDistanceMeters float64   `gorm:"not null" json:"average_distance_meters"`
	MinDistanceMeters     float64   `gorm:"not null" json:"min_distance_meters"`
	MaxDistanceMeters     float64   `gorm:"not null" json:"max_distance_meters"`
	AverageErrorMeters    float64   `gorm:"not null" json:"average_error_meters"`
	ErrorStdDeviation     float64   `gorm:"not null" json:"error_std_deviation"`
	ShotsRecorded         int       `gorm:"not null;default:0" json:"shots_recorded"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	Club *GolfClub `gorm:"foreignKey:GolfClubID" json:"club,omitempty"`
}

func (PlayerClubStatistic) TableName() string {
	return "player_club_statistics"
}
