package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/fairwaylabs/caddie-backend/internal/spatial"
)

// PointType classifies a named point on a hole
type PointType string

const (
	PointTee       PointType = "tee"
	PointFlag      PointType = "flag"
	PointStrategic PointType = "strategic"
	PointAntegreen PointType = "antegreen"
)

// Coordinate is a single WGS84 vertex (SRID 4326)
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Ring is an ordered, explicitly closed vertex ring stored as a JSON column.
// A valid polygon ring has at least 3 distinct vertices and first == last.
type Ring []Coordinate

// Value implements driver.Valuer for database storage
func (r Ring) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for database retrieval
func (r *Ring) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return errors.New("unsupported type for Ring")
	}
}

// IsClosed reports whether the ring is explicitly closed (first vertex == last)
func (r Ring) IsClosed() bool {
	if len(r) < 4 {
		return false
	}
	return r[0] == r[len(r)-1]
}

// Points converts the ring to spatial points for geometry tests
func (r Ring) Points() []spatial.Point {
	pts := make([]spatial.Point, len(r))
	for i, c := range r {
		pts[i] = spatial.Point{Lat: c.Lat, Lon: c.Lon}
	}
	return pts
}

// Course represents a golf course
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Holes []Hole `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"holes,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Hole represents one course hole with its geometry. Geometry is immutable
// during play; deleting a hole cascades to its points, obstacles and shots.
type Hole struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CourseID     uint      `gorm:"not null;uniqueIndex:idx_course_hole,priority:1" json:"course_id"`
	HoleNumber   int       `gorm:"not null;uniqueIndex:idx_course_hole,priority:2" json:"hole_number"`
	Par          int       `gorm:"not null" json:"par"`
	LengthMeters float64   `json:"length_meters"`
	Fairway      Ring      `gorm:"type:jsonb" json:"fairway"`
	Green        Ring      `gorm:"type:jsonb" json:"green"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Course       *Course        `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Points       []HolePoint    `gorm:"foreignKey:HoleID;constraint:OnDelete:CASCADE" json:"points,omitempty"`
	Obstacles    []HoleObstacle `gorm:"foreignKey:HoleID;constraint:OnDelete:CASCADE" json:"obstacles,omitempty"`
	OptimalShots []OptimalShot  `gorm:"foreignKey:HoleID;constraint:OnDelete:CASCADE" json:"optimal_shots,omitempty"`
}

func (Hole) TableName() string {
	return "holes"
}

// FlagPoint returns the hole's flag point, or nil if none is defined
func (h *Hole) FlagPoint() *HolePoint {
	for i := range h.Points {
		if h.Points[i].Type == PointFlag {
			return &h.Points[i]
		}
	}
	return nil
}

// StrategicPoints returns the layup waypoints of the hole (strategic and
// antegreen points)
func (h *Hole) StrategicPoints() []HolePoint {
	var pts []HolePoint
	for _, p := range h.Points {
		if p.Type == PointStrategic || p.Type == PointAntegreen {
			pts = append(pts, p)
		}
	}
	return pts
}

// HolePoint is a typed named point on a hole (tee, flag, strategic waypoint)
type HolePoint struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	HoleID uint      `gorm:"not null;index" json:"hole_id"`
	Type   PointType `gorm:"type:varchar(20);not null;index" json:"type"`
	Name   string    `json:"name"`
	Lat    float64   `gorm:"not null" json:"lat"`
	Lon    float64   `gorm:"not null" json:"lon"`
}

func (HolePoint) TableName() string {
	return "hole_points"
}

// HoleObstacle is a typed obstacle polygon on a hole
type HoleObstacle struct {
	ID     uint        `gorm:"primaryKey" json:"id"`
	HoleID uint        `gorm:"not null;index" json:"hole_id"`
	Type   TerrainType `gorm:"type:varchar(20);not null" json:"type"`
	Name   string      `json:"name"`
	Shape  Ring        `gorm:"type:jsonb" json:"shape"`
}

func (HoleObstacle) TableName() string {
	return "hole_obstacles"
}

// OptimalShot is a stored reference line describing a recommended trajectory
// for a hole. Path is an ordered polyline, not a closed ring.
type OptimalShot struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	HoleID      uint   `gorm:"not null;index" json:"hole_id"`
	Description string `json:"description"`
	Path        Ring   `gorm:"type:jsonb" json:"path"`
}

func (OptimalShot) TableName() string {
	return "optimal_shots"
}
