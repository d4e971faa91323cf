package services

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/internal/spatial"
	"github.com/fairwaylabs/caddie-backend/pkg/config"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

// RiskWeights scores the danger of obstacle types on a 0-100 scale. Crossed
// weights apply to obstacles on the line to the target, lie weights to the
// terrain the ball currently sits on.
type RiskWeights struct {
	Crossed        map[models.TerrainType]int
	Lie            map[models.TerrainType]int
	CrossedDefault int
}

// DefaultRiskWeights returns the standard severity table
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		Crossed: map[models.TerrainType]int{
			models.TerrainWater:       35,
			models.TerrainOutOfBounds: 40,
			models.TerrainTrees:       20,
			models.TerrainBunker:      15,
			models.TerrainRoughHeavy:  10,
		},
		Lie: map[models.TerrainType]int{
			models.TerrainWater:       40,
			models.TerrainOutOfBounds: 40,
			models.TerrainTrees:       20,
			models.TerrainBunker:      15,
			models.TerrainRoughHeavy:  15,
			models.TerrainRough:       8,
		},
		CrossedDefault: 8,
	}
}

// Swing thresholds on the excess fraction (club average over required
// distance)
const (
	halfSwingExcess         = 0.40
	threeQuarterSwingExcess = 0.15
)

// RecommendationService turns a lie into a club, target and swing choice.
// It is a pure computation over hole geometry and player statistics.
type RecommendationService struct {
	course  *CourseService
	config  *config.Config
	weights RiskWeights
	logger  *logrus.Entry
}

func NewRecommendationService(course *CourseService, cfg *config.Config, logger *logrus.Entry) *RecommendationService {
	return &RecommendationService{
		course:  course,
		config:  cfg,
		weights: DefaultRiskWeights(),
		logger:  logger,
	}
}

// SetRiskWeights overrides the default severity table
func (s *RecommendationService) SetRiskWeights(w RiskWeights) {
	s.weights = w
}

// Recommend selects a club, target and swing for the ball's current lie.
// Fails with NoStatistics when the player has no seeded club statistics.
func (s *RecommendationService) Recommend(hole *models.Hole, ball spatial.Point, stats []models.PlayerClubStatistic, terrain models.TerrainType) (*models.ShotRecommendation, error) {
	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: cannot recommend without club statistics", utils.ErrNoStatistics)
	}

	flag := hole.FlagPoint()
	if flag == nil {
		return nil, fmt.Errorf("%w: hole %d has no flag point", utils.ErrNotFound, hole.ID)
	}
	flagPoint := spatial.Point{Lat: flag.Lat, Lon: flag.Lon}
	flagDistance := spatial.DistanceMeters(ball, flagPoint)

	target, targetDesc := s.chooseTarget(hole, ball, flagPoint, flagDistance)
	required := spatial.DistanceMeters(ball, target)

	chosen, fallback := chooseClub(stats, required, s.config.ClubDistanceBandMeters, s.config.ClubFallbackBandMeters)

	crossed := s.course.ObstaclesBetween(hole, ball, target)

	clubName := ""
	if chosen.Club != nil {
		clubName = chosen.Club.Name
	}

	return &models.ShotRecommendation{
		ClubID:               chosen.GolfClubID,
		ClubName:             clubName,
		TargetDistanceMeters: required,
		TargetLat:            target.Lat,
		TargetLon:            target.Lon,
		TargetDescription:    targetDesc,
		Swing:                chooseSwing(chosen.AverageDistanceMeters, required),
		RiskScore:            s.riskScore(crossed, terrain),
		FallbackClub:         fallback,
		Terrain:              terrain,
		Obstacles:            crossed,
	}, nil
}

// chooseTarget aims at the flag inside the short-game threshold, otherwise
// at the nearest strategic waypoint ahead of the ball that can be reached
// without crossing water or out of bounds. With no safe waypoint the flag
// line is still the best available play.
func (s *RecommendationService) chooseTarget(hole *models.Hole, ball, flagPoint spatial.Point, flagDistance float64) (spatial.Point, string) {
	if flagDistance <= s.config.ShortGameThresholdMeters {
		return flagPoint, "bandera"
	}

	var best *models.HolePoint
	bestDistance := math.Inf(1)
	for _, wp := range hole.StrategicPoints() {
		wpPoint := spatial.Point{Lat: wp.Lat, Lon: wp.Lon}
		toWaypoint := spatial.DistanceMeters(ball, wpPoint)
		if toWaypoint < 1 {
			continue
		}
		// skip waypoints behind the ball
		if spatial.DistanceMeters(wpPoint, flagPoint) >= flagDistance {
			continue
		}
		if s.crossesSevereObstacle(hole, ball, wpPoint) {
			continue
		}
		if toWaypoint < bestDistance {
			wp := wp
			best = &wp
			bestDistance = toWaypoint
		}
	}

	if best == nil {
		return flagPoint, "bandera"
	}
	desc := best.Name
	if desc == "" {
		desc = "punto de colocación"
	}
	return spatial.Point{Lat: best.Lat, Lon: best.Lon}, desc
}

func (s *RecommendationService) crossesSevereObstacle(hole *models.Hole, from, to spatial.Point) bool {
	for i := range hole.Obstacles {
		o := &hole.Obstacles[i]
		if o.Type != models.TerrainWater && o.Type != models.TerrainOutOfBounds {
			continue
		}
		if len(o.Shape) == 0 {
			continue
		}
		if spatial.SegmentCrossesRing(from, to, o.Shape.Points()) {
			return true
		}
	}
	return false
}

// chooseClub picks the statistic row with the average distance closest to
// the required carry. Ties inside the distance band go to the club with the
// lower average error. fallback is set when even the best club is further
// than the fallback band from the required distance.
func chooseClub(stats []models.PlayerClubStatistic, required, tieBand, fallbackBand float64) (models.PlayerClubStatistic, bool) {
	best := stats[0]
	bestGap := math.Abs(best.AverageDistanceMeters - required)

	for _, stat := range stats[1:] {
		gap := math.Abs(stat.AverageDistanceMeters - required)
		switch {
		case gap < bestGap-tieBand:
			best, bestGap = stat, gap
		case math.Abs(gap-bestGap) <= tieBand && stat.AverageErrorMeters < best.AverageErrorMeters:
			best, bestGap = stat, gap
		}
	}

	return best, bestGap > fallbackBand
}

// chooseSwing shortens the swing when the club's average distance well
// exceeds the required carry
func chooseSwing(clubAverage, required float64) models.SwingType {
	if clubAverage <= required || clubAverage == 0 {
		return models.SwingFull
	}
	excess := (clubAverage - required) / clubAverage
	switch {
	case excess >= halfSwingExcess:
		return models.SwingHalf
	case excess >= threeQuarterSwingExcess:
		return models.SwingThreeQuarter
	default:
		return models.SwingFull
	}
}

// riskScore combines crossed obstacles and the current lie into a bounded
// 0-100 estimate
func (s *RecommendationService) riskScore(crossed []models.ObstacleInfo, terrain models.TerrainType) int {
	score := 0
	for _, o := range crossed {
		if w, ok := s.weights.Crossed[o.Type]; ok {
			score += w
		} else {
			score += s.weights.CrossedDefault
		}
	}
	if w, ok := s.weights.Lie[terrain]; ok {
		score += w
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
