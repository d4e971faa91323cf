package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/internal/spatial"
	"github.com/fairwaylabs/caddie-backend/pkg/database"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

// CourseService answers geospatial questions about holes: where the ball is,
// what terrain it sits on, and what lies between it and the flag. Hole
// geometry is immutable during play, so lookups are cached aggressively.
type CourseService struct {
	db     *database.DB
	cache  *CacheService
	logger *logrus.Entry
}

func NewCourseService(db *database.DB, cache *CacheService, logger *logrus.Entry) *CourseService {
	return &CourseService{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// GetHole loads a hole with its full geometry
func (s *CourseService) GetHole(ctx context.Context, holeID uint) (*models.Hole, error) {
	if s.cache != nil {
		var cached models.Hole
		if err := s.cache.Get(ctx, HoleGeometryCacheKey(holeID), &cached); err == nil {
			return &cached, nil
		}
	}

	var hole models.Hole
	err := s.db.WithContext(ctx).
		Preload("Points").
		Preload("Obstacles").
		Preload("OptimalShots").
		First(&hole, holeID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: hole %d", utils.ErrNotFound, holeID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, HoleGeometryCacheKey(holeID), hole, HoleGeometryTTL)
	}
	return &hole, nil
}

// GetHoleByNumber loads a hole of a course by its number
func (s *CourseService) GetHoleByNumber(ctx context.Context, courseID uint, holeNumber int) (*models.Hole, error) {
	var hole models.Hole
	err := s.db.WithContext(ctx).
		Where("course_id = ? AND hole_number = ?", courseID, holeNumber).
		First(&hole).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: hole %d of course %d", utils.ErrNotFound, holeNumber, courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	return s.GetHole(ctx, hole.ID)
}

// IdentifyHoleByPosition finds the course hole whose fairway contains the
// point. Returns NotFound when the point is on no fairway of the course.
func (s *CourseService) IdentifyHoleByPosition(ctx context.Context, courseID uint, p spatial.Point) (*models.Hole, error) {
	var holes []models.Hole
	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("hole_number").
		Find(&holes).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	for i := range holes {
		if len(holes[i].Fairway) == 0 {
			continue
		}
		if spatial.PointInRing(p, holes[i].Fairway.Points()) {
			return s.GetHole(ctx, holes[i].ID)
		}
	}
	return nil, fmt.Errorf("%w: no fairway of course %d contains the position", utils.ErrNotFound, courseID)
}

// DistanceToFlag returns the great-circle distance in meters from the point
// to the hole's flag
func (s *CourseService) DistanceToFlag(hole *models.Hole, p spatial.Point) (float64, error) {
	flag := hole.FlagPoint()
	if flag == nil {
		return 0, fmt.Errorf("%w: hole %d has no flag point", utils.ErrNotFound, hole.ID)
	}
	return spatial.DistanceMeters(p, spatial.Point{Lat: flag.Lat, Lon: flag.Lon}), nil
}

// TerrainAt classifies the ground at a point. The green wins over
// everything, then the fairway, then any obstacle polygon containing the
// point. A point on none of them is rough.
func (s *CourseService) TerrainAt(hole *models.Hole, p spatial.Point) models.TerrainType {
	if len(hole.Green) > 0 && spatial.PointInRing(p, hole.Green.Points()) {
		return models.TerrainGreen
	}
	if len(hole.Fairway) > 0 && spatial.PointInRing(p, hole.Fairway.Points()) {
		return models.TerrainFairway
	}
	for i := range hole.Obstacles {
		o := &hole.Obstacles[i]
		if len(o.Shape) == 0 {
			continue
		}
		if spatial.PointInRing(p, o.Shape.Points()) {
			return o.Type
		}
	}
	return models.TerrainRough
}

// IsBallOnGreen reports whether the point lies on the hole's green
func (s *CourseService) IsBallOnGreen(hole *models.Hole, p spatial.Point) bool {
	return len(hole.Green) > 0 && spatial.PointInRing(p, hole.Green.Points())
}

// ObstaclesBetween returns the obstacles crossed by the straight line from
// the ball to the target, nearest first. DistanceMeters is how far the ball
// can travel before reaching the obstacle and CarryMeters how far it must
// fly to clear it.
func (s *CourseService) ObstaclesBetween(hole *models.Hole, ball, target spatial.Point) []models.ObstacleInfo {
	lineLength := spatial.DistanceMeters(ball, target)

	var infos []models.ObstacleInfo
	for i := range hole.Obstacles {
		o := &hole.Obstacles[i]
		if len(o.Shape) == 0 {
			continue
		}
		crossing, ok := spatial.SegmentRingCrossingFractions(ball, target, o.Shape.Points())
		if !ok {
			continue
		}
		infos = append(infos, models.ObstacleInfo{
			Type:           o.Type,
			Name:           o.Name,
			DistanceMeters: crossing.EntryFraction * lineLength,
			CarryMeters:    crossing.ExitFraction * lineLength,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].DistanceMeters < infos[j].DistanceMeters
	})
	return infos
}

// ObstaclesToFlag returns the obstacles crossed on the direct line to the
// hole's flag
func (s *CourseService) ObstaclesToFlag(hole *models.Hole, ball spatial.Point) ([]models.ObstacleInfo, error) {
	flag := hole.FlagPoint()
	if flag == nil {
		return nil, fmt.Errorf("%w: hole %d has no flag point", utils.ErrNotFound, hole.ID)
	}
	return s.ObstaclesBetween(hole, ball, spatial.Point{Lat: flag.Lat, Lon: flag.Lon}), nil
}

// NearestOptimalShot returns the stored reference line closest to the ball,
// with its distance in meters, or nil when the hole has none
func (s *CourseService) NearestOptimalShot(hole *models.Hole, ball spatial.Point) (*models.OptimalShot, float64) {
	var best *models.OptimalShot
	bestDistance := 0.0
	for i := range hole.OptimalShots {
		shot := &hole.OptimalShots[i]
		if len(shot.Path) == 0 {
			continue
		}
		d := spatial.PointToPolylineDistanceMeters(ball, shot.Path.Points())
		if best == nil || d < bestDistance {
			best = shot
			bestDistance = d
		}
	}
	return best, bestDistance
}

// NearestObstacleByType returns the closest obstacle of the given type on
// the hole, measured to the nearest vertex of its shape
func (s *CourseService) NearestObstacleByType(hole *models.Hole, ball spatial.Point, terrainType models.TerrainType) (*models.HoleObstacle, float64) {
	var best *models.HoleObstacle
	bestDistance := 0.0
	for i := range hole.Obstacles {
		o := &hole.Obstacles[i]
		if o.Type != terrainType || len(o.Shape) == 0 {
			continue
		}
		if spatial.PointInRing(ball, o.Shape.Points()) {
			return o, 0
		}
		d := spatial.PointToPolylineDistanceMeters(ball, o.Shape.Points())
		if best == nil || d < bestDistance {
			best = o
			bestDistance = d
		}
	}
	return best, bestDistance
}

// ListCourses returns all courses
func (s *CourseService) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := s.db.WithContext(ctx).Order("name").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	return courses, nil
}

// GetCourse loads a course with its holes
func (s *CourseService) GetCourse(ctx context.Context, courseID uint) (*models.Course, error) {
	var course models.Course
	err := s.db.WithContext(ctx).Preload("Holes").First(&course, courseID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: course %d", utils.ErrNotFound, courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	return &course, nil
}

// WarmGeometryCache preloads every hole's geometry into the cache. Run from
// the background scheduler so first requests of the day do not pay the
// database round trip.
func (s *CourseService) WarmGeometryCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	var holes []models.Hole
	err := s.db.WithContext(ctx).
		Preload("Points").
		Preload("Obstacles").
		Preload("OptimalShots").
		Find(&holes).Error
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	warmed := 0
	for i := range holes {
		if cached, err := s.cache.Exists(ctx, HoleGeometryCacheKey(holes[i].ID)); err == nil && cached {
			continue
		}
		if err := s.cache.SetWithRetry(ctx, HoleGeometryCacheKey(holes[i].ID), holes[i], HoleGeometryTTL, 3); err != nil {
			s.logger.WithError(err).WithField("hole_id", holes[i].ID).Warn("Failed to warm geometry cache")
			continue
		}
		warmed++
	}
	s.logger.WithFields(logrus.Fields{
		"holes":  len(holes),
		"warmed": warmed,
	}).Info("Hole geometry cache warmed")
	return nil
}
