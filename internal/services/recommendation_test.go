package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/internal/spatial"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

func seededStats(t *testing.T, svc *PlayerStatsService, profileID uint) []models.PlayerClubStatistic {
	t.Helper()
	_, err := svc.SeedDefaults(context.Background(), profileID)
	require.NoError(t, err)
	stats, err := svc.GetStatistics(context.Background(), profileID)
	require.NoError(t, err)
	return stats
}

func newRecommendationFixture(t *testing.T) (*RecommendationService, *CourseService, []models.PlayerClubStatistic, *models.Hole) {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()
	courseSvc := NewCourseService(db, nil, testLogger())
	recSvc := NewRecommendationService(courseSvc, cfg, testLogger())
	statsSvc := NewPlayerStatsService(db, cfg, nil, testLogger())

	profile := createTestProfile(t, db, 100, models.GenderMale, models.SkillIntermediate)
	stats := seededStats(t, statsSvc, profile.ID)

	created := createTestHole(t, db)
	hole, err := courseSvc.GetHole(context.Background(), created.ID)
	require.NoError(t, err)

	return recSvc, courseSvc, stats, hole
}

func TestRecommendMatchingIronOnClearLine(t *testing.T) {
	recSvc, _, _, hole := newRecommendationFixture(t)

	// strip the hole to a clear line: no obstacles, no waypoints
	hole.Obstacles = nil
	var flagOnly []models.HolePoint
	for _, p := range hole.Points {
		if p.Type == models.PointFlag {
			flagOnly = append(flagOnly, p)
		}
	}
	hole.Points = flagOnly

	stats := []models.PlayerClubStatistic{
		{GolfClubID: 1, AverageDistanceMeters: 200, AverageErrorMeters: 16, Club: &models.GolfClub{ID: 1, Name: "Madera 3"}},
		{GolfClubID: 2, AverageDistanceMeters: 170, AverageErrorMeters: 13, Club: &models.GolfClub{ID: 2, Name: "Hierro 5"}},
		{GolfClubID: 3, AverageDistanceMeters: 150, AverageErrorMeters: 10, Club: &models.GolfClub{ID: 3, Name: "Hierro 7"}},
		{GolfClubID: 4, AverageDistanceMeters: 110, AverageErrorMeters: 8, Club: &models.GolfClub{ID: 4, Name: "Pitching Wedge"}},
	}

	// 150m short of the flag at lon 0.003: ball at lon 0.003 - 150/111195
	ball := spatial.Point{Lat: 0, Lon: 0.003 - 150.0/111195.0}

	rec, err := recSvc.Recommend(hole, ball, stats, models.TerrainFairway)
	require.NoError(t, err)

	assert.Equal(t, "Hierro 7", rec.ClubName)
	assert.InDelta(t, 150, rec.TargetDistanceMeters, 0.5)
	assert.False(t, rec.FallbackClub)
	assert.Equal(t, models.SwingFull, rec.Swing)
	assert.Less(t, rec.RiskScore, 20)
	assert.Empty(t, rec.Obstacles)
}

func TestRecommendShortGameAimsAtFlag(t *testing.T) {
	recSvc, _, stats, hole := newRecommendationFixture(t)

	// 88m from the flag, inside the short-game threshold, past the water
	ball := spatial.Point{Lat: 0, Lon: 0.003 - 88.0/111195.0}

	rec, err := recSvc.Recommend(hole, ball, stats, models.TerrainFairway)
	require.NoError(t, err)

	assert.Equal(t, "bandera", rec.TargetDescription)
	assert.InDelta(t, 88, rec.TargetDistanceMeters, 0.5)
	// Gap Wedge (95m) and Sand Wedge (80m) are both within the tie band of
	// 88m; the Sand Wedge wins on lower average error
	assert.Equal(t, "Sand Wedge", rec.ClubName)
}

func TestRecommendLongShotPrefersSafeWaypoint(t *testing.T) {
	recSvc, _, stats, hole := newRecommendationFixture(t)

	// from the tee the flag is 334m away, beyond the threshold; the layup
	// waypoint at lon 0.0018 is short of the water
	ball := spatial.Point{Lat: 0, Lon: 0}

	rec, err := recSvc.Recommend(hole, ball, stats, models.TerrainTee)
	require.NoError(t, err)

	assert.Equal(t, "layup", rec.TargetDescription)
	assert.InDelta(t, 0.0018*111195, rec.TargetDistanceMeters, 1.0)
	// no obstacle lies short of the layup target
	assert.Empty(t, rec.Obstacles)
}

func TestRecommendObstaclesFollowChosenTarget(t *testing.T) {
	recSvc, _, stats, hole := newRecommendationFixture(t)

	// from deep in the southern rough the layup waypoint is the target and
	// the line to it clips the bunker; the direct flag line passes south of
	// the bunker and short of the water
	ball := spatial.Point{Lat: -0.0016, Lon: 0.0004}

	rec, err := recSvc.Recommend(hole, ball, stats, models.TerrainRough)
	require.NoError(t, err)

	assert.Equal(t, "layup", rec.TargetDescription)
	require.Len(t, rec.Obstacles, 1)
	assert.Equal(t, models.TerrainBunker, rec.Obstacles[0].Type)
	assert.GreaterOrEqual(t, rec.RiskScore, 15)
}

func TestRecommendRiskReflectsCrossedWater(t *testing.T) {
	recSvc, _, stats, hole := newRecommendationFixture(t)

	// 120m out: past the layup waypoint, the line to the flag crosses the
	// water at lon 0.0020..0.0022
	ball := spatial.Point{Lat: 0, Lon: 0.003 - 120.0/111195.0}

	rec, err := recSvc.Recommend(hole, ball, stats, models.TerrainFairway)
	require.NoError(t, err)

	require.Len(t, rec.Obstacles, 1)
	assert.Equal(t, models.TerrainWater, rec.Obstacles[0].Type)
	assert.GreaterOrEqual(t, rec.RiskScore, 35)
}

func TestRecommendTerrainPenalty(t *testing.T) {
	recSvc, _, stats, hole := newRecommendationFixture(t)
	hole.Obstacles = nil

	ball := spatial.Point{Lat: 0, Lon: 0.003 - 80.0/111195.0}

	fairway, err := recSvc.Recommend(hole, ball, stats, models.TerrainFairway)
	require.NoError(t, err)
	rough, err := recSvc.Recommend(hole, ball, stats, models.TerrainRoughHeavy)
	require.NoError(t, err)

	assert.Greater(t, rough.RiskScore, fairway.RiskScore)
}

func TestChooseSwing(t *testing.T) {
	assert.Equal(t, models.SwingHalf, chooseSwing(100, 55))
	assert.Equal(t, models.SwingThreeQuarter, chooseSwing(100, 80))
	assert.Equal(t, models.SwingFull, chooseSwing(100, 95))
	assert.Equal(t, models.SwingFull, chooseSwing(100, 120))
}

func TestChooseClubTieBreaksOnError(t *testing.T) {
	stats := []models.PlayerClubStatistic{
		{GolfClubID: 1, AverageDistanceMeters: 148, AverageErrorMeters: 12},
		{GolfClubID: 2, AverageDistanceMeters: 152, AverageErrorMeters: 6},
	}

	chosen, fallback := chooseClub(stats, 150, 5, 30)
	assert.Equal(t, uint(2), chosen.GolfClubID)
	assert.False(t, fallback)
}

func TestChooseClubFallbackFlag(t *testing.T) {
	stats := []models.PlayerClubStatistic{
		{GolfClubID: 1, AverageDistanceMeters: 60, AverageErrorMeters: 5},
	}

	chosen, fallback := chooseClub(stats, 200, 5, 30)
	assert.Equal(t, uint(1), chosen.GolfClubID)
	assert.True(t, fallback)
}

func TestRecommendWithoutStatistics(t *testing.T) {
	recSvc, _, _, hole := newRecommendationFixture(t)

	_, err := recSvc.Recommend(hole, spatial.Point{}, nil, models.TerrainFairway)
	assert.True(t, errors.Is(err, utils.ErrNoStatistics))
}
