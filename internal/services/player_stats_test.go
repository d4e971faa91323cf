package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

func TestSeedDefaultsMaleBeginner(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())
	profile := createTestProfile(t, db, 1, models.GenderMale, models.SkillBeginner)

	stats, err := svc.SeedDefaults(context.Background(), profile.ID)
	require.NoError(t, err)
	assert.Len(t, stats, 15)

	driver := findClubByName(t, db, "Driver")
	var driverStat models.PlayerClubStatistic
	require.NoError(t, db.Where("player_profile_id = ? AND golf_club_id = ?", profile.ID, driver.ID).First(&driverStat).Error)

	assert.Equal(t, 160.0, driverStat.AverageDistanceMeters)
	assert.InDelta(t, 144.0, driverStat.MinDistanceMeters, 1e-9)
	assert.InDelta(t, 176.0, driverStat.MaxDistanceMeters, 1e-9)
	assert.InDelta(t, 12.8, driverStat.AverageErrorMeters, 1e-9)
	assert.InDelta(t, 6.4, driverStat.ErrorStdDeviation, 1e-9)
	assert.Equal(t, 0, driverStat.ShotsRecorded)
}

func TestSeedDefaultsFemaleProfessional(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())
	profile := createTestProfile(t, db, 2, models.GenderFemale, models.SkillProfessional)

	_, err := svc.SeedDefaults(context.Background(), profile.ID)
	require.NoError(t, err)

	driver := findClubByName(t, db, "Driver")
	var stat models.PlayerClubStatistic
	require.NoError(t, db.Where("player_profile_id = ? AND golf_club_id = ?", profile.ID, driver.ID).First(&stat).Error)
	assert.Equal(t, 220.0, stat.AverageDistanceMeters)
}

func TestSeedDefaultsUnknownGender(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())
	profile := createTestProfile(t, db, 3, models.Gender("other"), models.SkillBeginner)

	_, err := svc.SeedDefaults(context.Background(), profile.ID)
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
}

func TestSeedDefaultsTwiceConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())
	profile := createTestProfile(t, db, 4, models.GenderMale, models.SkillIntermediate)

	_, err := svc.SeedDefaults(context.Background(), profile.ID)
	require.NoError(t, err)

	_, err = svc.SeedDefaults(context.Background(), profile.ID)
	assert.True(t, errors.Is(err, utils.ErrConflict))
}

func TestSeedDefaultsMissingProfile(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())

	_, err := svc.SeedDefaults(context.Background(), 9999)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestGetStatisticsUnseededProfile(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())
	profile := createTestProfile(t, db, 5, models.GenderMale, models.SkillAdvanced)

	_, err := svc.GetStatistics(context.Background(), profile.ID)
	assert.True(t, errors.Is(err, utils.ErrNoStatistics))
}

func TestGetStatisticsBagOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())
	profile := createTestProfile(t, db, 6, models.GenderMale, models.SkillIntermediate)

	_, err := svc.SeedDefaults(context.Background(), profile.ID)
	require.NoError(t, err)

	stats, err := svc.GetStatistics(context.Background(), profile.ID)
	require.NoError(t, err)
	require.Len(t, stats, 15)

	require.NotNil(t, stats[0].Club)
	assert.Equal(t, "Driver", stats[0].Club.Name)
	assert.Equal(t, "Lob Wedge", stats[14].Club.Name)
}

func TestListClubsBagOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())

	clubs, err := svc.ListClubs(context.Background())
	require.NoError(t, err)
	require.Len(t, clubs, 15)
	assert.Equal(t, "Driver", clubs[0].Name)
	assert.Equal(t, "Lob Wedge", clubs[14].Name)
}

func TestRecordOutcomeEWMA(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())
	profile := createTestProfile(t, db, 7, models.GenderMale, models.SkillIntermediate)

	_, err := svc.SeedDefaults(context.Background(), profile.ID)
	require.NoError(t, err)

	iron7 := findClubByName(t, db, "Hierro 7")

	// Seeded: avg 140, error 11.2, std 5.6, min 126, max 154
	updated, err := svc.RecordOutcome(context.Background(), profile.ID, iron7.ID, 140, 120)
	require.NoError(t, err)

	// alpha 0.25: avg = 0.25*120 + 0.75*140 = 135
	assert.InDelta(t, 135.0, updated.AverageDistanceMeters, 1e-9)
	// error 20: avgError = 0.25*20 + 0.75*11.2 = 13.4
	assert.InDelta(t, 13.4, updated.AverageErrorMeters, 1e-9)
	// min drops to the observed 120
	assert.InDelta(t, 120.0, updated.MinDistanceMeters, 1e-9)
	assert.InDelta(t, 154.0, updated.MaxDistanceMeters, 1e-9)
	assert.Equal(t, 1, updated.ShotsRecorded)
}

func TestRecordOutcomeConvergesOnRepeatedDistance(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())
	profile := createTestProfile(t, db, 12, models.GenderMale, models.SkillIntermediate)

	_, err := svc.SeedDefaults(context.Background(), profile.ID)
	require.NoError(t, err)

	iron7 := findClubByName(t, db, "Hierro 7")

	// Seeded average is 140; a player who keeps hitting 150 should end up
	// with an average of 150.
	var updated *models.PlayerClubStatistic
	for i := 0; i < 30; i++ {
		updated, err = svc.RecordOutcome(context.Background(), profile.ID, iron7.ID, 150, 150)
		require.NoError(t, err)
	}

	assert.InDelta(t, 150.0, updated.AverageDistanceMeters, 0.1)
	assert.Equal(t, 30, updated.ShotsRecorded)
}

func TestRecordOutcomeConcurrentShotsAllLand(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())
	profile := createTestProfile(t, db, 13, models.GenderMale, models.SkillIntermediate)

	_, err := svc.SeedDefaults(context.Background(), profile.ID)
	require.NoError(t, err)

	iron7 := findClubByName(t, db, "Hierro 7")

	const shots = 8
	var wg sync.WaitGroup
	errs := make(chan error, shots)
	for i := 0; i < shots; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordOutcome(context.Background(), profile.ID, iron7.ID, 140, 138)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var stat models.PlayerClubStatistic
	require.NoError(t, db.Where("player_profile_id = ? AND golf_club_id = ?", profile.ID, iron7.ID).First(&stat).Error)
	assert.Equal(t, shots, stat.ShotsRecorded)
}

func TestRecordOutcomeExtendsMax(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())
	profile := createTestProfile(t, db, 8, models.GenderMale, models.SkillIntermediate)

	_, err := svc.SeedDefaults(context.Background(), profile.ID)
	require.NoError(t, err)

	driver := findClubByName(t, db, "Driver")
	updated, err := svc.RecordOutcome(context.Background(), profile.ID, driver.ID, 190, 230)
	require.NoError(t, err)

	assert.InDelta(t, 230.0, updated.MaxDistanceMeters, 1e-9)
}

func TestRecordOutcomeWithoutStatistics(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())
	profile := createTestProfile(t, db, 9, models.GenderMale, models.SkillIntermediate)

	driver := findClubByName(t, db, "Driver")
	_, err := svc.RecordOutcome(context.Background(), profile.ID, driver.ID, 190, 180)
	assert.True(t, errors.Is(err, utils.ErrNoStatistics))
}

func TestRecordOutcomeRejectsInvalidDistances(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlayerStatsService(db, testConfig(), nil, testLogger())

	_, err := svc.RecordOutcome(context.Background(), 1, 1, 0, 100)
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))

	_, err = svc.RecordOutcome(context.Background(), 1, 1, 100, -5)
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
}
