package services

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/pkg/config"
	"github.com/fairwaylabs/caddie-backend/pkg/database"
)

// newTestDB opens a fresh in-memory database with the full schema and the
// standard club catalog. The DSN is keyed by test name so parallel tests do
// not share state.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = gdb.AutoMigrate(
		&models.Course{},
		&models.Hole{},
		&models.HolePoint{},
		&models.HoleObstacle{},
		&models.OptimalShot{},
		&models.PlayerProfile{},
		&models.GolfClub{},
		&models.PlayerClubStatistic{},
		&models.Match{},
		&models.MatchPlayer{},
		&models.HoleScore{},
		&models.Stroke{},
		&models.VoiceCommandLog{},
	)
	require.NoError(t, err)

	clubs := make([]models.GolfClub, len(ClubCatalog))
	copy(clubs, ClubCatalog)
	require.NoError(t, gdb.Create(&clubs).Error)

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return &database.DB{DB: gdb}
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                      "test",
		StatsSmoothingFactor:     0.25,
		ShortGameThresholdMeters: 100,
		ClubDistanceBandMeters:   5,
		ClubFallbackBandMeters:   30,
		AIRateLimit:              60,
		CircuitBreakerThreshold:  5,
	}
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func createTestProfile(t *testing.T, db *database.DB, userID uint, gender models.Gender, skill models.SkillLevel) *models.PlayerProfile {
	t.Helper()
	profile := &models.PlayerProfile{
		UserID:     userID,
		Gender:     gender,
		SkillLevel: skill,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func findClubByName(t *testing.T, db *database.DB, name string) *models.GolfClub {
	t.Helper()
	var club models.GolfClub
	require.NoError(t, db.Where("name = ?", name).First(&club).Error)
	return &club
}
