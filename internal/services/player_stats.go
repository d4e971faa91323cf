package services

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/pkg/config"
	"github.com/fairwaylabs/caddie-backend/pkg/database"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

// Seeded rows derive their spread from the average distance: an 8% expected
// error, a min/max band of ±10%, and a deviation of half the error.
const (
	seedErrorFraction = 0.08
	seedMinFraction   = 0.90
	seedMaxFraction   = 1.10
	seedStdFraction   = 0.50
)

// PlayerStatsService owns per-player club statistics: seeding defaults for
// new profiles and folding observed shots into the running averages.
type PlayerStatsService struct {
	db     *database.DB
	config *config.Config
	cache  *CacheService
	logger *logrus.Entry
}

func NewPlayerStatsService(db *database.DB, cfg *config.Config, cache *CacheService, logger *logrus.Entry) *PlayerStatsService {
	return &PlayerStatsService{
		db:     db,
		config: cfg,
		cache:  cache,
		logger: logger,
	}
}

// SeedDefaults creates one statistic row per catalog club for the profile,
// using the standard distances for the profile's gender and skill level.
// Seeding an already seeded profile is a conflict.
func (s *PlayerStatsService) SeedDefaults(ctx context.Context, profileID uint) ([]models.PlayerClubStatistic, error) {
	var profile models.PlayerProfile
	if err := s.db.WithContext(ctx).First(&profile, profileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: player profile %d", utils.ErrNotFound, profileID)
		}
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	distances, err := DefaultDistances(profile.Gender, profile.SkillLevel)
	if err != nil {
		return nil, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.PlayerClubStatistic{}).
		Where("player_profile_id = ?", profileID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: profile %d already has statistics", utils.ErrConflict, profileID)
	}

	var clubs []models.GolfClub
	if err := s.db.WithContext(ctx).Order("sort_order").Find(&clubs).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	var stats []models.PlayerClubStatistic
	for _, club := range clubs {
		distance, ok := distances[club.Name]
		if !ok {
			continue
		}
		avgError := distance * seedErrorFraction
		stats = append(stats, models.PlayerClubStatistic{
			PlayerProfileID:       profileID,
			GolfClubID:            club.ID,
			AverageDistanceMeters: distance,
			MinDistanceMeters:     distance * seedMinFraction,
			MaxDistanceMeters:     distance * seedMaxFraction,
			AverageErrorMeters:    avgError,
			ErrorStdDeviation:     avgError * seedStdFraction,
			ShotsRecorded:         0,
		})
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: club catalog is empty", utils.ErrPersistence)
	}

	if err := s.db.WithContext(ctx).Create(&stats).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	s.invalidateCache(ctx, profileID)
	s.logger.WithFields(logrus.Fields{
		"profile_id": profileID,
		"clubs":      len(stats),
	}).Info("Seeded default club statistics")

	return stats, nil
}

// GetStatistics returns the profile's club statistics in bag order
func (s *PlayerStatsService) GetStatistics(ctx context.Context, profileID uint) ([]models.PlayerClubStatistic, error) {
	if s.cache != nil {
		var cached []models.PlayerClubStatistic
		if err := s.cache.Get(ctx, PlayerStatsCacheKey(profileID), &cached); err == nil {
			return cached, nil
		}
	}

	var stats []models.PlayerClubStatistic
	err := s.db.WithContext(ctx).Preload("Club").
		Joins("JOIN golf_clubs ON golf_clubs.id = player_club_statistics.golf_club_id").
		Where("player_profile_id = ?", profileID).
		Order("golf_clubs.sort_order").
		Find(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: profile %d", utils.ErrNoStatistics, profileID)
	}

	if s.cache != nil {
		s.cache.Set(ctx, PlayerStatsCacheKey(profileID), stats, PlayerStatsTTL)
	}
	return stats, nil
}

// RecordOutcome folds one observed shot into the statistic row for the
// given club. The row is locked for the duration of the transaction so
// concurrent shots with the same club land one at a time.
func (s *PlayerStatsService) RecordOutcome(ctx context.Context, profileID, clubID uint, targetMeters, actualMeters float64) (*models.PlayerClubStatistic, error) {
	if targetMeters <= 0 || actualMeters < 0 {
		return nil, fmt.Errorf("%w: distances must be positive", utils.ErrInvalidInput)
	}

	alpha := s.config.StatsSmoothingFactor
	var updated models.PlayerClubStatistic

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stat models.PlayerClubStatistic
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("player_profile_id = ? AND golf_club_id = ?", profileID, clubID).
			First(&stat).Error
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: profile %d club %d", utils.ErrNoStatistics, profileID, clubID)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
		}

		errorMeters := math.Abs(actualMeters - targetMeters)

		stat.AverageDistanceMeters = alpha*actualMeters + (1-alpha)*stat.AverageDistanceMeters
		stat.AverageErrorMeters = alpha*errorMeters + (1-alpha)*stat.AverageErrorMeters
		deviation := math.Abs(errorMeters - stat.AverageErrorMeters)
		stat.ErrorStdDeviation = alpha*deviation + (1-alpha)*stat.ErrorStdDeviation
		stat.MinDistanceMeters = math.Min(stat.MinDistanceMeters, actualMeters)
		stat.MaxDistanceMeters = math.Max(stat.MaxDistanceMeters, actualMeters)
		stat.ShotsRecorded++

		if err := tx.Save(&stat).Error; err != nil {
			return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
		}
		updated = stat
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, profileID)
	return &updated, nil
}

// ListClubs returns the club catalog in bag order. The catalog is static so
// it caches for a day, written with retries since a miss here is a database
// round trip on every bag listing.
func (s *PlayerStatsService) ListClubs(ctx context.Context) ([]models.GolfClub, error) {
	if s.cache != nil {
		var cached []models.GolfClub
		if err := s.cache.Get(ctx, ClubCatalogCacheKey(), &cached); err == nil {
			return cached, nil
		}
	}

	var clubs []models.GolfClub
	if err := s.db.WithContext(ctx).Order("sort_order").Find(&clubs).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	if s.cache != nil {
		if err := s.cache.SetWithRetry(ctx, ClubCatalogCacheKey(), clubs, ClubCatalogTTL, 3); err != nil {
			s.logger.WithError(err).Debug("Failed to cache club catalog")
		}
	}
	return clubs, nil
}

// GetProfileByUser loads the profile owned by a user
func (s *PlayerStatsService) GetProfileByUser(ctx context.Context, userID uint) (*models.PlayerProfile, error) {
	var profile models.PlayerProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: profile for user %d", utils.ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	return &profile, nil
}

func (s *PlayerStatsService) invalidateCache(ctx context.Context, profileID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, PlayerStatsCacheKey(profileID)); err != nil {
		s.logger.WithError(err).Debug("Failed to invalidate stats cache")
	}
}
