package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/internal/services"
	"github.com/fairwaylabs/caddie-backend/pkg/config"
	"github.com/fairwaylabs/caddie-backend/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db, cfg); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(
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
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_strokes_evaluated ON strokes(match_id, user_id, hole_id, evaluated)",
		"CREATE INDEX IF NOT EXISTS idx_hole_scores_completed ON hole_scores(match_id, user_id, completed)",
		"CREATE INDEX IF NOT EXISTS idx_voice_logs_match ON voice_command_logs(match_id, created_at)",
	}
	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	// Drop tables in reverse order to handle foreign key constraints
	tables := []string{
		"voice_command_logs",
		"strokes",
		"hole_scores",
		"match_players",
		"matches",
		"player_club_statistics",
		"golf_clubs",
		"player_profiles",
		"optimal_shots",
		"hole_obstacles",
		"hole_points",
		"holes",
		"courses",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

func seedData(db *database.DB, cfg *config.Config) error {
	ctx := context.Background()

	// Club catalog
	var existing int64
	if err := db.Model(&models.GolfClub{}).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to count clubs: %w", err)
	}
	if existing == 0 {
		clubs := make([]models.GolfClub, len(services.ClubCatalog))
		copy(clubs, services.ClubCatalog)
		if err := db.Create(&clubs).Error; err != nil {
			return fmt.Errorf("failed to seed club catalog: %w", err)
		}
		logrus.Infof("Seeded %d clubs", len(clubs))
	}

	// Demo course: two holes near the Madrid reference point used by the
	// mobile client in development
	course := &models.Course{
		Name:     "Club de Campo Demo",
		Location: "Madrid, ES",
	}
	if err := db.Create(course).Error; err != nil {
		return fmt.Errorf("failed to create demo course: %w", err)
	}

	baseLat, baseLon := 40.4530, -3.7510
	holes := []models.Hole{
		{
			CourseID:     course.ID,
			HoleNumber:   1,
			Par:          4,
			LengthMeters: 345,
			Fairway:      rectRing(baseLat-0.00025, baseLon, baseLat+0.00025, baseLon+0.0032),
			Green:        rectRing(baseLat-0.00013, baseLon+0.0028, baseLat+0.00013, baseLon+0.0032),
		},
		{
			CourseID:     course.ID,
			HoleNumber:   2,
			Par:          3,
			LengthMeters: 150,
			Fairway:      rectRing(baseLat+0.0006, baseLon, baseLat+0.0011, baseLon+0.0014),
			Green:        rectRing(baseLat+0.0007, baseLon+0.0011, baseLat+0.001, baseLon+0.0014),
		},
	}
	if err := db.Create(&holes).Error; err != nil {
		return fmt.Errorf("failed to create demo holes: %w", err)
	}

	points := []models.HolePoint{
		{HoleID: holes[0].ID, Type: models.PointTee, Lat: baseLat, Lon: baseLon},
		{HoleID: holes[0].ID, Type: models.PointStrategic, Lat: baseLat, Lon: baseLon + 0.0016, Name: "layup antes del lago"},
		{HoleID: holes[0].ID, Type: models.PointAntegreen, Lat: baseLat, Lon: baseLon + 0.0026, Name: "antegreen"},
		{HoleID: holes[0].ID, Type: models.PointFlag, Lat: baseLat, Lon: baseLon + 0.003},
		{HoleID: holes[1].ID, Type: models.PointTee, Lat: baseLat + 0.00085, Lon: baseLon},
		{HoleID: holes[1].ID, Type: models.PointFlag, Lat: baseLat + 0.00085, Lon: baseLon + 0.00125},
	}
	if err := db.Create(&points).Error; err != nil {
		return fmt.Errorf("failed to create demo points: %w", err)
	}

	obstacles := []models.HoleObstacle{
		{
			HoleID: holes[0].ID,
			Type:   models.TerrainWater,
			Name:   "lago central",
			Shape:  rectRing(baseLat-0.0001, baseLon+0.0019, baseLat+0.0001, baseLon+0.0022),
		},
		{
			HoleID: holes[0].ID,
			Type:   models.TerrainBunker,
			Name:   "bunker de green",
			Shape:  rectRing(baseLat-0.00022, baseLon+0.0026, baseLat-0.00014, baseLon+0.0028),
		},
		{
			HoleID: holes[1].ID,
			Type:   models.TerrainBunker,
			Name:   "bunker frontal",
			Shape:  rectRing(baseLat+0.0007, baseLon+0.0009, baseLat+0.00078, baseLon+0.00105),
		},
	}
	if err := db.Create(&obstacles).Error; err != nil {
		return fmt.Errorf("failed to create demo obstacles: %w", err)
	}

	shots := []models.OptimalShot{
		{
			HoleID:      holes[0].ID,
			Description: "centro de calle",
			Path: models.Ring{
				{Lat: baseLat + 0.0001, Lon: baseLon},
				{Lat: baseLat + 0.0001, Lon: baseLon + 0.0016},
				{Lat: baseLat, Lon: baseLon + 0.003},
			},
		},
	}
	if err := db.Create(&shots).Error; err != nil {
		return fmt.Errorf("failed to create demo optimal shots: %w", err)
	}

	// Demo player with seeded club distances
	profile := &models.PlayerProfile{
		UserID:      1,
		DisplayName: "Jugador Demo",
		Gender:      models.GenderMale,
		SkillLevel:  models.SkillIntermediate,
	}
	if err := db.Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create demo profile: %w", err)
	}

	statsSvc := services.NewPlayerStatsService(db, cfg, nil, logrus.NewEntry(logrus.StandardLogger()))
	if _, err := statsSvc.SeedDefaults(ctx, profile.ID); err != nil {
		return fmt.Errorf("failed to seed demo statistics: %w", err)
	}

	logrus.Infof("Seeded demo course %q with %d holes", course.Name, len(holes))
	return nil
}

// rectRing builds a closed rectangular ring from two opposite corners
func rectRing(minLat, minLon, maxLat, maxLon float64) models.Ring {
	return models.Ring{
		{Lat: minLat, Lon: minLon},
		{Lat: maxLat, Lon: minLon},
		{Lat: maxLat, Lon: maxLon},
		{Lat: minLat, Lon: maxLon},
		{Lat: minLat, Lon: minLon},
	}
}
