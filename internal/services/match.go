package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/internal/spatial"
	"github.com/fairwaylabs/caddie-backend/pkg/database"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

// Putt quality ladder used when a hole is completed: one putt is a good
// green, each extra putt drops the score.
var greenQualityByStrokes = map[int]float64{
	1: 80,
	2: 60,
	3: 40,
}

// MatchState summarizes where a player stands in a match
type MatchState struct {
	MatchID              uint               `json:"match_id"`
	UserID               uint               `json:"user_id"`
	CourseID             uint               `json:"course_id"`
	CurrentHoleNumber    int                `json:"current_hole_number"`
	StrokesInCurrentHole int                `json:"strokes_in_current_hole"`
	CompletedHoles       []models.HoleScore `json:"completed_holes"`
	TotalStrokes         int                `json:"total_strokes"`
}

// LeaderboardEntry is one player's line in the match ranking
type LeaderboardEntry struct {
	Position       int    `json:"position"`
	UserID         uint   `json:"user_id"`
	DisplayName    string `json:"display_name,omitempty"`
	CompletedHoles int    `json:"completed_holes"`
	TotalStrokes   int    `json:"total_strokes"`
	ScoreToPar     int    `json:"score_to_par"`
}

// StrokeEvaluation is the outcome of judging one registered stroke once its
// end position is known
type StrokeEvaluation struct {
	StrokeID             string   `json:"stroke_id"`
	Quality              *float64 `json:"quality,omitempty"`
	DistanceErrorMeters  float64  `json:"distance_error_meters"`
	ActualDistanceMeters float64  `json:"actual_distance_meters"`
	ClubUsedID           *uint    `json:"club_used_id,omitempty"`
	TargetDistanceMeters *float64 `json:"target_distance_meters,omitempty"`
	GreenToGreen         bool     `json:"green_to_green"`
}

// MatchService owns match lifecycle, per-hole scoring and stroke history
type MatchService struct {
	db     *database.DB
	course *CourseService
	cache  *CacheService
	logger *logrus.Entry
}

func NewMatchService(db *database.DB, course *CourseService, cache *CacheService, logger *logrus.Entry) *MatchService {
	return &MatchService{
		db:     db,
		course: course,
		cache:  cache,
		logger: logger,
	}
}

// CreateMatch creates a pending match on a course with the given players
func (s *MatchService) CreateMatch(ctx context.Context, courseID uint, userIDs []uint, startingHole int) (*models.Match, error) {
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("%w: a match needs at least one player", utils.ErrInvalidInput)
	}
	if startingHole < 1 {
		startingHole = 1
	}

	if _, err := s.course.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}

	match := &models.Match{
		CourseID: courseID,
		Status:   models.MatchPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(match).Error; err != nil {
			return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
		}
		for _, userID := range userIDs {
			player := models.MatchPlayer{
				MatchID:      match.ID,
				UserID:       userID,
				StartingHole: startingHole,
			}
			if err := tx.Create(&player).Error; err != nil {
				return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// StartMatch moves a pending match to in progress
func (s *MatchService) StartMatch(ctx context.Context, matchID uint) (*models.Match, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchPending {
		return nil, fmt.Errorf("%w: match %d is %s", utils.ErrConflict, matchID, match.Status)
	}

	now := time.Now().UTC()
	match.Status = models.MatchInProgress
	match.StartedAt = &now
	if err := s.db.WithContext(ctx).Save(match).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	return match, nil
}

// GetMatch loads a match with its players
func (s *MatchService) GetMatch(ctx context.Context, matchID uint) (*models.Match, error) {
	var match models.Match
	err := s.db.WithContext(ctx).Preload("Players").First(&match, matchID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: match %d", utils.ErrNotFound, matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	return &match, nil
}

// ValidateParticipant checks that the match exists, is in progress, belongs
// to the given course and includes the user
func (s *MatchService) ValidateParticipant(ctx context.Context, matchID, userID, courseID uint) (*models.Match, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchInProgress {
		return nil, fmt.Errorf("%w: match %d is not in progress (status %s)", utils.ErrInvalidInput, matchID, match.Status)
	}
	if match.CourseID != courseID {
		return nil, fmt.Errorf("%w: match %d belongs to course %d, not %d", utils.ErrInvalidInput, matchID, match.CourseID, courseID)
	}
	for _, p := range match.Players {
		if p.UserID == userID {
			return match, nil
		}
	}
	return nil, fmt.Errorf("%w: user %d is not playing match %d", utils.ErrInvalidInput, userID, matchID)
}

// IncrementHoleStrokes adds delta strokes to the player's score row for the
// hole, creating the row on first use. Incrementing a completed hole is a
// conflict.
func (s *MatchService) IncrementHoleStrokes(ctx context.Context, matchID, userID uint, hole *models.Hole, delta int) (*models.HoleScore, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("%w: stroke increment must be positive", utils.ErrInvalidInput)
	}

	var score models.HoleScore
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("match_id = ? AND user_id = ? AND hole_id = ?", matchID, userID, hole.ID).
			First(&score).Error
		if err == gorm.ErrRecordNotFound {
			score = models.HoleScore{
				MatchID:    matchID,
				UserID:     userID,
				HoleID:     hole.ID,
				HoleNumber: hole.HoleNumber,
			}
		} else if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
		}

		if score.Completed {
			return fmt.Errorf("%w: hole %d already completed", utils.ErrConflict, hole.HoleNumber)
		}
		score.Strokes += delta
		if err := tx.Save(&score).Error; err != nil {
			return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLeaderboard(ctx, matchID)
	return &score, nil
}

// CreateStroke records the start of a new shot
func (s *MatchService) CreateStroke(ctx context.Context, matchID, userID uint, hole *models.Hole, start spatial.Point, strokeNumber int, proposed *models.ShotRecommendation) (*models.Stroke, error) {
	stroke := &models.Stroke{
		MatchID:      matchID,
		UserID:       userID,
		HoleID:       hole.ID,
		StrokeNumber: strokeNumber,
		BallStartLat: start.Lat,
		BallStartLon: start.Lon,
		StartTerrain: s.course.TerrainAt(hole, start),
	}
	if proposed != nil {
		clubID := proposed.ClubID
		distance := proposed.TargetDistanceMeters
		swing := string(proposed.Swing)
		stroke.ProposedClubID = &clubID
		stroke.ProposedDistanceMeters = &distance
		stroke.ProposedSwing = &swing
	}

	if err := s.db.WithContext(ctx).Create(stroke).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	return stroke, nil
}

// AttachProposal stores a recommendation on the player's open stroke so the
// next position fix can be judged against it. No open stroke is not an error.
func (s *MatchService) AttachProposal(ctx context.Context, matchID, userID uint, holeID uint, rec *models.ShotRecommendation) error {
	stroke, err := s.LastUnevaluatedStroke(ctx, matchID, userID, holeID)
	if err != nil {
		return err
	}
	if stroke == nil || rec == nil {
		return nil
	}

	clubID := rec.ClubID
	distance := rec.TargetDistanceMeters
	swing := string(rec.Swing)
	stroke.ProposedClubID = &clubID
	stroke.ProposedDistanceMeters = &distance
	stroke.ProposedSwing = &swing

	if err := s.db.WithContext(ctx).Save(stroke).Error; err != nil {
		return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	return nil
}

// LastUnevaluatedStroke returns the player's most recent open stroke on the
// hole, or nil when every stroke has been judged
func (s *MatchService) LastUnevaluatedStroke(ctx context.Context, matchID, userID, holeID uint) (*models.Stroke, error) {
	var stroke models.Stroke
	err := s.db.WithContext(ctx).
		Where("match_id = ? AND user_id = ? AND hole_id = ? AND evaluated = ?", matchID, userID, holeID, false).
		Order("stroke_number DESC").
		First(&stroke).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	return &stroke, nil
}

// EvaluateStroke closes the last open stroke using the ball's next observed
// position. Quality is 100 minus the distance error as a percentage of the
// intended carry, clamped to 0-100. Putts (green to green) are closed
// without a quality score.
func (s *MatchService) EvaluateStroke(ctx context.Context, matchID, userID uint, hole *models.Hole, end spatial.Point) (*StrokeEvaluation, error) {
	stroke, err := s.LastUnevaluatedStroke(ctx, matchID, userID, hole.ID)
	if err != nil {
		return nil, err
	}
	if stroke == nil {
		return nil, nil
	}

	start := spatial.Point{Lat: stroke.BallStartLat, Lon: stroke.BallStartLon}
	endTerrain := s.course.TerrainAt(hole, end)

	startOnGreen := s.course.IsBallOnGreen(hole, start)
	endOnGreen := s.course.IsBallOnGreen(hole, end)

	if startOnGreen && endOnGreen {
		stroke.Evaluated = true
		stroke.BallEndLat = &end.Lat
		stroke.BallEndLon = &end.Lon
		stroke.EndTerrain = &endTerrain
		if err := s.db.WithContext(ctx).Save(stroke).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
		}
		return &StrokeEvaluation{
			StrokeID:     stroke.ID.String(),
			GreenToGreen: true,
		}, nil
	}

	actual := spatial.DistanceMeters(start, end)

	// intended carry: the proposed distance if a recommendation was
	// followed, otherwise the flag distance from where the ball lay
	reference := actual
	if stroke.ProposedDistanceMeters != nil && *stroke.ProposedDistanceMeters > 0 {
		reference = *stroke.ProposedDistanceMeters
	} else if d, ferr := s.course.DistanceToFlag(hole, start); ferr == nil {
		reference = d
	}

	distanceError := math.Abs(actual - reference)
	errorPercentage := 50.0
	if reference > 0 {
		errorPercentage = distanceError / reference * 100
	}
	quality := math.Max(0, math.Min(100, 100-errorPercentage))

	stroke.Evaluated = true
	stroke.BallEndLat = &end.Lat
	stroke.BallEndLon = &end.Lon
	stroke.EndTerrain = &endTerrain
	stroke.Quality = &quality
	stroke.DistanceErrorMeters = &distanceError
	stroke.ActualDistanceMeters = &actual

	if err := s.db.WithContext(ctx).Save(stroke).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	eval := &StrokeEvaluation{
		StrokeID:             stroke.ID.String(),
		Quality:              &quality,
		DistanceErrorMeters:  distanceError,
		ActualDistanceMeters: actual,
		TargetDistanceMeters: stroke.ProposedDistanceMeters,
	}
	if stroke.ProposedClubID != nil {
		eval.ClubUsedID = stroke.ProposedClubID
	}
	return eval, nil
}

// EvaluateGreenStrokes closes the final open stroke of a completed hole
// using the putt quality ladder
func (s *MatchService) EvaluateGreenStrokes(ctx context.Context, matchID, userID uint, hole *models.Hole, greenStrokes int) error {
	if greenStrokes <= 0 {
		return nil
	}
	stroke, err := s.LastUnevaluatedStroke(ctx, matchID, userID, hole.ID)
	if err != nil || stroke == nil {
		return err
	}

	quality, ok := greenQualityByStrokes[greenStrokes]
	if !ok {
		quality = math.Max(0, float64(20-(greenStrokes-4)*5))
	}

	stroke.Evaluated = true
	stroke.Quality = &quality
	if err := s.db.WithContext(ctx).Save(stroke).Error; err != nil {
		return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	return nil
}

// RecordHoleScore sets the final stroke count for a hole and marks it
// completed, replacing any running count
func (s *MatchService) RecordHoleScore(ctx context.Context, matchID, userID uint, hole *models.Hole, strokes int) (*models.HoleScore, error) {
	if strokes < 1 {
		return nil, fmt.Errorf("%w: a completed hole needs at least one stroke", utils.ErrInvalidInput)
	}

	var score models.HoleScore
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("match_id = ? AND user_id = ? AND hole_id = ?", matchID, userID, hole.ID).
			First(&score).Error
		if err == gorm.ErrRecordNotFound {
			score = models.HoleScore{
				MatchID:    matchID,
				UserID:     userID,
				HoleID:     hole.ID,
				HoleNumber: hole.HoleNumber,
			}
		} else if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
		}

		now := time.Now().UTC()
		score.Strokes = strokes
		score.Completed = true
		score.CompletedAt = &now
		if err := tx.Save(&score).Error; err != nil {
			return fmt.Errorf("%w: %v", utils.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLeaderboard(ctx, matchID)
	return &score, nil
}

// UpdateHoleScore corrects the stroke count of an already completed hole
func (s *MatchService) UpdateHoleScore(ctx context.Context, matchID, userID uint, hole *models.Hole, strokes int) (*models.HoleScore, error) {
	if strokes < 1 {
		return nil, fmt.Errorf("%w: a completed hole needs at least one stroke", utils.ErrInvalidInput)
	}

	var score models.HoleScore
	err := s.db.WithContext(ctx).
		Where("match_id = ? AND user_id = ? AND hole_id = ?", matchID, userID, hole.ID).
		First(&score).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: no score recorded for hole %d", utils.ErrNotFound, hole.HoleNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	if !score.Completed {
		return nil, fmt.Errorf("%w: hole %d is not completed yet", utils.ErrConflict, hole.HoleNumber)
	}

	score.Strokes = strokes
	if err := s.db.WithContext(ctx).Save(&score).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	s.invalidateLeaderboard(ctx, matchID)
	return &score, nil
}

// CompleteHole freezes the running stroke count for the hole. Completing a
// hole with no strokes or an already completed hole is a conflict.
func (s *MatchService) CompleteHole(ctx context.Context, matchID, userID uint, hole *models.Hole) (*models.HoleScore, error) {
	var score models.HoleScore
	err := s.db.WithContext(ctx).
		Where("match_id = ? AND user_id = ? AND hole_id = ?", matchID, userID, hole.ID).
		First(&score).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: no strokes recorded on hole %d", utils.ErrNotFound, hole.HoleNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	if score.Completed {
		return nil, fmt.Errorf("%w: hole %d already completed", utils.ErrConflict, hole.HoleNumber)
	}
	if score.Strokes < 1 {
		return nil, fmt.Errorf("%w: hole %d has no strokes", utils.ErrConflict, hole.HoleNumber)
	}

	now := time.Now().UTC()
	score.Completed = true
	score.CompletedAt = &now
	if err := s.db.WithContext(ctx).Save(&score).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	s.invalidateLeaderboard(ctx, matchID)
	return &score, nil
}

// GetMatchState derives where the player currently stands: their scores so
// far and the first hole from their starting hole onward that is not
// completed
func (s *MatchService) GetMatchState(ctx context.Context, matchID, userID uint) (*MatchState, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	startingHole := 1
	found := false
	for _, p := range match.Players {
		if p.UserID == userID {
			startingHole = p.StartingHole
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: user %d is not playing match %d", utils.ErrInvalidInput, userID, matchID)
	}

	var holes []models.Hole
	if err := s.db.WithContext(ctx).
		Where("course_id = ?", match.CourseID).
		Order("hole_number").
		Find(&holes).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	var scores []models.HoleScore
	if err := s.db.WithContext(ctx).
		Where("match_id = ? AND user_id = ?", matchID, userID).
		Order("hole_number").
		Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	completedByNumber := make(map[int]bool)
	strokesByNumber := make(map[int]int)
	var completed []models.HoleScore
	total := 0
	for _, sc := range scores {
		total += sc.Strokes
		strokesByNumber[sc.HoleNumber] = sc.Strokes
		if sc.Completed {
			completedByNumber[sc.HoleNumber] = true
			completed = append(completed, sc)
		}
	}

	currentHole := startingHole
	if len(holes) > 0 {
		for i := 0; i < len(holes); i++ {
			number := holes[(indexOfHole(holes, startingHole)+i)%len(holes)].HoleNumber
			if !completedByNumber[number] {
				currentHole = number
				break
			}
		}
	}

	return &MatchState{
		MatchID:              matchID,
		UserID:               userID,
		CourseID:             match.CourseID,
		CurrentHoleNumber:    currentHole,
		StrokesInCurrentHole: strokesByNumber[currentHole],
		CompletedHoles:       completed,
		TotalStrokes:         total,
	}, nil
}

func indexOfHole(holes []models.Hole, number int) int {
	for i, h := range holes {
		if h.HoleNumber == number {
			return i
		}
	}
	return 0
}

// Leaderboard ranks the match players by score relative to par over their
// completed holes, fewest total strokes breaking ties
func (s *MatchService) Leaderboard(ctx context.Context, matchID uint) ([]LeaderboardEntry, error) {
	if s.cache != nil {
		var cached []LeaderboardEntry
		if err := s.cache.Get(ctx, LeaderboardCacheKey(matchID), &cached); err == nil {
			return cached, nil
		}
	}

	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	parByHoleID := make(map[uint]int)
	var holes []models.Hole
	if err := s.db.WithContext(ctx).Where("course_id = ?", match.CourseID).Find(&holes).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	for _, h := range holes {
		parByHoleID[h.ID] = h.Par
	}

	var scores []models.HoleScore
	if err := s.db.WithContext(ctx).
		Where("match_id = ? AND completed = ?", matchID, true).
		Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	byUser := make(map[uint]*LeaderboardEntry)
	for _, p := range match.Players {
		byUser[p.UserID] = &LeaderboardEntry{UserID: p.UserID}
	}
	for _, sc := range scores {
		entry, ok := byUser[sc.UserID]
		if !ok {
			continue
		}
		entry.CompletedHoles++
		entry.TotalStrokes += sc.Strokes
		entry.ScoreToPar += sc.Strokes - parByHoleID[sc.HoleID]
	}

	userIDs := make([]uint, 0, len(match.Players))
	for _, p := range match.Players {
		userIDs = append(userIDs, p.UserID)
	}
	var profiles []models.PlayerProfile
	if err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	nameByUser := make(map[uint]string)
	for _, p := range profiles {
		nameByUser[p.UserID] = p.DisplayName
	}

	entries := make([]LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		e.DisplayName = nameByUser[e.UserID]
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ScoreToPar != entries[j].ScoreToPar {
			return entries[i].ScoreToPar < entries[j].ScoreToPar
		}
		if entries[i].TotalStrokes != entries[j].TotalStrokes {
			return entries[i].TotalStrokes < entries[j].TotalStrokes
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Position = i + 1
	}

	if s.cache != nil {
		s.cache.Set(ctx, LeaderboardCacheKey(matchID), entries, LeaderboardTTL)
	}
	return entries, nil
}

// HoleStats returns the player's score row and stroke history for one hole
func (s *MatchService) HoleStats(ctx context.Context, matchID, userID uint, holeID uint) (*models.HoleScore, []models.Stroke, error) {
	var score models.HoleScore
	err := s.db.WithContext(ctx).
		Where("match_id = ? AND user_id = ? AND hole_id = ?", matchID, userID, holeID).
		First(&score).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, fmt.Errorf("%w: no score for hole", utils.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}

	var strokes []models.Stroke
	if err := s.db.WithContext(ctx).
		Where("match_id = ? AND user_id = ? AND hole_id = ?", matchID, userID, holeID).
		Order("stroke_number").
		Find(&strokes).Error; err != nil {
		return nil, nil, fmt.Errorf("%w: %v", utils.ErrPersistence, err)
	}
	return &score, strokes, nil
}

// MissingHolesBetween lists the uncompleted hole numbers from the player's
// current hole up to, but excluding, the target hole
func (s *MatchService) MissingHolesBetween(ctx context.Context, matchID, userID uint, targetHole int) ([]int, error) {
	state, err := s.GetMatchState(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}

	completedByNumber := make(map[int]bool)
	for _, sc := range state.CompletedHoles {
		completedByNumber[sc.HoleNumber] = true
	}

	var missing []int
	for n := state.CurrentHoleNumber; n < targetHole; n++ {
		if !completedByNumber[n] {
			missing = append(missing, n)
		}
	}
	return missing, nil
}

func (s *MatchService) invalidateLeaderboard(ctx context.Context, matchID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, LeaderboardCacheKey(matchID)); err != nil {
		s.logger.WithError(err).Debug("Failed to invalidate leaderboard cache")
	}
}
