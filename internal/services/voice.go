package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/internal/spatial"
	"github.com/fairwaylabs/caddie-backend/pkg/database"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

// VoiceCommand is one spoken request with the player's position
type VoiceCommand struct {
	MatchID  uint    `json:"match_id" binding:"required"`
	UserID   uint    `json:"user_id" binding:"required"`
	CourseID uint    `json:"course_id" binding:"required"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Query    string  `json:"query" binding:"required"`
}

var terrainNamesES = map[models.TerrainType]string{
	models.TerrainTrees:       "los árboles",
	models.TerrainBunker:      "el bunker",
	models.TerrainWater:       "el agua",
	models.TerrainRoughHeavy:  "el rough alto",
	models.TerrainRough:       "el rough",
	models.TerrainFairway:     "la calle",
	models.TerrainGreen:       "el green",
	models.TerrainOutOfBounds: "fuera de límites",
	models.TerrainTee:         "el tee",
}

// VoiceCommandService orchestrates a voice command end to end: validate the
// request, classify the intent, resolve the hole the player is talking about
// and dispatch to the matching handler.
type VoiceCommandService struct {
	db          *database.DB
	phraser     TextModel
	classifier  *IntentClassifier
	terrain     *TerrainResolver
	course      *CourseService
	matches     *MatchService
	stats       *PlayerStatsService
	recommender *RecommendationService
	weather     *WeatherService
	logger      *logrus.Entry
}

func NewVoiceCommandService(
	db *database.DB,
	classifier *IntentClassifier,
	terrain *TerrainResolver,
	course *CourseService,
	matches *MatchService,
	stats *PlayerStatsService,
	recommender *RecommendationService,
	weather *WeatherService,
	logger *logrus.Entry,
) *VoiceCommandService {
	return &VoiceCommandService{
		db:          db,
		classifier:  classifier,
		terrain:     terrain,
		course:      course,
		matches:     matches,
		stats:       stats,
		recommender: recommender,
		weather:     weather,
		logger:      logger,
	}
}

// WithPhrasing sets a model that rewrites template answers into natural
// speech. Without it, or when the model fails, answers stay template rendered.
func (s *VoiceCommandService) WithPhrasing(model TextModel) *VoiceCommandService {
	s.phraser = model
	return s
}

// Process answers one voice command
func (s *VoiceCommandService) Process(ctx context.Context, cmd VoiceCommand) (*models.VoiceCommandResult, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	if _, err := s.matches.ValidateParticipant(ctx, cmd.MatchID, cmd.UserID, cmd.CourseID); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	ball := spatial.Point{Lat: cmd.Lat, Lon: cmd.Lon}

	// a reply confirming several hole results at once skips classification
	if confirmations := ExtractHoleConfirmations(cmd.Query); len(confirmations) >= 2 {
		result, err := s.handleConfirmations(ctx, cmd, requestID, confirmations)
		if err != nil {
			return nil, err
		}
		s.finish(ctx, cmd, result)
		return result, nil
	}

	verdict := s.classifier.Classify(ctx, cmd.Query)
	s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"intent":     verdict.Intent,
		"confidence": verdict.Confidence,
		"fallback":   verdict.Fallback,
	}).Info("Voice command classified")

	state, err := s.matches.GetMatchState(ctx, cmd.MatchID, cmd.UserID)
	if err != nil {
		return nil, err
	}

	holeNumber := state.CurrentHoleNumber
	if mentioned := ExtractMentionedHole(cmd.Query); mentioned > 0 && mentioned != state.CurrentHoleNumber {
		missing, err := s.matches.MissingHolesBetween(ctx, cmd.MatchID, cmd.UserID, mentioned)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			result := s.askForMissingHoles(requestID, verdict, mentioned, missing)
			s.finish(ctx, cmd, result)
			return result, nil
		}
		holeNumber = mentioned
	}

	hole, err := s.course.GetHoleByNumber(ctx, cmd.CourseID, holeNumber)
	if errors.Is(err, utils.ErrNotFound) {
		// match state points at a hole the course does not define, fall
		// back to where the GPS says the player is standing
		hole, err = s.course.IdentifyHoleByPosition(ctx, cmd.CourseID, ball)
	}
	if err != nil {
		return nil, err
	}

	result := &models.VoiceCommandResult{
		RequestID:  requestID,
		Intent:     verdict.Intent,
		Confidence: verdict.Confidence,
	}

	switch verdict.Intent {
	case models.IntentRecommendShot:
		err = s.handleRecommendShot(ctx, cmd, hole, ball, result)
	case models.IntentRegisterStroke:
		err = s.handleRegisterStroke(ctx, cmd, hole, ball, result)
	case models.IntentCheckDistance:
		err = s.handleCheckDistance(hole, ball, result)
	case models.IntentCheckObstacles:
		err = s.handleCheckObstacles(hole, ball, result)
	case models.IntentCheckTerrain:
		err = s.handleCheckTerrain(cmd.Query, hole, ball, result)
	case models.IntentCompleteHole:
		err = s.handleCompleteHole(ctx, cmd, hole, result)
	case models.IntentRecordHoleScoreDirect:
		err = s.handleRecordScore(ctx, cmd, hole, result)
	case models.IntentUpdateHoleScore:
		err = s.handleUpdateScore(ctx, cmd, hole, result)
	case models.IntentCheckRanking:
		err = s.handleCheckRanking(ctx, cmd, result)
	case models.IntentCheckHoleStats:
		err = s.handleCheckHoleStats(ctx, cmd, hole, result)
	case models.IntentCheckHoleInfo:
		err = s.handleCheckHoleInfo(hole, ball, result)
	case models.IntentCheckWeather:
		err = s.handleCheckWeather(ctx, cmd, result)
	default:
		return nil, fmt.Errorf("%w: unhandled intent %q", utils.ErrInvalidInput, verdict.Intent)
	}
	if err != nil {
		return nil, err
	}

	s.finish(ctx, cmd, result)
	return result, nil
}

// finish runs the shared tail of every successful command: natural speech
// rewriting when a phrasing model is configured, then the audit trail.
func (s *VoiceCommandService) finish(ctx context.Context, cmd VoiceCommand, result *models.VoiceCommandResult) {
	s.rephrase(ctx, result)
	s.auditLog(ctx, cmd, result)
}

// rephrase asks the phrasing model to turn the template answer into natural
// speech. Any failure keeps the template text, so commands never depend on
// the model being reachable.
func (s *VoiceCommandService) rephrase(ctx context.Context, result *models.VoiceCommandResult) {
	if s.phraser == nil || strings.TrimSpace(result.Message) == "" {
		return
	}
	prompt := fmt.Sprintf(
		"Reformula esta respuesta de un caddie de golf para voz, en una sola frase natural en español, manteniendo exactas todas las cifras y los nombres de palos. Responde solo con la frase.\n\nRespuesta: %s",
		result.Message,
	)
	spoken, err := s.phraser.Complete(ctx, prompt)
	if err != nil {
		s.logger.WithError(err).Debug("Phrasing model unavailable, keeping template answer")
		return
	}
	spoken = strings.TrimSpace(spoken)
	if spoken == "" {
		return
	}
	result.Message = spoken
}

// auditLog records the full command and response for replay. Failures here
// never fail the command.
func (s *VoiceCommandService) auditLog(ctx context.Context, cmd VoiceCommand, result *models.VoiceCommandResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	log := models.VoiceCommandLog{
		RequestID:  result.RequestID,
		MatchID:    cmd.MatchID,
		UserID:     cmd.UserID,
		Query:      cmd.Query,
		Intent:     result.Intent,
		Confidence: result.Confidence,
		Response:   datatypes.JSON(payload),
	}
	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		s.logger.WithError(err).Warn("Failed to write voice command audit log")
	}
}

func validateCommand(cmd VoiceCommand) error {
	if strings.TrimSpace(cmd.Query) == "" {
		return fmt.Errorf("%w: query must not be empty", utils.ErrInvalidInput)
	}
	if cmd.Lat < -90 || cmd.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range", utils.ErrInvalidInput, cmd.Lat)
	}
	if cmd.Lon < -180 || cmd.Lon > 180 {
		return fmt.Errorf("%w: longitude %f out of range", utils.ErrInvalidInput, cmd.Lon)
	}
	return nil
}

func (s *VoiceCommandService) handleConfirmations(ctx context.Context, cmd VoiceCommand, requestID string, confirmations []HoleScoreMention) (*models.VoiceCommandResult, error) {
	var recorded []int
	for _, c := range confirmations {
		hole, err := s.course.GetHoleByNumber(ctx, cmd.CourseID, c.HoleNumber)
		if err != nil {
			return nil, err
		}
		if _, err := s.matches.RecordHoleScore(ctx, cmd.MatchID, cmd.UserID, hole, c.Strokes); err != nil {
			return nil, err
		}
		recorded = append(recorded, c.HoleNumber)
	}

	return &models.VoiceCommandResult{
		RequestID:  requestID,
		Intent:     models.IntentRecordHoleScoreDirect,
		Confidence: 1.0,
		Message:    fmt.Sprintf("Anotados los resultados de los hoyos %s.", joinHoleNumbers(recorded)),
		Data:       map[string]interface{}{"recorded_holes": recorded},
	}, nil
}

func (s *VoiceCommandService) askForMissingHoles(requestID string, verdict models.IntentResult, mentioned int, missing []int) *models.VoiceCommandResult {
	return &models.VoiceCommandResult{
		RequestID:    requestID,
		Intent:       verdict.Intent,
		Confidence:   verdict.Confidence,
		NeedsConfirm: true,
		Message: fmt.Sprintf(
			"Antes de pasar al hoyo %d necesito los resultados de los hoyos %s. Dime por ejemplo: hoyo %d con 5 golpes.",
			mentioned, joinHoleNumbers(missing), missing[0]),
		Data: map[string]interface{}{
			"mentioned_hole": mentioned,
			"missing_holes":  missing,
		},
	}
}

func (s *VoiceCommandService) handleRecommendShot(ctx context.Context, cmd VoiceCommand, hole *models.Hole, ball spatial.Point, result *models.VoiceCommandResult) error {
	terrain := s.course.TerrainAt(hole, ball)
	if described := s.terrain.Resolve(cmd.Query); described.IsTerrainDescription() {
		terrain = described.Terrain
	}

	profile, err := s.stats.GetProfileByUser(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	stats, err := s.stats.GetStatistics(ctx, profile.ID)
	if err != nil {
		return err
	}

	rec, err := s.recommender.Recommend(hole, ball, stats, terrain)
	if err != nil {
		return err
	}

	// remember the proposal so the next position fix can be judged against it
	if err := s.matches.AttachProposal(ctx, cmd.MatchID, cmd.UserID, hole.ID, rec); err != nil {
		s.logger.WithError(err).Warn("Failed to attach proposal to open stroke")
	}

	msg := fmt.Sprintf("Usa %s con swing %s hacia %s, a %.0f metros.",
		rec.ClubName, rec.Swing, rec.TargetDescription, rec.TargetDistanceMeters)
	if rec.FallbackClub {
		msg = fmt.Sprintf("Ningún palo llega cómodo. Lo más cercano es %s hacia %s, a %.0f metros.",
			rec.ClubName, rec.TargetDescription, rec.TargetDistanceMeters)
	}
	if len(rec.Obstacles) > 0 {
		msg += fmt.Sprintf(" Cuidado: %s.", describeObstacles(rec.Obstacles))
	}

	result.Message = msg
	result.Recommendation = rec
	result.Data = map[string]interface{}{
		"terrain":         rec.Terrain,
		"risk_score":      rec.RiskScore,
		"obstacles_count": len(rec.Obstacles),
		"distance_meters": rec.TargetDistanceMeters,
	}
	return nil
}

func (s *VoiceCommandService) handleRegisterStroke(ctx context.Context, cmd VoiceCommand, hole *models.Hole, ball spatial.Point, result *models.VoiceCommandResult) error {
	eval, err := s.matches.EvaluateStroke(ctx, cmd.MatchID, cmd.UserID, hole, ball)
	if err != nil {
		return err
	}

	if eval != nil && eval.ClubUsedID != nil && eval.TargetDistanceMeters != nil && !eval.GreenToGreen {
		profile, perr := s.stats.GetProfileByUser(ctx, cmd.UserID)
		if perr == nil {
			if _, serr := s.stats.RecordOutcome(ctx, profile.ID, *eval.ClubUsedID, *eval.TargetDistanceMeters, eval.ActualDistanceMeters); serr != nil {
				s.logger.WithError(serr).Warn("Failed to record club outcome")
			}
		}
	}

	score, err := s.matches.IncrementHoleStrokes(ctx, cmd.MatchID, cmd.UserID, hole, 1)
	if err != nil {
		return err
	}
	if _, err := s.matches.CreateStroke(ctx, cmd.MatchID, cmd.UserID, hole, ball, score.Strokes, nil); err != nil {
		return err
	}

	msg := fmt.Sprintf("Golpe %d registrado en el hoyo %d.", score.Strokes, hole.HoleNumber)
	data := map[string]interface{}{
		"hole_number":   hole.HoleNumber,
		"stroke_number": score.Strokes,
	}
	if eval != nil && eval.Quality != nil {
		msg += fmt.Sprintf(" El anterior salió a %.0f metros, calidad %.0f.", eval.ActualDistanceMeters, *eval.Quality)
		data["previous_quality"] = *eval.Quality
		data["previous_distance_meters"] = eval.ActualDistanceMeters
	}

	result.Message = msg
	result.Data = data
	return nil
}

func (s *VoiceCommandService) handleCheckDistance(hole *models.Hole, ball spatial.Point, result *models.VoiceCommandResult) error {
	distance, err := s.course.DistanceToFlag(hole, ball)
	if err != nil {
		return err
	}
	result.Message = fmt.Sprintf("Quedan %.0f metros a bandera en el hoyo %d.", distance, hole.HoleNumber)
	result.Data = map[string]interface{}{
		"hole_number":     hole.HoleNumber,
		"distance_meters": distance,
		"distance_yards":  spatial.MetersToYards(distance),
	}
	return nil
}

func (s *VoiceCommandService) handleCheckObstacles(hole *models.Hole, ball spatial.Point, result *models.VoiceCommandResult) error {
	obstacles, err := s.course.ObstaclesToFlag(hole, ball)
	if err != nil {
		return err
	}
	if len(obstacles) == 0 {
		result.Message = "Tienes línea limpia a bandera."
	} else {
		result.Message = fmt.Sprintf("Hay %d obstáculos hasta bandera: %s.", len(obstacles), describeObstacles(obstacles))
	}
	result.Data = map[string]interface{}{
		"hole_number":     hole.HoleNumber,
		"obstacles":       obstacles,
		"obstacles_count": len(obstacles),
	}
	return nil
}

func (s *VoiceCommandService) handleCheckTerrain(query string, hole *models.Hole, ball spatial.Point, result *models.VoiceCommandResult) error {
	terrain := s.course.TerrainAt(hole, ball)
	source := "gps"
	if described := s.terrain.Resolve(query); described.IsTerrainDescription() {
		terrain = described.Terrain
		source = "description"
	}
	result.Message = fmt.Sprintf("La bola está en %s.", terrainNamesES[terrain])
	result.Data = map[string]interface{}{
		"terrain": terrain,
		"source":  source,
	}
	if source == "description" {
		if obstacle, distance := s.course.NearestObstacleByType(hole, ball, terrain); obstacle != nil {
			result.Data["obstacle_name"] = obstacle.Name
			result.Data["obstacle_distance_meters"] = distance
		}
	}
	return nil
}

func (s *VoiceCommandService) handleCompleteHole(ctx context.Context, cmd VoiceCommand, hole *models.Hole, result *models.VoiceCommandResult) error {
	var score *models.HoleScore
	var err error
	if mention := ExtractHoleAndStrokes(cmd.Query); mention.Strokes > 0 {
		score, err = s.matches.RecordHoleScore(ctx, cmd.MatchID, cmd.UserID, hole, mention.Strokes)
	} else {
		score, err = s.matches.CompleteHole(ctx, cmd.MatchID, cmd.UserID, hole)
	}
	if err != nil {
		return err
	}

	// settle any still-open stroke with the putt quality ladder
	_, strokes, herr := s.matches.HoleStats(ctx, cmd.MatchID, cmd.UserID, hole.ID)
	if herr == nil {
		greenStrokes := 0
		for _, st := range strokes {
			if st.StartTerrain == models.TerrainGreen {
				greenStrokes++
			}
		}
		if gerr := s.matches.EvaluateGreenStrokes(ctx, cmd.MatchID, cmd.UserID, hole, greenStrokes); gerr != nil {
			s.logger.WithError(gerr).Warn("Failed to settle green strokes")
		}
	}

	result.Message = fmt.Sprintf("Hoyo %d completado con %d golpes, par %d.", hole.HoleNumber, score.Strokes, hole.Par)
	result.Data = map[string]interface{}{
		"hole_number": hole.HoleNumber,
		"strokes":     score.Strokes,
		"par":         hole.Par,
	}
	return nil
}

func (s *VoiceCommandService) handleRecordScore(ctx context.Context, cmd VoiceCommand, hole *models.Hole, result *models.VoiceCommandResult) error {
	mention := ExtractHoleAndStrokes(cmd.Query)
	if mention.Strokes <= 0 {
		return fmt.Errorf("%w: no stroke count in %q", utils.ErrInvalidInput, cmd.Query)
	}
	if mention.HoleNumber > 0 && mention.HoleNumber != hole.HoleNumber {
		target, err := s.course.GetHoleByNumber(ctx, cmd.CourseID, mention.HoleNumber)
		if err != nil {
			return err
		}
		hole = target
	}

	score, err := s.matches.RecordHoleScore(ctx, cmd.MatchID, cmd.UserID, hole, mention.Strokes)
	if err != nil {
		return err
	}
	result.Message = fmt.Sprintf("Anotado: hoyo %d con %d golpes.", hole.HoleNumber, score.Strokes)
	result.Data = map[string]interface{}{
		"hole_number": hole.HoleNumber,
		"strokes":     score.Strokes,
	}
	return nil
}

func (s *VoiceCommandService) handleUpdateScore(ctx context.Context, cmd VoiceCommand, hole *models.Hole, result *models.VoiceCommandResult) error {
	mention := ExtractHoleAndStrokes(cmd.Query)
	if mention.Strokes <= 0 {
		return fmt.Errorf("%w: no stroke count in %q", utils.ErrInvalidInput, cmd.Query)
	}
	if mention.HoleNumber > 0 && mention.HoleNumber != hole.HoleNumber {
		target, err := s.course.GetHoleByNumber(ctx, cmd.CourseID, mention.HoleNumber)
		if err != nil {
			return err
		}
		hole = target
	}

	score, err := s.matches.UpdateHoleScore(ctx, cmd.MatchID, cmd.UserID, hole, mention.Strokes)
	if err != nil {
		return err
	}
	result.Message = fmt.Sprintf("Corregido: hoyo %d ahora con %d golpes.", hole.HoleNumber, score.Strokes)
	result.Data = map[string]interface{}{
		"hole_number": hole.HoleNumber,
		"strokes":     score.Strokes,
	}
	return nil
}

func (s *VoiceCommandService) handleCheckRanking(ctx context.Context, cmd VoiceCommand, result *models.VoiceCommandResult) error {
	entries, err := s.matches.Leaderboard(ctx, cmd.MatchID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		result.Message = "Todavía no hay resultados anotados."
		result.Data = map[string]interface{}{"leaderboard": entries}
		return nil
	}

	var parts []string
	for _, e := range entries {
		name := e.DisplayName
		if name == "" {
			name = fmt.Sprintf("jugador %d", e.UserID)
		}
		parts = append(parts, fmt.Sprintf("%d. %s con %+d", e.Position, name, e.ScoreToPar))
	}
	result.Message = fmt.Sprintf("Clasificación: %s.", strings.Join(parts, ", "))
	result.Data = map[string]interface{}{"leaderboard": entries}
	return nil
}

func (s *VoiceCommandService) handleCheckHoleStats(ctx context.Context, cmd VoiceCommand, hole *models.Hole, result *models.VoiceCommandResult) error {
	score, strokes, err := s.matches.HoleStats(ctx, cmd.MatchID, cmd.UserID, hole.ID)
	if err != nil {
		return err
	}

	count := 0
	if score != nil {
		count = score.Strokes
	}
	result.Message = fmt.Sprintf("Llevas %d golpes en el hoyo %d.", count, hole.HoleNumber)
	result.Data = map[string]interface{}{
		"hole_number":      hole.HoleNumber,
		"strokes":          count,
		"registered_shots": len(strokes),
	}
	return nil
}

func (s *VoiceCommandService) handleCheckHoleInfo(hole *models.Hole, ball spatial.Point, result *models.VoiceCommandResult) error {
	msg := fmt.Sprintf("Hoyo %d, par %d, %.0f metros.", hole.HoleNumber, hole.Par, hole.LengthMeters)
	data := map[string]interface{}{
		"hole_number":   hole.HoleNumber,
		"par":           hole.Par,
		"length_meters": hole.LengthMeters,
	}
	if distance, err := s.course.DistanceToFlag(hole, ball); err == nil {
		msg += fmt.Sprintf(" Te quedan %.0f metros a bandera.", distance)
		data["distance_meters"] = distance
	}
	result.Message = msg
	result.Data = data
	return nil
}

func (s *VoiceCommandService) handleCheckWeather(ctx context.Context, cmd VoiceCommand, result *models.VoiceCommandResult) error {
	conditions, err := s.weather.GetConditions(ctx, cmd.Lat, cmd.Lon)
	if err != nil {
		// a weather outage should not fail the round
		s.logger.WithError(err).Warn("Weather lookup failed")
		result.Message = "No pude obtener información del clima en este momento."
		result.Data = map[string]interface{}{"error": err.Error()}
		return nil
	}
	impact := s.weather.GetGolfImpact(conditions)

	result.Message = fmt.Sprintf("%.0f grados, viento de %.0f kilómetros por hora.",
		conditions.TemperatureCelsius, conditions.WindSpeedKmh)
	result.Data = map[string]interface{}{
		"conditions":       conditions,
		"distance_factor":  impact,
		"wind_speed_kmh":   conditions.WindSpeedKmh,
		"temperature_c":    conditions.TemperatureCelsius,
		"precipitation_mm": conditions.PrecipitationMm,
	}
	return nil
}

func describeObstacles(obstacles []models.ObstacleInfo) string {
	var parts []string
	for _, o := range obstacles {
		name := o.Name
		if name == "" {
			name = terrainNamesES[o.Type]
		}
		parts = append(parts, fmt.Sprintf("%s a %.0f metros", name, o.DistanceMeters))
	}
	return strings.Join(parts, ", ")
}

func joinHoleNumbers(holes []int) string {
	var parts []string
	for _, h := range holes {
		parts = append(parts, fmt.Sprintf("%d", h))
	}
	return strings.Join(parts, ", ")
}
