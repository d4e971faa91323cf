package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairwaylabs/caddie-backend/internal/models"
	"github.com/fairwaylabs/caddie-backend/pkg/database"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

type voiceFixture struct {
	svc     *VoiceCommandService
	db      *database.DB
	model   *MockTextModel
	matches *MatchService
	course  *CourseService
	hole    *models.Hole
	match   *models.Match
}

func newVoiceFixture(t *testing.T) *voiceFixture {
	t.Helper()
	ctx := context.Background()

	db := newTestDB(t)
	cfg := testConfig()
	courseSvc := NewCourseService(db, nil, testLogger())
	matchSvc := NewMatchService(db, courseSvc, nil, testLogger())
	statsSvc := NewPlayerStatsService(db, cfg, nil, testLogger())
	recSvc := NewRecommendationService(courseSvc, cfg, testLogger())

	model := new(MockTextModel)
	classifier := NewIntentClassifier(model, testLogger())
	svc := NewVoiceCommandService(db, classifier, NewTerrainResolver(), courseSvc, matchSvc, statsSvc, recSvc, nil, testLogger())

	created := createTestHole(t, db)
	hole, err := courseSvc.GetHole(ctx, created.ID)
	require.NoError(t, err)

	match, err := matchSvc.CreateMatch(ctx, hole.CourseID, []uint{10}, 1)
	require.NoError(t, err)
	match, err = matchSvc.StartMatch(ctx, match.ID)
	require.NoError(t, err)

	profile := createTestProfile(t, db, 10, models.GenderMale, models.SkillIntermediate)
	_, err = statsSvc.SeedDefaults(ctx, profile.ID)
	require.NoError(t, err)

	return &voiceFixture{
		svc:     svc,
		db:      db,
		model:   model,
		matches: matchSvc,
		course:  courseSvc,
		hole:    hole,
		match:   match,
	}
}

func (f *voiceFixture) command(query string, lat, lon float64) VoiceCommand {
	return VoiceCommand{
		MatchID:  f.match.ID,
		UserID:   10,
		CourseID: f.hole.CourseID,
		Lat:      lat,
		Lon:      lon,
		Query:    query,
	}
}

func (f *voiceFixture) classifyAs(intent models.Intent, confidence float64) {
	f.model.On("Complete", mock.Anything, mock.Anything).
		Return(fmt.Sprintf(`{"intent": %q, "confidence": %g}`, intent, confidence), nil)
}

func TestProcessRejectsInvalidCoordinates(t *testing.T) {
	f := newVoiceFixture(t)

	_, err := f.svc.Process(context.Background(), f.command("¿cuánto queda?", 95, 0))
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))

	_, err = f.svc.Process(context.Background(), f.command("¿cuánto queda?", 0, 190))
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
}

func TestProcessRejectsEmptyQuery(t *testing.T) {
	f := newVoiceFixture(t)

	_, err := f.svc.Process(context.Background(), f.command("   ", 0, 0))
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
}

func TestProcessRejectsNonParticipant(t *testing.T) {
	f := newVoiceFixture(t)

	cmd := f.command("¿cuánto queda?", 0, 0)
	cmd.UserID = 99
	_, err := f.svc.Process(context.Background(), cmd)
	assert.True(t, errors.Is(err, utils.ErrInvalidInput))
}

func TestProcessRecommendShotEndToEnd(t *testing.T) {
	f := newVoiceFixture(t)
	f.classifyAs(models.IntentRecommendShot, 0.9)

	// greenside bunker straddling the line from the 88m position to the flag
	require.NoError(t, f.db.Create(&models.HoleObstacle{
		HoleID: f.hole.ID,
		Type:   models.TerrainBunker,
		Name:   "bunker frontal",
		Shape: models.Ring{
			{Lat: -0.0001, Lon: 0.0024}, {Lat: 0.0001, Lon: 0.0024},
			{Lat: 0.0001, Lon: 0.0026}, {Lat: -0.0001, Lon: 0.0026},
			{Lat: -0.0001, Lon: 0.0024},
		},
	}).Error)

	// 88m short of the flag at lon 0.003, past the water
	result, err := f.svc.Process(context.Background(), f.command("¿Qué palo debo usar?", 0, 0.003-88.0/111195.0))
	require.NoError(t, err)

	assert.Equal(t, models.IntentRecommendShot, result.Intent)
	assert.InDelta(t, 0.9, result.Confidence, 0.001)
	require.NotNil(t, result.Recommendation)
	assert.InDelta(t, 88, result.Recommendation.TargetDistanceMeters, 0.5)
	assert.Equal(t, "bandera", result.Recommendation.TargetDescription)
	assert.Equal(t, 1, result.Data["obstacles_count"])
	assert.NotEmpty(t, result.Message)
	assert.NotEmpty(t, result.RequestID)
}

func TestProcessCheckDistance(t *testing.T) {
	f := newVoiceFixture(t)
	f.classifyAs(models.IntentCheckDistance, 0.9)

	result, err := f.svc.Process(context.Background(), f.command("¿cuánto queda a bandera?", 0, 0.003-150.0/111195.0))
	require.NoError(t, err)

	assert.Equal(t, models.IntentCheckDistance, result.Intent)
	assert.InDelta(t, 150, result.Data["distance_meters"].(float64), 0.5)
	assert.Contains(t, result.Message, "metros")

	// every answered command leaves an audit row
	var logEntry models.VoiceCommandLog
	require.NoError(t, f.db.Where("request_id = ?", result.RequestID).First(&logEntry).Error)
	assert.Equal(t, models.IntentCheckDistance, logEntry.Intent)
	assert.NotEmpty(t, logEntry.Response)
}

func TestProcessRegisterStrokeFlow(t *testing.T) {
	f := newVoiceFixture(t)
	f.classifyAs(models.IntentRegisterStroke, 0.9)
	ctx := context.Background()

	// first shot from the tee: nothing to evaluate yet
	result, err := f.svc.Process(ctx, f.command("registra el golpe", 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Data["stroke_number"])
	assert.NotContains(t, result.Data, "previous_quality")

	// second shot from the layup area closes the first stroke
	result, err = f.svc.Process(ctx, f.command("registra el golpe", 0, 0.0018))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Data["stroke_number"])
	require.Contains(t, result.Data, "previous_quality")

	// carry was 200m against a 334m flag reference from the tee
	assert.InDelta(t, 200, result.Data["previous_distance_meters"].(float64), 1.0)
	assert.InDelta(t, 60, result.Data["previous_quality"].(float64), 1.0)

	score, strokes, err := f.matches.HoleStats(ctx, f.match.ID, 10, f.hole.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, score.Strokes)
	assert.Len(t, strokes, 2)
}

func TestProcessAsksForMissingHoles(t *testing.T) {
	f := newVoiceFixture(t)
	f.classifyAs(models.IntentCheckDistance, 0.9)

	result, err := f.svc.Process(context.Background(), f.command("¿cuánto queda en el hoyo 3?", 0, 0.001))
	require.NoError(t, err)

	assert.True(t, result.NeedsConfirm)
	assert.Equal(t, []int{1, 2}, result.Data["missing_holes"])
	assert.Contains(t, result.Message, "hoyo 3")
}

func TestProcessMultipleConfirmationsSkipClassifier(t *testing.T) {
	f := newVoiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&models.Hole{
		CourseID:   f.hole.CourseID,
		HoleNumber: 2,
		Par:        3,
	}).Error)

	result, err := f.svc.Process(ctx, f.command("hoyo 1 con 5 golpes y hoyo 2 con 4 golpes", 0, 0.001))
	require.NoError(t, err)

	assert.Equal(t, models.IntentRecordHoleScoreDirect, result.Intent)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, []int{1, 2}, result.Data["recorded_holes"])
	f.model.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)

	state, err := f.matches.GetMatchState(ctx, f.match.ID, 10)
	require.NoError(t, err)
	assert.Len(t, state.CompletedHoles, 2)
	assert.Equal(t, 9, state.TotalStrokes)
}

func TestProcessCheckTerrainPrefersDescription(t *testing.T) {
	f := newVoiceFixture(t)
	f.classifyAs(models.IntentCheckTerrain, 0.9)

	// GPS says fairway but the player says bunker
	result, err := f.svc.Process(context.Background(), f.command("estoy en el bunker", 0, 0.001))
	require.NoError(t, err)

	assert.Equal(t, models.TerrainBunker, result.Data["terrain"])
	assert.Equal(t, "description", result.Data["source"])
	assert.Contains(t, result.Message, "bunker")
}

func TestProcessCompleteHoleWithSpokenStrokes(t *testing.T) {
	f := newVoiceFixture(t)
	f.classifyAs(models.IntentCompleteHole, 0.9)
	ctx := context.Background()

	result, err := f.svc.Process(ctx, f.command("he terminado el hoyo con 5 golpes", 0, 0.0029))
	require.NoError(t, err)

	assert.Equal(t, 5, result.Data["strokes"])
	assert.Contains(t, result.Message, "Hoyo 1 completado")

	state, err := f.matches.GetMatchState(ctx, f.match.ID, 10)
	require.NoError(t, err)
	require.Len(t, state.CompletedHoles, 1)
	assert.Equal(t, 5, state.CompletedHoles[0].Strokes)
}

func TestProcessCheckRanking(t *testing.T) {
	f := newVoiceFixture(t)
	f.classifyAs(models.IntentCheckRanking, 0.9)
	ctx := context.Background()

	_, err := f.matches.RecordHoleScore(ctx, f.match.ID, 10, f.hole, 4)
	require.NoError(t, err)

	result, err := f.svc.Process(ctx, f.command("¿cómo va la clasificación?", 0, 0.001))
	require.NoError(t, err)

	assert.Contains(t, result.Message, "Clasificación")
	entries := result.Data["leaderboard"].([]LeaderboardEntry)
	require.Len(t, entries, 1)
	assert.Equal(t, uint(10), entries[0].UserID)
}

func TestProcessClassifierFallback(t *testing.T) {
	f := newVoiceFixture(t)
	f.model.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("upstream down"))

	result, err := f.svc.Process(context.Background(), f.command("mmm no sé", 0, 0.003-88.0/111195.0))
	require.NoError(t, err)

	// the deterministic fallback still produces a recommendation
	assert.Equal(t, models.IntentRecommendShot, result.Intent)
	assert.InDelta(t, 0.3, result.Confidence, 0.001)
	assert.NotNil(t, result.Recommendation)
}
func TestProcessCheckWeatherDegradesOnOutage(t *testing.T) {
	f := newVoiceFixture(t)
	f.classifyAs(models.IntentCheckWeather, 0.9)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	f.svc.weather = &WeatherService{
		apiClient: &http.Client{Timeout: 2 * time.Second},
		baseURL:   srv.URL,
		logger:    testLogger(),
	}

	result, err := f.svc.Process(context.Background(), f.command("¿qué tiempo hace?", 0, 0.001))
	require.NoError(t, err)

	assert.Contains(t, result.Message, "No pude obtener información del clima")
	assert.NotEmpty(t, result.Data["error"])
}

func TestProcessRephrasesWithPhrasingModel(t *testing.T) {
	f := newVoiceFixture(t)
	f.svc.WithPhrasing(f.model)

	isClassifier := func(prompt string) bool { return strings.Contains(prompt, "Known intents:") }
	f.model.On("Complete", mock.Anything, mock.MatchedBy(isClassifier)).
		Return(`{"intent": "check_distance", "confidence": 0.9}`, nil)
	f.model.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool { return strings.Contains(p, "Reformula") })).
		Return("Te quedan unos 150 metros hasta la bandera.", nil)

	result, err := f.svc.Process(context.Background(), f.command("¿cuánto queda?", 0, 0.003-150.0/111195.0))
	require.NoError(t, err)

	assert.Equal(t, "Te quedan unos 150 metros hasta la bandera.", result.Message)
	assert.InDelta(t, 150, result.Data["distance_meters"].(float64), 1)
}

func TestProcessKeepsTemplateWhenPhrasingFails(t *testing.T) {
	f := newVoiceFixture(t)
	f.svc.WithPhrasing(f.model)

	f.model.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool { return strings.Contains(p, "Known intents:") })).
		Return(`{"intent": "check_distance", "confidence": 0.9}`, nil)
	f.model.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool { return strings.Contains(p, "Reformula") })).
		Return("", errors.New("model overloaded"))

	result, err := f.svc.Process(context.Background(), f.command("¿cuánto queda?", 0, 0.003-150.0/111195.0))
	require.NoError(t, err)

	assert.Contains(t, result.Message, "metros a bandera")
}
