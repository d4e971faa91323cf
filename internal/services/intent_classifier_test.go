package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fairwaylabs/caddie-backend/internal/models"
)

// MockTextModel for testing
type MockTextModel struct {
	mock.Mock
}

func (m *MockTextModel) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func newTestClassifier(model TextModel) *IntentClassifier {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewIntentClassifier(model, logrus.NewEntry(logger))
}

func TestClassifyValidResponse(t *testing.T) {
	model := new(MockTextModel)
	model.On("Complete", mock.Anything, mock.Anything).
		Return(`{"intent": "check_distance", "confidence": 0.92}`, nil)

	result := newTestClassifier(model).Classify(context.Background(), "¿Cuánto falta a bandera?")

	assert.Equal(t, models.IntentCheckDistance, result.Intent)
	assert.Equal(t, 0.92, result.Confidence)
	assert.False(t, result.Fallback)
}

func TestClassifyStripsMarkdownFences(t *testing.T) {
	model := new(MockTextModel)
	model.On("Complete", mock.Anything, mock.Anything).
		Return("```json\n{\"intent\": \"check_weather\", \"confidence\": 0.8}\n```", nil)

	result := newTestClassifier(model).Classify(context.Background(), "what's the weather like")

	assert.Equal(t, models.IntentCheckWeather, result.Intent)
	assert.Equal(t, 0.8, result.Confidence)
}

func TestClassifyExtractsEmbeddedJSON(t *testing.T) {
	model := new(MockTextModel)
	model.On("Complete", mock.Anything, mock.Anything).
		Return(`Sure, here is the classification: {"intent": "complete_hole", "confidence": 0.75} Hope that helps!`, nil)

	result := newTestClassifier(model).Classify(context.Background(), "terminé el hoyo")

	assert.Equal(t, models.IntentCompleteHole, result.Intent)
}

func TestClassifyClampsConfidence(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
	}{
		{"above one", `{"intent": "recommend_shot", "confidence": 1.7}`, 1.0},
		{"below zero", `{"intent": "recommend_shot", "confidence": -0.2}`, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := new(MockTextModel)
			model.On("Complete", mock.Anything, mock.Anything).Return(tt.response, nil)

			result := newTestClassifier(model).Classify(context.Background(), "qué palo uso")
			assert.Equal(t, tt.want, result.Confidence)
		})
	}
}

func TestClassifyFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{"model error", "", errors.New("connection refused")},
		{"empty response", "", nil},
		{"no json object", "I think the player wants a recommendation", nil},
		{"unknown intent", `{"intent": "order_beverage", "confidence": 0.9}`, nil},
		{"malformed json", `{"intent": "check_distance", "confidence":`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := new(MockTextModel)
			model.On("Complete", mock.Anything, mock.Anything).Return(tt.response, tt.err)

			result := newTestClassifier(model).Classify(context.Background(), "algo raro")

			assert.Equal(t, models.IntentRecommendShot, result.Intent)
			assert.Equal(t, 0.3, result.Confidence)
			assert.True(t, result.Fallback)
		})
	}
}

func TestClassifyEmptyUtteranceSkipsModel(t *testing.T) {
	model := new(MockTextModel)

	result := newTestClassifier(model).Classify(context.Background(), "   ")

	assert.True(t, result.Fallback)
	model.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestClassifyNormalizesIntentCase(t *testing.T) {
	model := new(MockTextModel)
	model.On("Complete", mock.Anything, mock.Anything).
		Return(`{"intent": "Check_Ranking", "confidence": 0.66}`, nil)

	result := newTestClassifier(model).Classify(context.Background(), "cómo va el partido")

	assert.Equal(t, models.IntentCheckRanking, result.Intent)
}
