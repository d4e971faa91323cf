package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fairwaylabs/caddie-backend/internal/models"
)

// DefaultIntent is what the classifier falls back to when it cannot trust
// the model output. Recommending a shot is the safest thing to say to a
// player who asked something on the course.
const (
	DefaultIntent            = models.IntentRecommendShot
	DefaultIntentConfidence  = 0.3
	classifierRequestTimeout = 5 * time.Second
)

var intentDescriptions = map[models.Intent]string{
	models.IntentRecommendShot:         "player asks which club to use or how to play the next shot",
	models.IntentRegisterStroke:        "player says they just hit the ball or describes where it landed",
	models.IntentCheckDistance:         "player asks how far to the flag or green",
	models.IntentCheckObstacles:        "player asks what hazards lie ahead",
	models.IntentCheckTerrain:          "player asks what surface the ball is on",
	models.IntentCompleteHole:          "player says they finished or holed out",
	models.IntentRecordHoleScoreDirect: "player states a total score for a hole",
	models.IntentUpdateHoleScore:       "player corrects a previously recorded score",
	models.IntentCheckRanking:          "player asks about the match standings",
	models.IntentCheckHoleStats:        "player asks about their own performance on a hole",
	models.IntentCheckHoleInfo:         "player asks about par, length or layout of a hole",
	models.IntentCheckWeather:          "player asks about current weather conditions",
}

// IntentClassifier maps a transcribed utterance to one of the known intents.
// Classify never returns an error: any model failure degrades to the default
// intent at low confidence.
type IntentClassifier struct {
	model  TextModel
	logger *logrus.Entry
}

func NewIntentClassifier(model TextModel, logger *logrus.Entry) *IntentClassifier {
	return &IntentClassifier{
		model:  model,
		logger: logger,
	}
}

// Classify determines the intent of one utterance
func (c *IntentClassifier) Classify(ctx context.Context, utterance string) models.IntentResult {
	fallback := models.IntentResult{
		Intent:     DefaultIntent,
		Confidence: DefaultIntentConfidence,
		Fallback:   true,
	}

	utterance = strings.TrimSpace(utterance)
	if utterance == "" || c.model == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, classifierRequestTimeout)
	defer cancel()

	raw, err := c.model.Complete(ctx, c.buildPrompt(utterance))
	if err != nil {
		c.logger.WithError(err).Warn("Intent classification failed, using fallback")
		return fallback
	}

	parsed, ok := parseIntentResponse(raw)
	if !ok {
		c.logger.WithField("response", truncateForLog(raw)).Warn("Unparseable classifier response, using fallback")
		return fallback
	}
	return parsed
}

func (c *IntentClassifier) buildPrompt(utterance string) string {
	var prompt strings.Builder

	prompt.WriteString("You classify voice commands from golfers during a round. ")
	prompt.WriteString("Commands may be in Spanish or English.\n\n")
	prompt.WriteString("Known intents:\n")
	for _, intent := range models.KnownIntents {
		prompt.WriteString("- ")
		prompt.WriteString(string(intent))
		prompt.WriteString(": ")
		prompt.WriteString(intentDescriptions[intent])
		prompt.WriteString("\n")
	}
	prompt.WriteString("\nCommand: \"")
	prompt.WriteString(utterance)
	prompt.WriteString("\"\n\n")
	prompt.WriteString("Respond with ONLY a JSON object, no other text:\n")
	prompt.WriteString(`{"intent": "<intent_name>", "confidence": <0.0-1.0>}`)

	return prompt.String()
}

type rawIntentResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// parseIntentResponse extracts the first JSON object from the model output
// and validates it against the known intents
func parseIntentResponse(text string) (models.IntentResult, bool) {
	text = stripMarkdownFences(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return models.IntentResult{}, false
	}

	var raw rawIntentResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return models.IntentResult{}, false
	}

	intent := strings.TrimSpace(strings.ToLower(raw.Intent))
	if !models.IsKnownIntent(intent) {
		return models.IntentResult{}, false
	}

	conf := raw.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return models.IntentResult{
		Intent:     models.Intent(intent),
		Confidence: conf,
	}, true
}

func stripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
