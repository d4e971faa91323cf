package models

// TerrainType names a kind of ground the ball can lie on. The values double
// as obstacle types for hole geometry.
type TerrainType string

const (
	TerrainTrees       TerrainType = "trees"
	TerrainBunker      TerrainType = "bunker"
	TerrainWater       TerrainType = "water"
	TerrainRoughHeavy  TerrainType = "rough_heavy"
	TerrainRough       TerrainType = "rough"
	TerrainFairway     TerrainType = "fairway"
	TerrainGreen       TerrainType = "green"
	TerrainOutOfBounds TerrainType = "out_of_bounds"
	TerrainTee         TerrainType = "tee"
)

// Intent is a recognized voice command intent
type Intent string

const (
	IntentRecommendShot         Intent = "recommend_shot"
	IntentRegisterStroke        Intent = "register_stroke"
	IntentCheckDistance         Intent = "check_distance"
	IntentCheckObstacles        Intent = "check_obstacles"
	IntentCheckTerrain          Intent = "check_terrain"
	IntentCompleteHole          Intent = "complete_hole"
	IntentRecordHoleScoreDirect Intent = "record_hole_score_direct"
	IntentUpdateHoleScore       Intent = "update_hole_score"
	IntentCheckRanking          Intent = "check_ranking"
	IntentCheckHoleStats        Intent = "check_hole_stats"
	IntentCheckHoleInfo         Intent = "check_hole_info"
	IntentCheckWeather          Intent = "check_weather"
)

// KnownIntents lists every intent the classifier may return
var KnownIntents = []Intent{
	IntentRecommendShot,
	IntentRegisterStroke,
	IntentCheckDistance,
	IntentCheckObstacles,
	IntentCheckTerrain,
	IntentCompleteHole,
	IntentRecordHoleScoreDirect,
	IntentUpdateHoleScore,
	IntentCheckRanking,
	IntentCheckHoleStats,
	IntentCheckHoleInfo,
	IntentCheckWeather,
}

// IsKnownIntent reports whether s names a recognized intent
func IsKnownIntent(s string) bool {
	for _, in := range KnownIntents {
		if string(in) == s {
			return true
		}
	}
	return false
}

// IntentResult is the classifier's verdict on one utterance
type IntentResult struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Fallback   bool    `json:"fallback,omitempty"`
}

// TerrainMatch is the terrain resolver's verdict on one utterance
type TerrainMatch struct {
	Resolved        bool        `json:"resolved"`
	Terrain         TerrainType `json:"terrain,omitempty"`
	Confidence      float64     `json:"confidence"`
	MatchedKeywords []string    `json:"matched_keywords,omitempty"`
	SourceText      string      `json:"source_text,omitempty"`
}

// IsTerrainDescription reports whether the utterance convincingly described
// the ball's lie rather than asking a question
func (m TerrainMatch) IsTerrainDescription() bool {
	return m.Resolved && m.Confidence > 0.5
}

// ObstacleInfo describes one obstacle between the ball and a target
type ObstacleInfo struct {
	Type           TerrainType `json:"type"`
	Name           string      `json:"name,omitempty"`
	DistanceMeters float64     `json:"distance_meters"`
	CarryMeters    float64     `json:"carry_meters"`
}

// SwingType is the recommended swing length
type SwingType string

const (
	SwingFull         SwingType = "completo"
	SwingThreeQuarter SwingType = "3/4"
	SwingHalf         SwingType = "1/2"
)

// ShotRecommendation is the recommendation engine's answer for one lie
type ShotRecommendation struct {
	ClubID               uint           `json:"club_id"`
	ClubName             string         `json:"club_name"`
	TargetDistanceMeters float64        `json:"target_distance_meters"`
	TargetLat            float64        `json:"target_lat"`
	TargetLon            float64        `json:"target_lon"`
	TargetDescription    string         `json:"target_description"`
	Swing                SwingType      `json:"swing"`
	RiskScore            int            `json:"risk_score"`
	FallbackClub         bool           `json:"fallback_club"`
	Terrain              TerrainType    `json:"terrain"`
	Obstacles            []ObstacleInfo `json:"obstacles,omitempty"`
}

// VoiceCommandResult is the orchestrator's answer to one voice command
type VoiceCommandResult struct {
	RequestID      string                 `json:"request_id"`
	Intent         Intent                 `json:"intent"`
	Confidence     float64                `json:"confidence"`
	Message        string                 `json:"message"`
	NeedsConfirm   bool                   `json:"needs_confirmation,omitempty"`
	Recommendation *ShotRecommendation    `json:"recommendation,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
}
