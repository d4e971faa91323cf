package services

import (
	"regexp"
	"strings"

	"github.com/fairwaylabs/caddie-backend/internal/models"
)

// terrainVocabulary maps keywords in Spanish and English to a terrain type.
// Categories are checked in registration order and ties on confidence go to
// the earlier category.
type terrainVocabulary struct {
	terrain  models.TerrainType
	keywords []string
}

var terrainVocabularies = []terrainVocabulary{
	{
		terrain: models.TerrainTrees,
		keywords: []string{
			"árbol", "arbol", "árboles", "arboles", "entre árboles", "bajo árboles",
			"debajo de árboles", "entre los árboles", "en los árboles", "arboleda",
			"bosque", "matorral", "vegetación", "fronda",
			"tree", "trees", "between trees", "under trees", "in trees", "wood", "woods",
		},
	},
	{
		terrain: models.TerrainBunker,
		keywords: []string{
			"bunker", "búnker", "trampa de arena", "arenera", "arena", "en la arena",
			"bunker de arena", "trampa",
			"sand trap", "sand", "in the sand", "sand pit",
		},
	},
	{
		terrain: models.TerrainWater,
		keywords: []string{
			"agua", "lago", "estanque", "río", "arroyo", "en el agua", "cerca del agua",
			"charco", "humedal", "pantano",
			"water", "lake", "pond", "river", "stream", "in the water", "near water",
			"wetland", "swamp",
		},
	},
	{
		terrain: models.TerrainRoughHeavy,
		keywords: []string{
			"rough", "rough pesado", "hierba alta", "hierba larga", "pasto alto",
			"vegetación densa", "matorral espeso", "zona de hierba",
			"heavy rough", "thick rough", "long grass", "dense vegetation",
		},
	},
	{
		terrain: models.TerrainRough,
		keywords: []string{
			"rough ligero", "hierba", "pasto", "hierba corta", "fuera del fairway",
			"light rough", "grass", "off fairway", "first cut",
		},
	},
	{
		terrain: models.TerrainFairway,
		keywords: []string{
			"fairway", "calle", "en la calle", "sobre el fairway", "calle del campo",
			"in the fairway", "on the fairway",
		},
	},
	{
		terrain: models.TerrainGreen,
		keywords: []string{
			"green", "verde", "en el green", "sobre el green", "putting green",
			"on the green", "green surface",
		},
	},
	{
		terrain: models.TerrainOutOfBounds,
		keywords: []string{
			"fuera de límites", "fuera del campo", "ob", "out of bounds", "fuera",
			"out", "outside the course",
		},
	},
	{
		terrain: models.TerrainTee,
		keywords: []string{
			"tee", "salida", "en el tee", "salida del hoyo", "tee de salida",
			"teeing ground", "tee box", "on the tee",
		},
	},
}

var positionIndicators = []string{
	"está", "estoy", "en", "entre", "sobre", "bajo",
	"is", "in", "between", "on", "under", "near",
}

type compiledKeyword struct {
	keyword string
	pattern *regexp.Regexp
}

type compiledVocabulary struct {
	terrain  models.TerrainType
	keywords []compiledKeyword
}

var (
	compiledVocabularies []compiledVocabulary
	positionPattern      *regexp.Regexp
)

func init() {
	for _, v := range terrainVocabularies {
		cv := compiledVocabulary{terrain: v.terrain}
		for _, kw := range v.keywords {
			cv.keywords = append(cv.keywords, compiledKeyword{
				keyword: strings.ToLower(kw),
				pattern: wholeWordPattern(kw),
			})
		}
		compiledVocabularies = append(compiledVocabularies, cv)
	}

	escaped := make([]string, len(positionIndicators))
	for i, ind := range positionIndicators {
		escaped[i] = regexp.QuoteMeta(ind)
	}
	positionPattern = regexp.MustCompile(`(?:^|[^\p{L}])(` + strings.Join(escaped, "|") + `)(?:[^\p{L}]|$)`)
}

// wholeWordPattern builds a whole-word matcher that treats accented letters
// as word characters, which \b does not
func wholeWordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}])` + regexp.QuoteMeta(strings.ToLower(keyword)) + `(?:[^\p{L}]|$)`)
}

// TerrainResolver maps free-text lie descriptions to terrain types without
// calling any external service
type TerrainResolver struct{}

func NewTerrainResolver() *TerrainResolver {
	return &TerrainResolver{}
}

// Resolve extracts the most likely terrain from a player's description.
// Confidence starts at 0.5 plus 0.1 per matched keyword, capped at 0.9, with
// a 0.2 bonus when the phrase carries an explicit position indicator.
func (r *TerrainResolver) Resolve(description string) models.TerrainMatch {
	description = strings.ToLower(strings.TrimSpace(description))
	if description == "" {
		return models.TerrainMatch{}
	}

	hasPosition := positionPattern.MatchString(description)

	best := models.TerrainMatch{}
	for _, cv := range compiledVocabularies {
		var matched []string
		for _, kw := range cv.keywords {
			if kw.pattern.MatchString(description) {
				matched = append(matched, kw.keyword)
			}
		}
		if len(matched) == 0 {
			continue
		}

		confidence := 0.5 + float64(len(matched))*0.1
		if confidence > 0.9 {
			confidence = 0.9
		}
		if hasPosition {
			confidence += 0.2
			if confidence > 1.0 {
				confidence = 1.0
			}
		}

		if !best.Resolved || confidence > best.Confidence {
			best = models.TerrainMatch{
				Resolved:        true,
				Terrain:         cv.terrain,
				Confidence:      confidence,
				MatchedKeywords: matched,
				SourceText:      description,
			}
		}
	}

	return best
}
