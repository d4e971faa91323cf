package services

import (
	"regexp"
	"strconv"
	"strings"
)

// Lightweight Spanish pattern extraction for score-related utterances. The
// classifier decides the intent; these regexes pull the numbers out.

var (
	holeNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`hoyo\s+(?:n[úu]mero\s+)?(\d+)`),
		regexp.MustCompile(`(?:en|para|del)\s+(?:el\s+)?hoyo\s+(\d+)`),
		regexp.MustCompile(`(?:estoy\s+)?(?:en|jugando)\s+(?:el\s+)?(\d+)`),
	}

	holeWithStrokesPattern    = regexp.MustCompile(`hoyo\s+(\d+)\s+(?:con|a)\s+(\d+)\s+golpes?`)
	strokesInHolePattern      = regexp.MustCompile(`(\d+)\s+golpes?\s+en\s+(?:el\s+)?hoyo\s+(\d+)`)
	correctionPattern         = regexp.MustCompile(`(?:corrige|cambia|modifica|actualiza)\s+(?:el\s+)?(?:resultado\s+)?(?:del\s+)?hoyo\s+(\d+)\s+(?:a|con)?\s*(\d+)\s+golpes?`)
	strokesOnlyPattern        = regexp.MustCompile(`(?:con|a|de)\s+(\d+)\s+golpes?`)
	trailingNumberPattern     = regexp.MustCompile(`\b(\d+)\s*(?:golpes?)?\s*$`)
	confirmationPattern       = regexp.MustCompile(`hoyo\s+(\d+)\s*(?:con|:)\s*(\d+)\s*golpes?`)
	colonConfirmationPattern  = regexp.MustCompile(`(\d+)\s*:\s*(\d+)\s*(?:golpes?)?`)
	looseConfirmationPattern  = regexp.MustCompile(`hoyo\s+(\d+)\s+(\d+)\s+golpes?`)
)

// HoleScoreMention is a hole number and stroke count pulled from free text
type HoleScoreMention struct {
	HoleNumber int
	Strokes    int
}

// ExtractMentionedHole returns the hole number named in the utterance, or 0
// when none is mentioned. Bare numbers only count when they are plausible
// hole numbers.
func ExtractMentionedHole(query string) int {
	q := strings.ToLower(query)

	for i, p := range holeNumberPatterns {
		m := p.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		// the bare-number pattern needs a plausibility check
		if i == 2 && (n < 1 || n > 18) {
			continue
		}
		return n
	}
	return 0
}

// ExtractHoleAndStrokes pulls a hole number and/or stroke count out of an
// utterance like "hoyo 5 con 4 golpes" or "terminé con 6 golpes". Either
// field may be zero when absent.
func ExtractHoleAndStrokes(query string) HoleScoreMention {
	q := strings.ToLower(query)

	if m := holeWithStrokesPattern.FindStringSubmatch(q); m != nil {
		return HoleScoreMention{HoleNumber: atoi(m[1]), Strokes: atoi(m[2])}
	}
	if m := strokesInHolePattern.FindStringSubmatch(q); m != nil {
		return HoleScoreMention{HoleNumber: atoi(m[2]), Strokes: atoi(m[1])}
	}
	if m := correctionPattern.FindStringSubmatch(q); m != nil {
		return HoleScoreMention{HoleNumber: atoi(m[1]), Strokes: atoi(m[2])}
	}
	if m := strokesOnlyPattern.FindStringSubmatch(q); m != nil {
		return HoleScoreMention{Strokes: atoi(m[1])}
	}
	if m := trailingNumberPattern.FindStringSubmatch(q); m != nil {
		return HoleScoreMention{Strokes: atoi(m[1])}
	}
	return HoleScoreMention{}
}

// ExtractHoleConfirmations pulls every "hoyo X con Y golpes" style pair out
// of an utterance. A reply confirming several holes at once produces one
// mention per hole.
func ExtractHoleConfirmations(query string) []HoleScoreMention {
	q := strings.ToLower(query)

	var mentions []HoleScoreMention
	for _, m := range confirmationPattern.FindAllStringSubmatch(q, -1) {
		mentions = append(mentions, HoleScoreMention{HoleNumber: atoi(m[1]), Strokes: atoi(m[2])})
	}
	if len(mentions) > 0 {
		return mentions
	}

	for _, m := range colonConfirmationPattern.FindAllStringSubmatch(q, -1) {
		hole, strokes := atoi(m[1]), atoi(m[2])
		if hole >= 1 && hole <= 18 && strokes >= 1 && strokes <= 20 {
			mentions = append(mentions, HoleScoreMention{HoleNumber: hole, Strokes: strokes})
		}
	}
	if len(mentions) > 0 {
		return mentions
	}

	for _, m := range looseConfirmationPattern.FindAllStringSubmatch(q, -1) {
		mentions = append(mentions, HoleScoreMention{HoleNumber: atoi(m[1]), Strokes: atoi(m[2])})
	}
	return mentions
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
