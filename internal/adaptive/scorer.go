package adaptive

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"cogscreen-service/internal/domain"
)

// Score values returned by Score.
const (
	ScoreDegenerate = 0.2
	ScoreDefault    = 0.6
	ScoreFluent     = 0.7
	ScoreStrong     = 0.8
)

const minAnswerRunes = 3

var (
	executiveKeywords = []string{"8", "eight", "bus", "plan", "reschedule"}
	memoryCues        = []string{"today", "yesterday", "breakfast"}
)

// Score rates a free-text answer for the given domain. It is a keyword and
// length heuristic, not a calibrated probability; the result is always one of
// the Score* constants.
func Score(d domain.Domain, response string) float64 {
	if utf8.RuneCountInString(strings.TrimSpace(response)) < minAnswerRunes {
		return ScoreDegenerate
	}
	lower := strings.ToLower(response)

	switch {
	case d == domain.Attention && strings.IndexFunc(response, unicode.IsDigit) >= 0:
		return ScoreStrong
	case d == domain.Executive && containsAny(lower, executiveKeywords):
		return ScoreStrong
	case d == domain.Language && len(strings.Fields(response)) >= 3:
		return ScoreFluent
	case d == domain.Memory && containsAny(lower, memoryCues):
		return ScoreFluent
	}
	return ScoreDefault
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
