package passive

import (
	"regexp"
	"strings"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
)

// #region patterns

// Weights are kept in tenths so that compounding sums stay exact.
type pattern struct {
	name   string
	re     *regexp.Regexp
	tenths int
}

// "fine" only counts when it ends a sentence ("... fine."). "sure" counts at
// the end of a sentence or as a curt sentence opener ("Sure, ..."). Neither
// counts mid-sentence ("fine with it", "not sure, let me check").
var patterns = []pattern{
	{"sure", regexp.MustCompile(`\bsure\b(?:[.!?]+|$)|(?:^|[.!?]\s+)sure\b,`), 3},
	{"whatever", regexp.MustCompile(`\bwhatever\b`), 4},
	{"do what you want", regexp.MustCompile(`\bdo what you want\b`), 5},
	{"if you say so", regexp.MustCompile(`\bif you say so\b`), 4},
	{"fine", regexp.MustCompile(`\bfine\b(?:[.!?]+|$)`), 3},
	{"i guess", regexp.MustCompile(`\bi guess\b`), 2},
	{"no worries but", regexp.MustCompile(`\bno worries\b.*\bbut\b`), 4},
	{"sorry you feel that way", regexp.MustCompile(`\bsorry you feel that way\b`), 5},
	{"must be nice", regexp.MustCompile(`\bmust be nice\b`), 4},
	{"good for you", regexp.MustCompile(`\bgood for you\b`), 3},
}

const (
	sarcasmTenths = 1
	emotionTenths = 2

	emotionAngerCeiling = 0.3
	emotionDisgustFloor = 0.3
)

// #endregion patterns

// #region result

// Result explains a passive aggression score.
type Result struct {
	Score        float64
	Matches      []string
	Sarcasm      bool
	EmotionBoost bool
}

// #endregion result

// #region analyze

// Analyze scores text for passive aggression. Every matching pattern adds its
// weight; an ellipsis or "!!" adds 0.1; low anger with noticeable disgust in
// the text's emotion distribution adds 0.2. The total is capped at 1.
func Analyze(text string, emotions dialogue.Emotions) Result {
	lower := strings.ToLower(strings.TrimSpace(text))

	var r Result
	total := 0
	for _, p := range patterns {
		if p.re.MatchString(lower) {
			total += p.tenths
			r.Matches = append(r.Matches, p.name)
		}
	}

	if strings.Contains(text, "...") || strings.Contains(text, "…") || strings.Contains(text, "!!") {
		total += sarcasmTenths
		r.Sarcasm = true
	}

	if emotions.Get("anger") < emotionAngerCeiling && emotions.Get("disgust") > emotionDisgustFloor {
		total += emotionTenths
		r.EmotionBoost = true
	}

	if total > 10 {
		total = 10
	}
	r.Score = float64(total) / 10
	return r
}

// Score is Analyze without the explanation.
func Score(text string, emotions dialogue.Emotions) float64 {
	return Analyze(text, emotions).Score
}

// #endregion analyze
