package bias

import (
	"regexp"
	"strings"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
)

// #region rules

type rule struct {
	tag      dialogue.BiasTag
	patterns []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// rules are evaluated in order against lowercased text. Each category
// contributes at most one tag.
var rules = []rule{
	{
		tag: dialogue.BiasTag{
			Type:        dialogue.BiasOvergeneralization,
			Description: "Using absolute terms (always, never, everyone)",
			Severity:    dialogue.SeverityMedium,
		},
		patterns: compile(`\balways\b`, `\bnever\b`, `\beveryone\b`, `\bno one\b`, `\bevery time\b`, `\ball the time\b`),
	},
	{
		tag: dialogue.BiasTag{
			Type:        dialogue.BiasMindReading,
			Description: "Assuming to know other's thoughts or intentions",
			Severity:    dialogue.SeverityMedium,
		},
		patterns: compile(`\byou think\b`, `\byou believe\b`, `\byou want to\b`, `\byou're trying to\b`, `\byou just want\b`),
	},
	{
		tag: dialogue.BiasTag{
			Type:        dialogue.BiasCatastrophizing,
			Description: "Exaggerating negative outcomes",
			Severity:    dialogue.SeverityHigh,
		},
		patterns: compile(`\bruin(?:s|ed|ing)?\b`, `\bdestroy(?:s|ed|ing)?\b`, `\bterrible\b`, `\bawful\b`, `\bdisaster\b`, `\bcatastrophe\b`),
	},
	{
		tag: dialogue.BiasTag{
			Type:        dialogue.BiasPersonalization,
			Description: "Attributing responsibility to others unfairly",
			Severity:    dialogue.SeverityHigh,
		},
		patterns: compile(`\byou make me\b`, `\byou caused\b`, `\byour fault\b`),
	},
	{
		tag: dialogue.BiasTag{
			Type:        dialogue.BiasGaslighting,
			Description: "Attempting to make the other doubt their perception",
			Severity:    dialogue.SeverityCritical,
		},
		patterns: compile(`\byou're overreacting\b`, `\byou're too sensitive\b`, `\bthat never happened\b`, `\byou're imagining things\b`, `\byou're crazy\b`),
	},
}

// #endregion rules

// #region detect

// Detect returns the bias tags found in text, in category order.
// Curly apostrophes are folded to ASCII so "you’re" matches "you're".
func Detect(text string) []dialogue.BiasTag {
	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))

	var tags []dialogue.BiasTag
	for _, r := range rules {
		for _, p := range r.patterns {
			if p.MatchString(lower) {
				tags = append(tags, r.tag)
				break
			}
		}
	}
	return tags
}

// #endregion detect

// Lookup returns the canonical tag for a bias type.
func Lookup(t dialogue.BiasType) (dialogue.BiasTag, bool) {
	for _, r := range rules {
		if r.tag.Type == t {
			return r.tag, true
		}
	}
	return dialogue.BiasTag{}, false
}
