package simulate

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/danielpatrickdp/conflict-twin/internal/opponent"
)

// #region pools

var pools = map[opponent.Style]map[Mood][]string{
	opponent.StyleAggressive: {
		MoodCalm: {
			"That's not what I meant at all.",
			"You're twisting my words.",
			"Here we go again.",
		},
		MoodTriggered: {
			"Are you serious right now?",
			"You always do this!",
			"I'm done with this conversation.",
			"This is ridiculous.",
		},
	},
	opponent.StylePassiveAggressive: {
		MoodCalm: {
			"Sure, whatever you say.",
			"If that's how you feel...",
			"I guess that's fine.",
			"Do what you want.",
		},
		MoodTriggered: {
			"Well, excuse me for existing.",
			"Sorry for caring.",
			"My bad for trying.",
			"Fine. You win.",
		},
	},
	opponent.StyleAvoidant: {
		MoodCalm: {
			"Can we talk about this later?",
			"I don't want to get into this now.",
			"Let's just move on.",
		},
		MoodTriggered: {
			"I can't deal with this right now.",
			"I need space.",
			"This is too much.",
		},
	},
	opponent.StyleConstructive: {
		MoodCalm: {
			"I hear what you're saying.",
			"Let me think about that.",
			"Can we find a middle ground?",
		},
		MoodTriggered: {
			"I feel hurt by that.",
			"This is important to me.",
			"I need you to understand my perspective.",
		},
	},
	opponent.StyleNeutral: {
		MoodCalm: {
			"Okay.",
			"I understand.",
			"Let's figure this out.",
		},
		MoodTriggered: {
			"I disagree with that.",
			"That's not fair.",
			"I don't think that's right.",
		},
	},
}

// Pool returns the literal replies for style and mood. Unknown styles use the
// neutral pool; unknown moods are treated as calm.
func Pool(style opponent.Style, mood Mood) []string {
	byMood, ok := pools[style]
	if !ok {
		byMood = pools[opponent.StyleNeutral]
	}
	if p, ok := byMood[mood]; ok {
		return p
	}
	return byMood[MoodCalm]
}

// #endregion pools

// #region template-generator

// TemplateGenerator picks a literal reply and sometimes appends one of the
// counterpart's trigger phrases. The same seed replays the same choices.
type TemplateGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTemplateGenerator seeds a generator.
func NewTemplateGenerator(seed uint64) *TemplateGenerator {
	return NewTemplateGeneratorWithRand(rand.New(rand.NewPCG(seed, seed)))
}

// NewTemplateGeneratorWithRand uses rng as the only source of randomness.
func NewTemplateGeneratorWithRand(rng *rand.Rand) *TemplateGenerator {
	return &TemplateGenerator{rng: rng}
}

// Name implements Generator.
func (g *TemplateGenerator) Name() string { return "template" }

// Generate implements Generator. It never fails.
func (g *TemplateGenerator) Generate(_ context.Context, req GenerateRequest) (string, error) {
	pool := Pool(req.Model.CommunicationStyle, req.Mood)

	g.mu.Lock()
	defer g.mu.Unlock()

	reply := pool[g.rng.IntN(len(pool))]
	triggers := req.Model.TriggerWords
	if len(triggers) > 0 && g.rng.Float64() > 0.5 {
		reply += " " + triggers[g.rng.IntN(len(triggers))]
	}
	return reply, nil
}

// #endregion template-generator
