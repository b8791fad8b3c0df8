package passive

import (
	"testing"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
)

func TestScore_Neutral(t *testing.T) {
	if s := Score("Thanks for picking up the kids today.", nil); s != 0 {
		t.Errorf("expected 0, got %f", s)
	}
}

func TestScore_CompoundsAndClamps(t *testing.T) {
	r := Analyze("Sure, whatever. Fine.", nil)
	if len(r.Matches) != 3 {
		t.Fatalf("expected sure, whatever, fine to match, got %v", r.Matches)
	}
	if r.Score != 1.0 {
		t.Errorf("expected exactly 1.0, got %v", r.Score)
	}
}

func TestScore_SumNotMax(t *testing.T) {
	// whatever (0.4) + i guess (0.2)
	s := Score("I guess, whatever you like", nil)
	if s != 0.6 {
		t.Errorf("expected 0.6, got %v", s)
	}
}

func TestScore_FineAsAdjective(t *testing.T) {
	if s := Score("I'm fine with it if you are", nil); s != 0 {
		t.Errorf("expected 0 for adjective use of fine, got %v", s)
	}
}

func TestScore_FineAndSureMidSentence(t *testing.T) {
	for _, text := range []string{
		"I'm fine, thanks for asking.",
		"I'm not sure, let me check the calendar.",
		"The weather is fine; let's walk.",
	} {
		if r := Analyze(text, nil); r.Score != 0 {
			t.Errorf("%q: expected 0, got %v %v", text, r.Score, r.Matches)
		}
	}
}

func TestScore_FineAndSureClosingSentence(t *testing.T) {
	cases := [][2]string{
		{"That's fine!", "fine"},
		{"Fine", "fine"},
		{"Okay, sure.", "sure"},
		{"I said it. Sure, go ahead", "sure"},
	}
	for _, c := range cases {
		text, want := c[0], c[1]
		r := Analyze(text, nil)
		if len(r.Matches) != 1 || r.Matches[0] != want || r.Score != 0.3 {
			t.Errorf("%q: expected [%s] at 0.3, got %v %v", text, want, r.Matches, r.Score)
		}
	}
}

func TestScore_Sarcasm(t *testing.T) {
	r := Analyze("Good for you...", nil)
	if !r.Sarcasm {
		t.Error("expected sarcasm marker")
	}
	if r.Score != 0.4 {
		t.Errorf("expected 0.3 + 0.1, got %v", r.Score)
	}
}

func TestScore_DoubleExclamation(t *testing.T) {
	if s := Score("Must be nice!!", nil); s != 0.5 {
		t.Errorf("expected 0.4 + 0.1, got %v", s)
	}
}

func TestScore_EmotionBoost(t *testing.T) {
	emotions := dialogue.Emotions{{Name: "anger", Score: 0.1}, {Name: "disgust", Score: 0.5}}
	r := Analyze("Noted.", emotions)
	if !r.EmotionBoost {
		t.Fatal("expected emotion boost")
	}
	if r.Score != 0.2 {
		t.Errorf("expected 0.2, got %v", r.Score)
	}
}

func TestScore_NoBoostWhenAngry(t *testing.T) {
	emotions := dialogue.Emotions{{Name: "anger", Score: 0.6}, {Name: "disgust", Score: 0.5}}
	if s := Score("Noted.", emotions); s != 0 {
		t.Errorf("expected 0 with high anger, got %v", s)
	}
}

func TestScore_NoWorriesBut(t *testing.T) {
	if s := Score("No worries, but next time tell me", nil); s != 0.4 {
		t.Errorf("expected 0.4, got %v", s)
	}
}

func TestScore_Bounded(t *testing.T) {
	text := "Sorry you feel that way. Do what you want. If you say so... must be nice!!"
	emotions := dialogue.Emotions{{Name: "disgust", Score: 0.9}}
	if s := Score(text, emotions); s != 1.0 {
		t.Errorf("expected clamp to 1.0, got %v", s)
	}
}
