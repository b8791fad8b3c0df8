package oracle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
)

// #region reading
// Reading is everything the oracle would report for one text.
type Reading struct {
	Sentiment dialogue.Sentiment          `json:"sentiment" yaml:"-"`
	Emotions  dialogue.Emotions           `json:"emotions" yaml:"-"`
	Features  dialogue.LinguisticFeatures `json:"features" yaml:"-"`
}

// #endregion reading

// #region static
// Static answers from a fixed table of readings keyed by exact text. It backs
// replay fixtures and tests where model output must be pinned.
type Static struct {
	mu       sync.RWMutex
	readings map[string]Reading
	fallback *Reading
	calls    atomic.Int64
}

// NewStatic creates a Static oracle. fallback, if non-nil, answers texts
// that have no reading of their own.
func NewStatic(fallback *Reading) *Static {
	return &Static{readings: make(map[string]Reading), fallback: fallback}
}

// Set pins the reading for text.
func (s *Static) Set(text string, r Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[text] = r
}

// Calls returns how many oracle calls have been served.
func (s *Static) Calls() int64 {
	return s.calls.Load()
}

func (s *Static) lookup(text string) (Reading, error) {
	s.calls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.readings[text]; ok {
		return r, nil
	}
	if s.fallback != nil {
		return *s.fallback, nil
	}
	return Reading{}, fmt.Errorf("%w: no reading for %q", ErrUnavailable, text)
}

// Sentiment implements Oracle.
func (s *Static) Sentiment(_ context.Context, text string) (dialogue.Sentiment, error) {
	r, err := s.lookup(text)
	return r.Sentiment, err
}

// Emotions implements Oracle.
func (s *Static) Emotions(_ context.Context, text string) (dialogue.Emotions, error) {
	r, err := s.lookup(text)
	return r.Emotions, err
}

// LinguisticFeatures implements Oracle.
func (s *Static) LinguisticFeatures(_ context.Context, text string) (dialogue.LinguisticFeatures, error) {
	r, err := s.lookup(text)
	return r.Features, err
}

// #endregion static
