package oracle

import (
	"context"
	"errors"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
)

// #region errors

var (
	// ErrUnavailable means the NLP service is not ready or cannot be reached.
	// Callers must fail fast; no default scores are substituted.
	ErrUnavailable = errors.New("oracle unavailable")

	// ErrDataFormat means the service answered with a payload the adapter
	// could not normalize.
	ErrDataFormat = errors.New("oracle data format")
)

// IsUnavailable reports whether err is, or wraps, ErrUnavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// #endregion errors

// #region interface

// Oracle is the narrow capability the scoring core consumes. Implementations
// return already-normalized values; the core never inspects raw shapes.
type Oracle interface {
	Sentiment(ctx context.Context, text string) (dialogue.Sentiment, error)
	Emotions(ctx context.Context, text string) (dialogue.Emotions, error)
	LinguisticFeatures(ctx context.Context, text string) (dialogue.LinguisticFeatures, error)
}

// #endregion interface
