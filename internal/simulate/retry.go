package simulate

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// #region constants

const (
	maxRetries    = 2 // max 2 retries = 3 total attempts
	maxReplyRunes = 600
)

// #endregion

// #region evaluate

// ReplyFailure classifies why a generated reply is unusable.
type ReplyFailure string

const (
	ReplyOK             ReplyFailure = "none"
	ReplyEmpty          ReplyFailure = "empty"
	ReplyEcho           ReplyFailure = "echo"
	ReplyAssistantVoice ReplyFailure = "assistant_voice"
	ReplyTooLong        ReplyFailure = "too_long"
)

// assistantPatterns mean the model stepped out of the counterpart's voice.
var assistantPatterns = []string{
	"as an ai",
	"as a language model",
	"i'd be happy to help",
	"how can i help",
	"how can i assist",
	"i cannot roleplay",
	"i can't roleplay",
}

// EvaluateReply checks a generated reply by string analysis. No model call.
func EvaluateReply(draft, reply string) ReplyFailure {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return ReplyEmpty
	}
	lower := strings.ToLower(trimmed)
	if lower == strings.ToLower(strings.TrimSpace(draft)) {
		return ReplyEcho
	}
	for _, p := range assistantPatterns {
		if strings.Contains(lower, p) {
			return ReplyAssistantVoice
		}
	}
	if utf8.RuneCountInString(trimmed) > maxReplyRunes {
		return ReplyTooLong
	}
	return ReplyOK
}

// #endregion

// #region should-retry

type attempt struct {
	reply   string
	failure ReplyFailure
	err     error
}

func (a attempt) ok() bool { return a.err == nil && a.failure == ReplyOK }

// shouldRetry decides whether another attempt is worthwhile. attempts
// contains all attempts so far, including the one just evaluated.
func shouldRetry(attempts []attempt) bool {
	if len(attempts) == 0 || len(attempts) > maxRetries {
		return false
	}
	latest := attempts[len(attempts)-1]
	if latest.ok() {
		return false
	}
	if errors.Is(latest.err, context.Canceled) || errors.Is(latest.err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// #endregion
