package oracle

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region sentiment

// NormalizeSentiment accepts either a single {label, score} record or a list
// whose first element is such a record.
func NormalizeSentiment(v *structpb.Value) (dialogue.Sentiment, error) {
	if v == nil {
		return dialogue.Sentiment{}, fmt.Errorf("%w: empty sentiment payload", ErrDataFormat)
	}
	if list := v.GetListValue(); list != nil {
		if len(list.Values) == 0 {
			return dialogue.Sentiment{}, fmt.Errorf("%w: empty sentiment list", ErrDataFormat)
		}
		v = list.Values[0]
	}
	rec := v.GetStructValue()
	if rec == nil {
		return dialogue.Sentiment{}, fmt.Errorf("%w: sentiment is not a record", ErrDataFormat)
	}
	label, score, err := labelScore(rec)
	if err != nil {
		return dialogue.Sentiment{}, fmt.Errorf("sentiment: %w", err)
	}
	switch strings.ToLower(label) {
	case "positive":
		return dialogue.NewSentiment(dialogue.LabelPositive, score), nil
	case "negative":
		return dialogue.NewSentiment(dialogue.LabelNegative, score), nil
	}
	return dialogue.Sentiment{}, fmt.Errorf("%w: unknown sentiment label %q", ErrDataFormat, label)
}

// #endregion sentiment

// #region emotions

// NormalizeEmotions accepts the three shapes emotion classifiers produce:
// a list of {label, score} records (optionally wrapped in a one-element
// batch list), a single {label, score} record, or a label -> score mapping.
// Map-shaped payloads carry no order on the wire, so their entries are
// sorted by name.
func NormalizeEmotions(v *structpb.Value) (dialogue.Emotions, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: empty emotions payload", ErrDataFormat)
	}

	var out dialogue.Emotions
	switch {
	case v.GetListValue() != nil:
		items := v.GetListValue().Values
		if len(items) == 1 && items[0].GetListValue() != nil {
			items = items[0].GetListValue().Values
		}
		for i, item := range items {
			rec := item.GetStructValue()
			if rec == nil {
				return nil, fmt.Errorf("%w: emotion entry %d is not a record", ErrDataFormat, i)
			}
			label, score, err := labelScore(rec)
			if err != nil {
				return nil, fmt.Errorf("emotion entry %d: %w", i, err)
			}
			out = append(out, dialogue.EmotionScore{Name: strings.ToLower(label), Score: score})
		}

	case v.GetStructValue() != nil:
		rec := v.GetStructValue()
		if _, ok := rec.Fields["label"]; ok {
			label, score, err := labelScore(rec)
			if err != nil {
				return nil, fmt.Errorf("emotion record: %w", err)
			}
			out = dialogue.Emotions{{Name: strings.ToLower(label), Score: score}}
			break
		}
		names := make([]string, 0, len(rec.Fields))
		for name := range rec.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			score, err := unitNumber(rec.Fields[name])
			if err != nil {
				return nil, fmt.Errorf("emotion %q: %w", name, err)
			}
			out = append(out, dialogue.EmotionScore{Name: strings.ToLower(name), Score: score})
		}

	default:
		return nil, fmt.Errorf("%w: emotions must be a list or a record", ErrDataFormat)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty emotion distribution", ErrDataFormat)
	}
	return out, nil
}

// #endregion emotions

// #region features

// NormalizeFeatures reads a linguistic feature record. Both the short keys
// (you_count) and the statement keys (you_statements) are accepted. Entities
// may be [text, label] pairs or {text, label} records.
func NormalizeFeatures(v *structpb.Value) (dialogue.LinguisticFeatures, error) {
	rec := v.GetStructValue()
	if rec == nil {
		return dialogue.LinguisticFeatures{}, fmt.Errorf("%w: features must be a record", ErrDataFormat)
	}

	var f dialogue.LinguisticFeatures
	counts := []struct {
		dst  *int
		keys []string
	}{
		{&f.YouCount, []string{"you_count", "you_statements"}},
		{&f.ICount, []string{"i_count", "i_statements"}},
		{&f.QuestionCount, []string{"question_count"}},
		{&f.SentenceCount, []string{"sentence_count"}},
		{&f.WordCount, []string{"word_count"}},
	}
	for _, c := range counts {
		for _, k := range c.keys {
			field, ok := rec.Fields[k]
			if !ok {
				continue
			}
			n, err := count(field)
			if err != nil {
				return dialogue.LinguisticFeatures{}, fmt.Errorf("feature %s: %w", k, err)
			}
			*c.dst = n
			break
		}
	}

	if ents, ok := rec.Fields["entities"]; ok {
		list := ents.GetListValue()
		if list == nil {
			return dialogue.LinguisticFeatures{}, fmt.Errorf("%w: entities must be a list", ErrDataFormat)
		}
		for i, e := range list.Values {
			ent, err := entity(e)
			if err != nil {
				return dialogue.LinguisticFeatures{}, fmt.Errorf("entity %d: %w", i, err)
			}
			f.Entities = append(f.Entities, ent)
		}
	}
	return f, nil
}

// #endregion features

// #region helpers

func labelScore(rec *structpb.Struct) (string, float64, error) {
	lv, ok := rec.Fields["label"]
	if !ok {
		return "", 0, fmt.Errorf("%w: missing label", ErrDataFormat)
	}
	label, ok := lv.GetKind().(*structpb.Value_StringValue)
	if !ok || label.StringValue == "" {
		return "", 0, fmt.Errorf("%w: label must be a non-empty string", ErrDataFormat)
	}
	sv, ok := rec.Fields["score"]
	if !ok {
		return "", 0, fmt.Errorf("%w: missing score for %q", ErrDataFormat, label.StringValue)
	}
	score, err := unitNumber(sv)
	if err != nil {
		return "", 0, err
	}
	return label.StringValue, score, nil
}

func unitNumber(v *structpb.Value) (float64, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: score is not a number", ErrDataFormat)
	}
	if math.IsNaN(n.NumberValue) || n.NumberValue < 0 || n.NumberValue > 1 {
		return 0, fmt.Errorf("%w: score %v outside [0, 1]", ErrDataFormat, n.NumberValue)
	}
	return n.NumberValue, nil
}

func count(v *structpb.Value) (int, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue < 0 || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("%w: expected a non-negative integer", ErrDataFormat)
	}
	return int(n.NumberValue), nil
}

func entity(v *structpb.Value) (dialogue.Entity, error) {
	if pair := v.GetListValue(); pair != nil {
		if len(pair.Values) != 2 {
			return dialogue.Entity{}, fmt.Errorf("%w: entity pair has %d items", ErrDataFormat, len(pair.Values))
		}
		return dialogue.Entity{Text: pair.Values[0].GetStringValue(), Label: pair.Values[1].GetStringValue()}, nil
	}
	if rec := v.GetStructValue(); rec != nil {
		return dialogue.Entity{
			Text:  rec.Fields["text"].GetStringValue(),
			Label: rec.Fields["label"].GetStringValue(),
		}, nil
	}
	return dialogue.Entity{}, fmt.Errorf("%w: entity must be a pair or a record", ErrDataFormat)
}

// #endregion helpers
