package question

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/creastat/onboarding"
)

// Priority confirmation values.
const (
	PriorityConfirmed = "confirmed"
	PriorityOverride  = "override"
)

// Answer is a tagged union: Type selects which of the remaining fields carry
// the value. Build answers with the constructors below so a value is never
// partially shaped.
type Answer struct {
	Type     Type     `json:"type"`
	Value    string   `json:"value,omitempty"`
	Score    int      `json:"score,omitempty"`
	Text     string   `json:"text,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	FollowUp string   `json:"follow_up,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Choice answers a single_choice question.
func Choice(value string) Answer {
	return Answer{Type: TypeSingleChoice, Value: value}
}

// Scale answers a scale question.
func Scale(score int) Answer {
	return Answer{Type: TypeScale, Score: score}
}

// Text answers a text_input question.
func Text(text string) Answer {
	return Answer{Type: TypeTextInput, Text: text}
}

// ScaleNotes answers a scale_with_notes question.
func ScaleNotes(score int, notes string) Answer {
	return Answer{Type: TypeScaleWithNotes, Score: score, Notes: notes}
}

// ChoiceFollowUp answers a choice_with_follow_up question.
func ChoiceFollowUp(value, followUp string) Answer {
	return Answer{Type: TypeChoiceWithFollowUp, Value: value, FollowUp: followUp}
}

// Tags answers a tags question.
func Tags(values ...string) Answer {
	return Answer{Type: TypeTags, Tags: slices.Clone(values)}
}

// Priority answers the tier-3 priority confirmation question.
func Priority(value string) Answer {
	return Answer{Type: TypePriorityConfirmation, Value: value}
}

// Validate checks that the answer has the shape q expects and that its value
// is acceptable for q. Errors wrap onboarding.ErrValidation.
func (a Answer) Validate(q Question) error {
	if a.Type != q.Type {
		return invalid(q, "expects a %s answer, got %s", q.Type, a.Type)
	}

	switch a.Type {
	case TypeSingleChoice, TypeChoiceWithFollowUp:
		if a.Value == "" {
			return invalid(q, "a selection is required")
		}
		if len(q.Options) > 0 {
			if _, ok := q.Option(a.Value); !ok {
				return invalid(q, "unknown option %q", a.Value)
			}
		}
	case TypeScale, TypeScaleWithNotes:
		if q.Scale != nil && !q.Scale.Contains(a.Score) {
			return invalid(q, "score %d outside %d-%d", a.Score, q.Scale.Min, q.Scale.Max)
		}
	case TypeTextInput:
		text := strings.TrimSpace(a.Text)
		if q.Required && text == "" {
			return invalid(q, "an answer is required")
		}
		if q.MinWords > 0 && text != "" && onboarding.CountWords(text) < q.MinWords {
			return invalid(q, "at least %d words are required", q.MinWords)
		}
	case TypeTags:
		if q.Required && len(a.Tags) == 0 {
			return invalid(q, "select at least one tag")
		}
		if len(q.Options) > 0 {
			for _, tag := range a.Tags {
				if _, ok := q.Option(tag); !ok {
					return invalid(q, "unknown tag %q", tag)
				}
			}
		}
	case TypePriorityConfirmation:
		if a.Value != PriorityConfirmed && a.Value != PriorityOverride {
			return invalid(q, "choose %q or %q", PriorityConfirmed, PriorityOverride)
		}
	default:
		return invalid(q, "unsupported question type %q", a.Type)
	}
	return nil
}

func invalid(q Question, format string, args ...any) error {
	return fmt.Errorf("%w: question %s: %s", onboarding.ErrValidation, q.ID, fmt.Sprintf(format, args...))
}

// Wire returns the answer in the shape the profile backend expects:
// a string, an int, {score, notes}, {value, followUp} or a list of tags.
func (a Answer) Wire() any {
	switch a.Type {
	case TypeSingleChoice, TypePriorityConfirmation:
		return a.Value
	case TypeScale:
		return a.Score
	case TypeTextInput:
		return a.Text
	case TypeScaleWithNotes:
		return map[string]any{"score": a.Score, "notes": a.Notes}
	case TypeChoiceWithFollowUp:
		return map[string]any{"value": a.Value, "followUp": a.FollowUp}
	case TypeTags:
		if a.Tags == nil {
			return []string{}
		}
		return slices.Clone(a.Tags)
	}
	return nil
}

// Scalar returns the numeric value of the answer, coercing choice values.
func (a Answer) Scalar() (float64, bool) {
	switch a.Type {
	case TypeScale, TypeScaleWithNotes:
		return float64(a.Score), true
	case TypeSingleChoice, TypeChoiceWithFollowUp, TypePriorityConfirmation:
		f, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// String returns the textual form used for condition predicates and lookups.
func (a Answer) String() string {
	switch a.Type {
	case TypeSingleChoice, TypeChoiceWithFollowUp, TypePriorityConfirmation:
		return a.Value
	case TypeScale, TypeScaleWithNotes:
		return strconv.Itoa(a.Score)
	case TypeTextInput:
		return a.Text
	case TypeTags:
		return strings.Join(a.Tags, ",")
	}
	return ""
}

// FreeText returns the free-text portion of the answer, if any.
func (a Answer) FreeText() string {
	switch a.Type {
	case TypeTextInput:
		return a.Text
	case TypeScaleWithNotes:
		return a.Notes
	case TypeChoiceWithFollowUp:
		return a.FollowUp
	}
	return ""
}

// Responses maps question ids to answers.
type Responses map[string]Answer

// Get returns the answer for id.
func (r Responses) Get(id string) (Answer, bool) {
	a, ok := r[id]
	return a, ok
}

// Clone returns a deep copy.
func (r Responses) Clone() Responses {
	if r == nil {
		return nil
	}
	out := make(Responses, len(r))
	for k, v := range r {
		v.Tags = slices.Clone(v.Tags)
		out[k] = v
	}
	return out
}

// Wire converts every answer to its backend shape.
func (r Responses) Wire() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Wire()
	}
	return out
}
