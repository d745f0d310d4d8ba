// Package patterns turns tier-1 answers into trait scores.
//
// Scoring is table driven: Rules is plain data and Detect is a generic
// scorer, so the rule set can be reviewed and tested on its own. Scores are
// unbounded sums; callers compare them against fixed thresholds (3 by
// convention), so rule weights must stay on the same scale across releases.
package patterns

import (
	"sort"

	"github.com/creastat/onboarding/goldenkey"
	"github.com/creastat/onboarding/question"
)

// Trait is one entry of the fixed trait vocabulary.
type Trait string

const (
	SocialAnxiety          Trait = "social_anxiety"
	ExecutiveFunction      Trait = "executive_function"
	Defensiveness          Trait = "defensiveness"
	Perfectionism          Trait = "perfectionism"
	Avoidance              Trait = "avoidance"
	Rumination             Trait = "rumination"
	EmotionalDysregulation Trait = "emotional_dysregulation"
	AllOrNothingThinking   Trait = "all_or_nothing_thinking"
)

// Traits is the vocabulary in canonical order.
var Traits = []Trait{
	SocialAnxiety,
	ExecutiveFunction,
	Defensiveness,
	Perfectionism,
	Avoidance,
	Rumination,
	EmotionalDysregulation,
	AllOrNothingThinking,
}

// DefaultThreshold is the score at which a trait is considered present.
const DefaultThreshold = 3

// Scores maps every trait to its accumulated weight.
type Scores map[Trait]int

// NewScores returns scores with every trait at zero.
func NewScores() Scores {
	s := make(Scores, len(Traits))
	for _, t := range Traits {
		s[t] = 0
	}
	return s
}

// AtLeast reports whether trait scored n or more.
func (s Scores) AtLeast(trait Trait, n int) bool {
	return s[trait] >= n
}

// Top returns the highest scoring trait; ties go to the earlier trait in
// Traits. ok is false when every score is zero.
func (s Scores) Top() (Trait, int, bool) {
	var best Trait
	top := 0
	for _, t := range Traits {
		if s[t] > top {
			best, top = t, s[t]
		}
	}
	return best, top, top > 0
}

// Total returns the sum of all scores.
func (s Scores) Total() int {
	total := 0
	for _, v := range s {
		total += v
	}
	return total
}

// Vector returns the scores in Traits order.
func (s Scores) Vector() []float32 {
	v := make([]float32, len(Traits))
	for i, t := range Traits {
		v[i] = float32(s[t])
	}
	return v
}

// Clone returns a copy.
func (s Scores) Clone() Scores {
	if s == nil {
		return nil
	}
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Rule adds Weight to Trait when the answer to QuestionID is Value (or, for
// tag answers, contains Value).
type Rule struct {
	QuestionID string
	Value      string
	Trait      Trait
	Weight     int
}

// Matches reports whether the rule applies to responses.
func (r Rule) Matches(responses question.Responses) bool {
	a, ok := responses[r.QuestionID]
	if !ok {
		return false
	}
	if a.Type == question.TypeTags {
		for _, tag := range a.Tags {
			if tag == r.Value {
				return true
			}
		}
		return false
	}
	return a.String() == r.Value
}

// Detect scores tier-1 responses with the default rule table.
func Detect(tier1 question.Responses) Scores {
	return Score(Rules, tier1)
}

// Score sums the weights of every matching rule. Absent answers never match,
// and every trait of the vocabulary is present in the result.
func Score(rules []Rule, responses question.Responses) Scores {
	scores := NewScores()
	for _, r := range rules {
		if r.Weight <= 0 {
			continue
		}
		if r.Matches(responses) {
			scores[r.Trait] += r.Weight
		}
	}
	return scores
}

// FlagResponses returns, in id order, the tier-1 questions whose free text
// uses significant language. Unlike golden-key detection this check has no
// minimum length.
func FlagResponses(tier1 question.Responses) []string {
	var flagged []string
	for id, a := range tier1 {
		if text := a.FreeText(); text != "" && goldenkey.HasSignificantLanguage(text) {
			flagged = append(flagged, id)
		}
	}
	sort.Strings(flagged)
	return flagged
}
