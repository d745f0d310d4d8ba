// Package goldenkey classifies free-text answers that are emotionally
// significant enough to deserve deeper attention from the profile backend.
package goldenkey

import (
	"regexp"
	"strings"
	"time"

	"github.com/creastat/onboarding"
)

// MinWords is the word count below which a text is never a golden key.
const MinWords = 40

// Family is a named set of patterns; a text matches the family when any
// pattern matches.
type Family struct {
	Name     string
	Patterns []*regexp.Regexp
}

// Matches reports whether any pattern of the family matches text.
func (f Family) Matches(text string) bool {
	for _, p := range f.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Emotional, Vulnerability and Specificity are the three independent
// families evaluated by Analyze.
var (
	Emotional = Family{
		Name: "emotional",
		Patterns: compile(
			`\b(afraid|scared|terrified|frightened|anxious|panic\w*)\b`,
			`\b(ashamed|shame|guilt|guilty|embarrassed|humiliated)\b`,
			`\b(lonely|alone|isolated|abandoned|rejected)\b`,
			`\b(heartbroken|grief|grieving|devastated|hopeless|helpless)\b`,
			`\b(hurt|angry|furious|rage|resent\w*|bitter)\b`,
			`\b(cry|cried|crying|tears)\b`,
			`\b(hate myself|worthless|not good enough|failure)\b`,
		),
	}

	Vulnerability = Family{
		Name: "vulnerability",
		Patterns: compile(
			`never told (anyone|anybody|a soul)`,
			`\bno one knows\b`,
			`\b(hard|difficult) (for me )?to (admit|say|talk about)\b`,
			`\bi('ve| have)? never (said|admitted|shared)\b`,
			`\bdeep down\b`,
			`\b(secret|secretly)\b`,
			`\bthe truth is\b`,
			`\bi('m| am) (scared|afraid) that\b`,
		),
	}

	Specificity = Family{
		Name: "specificity",
		Patterns: compile(
			`\b(19|20)\d{2}\b`,
			`\bwhen i was (\d+|a (kid|child|teenager))\b`,
			`\b\d+ (years?|months?|weeks?) (ago|old)\b`,
			`\bmy (mom|mother|dad|father|brother|sister|wife|husband|partner|boss|son|daughter|grandmother|grandfather|grandma|grandpa|best friend|ex)\b`,
			`\b(last|every|that) (monday|tuesday|wednesday|thursday|friday|saturday|sunday|summer|winter|spring|fall|christmas|birthday)\b`,
		),
	}
)

// Families lists the families in evaluation order.
var Families = []Family{Emotional, Vulnerability, Specificity}

// Analysis explains how a free-text answer was classified.
type Analysis struct {
	QuestionID          string `json:"question_id"`
	IsGoldenKey         bool   `json:"is_golden_key"`
	WordCount           int    `json:"word_count"`
	HasEmotionalContent bool   `json:"has_emotional_content"`
	HasVulnerability    bool   `json:"has_vulnerability"`
	HasSpecificity      bool   `json:"has_specificity"`
}

// Analyze evaluates every family independently and applies the word-count gate.
func Analyze(questionID, text string) Analysis {
	a := Analysis{
		QuestionID:          questionID,
		WordCount:           onboarding.CountWords(text),
		HasEmotionalContent: Emotional.Matches(text),
		HasVulnerability:    Vulnerability.Matches(text),
		HasSpecificity:      Specificity.Matches(text),
	}
	a.IsGoldenKey = a.WordCount >= MinWords &&
		(a.HasEmotionalContent || a.HasVulnerability || a.HasSpecificity)
	return a
}

// Detect reports whether text is a golden key.
func Detect(text string) bool {
	if onboarding.CountWords(text) < MinWords {
		return false
	}
	for _, f := range Families {
		if f.Matches(text) {
			return true
		}
	}
	return false
}

// HasSignificantLanguage is the tier-1 check: any family match, with no
// word-count gate. It is deliberately distinct from Detect.
func HasSignificantLanguage(text string) bool {
	for _, f := range Families {
		if f.Matches(text) {
			return true
		}
	}
	return false
}

// ShouldTriggerFollowUp reports whether text matches any "|"-separated
// alternative of trigger, case-insensitively. Alternatives that are not valid
// regular expressions are matched as plain substrings.
func ShouldTriggerFollowUp(text, trigger string) bool {
	lower := strings.ToLower(text)
	for _, alt := range strings.Split(trigger, "|") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + alt)
		if err != nil {
			if strings.Contains(lower, strings.ToLower(alt)) {
				return true
			}
			continue
		}
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// GoldenKey is an immutable record of a qualifying answer.
type GoldenKey struct {
	Domain     string    `json:"domain"`
	Text       string    `json:"text"`
	WordCount  int       `json:"wordCount"`
	Timestamp  time.Time `json:"timestamp"`
	QuestionID string    `json:"questionId"`
}

// New builds a GoldenKey when text qualifies; ok is false otherwise.
func New(domain, questionID, text string, at time.Time) (GoldenKey, bool) {
	a := Analyze(questionID, text)
	if !a.IsGoldenKey {
		return GoldenKey{}, false
	}
	return GoldenKey{
		Domain:     domain,
		Text:       text,
		WordCount:  a.WordCount,
		Timestamp:  at.UTC(),
		QuestionID: questionID,
	}, true
}
