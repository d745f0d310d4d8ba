package questionbank

import (
	"strings"

	"github.com/creastat/onboarding/question"
	"github.com/creastat/onboarding/voice"
)

// Tier-3 question ids.
const (
	PriorityQuestionID       = "priority_confirmation"
	OverrideTextID           = "override_text"
	LimitingBeliefQuestionID = "limiting_belief"
	AdviceStyleQuestionID    = "advice_style"
)

// Tier3 returns the fixed three-question synthesis sequence. synthesis may be
// nil when the backend could not compute one.
func Tier3(synthesis *question.Synthesis) []question.Question {
	return []question.Question{
		{
			ID:          PriorityQuestionID,
			Type:        question.TypePriorityConfirmation,
			Question:    "Here's what we heard matters most to you right now. Does this sound right?",
			Placeholder: "In your own words, what matters most right now?",
			Options: []question.Option{
				opt(question.PriorityConfirmed, "Yes, that's it"),
				opt(question.PriorityOverride, "Not quite, let me say it"),
			},
			Synthesis: synthesis,
		},
		{
			ID:          LimitingBeliefQuestionID,
			Type:        question.TypeTextInput,
			Question:    "Finish this sentence: \"I'd make more progress if I didn't believe...\"",
			Placeholder: "...that I have to get everything right.",
		},
		{
			ID:       AdviceStyleQuestionID,
			Type:     question.TypeSingleChoice,
			Question: "When you get advice, which style actually lands with you?",
			Required: true,
			Options: []question.Option{
				opt(string(voice.Tony), "Straight talk. Tell me what to do."),
				opt(string(voice.Clara), "Gentle and warm. Help me feel understood."),
				opt(string(voice.Marcus), "Calm perspective. Help me see the bigger picture."),
			},
		},
	}
}

// adviceAliases maps descriptive advice-style values some clients send to
// the voice they stand for.
var adviceAliases = map[string]voice.ID{
	"direct":        voice.Tony,
	"straight_talk": voice.Tony,
	"gentle":        voice.Clara,
	"warm":          voice.Clara,
	"philosophical": voice.Marcus,
	"stoic":         voice.Marcus,
	"big_picture":   voice.Marcus,
}

// VoiceForAdviceStyle maps an advice-style answer to a voice.
func VoiceForAdviceStyle(style string) (voice.ID, bool) {
	s := strings.ToLower(strings.TrimSpace(style))
	if id := voice.ID(s); id.Valid() {
		return id, true
	}
	id, ok := adviceAliases[s]
	return id, ok
}
