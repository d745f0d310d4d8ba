package questionbank

import (
	"strings"

	"github.com/creastat/onboarding/patterns"
	"github.com/creastat/onboarding/question"
)

// Tier-2 domain names in traversal order.
const (
	DomainSleep         = "sleep"
	DomainRumination    = "rumination"
	DomainRelationships = "relationships"
	DomainCore          = "core"
)

// AdaptiveQuestionID is the id of the adaptive node that opens the core domain.
const AdaptiveQuestionID = "core_a_adaptive"

// AdaptiveWording is one row of the adaptive table.
type AdaptiveWording struct {
	Trait     patterns.Trait
	Threshold int
	Text      string
}

// AdaptiveTable is checked in declaration order; the first trait at or above
// its threshold wins.
var AdaptiveTable = []AdaptiveWording{
	{patterns.Perfectionism, 3, "When \"good enough\" isn't good enough, what are you afraid will happen?"},
	{patterns.SocialAnxiety, 3, "Think of a recent social moment that stayed with you. What were you telling yourself during it?"},
	{patterns.Rumination, 3, "What thought has been on repeat for you lately, and when does it get loudest?"},
	{patterns.ExecutiveFunction, 3, "What is one task you keep meaning to start? What happens right before you put it off?"},
	{patterns.EmotionalDysregulation, 3, "Describe the last time a feeling hit harder than the situation seemed to deserve."},
	{patterns.Avoidance, 3, "What have you been avoiding lately, and what do you think facing it would cost you?"},
	{patterns.Defensiveness, 3, "When feedback stings, which part of it usually hurts most?"},
	{patterns.AllOrNothingThinking, 3, "Where in your life does one slip make everything feel ruined?"},
}

// DefaultAdaptiveWording is used when no trait reaches its threshold.
const DefaultAdaptiveWording = "What do you most want to understand about yourself right now?"

// AdaptiveText picks the adaptive wording for scores.
func AdaptiveText(scores patterns.Scores) string {
	for _, row := range AdaptiveTable {
		if scores.AtLeast(row.Trait, row.Threshold) {
			return row.Text
		}
	}
	return DefaultAdaptiveWording
}

// FallbackAgeBracket is used when the tier-1 age answer is missing or unknown.
const FallbackAgeBracket = "25-34"

// EveningWording words the first relationships question per age bracket.
var EveningWording = map[string]string{
	"18-24": "Between classes, first jobs and figuring things out, how connected do you feel to the people around you?",
	"25-34": "Between work, friends and everything else competing for your evenings, how connected do you feel to the people around you?",
	"35-44": "With work and family pulling in different directions, how connected do you feel to the people around you?",
	"45-54": "As the people in your life change roles around you, how connected do you feel to them?",
	"55+":   "Looking at the people in your life today, how connected do you feel to them?",
}

// EveningText returns the age-bracketed wording with fallback.
func EveningText(bracket string) string {
	if text, ok := EveningWording[strings.TrimSpace(bracket)]; ok {
		return text
	}
	return EveningWording[FallbackAgeBracket]
}

func scale(id, text string, logic map[string]string) question.Question {
	return question.Question{
		ID:       id,
		Type:     question.TypeScale,
		Question: text,
		Scale:    &question.ScaleRange{Min: 1, Max: 10, MinLabel: "Not at all", MaxLabel: "Constantly"},
		Logic:    logic,
	}
}

func story(id, text, placeholder string) question.Question {
	return question.Question{
		ID:          id,
		Type:        question.TypeTextInput,
		Question:    text,
		Placeholder: placeholder,
		GoldenKey:   true,
	}
}

// BuildTier2 assembles the tier-2 domain graph. The adaptive question is
// included only when scores are known; guidance, when set, replaces its
// wording.
func BuildTier2(scores patterns.Scores, ageBracket, guidance string) []question.Domain {
	sleep := question.Domain{
		Name:  DomainSleep,
		Title: "Sleep & rest",
		Questions: []question.Question{
			func() question.Question {
				q := scale("sleep_a_quality", "How would you rate your sleep over the last two weeks?",
					map[string]string{"8-10": "skip_to_" + DomainRumination})
				q.Scale.MinLabel, q.Scale.MaxLabel = "Terrible", "Great"
				return q
			}(),
			{
				ID:       "sleep_b_pattern",
				Type:     question.TypeSingleChoice,
				Question: "What gets in the way of good sleep most often?",
				Options: []question.Option{
					opt("falling_asleep", "Falling asleep"),
					opt("waking_at_night", "Waking up in the night"),
					opt("waking_too_early", "Waking too early"),
					{Value: "screens", Label: "Screens and scrolling", Next: "continue_to_sleep_d_story"},
				},
			},
			{
				ID:              "sleep_c_detail",
				Type:            question.TypeTextInput,
				Question:        "Tell us a little more about what happens at night.",
				Placeholder:     "Whatever comes to mind.",
				DynamicQuestion: true,
				QuestionMap: map[string]string{
					"falling_asleep":   "What is usually on your mind while you try to fall asleep?",
					"waking_at_night":  "When you wake in the night, what pulls you awake?",
					"waking_too_early": "What's the first thing you think about when you wake too early?",
				},
				PlaceholderMap: map[string]string{
					"falling_asleep":  "Lists, conversations, worries...",
					"waking_at_night": "A noise, a thought, a feeling...",
				},
				FollowUpTrigger:  "work|deadline|boss|email",
				FollowUpQuestion: "Does work follow you to bed most nights?",
			},
			story("sleep_d_story", "If your nights could talk, what would they say about the last few months?",
				"Take your time. Longer answers help us understand you better."),
		},
	}

	rumination := question.Domain{
		Name:  DomainRumination,
		Title: "Thought loops",
		Questions: []question.Question{
			scale("rumination_a_frequency", "How often do the same thoughts loop in your head?",
				map[string]string{"1-3": "skip_to_" + DomainRelationships, "4-10": "continue_to_rumination_b_topic"}),
			{
				ID:       "rumination_b_topic",
				Type:     question.TypeSingleChoice,
				Question: "What do those loops usually circle around?",
				Options: []question.Option{
					opt("work", "Work or school"),
					opt("relationships", "Relationships"),
					opt("past_mistakes", "Past mistakes"),
					opt("the_future", "The future"),
				},
			},
			{
				ID:              "rumination_c_loop",
				Type:            question.TypeTextInput,
				Question:        "Describe a loop that came up recently.",
				DynamicQuestion: true,
				QuestionMap: map[string]string{
					"work":          "What work situation has been replaying in your head?",
					"relationships": "Which conversation or person keeps coming back to mind?",
					"past_mistakes": "Which mistake keeps resurfacing, and what do you tell yourself about it?",
					"the_future":    "What future scenario do you keep rehearsing?",
				},
				PlaceholderMap: map[string]string{
					"past_mistakes": "It's okay to be honest here.",
				},
			},
			{
				ID:        "rumination_d_body",
				Type:      question.TypeSingleChoice,
				Question:  "Where do you feel it in your body when a loop takes over?",
				Condition: "rumination_a_frequency >= 7",
				Options: []question.Option{
					opt("chest", "Chest"),
					opt("stomach", "Stomach"),
					opt("head", "Head"),
					opt("nowhere", "I don't notice it physically"),
				},
			},
			story("rumination_e_story", "What would you say to that looping thought if it were a person sitting across from you?",
				"Write it the way you'd say it."),
		},
	}

	relationships := question.Domain{
		Name:  DomainRelationships,
		Title: "People in your life",
		Questions: []question.Question{
			{
				ID:       "relationships_a_connection",
				Type:     question.TypeSingleChoice,
				Question: EveningText(ageBracket),
				Options: []question.Option{
					opt("very_connected", "Very connected"),
					opt("somewhat", "Somewhat connected"),
					opt("lonely_in_a_crowd", "Lonely even around people"),
					{Value: "mostly_alone", Label: "Mostly on my own", Next: "continue_to_relationships_c_support"},
				},
			},
			scale("relationships_b_tension", "How much tension is there in your closest relationship right now?", nil),
			{
				ID:       "relationships_c_support",
				Type:     question.TypeSingleChoice,
				Question: "Who do you turn to when things get hard?",
				Options: []question.Option{
					opt("partner", "A partner"),
					opt("friend", "A friend"),
					opt("family", "Family"),
					opt("no_one", "No one, really"),
				},
			},
			story("relationships_d_story", "Tell us about a moment with someone that still stays with you.",
				"Who was there, what happened, how it felt."),
		},
	}

	core := question.Domain{
		Name:  DomainCore,
		Title: "What matters most",
	}
	if scores != nil {
		text := AdaptiveText(scores)
		if g := strings.TrimSpace(guidance); g != "" {
			text = g
		}
		core.Questions = append(core.Questions, question.Question{
			ID:          AdaptiveQuestionID,
			Type:        question.TypeTextInput,
			Question:    text,
			Placeholder: "There are no wrong answers.",
		})
	}
	core.Questions = append(core.Questions,
		question.Question{
			ID:       "core_b_change",
			Type:     question.TypeSingleChoice,
			Question: "If journaling helped with one thing, what would you want it to be?",
			Options: []question.Option{
				opt("calmer_mind", "A calmer mind"),
				opt("kinder_self_talk", "Kinder self-talk"),
				opt("more_focus", "More focus"),
				opt("better_relationships", "Better relationships"),
			},
		},
		question.Question{
			ID:              "core_c_picture",
			Type:            question.TypeTextInput,
			Question:        "Picture that change. What would be different?",
			DynamicQuestion: true,
			QuestionMap: map[string]string{
				"calmer_mind":          "What would a calmer mind let you do that you can't do now?",
				"kinder_self_talk":     "What would you stop saying to yourself?",
				"more_focus":           "What would you finally finish with more focus?",
				"better_relationships": "Which relationship would you start with, and what would change?",
			},
		},
		story("core_d_story", "What's something you've carried for a long time that you'd like to finally put down?",
			"This stays between you and your journal."),
	)

	domains := []question.Domain{sleep, rumination, relationships, core}
	for i := range domains {
		domains[i].Order = i
	}
	return domains
}
