// Package questionbank holds the static question catalogs of every tier and
// fetches live question sets with the static catalogs as fallback.
package questionbank

import (
	"math/rand"

	"github.com/creastat/onboarding/question"
)

// Tier-1 question ids referenced outside the catalog.
const (
	AgeRangeID      = "age_range"
	WhatBringsYouID = "what_brings_you"
)

func choice(id, text string, required bool, opts ...question.Option) question.Question {
	return question.Question{ID: id, Type: question.TypeSingleChoice, Question: text, Required: required, Options: opts}
}

func opt(value, label string) question.Option {
	return question.Option{Value: value, Label: label}
}

// Tier1Pool returns the full tier-1 pool. Required questions come first.
func Tier1Pool() []question.Question {
	return []question.Question{
		choice(AgeRangeID, "Which age range are you in?", true,
			opt("18-24", "18-24"),
			opt("25-34", "25-34"),
			opt("35-44", "35-44"),
			opt("45-54", "45-54"),
			opt("55+", "55 or older"),
		),
		choice("social_energy", "How do you usually feel before a social gathering?", true,
			opt("excited", "Excited to see people"),
			opt("neutral", "Fine either way"),
			opt("anxious_but_go", "Anxious, but I go anyway"),
			opt("avoid_if_possible", "I find a reason not to go"),
		),
		choice("task_start", "When a big task lands on your plate, what usually happens first?", true,
			opt("dive_in", "I dive straight in"),
			opt("make_a_plan", "I make a detailed plan"),
			opt("wait_for_pressure", "I wait until the deadline forces me"),
			opt("freeze", "I freeze and don't know where to start"),
		),
		choice("criticism_response", "When someone criticizes your work, you tend to...", true,
			opt("consider_it", "Consider whether they're right"),
			opt("explain_myself", "Explain why they're wrong"),
			opt("shut_down", "Go quiet and shut down"),
			opt("replay_it", "Replay it in my head for days"),
		),
		choice("mistake_reaction", "After you make a mistake, what tends to follow?", true,
			opt("move_on", "I move on quickly"),
			opt("fix_and_learn", "I fix it and take the lesson"),
			opt("cant_let_go", "I can't stop thinking about it"),
			opt("everything_ruined", "It feels like everything is ruined"),
		),
		choice("emotional_weather", "How would you describe your emotional weather lately?", true,
			opt("steady", "Mostly steady"),
			opt("occasional_storms", "Occasional storms that pass"),
			opt("sudden_storms", "Sudden storms out of nowhere"),
			opt("overwhelmed", "Overwhelmed most of the time"),
		),
		choice("night_mind", "When you lie down at night, your mind usually...", true,
			opt("quiets_down", "Quiets down"),
			opt("plans_tomorrow", "Plans tomorrow"),
			opt("replays_the_day", "Replays the day"),
			opt("spirals", "Spirals into worst cases"),
		),

		choice("standards", "Which sentence sounds most like your standards?", false,
			opt("good_enough", "Good enough is good enough"),
			opt("high_but_flexible", "High, but I can bend"),
			opt("perfect_or_nothing", "If it isn't perfect, why bother"),
		),
		choice("conflict_style", "When a conflict comes up with someone close, you...", false,
			opt("talk_it_out", "Talk it out"),
			opt("keep_the_peace", "Keep the peace, whatever it costs"),
			opt("blow_up", "Blow up, then regret it"),
			opt("go_quiet", "Go quiet and withdraw"),
		),
		choice("plans_change", "Your plans change at the last minute. How does the rest of the day go?", false,
			opt("roll_with_it", "I roll with it"),
			opt("mildly_annoyed", "Mildly annoyed, then fine"),
			opt("whole_day_off", "The whole day feels ruined"),
		),
		{
			ID:       "stress_signals",
			Type:     question.TypeTags,
			Question: "Which of these show up when you're stressed?",
			Options: []question.Option{
				opt("racing_thoughts", "Racing thoughts"),
				opt("irritability", "Irritability"),
				opt("procrastinating", "Procrastinating"),
				opt("withdrawing", "Withdrawing from people"),
				opt("overworking", "Overworking"),
				opt("trouble_sleeping", "Trouble sleeping"),
			},
		},
		{
			ID:          WhatBringsYouID,
			Type:        question.TypeTextInput,
			Question:    "What brings you to journaling right now?",
			Placeholder: "A sentence or two is plenty.",
		},
	}
}

// SelectTier1 returns every required question of pool in pool order followed
// by one optional question sampled uniformly with a Fisher-Yates shuffle.
// The result is intentionally not reproducible across sessions.
func SelectTier1(pool []question.Question, rng *rand.Rand) []question.Question {
	var required, optional []question.Question
	for _, q := range pool {
		if q.Required {
			required = append(required, q)
		} else {
			optional = append(optional, q)
		}
	}

	out := make([]question.Question, 0, len(required)+1)
	out = append(out, required...)
	if len(optional) == 0 {
		return out
	}

	shuffle(optional, rng)
	return append(out, optional[0])
}

func shuffle(qs []question.Question, rng *rand.Rand) {
	for i := len(qs) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}
