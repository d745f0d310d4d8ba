package profileapi

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/creastat/onboarding/patterns"
	"github.com/creastat/onboarding/question"
	"github.com/creastat/onboarding/voice"
)

// DefaultStatement is offered when no trait was detected.
const DefaultStatement = "Understanding yourself better and building a steady journaling habit."

// Statements words the priority statement of each trait.
var Statements = map[patterns.Trait]string{
	patterns.SocialAnxiety:          "Feeling at ease around other people without bracing for judgment.",
	patterns.ExecutiveFunction:      "Getting started and following through before things pile up.",
	patterns.Defensiveness:          "Hearing feedback without feeling under attack.",
	patterns.Perfectionism:          "Letting good enough be enough and easing the pressure you put on yourself.",
	patterns.Avoidance:              "Facing the things you have been putting off or steering around.",
	patterns.Rumination:             "Quieting the thoughts that keep looping after the moment has passed.",
	patterns.EmotionalDysregulation: "Riding out big feelings without being swept away by them.",
	patterns.AllOrNothingThinking:   "Finding the middle ground when things feel all good or all bad.",
}

// Synthesizer derives the tier-3 priority statement from pattern scores.
type Synthesizer struct {
	statements map[patterns.Trait]string
}

// NewSynthesizer creates a Synthesizer over Statements.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{statements: Statements}
}

// Synthesize picks the statement of the top trait. Confidence is the top
// trait's share of all scores, rounded to two decimals.
func (s *Synthesizer) Synthesize(scores patterns.Scores) question.Synthesis {
	trait, top, ok := scores.Top()
	if !ok {
		return question.Synthesis{Statement: DefaultStatement}
	}
	statement, found := s.statements[trait]
	if !found {
		statement = DefaultStatement
	}
	share := float64(top) / float64(scores.Total())
	return question.Synthesis{
		Statement:  statement,
		Confidence: math.Round(share*100) / 100,
	}
}

// PreviewSource writes the sample message a voice would send a user.
type PreviewSource interface {
	Preview(ctx context.Context, id voice.ID, focus string) (string, error)
}

// StaticPreviews fills persona templates with the user's focus.
type StaticPreviews struct {
	templates map[voice.ID]string
}

// NewStaticPreviews creates the default persona samples.
func NewStaticPreviews() *StaticPreviews {
	return &StaticPreviews{templates: map[voice.ID]string{
		voice.Tony: "Straight talk: you told me what matters is %s. " +
			"Pick one small thing that moves you toward it and do it before noon. No overthinking.",
		voice.Clara: "I hear you. Wanting %s makes so much sense, and it is okay that it feels hard. " +
			"Tonight, write down one moment where you were kind to yourself.",
		voice.Marcus: "Consider what lies within your control. You named %s as your aim. " +
			"Notice today where your effort went, and where only your worry did.",
	}}
}

// Preview implements PreviewSource.
func (p *StaticPreviews) Preview(_ context.Context, id voice.ID, focus string) (string, error) {
	tmpl, ok := p.templates[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", voice.ErrInvalidVoice, id)
	}
	return fmt.Sprintf(tmpl, focusPhrase(focus)), nil
}

// focusPhrase turns a statement into a clause: "Getting started." becomes
// "getting started".
func focusPhrase(statement string) string {
	s := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(statement), ".!"))
	if s == "" {
		return "getting some clarity"
	}
	return strings.ToLower(s[:1]) + s[1:]
}

var _ PreviewSource = (*StaticPreviews)(nil)
