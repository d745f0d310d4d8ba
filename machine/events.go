package machine

import (
	"github.com/creastat/onboarding/question"
	"github.com/creastat/onboarding/voice"
)

// Event is a user action dispatched to a Machine.
type Event interface {
	// Name labels the event in logs and metrics.
	Name() string
}

// Start leaves the opening screen.
type Start struct{}

// Answer answers the current tier-1, tier-2 or tier-3 question.
type Answer struct {
	QuestionID string
	Answer     question.Answer
}

// Back returns to the previous question.
type Back struct{}

// AnswerPriority confirms or overrides the tier-3 priority synthesis. The
// override text is checked on SubmitTier3, not here.
type AnswerPriority struct {
	Confirmation string
	OverrideText string
}

// SubmitTier3 validates and submits the tier-3 answers.
type SubmitTier3 struct{}

// Retry re-sends the pending failed submission.
type Retry struct{}

// RejectVoice declines the previewed voice.
type RejectVoice struct{}

// ChooseVoice picks one of the offered alternative voices.
type ChooseVoice struct {
	Voice voice.ID
}

// AcceptVoice accepts the previewed voice.
type AcceptVoice struct{}

// Finish hands the completed session back to the host.
type Finish struct{}

// Reset discards the session and starts over.
type Reset struct{}

func (Start) Name() string          { return "start" }
func (Answer) Name() string         { return "answer" }
func (Back) Name() string           { return "back" }
func (AnswerPriority) Name() string { return "answer_priority" }
func (SubmitTier3) Name() string    { return "submit_tier3" }
func (Retry) Name() string          { return "retry" }
func (RejectVoice) Name() string    { return "reject_voice" }
func (ChooseVoice) Name() string    { return "choose_voice" }
func (AcceptVoice) Name() string    { return "accept_voice" }
func (Finish) Name() string         { return "finish" }
func (Reset) Name() string          { return "reset" }
