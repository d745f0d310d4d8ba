package machine

import (
	"slices"
	"time"

	"github.com/creastat/onboarding/domainflow"
	"github.com/creastat/onboarding/goldenkey"
	"github.com/creastat/onboarding/patterns"
	"github.com/creastat/onboarding/question"
	"github.com/creastat/onboarding/voice"
)

// Step is the screen the user is on.
type Step string

const (
	StepOpening          Step = "opening"
	StepQuestions        Step = "questions"
	StepTier3Priority    Step = "tier3-priority"
	StepTier3AdviceStyle Step = "tier3-advice-style"
	StepVoiceSelection   Step = "voice-selection"
	StepClosing          Step = "closing"
	// StepReady is terminal: the session was handed back to the host.
	StepReady Step = "ready"
)

// Submission names a remote call that failed and waits for Retry. The load
// kinds refetch the next tier's questions after the previous tier was
// accepted, so a retry never posts that tier again.
type Submission string

const (
	SubmitNone           Submission = ""
	SubmitTier1          Submission = "tier1"
	SubmitTier2          Submission = "tier2"
	SubmitTier3Responses Submission = "tier3"
	SubmitVoicePreview   Submission = "voice_preview"
	SubmitVoiceSelection Submission = "voice_selection"
	LoadTier2Questions   Submission = "tier2_questions"
	LoadTier3Questions   Submission = "tier3_questions"
)

func (s Submission) loads() bool {
	return s == LoadTier2Questions || s == LoadTier3Questions
}

// ErrorKind classifies Snapshot.Error.
type ErrorKind string

const (
	ErrorValidation ErrorKind = "validation"
	ErrorRemote     ErrorKind = "remote"
)

// Error is the last error surfaced to the user.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Snapshot is the complete state of one onboarding session. Dispatch never
// mutates a snapshot it has returned; every transition yields a new one.
type Snapshot struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`

	Step          Step `json:"step"`
	Tier          int  `json:"tier"`
	QuestionIndex int  `json:"question_index"`

	// Questions is the flat question list of tier 1 or tier 3.
	Questions      []question.Question `json:"questions,omitempty"`
	Responses      question.Responses  `json:"responses"`
	Tier1Responses question.Responses  `json:"tier1_responses"`
	Tier3Responses question.Responses  `json:"tier3_responses"`

	Scores           patterns.Scores `json:"scores,omitempty"`
	FlaggedResponses []string        `json:"flagged_responses,omitempty"`
	AdaptiveGuidance string          `json:"adaptive_guidance,omitempty"`

	Domains         []question.Domain             `json:"domains,omitempty"`
	DomainIndex     int                           `json:"domain_index"`
	DomainTrail     []int                         `json:"domain_trail,omitempty"`
	DomainStates    map[string]domainflow.State   `json:"domain_states,omitempty"`
	DomainResponses map[string]question.Responses `json:"domain_responses,omitempty"`
	GoldenKeys      []goldenkey.GoldenKey         `json:"golden_keys"`
	FollowUp        string                        `json:"follow_up,omitempty"`

	AdviceStyle  voice.ID     `json:"advice_style,omitempty"`
	InitialVoice voice.ID     `json:"initial_voice,omitempty"`
	Voice        *voice.State `json:"voice,omitempty"`

	Warning string     `json:"warning,omitempty"`
	Error   *Error     `json:"error,omitempty"`
	Pending Submission `json:"pending,omitempty"`
}

// Done reports whether the session reached the terminal step.
func (s Snapshot) Done() bool {
	return s.Step == StepReady
}

// CurrentDomain returns the tier-2 domain in progress.
func (s Snapshot) CurrentDomain() (question.Domain, bool) {
	if s.Tier != 2 || s.DomainIndex < 0 || s.DomainIndex >= len(s.Domains) {
		return question.Domain{}, false
	}
	return s.Domains[s.DomainIndex], true
}

// Clone returns a deep copy. Question descriptors are shared; they are never
// modified after loading.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Questions = slices.Clone(s.Questions)
	out.Responses = s.Responses.Clone()
	out.Tier1Responses = s.Tier1Responses.Clone()
	out.Tier3Responses = s.Tier3Responses.Clone()
	out.Scores = s.Scores.Clone()
	out.FlaggedResponses = slices.Clone(s.FlaggedResponses)
	out.Domains = slices.Clone(s.Domains)
	out.DomainTrail = slices.Clone(s.DomainTrail)
	out.GoldenKeys = slices.Clone(s.GoldenKeys)

	if s.DomainStates != nil {
		out.DomainStates = make(map[string]domainflow.State, len(s.DomainStates))
		for k, v := range s.DomainStates {
			out.DomainStates[k] = domainflow.State{
				Index:     v.Index,
				Responses: v.Responses.Clone(),
				History:   v.History.Clone(),
			}
		}
	}
	if s.DomainResponses != nil {
		out.DomainResponses = make(map[string]question.Responses, len(s.DomainResponses))
		for k, v := range s.DomainResponses {
			out.DomainResponses[k] = v.Clone()
		}
	}
	if s.Voice != nil {
		v := *s.Voice
		v.Tried = slices.Clone(s.Voice.Tried)
		if s.Voice.Previews != nil {
			v.Previews = make(map[voice.ID]string, len(s.Voice.Previews))
			for k, p := range s.Voice.Previews {
				v.Previews[k] = p
			}
		}
		out.Voice = &v
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return out
}
