package machine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/api"
	"github.com/creastat/onboarding/question"
	"github.com/creastat/onboarding/questionbank"
	"github.com/creastat/onboarding/session"
	"github.com/creastat/onboarding/session/drivers"
	"github.com/creastat/onboarding/voice"
)

var clock = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fakeRemote struct {
	mu sync.Mutex

	tier1      []api.Tier1Submission
	tier2      []api.Tier2Submission
	tier3      []api.Tier3Submission
	previews   []api.PreviewRequest
	selections []api.VoiceSelection

	tier1Err   error
	tier3Err   error
	previewErr error
	warning    string
}

func (f *fakeRemote) SubmitTier1(_ context.Context, sub api.Tier1Submission) (*api.Tier1Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tier1 = append(f.tier1, sub)
	if f.tier1Err != nil {
		return nil, f.tier1Err
	}
	return &api.Tier1Result{Success: true}, nil
}

func (f *fakeRemote) SubmitTier2(_ context.Context, sub api.Tier2Submission) (*api.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tier2 = append(f.tier2, sub)
	return &api.Result{Success: true}, nil
}

func (f *fakeRemote) SubmitTier3(_ context.Context, sub api.Tier3Submission) (*api.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tier3 = append(f.tier3, sub)
	if f.tier3Err != nil {
		return nil, f.tier3Err
	}
	return &api.Result{Success: true}, nil
}

func (f *fakeRemote) GeneratePreviews(_ context.Context, req api.PreviewRequest) (*api.PreviewResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews = append(f.previews, req)
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	out := map[voice.ID]string{}
	for _, id := range req.Voices {
		out[id] = "Preview from " + string(id)
	}
	return &api.PreviewResult{Success: true, Previews: out}, nil
}

func (f *fakeRemote) FinalizeVoice(_ context.Context, sel api.VoiceSelection) (*api.VoiceSelectionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selections = append(f.selections, sel)
	return &api.VoiceSelectionResult{
		Success:        true,
		Warning:        f.warning,
		JournalCreated: f.warning == "",
	}, nil
}

// flakyQuestions fails the next tier-2 or tier-3 loads a set number of
// times before delegating.
type flakyQuestions struct {
	QuestionSource
	tier2Failures int
	tier3Failures int
}

func (f *flakyQuestions) Tier2(ctx context.Context, req questionbank.Request) ([]question.Domain, error) {
	if f.tier2Failures > 0 {
		f.tier2Failures--
		return nil, errors.New("question service unavailable")
	}
	return f.QuestionSource.Tier2(ctx, req)
}

func (f *flakyQuestions) Tier3(ctx context.Context, userID string) ([]question.Question, error) {
	if f.tier3Failures > 0 {
		f.tier3Failures--
		return nil, errors.New("question service unavailable")
	}
	return f.QuestionSource.Tier3(ctx, userID)
}

// flakyStore fails the next saves a set number of times.
type flakyStore struct {
	*drivers.InMemoryStore
	saveFailures int
}

func (s *flakyStore) Save(ctx context.Context, rec *session.Record) error {
	if s.saveFailures > 0 {
		s.saveFailures--
		return errors.New("connection reset by peer")
	}
	return s.InMemoryStore.Save(ctx, rec)
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	remote *fakeRemote
	store  *drivers.InMemoryStore
	cfg    Config
	m      *Machine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bank, err := questionbank.New(nil, questionbank.Config{Seed: 42}, nil)
	require.NoError(t, err)

	h := &harness{
		t:      t,
		ctx:    context.Background(),
		remote: &fakeRemote{},
		store:  drivers.NewInMemoryStore(),
	}
	h.cfg = Config{
		Questions:    bank,
		Remote:       h.remote,
		Store:        h.store,
		WarningDelay: 2 * time.Second,
		Now:          func() time.Time { return clock },
		Sleep:        func(context.Context, time.Duration) error { return nil },
	}
	h.m = h.open("user-1")
	return h
}

func (h *harness) open(userID string) *Machine {
	h.t.Helper()
	m, err := Open(h.ctx, userID, h.cfg)
	require.NoError(h.t, err)
	return m
}

func (h *harness) dispatch(ev Event) Snapshot {
	h.t.Helper()
	s, err := h.m.Dispatch(h.ctx, ev)
	require.NoError(h.t, err, ev.Name())
	return s
}

const shortText = "Just a few words."

// answerFor builds a valid answer that triggers no jump beyond the catalog's
// low-score branches.
func answerFor(q question.Question, text string) question.Answer {
	switch q.Type {
	case question.TypeScale:
		return question.Scale(q.Scale.Min)
	case question.TypeScaleWithNotes:
		return question.ScaleNotes(q.Scale.Min, text)
	case question.TypeSingleChoice:
		return question.Choice(q.Options[0].Value)
	case question.TypeChoiceWithFollowUp:
		return question.ChoiceFollowUp(q.Options[0].Value, text)
	case question.TypeTags:
		return question.Tags(q.Options[0].Value)
	case question.TypePriorityConfirmation:
		return question.Priority(question.PriorityConfirmed)
	}
	return question.Text(text)
}

func (h *harness) answerCurrent(text string) Snapshot {
	h.t.Helper()
	q, ok := h.m.Current()
	require.True(h.t, ok)
	return h.dispatch(Answer{QuestionID: q.ID, Answer: answerFor(q, text)})
}

func (h *harness) walkTier1() Snapshot {
	h.t.Helper()
	s := h.dispatch(Start{})
	for s.Tier == 1 {
		s = h.answerCurrent(shortText)
	}
	return s
}

func (h *harness) walkTier2() Snapshot {
	h.t.Helper()
	s := h.m.Snapshot()
	for s.Step == StepQuestions && s.Tier == 2 {
		s = h.answerCurrent(shortText)
	}
	return s
}

func (h *harness) walkToVoice(style string) Snapshot {
	h.t.Helper()
	h.walkTier1()
	h.walkTier2()
	h.dispatch(AnswerPriority{Confirmation: question.PriorityConfirmed})
	h.dispatch(Answer{QuestionID: questionbank.LimitingBeliefQuestionID, Answer: question.Text("that I have to get it right")})
	h.dispatch(Answer{QuestionID: questionbank.AdviceStyleQuestionID, Answer: question.Choice(style)})
	return h.dispatch(SubmitTier3{})
}

func TestEndToEnd(t *testing.T) {
	h := newHarness(t)
	var completed *Snapshot
	h.cfg.OnComplete = func(_ context.Context, final Snapshot) error {
		completed = &final
		return nil
	}
	h.m = h.open("user-1")
	assert.Equal(t, StepOpening, h.m.Snapshot().Step)

	s := h.dispatch(Start{})
	require.Equal(t, StepQuestions, s.Step)
	required := 0
	for _, q := range s.Questions {
		if q.Required {
			required++
		}
	}
	assert.Len(t, s.Questions, required+1)

	for s.Tier == 1 {
		s = h.answerCurrent(shortText)
	}
	require.Len(t, h.remote.tier1, 1)
	sub1 := h.remote.tier1[0]
	assert.Equal(t, "user-1", sub1.UserID)
	assert.Len(t, sub1.Responses, required+1)
	assert.Len(t, sub1.DetectedPatterns, 8)

	assert.Equal(t, 2, s.Tier)
	assert.Equal(t, StepQuestions, s.Step)
	assert.Equal(t, 0, s.DomainIndex)
	assert.Equal(t, questionbank.DomainSleep, s.Domains[0].Name)

	s = h.walkTier2()
	require.Len(t, h.remote.tier2, 1)
	sub2 := h.remote.tier2[0]
	require.NotNil(t, sub2.GoldenKeys)
	assert.Empty(t, sub2.GoldenKeys)
	body, err := json.Marshal(sub2)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"goldenKeys":[]`)
	assert.Len(t, sub2.DomainResponses, 4)

	require.Equal(t, StepTier3Priority, s.Step)
	assert.Equal(t, 3, s.Tier)

	h.dispatch(AnswerPriority{Confirmation: question.PriorityConfirmed})
	h.dispatch(Answer{QuestionID: questionbank.LimitingBeliefQuestionID, Answer: question.Text("that rest is earned")})
	s = h.dispatch(Answer{QuestionID: questionbank.AdviceStyleQuestionID, Answer: question.Choice("tony")})
	assert.Equal(t, StepTier3AdviceStyle, s.Step)

	s = h.dispatch(SubmitTier3{})
	require.Len(t, h.remote.tier3, 1)
	assert.Equal(t, question.PriorityConfirmed, h.remote.tier3[0].Responses[questionbank.PriorityQuestionID])
	assert.Equal(t, StepVoiceSelection, s.Step)
	assert.Equal(t, voice.Tony, s.InitialVoice)
	assert.Equal(t, voice.Tony, s.AdviceStyle)
	require.NotNil(t, s.Voice)
	assert.Equal(t, voice.PhaseReviewing, s.Voice.Phase)
	assert.Equal(t, "Preview from tony", s.Voice.Previews[voice.Tony])

	s = h.dispatch(AcceptVoice{})
	assert.Equal(t, StepClosing, s.Step)
	require.Len(t, h.remote.selections, 1)
	assert.Equal(t, voice.Tony, h.remote.selections[0].SelectedVoice)
	assert.Equal(t, "Preview from tony", h.remote.selections[0].VoicePreviewText)

	s = h.dispatch(Finish{})
	assert.True(t, s.Done())
	require.NotNil(t, completed)
	assert.Equal(t, voice.Tony, completed.AdviceStyle)

	rec, err := h.store.Load(h.ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, rec, "persisted state is cleared")

	_, err = h.m.Dispatch(h.ctx, Back{})
	assert.ErrorIs(t, err, onboarding.ErrInvalidEvent)
}

func TestOverrideWithEmptyTextIsRejectedLocally(t *testing.T) {
	h := newHarness(t)
	h.walkTier1()
	h.walkTier2()

	h.dispatch(AnswerPriority{Confirmation: question.PriorityOverride, OverrideText: "   "})
	h.dispatch(Answer{QuestionID: questionbank.LimitingBeliefQuestionID, Answer: question.Text("")})
	h.dispatch(Answer{QuestionID: questionbank.AdviceStyleQuestionID, Answer: question.Choice("clara")})

	s, err := h.m.Dispatch(h.ctx, SubmitTier3{})
	assert.ErrorIs(t, err, onboarding.ErrValidation)
	assert.Empty(t, h.remote.tier3, "no network call")
	assert.Equal(t, StepTier3AdviceStyle, s.Step)
	require.NotNil(t, s.Error)
	assert.Equal(t, ErrorValidation, s.Error.Kind)
	assert.Equal(t, SubmitNone, s.Pending)

	t.Run("fixed override submits", func(t *testing.T) {
		h.dispatch(Back{})
		h.dispatch(Back{})
		s := h.dispatch(AnswerPriority{Confirmation: question.PriorityOverride, OverrideText: "Sleeping through the night"})
		assert.Equal(t, 1, s.QuestionIndex)
		assert.Nil(t, s.Error)

		s = h.dispatch(SubmitTier3{})
		assert.Equal(t, StepVoiceSelection, s.Step)
		require.Len(t, h.remote.tier3, 1)
		assert.Equal(t, "Sleeping through the night", h.remote.tier3[0].Responses[questionbank.OverrideTextID])
	})
}

func TestMissingAdviceStyleIsRejected(t *testing.T) {
	h := newHarness(t)
	h.walkTier1()
	h.walkTier2()
	h.dispatch(AnswerPriority{Confirmation: question.PriorityConfirmed})

	_, err := h.m.Dispatch(h.ctx, SubmitTier3{})
	assert.ErrorIs(t, err, onboarding.ErrValidation)
	assert.Empty(t, h.remote.tier3)
}

func TestRemoteFailureWaitsForRetry(t *testing.T) {
	h := newHarness(t)
	h.remote.tier1Err = errors.New("connection refused")

	s := h.dispatch(Start{})
	var err error
	for {
		q, ok := h.m.Current()
		if !ok {
			break
		}
		s, err = h.m.Dispatch(h.ctx, Answer{QuestionID: q.ID, Answer: answerFor(q, shortText)})
		if err != nil {
			break
		}
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, onboarding.ErrRemote)
	assert.Equal(t, 1, s.Tier, "never advances silently")
	assert.Equal(t, SubmitTier1, s.Pending)
	require.NotNil(t, s.Error)
	assert.Equal(t, ErrorRemote, s.Error.Kind)
	assert.Len(t, h.remote.tier1, 1)

	_, err = h.m.Dispatch(h.ctx, Start{})
	assert.ErrorIs(t, err, onboarding.ErrSubmissionPending)
	assert.Len(t, h.remote.tier1, 1, "no automatic retry")

	h.remote.tier1Err = nil
	s = h.dispatch(Retry{})
	assert.Equal(t, 2, s.Tier)
	assert.Equal(t, SubmitNone, s.Pending)
	assert.Nil(t, s.Error)
	assert.Len(t, h.remote.tier1, 2)

	_, err = h.m.Dispatch(h.ctx, Retry{})
	assert.ErrorIs(t, err, onboarding.ErrInvalidEvent)
}

func TestTier3FailureKeepsStep(t *testing.T) {
	h := newHarness(t)
	h.remote.tier3Err = errors.New("timeout")
	h.walkTier1()
	h.walkTier2()
	h.dispatch(AnswerPriority{Confirmation: question.PriorityConfirmed})
	h.dispatch(Answer{QuestionID: questionbank.LimitingBeliefQuestionID, Answer: question.Text("")})
	h.dispatch(Answer{QuestionID: questionbank.AdviceStyleQuestionID, Answer: question.Choice("marcus")})

	s, err := h.m.Dispatch(h.ctx, SubmitTier3{})
	assert.ErrorIs(t, err, onboarding.ErrRemote)
	assert.Equal(t, StepTier3AdviceStyle, s.Step)
	assert.Equal(t, SubmitTier3Responses, s.Pending)

	h.remote.tier3Err = nil
	s = h.dispatch(Retry{})
	assert.Equal(t, StepVoiceSelection, s.Step)
	assert.Equal(t, voice.Marcus, s.InitialVoice)
}

func TestBackNavigation(t *testing.T) {
	h := newHarness(t)

	t.Run("tier 1", func(t *testing.T) {
		s := h.dispatch(Start{})
		s = h.dispatch(Back{})
		assert.Equal(t, 0, s.QuestionIndex, "no-op at the first question")

		h.answerCurrent(shortText)
		s = h.dispatch(Back{})
		assert.Equal(t, 0, s.QuestionIndex)
		assert.Equal(t, 1, s.Tier)
	})

	t.Run("tier 2 entry of first domain", func(t *testing.T) {
		for h.m.Snapshot().Tier == 1 {
			h.answerCurrent(shortText)
		}
		s := h.dispatch(Back{})
		assert.Equal(t, 2, s.Tier)
		assert.Equal(t, 0, s.DomainIndex)
		assert.Equal(t, 0, s.QuestionIndex)
	})

	t.Run("tier 2 entry goes to previous domain", func(t *testing.T) {
		var s Snapshot
		for h.m.Snapshot().DomainIndex == 0 {
			s = h.answerCurrent(shortText)
		}
		require.Equal(t, 1, s.DomainIndex)
		require.Contains(t, s.DomainResponses, questionbank.DomainSleep)

		s = h.dispatch(Back{})
		assert.Equal(t, 0, s.DomainIndex)
		assert.NotContains(t, s.DomainResponses, questionbank.DomainSleep)
		q, ok := h.m.Current()
		require.True(t, ok)
		assert.Equal(t, "sleep_d_story", q.ID)
		assert.Equal(t, []int{0}, s.DomainTrail)
	})

	t.Run("tier 3 first question reopens last domain", func(t *testing.T) {
		s := h.walkTier2()
		require.Equal(t, StepTier3Priority, s.Step)
		require.Len(t, h.remote.tier2, 1)

		s = h.dispatch(Back{})
		assert.Equal(t, 2, s.Tier)
		assert.Equal(t, StepQuestions, s.Step)
		d, ok := s.CurrentDomain()
		require.True(t, ok)
		assert.Equal(t, questionbank.DomainCore, d.Name)
		q, ok := h.m.Current()
		require.True(t, ok)
		assert.Equal(t, "core_d_story", q.ID)

		s = h.answerCurrent(shortText)
		assert.Equal(t, StepTier3Priority, s.Step)
		assert.Len(t, h.remote.tier2, 2)
	})
}

func TestDomainSkip(t *testing.T) {
	h := newHarness(t)
	h.walkTier1()

	for h.m.Snapshot().DomainIndex == 0 {
		h.answerCurrent(shortText)
	}
	s := h.dispatch(Answer{QuestionID: "rumination_a_frequency", Answer: question.Scale(2)})
	d, ok := s.CurrentDomain()
	require.True(t, ok)
	assert.Equal(t, questionbank.DomainRelationships, d.Name)
	assert.Equal(t, []int{0, 1, 2}, s.DomainTrail)
	assert.Len(t, s.DomainResponses[questionbank.DomainRumination], 1)
}

func TestGoldenKeyIsCollected(t *testing.T) {
	h := newHarness(t)
	h.walkTier1()

	story := "I have never told anyone this, but the night my father left I sat on the stairs " +
		"until morning waiting for the car to come back. I was eleven. Every time I hear gravel " +
		"under tires I still feel that same cold fear in my chest, and I think it shaped how I " +
		"hold on to people now."

	var s Snapshot
	for {
		q, ok := h.m.Current()
		require.True(t, ok)
		text := shortText
		if q.GoldenKey {
			text = story
		}
		s = h.dispatch(Answer{QuestionID: q.ID, Answer: answerFor(q, text)})
		if q.GoldenKey {
			break
		}
	}
	require.Len(t, s.GoldenKeys, 1)
	assert.Equal(t, questionbank.DomainSleep, s.GoldenKeys[0].Domain)
	assert.Equal(t, "sleep_d_story", s.GoldenKeys[0].QuestionID)
	assert.Equal(t, clock, s.GoldenKeys[0].Timestamp)

	h.walkTier2()
	require.Len(t, h.remote.tier2, 1)
	assert.Len(t, h.remote.tier2[0].GoldenKeys, 1)
}

func TestVoiceRejectAllThenForcedChoice(t *testing.T) {
	h := newHarness(t)
	s := h.walkToVoice("tony")
	require.Equal(t, voice.PhaseReviewing, s.Voice.Phase)

	h.dispatch(RejectVoice{})
	s = h.dispatch(ChooseVoice{Voice: voice.Clara})
	assert.Equal(t, voice.PhaseReviewing, s.Voice.Phase)

	_, err := h.m.Dispatch(h.ctx, ChooseVoice{Voice: voice.Marcus})
	assert.ErrorIs(t, err, onboarding.ErrInvalidEvent, "must reject first")

	h.dispatch(RejectVoice{})
	_, err = h.m.Dispatch(h.ctx, ChooseVoice{Voice: voice.Tony})
	assert.ErrorIs(t, err, onboarding.ErrValidation, "tony was already tried")

	h.dispatch(ChooseVoice{Voice: voice.Marcus})
	h.dispatch(RejectVoice{})

	s = h.dispatch(ChooseVoice{Voice: voice.Marcus})
	assert.Equal(t, StepClosing, s.Step)
	assert.Equal(t, voice.PhaseConfirmed, s.Voice.Phase)
	require.Len(t, h.remote.selections, 1)
	assert.Equal(t, voice.Marcus, h.remote.selections[0].SelectedVoice)
	assert.Len(t, h.remote.selections[0].VoicePreviews, 3)
	assert.Len(t, h.remote.previews, 3)
}

func TestPreviewFailureIsRetryable(t *testing.T) {
	h := newHarness(t)
	h.remote.previewErr = errors.New("upstream unavailable")
	h.walkTier1()
	h.walkTier2()
	h.dispatch(AnswerPriority{Confirmation: question.PriorityConfirmed})
	h.dispatch(Answer{QuestionID: questionbank.LimitingBeliefQuestionID, Answer: question.Text("")})
	h.dispatch(Answer{QuestionID: questionbank.AdviceStyleQuestionID, Answer: question.Choice("clara")})

	s, err := h.m.Dispatch(h.ctx, SubmitTier3{})
	assert.ErrorIs(t, err, onboarding.ErrRemote)
	assert.Equal(t, StepVoiceSelection, s.Step, "tier 3 itself succeeded")
	assert.Equal(t, SubmitVoicePreview, s.Pending)

	h.remote.previewErr = nil
	s = h.dispatch(Retry{})
	assert.Equal(t, voice.PhaseReviewing, s.Voice.Phase)
	assert.Len(t, h.remote.tier3, 1)
}

func TestWarningDelaysClosing(t *testing.T) {
	h := newHarness(t)
	var slept []time.Duration
	h.cfg.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	h.m = h.open("user-1")
	h.remote.warning = "profile saved, journal entry missing"

	h.walkToVoice("tony")
	s := h.dispatch(AcceptVoice{})
	assert.Equal(t, StepClosing, s.Step)
	assert.Equal(t, "profile saved, journal entry missing", s.Warning)
	assert.Equal(t, []time.Duration{2 * time.Second}, slept)
}

func TestResume(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Start{})
	h.answerCurrent(shortText)
	before := h.answerCurrent(shortText)

	resumed := h.open("user-1")
	after := resumed.Snapshot()
	assert.Equal(t, before.SessionID, after.SessionID)
	assert.Equal(t, before.Step, after.Step)
	assert.Equal(t, 2, after.QuestionIndex)
	assert.Equal(t, before.Responses, after.Responses)
	assert.Equal(t, before.Questions, after.Questions, "tier-1 sample survives reloads")
}

func TestIdentityMismatchEvicts(t *testing.T) {
	h := newHarness(t)
	core, logs := observer.New(zapcore.DebugLevel)
	h.cfg.Logger = zap.New(core)

	h.dispatch(Start{})
	first := h.answerCurrent(shortText)

	other := h.open("user-2")
	assert.Equal(t, StepOpening, other.Snapshot().Step)
	assert.Equal(t, 1, logs.FilterMessage("evicted stale onboarding session").Len())

	back := h.open("user-1")
	s := back.Snapshot()
	assert.Equal(t, StepOpening, s.Step, "user-1's session was wiped")
	assert.NotEqual(t, first.SessionID, s.SessionID)
}

func TestResetStartsOver(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Start{})
	before := h.answerCurrent(shortText)

	s := h.dispatch(Reset{})
	assert.Equal(t, StepOpening, s.Step)
	assert.NotEqual(t, before.SessionID, s.SessionID)
	assert.Empty(t, s.Responses)

	rec, err := h.store.Load(h.ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, strings.Contains(string(rec.Snapshot), s.SessionID))
}

func TestRejectedEvents(t *testing.T) {
	h := newHarness(t)

	_, err := h.m.Dispatch(h.ctx, Finish{})
	assert.ErrorIs(t, err, onboarding.ErrInvalidEvent)
	_, err = h.m.Dispatch(h.ctx, AcceptVoice{})
	assert.ErrorIs(t, err, onboarding.ErrInvalidEvent)

	h.dispatch(Start{})
	s, err := h.m.Dispatch(h.ctx, Answer{QuestionID: "nope", Answer: question.Choice("x")})
	assert.ErrorIs(t, err, onboarding.ErrQuestionMismatch)
	assert.Nil(t, s.Error, "rejections leave the state untouched")

	q, _ := h.m.Current()
	s, err = h.m.Dispatch(h.ctx, Answer{QuestionID: q.ID, Answer: question.Choice("not-an-option")})
	assert.ErrorIs(t, err, onboarding.ErrValidation)
	require.NotNil(t, s.Error)
	assert.Equal(t, ErrorValidation, s.Error.Kind)
	assert.Equal(t, 0, s.QuestionIndex)
}

func TestOpenValidation(t *testing.T) {
	_, err := Open(context.Background(), "", Config{})
	assert.ErrorIs(t, err, onboarding.ErrValidation)

	_, err = Open(context.Background(), "u1", Config{})
	assert.ErrorIs(t, err, onboarding.ErrInvalidConfig)
}

func TestQuestionLoadFailureRetriesWithoutResubmitting(t *testing.T) {
	t.Run("tier 2 questions", func(t *testing.T) {
		h := newHarness(t)
		h.cfg.Questions = &flakyQuestions{QuestionSource: h.cfg.Questions, tier2Failures: 1}
		h.m = h.open("user-1")

		s := h.dispatch(Start{})
		var err error
		for s.Tier == 1 && s.Pending == SubmitNone {
			q, ok := h.m.Current()
			require.True(t, ok)
			s, err = h.m.Dispatch(h.ctx, Answer{QuestionID: q.ID, Answer: answerFor(q, shortText)})
		}
		require.ErrorIs(t, err, onboarding.ErrRemote)
		assert.Equal(t, LoadTier2Questions, s.Pending)
		assert.Equal(t, 1, s.Tier)
		assert.Len(t, h.remote.tier1, 1)

		_, err = h.m.Dispatch(h.ctx, Back{})
		assert.ErrorIs(t, err, onboarding.ErrSubmissionPending, "tier 1 was accepted")

		s = h.dispatch(Retry{})
		assert.Equal(t, SubmitNone, s.Pending)
		assert.Equal(t, StepQuestions, s.Step)
		assert.Equal(t, 2, s.Tier)
		assert.Equal(t, 0, s.DomainIndex)
		assert.Len(t, h.remote.tier1, 1, "retry only reloads questions")
	})

	walkTier2Until := func(h *harness) (Snapshot, error) {
		s := h.m.Snapshot()
		var err error
		for s.Step == StepQuestions && s.Tier == 2 && s.Pending == SubmitNone {
			q, ok := h.m.Current()
			require.True(h.t, ok)
			s, err = h.m.Dispatch(h.ctx, Answer{QuestionID: q.ID, Answer: answerFor(q, shortText)})
		}
		return s, err
	}

	t.Run("tier 3 questions", func(t *testing.T) {
		h := newHarness(t)
		h.cfg.Questions = &flakyQuestions{QuestionSource: h.cfg.Questions, tier3Failures: 1}
		h.m = h.open("user-1")
		h.walkTier1()

		s, err := walkTier2Until(h)
		require.ErrorIs(t, err, onboarding.ErrRemote)
		assert.Equal(t, LoadTier3Questions, s.Pending)
		assert.Len(t, h.remote.tier2, 1)

		s = h.dispatch(Retry{})
		assert.Equal(t, SubmitNone, s.Pending)
		assert.Equal(t, 3, s.Tier)
		assert.Equal(t, StepTier3Priority, s.Step)
		assert.Len(t, h.remote.tier2, 1, "retry only reloads questions")
	})

	t.Run("back reopens the last domain", func(t *testing.T) {
		h := newHarness(t)
		h.cfg.Questions = &flakyQuestions{QuestionSource: h.cfg.Questions, tier3Failures: 1}
		h.m = h.open("user-1")
		h.walkTier1()

		_, err := walkTier2Until(h)
		require.ErrorIs(t, err, onboarding.ErrRemote)

		s := h.dispatch(Back{})
		assert.Equal(t, SubmitNone, s.Pending)
		assert.Equal(t, StepQuestions, s.Step)
		assert.Equal(t, 2, s.Tier)
		_, ok := h.m.Current()
		assert.True(t, ok)
	})
}

func TestWarningSaveFailureStillCloses(t *testing.T) {
	h := newHarness(t)
	store := &flakyStore{InMemoryStore: h.store}
	h.cfg.Store = store
	h.m = h.open("user-1")
	h.remote.warning = "profile saved, journal entry missing"
	h.walkToVoice("tony")

	store.saveFailures = 1
	s := h.dispatch(AcceptVoice{})
	assert.Equal(t, StepClosing, s.Step)
	assert.Equal(t, SubmitNone, s.Pending)
	assert.Len(t, h.remote.selections, 1)

	rec, err := h.store.Load(h.ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	var saved Snapshot
	require.NoError(t, json.Unmarshal(rec.Snapshot, &saved))
	assert.Equal(t, StepClosing, saved.Step)

	s = h.dispatch(Finish{})
	assert.True(t, s.Done())
}
