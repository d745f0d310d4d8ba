// Package machine orchestrates an onboarding session across the three
// question tiers, voice selection and closing.
//
// A Machine owns one user's Snapshot. Each dispatched event produces a new
// snapshot which is persisted before Dispatch returns, so a reload resumes
// from the last committed step. Remote failures keep the user on the current
// step and record a pending submission that only an explicit Retry re-sends.
package machine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/api"
	"github.com/creastat/onboarding/domainflow"
	"github.com/creastat/onboarding/goldenkey"
	"github.com/creastat/onboarding/internal/metrics"
	"github.com/creastat/onboarding/question"
	"github.com/creastat/onboarding/questionbank"
	"github.com/creastat/onboarding/session"
)

const defaultWarningDelay = 2 * time.Second

// QuestionSource loads the question set of each tier.
type QuestionSource interface {
	Tier1(ctx context.Context, userID string) ([]question.Question, error)
	Tier2(ctx context.Context, req questionbank.Request) ([]question.Domain, error)
	Tier3(ctx context.Context, userID string) ([]question.Question, error)
}

// Remote is the profile service.
type Remote interface {
	SubmitTier1(ctx context.Context, sub api.Tier1Submission) (*api.Tier1Result, error)
	SubmitTier2(ctx context.Context, sub api.Tier2Submission) (*api.Result, error)
	SubmitTier3(ctx context.Context, sub api.Tier3Submission) (*api.Result, error)
	GeneratePreviews(ctx context.Context, req api.PreviewRequest) (*api.PreviewResult, error)
	FinalizeVoice(ctx context.Context, sel api.VoiceSelection) (*api.VoiceSelectionResult, error)
}

// Config wires a Machine.
type Config struct {
	Questions QuestionSource
	Remote    Remote
	Store     session.Store

	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// WarningDelay is how long a partial-failure warning stays on screen
	// before closing. Default: 2s
	WarningDelay time.Duration

	// OnComplete is called by Finish after persisted state was cleared.
	OnComplete func(ctx context.Context, final Snapshot) error

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c *Config) validate() error {
	switch {
	case c.Questions == nil:
		return fmt.Errorf("%w: question source is required", onboarding.ErrInvalidConfig)
	case c.Remote == nil:
		return fmt.Errorf("%w: remote is required", onboarding.ErrInvalidConfig)
	case c.Store == nil:
		return fmt.Errorf("%w: session store is required", onboarding.ErrInvalidConfig)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.New()
	}
	if c.WarningDelay < 0 {
		c.WarningDelay = 0
	} else if c.WarningDelay == 0 {
		c.WarningDelay = defaultWarningDelay
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = sleep
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Machine is the onboarding state machine of one user. Dispatch is
// serialized; a Machine is safe for concurrent use.
type Machine struct {
	cfg    Config
	logger *zap.Logger

	mu   sync.Mutex
	snap Snapshot
}

// Open resumes the persisted session of userID or starts a new one. A session
// left by another identity or written with another schema version is
// evicted first.
func Open(ctx context.Context, userID string, cfg Config) (*Machine, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", onboarding.ErrValidation)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		cfg:    cfg,
		logger: cfg.Logger.With(zap.String("user_id", userID)),
	}

	rec, evicted, err := session.Acquire(ctx, cfg.Store, userID)
	if err != nil {
		return nil, err
	}
	if evicted != "" {
		m.logger.Warn("evicted stale onboarding session", zap.String("reason", evicted))
		cfg.Metrics.RecordEviction()
	}

	if rec != nil {
		var snap Snapshot
		if err := json.Unmarshal(rec.Snapshot, &snap); err != nil || snap.UserID != userID {
			m.logger.Warn("discarding unreadable onboarding session", zap.Error(err))
			cfg.Metrics.RecordEviction()
		} else {
			m.snap = snap
			m.logger.Debug("resumed onboarding session",
				zap.String("session_id", snap.SessionID),
				zap.String("step", string(snap.Step)),
				zap.Int64("revision", rec.Revision))
			return m, nil
		}
	}

	m.snap = m.fresh(userID)
	if err := m.persist(ctx, m.snap); err != nil {
		return nil, err
	}
	m.logger.Info("started onboarding session", zap.String("session_id", m.snap.SessionID))
	return m, nil
}

func (m *Machine) fresh(userID string) Snapshot {
	return Snapshot{
		SessionID:      uuid.NewString(),
		UserID:         userID,
		StartedAt:      m.cfg.Now().UTC(),
		Step:           StepOpening,
		Responses:      question.Responses{},
		Tier1Responses: question.Responses{},
		Tier3Responses: question.Responses{},
		GoldenKeys:     []goldenkey.GoldenKey{},
	}
}

// Snapshot returns the current snapshot.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone()
}

// Current returns the question the user should answer next, with dynamic
// tier-2 wording resolved.
func (m *Machine) Current() (question.Question, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return current(m.snap)
}

func current(s Snapshot) (question.Question, bool) {
	if s.Pending != SubmitNone {
		return question.Question{}, false
	}
	switch s.Step {
	case StepQuestions:
		if s.Tier == 2 {
			e, err := engineFor(s)
			if err != nil {
				return question.Question{}, false
			}
			return e.Current()
		}
	case StepTier3Priority, StepTier3AdviceStyle:
	default:
		return question.Question{}, false
	}
	if s.QuestionIndex < 0 || s.QuestionIndex >= len(s.Questions) {
		return question.Question{}, false
	}
	return s.Questions[s.QuestionIndex], true
}

func engineFor(s Snapshot) (*domainflow.Engine, error) {
	d, ok := s.CurrentDomain()
	if !ok {
		return nil, fmt.Errorf("%w: no domain in progress", onboarding.ErrInvalidEvent)
	}
	st, ok := s.DomainStates[d.Name]
	if !ok {
		return domainflow.New(d)
	}
	return domainflow.Restore(d, st)
}

// Dispatch applies ev and returns the resulting snapshot. Rejected events
// leave the state untouched. Validation and remote failures are recorded in
// Snapshot.Error, persisted and returned.
func (m *Machine) Dispatch(ctx context.Context, ev Event) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.snap.Clone()
	err := m.apply(ctx, &next, ev)

	if rejected(err) {
		m.cfg.Metrics.RecordEvent(ev.Name(), "rejected")
		m.logger.Debug("event rejected", zap.String("event", ev.Name()), zap.Error(err))
		return m.snap.Clone(), err
	}

	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(err, onboarding.ErrValidation) {
			next.Error = &Error{Kind: ErrorValidation, Message: err.Error()}
			result = "invalid"
		}
	}
	m.cfg.Metrics.RecordEvent(ev.Name(), result)

	if cerr := m.commit(ctx, next); cerr != nil {
		return m.snap.Clone(), errors.Join(err, cerr)
	}
	m.logger.Debug("transition",
		zap.String("event", ev.Name()),
		zap.String("step", string(next.Step)),
		zap.Int("tier", next.Tier),
		zap.Int("question_index", next.QuestionIndex))
	return m.snap.Clone(), err
}

func rejected(err error) bool {
	return errors.Is(err, onboarding.ErrInvalidEvent) ||
		errors.Is(err, onboarding.ErrQuestionMismatch) ||
		errors.Is(err, onboarding.ErrSubmissionPending)
}

// commit makes s current and persists it. The in-memory state advances even
// when the save fails, so a submission that already reached the backend is
// not sent twice.
func (m *Machine) commit(ctx context.Context, s Snapshot) error {
	m.snap = s
	if s.Step == StepReady {
		return nil
	}
	return m.persist(ctx, s)
}

func (m *Machine) persist(ctx context.Context, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}
	rec := &session.Record{
		UserID:        s.UserID,
		SchemaVersion: session.SchemaVersion,
		Snapshot:      data,
	}
	if err := m.cfg.Store.Save(ctx, rec); err != nil {
		m.logger.Error("failed to persist onboarding session", zap.Error(err))
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (m *Machine) apply(ctx context.Context, s *Snapshot, ev Event) error {
	if s.Step == StepReady {
		if _, ok := ev.(Reset); !ok {
			return fmt.Errorf("%w: session is complete", onboarding.ErrInvalidEvent)
		}
	}

	ensureMaps(s)

	switch ev.(type) {
	case Reset:
		return m.reset(ctx, s)
	case Retry:
		return m.retry(ctx, s)
	case Back:
		return m.back(ctx, s)
	}

	if s.Pending != SubmitNone {
		return fmt.Errorf("%w: %s", onboarding.ErrSubmissionPending, s.Pending)
	}

	switch ev := ev.(type) {
	case Start:
		return m.start(ctx, s)
	case Answer:
		return m.answer(ctx, s, ev)
	case AnswerPriority:
		return m.answerPriority(s, ev)
	case SubmitTier3:
		return m.submitTier3(ctx, s)
	case RejectVoice:
		return m.rejectVoice(s)
	case ChooseVoice:
		return m.chooseVoice(ctx, s, ev)
	case AcceptVoice:
		return m.acceptVoice(ctx, s)
	case Finish:
		return m.finish(ctx, s)
	}
	return fmt.Errorf("%w: unsupported event %T", onboarding.ErrInvalidEvent, ev)
}

func (m *Machine) reset(ctx context.Context, s *Snapshot) error {
	if err := m.cfg.Store.Delete(ctx, s.UserID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	m.logger.Info("onboarding session reset", zap.String("session_id", s.SessionID))
	*s = m.fresh(s.UserID)
	return nil
}

func (m *Machine) retry(ctx context.Context, s *Snapshot) error {
	pending := s.Pending
	if pending == SubmitNone {
		return fmt.Errorf("%w: nothing to retry", onboarding.ErrInvalidEvent)
	}
	s.Pending = SubmitNone
	s.Error = nil
	m.logger.Info("retrying", zap.String("submission", string(pending)))

	switch pending {
	case SubmitTier1:
		return m.submitTier1(ctx, s)
	case SubmitTier2:
		return m.submitTier2(ctx, s)
	case SubmitTier3Responses:
		return m.submitTier3(ctx, s)
	case SubmitVoicePreview:
		return m.requestPreview(ctx, s)
	case SubmitVoiceSelection:
		return m.finalizeVoice(ctx, s)
	case LoadTier2Questions:
		return m.enterTier2(ctx, s)
	case LoadTier3Questions:
		return m.enterTier3(ctx, s)
	}
	return fmt.Errorf("%w: unknown pending submission %q", onboarding.ErrInvalidEvent, pending)
}

// fail records a failed remote call as pending and returns it wrapped as
// onboarding.ErrRemote.
func (m *Machine) fail(s *Snapshot, sub Submission, err error) error {
	s.Pending = sub
	s.Error = &Error{Kind: ErrorRemote, Message: err.Error()}
	m.cfg.Metrics.RecordSubmission(string(sub), "error")
	m.logger.Error("submission failed", zap.String("submission", string(sub)), zap.Error(err))
	verb := "submit"
	if sub.loads() {
		verb = "load"
	}
	if errors.Is(err, onboarding.ErrRemote) {
		return fmt.Errorf("failed to %s %s: %w", verb, sub, err)
	}
	return fmt.Errorf("failed to %s %s: %w: %w", verb, sub, onboarding.ErrRemote, err)
}

func (m *Machine) succeeded(sub Submission) {
	m.cfg.Metrics.RecordSubmission(string(sub), "ok")
	m.logger.Info("submission accepted", zap.String("submission", string(sub)))
}

func (m *Machine) finish(ctx context.Context, s *Snapshot) error {
	if s.Step != StepClosing {
		return fmt.Errorf("%w: finish in %s", onboarding.ErrInvalidEvent, s.Step)
	}
	if err := m.cfg.Store.Delete(ctx, s.UserID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.Step = StepReady
	s.Error = nil
	if m.cfg.OnComplete != nil {
		if err := m.cfg.OnComplete(ctx, s.Clone()); err != nil {
			m.logger.Warn("completion callback failed", zap.Error(err))
		}
	}
	m.logger.Info("onboarding complete", zap.String("session_id", s.SessionID))
	return nil
}
