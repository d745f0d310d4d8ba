package machine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/api"
	"github.com/creastat/onboarding/domainflow"
	"github.com/creastat/onboarding/goldenkey"
	"github.com/creastat/onboarding/patterns"
	"github.com/creastat/onboarding/question"
	"github.com/creastat/onboarding/questionbank"
	"github.com/creastat/onboarding/voice"
)

func unsuccessful(msg string) error {
	if msg == "" {
		msg = "request was not successful"
	}
	return fmt.Errorf("%w: %s", onboarding.ErrRemote, msg)
}

func ensureMaps(s *Snapshot) {
	if s.Responses == nil {
		s.Responses = question.Responses{}
	}
	if s.Tier1Responses == nil {
		s.Tier1Responses = question.Responses{}
	}
	if s.Tier3Responses == nil {
		s.Tier3Responses = question.Responses{}
	}
	if s.DomainStates == nil {
		s.DomainStates = map[string]domainflow.State{}
	}
	if s.DomainResponses == nil {
		s.DomainResponses = map[string]question.Responses{}
	}
}

func (m *Machine) start(ctx context.Context, s *Snapshot) error {
	if s.Step != StepOpening {
		return fmt.Errorf("%w: start in %s", onboarding.ErrInvalidEvent, s.Step)
	}
	qs, err := m.cfg.Questions.Tier1(ctx, s.UserID)
	if err != nil {
		s.Error = &Error{Kind: ErrorRemote, Message: err.Error()}
		return fmt.Errorf("failed to load tier 1 questions: %w", err)
	}
	if len(qs) == 0 {
		return fmt.Errorf("%w: no tier 1 questions", onboarding.ErrValidation)
	}

	s.Step = StepQuestions
	s.Tier = 1
	s.QuestionIndex = 0
	s.Questions = qs
	s.StartedAt = m.cfg.Now().UTC()
	s.Error = nil
	return nil
}

func (m *Machine) answer(ctx context.Context, s *Snapshot, ev Answer) error {
	switch {
	case s.Step == StepQuestions && s.Tier == 1:
		return m.answerTier1(ctx, s, ev)
	case s.Step == StepQuestions && s.Tier == 2:
		return m.answerTier2(ctx, s, ev)
	case s.Step == StepTier3Priority || s.Step == StepTier3AdviceStyle:
		return m.answerTier3(s, ev)
	}
	return fmt.Errorf("%w: answer in %s", onboarding.ErrInvalidEvent, s.Step)
}

// currentFor returns the current flat-list question and checks that ev
// targets it.
func currentFor(s *Snapshot, questionID string) (question.Question, error) {
	q, ok := current(*s)
	if !ok {
		return question.Question{}, fmt.Errorf("%w: no current question", onboarding.ErrInvalidEvent)
	}
	if q.ID != questionID {
		return question.Question{}, fmt.Errorf("%w: answered %q, current is %q", onboarding.ErrQuestionMismatch, questionID, q.ID)
	}
	return q, nil
}

// Tier 1

func (m *Machine) answerTier1(ctx context.Context, s *Snapshot, ev Answer) error {
	q, err := currentFor(s, ev.QuestionID)
	if err != nil {
		return err
	}
	if err := ev.Answer.Validate(q); err != nil {
		return err
	}

	s.Tier1Responses[q.ID] = ev.Answer
	s.Responses[q.ID] = ev.Answer
	s.Error = nil
	s.QuestionIndex++
	if s.QuestionIndex < len(s.Questions) {
		return nil
	}
	return m.submitTier1(ctx, s)
}

func (m *Machine) submitTier1(ctx context.Context, s *Snapshot) error {
	scores := patterns.Detect(s.Tier1Responses)
	flagged := patterns.FlagResponses(s.Tier1Responses)

	res, err := m.cfg.Remote.SubmitTier1(ctx, api.Tier1Submission{
		UserID:           s.UserID,
		Responses:        s.Tier1Responses.Wire(),
		DetectedPatterns: scores,
		FlaggedResponses: flagged,
		CompletionTime:   int(m.cfg.Now().Sub(s.StartedAt).Seconds()),
	})
	if err == nil && (res == nil || !res.Success) {
		err = unsuccessful(resultError(res))
	}
	if err != nil {
		return m.fail(s, SubmitTier1, err)
	}
	m.succeeded(SubmitTier1)

	s.Scores = scores
	s.FlaggedResponses = flagged
	s.AdaptiveGuidance = res.AdaptiveGuidance
	return m.enterTier2(ctx, s)
}

func resultError(res *api.Tier1Result) string {
	if res == nil {
		return ""
	}
	return res.Error
}

// Tier 2

func (m *Machine) enterTier2(ctx context.Context, s *Snapshot) error {
	var age string
	if a, ok := s.Tier1Responses.Get(questionbank.AgeRangeID); ok {
		age = a.String()
	}
	domains, err := m.cfg.Questions.Tier2(ctx, questionbank.Request{
		UserID:     s.UserID,
		Scores:     s.Scores,
		AgeBracket: age,
		Guidance:   s.AdaptiveGuidance,
	})
	if err != nil {
		return m.fail(s, LoadTier2Questions, fmt.Errorf("failed to load tier 2 questions: %w", err))
	}

	s.Tier = 2
	s.Step = StepQuestions
	s.Questions = nil
	s.Domains = domains
	s.DomainTrail = nil
	s.DomainStates = map[string]domainflow.State{}
	s.DomainResponses = map[string]question.Responses{}
	s.GoldenKeys = []goldenkey.GoldenKey{}
	s.Error = nil
	return m.enterDomain(ctx, s, 0)
}

// enterDomain starts the domain at idx, skipping empty domains. Past the
// last domain tier 2 is submitted.
func (m *Machine) enterDomain(ctx context.Context, s *Snapshot, idx int) error {
	for idx < len(s.Domains) && len(s.Domains[idx].Questions) == 0 {
		idx++
	}
	if idx >= len(s.Domains) {
		s.DomainIndex = len(s.Domains)
		s.QuestionIndex = 0
		return m.submitTier2(ctx, s)
	}

	e, err := domainflow.New(s.Domains[idx])
	if err != nil {
		return err
	}
	s.DomainIndex = idx
	s.DomainTrail = append(s.DomainTrail, idx)
	s.DomainStates[s.Domains[idx].Name] = e.State()
	s.QuestionIndex = 0
	return nil
}

func (m *Machine) answerTier2(ctx context.Context, s *Snapshot, ev Answer) error {
	e, err := engineFor(*s)
	if err != nil {
		return err
	}
	d := e.Domain()

	out, err := e.Answer(ev.QuestionID, ev.Answer, m.cfg.Now())
	if err != nil {
		return err
	}
	if out.Fallback != nil {
		m.logger.Warn("jump directive not applied, advanced sequentially",
			zap.String("domain", d.Name),
			zap.String("question_id", ev.QuestionID),
			zap.Error(out.Fallback))
	}

	s.DomainStates[d.Name] = e.State()
	s.Responses[ev.QuestionID] = ev.Answer
	s.FollowUp = out.FollowUp
	s.Error = nil

	if out.Kind == domainflow.Advance {
		s.QuestionIndex = out.Index
		return nil
	}

	s.DomainResponses[d.Name] = out.Responses
	if out.GoldenKey != nil {
		s.GoldenKeys = append(s.GoldenKeys, *out.GoldenKey)
		m.cfg.Metrics.RecordGoldenKey()
		m.logger.Info("golden key detected",
			zap.String("domain", d.Name),
			zap.String("question_id", out.GoldenKey.QuestionID),
			zap.Int("word_count", out.GoldenKey.WordCount))
	}

	next := s.DomainIndex + 1
	switch out.Kind {
	case domainflow.SkipDomain:
		next = m.domainTarget(s, out.Target)
	case domainflow.SkipTier3:
		next = len(s.Domains)
	}
	m.logger.Debug("domain finished",
		zap.String("domain", d.Name),
		zap.Stringer("outcome", out.Kind))
	return m.enterDomain(ctx, s, next)
}

// domainTarget resolves a skip target to a later domain. Unknown or earlier
// targets continue with the next domain.
func (m *Machine) domainTarget(s *Snapshot, target string) int {
	for i := s.DomainIndex + 1; i < len(s.Domains); i++ {
		if strings.EqualFold(s.Domains[i].Name, target) {
			return i
		}
	}
	m.logger.Warn("skip target is not a later domain", zap.String("target", target))
	return s.DomainIndex + 1
}

func (m *Machine) submitTier2(ctx context.Context, s *Snapshot) error {
	responses := make(map[string]map[string]any, len(s.DomainResponses))
	for name, r := range s.DomainResponses {
		responses[name] = r.Wire()
	}
	keys := s.GoldenKeys
	if keys == nil {
		keys = []goldenkey.GoldenKey{}
	}

	res, err := m.cfg.Remote.SubmitTier2(ctx, api.Tier2Submission{
		UserID:          s.UserID,
		DomainResponses: responses,
		GoldenKeys:      keys,
	})
	if err == nil && (res == nil || !res.Success) {
		err = unsuccessful(errorOf(res))
	}
	if err != nil {
		return m.fail(s, SubmitTier2, err)
	}
	m.succeeded(SubmitTier2)
	return m.enterTier3(ctx, s)
}

func errorOf(res *api.Result) string {
	if res == nil {
		return ""
	}
	return res.Error
}

// reopenLastDomain resumes the last visited domain at the node it ended on.
// Its recorded responses and golden keys are dropped until it completes
// again.
func (m *Machine) reopenLastDomain(s *Snapshot) error {
	if len(s.DomainTrail) == 0 {
		return fmt.Errorf("%w: no domain to return to", onboarding.ErrInvalidEvent)
	}
	idx := s.DomainTrail[len(s.DomainTrail)-1]
	d := s.Domains[idx]

	e, err := domainflow.Restore(d, s.DomainStates[d.Name])
	if err != nil {
		if e, err = domainflow.New(d); err != nil {
			return err
		}
	}

	s.Tier = 2
	s.Step = StepQuestions
	s.Questions = nil
	s.DomainIndex = idx
	s.DomainStates[d.Name] = e.State()
	s.QuestionIndex = e.State().Index
	delete(s.DomainResponses, d.Name)
	s.GoldenKeys = slices.DeleteFunc(s.GoldenKeys, func(k goldenkey.GoldenKey) bool {
		return k.Domain == d.Name
	})
	s.FollowUp = ""
	s.Error = nil
	return nil
}

// Tier 3

func (m *Machine) enterTier3(ctx context.Context, s *Snapshot) error {
	qs, err := m.cfg.Questions.Tier3(ctx, s.UserID)
	if err != nil {
		return m.fail(s, LoadTier3Questions, fmt.Errorf("failed to load tier 3 questions: %w", err))
	}
	if len(qs) == 0 {
		return m.fail(s, LoadTier3Questions, fmt.Errorf("%w: no tier 3 questions", onboarding.ErrRemote))
	}

	s.Tier = 3
	s.Questions = qs
	s.QuestionIndex = 0
	s.FollowUp = ""
	s.Error = nil
	s.Step = tier3Step(*s)
	return nil
}

func tier3Step(s Snapshot) Step {
	if s.QuestionIndex < len(s.Questions) && s.Questions[s.QuestionIndex].ID == questionbank.AdviceStyleQuestionID {
		return StepTier3AdviceStyle
	}
	return StepTier3Priority
}

func (m *Machine) advanceTier3(s *Snapshot) {
	if s.QuestionIndex < len(s.Questions)-1 {
		s.QuestionIndex++
	}
	s.Step = tier3Step(*s)
	s.Error = nil
}

func (m *Machine) answerTier3(s *Snapshot, ev Answer) error {
	q, err := currentFor(s, ev.QuestionID)
	if err != nil {
		return err
	}
	if q.Type == question.TypePriorityConfirmation {
		if err := ev.Answer.Validate(q); err != nil {
			return err
		}
		return m.answerPriority(s, AnswerPriority{Confirmation: ev.Answer.Value})
	}
	if err := ev.Answer.Validate(q); err != nil {
		return err
	}

	s.Tier3Responses[q.ID] = ev.Answer
	s.Responses[q.ID] = ev.Answer
	m.advanceTier3(s)
	return nil
}

func (m *Machine) answerPriority(s *Snapshot, ev AnswerPriority) error {
	if s.Step != StepTier3Priority {
		return fmt.Errorf("%w: priority answer in %s", onboarding.ErrInvalidEvent, s.Step)
	}
	q, ok := current(*s)
	if !ok || q.Type != question.TypePriorityConfirmation {
		return fmt.Errorf("%w: current question is not the priority confirmation", onboarding.ErrInvalidEvent)
	}
	a := question.Priority(ev.Confirmation)
	if err := a.Validate(q); err != nil {
		return err
	}
	s.Tier3Responses[q.ID] = a
	s.Responses[q.ID] = a

	if ev.Confirmation == question.PriorityOverride {
		t := question.Text(ev.OverrideText)
		s.Tier3Responses[questionbank.OverrideTextID] = t
		s.Responses[questionbank.OverrideTextID] = t
	} else {
		delete(s.Tier3Responses, questionbank.OverrideTextID)
		delete(s.Responses, questionbank.OverrideTextID)
	}
	m.advanceTier3(s)
	return nil
}

// validateTier3 checks the priority and advice-style answers and returns the
// voice the advice style maps to.
func validateTier3(s *Snapshot) (voice.ID, error) {
	p, ok := s.Tier3Responses.Get(questionbank.PriorityQuestionID)
	if !ok {
		return "", fmt.Errorf("%w: confirm or override the priority", onboarding.ErrValidation)
	}
	switch p.Value {
	case question.PriorityConfirmed:
	case question.PriorityOverride:
		t, _ := s.Tier3Responses.Get(questionbank.OverrideTextID)
		if strings.TrimSpace(t.Text) == "" {
			return "", fmt.Errorf("%w: describe your priority in your own words", onboarding.ErrValidation)
		}
	default:
		return "", fmt.Errorf("%w: invalid priority confirmation %q", onboarding.ErrValidation, p.Value)
	}

	a, ok := s.Tier3Responses.Get(questionbank.AdviceStyleQuestionID)
	if !ok {
		return "", fmt.Errorf("%w: choose an advice style", onboarding.ErrValidation)
	}
	id, ok := questionbank.VoiceForAdviceStyle(a.String())
	if !ok {
		return "", fmt.Errorf("%w: unknown advice style %q", onboarding.ErrValidation, a.String())
	}
	return id, nil
}

func (m *Machine) submitTier3(ctx context.Context, s *Snapshot) error {
	if s.Step != StepTier3Priority && s.Step != StepTier3AdviceStyle {
		return fmt.Errorf("%w: tier 3 submission in %s", onboarding.ErrInvalidEvent, s.Step)
	}
	style, err := validateTier3(s)
	if err != nil {
		return err
	}

	res, err := m.cfg.Remote.SubmitTier3(ctx, api.Tier3Submission{
		UserID:    s.UserID,
		Responses: s.Tier3Responses.Wire(),
	})
	if err == nil && (res == nil || !res.Success) {
		err = unsuccessful(errorOf(res))
	}
	if err != nil {
		return m.fail(s, SubmitTier3Responses, err)
	}
	m.succeeded(SubmitTier3Responses)

	flow := voice.NewFlow(style)
	st := flow.State()
	s.AdviceStyle = style
	s.InitialVoice = style
	s.Voice = &st
	s.Step = StepVoiceSelection
	s.Error = nil
	return m.requestPreview(ctx, s)
}

// Back

func (m *Machine) back(_ context.Context, s *Snapshot) error {
	switch {
	case s.Step == StepQuestions && s.Tier == 1:
		if s.Pending == SubmitTier1 {
			s.Pending = SubmitNone
			s.Error = nil
			s.QuestionIndex = len(s.Questions) - 1
			return nil
		}
		if s.Pending != SubmitNone {
			return fmt.Errorf("%w: %s", onboarding.ErrSubmissionPending, s.Pending)
		}
		if s.QuestionIndex > 0 {
			s.QuestionIndex--
		}
		s.Error = nil
		return nil

	case s.Step == StepQuestions && s.Tier == 2:
		// Tier 2 accepted but tier 3 not loaded yet behaves like tier 3's
		// first question: the last domain reopens.
		if s.Pending == SubmitTier2 || s.Pending == LoadTier3Questions {
			s.Pending = SubmitNone
			return m.reopenLastDomain(s)
		}
		if s.Pending != SubmitNone {
			return fmt.Errorf("%w: %s", onboarding.ErrSubmissionPending, s.Pending)
		}
		return m.backInDomain(s)

	case s.Step == StepTier3Priority || s.Step == StepTier3AdviceStyle:
		switch s.Pending {
		case SubmitNone:
		case SubmitTier3Responses:
			s.Pending = SubmitNone
		default:
			return fmt.Errorf("%w: %s", onboarding.ErrSubmissionPending, s.Pending)
		}
		if s.QuestionIndex > 0 {
			s.QuestionIndex--
			s.Step = tier3Step(*s)
			s.Error = nil
			return nil
		}
		return m.reopenLastDomain(s)
	}
	return fmt.Errorf("%w: back in %s", onboarding.ErrInvalidEvent, s.Step)
}

func (m *Machine) backInDomain(s *Snapshot) error {
	e, err := engineFor(*s)
	if err != nil {
		return err
	}
	err = e.Back()
	if errors.Is(err, onboarding.ErrAtDomainStart) {
		if len(s.DomainTrail) <= 1 {
			// Tier 1 is already submitted.
			return nil
		}
		delete(s.DomainStates, e.Domain().Name)
		s.DomainTrail = s.DomainTrail[:len(s.DomainTrail)-1]
		return m.reopenLastDomain(s)
	}
	if err != nil {
		return err
	}

	st := e.State()
	s.DomainStates[e.Domain().Name] = st
	s.QuestionIndex = st.Index
	s.FollowUp = ""
	s.Error = nil
	return nil
}
