// Package domainflow navigates the question graph of a single tier-2 domain.
//
// An Engine walks one domain from its entry node until the domain completes,
// a golden-key node finalizes it or a directive hands control back to the
// caller with a cross-domain skip. Back navigation replays the visited
// indices exactly, since jumps are not linear.
package domainflow

import (
	"fmt"
	"strings"
	"time"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/goldenkey"
	"github.com/creastat/onboarding/question"
)

// OutcomeKind classifies the result of answering a node.
type OutcomeKind int

const (
	// Advance moves to another node of the same domain.
	Advance OutcomeKind = iota
	// Complete means the domain is finished.
	Complete
	// SkipDomain leaves the domain for Outcome.Target.
	SkipDomain
	// SkipTier3 leaves tier 2 altogether.
	SkipTier3
)

func (k OutcomeKind) String() string {
	switch k {
	case Advance:
		return "advance"
	case Complete:
		return "complete"
	case SkipDomain:
		return "skip_domain"
	case SkipTier3:
		return "skip_tier3"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome reports what happened after an answer.
type Outcome struct {
	Kind OutcomeKind
	// Index is the new current node for Advance.
	Index int
	// Target is the destination domain for SkipDomain.
	Target string
	// Responses holds the domain's answers once the engine is finished.
	Responses question.Responses
	// GoldenKey is set when a golden-key node produced a qualifying answer.
	GoldenKey *goldenkey.GoldenKey
	// FollowUp is the follow-up prompt triggered by a free-text answer.
	FollowUp string
	// Fallback is set when a directive could not be applied and the engine
	// advanced sequentially instead.
	Fallback error
}

// Finished reports whether the outcome ends the engine's domain.
func (o Outcome) Finished() bool {
	return o.Kind != Advance
}

// State is the persistable position of an engine.
type State struct {
	Index     int                `json:"index"`
	Responses question.Responses `json:"responses"`
	History   onboarding.History `json:"history"`
}

// Engine navigates one domain. It is not safe for concurrent use.
type Engine struct {
	domain   question.Domain
	state    State
	finished bool
}

// New returns an engine positioned on the domain's entry node.
func New(domain question.Domain) (*Engine, error) {
	if len(domain.Questions) == 0 {
		return nil, fmt.Errorf("%w: domain %q has no questions", onboarding.ErrValidation, domain.Name)
	}
	return &Engine{
		domain: domain,
		state: State{
			Index:     0,
			Responses: question.Responses{},
			History:   onboarding.NewHistory(),
		},
	}, nil
}

// Restore rebuilds an engine from a persisted state.
func Restore(domain question.Domain, s State) (*Engine, error) {
	e, err := New(domain)
	if err != nil {
		return nil, err
	}
	if len(s.History) == 0 || s.History[0] != 0 {
		return nil, fmt.Errorf("%w: history must start at the entry node", onboarding.ErrValidation)
	}
	for _, idx := range s.History {
		if idx < 0 || idx >= len(domain.Questions) {
			return nil, fmt.Errorf("%w: history index %d out of range", onboarding.ErrValidation, idx)
		}
	}
	if s.History.Current() != s.Index {
		return nil, fmt.Errorf("%w: index %d does not match history", onboarding.ErrValidation, s.Index)
	}

	e.state = State{
		Index:     s.Index,
		Responses: s.Responses.Clone(),
		History:   s.History.Clone(),
	}
	if e.state.Responses == nil {
		e.state.Responses = question.Responses{}
	}
	return e, nil
}

// Domain returns the domain being navigated.
func (e *Engine) Domain() question.Domain {
	return e.domain
}

// State returns a copy of the engine state.
func (e *Engine) State() State {
	return State{
		Index:     e.state.Index,
		Responses: e.state.Responses.Clone(),
		History:   e.state.History.Clone(),
	}
}

// Responses returns a copy of the answers recorded so far.
func (e *Engine) Responses() question.Responses {
	return e.state.Responses.Clone()
}

// Finished reports whether the engine produced a terminal outcome.
func (e *Engine) Finished() bool {
	return e.finished
}

// Current returns the current node with dynamic text resolved.
func (e *Engine) Current() (question.Question, bool) {
	if e.finished {
		return question.Question{}, false
	}
	return e.resolve(e.domain.Questions[e.state.Index]), true
}

// Answer records a for the current node and moves through the graph.
func (e *Engine) Answer(questionID string, a question.Answer, at time.Time) (Outcome, error) {
	if e.finished {
		return Outcome{}, fmt.Errorf("%w: domain %q is finished", onboarding.ErrInvalidEvent, e.domain.Name)
	}
	q := e.domain.Questions[e.state.Index]
	if questionID != q.ID {
		return Outcome{}, fmt.Errorf("%w: answered %q, current is %q", onboarding.ErrQuestionMismatch, questionID, q.ID)
	}
	if err := a.Validate(q); err != nil {
		return Outcome{}, err
	}

	e.state.Responses[q.ID] = a

	var followUp string
	if q.FollowUpTrigger != "" && goldenkey.ShouldTriggerFollowUp(a.FreeText(), q.FollowUpTrigger) {
		followUp = q.FollowUpQuestion
	}

	if q.GoldenKey {
		out := e.finish(Complete, "")
		if gk, ok := goldenkey.New(e.domain.Name, q.ID, a.FreeText(), at); ok {
			out.GoldenKey = &gk
		}
		out.FollowUp = followUp
		return out, nil
	}

	var out Outcome
	switch directive, ok, err := e.directiveFor(q, a); {
	case err != nil:
		out = e.advanceFrom(e.state.Index + 1)
		out.Fallback = err
	case ok:
		out = e.apply(directive)
	default:
		out = e.advanceFrom(e.state.Index + 1)
	}
	out.FollowUp = followUp
	return out, nil
}

// directiveFor returns the jump directive triggered by a, if any.
func (e *Engine) directiveFor(q question.Question, a question.Answer) (string, bool, error) {
	if len(q.Logic) > 0 {
		if v, ok := a.Scalar(); ok {
			return question.MatchBucket(q.Logic, v)
		}
	}
	if a.Type == question.TypeSingleChoice || a.Type == question.TypeChoiceWithFollowUp {
		if o, ok := q.Option(a.Value); ok && o.Next != "" {
			return o.Next, true, nil
		}
	}
	return "", false, nil
}

func (e *Engine) apply(raw string) Outcome {
	d, err := question.ParseDirective(raw)
	if err != nil {
		out := e.advanceFrom(e.state.Index + 1)
		out.Fallback = err
		return out
	}

	switch d.Kind {
	case question.DirectiveSkipDomain:
		return e.finish(SkipDomain, d.Target)
	case question.DirectiveSkipTier3:
		return e.finish(SkipTier3, "")
	}

	if d.Target == "" {
		return e.advanceFrom(e.state.Index + 1)
	}
	idx, ok := e.resolveTarget(d.Target)
	if !ok {
		out := e.advanceFrom(e.state.Index + 1)
		out.Fallback = fmt.Errorf("%w: no question matches %q", onboarding.ErrUnknownDirective, d.Target)
		return out
	}
	return e.advanceFrom(idx)
}

// resolveTarget finds a node by exact id, then by id suffix, then by
// substring. The current node never matches.
func (e *Engine) resolveTarget(target string) (int, bool) {
	qs := e.domain.Questions
	if idx := e.domain.IndexOf(target); idx >= 0 && idx != e.state.Index {
		return idx, true
	}
	for i, q := range qs {
		if i != e.state.Index && strings.HasSuffix(q.ID, target) {
			return i, true
		}
	}
	for i, q := range qs {
		if i != e.state.Index && strings.Contains(q.ID, target) {
			return i, true
		}
	}
	return 0, false
}

// advanceFrom moves to the first node at or after idx whose condition holds,
// or completes the domain.
func (e *Engine) advanceFrom(idx int) Outcome {
	qs := e.domain.Questions
	for idx < len(qs) && !question.EvalCondition(qs[idx].Condition, e.state.Responses) {
		idx++
	}
	if idx >= len(qs) {
		return e.finish(Complete, "")
	}
	e.state.History = e.state.History.Push(idx)
	e.state.Index = idx
	return Outcome{Kind: Advance, Index: idx}
}

func (e *Engine) finish(kind OutcomeKind, target string) Outcome {
	e.finished = true
	return Outcome{
		Kind:      kind,
		Target:    target,
		Responses: e.state.Responses.Clone(),
	}
}

// Back returns to the previously visited node. At the entry node it returns
// onboarding.ErrAtDomainStart so the caller can leave the domain.
func (e *Engine) Back() error {
	if e.finished {
		return fmt.Errorf("%w: domain %q is finished", onboarding.ErrInvalidEvent, e.domain.Name)
	}
	h, idx, ok := e.state.History.Pop()
	if !ok {
		return onboarding.ErrAtDomainStart
	}
	e.state.History = h
	e.state.Index = idx
	return nil
}

// resolve applies dynamic wording to q. A "<prefix>_c_<name>" node reads the
// answer of its "<prefix>_b_*" sibling as key into question_map and
// placeholder_map.
func (e *Engine) resolve(q question.Question) question.Question {
	if len(q.QuestionMap) == 0 && len(q.PlaceholderMap) == 0 {
		return q
	}
	key, ok := e.siblingAnswer(q.ID)
	if !ok {
		return q
	}
	if text, ok := q.QuestionMap[key]; ok && text != "" {
		q.Question = text
	}
	if text, ok := q.PlaceholderMap[key]; ok && text != "" {
		q.Placeholder = text
	}
	return q
}

func (e *Engine) siblingAnswer(id string) (string, bool) {
	i := strings.Index(id, "_c_")
	if i < 0 {
		return "", false
	}
	prefix := id[:i] + "_b_"
	for _, q := range e.domain.Questions {
		if !strings.HasPrefix(q.ID, prefix) {
			continue
		}
		if a, ok := e.state.Responses.Get(q.ID); ok {
			return a.String(), true
		}
	}
	return "", false
}
