// Package walkthrough renders an onboarding session as a line-oriented
// terminal dialogue and turns typed answers into machine events.
package walkthrough

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/machine"
	"github.com/creastat/onboarding/question"
	"github.com/creastat/onboarding/questionbank"
	"github.com/creastat/onboarding/voice"
)

// Commands accepted at any prompt.
const (
	CmdBack = ":back"
	CmdQuit = ":quit"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

var (
	errBack  = errors.New("back")
	errQuit  = errors.New("quit")
	errInput = errors.New("invalid input")
)

// Driver is the part of machine.Machine the walkthrough needs.
type Driver interface {
	Snapshot() machine.Snapshot
	Current() (question.Question, bool)
	Dispatch(ctx context.Context, ev machine.Event) (machine.Snapshot, error)
}

// Walker reads answers from in and writes prompts to out.
type Walker struct {
	d      Driver
	in     *bufio.Scanner
	out    io.Writer
	logger *zap.Logger

	header string
}

// New creates a Walker.
func New(d Driver, in io.Reader, out io.Writer, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{
		d:      d,
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logger,
	}
}

// Run walks the session until it is done, the user quits or input ends.
// Progress is persisted by the machine after every event, so quitting
// early is not an error.
func (w *Walker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := w.d.Snapshot()
		if s.Done() {
			w.println(bold("You're all set. Your first journal entry is waiting."))
			return nil
		}

		err := w.step(ctx, s)
		switch {
		case err == nil:
		case errors.Is(err, errBack):
			if err := w.dispatch(ctx, machine.Back{}); err != nil {
				return err
			}
		case errors.Is(err, errInput):
			w.println(red(err.Error()))
		case errors.Is(err, errQuit), errors.Is(err, io.EOF):
			w.println(gray("Progress saved. Run walk again to pick up where you left off."))
			return nil
		default:
			return err
		}
	}
}

func (w *Walker) step(ctx context.Context, s machine.Snapshot) error {
	if s.Pending != machine.SubmitNone {
		return w.pending(ctx, s)
	}

	switch s.Step {
	case machine.StepOpening:
		w.println(bold("Welcome. Let's set up your journal."))
		w.println(gray(fmt.Sprintf("Type %s to revisit a question or %s to stop.", CmdBack, CmdQuit)))
		if _, err := w.prompt("Press enter to begin"); err != nil {
			return err
		}
		return w.dispatch(ctx, machine.Start{})

	case machine.StepQuestions, machine.StepTier3Priority, machine.StepTier3AdviceStyle:
		return w.question(ctx, s)

	case machine.StepVoiceSelection:
		return w.voice(ctx, s)

	case machine.StepClosing:
		if s.Warning != "" {
			w.println(yellow(s.Warning))
		}
		if _, err := w.prompt("Press enter to finish"); err != nil {
			return err
		}
		return w.dispatch(ctx, machine.Finish{})
	}
	return fmt.Errorf("unexpected step %q", s.Step)
}

// dispatch sends ev. Rejections and validation errors are shown and the
// walk continues; remote failures surface through the pending prompt.
func (w *Walker) dispatch(ctx context.Context, ev machine.Event) error {
	_, err := w.d.Dispatch(ctx, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, onboarding.ErrRemote):
		w.logger.Debug("remote call failed", zap.String("event", ev.Name()), zap.Error(err))
		return nil
	case errors.Is(err, onboarding.ErrValidation),
		errors.Is(err, onboarding.ErrInvalidEvent),
		errors.Is(err, onboarding.ErrQuestionMismatch),
		errors.Is(err, onboarding.ErrSubmissionPending):
		w.println(red(err.Error()))
		return nil
	}
	return fmt.Errorf("failed to dispatch %s: %w", ev.Name(), err)
}

func (w *Walker) pending(ctx context.Context, s machine.Snapshot) error {
	msg := "Something went wrong while saving your answers."
	if s.Error != nil && s.Error.Message != "" {
		msg = s.Error.Message
	}
	w.println(red(msg))

	line, err := w.prompt("[r]etry or [b]ack")
	if err != nil {
		return err
	}
	switch strings.ToLower(line) {
	case "r", "retry", "":
		return w.dispatch(ctx, machine.Retry{})
	case "b", "back":
		return w.dispatch(ctx, machine.Back{})
	}
	return fmt.Errorf("%w: type r or b", errInput)
}

func (w *Walker) question(ctx context.Context, s machine.Snapshot) error {
	q, ok := w.d.Current()
	if !ok {
		return fmt.Errorf("no question to answer in step %q", s.Step)
	}
	w.renderHeader(s)
	if s.FollowUp != "" {
		w.println(cyan(s.FollowUp))
	}
	w.println("")
	w.println(bold(q.Question))

	if q.Type == question.TypePriorityConfirmation {
		return w.priority(ctx, q)
	}

	ans, err := w.readAnswer(q)
	if err != nil {
		return err
	}
	if err := w.dispatch(ctx, machine.Answer{QuestionID: q.ID, Answer: ans}); err != nil {
		return err
	}

	if q.ID == questionbank.AdviceStyleQuestionID {
		after := w.d.Snapshot()
		if _, answered := after.Tier3Responses.Get(q.ID); answered && after.Pending == machine.SubmitNone {
			return w.dispatch(ctx, machine.SubmitTier3{})
		}
	}
	return nil
}

func (w *Walker) renderHeader(s machine.Snapshot) {
	header := fmt.Sprintf("Part %d", s.Tier)
	if d, ok := s.CurrentDomain(); ok && s.Tier == 2 {
		title := d.Title
		if title == "" {
			title = d.Name
		}
		header += ": " + title
	}
	if header == w.header {
		return
	}
	w.header = header
	w.println("")
	w.println(cyan("[" + header + "]"))
}

func (w *Walker) priority(ctx context.Context, q question.Question) error {
	if q.Synthesis != nil && q.Synthesis.Statement != "" {
		w.println(cyan("  " + q.Synthesis.Statement))
	}
	opt, err := w.choose(q.Options)
	if err != nil {
		return err
	}
	ev := machine.AnswerPriority{Confirmation: opt.Value}
	if opt.Value == question.PriorityOverride {
		label := q.Placeholder
		if label == "" {
			label = "In your own words"
		}
		text, err := w.prompt(label)
		if err != nil {
			return err
		}
		ev.OverrideText = text
	}
	return w.dispatch(ctx, ev)
}

func (w *Walker) readAnswer(q question.Question) (question.Answer, error) {
	switch q.Type {
	case question.TypeSingleChoice:
		opt, err := w.choose(q.Options)
		if err != nil {
			return question.Answer{}, err
		}
		return question.Choice(opt.Value), nil

	case question.TypeChoiceWithFollowUp:
		opt, err := w.choose(q.Options)
		if err != nil {
			return question.Answer{}, err
		}
		label := q.FollowUpQuestion
		if label == "" {
			label = "Anything to add? (optional)"
		}
		text, err := w.prompt(label)
		if err != nil {
			return question.Answer{}, err
		}
		return question.ChoiceFollowUp(opt.Value, text), nil

	case question.TypeScale:
		n, err := w.scale(q)
		if err != nil {
			return question.Answer{}, err
		}
		return question.Scale(n), nil

	case question.TypeScaleWithNotes:
		n, err := w.scale(q)
		if err != nil {
			return question.Answer{}, err
		}
		notes, err := w.prompt("Notes (optional)")
		if err != nil {
			return question.Answer{}, err
		}
		return question.ScaleNotes(n, notes), nil

	case question.TypeTags:
		w.listOptions(q.Options)
		line, err := w.prompt("Pick any, separated by commas")
		if err != nil {
			return question.Answer{}, err
		}
		var tags []string
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			opt, ok := pick(q.Options, part)
			if !ok {
				return question.Answer{}, fmt.Errorf("%w: unknown tag %q", errInput, part)
			}
			tags = append(tags, opt.Value)
		}
		return question.Tags(tags...), nil
	}

	label := "Your answer"
	if q.Placeholder != "" {
		w.println(gray("  e.g. " + q.Placeholder))
	}
	text, err := w.prompt(label)
	if err != nil {
		return question.Answer{}, err
	}
	return question.Text(text), nil
}

func (w *Walker) scale(q question.Question) (int, error) {
	label := "Your rating"
	if q.Scale != nil {
		label = fmt.Sprintf("%d-%d", q.Scale.Min, q.Scale.Max)
		if q.Scale.MinLabel != "" || q.Scale.MaxLabel != "" {
			w.println(gray(fmt.Sprintf("  %d = %s, %d = %s", q.Scale.Min, q.Scale.MinLabel, q.Scale.Max, q.Scale.MaxLabel)))
		}
	}
	line, err := w.prompt(label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("%w: enter a number", errInput)
	}
	return n, nil
}

func (w *Walker) choose(opts []question.Option) (question.Option, error) {
	w.listOptions(opts)
	line, err := w.prompt(fmt.Sprintf("1-%d", len(opts)))
	if err != nil {
		return question.Option{}, err
	}
	opt, ok := pick(opts, line)
	if !ok {
		return question.Option{}, fmt.Errorf("%w: choose a number between 1 and %d", errInput, len(opts))
	}
	return opt, nil
}

func (w *Walker) listOptions(opts []question.Option) {
	for i, o := range opts {
		label := o.Label
		if label == "" {
			label = o.Value
		}
		w.println(fmt.Sprintf("  %d) %s", i+1, label))
	}
}

// pick resolves an option by its 1-based position or by value.
func pick(opts []question.Option, input string) (question.Option, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(opts) {
			return opts[n-1], true
		}
		return question.Option{}, false
	}
	for _, o := range opts {
		if strings.EqualFold(o.Value, input) {
			return o, true
		}
	}
	return question.Option{}, false
}

func (w *Walker) voice(ctx context.Context, s machine.Snapshot) error {
	if s.Voice == nil {
		return fmt.Errorf("voice selection without voice state")
	}
	flow, err := voice.Restore(*s.Voice)
	if err != nil {
		return fmt.Errorf("failed to restore voice flow: %w", err)
	}

	switch flow.Phase() {
	case voice.PhaseReviewing:
		id := flow.Current()
		w.println("")
		w.println(bold(fmt.Sprintf("Here is how %s would write to you:", id)))
		w.println(cyan("  " + s.Voice.Previews[id]))
		line, err := w.prompt("[a]ccept or [r]eject")
		if err != nil {
			return err
		}
		switch strings.ToLower(line) {
		case "a", "accept":
			return w.dispatch(ctx, machine.AcceptVoice{})
		case "r", "reject":
			return w.dispatch(ctx, machine.RejectVoice{})
		}
		return fmt.Errorf("%w: type a or r", errInput)

	case voice.PhaseChoosing:
		alts := flow.Alternatives()
		if flow.Forced() {
			w.println(bold("You've heard every voice. Pick the one that fits best:"))
		} else {
			w.println(bold("Which voice would you like to hear instead?"))
		}
		opts := make([]question.Option, 0, len(alts))
		for _, id := range alts {
			opts = append(opts, question.Option{Value: string(id), Label: string(id)})
		}
		opt, err := w.choose(opts)
		if err != nil {
			return err
		}
		return w.dispatch(ctx, machine.ChooseVoice{Voice: voice.ID(opt.Value)})
	}
	return fmt.Errorf("unexpected voice phase %q", flow.Phase())
}

func (w *Walker) prompt(label string) (string, error) {
	fmt.Fprintf(w.out, "%s ", gray(label+" >"))
	if !w.in.Scan() {
		if err := w.in.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		fmt.Fprintln(w.out)
		return "", io.EOF
	}
	line := strings.TrimSpace(w.in.Text())
	switch line {
	case CmdQuit:
		return "", errQuit
	case CmdBack:
		return "", errBack
	}
	return line, nil
}

func (w *Walker) println(s string) {
	fmt.Fprintln(w.out, s)
}
