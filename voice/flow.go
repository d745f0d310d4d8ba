// Package voice resolves which advice voice a user journals with.
//
// The flow is a small trial-and-reject loop over a fixed set of voices.
// Preview text is produced elsewhere; the flow only records what was shown
// and decides what may be shown next.
package voice

import (
	"errors"
	"fmt"
	"slices"
)

// ID identifies a voice persona.
type ID string

const (
	Tony   ID = "tony"
	Clara  ID = "clara"
	Marcus ID = "marcus"
)

// All lists every voice in presentation order.
var All = []ID{Tony, Clara, Marcus}

// Valid reports whether id is a known voice.
func (id ID) Valid() bool {
	return slices.Contains(All, id)
}

// Phase is the position of the flow.
type Phase string

const (
	// PhaseAwaitingPreview means Pending names a voice whose preview must be generated.
	PhaseAwaitingPreview Phase = "awaiting_preview"
	// PhaseReviewing means a preview is shown and the user may accept or reject it.
	PhaseReviewing Phase = "reviewing"
	// PhaseChoosing means the user picks one of Alternatives.
	PhaseChoosing Phase = "choosing"
	// PhaseConfirmed is terminal.
	PhaseConfirmed Phase = "confirmed"
)

var (
	ErrInvalidVoice = errors.New("unknown voice")
	ErrWrongPhase   = errors.New("action not allowed in this phase")
	ErrNotOffered   = errors.New("voice is not among the offered alternatives")
)

// State is the serializable form of a Flow.
type State struct {
	Phase     Phase         `json:"phase"`
	Current   ID            `json:"current,omitempty"`
	Tried     []ID          `json:"tried"`
	Previews  map[ID]string `json:"previews"`
	Confirmed ID            `json:"confirmed,omitempty"`
}

// Selection is the result of an accepted voice.
type Selection struct {
	Voice       ID            `json:"voice"`
	PreviewText string        `json:"preview_text"`
	Previews    map[ID]string `json:"previews"`
}

// Flow is the voice trial loop.
type Flow struct {
	state State
}

// NewFlow starts a flow. With a valid initial voice its preview is requested
// first; otherwise the user chooses among all voices.
func NewFlow(initial ID) *Flow {
	f := &Flow{state: State{Previews: map[ID]string{}}}
	if initial.Valid() {
		f.state.Phase = PhaseAwaitingPreview
		f.state.Current = initial
	} else {
		f.state.Phase = PhaseChoosing
	}
	return f
}

// Restore rebuilds a flow from persisted state.
func Restore(s State) (*Flow, error) {
	switch s.Phase {
	case PhaseAwaitingPreview, PhaseReviewing, PhaseChoosing, PhaseConfirmed:
	default:
		return nil, fmt.Errorf("invalid voice phase %q", s.Phase)
	}
	for _, id := range s.Tried {
		if !id.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVoice, id)
		}
	}
	f := &Flow{state: cloneState(s)}
	if f.state.Previews == nil {
		f.state.Previews = map[ID]string{}
	}
	return f, nil
}

// State returns a copy of the flow state.
func (f *Flow) State() State {
	return cloneState(f.state)
}

// Phase returns the current phase.
func (f *Flow) Phase() Phase {
	return f.state.Phase
}

// Current returns the voice being previewed or awaiting a preview.
func (f *Flow) Current() ID {
	return f.state.Current
}

// Pending returns the voice whose preview must be generated next.
func (f *Flow) Pending() (ID, bool) {
	if f.state.Phase != PhaseAwaitingPreview {
		return "", false
	}
	return f.state.Current, true
}

// ShowPreview records the generated preview for the pending voice and marks
// it tried.
func (f *Flow) ShowPreview(id ID, text string) error {
	if f.state.Phase != PhaseAwaitingPreview {
		return fmt.Errorf("%w: show preview in %s", ErrWrongPhase, f.state.Phase)
	}
	if id != f.state.Current {
		return fmt.Errorf("%w: preview for %q while %q is pending", ErrNotOffered, id, f.state.Current)
	}
	f.state.Previews[id] = text
	if !slices.Contains(f.state.Tried, id) {
		f.state.Tried = append(f.state.Tried, id)
	}
	f.state.Phase = PhaseReviewing
	return nil
}

// Reject declines the previewed voice and moves to the alternatives.
func (f *Flow) Reject() error {
	if f.state.Phase != PhaseReviewing {
		return fmt.Errorf("%w: reject in %s", ErrWrongPhase, f.state.Phase)
	}
	f.state.Phase = PhaseChoosing
	f.state.Current = ""
	return nil
}

// Alternatives returns the voices not tried yet, in presentation order. Once
// every voice was tried it returns all voices again: the final, forced choice.
func (f *Flow) Alternatives() []ID {
	var out []ID
	for _, id := range All {
		if !slices.Contains(f.state.Tried, id) {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return slices.Clone(All)
	}
	return out
}

// Forced reports whether every voice has been tried and rejected, so the next
// choice ends the flow.
func (f *Flow) Forced() bool {
	return len(f.state.Tried) >= len(All)
}

// Choose picks one of the alternatives. During the forced final choice the
// pick is accepted immediately; otherwise its preview becomes pending.
// confirmed reports which of the two happened.
func (f *Flow) Choose(id ID) (confirmed bool, err error) {
	if f.state.Phase != PhaseChoosing {
		return false, fmt.Errorf("%w: choose in %s", ErrWrongPhase, f.state.Phase)
	}
	if !id.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidVoice, id)
	}
	if !slices.Contains(f.Alternatives(), id) {
		return false, fmt.Errorf("%w: %q", ErrNotOffered, id)
	}
	f.state.Current = id
	if f.Forced() {
		f.state.Phase = PhaseConfirmed
		f.state.Confirmed = id
		return true, nil
	}
	f.state.Phase = PhaseAwaitingPreview
	return false, nil
}

// Accept confirms the previewed voice.
func (f *Flow) Accept() (Selection, error) {
	if f.state.Phase != PhaseReviewing {
		return Selection{}, fmt.Errorf("%w: accept in %s", ErrWrongPhase, f.state.Phase)
	}
	f.state.Phase = PhaseConfirmed
	f.state.Confirmed = f.state.Current
	return f.Selection()
}

// Selection returns the confirmed selection.
func (f *Flow) Selection() (Selection, error) {
	if f.state.Phase != PhaseConfirmed {
		return Selection{}, fmt.Errorf("%w: no voice confirmed", ErrWrongPhase)
	}
	previews := make(map[ID]string, len(f.state.Previews))
	for k, v := range f.state.Previews {
		previews[k] = v
	}
	return Selection{
		Voice:       f.state.Confirmed,
		PreviewText: f.state.Previews[f.state.Confirmed],
		Previews:    previews,
	}, nil
}

func cloneState(s State) State {
	out := s
	out.Tried = slices.Clone(s.Tried)
	if s.Previews != nil {
		out.Previews = make(map[ID]string, len(s.Previews))
		for k, v := range s.Previews {
			out.Previews[k] = v
		}
	}
	return out
}
