// Package question describes onboarding questions, the answers they accept and
// the small expression languages used by the tier-2 domain graph.
package question

import "sort"

// Type identifies how a question is rendered and which answer shape it accepts.
type Type string

const (
	TypeSingleChoice         Type = "single_choice"
	TypeScale                Type = "scale"
	TypeTextInput            Type = "text_input"
	TypeScaleWithNotes       Type = "scale_with_notes"
	TypeChoiceWithFollowUp   Type = "choice_with_follow_up"
	TypeTags                 Type = "tags"
	TypePriorityConfirmation Type = "priority_confirmation"
)

// Valid reports whether t is a known question type.
func (t Type) Valid() bool {
	switch t {
	case TypeSingleChoice, TypeScale, TypeTextInput, TypeScaleWithNotes,
		TypeChoiceWithFollowUp, TypeTags, TypePriorityConfirmation:
		return true
	}
	return false
}

// Option is one selectable value of a choice or tags question.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	// Next is an optional jump directive applied when this option is chosen.
	Next string `json:"next,omitempty"`
}

// ScaleRange bounds a scale question.
type ScaleRange struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	MinLabel string `json:"min_label,omitempty"`
	MaxLabel string `json:"max_label,omitempty"`
}

// Contains reports whether v lies within the range, bounds included.
func (r ScaleRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Synthesis is the externally computed priority statement shown in tier 3.
type Synthesis struct {
	Statement  string  `json:"statement"`
	Confidence float64 `json:"confidence"`
}

// Question is the descriptor of a single question of any tier.
// Tier-2 graph fields (Condition, Logic, QuestionMap, ...) are empty for the
// flat tier-1 and tier-3 lists.
type Question struct {
	ID          string      `json:"id"`
	Type        Type        `json:"type"`
	Question    string      `json:"question"`
	Placeholder string      `json:"placeholder,omitempty"`
	Options     []Option    `json:"options,omitempty"`
	Scale       *ScaleRange `json:"scale,omitempty"`
	Required    bool        `json:"required,omitempty"`
	MinWords    int         `json:"min_words,omitempty"`

	GoldenKey       bool              `json:"golden_key,omitempty"`
	Condition       string            `json:"condition,omitempty"`
	Logic           map[string]string `json:"logic,omitempty"`
	DynamicQuestion bool              `json:"dynamic_question,omitempty"`
	QuestionMap     map[string]string `json:"question_map,omitempty"`
	PlaceholderMap  map[string]string `json:"placeholder_map,omitempty"`

	FollowUpTrigger  string `json:"follow_up_trigger,omitempty"`
	FollowUpQuestion string `json:"follow_up_question,omitempty"`

	Synthesis *Synthesis `json:"synthesis,omitempty"`
}

// Option returns the option with the given value.
func (q Question) Option(value string) (Option, bool) {
	for _, o := range q.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// Domain is one themed cluster of tier-2 questions with its own internal graph.
type Domain struct {
	Name      string     `json:"name"`
	Title     string     `json:"title"`
	Order     int        `json:"order"`
	Questions []Question `json:"questions"`
}

// IndexOf returns the position of the node with the given id, or -1.
func (d Domain) IndexOf(id string) int {
	for i, q := range d.Questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// DomainMap converts an ordered domain list into the keyed wire form.
func DomainMap(domains []Domain) map[string]Domain {
	out := make(map[string]Domain, len(domains))
	for i, d := range domains {
		d.Order = i
		out[d.Name] = d
	}
	return out
}

// OrderedDomains converts the keyed wire form back into a list sorted by
// Order, then by name for equal orders.
func OrderedDomains(m map[string]Domain) []Domain {
	out := make([]Domain, 0, len(m))
	for name, d := range m {
		if d.Name == "" {
			d.Name = name
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}
