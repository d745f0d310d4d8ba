package onboarding

// History is the ordered list of node indices visited inside one tier-2 domain.
// A fresh history always starts at the domain entry node, index 0.
type History []int

// NewHistory returns a history positioned on the domain entry node.
func NewHistory() History {
	return History{0}
}

// Push records a newly visited index and returns the updated history.
func (h History) Push(index int) History {
	return append(h, index)
}

// Current returns the index on top of the history, or 0 for an empty history.
func (h History) Current() int {
	if len(h) == 0 {
		return 0
	}
	return h[len(h)-1]
}

// Depth returns the number of visited entries.
func (h History) Depth() int {
	return len(h)
}

// Pop removes the top entry and returns the updated history together with the
// index that becomes current. It refuses to pop the entry node: ok is false
// when the history is already at domain-entry depth.
func (h History) Pop() (History, int, bool) {
	if len(h) <= 1 {
		return h, h.Current(), false
	}
	h = h[:len(h)-1]
	return h, h.Current(), true
}

// Clone returns an independent copy of the history.
func (h History) Clone() History {
	out := make(History, len(h))
	copy(out, h)
	return out
}
