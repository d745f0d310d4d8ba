package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \t\n ", 0},
		{"single", "journal", 1},
		{"runs of whitespace", "I  have\tnever \n\n told anyone", 5},
		{"leading and trailing", "  one two  ", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountWords(tt.text))
		})
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory()
	assert.Equal(t, 1, h.Depth())
	assert.Equal(t, 0, h.Current())

	h = h.Push(3).Push(5)
	assert.Equal(t, 5, h.Current())

	h, idx, ok := h.Pop()
	assert.True(t, ok)
	assert.Equal(t, 3, idx)

	h, idx, ok = h.Pop()
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	_, idx, ok = h.Pop()
	assert.False(t, ok, "entry node must never be popped")
	assert.Equal(t, 0, idx)
}

func TestHistoryCloneIsIndependent(t *testing.T) {
	h := NewHistory().Push(2)
	c := h.Clone()
	c[1] = 9
	assert.Equal(t, 2, h.Current())
}
