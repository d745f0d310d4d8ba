package onboarding

import "strings"

// CountWords counts the words of a free-text answer.
// Words are separated by runs of Unicode whitespace, so leading, trailing and
// repeated spaces, tabs and newlines never produce empty words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
