package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

var finishedWords = []string{"finished", "completed", "done"}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// IsFinishedState reports whether a manufacturing state or component status
// marks the order as complete. Matching ignores case and surrounding spaces.
func IsFinishedState(state string) bool {
	s := fold(state)
	for _, w := range finishedWords {
		if s == w {
			return true
		}
	}
	return false
}

// SameState compares two free-text states ignoring case.
func SameState(a, b string) bool {
	return fold(a) == fold(b)
}
