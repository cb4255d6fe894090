// Package gate validates visitor answers against the configured gate
// questions. All configured questions must be answered correctly before the
// survey unlocks.
package gate

import (
	"strings"

	"github.com/AlexTLDR/potluck/internal/database"
)

// Evaluate compares answers to the expected ones position by position,
// case-insensitively after trimming. Every slot up to questionCount must
// match; a missing answer or a blank expected answer fails the whole check.
func Evaluate(answers []string, questions []database.GateQuestion, questionCount int) bool {
	if questionCount <= 0 || len(questions) < questionCount {
		return false
	}

	for i := 0; i < questionCount; i++ {
		expected := normalize(questions[i].Answer)
		if expected == "" {
			return false
		}

		if i >= len(answers) || normalize(answers[i]) != expected {
			return false
		}
	}

	return true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
