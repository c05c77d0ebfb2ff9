// Package scoring holds the pure correctness and aggregation functions used
// when an assessment is submitted. Nothing here touches storage; the state
// machine feeds it the recorded selections and the weighted question set.
package scoring

import (
	"math"

	"github.com/assesshub/assesshub-backend/internal/model"
)

// IsCorrect evaluates a single question verdict.
//
// SINGLE: exactly one option selected and it is the correct one. Selecting
// zero or several options is always wrong, even when the correct option is
// among them.
//
// MULTIPLE: the selected set equals the correct set. Order and duplicates
// are irrelevant; missing or extra selections both make it wrong.
func IsCorrect(questionType model.QuestionType, selected, correct []string) bool {
	switch questionType {
	case model.QuestionTypeSingle:
		if len(selected) != 1 {
			return false
		}
		for _, c := range correct {
			if selected[0] == c {
				return true
			}
		}
		return false
	case model.QuestionTypeMultiple:
		return equalSets(selected, correct)
	}
	return false
}

// Verdict pairs a question's weight with its correctness outcome.
type Verdict struct {
	Weight  int
	Correct bool
}

// Percentage computes the weighted score over all verdicts, rounded to two
// decimals. A zero total weight yields 0, never NaN.
func Percentage(verdicts []Verdict) float64 {
	total := 0
	earned := 0
	for _, v := range verdicts {
		total += v.Weight
		if v.Correct {
			earned += v.Weight
		}
	}
	if total == 0 {
		return 0
	}
	return round2(float64(earned) / float64(total) * 100)
}

// round2 keeps persisted scores stable and comparable across re-reads.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func equalSets(a, b []string) bool {
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	want := make(map[string]struct{}, len(b))
	for _, s := range b {
		want[s] = struct{}{}
	}
	if len(seen) != len(want) {
		return false
	}
	for s := range want {
		if _, ok := seen[s]; !ok {
			return false
		}
	}
	return true
}
