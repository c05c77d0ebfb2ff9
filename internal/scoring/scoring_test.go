package scoring

import (
	"testing"

	"github.com/assesshub/assesshub-backend/internal/model"
)

func TestIsCorrectSingle(t *testing.T) {
	correct := []string{"2"}

	cases := []struct {
		name     string
		selected []string
		want     bool
	}{
		{"exact match", []string{"2"}, true},
		{"wrong option", []string{"1"}, false},
		{"nothing selected", nil, false},
		{"empty selection", []string{}, false},
		{"correct among several", []string{"2", "3"}, false},
		{"all options", []string{"0", "1", "2", "3"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCorrect(model.QuestionTypeSingle, tc.selected, correct); got != tc.want {
				t.Errorf("IsCorrect(SINGLE, %v, %v) = %v, want %v", tc.selected, correct, got, tc.want)
			}
		})
	}
}

func TestIsCorrectMultiple(t *testing.T) {
	correct := []string{"0", "2"}

	cases := []struct {
		name     string
		selected []string
		want     bool
	}{
		{"exact set", []string{"0", "2"}, true},
		{"reversed order", []string{"2", "0"}, true},
		{"duplicates ignored", []string{"0", "2", "2"}, true},
		{"missing one", []string{"0"}, false},
		{"extra one", []string{"0", "2", "3"}, false},
		{"disjoint", []string{"1", "3"}, false},
		{"nothing selected", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCorrect(model.QuestionTypeMultiple, tc.selected, correct); got != tc.want {
				t.Errorf("IsCorrect(MULTIPLE, %v, %v) = %v, want %v", tc.selected, correct, got, tc.want)
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		name     string
		verdicts []Verdict
		want     float64
	}{
		{"no questions", nil, 0},
		{"all wrong", []Verdict{{1, false}, {2, false}}, 0},
		{"all correct", []Verdict{{1, true}, {2, true}, {2, true}}, 100},
		{"weight-1 of five", []Verdict{{1, true}, {2, false}, {2, false}}, 20},
		{"two thirds", []Verdict{{1, true}, {1, true}, {1, false}}, 66.67},
		{"one seventh", []Verdict{{1, true}, {6, false}}, 14.29},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Percentage(tc.verdicts); got != tc.want {
				t.Errorf("Percentage(%v) = %v, want %v", tc.verdicts, got, tc.want)
			}
		})
	}
}

func TestPercentageBounds(t *testing.T) {
	verdicts := []Verdict{{3, true}, {5, false}, {7, true}, {11, false}}
	got := Percentage(verdicts)
	if got < 0 || got > 100 {
		t.Fatalf("percentage out of range: %v", got)
	}
}
