package model

import (
	"errors"
	"testing"
)

func TestValidateOptions(t *testing.T) {
	cases := []struct {
		name    string
		qtype   QuestionType
		options OptionMap
		want    error
	}{
		{
			"single with one correct",
			QuestionTypeSingle,
			OptionMap{"a": {Text: "x", IsCorrect: true}, "b": {Text: "y"}},
			nil,
		},
		{
			"single with no correct",
			QuestionTypeSingle,
			OptionMap{"a": {Text: "x"}, "b": {Text: "y"}},
			ErrSingleNeedsOneAnswer,
		},
		{
			"single with two correct",
			QuestionTypeSingle,
			OptionMap{"a": {Text: "x", IsCorrect: true}, "b": {Text: "y", IsCorrect: true}},
			ErrSingleNeedsOneAnswer,
		},
		{
			"multiple with several correct",
			QuestionTypeMultiple,
			OptionMap{"a": {Text: "x", IsCorrect: true}, "b": {Text: "y", IsCorrect: true}},
			nil,
		},
		{
			"multiple with no correct",
			QuestionTypeMultiple,
			OptionMap{"a": {Text: "x"}, "b": {Text: "y"}},
			ErrMultipleNeedsAnswer,
		},
		{
			"too few options",
			QuestionTypeSingle,
			OptionMap{"a": {Text: "x", IsCorrect: true}},
			ErrNoOptions,
		},
		{
			"no options at all",
			QuestionTypeMultiple,
			OptionMap{},
			ErrNoOptions,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := Question{QuestionType: tc.qtype, Options: tc.options}
			if err := q.ValidateOptions(); !errors.Is(err, tc.want) {
				t.Errorf("ValidateOptions() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestOptionMapCorrectKeys(t *testing.T) {
	m := OptionMap{
		"a": {Text: "x", IsCorrect: true},
		"b": {Text: "y"},
		"c": {Text: "z", IsCorrect: true},
	}
	keys := m.CorrectKeys()
	if len(keys) != 2 {
		t.Fatalf("got %d correct keys, want 2", len(keys))
	}
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	if !seen["a"] || !seen["c"] {
		t.Errorf("correct keys = %v, want a and c", keys)
	}

	if m.HasKey("z") {
		t.Error("HasKey(z) = true for missing key")
	}
	if !m.HasKey("b") {
		t.Error("HasKey(b) = false for present key")
	}
}
