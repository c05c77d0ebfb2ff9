// Package visibility defines the three-level visibility order shared by
// questions and tests, and the compatibility rule that gates which questions
// may be attached to which tests.
package visibility

// Visibility is the access level of a question or a test.
type Visibility string

const (
	Public    Visibility = "public"
	Private   Visibility = "private"
	Protected Visibility = "protected"
)

// Valid reports whether v is one of the three known levels.
func (v Visibility) Valid() bool {
	switch v {
	case Public, Private, Protected:
		return true
	}
	return false
}

// Level maps a visibility to its position in the order
// public(0) < private(1) < protected(2). Unknown values map to -1 so they
// never pass a compatibility check.
func Level(v Visibility) int {
	switch v {
	case Public:
		return 0
	case Private:
		return 1
	case Protected:
		return 2
	}
	return -1
}

// CanAttach reports whether a question with the given visibility may belong
// to a test with the given visibility. The test must be at least as
// restrictive as every question it contains: a protected question never
// appears in a public test, while a public question is usable anywhere.
func CanAttach(question, test Visibility) bool {
	if !question.Valid() || !test.Valid() {
		return false
	}
	return Level(test) >= Level(question)
}
