package model

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/assesshub/assesshub-backend/internal/visibility"
)

// QuestionType distinguishes single-answer from multi-answer questions.
type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "SINGLE"
	QuestionTypeMultiple QuestionType = "MULTIPLE"
)

// Option is one answer choice of a question. Options are keyed by a stable
// string identifier ("0", "1", ...) rather than by position, so reordering
// never changes correctness semantics.
type Option struct {
	Text        string  `json:"text"`
	IsCorrect   bool    `json:"is_correct"`
	Explanation *string `json:"explanation,omitempty"`
}

// OptionMap maps option keys to options. Stored as jsonb.
type OptionMap map[string]Option

// CorrectKeys returns the keys of all options marked correct.
func (m OptionMap) CorrectKeys() []string {
	var keys []string
	for k, o := range m {
		if o.IsCorrect {
			keys = append(keys, k)
		}
	}
	return keys
}

// HasKey reports whether the given option key exists.
func (m OptionMap) HasKey(key string) bool {
	_, ok := m[key]
	return ok
}

// Question represents an author-owned multiple-choice question.
type Question struct {
	ID           uuid.UUID             `json:"id"`
	AuthorID     int                   `json:"author_id"`
	QuestionText string                `json:"question_text"`
	QuestionType QuestionType          `json:"question_type"`
	Options      OptionMap             `json:"options"`
	Visibility   visibility.Visibility `json:"visibility"`
	Archived     bool                  `json:"archived"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// Validation errors for question payloads.
var (
	ErrNoOptions            = errors.New("question must have at least two options")
	ErrSingleNeedsOneAnswer = errors.New("a SINGLE question must have exactly one correct option")
	ErrMultipleNeedsAnswer  = errors.New("a MULTIPLE question must have at least one correct option")
)

// ValidateOptions enforces the correctness-key invariant: a SINGLE question
// has exactly one correct option, a MULTIPLE question at least one.
func (q *Question) ValidateOptions() error {
	if len(q.Options) < 2 {
		return ErrNoOptions
	}
	correct := len(q.Options.CorrectKeys())
	switch q.QuestionType {
	case QuestionTypeSingle:
		if correct != 1 {
			return ErrSingleNeedsOneAnswer
		}
	case QuestionTypeMultiple:
		if correct < 1 {
			return ErrMultipleNeedsAnswer
		}
	}
	return nil
}

// CreateQuestionRequest is the payload for creating a question.
type CreateQuestionRequest struct {
	QuestionText string    `json:"question_text" binding:"required,min=1,max=2000"`
	QuestionType string    `json:"question_type" binding:"required,oneof=SINGLE MULTIPLE"`
	Options      OptionMap `json:"options" binding:"required"`
	Visibility   string    `json:"visibility" binding:"required,oneof=public private protected"`
}

// UpdateQuestionRequest is the payload for editing a question. Visibility is
// changed through its own endpoint because it needs a compatibility check.
type UpdateQuestionRequest struct {
	QuestionText string    `json:"question_text" binding:"omitempty,min=1,max=2000"`
	QuestionType string    `json:"question_type" binding:"omitempty,oneof=SINGLE MULTIPLE"`
	Options      OptionMap `json:"options" binding:"omitempty"`
}

// ChangeVisibilityRequest is the payload for changing the visibility of a
// question or a test.
type ChangeVisibilityRequest struct {
	Visibility string `json:"visibility" binding:"required,oneof=public private protected"`
}
