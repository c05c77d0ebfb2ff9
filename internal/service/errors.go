package service

import (
	"errors"
	"fmt"

	"github.com/assesshub/assesshub-backend/internal/model"
	"github.com/assesshub/assesshub-backend/internal/visibility"
)

// Domain errors surfaced by services. Handlers map these to HTTP statuses and
// response codes; anything else propagates as an opaque internal error.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrTestDisabled       = errors.New("test is not accepting assessments")
	ErrAlreadyCompleted   = errors.New("assessment already completed")
	ErrAbandoned          = errors.New("assessment abandoned")
	ErrExpired            = errors.New("assessment expired")
	ErrQuestionNotInTest  = errors.New("question is not part of this test")
	ErrUnknownOptionKey   = errors.New("selection references an unknown option")
	ErrQuestionArchived   = errors.New("archived question cannot be attached")
	ErrSlugTaken          = errors.New("slug already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// IncompatibleVisibilityError rejects a visibility change (or an attach)
// and names the entities blocking it, so callers can explain why.
type IncompatibleVisibilityError struct {
	// Requested is the visibility that was asked for.
	Requested visibility.Visibility `json:"requested"`
	// BlockingQuestions is populated when a test change is rejected.
	BlockingQuestions []model.LinkedQuestion `json:"blocking_questions,omitempty"`
	// BlockingTests is populated when a question change is rejected.
	BlockingTests []model.LinkedTest `json:"blocking_tests,omitempty"`
}

func (e *IncompatibleVisibilityError) Error() string {
	return fmt.Sprintf("visibility %q is incompatible with %d linked entities",
		e.Requested, len(e.BlockingQuestions)+len(e.BlockingTests))
}
