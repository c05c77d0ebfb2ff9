package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/assesshub/assesshub-backend/internal/visibility"
)

// Test represents a shareable collection of weighted questions. Candidates
// reach it through its slug; authors manage it by id.
type Test struct {
	ID            uuid.UUID             `json:"id"`
	AuthorID      int                   `json:"author_id"`
	Title         string                `json:"title"`
	Slug          string                `json:"slug"`
	Description   string                `json:"description"`
	Visibility    visibility.Visibility `json:"visibility"`
	Enabled       bool                  `json:"enabled"`
	PassThreshold int                   `json:"pass_threshold"`
	Archived      bool                  `json:"archived"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// TestQuestion is the weighted link between a test and a question, joined
// with the question itself. Ordering follows attach order.
type TestQuestion struct {
	Question
	Weight int `json:"weight"`
}

// LinkedQuestion is the summary of a linked question used when reporting
// visibility-change blockers.
type LinkedQuestion struct {
	ID           uuid.UUID             `json:"id"`
	QuestionText string                `json:"question_text"`
	Visibility   visibility.Visibility `json:"visibility"`
}

// LinkedTest is the summary of a test linking a question, symmetric to
// LinkedQuestion.
type LinkedTest struct {
	ID         uuid.UUID             `json:"id"`
	Title      string                `json:"title"`
	Slug       string                `json:"slug"`
	Visibility visibility.Visibility `json:"visibility"`
}

// CreateTestRequest is the payload for creating a test.
type CreateTestRequest struct {
	Title         string `json:"title" binding:"required,min=3,max=255"`
	Slug          string `json:"slug" binding:"required,min=3,max=64,lowercase"`
	Description   string `json:"description" binding:"omitempty,max=2000"`
	Visibility    string `json:"visibility" binding:"required,oneof=public private protected"`
	PassThreshold int    `json:"pass_threshold" binding:"min=0,max=100"`
}

// UpdateTestRequest is the payload for editing a test. Visibility and the
// enabled flag have their own endpoints.
type UpdateTestRequest struct {
	Title         string `json:"title" binding:"omitempty,min=3,max=255"`
	Description   string `json:"description" binding:"omitempty,max=2000"`
	PassThreshold *int   `json:"pass_threshold" binding:"omitempty,min=0,max=100"`
}

// SetEnabledRequest toggles whether candidates can start the test.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// AttachQuestionRequest links one question to a test.
type AttachQuestionRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Weight     int       `json:"weight" binding:"required,min=1"`
}

// BulkAttachRequest links several questions at once.
type BulkAttachRequest struct {
	Questions []AttachQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
