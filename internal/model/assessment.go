package model

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentStatus enumerates assessment lifecycle states. STARTED is the
// only non-terminal state; COMPLETED and ABANDONED are both terminal.
type AssessmentStatus string

const (
	AssessmentStatusStarted   AssessmentStatus = "STARTED"
	AssessmentStatusCompleted AssessmentStatus = "COMPLETED"
	AssessmentStatusAbandoned AssessmentStatus = "ABANDONED"
)

// Terminal reports whether the status allows no further transitions.
func (s AssessmentStatus) Terminal() bool {
	return s == AssessmentStatusCompleted || s == AssessmentStatusAbandoned
}

// Assessment is one candidate's attempt at a test.
type Assessment struct {
	ID              uuid.UUID        `json:"id"`
	TestID          uuid.UUID        `json:"test_id"`
	CandidateName   string           `json:"candidate_name"`
	Status          AssessmentStatus `json:"status"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	ScorePercentage *float64         `json:"score_percentage,omitempty"`
}

// AssessmentAnswer holds a candidate's latest selection for one question.
// IsCorrect stays nil until final submission so partial state never implies
// a verdict.
type AssessmentAnswer struct {
	ID                int64      `json:"id"`
	AssessmentID      uuid.UUID  `json:"assessment_id"`
	QuestionID        uuid.UUID  `json:"question_id"`
	SelectedOptionIDs []string   `json:"selected_option_ids"`
	IsCorrect         *bool      `json:"is_correct,omitempty"`
	AnsweredAt        time.Time  `json:"answered_at"`
}

// CandidateOption is an option with the answer key stripped.
type CandidateOption struct {
	Text string `json:"text"`
}

// CandidateQuestion is a snapshot question as shown to a candidate: no
// correct flags, no explanations, with a 1-based display number.
type CandidateQuestion struct {
	ID           uuid.UUID                  `json:"id"`
	Number       int                        `json:"number"`
	QuestionText string                     `json:"question_text"`
	QuestionType QuestionType               `json:"question_type"`
	Options      map[string]CandidateOption `json:"options"`
	Weight       int                        `json:"weight"`
}

// TestSummary is the candidate-facing view of a test.
type TestSummary struct {
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Description   string `json:"description"`
	QuestionCount int    `json:"question_count"`
	PassThreshold int    `json:"pass_threshold"`
}

// StartAssessmentRequest is the payload for starting an assessment.
type StartAssessmentRequest struct {
	CandidateName string `json:"candidate_name" binding:"required,min=1,max=120"`
}

// StartAssessmentResult is returned when a candidate starts a test.
type StartAssessmentResult struct {
	AssessmentID uuid.UUID           `json:"assessment_id"`
	Test         TestSummary         `json:"test"`
	Questions    []CandidateQuestion `json:"questions"`
	StartedAt    time.Time           `json:"started_at"`
}

// RecordAnswerRequest is the payload for recording one answer.
type RecordAnswerRequest struct {
	QuestionID        uuid.UUID `json:"question_id" binding:"required"`
	SelectedOptionIDs []string  `json:"selected_option_ids" binding:"required"`
}

// AnswerProgress reports how many questions have been answered so far.
type AnswerProgress struct {
	AnsweredCount int `json:"answered_count"`
	TotalCount    int `json:"total_count"`
}

// SubmitResult is returned once an assessment is scored and completed.
type SubmitResult struct {
	ScorePercentage float64   `json:"score_percentage"`
	TotalQuestions  int       `json:"total_questions"`
	CompletedAt     time.Time `json:"completed_at"`
}

// VerifyResult is the read-only liveness probe result.
type VerifyResult struct {
	Valid  bool             `json:"valid"`
	Status AssessmentStatus `json:"status"`
}
