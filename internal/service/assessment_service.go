package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/assesshub/assesshub-backend/internal/model"
	"github.com/assesshub/assesshub-backend/internal/scoring"
)

// AssessmentTestStore is the slice of test storage the state machine needs.
// *repository.TestRepository satisfies it.
type AssessmentTestStore interface {
	GetBySlug(ctx context.Context, slug string) (*model.Test, error)
	ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.TestQuestion, error)
}

// AssessmentStore is the assessment storage the state machine drives. All
// terminal transitions are conditional at the statement level; the store
// reports whether the caller won. *repository.AssessmentRepository satisfies
// it.
type AssessmentStore interface {
	Create(ctx context.Context, a *model.Assessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
	UpsertAnswer(ctx context.Context, assessmentID, questionID uuid.UUID, selected []string) (bool, error)
	CountAnswers(ctx context.Context, assessmentID uuid.UUID) (int, error)
	ListAnswers(ctx context.Context, assessmentID uuid.UUID) ([]model.AssessmentAnswer, error)
	Abandon(ctx context.Context, id uuid.UUID) (bool, error)
	Finalize(ctx context.Context, id uuid.UUID, verdicts map[uuid.UUID]bool, score float64) (time.Time, bool, error)
}

// CompletionNotifier publishes completion events for the live monitor feed.
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, testID uuid.UUID, event CompletionEvent)
}

// CompletionEvent is broadcast when an assessment reaches COMPLETED.
type CompletionEvent struct {
	AssessmentID    uuid.UUID `json:"assessment_id"`
	CandidateName   string    `json:"candidate_name"`
	ScorePercentage float64   `json:"score_percentage"`
	CompletedAt     time.Time `json:"completed_at"`
}

// AssessmentService is the assessment lifecycle state machine: it creates
// STARTED assessments, guards every mutation on liveness, and drives the one
// transactional scoring pass at submission.
type AssessmentService struct {
	tests    AssessmentTestStore
	store    AssessmentStore
	notifier CompletionNotifier
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewAssessmentService creates a new AssessmentService. notifier may be nil
// when no monitor feed is wired (tests, CLI tools).
func NewAssessmentService(
	tests AssessmentTestStore,
	store AssessmentStore,
	notifier CompletionNotifier,
	timeout time.Duration,
	log zerolog.Logger,
) *AssessmentService {
	return &AssessmentService{
		tests:    tests,
		store:    store,
		notifier: notifier,
		timeout:  timeout,
		now:      time.Now,
		log:      log.With().Str("component", "assessment_service").Logger(),
	}
}

// Start creates a STARTED assessment for the test behind slug and returns
// the candidate-safe question snapshot: answers stripped, 1-based display
// numbers, attach order preserved.
func (s *AssessmentService) Start(ctx context.Context, slug, candidateName string) (*model.StartAssessmentResult, error) {
	test, err := s.tests.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if test.Archived || !test.Enabled {
		return nil, ErrTestDisabled
	}

	questions, err := s.tests.ListQuestions(ctx, test.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	assessment := &model.Assessment{
		TestID:        test.ID,
		CandidateName: candidateName,
		Status:        model.AssessmentStatusStarted,
	}
	if err := s.store.Create(ctx, assessment); err != nil {
		return nil, fmt.Errorf("create assessment: %w", err)
	}

	return &model.StartAssessmentResult{
		AssessmentID: assessment.ID,
		Test: model.TestSummary{
			Title:         test.Title,
			Slug:          test.Slug,
			Description:   test.Description,
			QuestionCount: len(questions),
			PassThreshold: test.PassThreshold,
		},
		Questions: StripAnswers(questions),
		StartedAt: assessment.StartedAt,
	}, nil
}

// StripAnswers converts linked questions into their candidate-safe form:
// correct flags and explanations removed, display numbers assigned.
func StripAnswers(questions []model.TestQuestion) []model.CandidateQuestion {
	out := make([]model.CandidateQuestion, 0, len(questions))
	for i, q := range questions {
		opts := make(map[string]model.CandidateOption, len(q.Options))
		for key, o := range q.Options {
			opts[key] = model.CandidateOption{Text: o.Text}
		}
		out = append(out, model.CandidateQuestion{
			ID:           q.ID,
			Number:       i + 1,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Options:      opts,
			Weight:       q.Weight,
		})
	}
	return out
}

// RecordAnswer upserts the candidate's selection for one question and
// returns answer progress. The verdict stays unset until submission.
func (s *AssessmentService) RecordAnswer(ctx context.Context, assessmentID, questionID uuid.UUID, selected []string) (*model.AnswerProgress, error) {
	assessment, err := s.getLive(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	questions, err := s.tests.ListQuestions(ctx, assessment.TestID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	// Reject unknown questions and unknown option keys before any mutation.
	var target *model.TestQuestion
	for i := range questions {
		if questions[i].ID == questionID {
			target = &questions[i]
			break
		}
	}
	if target == nil {
		return nil, ErrQuestionNotInTest
	}
	for _, key := range selected {
		if !target.Options.HasKey(key) {
			return nil, ErrUnknownOptionKey
		}
	}

	// The store rejects the write when the assessment left STARTED between
	// the liveness check above and this statement.
	won, err := s.store.UpsertAnswer(ctx, assessmentID, questionID, selected)
	if err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}
	if !won {
		return nil, s.terminalError(ctx, assessmentID)
	}

	answered, err := s.store.CountAnswers(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}

	return &model.AnswerProgress{
		AnsweredCount: answered,
		TotalCount:    len(questions),
	}, nil
}

// Submit scores the assessment against every question currently linked to
// its test (unanswered questions count as wrong) and transitions it to
// COMPLETED. The verdict updates and the status flip are one atomic unit; if
// another submit or the expiry sweep wins the race, the caller observes the
// terminal-state rejection instead.
func (s *AssessmentService) Submit(ctx context.Context, assessmentID uuid.UUID) (*model.SubmitResult, error) {
	assessment, err := s.getLive(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	questions, err := s.tests.ListQuestions(ctx, assessment.TestID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	answers, err := s.store.ListAnswers(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	selections := make(map[uuid.UUID][]string, len(answers))
	for _, a := range answers {
		selections[a.QuestionID] = a.SelectedOptionIDs
	}

	verdicts := make(map[uuid.UUID]bool, len(questions))
	weighted := make([]scoring.Verdict, 0, len(questions))
	for _, q := range questions {
		correct := scoring.IsCorrect(q.QuestionType, selections[q.ID], q.Options.CorrectKeys())
		verdicts[q.ID] = correct
		weighted = append(weighted, scoring.Verdict{Weight: q.Weight, Correct: correct})
	}
	score := scoring.Percentage(weighted)

	completedAt, won, err := s.store.Finalize(ctx, assessmentID, verdicts, score)
	if err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	if !won {
		// Exactly-once: someone else performed the terminal transition
		// between our liveness check and the conditional update.
		return nil, s.terminalError(ctx, assessmentID)
	}

	if s.notifier != nil {
		s.notifier.NotifyCompletion(ctx, assessment.TestID, CompletionEvent{
			AssessmentID:    assessmentID,
			CandidateName:   assessment.CandidateName,
			ScorePercentage: score,
			CompletedAt:     completedAt,
		})
	}

	return &model.SubmitResult{
		ScorePercentage: score,
		TotalQuestions:  len(questions),
		CompletedAt:     completedAt,
	}, nil
}

// Verify is the read-only liveness probe clients call before rendering the
// assessment UI. Read-only for the caller, but it still performs the expiry
// transition when it finds a stale STARTED row.
func (s *AssessmentService) Verify(ctx context.Context, assessmentID uuid.UUID) (*model.VerifyResult, error) {
	if _, err := s.getLive(ctx, assessmentID); err != nil {
		return nil, err
	}
	return &model.VerifyResult{Valid: true, Status: model.AssessmentStatusStarted}, nil
}

// getLive loads an assessment and enforces liveness: STARTED and inside the
// timeout window. Expiry is recomputed from started_at on every call rather
// than read from any cached flag, which keeps the check idempotent under
// races with the background sweep. An expired row is abandoned on the spot.
func (s *AssessmentService) getLive(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	assessment, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}

	switch assessment.Status {
	case model.AssessmentStatusCompleted:
		return nil, ErrAlreadyCompleted
	case model.AssessmentStatusAbandoned:
		return nil, ErrAbandoned
	}

	if s.now().Sub(assessment.StartedAt) > s.timeout {
		// Touching an expired session is itself an expiry trigger. The sweep
		// may have beaten us to the transition; either way the row converges
		// on ABANDONED and the candidate sees Expired.
		won, err := s.store.Abandon(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("abandon expired: %w", err)
		}
		if !won {
			s.log.Debug().Stringer("assessment_id", id).
				Msg("expiry transition already applied elsewhere")
		}
		return nil, ErrExpired
	}

	return assessment, nil
}

// terminalError re-reads a lost-race assessment and reports which terminal
// state won.
func (s *AssessmentService) terminalError(ctx context.Context, id uuid.UUID) error {
	assessment, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("re-read after lost transition: %w", err)
	}
	if assessment.Status == model.AssessmentStatusCompleted {
		return ErrAlreadyCompleted
	}
	return ErrAbandoned
}
