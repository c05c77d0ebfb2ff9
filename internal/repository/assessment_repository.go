package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assesshub/assesshub-backend/internal/model"
)

// AssessmentRepository handles assessment and answer data access. Every
// STARTED → terminal transition is a single conditional UPDATE guarded on
// status = 'STARTED', so racing callers resolve to exactly one winner at the
// database rather than by read-then-write.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

const assessmentColumns = `id, test_id, candidate_name, status, started_at, completed_at, score_percentage`

func scanAssessment(row interface{ Scan(dest ...any) error }, a *model.Assessment) error {
	return row.Scan(&a.ID, &a.TestID, &a.CandidateName, &a.Status,
		&a.StartedAt, &a.CompletedAt, &a.ScorePercentage)
}

// Create inserts a new STARTED assessment.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessments (test_id, candidate_name, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, started_at`,
		a.TestID, a.CandidateName, model.AssessmentStatusStarted,
	).Scan(&a.ID, &a.StartedAt)
}

// GetByID retrieves an assessment by its UUID.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	a := &model.Assessment{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id)
	if err := scanAssessment(row, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpsertAnswer records the candidate's latest selection for one question.
// At most one answer row exists per (assessment, question); re-submitting
// overwrites the selection and refreshes the timestamp. is_correct is reset
// to NULL — verdicts only exist after final submission. The write is guarded
// on the parent still being STARTED in the same statement: answers of a
// terminal assessment are immutable even when the sweep flips the row
// between the caller's liveness check and this write. Returns false when the
// guard matched no row.
func (r *AssessmentRepository) UpsertAnswer(ctx context.Context, assessmentID, questionID uuid.UUID, selected []string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO assessment_answers (assessment_id, question_id, selected_option_ids)
		 SELECT $1, $2, $3
		 FROM assessments
		 WHERE id = $1 AND status = $4
		 ON CONFLICT (assessment_id, question_id)
		 DO UPDATE SET selected_option_ids = EXCLUDED.selected_option_ids,
		               is_correct = NULL,
		               answered_at = NOW()`,
		assessmentID, questionID, selected, model.AssessmentStatusStarted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountAnswers returns how many questions have a recorded answer.
func (r *AssessmentRepository) CountAnswers(ctx context.Context, assessmentID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessment_answers WHERE assessment_id = $1`,
		assessmentID,
	).Scan(&n)
	return n, err
}

// ListAnswers returns all recorded answers for an assessment.
func (r *AssessmentRepository) ListAnswers(ctx context.Context, assessmentID uuid.UUID) ([]model.AssessmentAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, assessment_id, question_id, selected_option_ids, is_correct, answered_at
		 FROM assessment_answers
		 WHERE assessment_id = $1`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.AssessmentAnswer
	for rows.Next() {
		var a model.AssessmentAnswer
		if err := rows.Scan(&a.ID, &a.AssessmentID, &a.QuestionID,
			&a.SelectedOptionIDs, &a.IsCorrect, &a.AnsweredAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// Abandon transitions one STARTED assessment to ABANDONED. Returns false if
// the assessment was already terminal (or missing) — the loser of a race
// observes that instead of double-mutating.
func (r *AssessmentRepository) Abandon(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE assessments
		 SET status = $1, completed_at = NOW()
		 WHERE id = $2 AND status = $3`,
		model.AssessmentStatusAbandoned, id, model.AssessmentStatusStarted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AbandonExpired bulk-transitions every STARTED assessment older than the
// cutoff to ABANDONED. Idempotent: a second back-to-back run matches zero
// rows.
func (r *AssessmentRepository) AbandonExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE assessments
		 SET status = $1, completed_at = NOW()
		 WHERE status = $2 AND started_at < $3`,
		model.AssessmentStatusAbandoned, model.AssessmentStatusStarted, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Finalize persists per-answer verdicts and transitions the assessment to
// COMPLETED in one transaction. Partial scoring is never observable: either
// every verdict lands together with the status flip, or nothing does. The
// status flip itself is conditional, so the losing side of a submit/expire
// race gets won=false and no mutation.
func (r *AssessmentRepository) Finalize(ctx context.Context, id uuid.UUID, verdicts map[uuid.UUID]bool, score float64) (completedAt time.Time, won bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	defer tx.Rollback(ctx)

	for questionID, correct := range verdicts {
		if _, err := tx.Exec(ctx,
			`UPDATE assessment_answers SET is_correct = $1
			 WHERE assessment_id = $2 AND question_id = $3`,
			correct, id, questionID); err != nil {
			return time.Time{}, false, err
		}
	}

	err = tx.QueryRow(ctx,
		`UPDATE assessments
		 SET status = $1, score_percentage = $2, completed_at = NOW()
		 WHERE id = $3 AND status = $4
		 RETURNING completed_at`,
		model.AssessmentStatusCompleted, score, id, model.AssessmentStatusStarted,
	).Scan(&completedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race to another submit or to the expiry sweep. The
		// rollback discards the verdict updates too — answers of a terminal
		// assessment are immutable.
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, false, err
	}
	return completedAt, true, nil
}

// ListByTest retrieves assessments for a test, newest first, with pagination.
func (r *AssessmentRepository) ListByTest(ctx context.Context, testID uuid.UUID, limit, offset int) ([]model.Assessment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessments WHERE test_id = $1`, testID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+assessmentColumns+`
		 FROM assessments WHERE test_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2 OFFSET $3`, testID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var assessments []model.Assessment
	for rows.Next() {
		var a model.Assessment
		if err := scanAssessment(rows, &a); err != nil {
			return nil, 0, err
		}
		assessments = append(assessments, a)
	}
	return assessments, total, rows.Err()
}
