package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assesshub/assesshub-backend/internal/model"
	"github.com/assesshub/assesshub-backend/internal/visibility"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, author_id, question_text, question_type, options, visibility, archived, created_at, updated_at`

func scanQuestion(row interface{ Scan(dest ...any) error }, q *model.Question) error {
	return row.Scan(&q.ID, &q.AuthorID, &q.QuestionText, &q.QuestionType,
		&q.Options, &q.Visibility, &q.Archived, &q.CreatedAt, &q.UpdatedAt)
}

// GetByID retrieves a question by its UUID.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	if err := scanQuestion(row, q); err != nil {
		return nil, err
	}
	return q, nil
}

// ListByAuthor retrieves an author's questions with pagination. Archived
// questions are included so authors can restore or inspect them.
func (r *QuestionRepository) ListByAuthor(ctx context.Context, authorID, limit, offset int) ([]model.Question, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE author_id = $1`, authorID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions WHERE author_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, authorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	return questions, total, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (author_id, question_text, question_type, options, visibility)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		q.AuthorID, q.QuestionText, q.QuestionType, q.Options, q.Visibility,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update rewrites a question's text, type and options.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET question_text = $1, question_type = $2, options = $3, updated_at = NOW()
		 WHERE id = $4`,
		q.QuestionText, q.QuestionType, q.Options, q.ID)
	return err
}

// UpdateVisibility changes a question's visibility. Compatibility with
// linking tests is validated by the service before this is called; the
// column itself carries no constraint.
func (r *QuestionRepository) UpdateVisibility(ctx context.Context, id uuid.UUID, vis visibility.Visibility) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions SET visibility = $1, updated_at = NOW() WHERE id = $2`,
		vis, id)
	return err
}

// SetArchived flips the archival flag.
func (r *QuestionRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions SET archived = $1, updated_at = NOW() WHERE id = $2`,
		archived, id)
	return err
}

// Delete removes a question permanently. Only called for unreferenced
// questions; referenced ones are archived instead.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// CountLinks returns how many tests currently link this question.
func (r *QuestionRepository) CountLinks(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM test_questions WHERE question_id = $1`, id,
	).Scan(&n)
	return n, err
}

// ListLinkingTests returns the tests that link the given question, as
// summaries for visibility blocker reporting.
func (r *QuestionRepository) ListLinkingTests(ctx context.Context, questionID uuid.UUID) ([]model.LinkedTest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.title, t.slug, t.visibility
		 FROM test_questions tq
		 JOIN tests t ON t.id = tq.test_id
		 WHERE tq.question_id = $1
		 ORDER BY t.title`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.LinkedTest
	for rows.Next() {
		var t model.LinkedTest
		if err := rows.Scan(&t.ID, &t.Title, &t.Slug, &t.Visibility); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}
