package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assesshub/assesshub-backend/internal/model"
	"github.com/assesshub/assesshub-backend/internal/visibility"
)

// TestRepository handles test and test-question link data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, author_id, title, slug, description, visibility, enabled, pass_threshold, archived, created_at, updated_at`

func scanTest(row interface{ Scan(dest ...any) error }, t *model.Test) error {
	return row.Scan(&t.ID, &t.AuthorID, &t.Title, &t.Slug, &t.Description,
		&t.Visibility, &t.Enabled, &t.PassThreshold, &t.Archived, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID retrieves a test by its UUID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id)
	if err := scanTest(row, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetBySlug retrieves a test by its public slug.
func (r *TestRepository) GetBySlug(ctx context.Context, slug string) (*model.Test, error) {
	t := &model.Test{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE slug = $1`, slug)
	if err := scanTest(row, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListByAuthor retrieves an author's tests with pagination.
func (r *TestRepository) ListByAuthor(ctx context.Context, authorID, limit, offset int) ([]model.Test, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tests WHERE author_id = $1`, authorID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+`
		 FROM tests WHERE author_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, authorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := scanTest(rows, &t); err != nil {
			return nil, 0, err
		}
		tests = append(tests, t)
	}
	return tests, total, rows.Err()
}

// ListEnabled returns all enabled, non-archived tests. Used for cache
// prewarming on application startup.
func (r *TestRepository) ListEnabled(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+`
		 FROM tests WHERE enabled = TRUE AND archived = FALSE
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := scanTest(rows, &t); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// Create inserts a new test.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (author_id, title, slug, description, visibility, pass_threshold)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, enabled, archived, created_at, updated_at`,
		t.AuthorID, t.Title, t.Slug, t.Description, t.Visibility, t.PassThreshold,
	).Scan(&t.ID, &t.Enabled, &t.Archived, &t.CreatedAt, &t.UpdatedAt)
}

// Update rewrites a test's editable fields.
func (r *TestRepository) Update(ctx context.Context, t *model.Test) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests
		 SET title = $1, description = $2, pass_threshold = $3, updated_at = NOW()
		 WHERE id = $4`,
		t.Title, t.Description, t.PassThreshold, t.ID)
	return err
}

// UpdateVisibility changes a test's visibility. The service validates
// compatibility with linked questions first; there is no live constraint.
func (r *TestRepository) UpdateVisibility(ctx context.Context, id uuid.UUID, vis visibility.Visibility) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET visibility = $1, updated_at = NOW() WHERE id = $2`,
		vis, id)
	return err
}

// SetEnabled toggles whether candidates can start the test.
func (r *TestRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET enabled = $1, updated_at = NOW() WHERE id = $2`,
		enabled, id)
	return err
}

// SetArchived flips the archival flag.
func (r *TestRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET archived = $1, updated_at = NOW() WHERE id = $2`,
		archived, id)
	return err
}

// ─── Test-question links ────────────────────────────────────────────────────

// ListQuestions returns the questions linked to a test with their weights,
// in attach order.
func (r *TestRepository) ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.TestQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.author_id, q.question_text, q.question_type, q.options,
		        q.visibility, q.archived, q.created_at, q.updated_at, tq.weight
		 FROM test_questions tq
		 JOIN questions q ON q.id = tq.question_id
		 WHERE tq.test_id = $1
		 ORDER BY tq.id`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.TestQuestion
	for rows.Next() {
		var tq model.TestQuestion
		if err := rows.Scan(&tq.ID, &tq.AuthorID, &tq.QuestionText, &tq.QuestionType,
			&tq.Options, &tq.Visibility, &tq.Archived, &tq.CreatedAt, &tq.UpdatedAt,
			&tq.Weight); err != nil {
			return nil, err
		}
		questions = append(questions, tq)
	}
	return questions, rows.Err()
}

// ListLinkedQuestions returns summaries of a test's linked questions for
// visibility blocker reporting.
func (r *TestRepository) ListLinkedQuestions(ctx context.Context, testID uuid.UUID) ([]model.LinkedQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.question_text, q.visibility
		 FROM test_questions tq
		 JOIN questions q ON q.id = tq.question_id
		 WHERE tq.test_id = $1
		 ORDER BY tq.id`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.LinkedQuestion
	for rows.Next() {
		var q model.LinkedQuestion
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.Visibility); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// AttachQuestion links a question to a test with a weight. Re-attaching an
// already linked question updates its weight.
func (r *TestRepository) AttachQuestion(ctx context.Context, testID, questionID uuid.UUID, weight int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO test_questions (test_id, question_id, weight)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (test_id, question_id) DO UPDATE SET weight = EXCLUDED.weight`,
		testID, questionID, weight)
	return err
}

// DetachQuestion removes the link between a test and a question.
// Returns true if a link existed.
func (r *TestRepository) DetachQuestion(ctx context.Context, testID, questionID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM test_questions WHERE test_id = $1 AND question_id = $2`,
		testID, questionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
