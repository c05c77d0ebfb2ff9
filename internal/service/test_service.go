package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/assesshub/assesshub-backend/internal/config"
	"github.com/assesshub/assesshub-backend/internal/model"
	"github.com/assesshub/assesshub-backend/internal/repository"
	"github.com/assesshub/assesshub-backend/internal/response"
	"github.com/assesshub/assesshub-backend/internal/visibility"
)

// payloadTTL bounds staleness if an invalidation is ever missed; the cache
// self-heals from Postgres on miss.
const payloadTTL = 12 * time.Hour

// TestService handles test business logic: CRUD, question attachment under
// the visibility compatibility rule, and the public payload cache.
type TestService struct {
	testRepo       *repository.TestRepository
	questionRepo   *repository.QuestionRepository
	assessmentRepo *repository.AssessmentRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	assessmentRepo *repository.AssessmentRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *TestService {
	return &TestService{
		testRepo:       testRepo,
		questionRepo:   questionRepo,
		assessmentRepo: assessmentRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "test_service").Logger(),
	}
}

// PublicTestPayload is the candidate-facing view served before starting:
// test summary plus questions with answers stripped.
type PublicTestPayload struct {
	Test      model.TestSummary         `json:"test"`
	Questions []model.CandidateQuestion `json:"questions"`
}

// List retrieves an author's tests with pagination.
func (s *TestService) List(ctx context.Context, authorID, page, perPage int) ([]model.Test, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	tests, total, err := s.testRepo.ListByAuthor(ctx, authorID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if tests == nil {
		tests = []model.Test{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return tests, pagination, nil
}

// Get retrieves one of the author's tests.
func (s *TestService) Get(ctx context.Context, id uuid.UUID, authorID int) (*model.Test, error) {
	return s.getOwned(ctx, id, authorID)
}

// Create inserts a new test. Slug collisions surface as ErrSlugTaken.
func (s *TestService) Create(ctx context.Context, t *model.Test) error {
	if err := s.testRepo.Create(ctx, t); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSlugTaken
		}
		return fmt.Errorf("create test: %w", err)
	}
	return nil
}

// Update rewrites a test's editable fields.
func (s *TestService) Update(ctx context.Context, id uuid.UUID, authorID int, req *model.UpdateTestRequest) (*model.Test, error) {
	t, err := s.getOwned(ctx, id, authorID)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		t.Title = req.Title
	}
	if req.Description != "" {
		t.Description = req.Description
	}
	if req.PassThreshold != nil {
		t.PassThreshold = *req.PassThreshold
	}

	if err := s.testRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update test: %w", err)
	}
	s.invalidatePayload(ctx, t.Slug)
	return t, nil
}

// SetEnabled toggles candidate access to the test.
func (s *TestService) SetEnabled(ctx context.Context, id uuid.UUID, authorID int, enabled bool) (*model.Test, error) {
	t, err := s.getOwned(ctx, id, authorID)
	if err != nil {
		return nil, err
	}
	if err := s.testRepo.SetEnabled(ctx, id, enabled); err != nil {
		return nil, fmt.Errorf("set enabled: %w", err)
	}
	t.Enabled = enabled
	s.invalidatePayload(ctx, t.Slug)
	return t, nil
}

// Archive soft-deletes a test. Past assessments keep their scores.
func (s *TestService) Archive(ctx context.Context, id uuid.UUID, authorID int) error {
	t, err := s.getOwned(ctx, id, authorID)
	if err != nil {
		return err
	}
	if err := s.testRepo.SetArchived(ctx, id, true); err != nil {
		return fmt.Errorf("archive test: %w", err)
	}
	s.invalidatePayload(ctx, t.Slug)
	return nil
}

// ChangeVisibility moves a test to a new visibility level. Widening is
// rejected, with the blocking questions listed, when any linked question
// would become incompatible; narrowing never blocks.
func (s *TestService) ChangeVisibility(ctx context.Context, id uuid.UUID, authorID int, newVis visibility.Visibility) (*model.Test, error) {
	t, err := s.getOwned(ctx, id, authorID)
	if err != nil {
		return nil, err
	}
	if t.Visibility == newVis {
		return t, nil
	}

	linked, err := s.testRepo.ListLinkedQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list linked questions: %w", err)
	}

	var blockers []model.LinkedQuestion
	for _, q := range linked {
		if !visibility.CanAttach(q.Visibility, newVis) {
			blockers = append(blockers, q)
		}
	}
	if len(blockers) > 0 {
		return nil, &IncompatibleVisibilityError{Requested: newVis, BlockingQuestions: blockers}
	}

	if err := s.testRepo.UpdateVisibility(ctx, id, newVis); err != nil {
		return nil, fmt.Errorf("update visibility: %w", err)
	}
	t.Visibility = newVis
	return t, nil
}

// ListQuestions returns the test's linked questions with weights.
func (s *TestService) ListQuestions(ctx context.Context, id uuid.UUID, authorID int) ([]model.TestQuestion, error) {
	if _, err := s.getOwned(ctx, id, authorID); err != nil {
		return nil, err
	}
	questions, err := s.testRepo.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.TestQuestion{}
	}
	return questions, nil
}

// Attach links a question to a test. The pairing must satisfy the visibility
// compatibility rule at attach time, and archived questions are rejected.
func (s *TestService) Attach(ctx context.Context, testID, questionID uuid.UUID, authorID, weight int) error {
	t, err := s.getOwned(ctx, testID, authorID)
	if err != nil {
		return err
	}

	q, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get question: %w", err)
	}
	if q.Archived {
		return ErrQuestionArchived
	}
	if !visibility.CanAttach(q.Visibility, t.Visibility) {
		return &IncompatibleVisibilityError{
			Requested: t.Visibility,
			BlockingQuestions: []model.LinkedQuestion{
				{ID: q.ID, QuestionText: q.QuestionText, Visibility: q.Visibility},
			},
		}
	}

	if err := s.testRepo.AttachQuestion(ctx, testID, questionID, weight); err != nil {
		return fmt.Errorf("attach question: %w", err)
	}
	s.invalidatePayload(ctx, t.Slug)
	return nil
}

// RejectedAttach names one question a bulk attach could not link, and why.
type RejectedAttach struct {
	QuestionID uuid.UUID `json:"question_id"`
	Reason     string    `json:"reason"`
}

// BulkAttachResult reports the outcome of a bulk attach.
type BulkAttachResult struct {
	Attached []uuid.UUID      `json:"attached"`
	Rejected []RejectedAttach `json:"rejected"`
}

// BulkAttach links several questions in one call, filtering out those that
// fail the compatibility predicate instead of failing the whole request.
func (s *TestService) BulkAttach(ctx context.Context, testID uuid.UUID, authorID int, reqs []model.AttachQuestionRequest) (*BulkAttachResult, error) {
	t, err := s.getOwned(ctx, testID, authorID)
	if err != nil {
		return nil, err
	}

	result := &BulkAttachResult{Attached: []uuid.UUID{}, Rejected: []RejectedAttach{}}
	for _, req := range reqs {
		q, err := s.questionRepo.GetByID(ctx, req.QuestionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				result.Rejected = append(result.Rejected, RejectedAttach{req.QuestionID, "not_found"})
				continue
			}
			return nil, fmt.Errorf("get question: %w", err)
		}
		if q.Archived {
			result.Rejected = append(result.Rejected, RejectedAttach{req.QuestionID, "archived"})
			continue
		}
		if !visibility.CanAttach(q.Visibility, t.Visibility) {
			result.Rejected = append(result.Rejected, RejectedAttach{req.QuestionID, "incompatible_visibility"})
			continue
		}
		if err := s.testRepo.AttachQuestion(ctx, testID, req.QuestionID, req.Weight); err != nil {
			return nil, fmt.Errorf("attach question: %w", err)
		}
		result.Attached = append(result.Attached, req.QuestionID)
	}

	if len(result.Attached) > 0 {
		s.invalidatePayload(ctx, t.Slug)
	}
	return result, nil
}

// Detach removes a question from a test.
func (s *TestService) Detach(ctx context.Context, testID, questionID uuid.UUID, authorID int) error {
	t, err := s.getOwned(ctx, testID, authorID)
	if err != nil {
		return err
	}
	existed, err := s.testRepo.DetachQuestion(ctx, testID, questionID)
	if err != nil {
		return fmt.Errorf("detach question: %w", err)
	}
	if !existed {
		return ErrNotFound
	}
	s.invalidatePayload(ctx, t.Slug)
	return nil
}

// Results lists a test's assessments for its author.
func (s *TestService) Results(ctx context.Context, testID uuid.UUID, authorID, page, perPage int) ([]model.Assessment, *response.Pagination, error) {
	if _, err := s.getOwned(ctx, testID, authorID); err != nil {
		return nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	assessments, total, err := s.assessmentRepo.ListByTest(ctx, testID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if assessments == nil {
		assessments = []model.Assessment{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return assessments, pagination, nil
}

// ─── Public payload cache ───────────────────────────────────────────────────

// PublicPayload serves the candidate-facing test view from Redis, falling
// back to Postgres on miss and self-healing the cache. Disabled and archived
// tests are never served.
func (s *TestService) PublicPayload(ctx context.Context, slug string) (*PublicTestPayload, error) {
	key := config.CacheKey.TestPayloadKey(slug)

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		payload := &PublicTestPayload{}
		if jsonErr := json.Unmarshal([]byte(raw), payload); jsonErr == nil {
			return payload, nil
		}
		// Corrupt entry: fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("slug", slug).Msg("payload cache read failed")
	}

	payload, err := s.buildPayload(ctx, slug)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(payload); err == nil {
		if err := s.rdb.Set(ctx, key, raw, payloadTTL).Err(); err != nil {
			s.log.Warn().Err(err).Str("slug", slug).Msg("payload cache write failed")
		}
	}
	return payload, nil
}

// PrewarmAllCaches loads every enabled test's payload into Redis. Called at
// startup before traffic is accepted.
func (s *TestService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.testRepo.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list enabled tests: %w", err)
	}

	for _, t := range tests {
		payload, err := s.buildPayload(ctx, t.Slug)
		if err != nil {
			s.log.Warn().Err(err).Str("slug", t.Slug).Msg("prewarm skipped")
			continue
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		if err := s.rdb.Set(ctx, config.CacheKey.TestPayloadKey(t.Slug), raw, payloadTTL).Err(); err != nil {
			return fmt.Errorf("prewarm %s: %w", t.Slug, err)
		}
	}

	s.log.Info().Int("tests", len(tests)).Msg("Payload caches prewarmed")
	return nil
}

func (s *TestService) buildPayload(ctx context.Context, slug string) (*PublicTestPayload, error) {
	t, err := s.testRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if t.Archived || !t.Enabled {
		return nil, ErrTestDisabled
	}

	questions, err := s.testRepo.ListQuestions(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	return &PublicTestPayload{
		Test: model.TestSummary{
			Title:         t.Title,
			Slug:          t.Slug,
			Description:   t.Description,
			QuestionCount: len(questions),
			PassThreshold: t.PassThreshold,
		},
		Questions: StripAnswers(questions),
	}, nil
}

func (s *TestService) invalidatePayload(ctx context.Context, slug string) {
	if err := s.rdb.Del(ctx, config.CacheKey.TestPayloadKey(slug)).Err(); err != nil {
		s.log.Warn().Err(err).Str("slug", slug).Msg("payload cache invalidation failed")
	}
}

// getOwned loads a test and verifies ownership. Other authors' tests are
// reported as not found rather than forbidden.
func (s *TestService) getOwned(ctx context.Context, id uuid.UUID, authorID int) (*model.Test, error) {
	t, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if t.AuthorID != authorID {
		return nil, ErrNotFound
	}
	return t, nil
}
