package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/assesshub/assesshub-backend/internal/config"
	"github.com/assesshub/assesshub-backend/internal/model"
	"github.com/assesshub/assesshub-backend/internal/repository"
	"github.com/assesshub/assesshub-backend/internal/response"
	"github.com/assesshub/assesshub-backend/internal/visibility"
)

// QuestionService handles question business logic.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, rdb *redis.Client, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// List retrieves an author's questions with pagination.
func (s *QuestionService) List(ctx context.Context, authorID, page, perPage int) ([]model.Question, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	questions, total, err := s.questionRepo.ListByAuthor(ctx, authorID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return questions, pagination, nil
}

// Get retrieves one of the author's questions.
func (s *QuestionService) Get(ctx context.Context, id uuid.UUID, authorID int) (*model.Question, error) {
	return s.getOwned(ctx, id, authorID)
}

// Create validates and inserts a new question.
func (s *QuestionService) Create(ctx context.Context, q *model.Question) error {
	if err := q.ValidateOptions(); err != nil {
		return err
	}
	return s.questionRepo.Create(ctx, q)
}

// Update rewrites the text, type and options of an existing question.
// Omitted fields keep their current values; the option invariant is
// re-validated against the merged result.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, authorID int, req *model.UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.getOwned(ctx, id, authorID)
	if err != nil {
		return nil, err
	}

	if req.QuestionText != "" {
		q.QuestionText = req.QuestionText
	}
	if req.QuestionType != "" {
		q.QuestionType = model.QuestionType(req.QuestionType)
	}
	if req.Options != nil {
		q.Options = req.Options
	}
	if err := q.ValidateOptions(); err != nil {
		return nil, err
	}

	if err := s.questionRepo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	// Cached public payloads of tests linking this question embed its text
	// and options.
	s.invalidateLinkedPayloads(ctx, id)
	return q, nil
}

// ChangeVisibility moves a question to a new visibility level. The change is
// rejected, with the blocking tests listed, when any linking test would
// become incompatible. Existing incompatible pairings created outside this
// path are tolerated; only deliberate changes are checked.
func (s *QuestionService) ChangeVisibility(ctx context.Context, id uuid.UUID, authorID int, newVis visibility.Visibility) (*model.Question, error) {
	q, err := s.getOwned(ctx, id, authorID)
	if err != nil {
		return nil, err
	}
	if q.Visibility == newVis {
		return q, nil
	}

	linking, err := s.questionRepo.ListLinkingTests(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list linking tests: %w", err)
	}

	var blockers []model.LinkedTest
	for _, t := range linking {
		if !visibility.CanAttach(newVis, t.Visibility) {
			blockers = append(blockers, t)
		}
	}
	if len(blockers) > 0 {
		return nil, &IncompatibleVisibilityError{Requested: newVis, BlockingTests: blockers}
	}

	if err := s.questionRepo.UpdateVisibility(ctx, id, newVis); err != nil {
		return nil, fmt.Errorf("update visibility: %w", err)
	}
	q.Visibility = newVis
	return q, nil
}

// Delete removes a question. While it is linked to any test it is archived
// instead of hard-deleted, so existing tests keep scoring it. Returns true
// when the question was archived rather than deleted.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID, authorID int) (archived bool, err error) {
	if _, err := s.getOwned(ctx, id, authorID); err != nil {
		return false, err
	}

	links, err := s.questionRepo.CountLinks(ctx, id)
	if err != nil {
		return false, fmt.Errorf("count links: %w", err)
	}
	if links > 0 {
		if err := s.questionRepo.SetArchived(ctx, id, true); err != nil {
			return false, fmt.Errorf("archive question: %w", err)
		}
		return true, nil
	}
	// Unlinked questions are not embedded in any payload; nothing to
	// invalidate.

	if err := s.questionRepo.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	return false, nil
}

// invalidateLinkedPayloads drops the cached public payload of every test
// linking the question. Best effort: a missed invalidation is bounded by the
// payload TTL.
func (s *QuestionService) invalidateLinkedPayloads(ctx context.Context, questionID uuid.UUID) {
	linking, err := s.questionRepo.ListLinkingTests(ctx, questionID)
	if err != nil {
		s.log.Warn().Err(err).Stringer("question_id", questionID).
			Msg("could not list linking tests for cache invalidation")
		return
	}
	for _, t := range linking {
		if err := s.rdb.Del(ctx, config.CacheKey.TestPayloadKey(t.Slug)).Err(); err != nil {
			s.log.Warn().Err(err).Str("slug", t.Slug).Msg("payload cache invalidation failed")
		}
	}
}

// getOwned loads a question and verifies ownership. Other authors' questions
// are reported as not found rather than forbidden.
func (s *QuestionService) getOwned(ctx context.Context, id uuid.UUID, authorID int) (*model.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	if q.AuthorID != authorID {
		return nil, ErrNotFound
	}
	return q, nil
}
