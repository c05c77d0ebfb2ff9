package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/assesshub/assesshub-backend/internal/middleware"
	"github.com/assesshub/assesshub-backend/internal/model"
	"github.com/assesshub/assesshub-backend/internal/response"
	"github.com/assesshub/assesshub-backend/internal/service"
	"github.com/assesshub/assesshub-backend/internal/validator"
	"github.com/assesshub/assesshub-backend/internal/visibility"
)

// QuestionHandler handles author-facing question endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// List godoc
// GET /api/v1/author/questions
func (h *QuestionHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	questions, pagination, err := h.questionService.List(c.Request.Context(), claims.AuthorID, page, perPage)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, pagination)
}

// Get godoc
// GET /api/v1/author/questions/:id
func (h *QuestionHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	question, err := h.questionService.Get(c.Request.Context(), id, claims.AuthorID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// Create godoc
// POST /api/v1/author/questions
func (h *QuestionHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question := &model.Question{
		AuthorID:     claims.AuthorID,
		QuestionText: req.QuestionText,
		QuestionType: model.QuestionType(req.QuestionType),
		Options:      req.Options,
		Visibility:   visibility.Visibility(req.Visibility),
	}

	if err := h.questionService.Create(c.Request.Context(), question); err != nil {
		if fields := optionValidationFields(err); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// Update godoc
// PUT /api/v1/author/questions/:id
func (h *QuestionHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, claims.AuthorID, &req)
	if err != nil {
		if fields := optionValidationFields(err); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// ChangeVisibility godoc
// PATCH /api/v1/author/questions/:id/visibility
// Rejected with the blocking tests when any linking test would become
// incompatible.
func (h *QuestionHandler) ChangeVisibility(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ChangeVisibilityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.ChangeVisibility(c.Request.Context(), id, claims.AuthorID, visibility.Visibility(req.Visibility))
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// Delete godoc
// DELETE /api/v1/author/questions/:id
// Hard-deletes when unreferenced; archives when linked to any test.
func (h *QuestionHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	archived, err := h.questionService.Delete(c.Request.Context(), id, claims.AuthorID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"archived": archived})
}

// optionValidationFields maps option-invariant violations to a field error
// map, or nil if err is not one of them.
func optionValidationFields(err error) map[string]string {
	switch err {
	case model.ErrNoOptions, model.ErrSingleNeedsOneAnswer, model.ErrMultipleNeedsAnswer:
		return map[string]string{"options": err.Error()}
	}
	return nil
}
