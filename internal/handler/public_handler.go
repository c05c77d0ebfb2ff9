package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/assesshub/assesshub-backend/internal/model"
	"github.com/assesshub/assesshub-backend/internal/response"
	"github.com/assesshub/assesshub-backend/internal/service"
	"github.com/assesshub/assesshub-backend/internal/validator"
)

// PublicHandler handles the unauthenticated candidate surface. Access is
// gated only by slug knowledge and the test being enabled.
type PublicHandler struct {
	testService       *service.TestService
	assessmentService *service.AssessmentService
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(
	testService *service.TestService,
	assessmentService *service.AssessmentService,
) *PublicHandler {
	return &PublicHandler{
		testService:       testService,
		assessmentService: assessmentService,
	}
}

// GetTest godoc
// GET /api/v1/public/tests/:slug
// Serves the cached candidate-facing payload (no correct answers).
func (h *PublicHandler) GetTest(c *gin.Context) {
	payload, err := h.testService.PublicPayload(c.Request.Context(), c.Param("slug"))
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// StartAssessment godoc
// POST /api/v1/public/tests/:slug/start
func (h *PublicHandler) StartAssessment(c *gin.Context) {
	var req model.StartAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.assessmentService.Start(c.Request.Context(), c.Param("slug"), req.CandidateName)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// RecordAnswer godoc
// POST /api/v1/public/assessments/:id/answers
// Upserts the latest selection for one question; last write wins.
func (h *PublicHandler) RecordAnswer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	progress, err := h.assessmentService.RecordAnswer(c.Request.Context(), id, req.QuestionID, req.SelectedOptionIDs)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, progress)
}

// Submit godoc
// POST /api/v1/public/assessments/:id/submit
func (h *PublicHandler) Submit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.assessmentService.Submit(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Verify godoc
// GET /api/v1/public/assessments/:id/verify
// Liveness probe the client calls before rendering; an expired session is
// abandoned as a side effect.
func (h *PublicHandler) Verify(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.assessmentService.Verify(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
