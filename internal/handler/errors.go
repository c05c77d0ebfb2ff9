package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/assesshub/assesshub-backend/internal/response"
	"github.com/assesshub/assesshub-backend/internal/service"
)

// failFromService maps a service-layer error onto the response envelope.
// Unknown errors are reported as opaque internal failures.
func failFromService(c *gin.Context, err error) {
	var visErr *service.IncompatibleVisibilityError
	if errors.As(err, &visErr) {
		response.FailWithDetails(c, http.StatusConflict, response.ErrIncompatibleVisibility, visErr)
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrTestDisabled):
		response.Fail(c, http.StatusForbidden, response.ErrTestDisabled)
	case errors.Is(err, service.ErrAlreadyCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAssessmentCompleted)
	case errors.Is(err, service.ErrAbandoned):
		response.Fail(c, http.StatusConflict, response.ErrAssessmentAbandoned)
	case errors.Is(err, service.ErrExpired):
		response.Fail(c, http.StatusGone, response.ErrAssessmentExpired)
	case errors.Is(err, service.ErrQuestionNotInTest),
		errors.Is(err, service.ErrUnknownOptionKey):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	case errors.Is(err, service.ErrQuestionArchived):
		response.Fail(c, http.StatusConflict, response.ErrQuestionArchived)
	case errors.Is(err, service.ErrSlugTaken):
		response.Fail(c, http.StatusConflict, response.ErrSlugTaken)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
