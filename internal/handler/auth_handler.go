package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/assesshub/assesshub-backend/internal/middleware"
	"github.com/assesshub/assesshub-backend/internal/model"
	"github.com/assesshub/assesshub-backend/internal/response"
	"github.com/assesshub/assesshub-backend/internal/service"
	"github.com/assesshub/assesshub-backend/internal/validator"
)

// AuthHandler handles author authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login godoc
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, author, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":  token,
		"author": author,
	})
}

// Me godoc
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	author, err := h.authService.GetAuthor(c.Request.Context(), claims.AuthorID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"author": author})
}
