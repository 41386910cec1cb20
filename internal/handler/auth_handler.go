package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErr "github.com/obsilock/obsilock/internal/pkg/errors"
	"github.com/obsilock/obsilock/internal/pkg/response"
	"github.com/obsilock/obsilock/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *credentialsRequest) validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return appErr.ErrInvalid
	}
	if len(r.Password) < 8 {
		return appErr.ErrInvalid
	}
	return nil
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_request", "email and a password of at least 8 characters are required")
		return
	}
	user, issued, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user, "token": issued})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	user, issued, err := h.auth.Login(c.Request.Context(), strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user, "token": issued})
}
