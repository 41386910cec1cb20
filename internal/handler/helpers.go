package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/obsilock/obsilock/internal/middleware"
	appErr "github.com/obsilock/obsilock/internal/pkg/errors"
	"github.com/obsilock/obsilock/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, "invalid_request", "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, http.StatusConflict, "conflict", "resource conflict")
	case errors.Is(err, appErr.ErrQuotaExceeded):
		response.Error(c, http.StatusRequestEntityTooLarge, "quota_exceeded", "storage quota exceeded")
	case errors.Is(err, appErr.ErrShareRevoked):
		response.Error(c, http.StatusGone, "revoked", "share link revoked")
	case errors.Is(err, appErr.ErrShareExpired):
		response.Error(c, http.StatusGone, "expired", "share link expired")
	case errors.Is(err, appErr.ErrShareExhausted):
		response.Error(c, http.StatusGone, "no_uses_left", "share link has no uses left")
	case errors.Is(err, appErr.ErrNotImplemented):
		response.Error(c, http.StatusNotImplemented, "not_implemented", "folder download is not supported")
	case errors.Is(err, appErr.ErrMissingContent):
		response.Error(c, http.StatusInternalServerError, "missing_content", "stored content unavailable")
	default:
		logutil.GetLogger(c.Request.Context()).Error("request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "internal", "internal error")
	}
}
