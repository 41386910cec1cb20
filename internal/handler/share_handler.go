package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/obsilock/obsilock/internal/pkg/response"
	"github.com/obsilock/obsilock/internal/service"
)

type ShareHandler struct {
	shares *service.ShareService
}

func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

type createShareRequest struct {
	Kind      string `json:"kind"`
	TargetID  string `json:"target_id"`
	Label     string `json:"label"`
	ExpiresAt *int64 `json:"expires_at"`
	MaxUses   *int64 `json:"max_uses"`
}

func (h *ShareHandler) Create(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	share, err := h.shares.Create(c.Request.Context(), getUserID(c), service.CreateShareInput{
		Kind:      req.Kind,
		TargetID:  req.TargetID,
		Label:     req.Label,
		ExpiresAt: req.ExpiresAt,
		MaxUses:   req.MaxUses,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, share)
}

func (h *ShareHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	shares, total, err := h.shares.List(c.Request.Context(), getUserID(c), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": shares, "total": total})
}

func (h *ShareHandler) Revoke(c *gin.Context) {
	if err := h.shares.Revoke(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"revoked": true})
}

func (h *ShareHandler) Logs(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	logs, err := h.shares.Logs(c.Request.Context(), getUserID(c), c.Param("id"), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, logs)
}

func (h *ShareHandler) PublicMetadata(c *gin.Context) {
	public, err := h.shares.PublicMetadata(c.Request.Context(), c.Param("token"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, public)
}

func (h *ShareHandler) PublicDownload(c *gin.Context) {
	download, err := h.shares.PublicDownload(c.Request.Context(), c.Param("token"), service.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	writeDownload(c, download)
}
