package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/obsilock/obsilock/internal/pkg/response"
	"github.com/obsilock/obsilock/internal/service"
)

type FolderHandler struct {
	folders *service.FolderService
}

func NewFolderHandler(folders *service.FolderService) *FolderHandler {
	return &FolderHandler{folders: folders}
}

type folderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

func (h *FolderHandler) Create(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	folder, err := h.folders.Create(c.Request.Context(), getUserID(c), req.ParentID, req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, folder)
}

func (h *FolderHandler) List(c *gin.Context) {
	folders, err := h.folders.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, folders)
}

func (h *FolderHandler) Rename(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if err := h.folders.Rename(c.Request.Context(), getUserID(c), c.Param("id"), req.Name); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"renamed": true})
}

func (h *FolderHandler) Delete(c *gin.Context) {
	if err := h.folders.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
