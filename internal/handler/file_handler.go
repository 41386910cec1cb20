package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/obsilock/obsilock/internal/pkg/response"
	"github.com/obsilock/obsilock/internal/service"
)

type FileHandler struct {
	files *service.FileService
}

func NewFileHandler(files *service.FileService) *FileHandler {
	return &FileHandler{files: files}
}

func (h *FileHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_request", "multipart field 'file' is required")
		return
	}
	content, err := fileHeader.Open()
	if err != nil {
		handleError(c, err)
		return
	}
	defer content.Close()

	file, err := h.files.Upload(c.Request.Context(), getUserID(c), service.UploadInput{
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
		FolderID: c.PostForm("folder_id"),
		Content:  content,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, file)
}

func (h *FileHandler) UploadVersion(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_request", "multipart field 'file' is required")
		return
	}
	content, err := fileHeader.Open()
	if err != nil {
		handleError(c, err)
		return
	}
	defer content.Close()

	version, err := h.files.UploadVersion(c.Request.Context(), getUserID(c), c.Param("id"), service.UploadInput{
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
		Content:  content,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}

func (h *FileHandler) List(c *gin.Context) {
	files, err := h.files.List(c.Request.Context(), getUserID(c), c.Query("folder_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, files)
}

func (h *FileHandler) Get(c *gin.Context) {
	file, err := h.files.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, file)
}

func (h *FileHandler) ListVersions(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	file, versions, err := h.files.ListVersions(c.Request.Context(), getUserID(c), c.Param("id"), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"file": file, "versions": versions})
}

func (h *FileHandler) Download(c *gin.Context) {
	versionNum := 0
	if raw := c.Query("version"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(c, http.StatusBadRequest, "invalid_request", "version must be a positive integer")
			return
		}
		versionNum = parsed
	}
	download, err := h.files.OpenDownload(c.Request.Context(), getUserID(c), c.Param("id"), versionNum)
	if err != nil {
		handleError(c, err)
		return
	}
	writeDownload(c, download)
}

func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.files.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *FileHandler) Quota(c *gin.Context) {
	info, err := h.files.Quota(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, info)
}

// writeDownload streams a decrypted file as an attachment. Once the
// first byte is written the status line is committed; a decryption
// failure mid-stream can only sever the connection.
func writeDownload(c *gin.Context, download *service.Download) {
	mimeType := download.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Type", mimeType)
	c.Header("Content-Length", strconv.FormatInt(download.Size, 10))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Status(http.StatusOK)
	if err := download.WriteTo(c.Writer); err != nil {
		logutil.GetLogger(c.Request.Context()).Error("download stream failed", zap.Error(err))
		c.Abort()
	}
}
