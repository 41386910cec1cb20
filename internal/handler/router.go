package handler

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/obsilock/obsilock/internal/middleware"
)

type RouterDeps struct {
	Auth    *AuthHandler
	Folder  *FolderHandler
	File    *FileHandler
	Share   *ShareHandler
	Secret  []byte
	Origins []string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(deps.Origins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	api := router.Group("/api/v1")
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	authed := api.Group("", middleware.Auth(deps.Secret))
	authed.GET("/folders", deps.Folder.List)
	authed.POST("/folders", deps.Folder.Create)
	authed.PATCH("/folders/:id", deps.Folder.Rename)
	authed.DELETE("/folders/:id", deps.Folder.Delete)

	authed.GET("/files", deps.File.List)
	authed.POST("/files", deps.File.Upload)
	authed.GET("/files/:id", deps.File.Get)
	authed.GET("/files/:id/download", deps.File.Download)
	authed.POST("/files/:id/versions", deps.File.UploadVersion)
	authed.GET("/files/:id/versions", deps.File.ListVersions)
	authed.DELETE("/files/:id", deps.File.Delete)
	authed.GET("/me/quota", deps.File.Quota)

	authed.GET("/shares", deps.Share.List)
	authed.POST("/shares", deps.Share.Create)
	authed.POST("/shares/:id/revoke", deps.Share.Revoke)
	authed.GET("/shares/:id/logs", deps.Share.Logs)

	// Public share endpoints are unauthenticated and rate limited per IP.
	public := router.Group("/s", middleware.RateLimit(60, time.Minute))
	public.GET("/:token", deps.Share.PublicMetadata)
	public.POST("/:token/download", deps.Share.PublicDownload)

	return router
}
