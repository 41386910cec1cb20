package handler_test

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/obsilock/obsilock/internal/config"
	"github.com/obsilock/obsilock/internal/filestore"
	"github.com/obsilock/obsilock/internal/handler"
	"github.com/obsilock/obsilock/internal/pkg/filecrypt"
	"github.com/obsilock/obsilock/internal/repo"
	"github.com/obsilock/obsilock/internal/service"
	"github.com/obsilock/obsilock/test/testutil"
)

var testJWTSecret = []byte("test-jwt-secret")

func setupRouter(t *testing.T) (http.Handler, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanup := testutil.OpenTestDB(t)

	masterKey := make([]byte, 32)
	_, err := rand.Read(masterKey)
	require.NoError(t, err)
	engine, err := filecrypt.NewEngine(masterKey)
	require.NoError(t, err)

	tmpDir, err := os.MkdirTemp("", "obsilock-blob-*")
	require.NoError(t, err)

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{
			"dir": tmpDir,
		},
	})
	require.NoError(t, err)

	userRepo := repo.NewUserRepo(db)
	folderRepo := repo.NewFolderRepo(db)
	fileRepo := repo.NewFileRepo(db)
	versionRepo := repo.NewVersionRepo(db)
	shareRepo := repo.NewShareRepo(db)
	logRepo := repo.NewDownloadLogRepo(db)

	authService := service.NewAuthService(userRepo, testJWTSecret, time.Hour, 1<<30)
	folderService := service.NewFolderService(folderRepo, fileRepo)
	fileService := service.NewFileService(fileRepo, versionRepo, folderRepo, userRepo, store, engine)
	shareService := service.NewShareService(shareRepo, fileRepo, folderRepo, versionRepo, logRepo, fileService, []byte("test-share-secret"))

	router := handler.NewRouter(handler.RouterDeps{
		Auth:   handler.NewAuthHandler(authService),
		Folder: handler.NewFolderHandler(folderService),
		File:   handler.NewFileHandler(fileService),
		Share:  handler.NewShareHandler(shareService),
		Secret: testJWTSecret,
	})

	return router, func() {
		cleanup()
		_ = os.RemoveAll(tmpDir)
	}
}

func doJSON(t *testing.T, router http.Handler, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeData(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope.Data
}

func registerUser(t *testing.T, router http.Handler) string {
	t.Helper()
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	email := fmt.Sprintf("user-%s@example.com", base64.RawURLEncoding.EncodeToString(buf))
	recorder := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	data := decodeData(t, recorder)
	token, ok := data["token"].(string)
	require.True(t, ok)
	return token
}

func uploadVersion(t *testing.T, router http.Handler, bearer, fileID string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "update.bin")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/"+fileID+"/versions", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bearer)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func uploadFile(t *testing.T, router http.Handler, bearer, filename string, content []byte) string {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bearer)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	data := decodeData(t, recorder)
	fileID, ok := data["id"].(string)
	require.True(t, ok)
	return fileID
}
