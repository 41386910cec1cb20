package handler_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFolderLifecycle(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	bearer := registerUser(t, router)

	recorder := doJSON(t, router, http.MethodPost, "/api/v1/folders", bearer, map[string]string{
		"name": "documents",
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	folderID := decodeData(t, recorder)["id"].(string)

	recorder = doJSON(t, router, http.MethodPatch, "/api/v1/folders/"+folderID, bearer, map[string]string{
		"name": "archive",
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	recorder = doJSON(t, router, http.MethodGet, "/api/v1/folders", bearer, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, router, http.MethodDelete, "/api/v1/folders/"+folderID, bearer, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
}

func TestFolderDeleteRefusesNonEmpty(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	bearer := registerUser(t, router)

	recorder := doJSON(t, router, http.MethodPost, "/api/v1/folders", bearer, map[string]string{
		"name": "full",
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	folderID := decodeData(t, recorder)["id"].(string)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "inside.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("inside"))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("folder_id", folderID))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bearer)
	uploadRecorder := httptest.NewRecorder()
	router.ServeHTTP(uploadRecorder, req)
	require.Equal(t, http.StatusOK, uploadRecorder.Code, uploadRecorder.Body.String())

	recorder = doJSON(t, router, http.MethodDelete, "/api/v1/folders/"+folderID, bearer, nil)
	require.Equal(t, http.StatusConflict, recorder.Code)
}

func TestFolderRejectsEmptyName(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	bearer := registerUser(t, router)
	recorder := doJSON(t, router, http.MethodPost, "/api/v1/folders", bearer, map[string]string{
		"name": "   ",
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}
