package handler_test

import (
	"bytes"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func downloadFile(t *testing.T, router http.Handler, bearer, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestFileUploadDownloadRoundTrip(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	bearer := registerUser(t, router)
	content := make([]byte, 20000)
	_, err := rand.Read(content)
	require.NoError(t, err)

	fileID := uploadFile(t, router, bearer, "blob.bin", content)

	recorder := downloadFile(t, router, bearer, "/api/v1/files/"+fileID+"/download")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.True(t, bytes.Equal(content, recorder.Body.Bytes()))
}

func TestFileVersioning(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	bearer := registerUser(t, router)
	fileID := uploadFile(t, router, bearer, "notes.txt", []byte("first draft"))

	recorder := uploadVersion(t, router, bearer, fileID, []byte("second draft"))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	recorder = downloadFile(t, router, bearer, "/api/v1/files/"+fileID+"/download")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "second draft", recorder.Body.String())

	recorder = downloadFile(t, router, bearer, "/api/v1/files/"+fileID+"/download?version=1")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "first draft", recorder.Body.String())
	require.Contains(t, recorder.Header().Get("Content-Disposition"), "notes_v1.txt")

	recorder = doJSON(t, router, http.MethodGet, "/api/v1/files/"+fileID+"/versions", bearer, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	data := decodeData(t, recorder)
	versions := data["versions"].([]interface{})
	require.Len(t, versions, 2)
}

func TestFileOwnershipIsolation(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	owner := registerUser(t, router)
	fileID := uploadFile(t, router, owner, "private.txt", []byte("private"))

	other := registerUser(t, router)
	recorder := doJSON(t, router, http.MethodGet, "/api/v1/files/"+fileID, other, nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = downloadFile(t, router, other, "/api/v1/files/"+fileID+"/download")
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestFileDeleteRestoresQuota(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	bearer := registerUser(t, router)
	fileID := uploadFile(t, router, bearer, "temp.txt", []byte("temporary data"))

	recorder := doJSON(t, router, http.MethodGet, "/api/v1/me/quota", bearer, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	used := decodeData(t, recorder)["used"].(float64)
	require.Greater(t, used, float64(0))

	recorder = doJSON(t, router, http.MethodDelete, "/api/v1/files/"+fileID, bearer, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	recorder = doJSON(t, router, http.MethodGet, "/api/v1/me/quota", bearer, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.EqualValues(t, 0, decodeData(t, recorder)["used"].(float64))

	recorder = doJSON(t, router, http.MethodGet, "/api/v1/files/"+fileID, bearer, nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}
