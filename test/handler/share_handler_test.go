package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsilock/obsilock/internal/pkg/timeutil"
)

func createShare(t *testing.T, router http.Handler, bearer string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	recorder := doJSON(t, router, http.MethodPost, "/api/v1/shares", bearer, body)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	return decodeData(t, recorder)
}

func publicGet(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("User-Agent", "obsilock-test")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func publicDownload(router http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/s/"+token+"/download", nil)
	req.Header.Set("User-Agent", "obsilock-test")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func TestShareSingleUseFlow(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	bearer := registerUser(t, router)
	content := []byte("the secret plans")
	fileID := uploadFile(t, router, bearer, "plans.txt", content)

	share := createShare(t, router, bearer, map[string]interface{}{
		"kind":      "file",
		"target_id": fileID,
		"max_uses":  1,
	})
	token, ok := share["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	// Metadata does not consume a use.
	recorder := publicGet(router, "/s/"+token)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	meta := decodeData(t, recorder)
	require.Equal(t, "plans.txt", meta["filename"])

	recorder = publicDownload(router, token)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.Equal(t, content, recorder.Body.Bytes())
	require.Contains(t, recorder.Header().Get("Content-Disposition"), "plans.txt")

	recorder = publicDownload(router, token)
	require.Equal(t, http.StatusGone, recorder.Code)
	require.Equal(t, "no_uses_left", errorCode(t, recorder))
}

func TestShareRevokeBeatsDownload(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	bearer := registerUser(t, router)
	fileID := uploadFile(t, router, bearer, "doc.txt", []byte("doc"))

	share := createShare(t, router, bearer, map[string]interface{}{
		"kind":      "file",
		"target_id": fileID,
	})
	shareID := share["id"].(string)
	token := share["token"].(string)

	recorder := doJSON(t, router, http.MethodPost, "/api/v1/shares/"+shareID+"/revoke", bearer, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	// Revoking twice is still a success.
	recorder = doJSON(t, router, http.MethodPost, "/api/v1/shares/"+shareID+"/revoke", bearer, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = publicDownload(router, token)
	require.Equal(t, http.StatusGone, recorder.Code)
	require.Equal(t, "revoked", errorCode(t, recorder))

	recorder = publicGet(router, "/s/"+token)
	require.Equal(t, http.StatusGone, recorder.Code)
}

func TestShareUnknownTokenIs404(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	recorder := publicDownload(router, "nonexistent-token")
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestShareRejectsPastExpiry(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	bearer := registerUser(t, router)
	fileID := uploadFile(t, router, bearer, "old.txt", []byte("old"))

	recorder := doJSON(t, router, http.MethodPost, "/api/v1/shares", bearer, map[string]interface{}{
		"kind":       "file",
		"target_id":  fileID,
		"expires_at": timeutil.NowUnix() - 60,
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestShareFolderDownloadNotImplemented(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	bearer := registerUser(t, router)
	recorder := doJSON(t, router, http.MethodPost, "/api/v1/folders", bearer, map[string]string{
		"name": "shared stuff",
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	folderID := decodeData(t, recorder)["id"].(string)

	share := createShare(t, router, bearer, map[string]interface{}{
		"kind":      "folder",
		"target_id": folderID,
		"max_uses":  1,
	})
	token := share["token"].(string)

	recorder = publicGet(router, "/s/"+token)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.Equal(t, "shared stuff", decodeData(t, recorder)["folder_name"])

	recorder = publicDownload(router, token)
	require.Equal(t, http.StatusNotImplemented, recorder.Code)

	// The rejected download must not burn the share's only use.
	recorder = publicDownload(router, token)
	require.Equal(t, http.StatusNotImplemented, recorder.Code)

	recorder = publicGet(router, "/s/"+token)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.EqualValues(t, 1, decodeData(t, recorder)["remaining_uses"])
}

func TestShareListIncludesStats(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	bearer := registerUser(t, router)
	fileID := uploadFile(t, router, bearer, "stat.txt", []byte("stat"))

	share := createShare(t, router, bearer, map[string]interface{}{
		"kind":      "file",
		"target_id": fileID,
	})
	token := share["token"].(string)

	recorder := publicDownload(router, token)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, router, http.MethodGet, "/api/v1/shares", bearer, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	data := decodeData(t, recorder)
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	stats := items[0].(map[string]interface{})["stats"].(map[string]interface{})
	require.EqualValues(t, 1, stats["total_downloads"])
	require.EqualValues(t, 1, stats["successful_downloads"])

	shareID := share["id"].(string)
	recorder = doJSON(t, router, http.MethodGet, "/api/v1/shares/"+shareID+"/logs", bearer, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
}

func TestShareCannotShareForeignFile(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	owner := registerUser(t, router)
	fileID := uploadFile(t, router, owner, "mine.txt", []byte("mine"))

	other := registerUser(t, router)
	recorder := doJSON(t, router, http.MethodPost, "/api/v1/shares", other, map[string]interface{}{
		"kind":      "file",
		"target_id": fileID,
	})
	require.Equal(t, http.StatusNotFound, recorder.Code)
}
