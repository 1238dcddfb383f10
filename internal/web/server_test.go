// Package web tests the HTTP surface in degraded mode (no store
// configured): routing, input rejection and diagnostics behavior.
package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/openmlhub/model-registry/internal/registry/controller"
	"github.com/openmlhub/model-registry/internal/registry/service"
)

var (
	routerOnce sync.Once
	testRouter *gin.Engine
)

// degradedRouter returns a router wired to a registry without a store,
// which is exactly how the server runs when DATABASE_URL is missing.
func degradedRouter() *gin.Engine {
	routerOnce.Do(func() {
		gin.SetMode(gin.TestMode)
		logger := logSDK.Shared.Named("web_test")
		svc := service.New(logger, nil)
		testRouter = newServer(controller.New(logger, svc, nil))
	})
	return testRouter
}

func doRequest(t *testing.T, method, path, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	w := httptest.NewRecorder()
	degradedRouter().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	resp := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestGreetingEndpoints(t *testing.T) {
	for _, path := range []string{"/", "/api/hello"} {
		w := doRequest(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, decodeJSON(t, w), "message")
	}
}

func TestDiagnosticsDegraded(t *testing.T) {
	w := doRequest(t, http.MethodGet, "/test", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON(t, w)
	require.Equal(t, "running", resp["backend"])
	require.Equal(t, "not available", resp["database"])
	require.Equal(t, "not connected", resp["connection_status"])
	require.Equal(t, "not set", resp["database_url"])
	require.Equal(t, "not set", resp["database_name"])
	require.Empty(t, resp["collections"])
}

func TestUploadModelRejections(t *testing.T) {
	// no multipart file part at all
	w := doRequest(t, http.MethodPost, "/api/models", "application/json",
		bytes.NewBufferString("{}"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	// wrong extension
	body, ct := multipartUpload(t, "model.txt", []byte("0123456789"))
	w = doRequest(t, http.MethodPost, "/api/models", ct, body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decodeJSON(t, w)["error"], ".zip")

	// zero-length file
	body, ct = multipartUpload(t, "model.zip", nil)
	w = doRequest(t, http.MethodPost, "/api/models", ct, body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decodeJSON(t, w)["error"], "empty")
}

func TestUploadModelWithoutStore(t *testing.T) {
	body, ct := multipartUpload(t, "model.zip", []byte("0123456789"))
	w := doRequest(t, http.MethodPost, "/api/models", ct, body)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSetModelURL(t *testing.T) {
	// missing body
	w := doRequest(t, http.MethodPost, "/api/models/url", "application/json",
		bytes.NewBufferString("{}"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	// relative URL
	w = doRequest(t, http.MethodPost, "/api/models/url", "application/json",
		bytes.NewBufferString(`{"url":"/models/latest"}`))
	require.Equal(t, http.StatusBadRequest, w.Code)

	// valid URL but no store behind the API
	w = doRequest(t, http.MethodPost, "/api/models/url", "application/json",
		bytes.NewBufferString(`{"url":"https://example.com/model.json"}`))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListModelsLimitParsing(t *testing.T) {
	w := doRequest(t, http.MethodGet, "/api/models?limit=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, http.MethodGet, "/api/models", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetActiveModelWithoutStore(t *testing.T) {
	w := doRequest(t, http.MethodGet, "/api/models/active", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	resp := decodeJSON(t, w)
	errMsg, ok := resp["error"].(string)
	require.True(t, ok)
	require.True(t, strings.Contains(errMsg, "not available"))
}

func TestCORSAllowsEveryOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/models", nil)
	req.Header.Set("Origin", "https://admin.example.net")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w := httptest.NewRecorder()
	degradedRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
