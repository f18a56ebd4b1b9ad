package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/promptforge/framework/codeblock"
)

func TestPreviewServerServesPlaceholderBeforePublish(t *testing.T) {
	preview := NewPreviewServer("", log.New(io.Discard, "", 0))
	rec := httptest.NewRecorder()
	preview.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), codeblock.PlaceholderFragment)
	assert.Equal(t, 1, strings.Count(strings.ToLower(rec.Body.String()), "<html"))
}

func TestPreviewServerPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".promptforge", "preview.html")
	preview := NewPreviewServer(path, nil)
	doc := "<html><body><p>hi</p></body></html>"
	require.NoError(t, preview.Publish(doc))

	rec := httptest.NewRecorder()
	preview.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, doc, rec.Body.String())
	assert.Equal(t, `"1"`, rec.Header().Get("ETag"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))

	rec = httptest.NewRecorder()
	preview.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var status PreviewStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1, status.Version)
	assert.Equal(t, len(doc), status.Bytes)

	rec = httptest.NewRecorder()
	preview.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
