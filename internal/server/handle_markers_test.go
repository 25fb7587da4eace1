package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/puntomapa/puntomapa/internal/config"
	"github.com/puntomapa/puntomapa/internal/model"
	"github.com/puntomapa/puntomapa/internal/repository"
	"github.com/puntomapa/puntomapa/internal/service"
	"github.com/puntomapa/puntomapa/internal/upload"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.DatabaseModels...))

	repo := repository.New(db, zerolog.Nop())
	gateway, err := upload.NewLocal(config.LocalUploadConfig{
		Dir:     t.TempDir(),
		BaseURL: "http://localhost:4000",
	}, zerolog.Nop())
	require.NoError(t, err)

	svc, err := service.New(repo, gateway, nil, zerolog.Nop())
	require.NoError(t, err)

	r := chi.NewRouter()
	addRoutes(r, zerolog.Nop(), svc, gateway, "")
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateMarker_EndToEnd(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/markers", map[string]any{
		"lat":         -26.1855,
		"lng":         -58.1729,
		"name":        "Plaza",
		"description": "Centro",
		"category":    "monumento",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	loc, ok := body["location"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, -26.1855, loc["lat"])
	assert.Equal(t, -58.1729, loc["lng"])
	assert.Equal(t, "Plaza", body["name"])
	assert.Equal(t, "Centro", body["description"])
	assert.Equal(t, "monumento", body["category"])
	assert.NotEmpty(t, body["id"])
	assert.NotContains(t, body, "image")
	assert.NotContains(t, body, "audio")
}

func TestCreateMarker_MissingFields(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"no location", map[string]any{"name": "x", "description": "y", "category": "museo"}},
		{"no name", map[string]any{"lat": 1.0, "lng": 2.0, "description": "y", "category": "museo"}},
		{"no description", map[string]any{"lat": 1.0, "lng": 2.0, "name": "x", "category": "museo"}},
		{"bad category", map[string]any{"lat": 1.0, "lng": 2.0, "name": "x", "description": "y", "category": "castillo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/markers", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpdateMarker_CategoryOnly(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/markers", map[string]any{
		"lat": -26.1855, "lng": -58.1729,
		"name": "Plaza", "description": "Centro", "category": "monumento",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"].(string)

	rec = doJSON(t, r, http.MethodPut, "/markers/"+id, map[string]any{"category": "museo"})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "museo", updated["category"])
	assert.Equal(t, "Plaza", updated["name"])
	assert.Equal(t, "Centro", updated["description"])

	loc := updated["location"].(map[string]any)
	assert.Equal(t, -26.1855, loc["lat"])
	assert.Equal(t, -58.1729, loc["lng"])
}

func TestUpdateMarker_NotFound(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPut, "/markers/nonexistent-id", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateMarker_HalfLocationRejected(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPut, "/markers/any", map[string]any{"lat": 1.5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMarker_Idempotent(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodDelete, "/markers/nonexistent-id", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["message"])
}

func TestGetMarker_NotFound(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/markers/nonexistent-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMarkers(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/markers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)

	doJSON(t, r, http.MethodPost, "/markers", map[string]any{
		"lat": 1.0, "lng": 2.0, "name": "a", "description": "b", "category": "escuela",
	})

	rec = doJSON(t, r, http.MethodGet, "/markers", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
