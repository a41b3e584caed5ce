package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/pkg/database"
	"github.com/aiphoto/backend/internal/repository"
	"github.com/aiphoto/backend/internal/service/knowledge"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKnowledgeRouter(t *testing.T) (*gin.Engine, *knowledge.Store) {
	t.Helper()
	db, err := database.InitDB("sqlite", ":memory:")
	require.NoError(t, err)
	store := knowledge.NewStore(repository.NewKnowledgeRepository(db), 5)

	gin.SetMode(gin.TestMode)
	h := NewKnowledgeHandler(store)
	r := gin.New()
	r.GET("/api/knowledge", h.Search)
	r.POST("/api/knowledge", h.Create)
	r.POST("/api/knowledge/smart-search", h.SmartSearch)
	r.GET("/api/knowledge/:id", h.Get)
	r.PUT("/api/knowledge/:id", h.Update)
	return r, store
}

func doRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestKnowledgeHandler_CreateGetUpdate(t *testing.T) {
	r, _ := newKnowledgeRouter(t)

	w := doRequest(r, http.MethodPost, "/api/knowledge", map[string]any{
		"category":      "best_practice",
		"name":          "柔光",
		"content":       "人像使用柔和侧光",
		"tags":          "光影,人像",
		"quality_score": 0.8,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.KnowledgeEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive, "未传 is_active 时默认启用")

	w = doRequest(r, http.MethodGet, "/api/knowledge/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodPut, "/api/knowledge/1", map[string]any{"name": "柔光人像", "is_active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.KnowledgeEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "柔光人像", updated.Name)
	assert.False(t, updated.IsActive)

	w = doRequest(r, http.MethodGet, "/api/knowledge/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodGet, "/api/knowledge/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKnowledgeHandler_CreateInvalid(t *testing.T) {
	r, _ := newKnowledgeRouter(t)

	w := doRequest(r, http.MethodPost, "/api/knowledge", map[string]any{
		"category": "unknown",
		"name":     "x",
		"content":  "y",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKnowledgeHandler_Search(t *testing.T) {
	r, store := newKnowledgeRouter(t)
	_, err := store.SeedDefaults(t.Context())
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/api/knowledge?q="+url.QueryEscape("证件照")+"&category=scene_template&limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []model.KnowledgeEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, model.CategorySceneTemplate, e.Category)
	}

	w = doRequest(r, http.MethodGet, "/api/knowledge?category=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/api/knowledge?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKnowledgeHandler_SmartSearch(t *testing.T) {
	r, store := newKnowledgeRouter(t)
	_, err := store.SeedDefaults(t.Context())
	require.NoError(t, err)

	w := doRequest(r, http.MethodPost, "/api/knowledge/smart-search", map[string]any{"description": "证件照，白色背景"})
	require.Equal(t, http.StatusOK, w.Code)
	var result knowledge.SmartSearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{"证件照", "白底"}, result.Keywords)
	assert.NotEmpty(t, result.Templates)

	w = doRequest(r, http.MethodPost, "/api/knowledge/smart-search", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
