package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aiphoto/backend/config"
	"github.com/aiphoto/backend/internal/handler"
	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/pkg/storage"
	"github.com/aiphoto/backend/internal/service/orchestrator"
	"github.com/gin-gonic/gin"
)

type nopRunner struct{}

func (nopRunner) RunAsync(ctx context.Context, description string, opts orchestrator.RunOptions) (string, error) {
	return "task-1", nil
}

func (nopRunner) GetStatus(ctx context.Context, taskID string) (*model.GenerationTask, error) {
	return nil, nil
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := storage.NewLocalStore(t.TempDir(), "/static")
	if err != nil {
		t.Fatalf("NewLocalStore error: %v", err)
	}
	if _, err := store.Put(context.Background(), []byte("png"), "generated/cover_1.png", "image/png"); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	cfg := config.Default()
	cfg.Server.Mode = "test"
	return Setup(cfg, handler.NewGenerationHandler(nopRunner{}), handler.NewKnowledgeHandler(nil), store)
}

func TestSetup_StaticObjects(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/generated/cover_1.png", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if w.Body.String() != "png" {
		t.Fatalf("body = %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/generated/missing.png", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing object status = %d, want 404", w.Code)
	}
}

func TestSetup_MetricsAndRoutes(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/generations/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown task status = %d, want 404", w.Code)
	}
}
