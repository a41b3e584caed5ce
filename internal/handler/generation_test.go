package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/service/orchestrator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	RunAsyncFunc  func(description string, opts orchestrator.RunOptions) (string, error)
	GetStatusFunc func(taskID string) (*model.GenerationTask, error)
}

func (m *mockRunner) RunAsync(ctx context.Context, description string, opts orchestrator.RunOptions) (string, error) {
	return m.RunAsyncFunc(description, opts)
}

func (m *mockRunner) GetStatus(ctx context.Context, taskID string) (*model.GenerationTask, error) {
	return m.GetStatusFunc(taskID)
}

func newGenerationRouter(runner GenerationRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewGenerationHandler(runner)
	r := gin.New()
	r.POST("/api/generations", h.Create)
	r.GET("/api/generations/:task_id", h.Get)
	return r
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerationHandler_Create(t *testing.T) {
	var gotDesc string
	var gotOpts orchestrator.RunOptions
	runner := &mockRunner{RunAsyncFunc: func(description string, opts orchestrator.RunOptions) (string, error) {
		gotDesc, gotOpts = description, opts
		return "task-123", nil
	}}
	r := newGenerationRouter(runner)

	w := postJSON(r, "/api/generations", map[string]any{
		"description":    "证件照，白色背景",
		"enable_image":   false,
		"max_iterations": 2,
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp GenerationAcceptedDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "task-123", resp.TaskID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "证件照，白色背景", gotDesc)
	require.NotNil(t, gotOpts.EnableImage)
	assert.False(t, *gotOpts.EnableImage)
	assert.Equal(t, 2, gotOpts.MaxIterations)
}

func TestGenerationHandler_CreateValidation(t *testing.T) {
	runner := &mockRunner{RunAsyncFunc: func(string, orchestrator.RunOptions) (string, error) {
		t.Fatal("参数错误时不应提交任务")
		return "", nil
	}}
	r := newGenerationRouter(runner)

	w := postJSON(r, "/api/generations", map[string]any{"description": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, "/api/generations", map[string]any{"description": "证件照", "max_iterations": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerationHandler_CreateBusy(t *testing.T) {
	runner := &mockRunner{RunAsyncFunc: func(string, orchestrator.RunOptions) (string, error) {
		return "task-busy", orchestrator.ErrOrchestratorBusy
	}}
	r := newGenerationRouter(runner)

	w := postJSON(r, "/api/generations", map[string]any{"description": "证件照"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "task-busy")
}

func TestGenerationHandler_Get(t *testing.T) {
	runner := &mockRunner{GetStatusFunc: func(taskID string) (*model.GenerationTask, error) {
		if taskID == "task-1" {
			return &model.GenerationTask{TaskID: "task-1", Status: model.TaskStatusProcessing, Progress: 40}, nil
		}
		return nil, nil
	}}
	r := newGenerationRouter(runner)

	req := httptest.NewRequest(http.MethodGet, "/api/generations/task-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var task model.GenerationTask
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	assert.Equal(t, model.TaskStatusProcessing, task.Status)
	assert.Equal(t, 40, task.Progress)

	req = httptest.NewRequest(http.MethodGet, "/api/generations/unknown", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
