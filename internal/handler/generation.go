package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/service/orchestrator"
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// GenerationRunner 由 orchestrator.Orchestrator 实现
type GenerationRunner interface {
	RunAsync(ctx context.Context, description string, opts orchestrator.RunOptions) (string, error)
	GetStatus(ctx context.Context, taskID string) (*model.GenerationTask, error)
}

type GenerationHandler struct {
	runner GenerationRunner
}

func NewGenerationHandler(runner GenerationRunner) *GenerationHandler {
	return &GenerationHandler{runner: runner}
}

// Create 提交生成任务，立即返回 task_id，结果通过 Get 轮询
func (h *GenerationHandler) Create(c *gin.Context) {
	var req GenerationRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID, err := h.runner.RunAsync(c.Request.Context(), req.Description, orchestrator.RunOptions{
		EnableImage:     req.EnableImage,
		MaxIterations:   req.MaxIterations,
		CategoryOptions: req.Categories,
	})
	if err != nil {
		if errors.Is(err, orchestrator.ErrOrchestratorBusy) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many generation tasks, try again later", "task_id": taskID})
			return
		}
		klog.Errorf("[GenerationHandler] 提交任务失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, GenerationAcceptedDTO{TaskID: taskID, Status: string(model.TaskStatusPending)})
}

func (h *GenerationHandler) Get(c *gin.Context) {
	task, err := h.runner.GetStatus(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	c.JSON(http.StatusOK, task)
}
