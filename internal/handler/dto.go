package handler

import "github.com/aiphoto/backend/internal/model"

// GenerationRequestDTO 发起生成请求
type GenerationRequestDTO struct {
	Description   string           `json:"description" binding:"required,max=2000"`
	EnableImage   *bool            `json:"enable_image"`
	MaxIterations int              `json:"max_iterations" binding:"omitempty,min=1,max=5"`
	Categories    []model.Category `json:"categories"`
}

// GenerationAcceptedDTO 异步任务已受理
type GenerationAcceptedDTO struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// SmartSearchRequestDTO 智能检索请求
type SmartSearchRequestDTO struct {
	Description string `json:"description" binding:"required,max=2000"`
}
