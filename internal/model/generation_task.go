package model

import (
	"time"
)

// TaskStatus 生成任务状态
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// StepOutput 某一步骤的简短摘要，按写入顺序追加
type StepOutput struct {
	Step    string `json:"step"`
	Summary string `json:"summary"`
}

// ExecutionLogEntry 执行日志条目
type ExecutionLogEntry struct {
	Step       string `json:"step"`
	Result     string `json:"result"`
	DurationMs int64  `json:"duration_ms"`
}

// GenerationTask 一次配置生成流水线运行的任务记录，供外部轮询
type GenerationTask struct {
	ID              uint                `json:"-" gorm:"primaryKey"`
	TaskID          string              `json:"task_id" gorm:"size:64;uniqueIndex;not null"`
	UserDescription string              `json:"user_description" gorm:"type:text"`
	Status          TaskStatus          `json:"status" gorm:"size:20;default:pending;index"`
	CurrentStep     string              `json:"current_step" gorm:"size:100"`
	Progress        int                 `json:"progress" gorm:"default:0"`
	Iteration       int                 `json:"iteration" gorm:"default:0"`
	StepOutputs     []StepOutput        `json:"step_outputs" gorm:"type:text;serializer:json"`
	KnowledgeUsed   []uint              `json:"knowledge_used" gorm:"type:text;serializer:json"`
	ExecutionLog    []ExecutionLogEntry `json:"execution_log" gorm:"type:text;serializer:json"`
	ConfigResult    *TemplateConfig     `json:"config_result" gorm:"type:text;serializer:json"`
	ImagesResult    *ImagesResult       `json:"images_result" gorm:"type:text;serializer:json"`
	ReviewScore     *float64            `json:"review_score"`
	ErrorMessage    string              `json:"error_message" gorm:"size:2000"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	CompletedAt     *time.Time          `json:"completed_at"`
}

// TableName 指定表名
func (GenerationTask) TableName() string {
	return "generation_tasks"
}

// IsTerminal 任务是否已结束
func (t *GenerationTask) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}
