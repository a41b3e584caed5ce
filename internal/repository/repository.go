package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aiphoto/backend/internal/model"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

// KnowledgeFilter 知识检索过滤条件
type KnowledgeFilter struct {
	Category   model.KnowledgeCategory
	Limit      int
	MinScore   float64
	OnlyActive bool
}

// KnowledgeRepository 知识条目仓储接口
type KnowledgeRepository interface {
	// Create 新增知识条目
	Create(ctx context.Context, entry *model.KnowledgeEntry) error

	// Get 根据 ID 获取
	Get(ctx context.Context, id uint) (*model.KnowledgeEntry, error)

	// Save 更新知识条目
	Save(ctx context.Context, entry *model.KnowledgeEntry) error

	// Search 按关键词检索，结果按 quality_score、usage_count 降序
	Search(ctx context.Context, keyword string, filter KnowledgeFilter) ([]model.KnowledgeEntry, error)

	// IncrementUsage 使用次数加一
	IncrementUsage(ctx context.Context, id uint) error

	// Count 统计条目总数
	Count(ctx context.Context) (int64, error)

	// Exists 同分类下是否已有同名条目
	Exists(ctx context.Context, category model.KnowledgeCategory, name string) (bool, error)
}

// GenerationTaskRepository 生成任务记录仓储接口
type GenerationTaskRepository interface {
	Create(ctx context.Context, task *model.GenerationTask) error
	GetByTaskID(ctx context.Context, taskID string) (*model.GenerationTask, error)
	Save(ctx context.Context, task *model.GenerationTask) error
	CleanupStuckTasks(ctx context.Context, timeout time.Duration) (int64, error)
}
