package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aiphoto/backend/internal/model"
	"gorm.io/gorm"
)

type generationTaskRepository struct {
	db *gorm.DB
}

// NewGenerationTaskRepository 创建生成任务仓储
func NewGenerationTaskRepository(db *gorm.DB) GenerationTaskRepository {
	return &generationTaskRepository{db: db}
}

func (r *generationTaskRepository) Create(ctx context.Context, task *model.GenerationTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *generationTaskRepository) GetByTaskID(ctx context.Context, taskID string) (*model.GenerationTask, error) {
	var task model.GenerationTask
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *generationTaskRepository) Save(ctx context.Context, task *model.GenerationTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// CleanupStuckTasks 将超时仍处于 processing 的任务标记为失败
// 服务重启后这些运行已经丢失，不会再有人更新它们
func (r *generationTaskRepository) CleanupStuckTasks(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-timeout)
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&model.GenerationTask{}).
		Where("status = ? AND updated_at < ?", model.TaskStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        model.TaskStatusFailed,
			"error_message": fmt.Sprintf("任务超时（超过 %v），已自动标记为失败", timeout),
			"completed_at":  &now,
		})
	return result.RowsAffected, result.Error
}
