package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aiphoto/backend/internal/model"
	"github.com/panjf2000/ants/v2"
	"k8s.io/klog/v2"
)

// RunAsync 创建任务记录后在协程池中运行，立即返回 taskID
// 协程池已满时任务直接标记为失败并返回 ErrOrchestratorBusy
func (o *Orchestrator) RunAsync(ctx context.Context, description string, opts RunOptions) (string, error) {
	task, err := o.resolveTask(ctx, description, opts.TaskID)
	if err != nil {
		return opts.TaskID, err
	}
	opts.TaskID = task.TaskID

	runCtx := context.WithoutCancel(ctx)
	err = o.pool.Submit(func() {
		res := o.Run(runCtx, description, opts)
		if !res.Success {
			klog.Warningf("[Orchestrator] 异步任务失败: taskID=%s, error=%s", res.TaskID, res.Error)
		}
	})
	if err == nil {
		klog.V(6).Infof("[Orchestrator] 任务已提交: taskID=%s, running=%d", task.TaskID, o.pool.Running())
		return task.TaskID, nil
	}

	if errors.Is(err, ants.ErrPoolOverload) {
		err = ErrOrchestratorBusy
	}
	klog.Errorf("[Orchestrator] 提交任务失败: taskID=%s, error=%v", task.TaskID, err)
	now := time.Now()
	task.Status = model.TaskStatusFailed
	task.ErrorMessage = fmt.Sprintf("提交任务失败: %v", err)
	task.CompletedAt = &now
	if saveErr := o.tasks.Save(runCtx, task); saveErr != nil {
		klog.Errorf("[Orchestrator] 保存任务状态失败: taskID=%s, error=%v", task.TaskID, saveErr)
	}
	return task.TaskID, err
}

// Running 当前正在执行的异步任务数
func (o *Orchestrator) Running() int {
	return o.pool.Running()
}
