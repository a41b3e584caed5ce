package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aiphoto/backend/internal/eventbus"
	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/repository"
	"k8s.io/klog/v2"
)

// ErrTaskRunning 任务已被其他运行占用
var ErrTaskRunning = errors.New("task already processing")

// resolveTask 创建新的任务记录，或接管调用方预先创建的 pending 记录
func (o *Orchestrator) resolveTask(ctx context.Context, description, taskID string) (*model.GenerationTask, error) {
	if taskID != "" {
		task, err := o.tasks.GetByTaskID(ctx, taskID)
		switch {
		case err == nil:
			if task.IsTerminal() {
				return nil, fmt.Errorf("%w: taskID=%s, status=%s", ErrTaskFinished, taskID, task.Status)
			}
			if task.Status != model.TaskStatusPending {
				return nil, fmt.Errorf("%w: taskID=%s", ErrTaskRunning, taskID)
			}
			if task.UserDescription == "" {
				task.UserDescription = description
			}
			return task, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("load task: %w", err)
		}
	} else {
		taskID = o.newTaskID()
	}

	task := &model.GenerationTask{
		TaskID:          taskID,
		UserDescription: description,
		Status:          model.TaskStatusPending,
	}
	if err := o.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// checkpoint 记录步骤摘要与进度，落库并发布进度事件
func (o *Orchestrator) checkpoint(ctx context.Context, run *runState, step string, progress int, summary string) {
	task := run.task
	task.CurrentStep = step
	if progress > task.Progress {
		task.Progress = progress
	}
	task.StepOutputs = append(task.StepOutputs, model.StepOutput{Step: step, Summary: summary})
	o.persist(ctx, run)
	o.publish(ctx, eventbus.GenerationEventProgress, run, "")
}

func (o *Orchestrator) logStep(run *runState, step, result string, d time.Duration) {
	run.task.ExecutionLog = append(run.task.ExecutionLog, model.ExecutionLogEntry{
		Step:       step,
		Result:     result,
		DurationMs: d.Milliseconds(),
	})
}

// persist 中间状态落库，失败只记录日志；任务结束后不再写入
func (o *Orchestrator) persist(ctx context.Context, run *runState) {
	if run.finalized {
		return
	}
	if err := o.tasks.Save(ctx, run.task); err != nil {
		klog.Warningf("[Orchestrator] 保存任务进度失败: taskID=%s, step=%s, error=%v", run.task.TaskID, run.task.CurrentStep, err)
	}
}

// persistFinal 写入终止状态，调用方取消后仍需落库。
// 保存失败时追加一条 persist 执行日志，返回结果中可见。
func (o *Orchestrator) persistFinal(ctx context.Context, run *runState) {
	if run.finalized {
		return
	}
	run.finalized = true
	start := time.Now()
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.tasks.Save(saveCtx, run.task); err != nil {
		klog.Errorf("[Orchestrator] 保存任务结果失败: taskID=%s, status=%s, error=%v", run.task.TaskID, run.task.Status, err)
		o.logStep(run, stepPersist, "保存任务结果失败: "+err.Error(), time.Since(start))
	}
}

func (o *Orchestrator) publish(ctx context.Context, eventType eventbus.GenerationEventType, run *runState, errMsg string) {
	task := run.task
	event := eventbus.GenerationEvent{
		Type:        eventType,
		TaskID:      task.TaskID,
		Step:        task.CurrentStep,
		Progress:    task.Progress,
		Iteration:   task.Iteration,
		ReviewScore: task.ReviewScore,
		Error:       errMsg,
		Duration:    time.Since(run.start),
	}
	if err := o.bus.Publish(context.WithoutCancel(ctx), eventType, event); err != nil {
		klog.Warningf("[Orchestrator] 事件处理失败: taskID=%s, type=%s, error=%v", task.TaskID, eventType, err)
	}
}

// GetStatus 查询任务记录，不存在时返回 nil
func (o *Orchestrator) GetStatus(ctx context.Context, taskID string) (*model.GenerationTask, error) {
	task, err := o.tasks.GetByTaskID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// CleanupStuckTasks 启动时将上次进程遗留的 processing 任务标记为失败
func (o *Orchestrator) CleanupStuckTasks(ctx context.Context, timeout time.Duration) (int64, error) {
	n, err := o.tasks.CleanupStuckTasks(ctx, timeout)
	if err != nil {
		klog.Errorf("[Orchestrator] 清理卡住的任务失败: %v", err)
		return 0, err
	}
	if n > 0 {
		klog.Infof("[Orchestrator] 已将 %d 个卡住的任务标记为失败", n)
	}
	return n, nil
}
