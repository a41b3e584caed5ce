package statemachine

import (
	"fmt"

	"github.com/aiphoto/backend/internal/model"
	"k8s.io/klog/v2"
)

// TaskTransition 生成任务状态迁移
type TaskTransition struct {
	From model.TaskStatus
	To   model.TaskStatus
}

// TaskStateMachine 生成任务状态机
// pending -> processing -> completed/failed，pending 也可直接失败
// completed/failed 为终止态，不再迁移
type TaskStateMachine struct {
	allowedTransitions map[TaskTransition]bool
}

// NewTaskStateMachine 创建任务状态机
func NewTaskStateMachine() *TaskStateMachine {
	sm := &TaskStateMachine{
		allowedTransitions: make(map[TaskTransition]bool),
	}

	transitions := []TaskTransition{
		{model.TaskStatusPending, model.TaskStatusProcessing},
		{model.TaskStatusPending, model.TaskStatusFailed},
		{model.TaskStatusProcessing, model.TaskStatusCompleted},
		{model.TaskStatusProcessing, model.TaskStatusFailed},
	}
	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}
	return sm
}

// CanTransition 检查状态迁移是否合法
func (sm *TaskStateMachine) CanTransition(from, to model.TaskStatus) bool {
	if from == to {
		return false
	}
	return sm.allowedTransitions[TaskTransition{From: from, To: to}]
}

// Transition 执行状态迁移（带日志）
func (sm *TaskStateMachine) Transition(from, to model.TaskStatus, taskID string) error {
	if !sm.CanTransition(from, to) {
		err := &InvalidStateTransitionError{From: string(from), To: string(to)}
		klog.V(6).Infof("任务状态迁移被拒绝: taskID=%s, %s -> %s", taskID, from, to)
		return err
	}
	klog.V(6).Infof("任务状态迁移成功: taskID=%s, %s -> %s", taskID, from, to)
	return nil
}

// InvalidStateTransitionError 无效的状态迁移错误
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid task state transition: %s -> %s", e.From, e.To)
}
