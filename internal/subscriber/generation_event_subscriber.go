package subscriber

import (
	"context"

	"github.com/aiphoto/backend/internal/eventbus"
	"github.com/aiphoto/backend/internal/pkg/metrics"
	"k8s.io/klog/v2"
)

// GenerationEventSubscriber 记录生成任务的进度日志与运行指标
type GenerationEventSubscriber struct{}

func NewGenerationEventSubscriber() *GenerationEventSubscriber {
	return &GenerationEventSubscriber{}
}

func (s *GenerationEventSubscriber) Register(bus *eventbus.GenerationEventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(eventbus.GenerationEventStarted, s.handleStarted)
	bus.Subscribe(eventbus.GenerationEventProgress, s.handleProgress)
	bus.Subscribe(eventbus.GenerationEventCompleted, s.handleCompleted)
	bus.Subscribe(eventbus.GenerationEventFailed, s.handleFailed)
}

func (s *GenerationEventSubscriber) handleStarted(ctx context.Context, event eventbus.GenerationEvent) error {
	klog.V(6).Infof("生成任务开始: taskID=%s", event.TaskID)
	return nil
}

func (s *GenerationEventSubscriber) handleProgress(ctx context.Context, event eventbus.GenerationEvent) error {
	klog.V(6).Infof("生成任务进度: taskID=%s, step=%s, progress=%d, iteration=%d", event.TaskID, event.Step, event.Progress, event.Iteration)
	return nil
}

func (s *GenerationEventSubscriber) handleCompleted(ctx context.Context, event eventbus.GenerationEvent) error {
	metrics.RunsTotal.WithLabelValues("completed").Inc()
	metrics.ReviewIterations.Observe(float64(event.Iteration))
	score := -1.0
	if event.ReviewScore != nil {
		score = *event.ReviewScore
	}
	klog.Infof("生成任务完成: taskID=%s, iterations=%d, reviewScore=%.1f, duration=%v", event.TaskID, event.Iteration, score, event.Duration)
	return nil
}

func (s *GenerationEventSubscriber) handleFailed(ctx context.Context, event eventbus.GenerationEvent) error {
	metrics.RunsTotal.WithLabelValues("failed").Inc()
	klog.Errorf("生成任务失败: taskID=%s, step=%s, error=%s", event.TaskID, event.Step, event.Error)
	return nil
}
