package subscriber

import (
	"context"
	"testing"

	"github.com/aiphoto/backend/internal/eventbus"
	"github.com/aiphoto/backend/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGenerationEventSubscriberCountsRuns(t *testing.T) {
	bus := eventbus.NewGenerationEventBus()
	NewGenerationEventSubscriber().Register(bus)

	completedBefore := testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("completed"))
	failedBefore := testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("failed"))

	ctx := context.Background()
	if err := bus.Publish(ctx, eventbus.GenerationEventCompleted, eventbus.GenerationEvent{TaskID: "t1", Iteration: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bus.Publish(ctx, eventbus.GenerationEventFailed, eventbus.GenerationEvent{TaskID: "t2", Error: "planner failed"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bus.Publish(ctx, eventbus.GenerationEventProgress, eventbus.GenerationEvent{TaskID: "t1", Progress: 40}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("completed")) - completedBefore; got != 1 {
		t.Errorf("completed runs delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("failed")) - failedBefore; got != 1 {
		t.Errorf("failed runs delta = %v, want 1", got)
	}
}
