// Package metrics 流水线运行指标，通过 /metrics 暴露给 Prometheus
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageDuration 各阶段耗时
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aiphoto",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
	}, []string{"stage", "outcome"})

	// ModelRetries 模型调用重试次数
	ModelRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aiphoto",
		Subsystem: "llm",
		Name:      "retries_total",
		Help:      "Retried generative model calls.",
	}, []string{"operation", "stage"})

	// ModelCalls 模型调用结果
	ModelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aiphoto",
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "Generative model calls by outcome.",
	}, []string{"operation", "outcome"})

	// RunsTotal 流水线运行结束状态
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aiphoto",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Finished pipeline runs by status.",
	}, []string{"status"})

	// ReviewIterations 每次运行消耗的评审/优化轮数
	ReviewIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aiphoto",
		Subsystem: "pipeline",
		Name:      "review_iterations",
		Help:      "Review/optimize cycles taken per run.",
		Buckets:   []float64{0, 1, 2, 3, 4, 5},
	})
)

// ObserveStage 记录阶段耗时
func ObserveStage(stage string, success bool, d time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	StageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
}
