// Package agent 流水线各阶段：构造提示词、调用模型、解析响应
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/aiphoto/backend/config"
	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/pkg/llm"
	"github.com/aiphoto/backend/internal/pkg/metrics"
	"github.com/aiphoto/backend/internal/service/knowledge"
	"github.com/aiphoto/backend/internal/utils"
	"k8s.io/klog/v2"
)

// 阶段名称
const (
	StagePlanner         = "planner"
	StageConfigGenerator = "config_generator"
	StageReviewer        = "reviewer"
	StageOptimizer       = "optimizer"
	StageImageGenerator  = "image_generator"
)

// TextInvoker 阶段调用文本模型的入口，由 llm.Invoker 实现
type TextInvoker interface {
	Complete(ctx context.Context, prompt llm.Prompt, opts llm.CompleteOptions) (string, error)
}

// Options 阶段的模型调用参数
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OptionsFromConfig 读取配置中某个阶段的参数
func OptionsFromConfig(cfg *config.Config, stage string) Options {
	sc := cfg.Stage(stage)
	return Options{
		Temperature: sc.Temperature,
		MaxTokens:   sc.MaxTokens,
		Timeout:     sc.Timeout,
	}
}

// StageContext 一次运行中在阶段间传递的数据
type StageContext struct {
	TaskID      string
	Description string
	Knowledge   *knowledge.SmartSearchResult
	Plan        *model.Plan
	Config      *model.TemplateConfig
	Review      *model.ReviewResult
	Categories  []model.Category
}

// Stage 一个文本阶段由提示词构造与响应解析两部分组成
type Stage struct {
	Name          string
	Options       Options
	BuildPrompt   func(sc *StageContext) (llm.Prompt, error)
	ParseResponse func(raw string, sc *StageContext) (any, error)
}

// Execute 运行一个文本阶段，任何错误都转换为失败的 AgentResult
func Execute(ctx context.Context, invoker TextInvoker, stage *Stage, sc *StageContext) (result *model.AgentResult) {
	start := time.Now()
	defer func() {
		if result == nil {
			return
		}
		result.Duration = time.Since(start)
		metrics.ObserveStage(stage.Name, result.Success, result.Duration)
	}()

	klog.V(6).Infof("[Agent] 阶段开始: stage=%s, taskID=%s", stage.Name, sc.TaskID)

	prompt, err := stage.BuildPrompt(sc)
	if err != nil {
		klog.Errorf("[Agent] 构造提示词失败: stage=%s, error=%v", stage.Name, err)
		return &model.AgentResult{Error: fmt.Sprintf("%s 构造提示词失败: %v", stage.Name, err)}
	}

	raw, err := invoker.Complete(ctx, prompt, llm.CompleteOptions{
		Stage:       stage.Name,
		Model:       stage.Options.Model,
		Temperature: stage.Options.Temperature,
		MaxTokens:   stage.Options.MaxTokens,
		Timeout:     stage.Options.Timeout,
	})
	if err != nil {
		klog.Errorf("[Agent] 模型调用失败: stage=%s, error=%v", stage.Name, err)
		return &model.AgentResult{Error: fmt.Sprintf("%s 模型调用失败: %v", stage.Name, err)}
	}
	klog.V(8).Infof("[Agent] 模型原始响应: stage=%s, content=%s", stage.Name, utils.Truncate(raw, 2000))

	data, err := stage.ParseResponse(raw, sc)
	if err != nil {
		klog.Errorf("[Agent] 解析响应失败: stage=%s, error=%v", stage.Name, err)
		return &model.AgentResult{Error: fmt.Sprintf("%s 解析响应失败: %v", stage.Name, err)}
	}

	klog.V(6).Infof("[Agent] 阶段完成: stage=%s, duration=%v", stage.Name, time.Since(start))
	return &model.AgentResult{Success: true, Data: data}
}
