// Package orchestrator 串联知识检索、规划、生成、评审/优化与出图的配置生成流水线
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aiphoto/backend/internal/eventbus"
	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/repository"
	"github.com/aiphoto/backend/internal/service/agent"
	"github.com/aiphoto/backend/internal/service/knowledge"
	"github.com/aiphoto/backend/internal/service/statemachine"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"k8s.io/klog/v2"
)

// 进度检查点
const (
	progressKnowledge = 10
	progressPlan      = 25
	progressConfig    = 40
	progressLoopEnd   = 80
	progressImages    = 90
	progressDone      = 100
)

// 执行日志中的步骤名
const (
	stepKnowledge = "knowledge"
	stepUsage     = "knowledge_usage"
	stepCompleted = "completed"
	stepPersist   = "persist"
)

var (
	ErrOrchestratorBusy = errors.New("too many generation runs in progress")
	ErrTaskFinished     = errors.New("task already finished")
)

// KnowledgeSource 流水线使用的知识库能力
type KnowledgeSource interface {
	SmartSearch(ctx context.Context, description string) (*knowledge.SmartSearchResult, error)
	IncrementUsageCounts(ctx context.Context, ids []uint) int
}

// ImageStage 出图阶段
type ImageStage interface {
	Execute(ctx context.Context, sc *agent.StageContext) *model.AgentResult
}

// Stages 流水线各阶段，Images 为空时不出图
type Stages struct {
	Planner         *agent.Stage
	ConfigGenerator *agent.Stage
	Reviewer        *agent.Stage
	Optimizer       *agent.Stage
	Images          ImageStage
}

// Options 流水线默认参数
type Options struct {
	MaxIterations int
	EnableImage   bool
	MaxConcurrent int
}

// RunOptions 单次运行参数，零值使用默认配置
// MaxIterations 只能调低配置的上限
type RunOptions struct {
	TaskID          string
	EnableImage     *bool
	MaxIterations   int
	CategoryOptions []model.Category
}

// Orchestrator 配置生成流水线
type Orchestrator struct {
	tasks     repository.GenerationTaskRepository
	knowledge KnowledgeSource
	invoker   agent.TextInvoker
	stages    Stages
	bus       *eventbus.GenerationEventBus
	sm        *statemachine.TaskStateMachine
	opts      Options
	pool      *ants.Pool
	newTaskID func() string
}

// New 创建流水线，异步运行由大小为 MaxConcurrent 的协程池执行
func New(tasks repository.GenerationTaskRepository, ks KnowledgeSource, invoker agent.TextInvoker, stages Stages, bus *eventbus.GenerationEventBus, opts Options) (*Orchestrator, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 3
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	pool, err := ants.NewPool(opts.MaxConcurrent,
		ants.WithNonblocking(true),
		ants.WithExpiryDuration(5*time.Minute),
	)
	if err != nil {
		klog.Errorf("ants pool initialization failed: %v", err)
		return nil, err
	}
	if bus == nil {
		bus = eventbus.NewGenerationEventBus()
	}
	return &Orchestrator{
		tasks:     tasks,
		knowledge: ks,
		invoker:   invoker,
		stages:    stages,
		bus:       bus,
		sm:        statemachine.NewTaskStateMachine(),
		opts:      opts,
		pool:      pool,
		newTaskID: uuid.NewString,
	}, nil
}

// Close 等待释放协程池
func (o *Orchestrator) Close() {
	o.pool.Release()
}

// runState 一次运行的内存状态，任务记录只由当前运行写入
type runState struct {
	task      *model.GenerationTask
	start     time.Time
	sc        *agent.StageContext
	review    *model.ReviewResult
	images    *model.ImagesResult
	finalized bool
}

// Run 同步执行完整流水线，任何错误都转换为结构化结果，不会向调用方抛出
func (o *Orchestrator) Run(ctx context.Context, description string, opts RunOptions) (result *model.TaskResult) {
	start := time.Now()
	task, err := o.resolveTask(ctx, description, opts.TaskID)
	if err != nil {
		klog.Errorf("[Orchestrator] 创建任务记录失败: taskID=%s, error=%v", opts.TaskID, err)
		return &model.TaskResult{TaskID: opts.TaskID, Error: err.Error(), DurationMs: time.Since(start).Milliseconds()}
	}

	run := &runState{
		task:  task,
		start: start,
		sc: &agent.StageContext{
			TaskID:      task.TaskID,
			Description: description,
			Categories:  opts.CategoryOptions,
		},
	}

	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("[Orchestrator] 流水线 panic: taskID=%s, err=%v", task.TaskID, r)
			result = o.fail(ctx, run, task.CurrentStep, fmt.Sprintf("内部错误: %v", r))
		}
	}()

	if err := o.sm.Transition(task.Status, model.TaskStatusProcessing, task.TaskID); err != nil {
		return o.fail(ctx, run, "start", err.Error())
	}
	task.Status = model.TaskStatusProcessing
	o.persist(ctx, run)
	o.publish(ctx, eventbus.GenerationEventStarted, run, "")

	// 1. 知识检索，失败不影响后续阶段
	o.retrieveKnowledge(ctx, run)

	// 2. 规划
	planRes := o.runStage(ctx, run, o.stages.Planner)
	if !planRes.Success {
		return o.fail(ctx, run, agent.StagePlanner, planRes.Error)
	}
	plan := planRes.Data.(*model.Plan)
	run.sc.Plan = plan
	o.checkpoint(ctx, run, agent.StagePlanner, progressPlan,
		fmt.Sprintf("场景：%s（%s），步骤：%s", plan.SceneName, plan.SceneType, strings.Join(plan.RequiredSteps, " → ")))

	// 3. 生成配置
	cfgRes := o.runStage(ctx, run, o.stages.ConfigGenerator)
	if !cfgRes.Success {
		return o.fail(ctx, run, agent.StageConfigGenerator, cfgRes.Error)
	}
	run.sc.Config = cfgRes.Data.(*model.TemplateConfig)
	o.checkpoint(ctx, run, agent.StageConfigGenerator, progressConfig,
		fmt.Sprintf("生成 %d 个步骤，推荐分类：%s", len(run.sc.Config.Steps), categoryName(run.sc.Config)))

	// 4. 评审/优化循环
	o.reviewLoop(ctx, run, o.maxIterations(opts))

	// 5. 出图，失败不影响任务完成
	if o.imagesEnabled(opts) {
		o.generateImages(ctx, run)
	}

	// 6. 累加知识使用次数
	if len(task.KnowledgeUsed) > 0 {
		usageStart := time.Now()
		updated := o.knowledge.IncrementUsageCounts(ctx, task.KnowledgeUsed)
		o.logStep(run, stepUsage, fmt.Sprintf("更新 %d/%d 条", updated, len(task.KnowledgeUsed)), time.Since(usageStart))
	}

	return o.complete(ctx, run)
}

func (o *Orchestrator) retrieveKnowledge(ctx context.Context, run *runState) {
	start := time.Now()
	res, err := o.knowledge.SmartSearch(ctx, run.sc.Description)
	if err != nil {
		klog.Warningf("[Orchestrator] 知识检索失败，继续执行: taskID=%s, error=%v", run.task.TaskID, err)
		o.logStep(run, stepKnowledge, "失败: "+err.Error(), time.Since(start))
		o.checkpoint(ctx, run, stepKnowledge, progressKnowledge, "知识检索失败")
		return
	}
	run.sc.Knowledge = res
	run.task.KnowledgeUsed = res.IDs()
	summary := fmt.Sprintf("检索到 %d 条知识（模板 %d，提示词模式 %d，最佳实践 %d），关键词：%s",
		res.Total(), len(res.Templates), len(res.PromptPatterns), len(res.BestPractices), strings.Join(res.Keywords, "、"))
	o.logStep(run, stepKnowledge, summary, time.Since(start))
	o.checkpoint(ctx, run, stepKnowledge, progressKnowledge, summary)
}

// reviewLoop 最多执行 maxIterations 轮；优化失败保留上一版配置，轮数照常增加
func (o *Orchestrator) reviewLoop(ctx context.Context, run *runState, maxIterations int) {
	task := run.task
	for task.Iteration < maxIterations {
		reviewRes := o.runStage(ctx, run, o.stages.Reviewer)
		if !reviewRes.Success {
			klog.Warningf("[Orchestrator] 评审失败，沿用当前配置: taskID=%s, error=%s", task.TaskID, reviewRes.Error)
			break
		}
		review := reviewRes.Data.(*model.ReviewResult)
		run.review = review
		score := review.Score
		task.ReviewScore = &score
		if review.Passed {
			o.checkpoint(ctx, run, agent.StageReviewer, o.loopProgress(task.Iteration, maxIterations),
				fmt.Sprintf("评审通过，得分 %.1f", review.Score))
			break
		}

		run.sc.Review = review
		optRes := o.runStage(ctx, run, o.stages.Optimizer)
		if optRes.Success {
			run.sc.Config = optRes.Data.(*model.TemplateConfig)
		} else {
			klog.Warningf("[Orchestrator] 优化失败，保留上一版配置: taskID=%s, error=%s", task.TaskID, optRes.Error)
		}
		task.Iteration++
		o.checkpoint(ctx, run, agent.StageOptimizer, o.loopProgress(task.Iteration, maxIterations),
			fmt.Sprintf("第 %d 轮：评审得分 %.1f，严重问题 %d 个，优化%s", task.Iteration, review.Score, len(review.CriticalIssues), successText(optRes.Success)))
	}
	if run.review != nil && !run.review.Passed && task.Iteration >= maxIterations {
		klog.Warningf("[Orchestrator] 达到最大迭代次数仍未通过评审，采用最后一版配置: taskID=%s, iterations=%d", task.TaskID, task.Iteration)
	}
}

func (o *Orchestrator) generateImages(ctx context.Context, run *runState) {
	res := o.stages.Images.Execute(ctx, run.sc)
	if res.Success {
		o.logStep(run, agent.StageImageGenerator, "成功", res.Duration)
	} else {
		o.logStep(run, agent.StageImageGenerator, "失败: "+res.Error, res.Duration)
	}

	if images, ok := res.Data.(*model.ImagesResult); ok && images != nil && (images.CoverImage != nil || images.ReferenceImage != nil) {
		run.images = images
	}
	summary := "图片生成完成"
	if !res.Success {
		summary = "图片生成失败: " + res.Error
	}
	o.checkpoint(ctx, run, agent.StageImageGenerator, progressImages, summary)
}

func (o *Orchestrator) runStage(ctx context.Context, run *runState, stage *agent.Stage) *model.AgentResult {
	run.task.CurrentStep = stage.Name
	res := agent.Execute(ctx, o.invoker, stage, run.sc)
	if res.Success {
		o.logStep(run, stage.Name, "成功", res.Duration)
	} else {
		o.logStep(run, stage.Name, "失败: "+res.Error, res.Duration)
	}
	return res
}

func (o *Orchestrator) complete(ctx context.Context, run *runState) *model.TaskResult {
	task := run.task
	if err := o.sm.Transition(task.Status, model.TaskStatusCompleted, task.TaskID); err != nil {
		return o.fail(ctx, run, stepCompleted, err.Error())
	}
	now := time.Now()
	task.Status = model.TaskStatusCompleted
	task.CurrentStep = stepCompleted
	task.Progress = progressDone
	task.ConfigResult = run.sc.Config
	task.ImagesResult = run.images
	task.CompletedAt = &now
	o.logStep(run, stepCompleted, fmt.Sprintf("迭代 %d 轮", task.Iteration), 0)
	o.persistFinal(ctx, run)
	o.publish(ctx, eventbus.GenerationEventCompleted, run, "")

	return &model.TaskResult{
		Success:       true,
		TaskID:        task.TaskID,
		Config:        run.sc.Config,
		Images:        run.images,
		Review:        run.review,
		Iterations:    task.Iteration,
		DurationMs:    time.Since(run.start).Milliseconds(),
		KnowledgeUsed: task.KnowledgeUsed,
		ExecutionLog:  task.ExecutionLog,
	}
}

func (o *Orchestrator) fail(ctx context.Context, run *runState, step, message string) *model.TaskResult {
	task := run.task
	if !run.finalized {
		if err := o.sm.Transition(task.Status, model.TaskStatusFailed, task.TaskID); err != nil {
			klog.Warningf("[Orchestrator] 任务状态异常: %v", err)
		}
		now := time.Now()
		task.Status = model.TaskStatusFailed
		task.ErrorMessage = message
		task.CompletedAt = &now
		if step != "" {
			task.CurrentStep = step
		}
		o.persistFinal(ctx, run)
		o.publish(ctx, eventbus.GenerationEventFailed, run, message)
	}
	return &model.TaskResult{
		TaskID:        task.TaskID,
		Review:        run.review,
		Iterations:    task.Iteration,
		DurationMs:    time.Since(run.start).Milliseconds(),
		KnowledgeUsed: task.KnowledgeUsed,
		Error:         message,
		ExecutionLog:  task.ExecutionLog,
	}
}

func (o *Orchestrator) maxIterations(opts RunOptions) int {
	if opts.MaxIterations > 0 {
		return min(opts.MaxIterations, o.opts.MaxIterations)
	}
	return o.opts.MaxIterations
}

func (o *Orchestrator) imagesEnabled(opts RunOptions) bool {
	if o.stages.Images == nil {
		return false
	}
	if opts.EnableImage != nil {
		return *opts.EnableImage
	}
	return o.opts.EnableImage
}

func (o *Orchestrator) loopProgress(iteration, maxIterations int) int {
	if maxIterations <= 0 {
		return progressLoopEnd
	}
	return progressConfig + (progressLoopEnd-progressConfig)*iteration/maxIterations
}

func categoryName(cfg *model.TemplateConfig) string {
	if cfg.RecommendedCategory == nil {
		return "无"
	}
	return cfg.RecommendedCategory.Name
}

func successText(ok bool) string {
	if ok {
		return "成功"
	}
	return "失败"
}
