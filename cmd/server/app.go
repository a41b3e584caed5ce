package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aiphoto/backend/config"
	"github.com/aiphoto/backend/internal/eventbus"
	"github.com/aiphoto/backend/internal/pkg/database"
	"github.com/aiphoto/backend/internal/pkg/llm"
	"github.com/aiphoto/backend/internal/pkg/storage"
	"github.com/aiphoto/backend/internal/repository"
	"github.com/aiphoto/backend/internal/service/agent"
	"github.com/aiphoto/backend/internal/service/knowledge"
	"github.com/aiphoto/backend/internal/service/orchestrator"
	"github.com/aiphoto/backend/internal/subscriber"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
)

// app 进程内共享的组件，启动时创建一次
type app struct {
	cfg          *config.Config
	db           *gorm.DB
	knowledge    *knowledge.Store
	objects      storage.ObjectStore
	orchestrator *orchestrator.Orchestrator
	closers      []func()
}

func newKnowledgeStore(cfg *config.Config) (*knowledge.Store, *gorm.DB, error) {
	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return knowledge.NewStore(repository.NewKnowledgeRepository(db), cfg.Knowledge.DefaultLimit), db, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, db, err := newKnowledgeStore(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db, knowledge: store}
	a.closers = append(a.closers, func() { closeDB(db) })

	textClient, err := llm.NewChatTextClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create text model client: %w", err)
	}
	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}
	a.objects = objects
	if nc, ok := objects.(*storage.NATSStore); ok {
		a.closers = append(a.closers, nc.Close)
	}

	invokerOpts := []llm.InvokerOption{}
	if cfg.Image.APIKey != "" {
		imageClient, err := llm.NewGeminiImageClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create image model client: %w", err)
		}
		a.closers = append(a.closers, func() { imageClient.Close() })
		invokerOpts = append(invokerOpts, llm.WithImageClient(imageClient))
	} else {
		klog.Warning("[App] 未配置图像生成服务，跳过出图阶段")
	}

	invoker := llm.NewInvoker(textClient, cfg.Pipeline.MaxAttempts, cfg.Pipeline.RetryBaseDelay, invokerOpts...)
	var images orchestrator.ImageStage
	if invoker.HasImageClient() {
		images = agent.NewImageGenerator(invoker, a.objects, cfg.Image.Timeout)
	}

	bus := eventbus.NewGenerationEventBus()
	subscriber.NewGenerationEventSubscriber().Register(bus)

	stages := orchestrator.Stages{
		Planner:         agent.NewPlanner(agent.OptionsFromConfig(cfg, agent.StagePlanner)),
		ConfigGenerator: agent.NewConfigGenerator(agent.OptionsFromConfig(cfg, agent.StageConfigGenerator)),
		Reviewer:        agent.NewReviewer(agent.OptionsFromConfig(cfg, agent.StageReviewer)),
		Optimizer:       agent.NewOptimizer(agent.OptionsFromConfig(cfg, agent.StageOptimizer)),
		Images:          images,
	}
	orch, err := orchestrator.New(repository.NewGenerationTaskRepository(db), store, invoker, stages, bus, orchestrator.Options{
		MaxIterations: cfg.Pipeline.MaxIterations,
		EnableImage:   cfg.Pipeline.EnableImage,
		MaxConcurrent: cfg.Pipeline.MaxConcurrent,
	})
	if err != nil {
		return nil, err
	}
	a.orchestrator = orch
	a.closers = append(a.closers, orch.Close)
	return a, nil
}

// seedKnowledge 知识库为空时导入种子数据，配置了 seed_file 时优先使用
func (a *app) seedKnowledge(ctx context.Context) {
	n, err := a.knowledge.SeedIfEmpty(ctx, a.cfg.Knowledge.SeedFile)
	if err != nil {
		klog.Errorf("[App] 导入知识库种子数据失败: %v", err)
		return
	}
	if n > 0 {
		klog.Infof("[App] 已导入 %d 条知识库种子数据", n)
	}
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		klog.Warningf("[App] 关闭数据库失败: %v", err)
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
