package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aiphoto/backend/config"
	"github.com/aiphoto/backend/internal/handler"
	"github.com/aiphoto/backend/internal/pkg/storage"
	"github.com/aiphoto/backend/internal/router"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	klog.V(6).Info("服务启动中...")
	cfg := config.GetConfig()
	if servePort != "" {
		cfg.Server.Port = servePort
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// 启动时清理上次进程遗留的 processing 任务
	if _, err := a.orchestrator.CleanupStuckTasks(ctx, cfg.Pipeline.StuckTimeout); err != nil {
		klog.Warningf("清理卡住任务失败: %v", err)
	}
	if cfg.Knowledge.SeedOnStart {
		a.seedKnowledge(ctx)
	}

	var objects storage.ObjectReader
	if reader, ok := a.objects.(storage.ObjectReader); ok {
		objects = reader
	}
	r := router.Setup(cfg,
		handler.NewGenerationHandler(a.orchestrator),
		handler.NewKnowledgeHandler(a.knowledge),
		objects,
	)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		klog.Infof("Server starting on port %s...", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	klog.Info("服务关闭中...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
