package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-importer/internal/api"
	"recipe-importer/internal/api/middleware"
	"recipe-importer/internal/app"
	"recipe-importer/internal/core/parser"
	"recipe-importer/internal/core/queue"
	"recipe-importer/internal/core/session"
	"recipe-importer/internal/core/source"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（包含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("import_service_url", cfg.ImportService.BaseURL),
		zap.String("import_service_api_key", config.MaskAPIKey(cfg.ImportService.APIKey)),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
		zap.String("store_backend", cfg.Store.Backend),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	services, err := app.Build(ctx, cfg)
	cancel()
	if err != nil {
		common.LogFatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	registry := session.NewRegistry(services.Deps, cfg.Session.IdleTTL, cfg.Session.CleanupInterval)
	defer registry.Close()

	queueManager := queue.NewManager(cfg.Queue)
	defer queueManager.Close()

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)
	defer dedup.Close()

	router := api.SetupRouter(cfg, api.Services{
		Registry:     registry,
		Queue:        queueManager,
		Classifier:   source.NewClassifier(),
		Parser:       parser.New(),
		Checks:       services.Checks,
		Deduplicator: dedup,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited", zap.Int64("processed_imports", queueManager.GetQueueStatus().ProcessedCount))
}
