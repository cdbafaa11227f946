// Package app 依設定組裝匯入流程使用的服務，供 HTTP 服務與 CLI 共用。
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-importer/internal/api/handlers/health"
	"recipe-importer/internal/core/cache"
	"recipe-importer/internal/core/image"
	"recipe-importer/internal/core/remote"
	"recipe-importer/internal/core/session"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/infrastructure/store"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// App 組裝完成的服務
type App struct {
	Deps    session.Dependencies
	Checks  map[string]health.Check
	Store   *store.Store
	closers []func() error
}

// Build 建立快取、遠端服務、預處理器與食譜儲存
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Deps: session.Dependencies{
			ImageLimits:  image.Limits{MinSizeBytes: cfg.Image.MinSizeBytes, MaxSizeBytes: cfg.Image.MaxSizeBytes},
			RetryDelays:  cfg.Retry.Delays(),
			TextStrategy: session.TextStrategy(cfg.Session.TextStrategy),
			Language:     cfg.OCR.Language,
		},
		Checks: make(map[string]health.Check),
	}

	c, err := cache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	if c != nil {
		a.closers = append(a.closers, c.Close)
		if r, ok := c.(*cache.Redis); ok {
			a.Checks["cache"] = r.Ping
		}
	}

	var svc *remote.Service
	if cfg.ImportService.Enabled {
		svc = remote.NewService(cfg.ImportService)
		a.Deps.Importer = remote.NewCachedImporter(svc, c)
		a.Deps.Extractor = svc
		a.Deps.Structurer = svc
		a.Checks["import_service"] = svc.Ping
	}
	if cfg.OpenRouter.Enabled {
		a.Deps.Structurer = remote.NewOpenRouterStructurer(cfg.OpenRouter)
	}

	if cfg.OCR.Preprocess {
		ops, err := image.ParseOperations(cfg.OCR.Operations)
		if err != nil {
			a.Close()
			return nil, err
		}
		var proc image.Processor = image.NewLocalProcessor()
		if cfg.OCR.RemotePreprocess && svc != nil {
			proc = svc
		}
		a.Deps.Preprocessor = image.NewPreprocessor(proc, ops)
	}

	switch cfg.Store.Backend {
	case "remote":
		if svc == nil {
			a.Close()
			return nil, errors.New("remote store requires the import service")
		}
		a.Deps.Saver = svc
	default:
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Store = st
		a.Deps.Saver = st
		a.Checks["store"] = func(ctx context.Context) error { return st.HealthCheck(ctx, 2*time.Second) }
		a.closers = append(a.closers, st.Close)
	}

	common.LogInfo("服務組裝完成",
		zap.Bool("import_service", svc != nil),
		zap.Bool("openrouter", cfg.OpenRouter.Enabled),
		zap.Bool("cache", c != nil),
		zap.Bool("preprocess", a.Deps.Preprocessor != nil),
		zap.String("store", cfg.Store.Backend),
		zap.String("text_strategy", cfg.Session.TextStrategy),
	)
	return a, nil
}

// Close 依建立的相反順序釋放資源
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			common.LogWarn("釋放資源失敗", zap.Error(err))
		}
	}
	a.closers = nil
}
