package api

import (
	"context"
	"time"

	"recipe-importer/internal/api/handlers/health"
	"recipe-importer/internal/api/handlers/importer"
	"recipe-importer/internal/api/middleware"
	"recipe-importer/internal/core/parser"
	"recipe-importer/internal/core/queue"
	"recipe-importer/internal/core/session"
	"recipe-importer/internal/core/source"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 同步請求（儲存、健康檢查）的超時
	timeoutDuration = 60 * time.Second
	// 請求體大小上限的預設值，base64 圖片約為原始大小的 4/3
	defaultMaxBodySize = 16 << 20
)

// Services 路由使用的服務，由 main 組裝
type Services struct {
	Registry     *session.Registry
	Queue        *queue.Manager
	Classifier   *source.Classifier
	Parser       *parser.Engine
	Checks       map[string]health.Check
	Deduplicator *middleware.Deduplicator
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	maxBodySize := cfg.Server.MaxBodyBytes
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	router.Use(middleware.BodySizeLimit(maxBodySize))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	healthHandler := health.NewHandler(cfg.App.Version, svc.Checks, svc.Queue, svc.Registry.Len)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	v1 := router.Group("/api/v1")
	if svc.Deduplicator != nil {
		v1.Use(svc.Deduplicator.Middleware())
	}
	importer.NewHandler(svc.Registry, svc.Queue, svc.Classifier, svc.Parser, cfg.Session.RunTimeout).Register(v1)

	common.LogInfo("Router setup completed successfully",
		zap.Int64("max_body_size", maxBodySize),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("deduplication", svc.Deduplicator != nil),
		zap.Duration("run_timeout", cfg.Session.RunTimeout),
	)
	return router
}
