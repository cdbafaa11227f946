// Package cache 提供匯入結果的快取，支援記憶體與 Redis 兩種後端。
package cache

import (
	"context"
	"fmt"

	"recipe-importer/internal/infrastructure/config"
)

// Cache 快取介面，未命中時回傳 common.ErrCacheMiss
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// New 依設定建立快取，停用時回傳 nil
func New(ctx context.Context, cfg *config.Config) (Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		r, err := NewRedis(ctx, cfg.Redis, cfg.Cache)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "memory", "":
		return NewManager(cfg.Cache), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
