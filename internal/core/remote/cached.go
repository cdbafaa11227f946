package remote

import (
	"context"
	"encoding/json"
	"errors"

	"recipe-importer/internal/core/cache"
	"recipe-importer/internal/core/source"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// CachedImporter 以快取包裝 Importer，只快取成功的結果
type CachedImporter struct {
	next  Importer
	cache cache.Cache
}

// NewCachedImporter 建立快取包裝，cache 為 nil 時直接回傳 next
func NewCachedImporter(next Importer, c cache.Cache) Importer {
	if c == nil {
		return next
	}
	return &CachedImporter{next: next, cache: c}
}

// ImportFromURL 匯入一般網頁食譜
func (c *CachedImporter) ImportFromURL(ctx context.Context, url string, opts Options) (*ImportResponse, error) {
	return c.cached(ctx, cacheKey("url", url, opts), func() (*ImportResponse, error) {
		return c.next.ImportFromURL(ctx, url, opts)
	})
}

// ImportFromSocial 匯入社群貼文食譜
func (c *CachedImporter) ImportFromSocial(ctx context.Context, platform source.Platform, url string, opts Options) (*ImportResponse, error) {
	return c.cached(ctx, cacheKey("social:"+string(platform), url, opts), func() (*ImportResponse, error) {
		return c.next.ImportFromSocial(ctx, platform, url, opts)
	})
}

// ImportFromText 匯入貼上的文字
func (c *CachedImporter) ImportFromText(ctx context.Context, text string, opts Options) (*ImportResponse, error) {
	return c.cached(ctx, cacheKey("text", text, opts), func() (*ImportResponse, error) {
		return c.next.ImportFromText(ctx, text, opts)
	})
}

func (c *CachedImporter) cached(ctx context.Context, key string, load func() (*ImportResponse, error)) (*ImportResponse, error) {
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var resp ImportResponse
		if err := json.Unmarshal([]byte(raw), &resp); err == nil {
			return &resp, nil
		}
		common.LogWarn("cached import is corrupt, reloading", zap.String("key", key))
	} else if !errors.Is(err, common.ErrCacheMiss) {
		common.LogWarn("import cache lookup failed", zap.Error(err))
	}

	resp, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := c.cache.Set(ctx, key, string(data)); err != nil {
			common.LogWarn("failed to cache import", zap.Error(err))
		}
	}
	return resp, nil
}

func cacheKey(kind, input string, opts Options) string {
	o, _ := json.Marshal(opts)
	return "import:" + kind + ":" + common.HashKey(input, string(o))
}

var _ Importer = (*CachedImporter)(nil)
