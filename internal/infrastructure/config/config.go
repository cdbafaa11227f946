package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	ImportService ImportServiceConfig `mapstructure:"import_service"`
	OpenRouter    OpenRouterConfig    `mapstructure:"openrouter"`
	OCR           OCRConfig           `mapstructure:"ocr"`
	Retry         RetryConfig         `mapstructure:"retry"`
	Session       SessionConfig       `mapstructure:"session"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Store         StoreConfig         `mapstructure:"store"`
	Queue         QueueConfig         `mapstructure:"queue"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Image         ImageConfig         `mapstructure:"image"`
	DedupWindow   time.Duration       `mapstructure:"dedup_window"`
	LogLevel      string              `mapstructure:"log_level"`
	LogDir        string              `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// ImportServiceConfig 遠端匯入服務設定
type ImportServiceConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OpenRouterConfig OpenRouter 配置，啟用時取代遠端的文字結構化
type OpenRouterConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// OCRConfig 文字辨識設定
type OCRConfig struct {
	Language         string   `mapstructure:"language"`
	Preprocess       bool     `mapstructure:"preprocess"`
	RemotePreprocess bool     `mapstructure:"remote_preprocess"`
	Operations       []string `mapstructure:"operations"`
}

// RetryConfig OCR 重試設定，第 n 次失敗後等待 BaseDelay * 2^(n-1)
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

// Delays 展開成重試等待時間表
func (r RetryConfig) Delays() []time.Duration {
	delays := make([]time.Duration, 0, r.MaxAttempts)
	d := r.BaseDelay
	for i := 0; i < r.MaxAttempts; i++ {
		delays = append(delays, d)
		d *= 2
	}
	return delays
}

// SessionConfig 匯入工作階段設定
type SessionConfig struct {
	TextStrategy    string        `mapstructure:"text_strategy"` // remote 或 local
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory 或 redis
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StoreConfig 食譜儲存設定
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // sqlite、postgres 或 remote
	DSN     string `mapstructure:"dsn"`
}

// QueueConfig 請求隊列設定
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MinSizeBytes int64 `mapstructure:"min_size_bytes"`
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時只使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("import_service.base_url", "IMPORT_SERVICE_URL")
	_ = v.BindEnv("import_service.api_key", "IMPORT_SERVICE_API_KEY")
	_ = v.BindEnv("openrouter.enabled", "OPENROUTER_ENABLED")
	_ = v.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	_ = v.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	_ = v.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("cache.backend", "CACHE_BACKEND")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("store.backend", "STORE_BACKEND")
	_ = v.BindEnv("store.dsn", "DATABASE_URL")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("log_dir", "LOG_DIR")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-importer")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 15*1024*1024)

	// 遠端匯入服務
	v.SetDefault("import_service.enabled", true)
	v.SetDefault("import_service.base_url", "http://localhost:9000")
	v.SetDefault("import_service.timeout", "60s")

	// OpenRouter 設定
	v.SetDefault("openrouter.enabled", false)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "qwen/qwen2.5-vl-72b-instruct:free")
	v.SetDefault("openrouter.max_tokens", 1000)
	v.SetDefault("openrouter.timeout", "60s")

	// OCR 設定
	v.SetDefault("ocr.language", "pt")
	v.SetDefault("ocr.preprocess", true)
	v.SetDefault("ocr.remote_preprocess", false)
	v.SetDefault("ocr.operations", []string{"enhance", "contrast:1.2", "brightness:1.1"})

	// 重試設定：1s、2s、4s
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")

	// 工作階段設定
	v.SetDefault("session.text_strategy", "remote")
	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.cleanup_interval", "5m")
	v.SetDefault("session.run_timeout", "3m")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Redis 設定
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// 儲存設定
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.dsn", "file:recipes.db?_pragma=busy_timeout(5000)")

	// 隊列設定
	v.SetDefault("queue.workers", 5)
	v.SetDefault("queue.max_size", 100)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 圖片設定
	v.SetDefault("image.min_size_bytes", 100*1024)      // 0.1MB
	v.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

// Validate 驗證設定
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if c.Cache.Enabled {
		if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
			return fmt.Errorf("invalid cache backend %q", c.Cache.Backend)
		}
		if c.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if c.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if c.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if c.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	if c.Retry.MaxAttempts <= 0 || c.Retry.BaseDelay < 0 {
		return fmt.Errorf("invalid retry policy")
	}

	switch c.Session.TextStrategy {
	case "remote", "local":
	default:
		return fmt.Errorf("invalid session text strategy %q", c.Session.TextStrategy)
	}

	switch c.Store.Backend {
	case "sqlite", "postgres", "remote":
	default:
		return fmt.Errorf("invalid store backend %q", c.Store.Backend)
	}

	if c.ImportService.Enabled && c.ImportService.BaseURL == "" {
		return fmt.Errorf("import service base url is required")
	}
	if c.Store.Backend == "remote" && !c.ImportService.Enabled {
		return fmt.Errorf("remote store requires the import service")
	}
	if c.OpenRouter.Enabled && c.OpenRouter.APIKey == "" {
		return fmt.Errorf("openrouter api key is required when openrouter is enabled")
	}

	if c.Image.MinSizeBytes < 0 || c.Image.MaxSizeBytes <= c.Image.MinSizeBytes {
		return fmt.Errorf("invalid image size limits")
	}

	return nil
}
