// Package queue 以固定數量的 worker 在背景執行匯入工作。
package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Job 背景工作，ctx 在隊列關閉時取消
type Job func(ctx context.Context)

type request struct {
	name string
	job  Job
}

// Status 隊列狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	FailedCount    int64 `json:"failed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 隊列管理器
type Manager struct {
	config    config.QueueConfig
	queue     chan request
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	processed int64
	failed    int64
}

// NewManager 創建隊列管理器並啟動 worker
func NewManager(cfg config.QueueConfig) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config: cfg,
		queue:  make(chan request, cfg.MaxSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	return m
}

// Enqueue 將工作加入隊列，隊列已滿時回傳 ErrQueueFull
func (m *Manager) Enqueue(name string, job Job) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return common.ErrServiceUnavailable.WithMessage("queue manager is closed")
	}

	select {
	case m.queue <- request{name: name, job: job}:
		common.LogDebug("Job enqueued",
			zap.String("job", name),
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		return nil
	default:
		common.LogWarn("隊列已滿", zap.String("job", name), zap.Int("max_queue_size", m.config.MaxSize))
		return common.ErrQueueFull
	}
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for req := range m.queue {
		m.run(id, req)
	}
}

// run 執行單一工作，panic 只影響該工作
func (m *Manager) run(id int, req request) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&m.failed, 1)
			common.LogError("背景工作發生 panic",
				zap.Int("worker", id),
				zap.String("job", req.name),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	req.job(m.ctx)
	atomic.AddInt64(&m.processed, 1)
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		FailedCount:    atomic.LoadInt64(&m.failed),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// Close 停止接收新工作，取消執行中的工作並等待 worker 結束
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	common.LogInfo("隊列已關閉", zap.Int64("processed", atomic.LoadInt64(&m.processed)))
}
