package session

import (
	"sync"
	"time"

	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Registry 保存 HTTP API 使用的工作階段，閒置過久的會被清除
type Registry struct {
	deps     Dependencies
	idleTTL  time.Duration
	mu       sync.RWMutex
	sessions map[string]*Session
	done     chan struct{}
	once     sync.Once
}

// NewRegistry 創建工作階段登錄表，cleanupInterval 為 0 時不啟動背景清理
func NewRegistry(deps Dependencies, idleTTL, cleanupInterval time.Duration) *Registry {
	r := &Registry{
		deps:     deps.withDefaults(),
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
	if cleanupInterval > 0 && idleTTL > 0 {
		go r.startCleanup(cleanupInterval)
	}
	return r
}

// Create 建立新的工作階段
func (r *Registry) Create() *Session {
	s := New(r.deps)
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get 取得工作階段
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	return s, nil
}

// Delete 重設並移除工作階段
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return common.ErrSessionNotFound
	}
	s.ClearState()
	return nil
}

// Len 目前的工作階段數量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep 移除閒置超過 idleTTL 且沒有進行中工作的工作階段
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.State().Busy() {
			continue
		}
		if now.Sub(s.LastActivity()) > r.idleTTL {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		common.LogInfo("清除閒置工作階段", zap.Int("removed", removed), zap.Int("remaining", len(r.sessions)))
	}
	return removed
}

func (r *Registry) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			r.Sweep(now)
		case <-r.done:
			return
		}
	}
}

// Close 停止背景清理
func (r *Registry) Close() {
	r.once.Do(func() { close(r.done) })
}
