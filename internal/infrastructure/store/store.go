// Package store 將確認後的食譜保存到 SQLite 或 Postgres。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS recipes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// created_at 以固定寬度儲存，文字排序即為時間排序
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record 已儲存的食譜
type Record struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Draft     recipe.Draft `json:"recipe"`
	CreatedAt time.Time    `json:"created_at"`
}

type row struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Payload   string `db:"payload"`
	CreatedAt string `db:"created_at"`
}

// Store 食譜資料庫
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// driverName 將設定的 backend 對應到 database/sql 驅動名稱
func driverName(backend string) (string, error) {
	switch backend {
	case "", "sqlite":
		return "sqlite", nil
	case "postgres":
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported store backend %q", backend)
	}
}

// Open 連線並建立資料表
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	driver, err := driverName(cfg.Backend)
	if err != nil {
		return nil, err
	}

	common.LogInfo("連線食譜資料庫", zap.String("driver", driver))
	db, err := sqlx.ConnectContext(ctx, driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s store: %w", driver, err)
	}
	if driver == "sqlite" {
		// SQLite 只允許單一寫入者
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate 建立資料表
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate recipe store: %w", err)
	}
	return nil
}

// SaveRecipe 儲存草稿並回傳新的食譜 ID
func (s *Store) SaveRecipe(ctx context.Context, draft recipe.Draft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("failed to encode recipe: %w", err)
	}

	id := common.GenerateUUID()
	query := s.db.Rebind(`INSERT INTO recipes (id, title, payload, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, id, draft.Title, string(payload), s.now().UTC().Format(timeLayout)); err != nil {
		common.LogError("寫入食譜失敗", zap.Error(err))
		return "", fmt.Errorf("failed to save recipe: %w", err)
	}

	common.LogInfo("食譜已寫入資料庫", zap.String("recipe_id", id), zap.String("title", draft.Title))
	return id, nil
}

// Get 讀取食譜
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var r row
	query := s.db.Rebind(`SELECT id, title, payload, created_at FROM recipes WHERE id = ?`)
	if err := s.db.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound.WithMessage("recipe %s not found", id)
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return r.record()
}

// List 依建立時間由新到舊列出食譜
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []row
	query := s.db.Rebind(`SELECT id, title, payload, created_at FROM recipes ORDER BY created_at DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (r row) record() (*Record, error) {
	rec := &Record{ID: r.ID, Title: r.Title}
	if err := json.Unmarshal([]byte(r.Payload), &rec.Draft); err != nil {
		return nil, fmt.Errorf("corrupt recipe %s: %w", r.ID, err)
	}
	created, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp on recipe %s: %w", r.ID, err)
	}
	rec.CreatedAt = created
	return rec, nil
}

// HealthCheck 以逾時 ping 資料庫
func (s *Store) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.db.PingContext(ctx)
}

// Close 關閉連線
func (s *Store) Close() error {
	common.LogInfo("關閉食譜資料庫連線")
	return s.db.Close()
}
