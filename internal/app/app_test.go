package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/session"
	"recipe-importer/internal/infrastructure/config"
)

func localConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Store.Backend = "sqlite"
	cfg.Store.DSN = "file:" + filepath.Join(t.TempDir(), "app.db")
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BaseDelay = time.Second
	cfg.Session.TextStrategy = "local"
	cfg.Cache.Enabled = true
	cfg.Cache.Backend = "memory"
	cfg.Cache.MaxSize = 10
	cfg.Cache.TTL = time.Minute
	cfg.OCR.Preprocess = true
	cfg.OCR.Operations = []string{"enhance"}
	return cfg
}

func TestBuildLocalOnly(t *testing.T) {
	a, err := Build(context.Background(), localConfig(t))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	if a.Deps.Importer != nil || a.Deps.Extractor != nil {
		t.Fatal("remote services should be unset when the import service is disabled")
	}
	if a.Deps.Preprocessor == nil || a.Store == nil {
		t.Fatalf("deps = %+v", a.Deps)
	}
	if len(a.Deps.RetryDelays) != 3 || a.Deps.RetryDelays[2] != 4*time.Second {
		t.Fatalf("retry delays = %v", a.Deps.RetryDelays)
	}
	if _, ok := a.Checks["store"]; !ok {
		t.Fatal("store health check missing")
	}

	s := session.New(a.Deps)
	if _, err := s.StartImport(context.Background(), session.RawImportInput{Text: "Bolo\nIngredientes:\n3 ovos\nModo de Preparo:\nMisture"}); err != nil {
		t.Fatalf("StartImport() error = %v", err)
	}
	id, err := s.Save(context.Background(), nil)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rec, err := a.Store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Draft.Servings == nil || *rec.Draft.Servings != recipe.DefaultServings {
		t.Fatalf("saved draft = %+v", rec.Draft)
	}
}

func TestBuildRemoteStoreRequiresService(t *testing.T) {
	cfg := localConfig(t)
	cfg.Store.Backend = "remote"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildRejectsUnknownOperation(t *testing.T) {
	cfg := localConfig(t)
	cfg.OCR.Operations = []string{"sharpen"}
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatal("expected error")
	}
}
