package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"recipe-importer/internal/core/image"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/remote"
	"recipe-importer/internal/core/source"
)

type fakeImporter struct {
	mu       sync.Mutex
	resp     *remote.ImportResponse
	errs     []error
	calls    int
	platform source.Platform
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeImporter) do(ctx context.Context) (*remote.ImportResponse, error) {
	f.mu.Lock()
	f.calls++
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	resp := *f.resp
	resp.Recipe = f.resp.Recipe.Clone()
	return &resp, nil
}

func (f *fakeImporter) ImportFromURL(ctx context.Context, _ string, _ remote.Options) (*remote.ImportResponse, error) {
	return f.do(ctx)
}

func (f *fakeImporter) ImportFromSocial(ctx context.Context, p source.Platform, _ string, _ remote.Options) (*remote.ImportResponse, error) {
	f.mu.Lock()
	f.platform = p
	f.mu.Unlock()
	return f.do(ctx)
}

func (f *fakeImporter) ImportFromText(ctx context.Context, _ string, _ remote.Options) (*remote.ImportResponse, error) {
	return f.do(ctx)
}

type fakeExtractor struct {
	mu       sync.Mutex
	failures int
	result   remote.ExtractionResult
	calls    int
	images   [][]byte
}

func (f *fakeExtractor) ExtractTextFromImage(_ context.Context, img []byte, _ string, _ remote.Options) (*remote.ExtractionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.images = append(f.images, img)
	if f.calls <= f.failures {
		return nil, errors.New("ocr unavailable")
	}
	res := f.result
	return &res, nil
}

type fakeStructurer struct {
	resp *remote.ImportResponse
	err  error
}

func (f *fakeStructurer) StructureRecipeText(context.Context, string, string) (*remote.ImportResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	return &resp, nil
}

type fakeSaver struct {
	mu    sync.Mutex
	id    string
	errs  []error
	saved []recipe.Draft
}

func (f *fakeSaver) SaveRecipe(_ context.Context, d recipe.Draft) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return "", err
	}
	f.saved = append(f.saved, d)
	return f.id, nil
}

type failingProcessor struct{}

func (failingProcessor) ProcessImageForOCR(context.Context, []byte, []image.Operation) (*image.Result, error) {
	return nil, errors.New("processor offline")
}

// sleepRecorder 記錄等待時間，並在等待時取得工作階段狀態
type sleepRecorder struct {
	mu      sync.Mutex
	delays  []time.Duration
	states  []State
	session func() *Session
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	if r.session != nil {
		r.states = append(r.states, r.session().State())
	}
	return nil
}

func bolo() recipe.Draft {
	return recipe.Draft{
		Title:        "Bolo",
		Ingredients:  []recipe.Ingredient{{Name: "farinha", Quantity: recipe.Float(2), Unit: "xícaras"}},
		Instructions: []recipe.Instruction{{StepNumber: 1, Description: "Misture"}},
	}
}
