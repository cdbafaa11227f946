// Package session 協調一次食譜匯入：分類、擷取、結構化、重試與儲存。
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"recipe-importer/internal/core/confidence"
	"recipe-importer/internal/core/image"
	"recipe-importer/internal/core/parser"
	"recipe-importer/internal/core/quality"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/remote"
	"recipe-importer/internal/core/source"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// TextStrategy 貼上文字時使用的結構化方式
type TextStrategy string

const (
	TextStrategyRemote TextStrategy = "remote"
	TextStrategyLocal  TextStrategy = "local"
)

// DefaultRetryDelays OCR 第 1、2、3 次失敗後的等待時間
var DefaultRetryDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// Dependencies 工作階段使用的服務，nil 的遠端服務代表未設定
type Dependencies struct {
	Classifier   *source.Classifier
	Importer     remote.Importer
	Extractor    remote.TextExtractor
	Structurer   remote.Structurer
	Saver        remote.Saver
	Parser       *parser.Engine
	Preprocessor *image.Preprocessor
	ImageLimits  image.Limits
	RetryDelays  []time.Duration
	TextStrategy TextStrategy
	Language     string // 輸入未宣告語言時使用
	Sleep        func(ctx context.Context, d time.Duration) error
	Now          func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Classifier == nil {
		d.Classifier = source.NewClassifier()
	}
	if d.Parser == nil {
		d.Parser = parser.New()
	}
	if d.ImageLimits == (image.Limits{}) {
		d.ImageLimits = image.DefaultLimits
	}
	if len(d.RetryDelays) == 0 {
		d.RetryDelays = DefaultRetryDelays
	}
	if d.TextStrategy == "" {
		d.TextStrategy = TextStrategyRemote
	}
	if d.Importer == nil {
		d.TextStrategy = TextStrategyLocal
	}
	if d.Sleep == nil {
		d.Sleep = sleepContext
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// ErrorInfo 快照中的錯誤資訊
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Snapshot 工作階段的唯讀副本
type Snapshot struct {
	ID          string                   `json:"id"`
	Generation  uint64                   `json:"generation"`
	State       State                    `json:"state"`
	Kind        source.Kind              `json:"kind,omitempty"`
	Platform    source.Platform          `json:"platform,omitempty"`
	Attempts    int                      `json:"attempts"`
	Extraction  *remote.ExtractionResult `json:"extraction,omitempty"`
	Draft       *recipe.Draft            `json:"draft,omitempty"`
	Confidence  float64                  `json:"confidence"`
	Band        confidence.Band          `json:"band,omitempty"`
	Stages      []confidence.Score       `json:"stages,omitempty"`
	ImageReport *image.QualityReport     `json:"image_report,omitempty"`
	Warnings    []string                 `json:"warnings,omitempty"`
	Suggestions []string                 `json:"suggestions,omitempty"`
	Error       *ErrorInfo               `json:"error,omitempty"`
	RecipeID    string                   `json:"recipe_id,omitempty"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// Session 單一匯入工作階段，所有狀態只由本身修改
type Session struct {
	id   string
	deps Dependencies

	mu             sync.Mutex
	state          State
	generation     uint64
	input          *RawImportInput
	classification source.Classification
	attempts       int
	extraction     *remote.ExtractionResult
	draft          *recipe.Draft
	conf           confidence.Result
	imageReport    *image.QualityReport
	warnings       []string
	suggestions    []string
	err            error
	recipeID       string
	updatedAt      time.Time
}

// New 創建新的工作階段
func New(deps Dependencies) *Session {
	return NewWithID(common.GenerateUUID(), deps)
}

// NewWithID 以指定 ID 創建工作階段
func NewWithID(id string, deps Dependencies) *Session {
	deps = deps.withDefaults()
	return &Session{
		id:        id,
		deps:      deps,
		state:     StateIdle,
		updatedAt: deps.Now(),
	}
}

// ID 工作階段 ID
func (s *Session) ID() string { return s.id }

// State 目前狀態
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActivity 最後一次狀態變更的時間
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Snapshot 取得目前狀態的副本
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Validate 只做輸入檢查，不改變狀態
func (s *Session) Validate(in RawImportInput) error {
	return ValidateInput(in)
}

// StartImport 執行一次匯入直到 ready_for_review 或 failed
//
// 只有 idle 狀態可以開始，否則回傳 ErrImportInProgress。輸入驗證失敗時
// 狀態維持 idle。若執行期間呼叫了 ClearState，結果會被丟棄並回傳
// ErrStaleResult。
func (s *Session) StartImport(ctx context.Context, in RawImportInput) (Snapshot, error) {
	if err := in.validate(); err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	if s.state != StateIdle {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, common.ErrImportInProgress.WithMessage("an import is already %s", snap.State)
	}
	s.generation++
	gen := s.generation
	in = in.clone()
	s.resetLocked()
	s.input = &in
	s.transitionLocked(StateClassifying)
	s.mu.Unlock()

	common.LogInfo("開始匯入",
		zap.String("session_id", s.id),
		zap.String("kind", string(in.Kind)),
		zap.Uint64("generation", gen),
	)

	err := s.run(ctx, gen, in)
	return s.Snapshot(), err
}

// Retry 以上次的輸入重新匯入，只能在 failed 狀態呼叫
func (s *Session) Retry(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.state != StateFailed || s.input == nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, common.ErrInvalidState.WithMessage("retry requires a failed import, current state is %s", snap.State)
	}
	in := *s.input
	s.generation++
	s.resetLocked()
	s.state = StateIdle
	s.mu.Unlock()

	return s.StartImport(ctx, in)
}

// ClearState 回到 idle，進行中的遠端回應抵達時會被丟棄
func (s *Session) ClearState() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.resetLocked()
	s.input = nil
	s.recipeID = ""
	s.state = StateIdle
	s.updatedAt = s.deps.Now()

	common.LogDebug("工作階段已重設", zap.String("session_id", s.id), zap.Uint64("generation", s.generation))
}

// Save 儲存草稿，override 不為 nil 時以使用者編輯後的版本取代
func (s *Session) Save(ctx context.Context, override *recipe.Draft) (string, error) {
	s.mu.Lock()
	if s.state != StateReadyForReview || s.draft == nil {
		state := s.state
		s.mu.Unlock()
		return "", common.ErrInvalidState.WithMessage("save requires ready_for_review, current state is %s", state)
	}
	if s.deps.Saver == nil {
		s.mu.Unlock()
		return "", common.ErrServiceUnavailable.WithMessage("no recipe store is configured")
	}

	draft := s.draft.Clone()
	if override != nil {
		draft = override.Clone()
		draft.Normalize()
	}
	if err := draft.Validate(); err != nil {
		s.mu.Unlock()
		return "", err
	}

	gen := s.generation
	s.draft = &draft
	s.err = nil
	s.transitionLocked(StateSaving)
	s.mu.Unlock()

	id, err := s.deps.Saver.SaveRecipe(ctx, draft.WithSaveDefaults())
	if err != nil {
		common.LogError("儲存食譜失敗", zap.String("session_id", s.id), zap.Error(err))
		if !s.update(gen, func() {
			s.err = err
			s.transitionLocked(StateReadyForReview)
		}) {
			return "", common.ErrStaleResult
		}
		return "", err
	}

	if !s.update(gen, func() {
		s.resetLocked()
		s.recipeID = id
		s.transitionLocked(StateCompleted)
	}) {
		common.LogWarn("recipe saved after session was cleared", zap.String("session_id", s.id), zap.String("recipe_id", id))
		return id, nil
	}

	common.LogInfo("食譜已儲存", zap.String("session_id", s.id), zap.String("recipe_id", id))
	return id, nil
}

func (s *Session) run(ctx context.Context, gen uint64, in RawImportInput) error {
	cls, err := s.classify(in)
	if err != nil {
		return s.fail(gen, err)
	}
	if !s.update(gen, func() { s.classification = cls }) {
		return common.ErrStaleResult
	}

	switch cls.Kind {
	case source.KindImage:
		return s.runImage(ctx, gen, in)
	case source.KindURL, source.KindSocial:
		return s.runRemoteImport(ctx, gen, in, cls)
	default:
		if s.deps.TextStrategy == TextStrategyLocal {
			return s.runLocalText(gen, in)
		}
		return s.runRemoteImport(ctx, gen, in, cls)
	}
}

// classify 以宣告的類型為主，社群類型必須對應到已知平台
func (s *Session) classify(in RawImportInput) (source.Classification, error) {
	switch in.Kind {
	case source.KindImage:
		return source.Classification{Kind: source.KindImage}, nil
	case source.KindText:
		return source.Classification{Kind: source.KindText}, nil
	}

	cls := s.deps.Classifier.Classify(in.Text)
	if in.Kind == source.KindSocial && cls.Kind != source.KindSocial {
		return cls, common.ErrUnsupportedPlatform.WithMessage("%s is not a supported social platform", in.Text)
	}
	return cls, nil
}

func (s *Session) runRemoteImport(ctx context.Context, gen uint64, in RawImportInput, cls source.Classification) error {
	if s.deps.Importer == nil {
		return s.fail(gen, common.ErrRemoteService.WithMessage("no import service is configured"))
	}
	if !s.transition(gen, StateStructuring) {
		return common.ErrStaleResult
	}

	opts := in.Options
	opts.Language = s.language(in)

	var (
		resp *remote.ImportResponse
		err  error
	)
	switch cls.Kind {
	case source.KindURL:
		resp, err = s.deps.Importer.ImportFromURL(ctx, in.Text, opts)
	case source.KindSocial:
		resp, err = s.deps.Importer.ImportFromSocial(ctx, cls.Platform, in.Text, opts)
	default:
		resp, err = s.deps.Importer.ImportFromText(ctx, in.Text, opts)
	}
	if err != nil {
		return s.fail(gen, asRemoteError(err))
	}

	conf := confidence.Aggregate(confidence.Score{Stage: confidence.StageRemoteImport, Value: resp.Confidence})
	return s.ready(gen, resp.Recipe, conf, resp.Warnings)
}

func (s *Session) runLocalText(gen uint64, in RawImportInput) error {
	if !s.transition(gen, StateStructuring) {
		return common.ErrStaleResult
	}
	res := s.deps.Parser.Parse(in.Text)
	conf := confidence.Aggregate(confidence.Score{Stage: confidence.StageLocalStructuring, Value: res.Confidence})
	return s.ready(gen, res.Draft, conf, res.Warnings)
}

func (s *Session) runImage(ctx context.Context, gen uint64, in RawImportInput) error {
	report := image.AssessSize(in.Image, s.deps.ImageLimits)
	if !s.update(gen, func() { s.imageReport = &report }) {
		return common.ErrStaleResult
	}

	img := in.Image
	if s.deps.Preprocessor != nil {
		prepared := s.deps.Preprocessor.Prepare(ctx, img)
		img = prepared.Image
		if prepared.Warning != "" {
			if !s.update(gen, func() { s.warnings = append(s.warnings, prepared.Warning) }) {
				return common.ErrStaleResult
			}
		}
	}

	if s.deps.Extractor == nil {
		return s.fail(gen, common.ErrRemoteService.WithMessage("no OCR service is configured"))
	}
	if !s.transition(gen, StateExtracting) {
		return common.ErrStaleResult
	}

	lang := s.language(in)
	delays := s.deps.RetryDelays
	var extraction *remote.ExtractionResult
	for attempt := 1; ; attempt++ {
		res, err := s.deps.Extractor.ExtractTextFromImage(ctx, img, lang, in.Options)
		if err == nil && res != nil {
			if !s.update(gen, func() {
				s.attempts = attempt
				s.extraction = res
			}) {
				return common.ErrStaleResult
			}
			extraction = res
			break
		}
		if err == nil {
			err = errors.New("OCR returned no result")
		}

		common.LogWarn("文字辨識失敗",
			zap.String("session_id", s.id),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if !s.update(gen, func() {
			s.attempts = attempt
			s.transitionLocked(StateRetrying)
		}) {
			return common.ErrStaleResult
		}

		if serr := s.deps.Sleep(ctx, delays[attempt-1]); serr != nil {
			return s.fail(gen, common.ErrRemoteService.Wrap(serr))
		}
		if attempt >= len(delays) {
			return s.fail(gen, common.ErrMaxRetriesExceeded.Wrap(err))
		}
		if !s.transition(gen, StateExtracting) {
			return common.ErrStaleResult
		}
	}

	text := strings.TrimSpace(extraction.Text)
	if text == "" {
		return s.fail(gen, common.ErrParsing.WithMessage("no text was recognized in the image"))
	}
	if !s.transition(gen, StateStructuring) {
		return common.ErrStaleResult
	}

	ocrScore := confidence.Score{Stage: confidence.StageOCR, Value: extraction.Confidence}
	var fallback string
	if s.deps.Structurer != nil {
		resp, err := s.deps.Structurer.StructureRecipeText(ctx, text, lang)
		if err == nil {
			conf := confidence.Aggregate(ocrScore, confidence.Score{Stage: confidence.StageRemoteStructuring, Value: resp.Confidence})
			return s.ready(gen, resp.Recipe, conf, resp.Warnings)
		}
		common.LogWarn("遠端結構化失敗，改用本地解析", zap.String("session_id", s.id), zap.Error(err))
		fallback = fmt.Sprintf("remote structuring failed, the recipe was parsed locally: %v", err)
	}

	parsed := s.deps.Parser.Parse(text)
	conf := confidence.Aggregate(ocrScore, confidence.Score{Stage: confidence.StageLocalStructuring, Value: parsed.Confidence})
	warnings := parsed.Warnings
	if fallback != "" {
		warnings = append([]string{fallback}, warnings...)
	}
	return s.ready(gen, parsed.Draft, conf, warnings)
}

// ready 正規化草稿、產生建議並進入 ready_for_review
func (s *Session) ready(gen uint64, draft recipe.Draft, conf confidence.Result, warnings []string) error {
	draft.Normalize()
	warnings = append(warnings, draftWarnings(draft)...)

	ok := s.update(gen, func() {
		s.draft = &draft
		s.conf = conf
		s.warnings = dedupe(append(s.warnings, warnings...))
		s.suggestions = quality.Suggest(conf.Band, s.imageReport)
		s.transitionLocked(StateReadyForReview)
	})
	if !ok {
		return common.ErrStaleResult
	}

	common.LogInfo("匯入完成，等待確認",
		zap.String("session_id", s.id),
		zap.Float64("confidence", conf.Value),
		zap.String("band", string(conf.Band)),
		zap.Int("ingredients", len(draft.Ingredients)),
		zap.Int("instructions", len(draft.Instructions)),
	)
	return nil
}

// fail 記錄錯誤並進入 failed，過期的結果直接丟棄
func (s *Session) fail(gen uint64, err error) error {
	if !s.update(gen, func() {
		s.err = err
		s.transitionLocked(StateFailed)
	}) {
		return common.ErrStaleResult
	}
	common.LogError("匯入失敗", zap.String("session_id", s.id), zap.Error(err))
	return err
}

// update 只在 generation 相符時套用變更
func (s *Session) update(gen uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		common.LogDebug("丟棄過期結果", zap.String("session_id", s.id), zap.Uint64("generation", gen))
		return false
	}
	fn()
	s.updatedAt = s.deps.Now()
	return true
}

func (s *Session) transition(gen uint64, next State) bool {
	return s.update(gen, func() { s.transitionLocked(next) })
}

// transitionLocked 呼叫端需持有鎖；非法轉換代表程式錯誤
func (s *Session) transitionLocked(next State) {
	if !s.state.CanTransitionTo(next) {
		panic(transitionError{from: s.state, to: next})
	}
	common.LogDebug("狀態轉換",
		zap.String("session_id", s.id),
		zap.String("from", string(s.state)),
		zap.String("to", string(next)),
	)
	s.state = next
	s.updatedAt = s.deps.Now()
}

func (s *Session) resetLocked() {
	s.classification = source.Classification{}
	s.attempts = 0
	s.extraction = nil
	s.draft = nil
	s.conf = confidence.Result{}
	s.imageReport = nil
	s.warnings = nil
	s.suggestions = nil
	s.err = nil
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		Generation:  s.generation,
		State:       s.state,
		Kind:        s.classification.Kind,
		Platform:    s.classification.Platform,
		Attempts:    s.attempts,
		Confidence:  s.conf.Value,
		Band:        s.conf.Band,
		Stages:      append([]confidence.Score(nil), s.conf.Stages...),
		Warnings:    append([]string(nil), s.warnings...),
		Suggestions: append([]string(nil), s.suggestions...),
		RecipeID:    s.recipeID,
		UpdatedAt:   s.updatedAt,
	}
	if s.extraction != nil {
		ext := *s.extraction
		ext.Blocks = append([]remote.TextBlock(nil), s.extraction.Blocks...)
		snap.Extraction = &ext
	}
	if s.draft != nil {
		d := s.draft.Clone()
		snap.Draft = &d
	}
	if s.imageReport != nil {
		r := *s.imageReport
		r.Issues = append([]string(nil), s.imageReport.Issues...)
		snap.ImageReport = &r
	}
	if s.err != nil {
		ce := common.AsCustomError(s.err)
		snap.Error = &ErrorInfo{Code: ce.Code, Message: s.err.Error()}
	}
	return snap
}

func (s *Session) language(in RawImportInput) string {
	if lang := in.language(); lang != "" {
		return lang
	}
	return s.deps.Language
}

func asRemoteError(err error) error {
	var ce *common.CustomError
	if errors.As(err, &ce) {
		return err
	}
	return common.ErrRemoteService.Wrap(err)
}

func draftWarnings(d recipe.Draft) []string {
	var w []string
	if d.Title == "" {
		w = append(w, parser.WarnNoTitle)
	}
	if len(d.Ingredients) == 0 {
		w = append(w, parser.WarnNoIngredients)
	}
	if len(d.Instructions) == 0 {
		w = append(w, parser.WarnNoInstructions)
	}
	return w
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
