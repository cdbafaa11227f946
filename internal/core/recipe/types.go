package recipe

// Ingredient 食材，Name 必填
type Ingredient struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
}

// Instruction 步驟，StepNumber 從 1 開始連續編號
type Instruction struct {
	StepNumber      int    `json:"step_number"`
	Description     string `json:"description"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

// Draft 匯入流程產出的食譜草稿
type Draft struct {
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Ingredients     []Ingredient  `json:"ingredients"`
	Instructions    []Instruction `json:"instructions"`
	Servings        *int          `json:"servings,omitempty"`
	PrepTimeMinutes *int          `json:"prep_time_minutes,omitempty"`
	CookTimeMinutes *int          `json:"cook_time_minutes,omitempty"`
	Difficulty      string        `json:"difficulty,omitempty"`
	Categories      []string      `json:"categories,omitempty"`
	Tags            []string      `json:"tags,omitempty"`
	Images          []string      `json:"images,omitempty"`
	SourceURL       string        `json:"source_url,omitempty"`
	OriginalAuthor  string        `json:"original_author,omitempty"`
}

const (
	// DefaultServings 儲存時未提供份量的預設值
	DefaultServings = 4
	// DefaultDifficulty 儲存時未提供難度的預設值
	DefaultDifficulty = "medium"
)

// Float 回傳指標，方便組裝選填欄位
func Float(v float64) *float64 { return &v }

// Int 回傳指標，方便組裝選填欄位
func Int(v int) *int { return &v }
