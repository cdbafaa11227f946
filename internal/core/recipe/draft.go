package recipe

import (
	"fmt"
	"strings"

	"recipe-importer/internal/pkg/common"
)

var validDifficulties = map[string]bool{
	"easy":   true,
	"medium": true,
	"hard":   true,
}

// Normalize 修剪空白、移除空的食材與步驟，並將步驟重新編號為 1..n
func (d *Draft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Difficulty = strings.ToLower(strings.TrimSpace(d.Difficulty))

	ingredients := make([]Ingredient, 0, len(d.Ingredients))
	for _, ing := range d.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		ing.Unit = strings.TrimSpace(ing.Unit)
		if ing.Name == "" {
			continue
		}
		ingredients = append(ingredients, ing)
	}
	d.Ingredients = ingredients

	instructions := make([]Instruction, 0, len(d.Instructions))
	for _, inst := range d.Instructions {
		inst.Description = strings.TrimSpace(inst.Description)
		if inst.Description == "" {
			continue
		}
		if inst.DurationMinutes != nil && *inst.DurationMinutes < 0 {
			inst.DurationMinutes = nil
		}
		inst.StepNumber = len(instructions) + 1
		instructions = append(instructions, inst)
	}
	d.Instructions = instructions

	d.Categories = compact(d.Categories)
	d.Tags = compact(d.Tags)
	d.Images = compact(d.Images)
}

// Validate 檢查草稿是否可以儲存
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return common.NewValidationError("recipe title is required")
	}
	if len(d.Ingredients) == 0 && len(d.Instructions) == 0 {
		return common.NewValidationError("recipe needs at least one ingredient or instruction")
	}
	for i, ing := range d.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return common.NewValidationError(fmt.Sprintf("ingredient %d has no name", i+1))
		}
		if ing.Quantity != nil && *ing.Quantity < 0 {
			return common.NewValidationError(fmt.Sprintf("ingredient %q has a negative quantity", ing.Name))
		}
	}
	for i, inst := range d.Instructions {
		if inst.StepNumber != i+1 {
			return common.NewValidationError(fmt.Sprintf("step numbers must be contiguous, got %d at position %d", inst.StepNumber, i+1))
		}
		if strings.TrimSpace(inst.Description) == "" {
			return common.NewValidationError(fmt.Sprintf("step %d has no description", inst.StepNumber))
		}
	}
	if d.Servings != nil && *d.Servings <= 0 {
		return common.NewValidationError("servings must be positive")
	}
	if d.Difficulty != "" && !validDifficulties[d.Difficulty] {
		return common.NewValidationError(fmt.Sprintf("unknown difficulty %q", d.Difficulty))
	}
	return nil
}

// WithSaveDefaults 回傳補上預設份量與難度的副本
func (d Draft) WithSaveDefaults() Draft {
	out := d.Clone()
	if out.Servings == nil {
		out.Servings = Int(DefaultServings)
	}
	if out.Difficulty == "" {
		out.Difficulty = DefaultDifficulty
	}
	return out
}

// Clone 深拷貝，讓工作階段的快照不與呼叫端共用切片
func (d Draft) Clone() Draft {
	out := d
	out.Ingredients = make([]Ingredient, len(d.Ingredients))
	for i, ing := range d.Ingredients {
		if ing.Quantity != nil {
			ing.Quantity = Float(*ing.Quantity)
		}
		out.Ingredients[i] = ing
	}
	out.Instructions = make([]Instruction, len(d.Instructions))
	for i, inst := range d.Instructions {
		if inst.DurationMinutes != nil {
			inst.DurationMinutes = Int(*inst.DurationMinutes)
		}
		out.Instructions[i] = inst
	}
	out.Servings = cloneInt(d.Servings)
	out.PrepTimeMinutes = cloneInt(d.PrepTimeMinutes)
	out.CookTimeMinutes = cloneInt(d.CookTimeMinutes)
	out.Categories = append([]string(nil), d.Categories...)
	out.Tags = append([]string(nil), d.Tags...)
	out.Images = append([]string(nil), d.Images...)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	return Int(*p)
}

func compact(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
