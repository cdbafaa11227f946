package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"recipe-importer/internal/core/confidence"
)

const boloText = `Bolo Simples
Ingredientes:
2 xícaras de farinha
3 ovos
Modo de Preparo:
1. Misture tudo
2. Asse por 30 minutos`

func TestParseEndToEnd(t *testing.T) {
	res := New().Parse(boloText)
	d := res.Draft

	if d.Title != "Bolo Simples" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Description != "" {
		t.Errorf("description = %q, want empty", d.Description)
	}
	if len(d.Ingredients) != 2 {
		t.Fatalf("ingredients = %+v", d.Ingredients)
	}
	flour := d.Ingredients[0]
	if flour.Name != "farinha" || flour.Unit != "xícaras" || flour.Quantity == nil || *flour.Quantity != 2 {
		t.Errorf("flour = %+v", flour)
	}
	eggs := d.Ingredients[1]
	if eggs.Name != "ovos" || eggs.Unit != "" || eggs.Quantity == nil || *eggs.Quantity != 3 {
		t.Errorf("eggs = %+v", eggs)
	}

	if len(d.Instructions) != 2 {
		t.Fatalf("instructions = %+v", d.Instructions)
	}
	if d.Instructions[0].StepNumber != 1 || d.Instructions[0].Description != "Misture tudo" || d.Instructions[0].DurationMinutes != nil {
		t.Errorf("step 1 = %+v", d.Instructions[0])
	}
	bake := d.Instructions[1]
	if bake.StepNumber != 2 || bake.Description != "Asse por 30 minutos" || bake.DurationMinutes == nil || *bake.DurationMinutes != 30 {
		t.Errorf("step 2 = %+v", bake)
	}

	if res.Confidence > confidence.LocalCeiling {
		t.Errorf("confidence %v exceeds local ceiling", res.Confidence)
	}
	if res.DiscardedLines != 0 || len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v (discarded %d)", res.Warnings, res.DiscardedLines)
	}
}

func TestParseDescriptionAndDiscardedLines(t *testing.T) {
	text := "Pão de Queijo\nReceita mineira da vovó\nRende 20 unidades\nForno a 180 graus\nIngredients:\n500g polvilho\nInstruções\nAsse por 1 hora"
	res := New().Parse(text)

	if res.Draft.Description != "Receita mineira da vovó" {
		t.Errorf("description = %q", res.Draft.Description)
	}
	if res.DiscardedLines != 2 {
		t.Errorf("discarded = %d, want 2", res.DiscardedLines)
	}
	if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0], "2 line(s)") {
		t.Errorf("warnings = %v", res.Warnings)
	}
	if ing := res.Draft.Ingredients[0]; ing.Name != "polvilho" || ing.Unit != "g" || *ing.Quantity != 500 {
		t.Errorf("ingredient = %+v", ing)
	}
	if inst := res.Draft.Instructions[0]; inst.DurationMinutes == nil || *inst.DurationMinutes != 60 {
		t.Errorf("instruction = %+v", inst)
	}
}

func TestParseIngredient(t *testing.T) {
	tests := []struct {
		line string
		name string
		qty  float64
		has  bool
		unit string
	}{
		{"2 xícaras de farinha", "farinha", 2, true, "xícaras"},
		{"- 1 colher de sopa de açúcar", "açúcar", 1, true, "colher de sopa"},
		{"• 1/2 xícara de leite", "leite", 0.5, true, "xícara"},
		{"1 1/2 cups of sugar", "sugar", 1.5, true, "cups"},
		{"½ cebola", "cebola", 0.5, true, ""},
		{"1,5 kg de carne", "carne", 1.5, true, "kg"},
		{"200ml leite", "leite", 200, true, "ml"},
		{"2-3 dentes de alho", "alho", 2, true, "dentes"},
		{"1. 3 ovos", "ovos", 3, true, ""},
		{"Sal a gosto", "Sal a gosto", 0, false, ""},
		{"2 xícaras", "2 xícaras", 2, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := ParseIngredient(tt.line)
			if got.Name != tt.name || got.Unit != tt.unit {
				t.Fatalf("ParseIngredient(%q) = %+v", tt.line, got)
			}
			if tt.has != (got.Quantity != nil) {
				t.Fatalf("quantity presence = %v, want %v", got.Quantity != nil, tt.has)
			}
			if tt.has && *got.Quantity != tt.qty {
				t.Fatalf("quantity = %v, want %v", *got.Quantity, tt.qty)
			}
		})
	}
}

func TestParseInstruction(t *testing.T) {
	tests := []struct {
		line     string
		desc     string
		duration int
	}{
		{"1. Misture tudo", "Misture tudo", -1},
		{"2) Asse por 45 min", "Asse por 45 min", 45},
		{"Passo 3: Deixe descansar 2 horas", "Deixe descansar 2 horas", 120},
		{"- Cozinhe por 1,5 h", "Cozinhe por 1,5 h", 90},
		{"Bake for 20 minutes", "Bake for 20 minutes", 20},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := ParseInstruction(tt.line, 4)
			if got.StepNumber != 4 || got.Description != tt.desc {
				t.Fatalf("ParseInstruction(%q) = %+v", tt.line, got)
			}
			if tt.duration < 0 {
				if got.DurationMinutes != nil {
					t.Fatalf("unexpected duration %d", *got.DurationMinutes)
				}
				return
			}
			if got.DurationMinutes == nil || *got.DurationMinutes != tt.duration {
				t.Fatalf("duration = %v, want %d", got.DurationMinutes, tt.duration)
			}
		})
	}
}

func TestParseStepNumbersStayContiguousAcrossSections(t *testing.T) {
	text := "Torta\nPreparo:\nFaça a massa\nIngredientes\n1 ovo\nModo de preparo\nRecheie\nAsse"
	res := New().Parse(text)
	for i, inst := range res.Draft.Instructions {
		if inst.StepNumber != i+1 {
			t.Fatalf("step %d numbered %d: %+v", i, inst.StepNumber, res.Draft.Instructions)
		}
	}
	if len(res.Draft.Instructions) != 3 {
		t.Fatalf("instructions = %+v", res.Draft.Instructions)
	}
}

func TestParseMarkerDetection(t *testing.T) {
	e := New()
	tests := []struct {
		line string
		want mode
	}{
		{"Ingredientes:", modeIngredients},
		{"## INGREDIENTS", modeIngredients},
		{"Modo de Preparo:", modeInstructions},
		{"Instruções", modeInstructions},
		{"Misture os ingredientes secos", modeNone},
		{"Ingredientes que você vai precisar para fazer esta receita", modeNone},
		{"Para a massa, os ingredientes:", modeIngredients},
		{"Massa - modo de preparo", modeInstructions},
		{"Cobertura | Ingredientes", modeIngredients},
		{"- Misture os ingredientes:", modeNone},
		{"2 xícaras de ingredientes secos:", modeNone},
	}
	for _, tt := range tests {
		if got := e.markerFor(tt.line); got != tt.want {
			t.Errorf("markerFor(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestParseSectionsWithEmbeddedKeywords(t *testing.T) {
	res := New().Parse("Torta\nPara a massa, os ingredientes:\n2 ovos\nMassa - modo de preparo\nMisture tudo")
	d := res.Draft
	if len(d.Ingredients) != 1 || d.Ingredients[0].Name != "ovos" {
		t.Fatalf("ingredients = %+v", d.Ingredients)
	}
	if len(d.Instructions) != 1 || d.Instructions[0].Description != "Misture tudo" {
		t.Fatalf("instructions = %+v", d.Instructions)
	}
	if res.DiscardedLines != 0 {
		t.Fatalf("discarded = %d", res.DiscardedLines)
	}
}

func TestParseEmptyAndGarbage(t *testing.T) {
	for _, text := range []string{"", "   \n\n\t", "%%%"} {
		res := New().Parse(text)
		if res.Confidence > confidence.LocalCeiling {
			t.Fatalf("confidence %v above ceiling", res.Confidence)
		}
		if len(res.Warnings) == 0 {
			t.Fatalf("expected warnings for %q", text)
		}
	}
}

func TestParseIsDeterministic(t *testing.T) {
	e := New()
	first, err := json.Marshal(e.Parse(boloText))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 20; i++ {
		got, _ := json.Marshal(e.Parse(boloText))
		if string(got) != string(first) {
			t.Fatalf("run %d differs: %s", i, got)
		}
	}
}

func TestParseLargeInput(t *testing.T) {
	var b strings.Builder
	b.WriteString("Big Batch\nIngredientes:\n")
	for i := 0; i < 5000; i++ {
		fmt.Fprintf(&b, "%d g de farinha\n", i+1)
	}
	b.WriteString("Modo de preparo:\n")
	for i := 0; i < 5000; i++ {
		fmt.Fprintf(&b, "%d. Mexa por %d minutos\n", i+1, i%60+1)
	}
	res := New().Parse(b.String())
	if len(res.Draft.Ingredients) != 5000 || len(res.Draft.Instructions) != 5000 {
		t.Fatalf("got %d ingredients, %d instructions", len(res.Draft.Ingredients), len(res.Draft.Instructions))
	}
	if res.Draft.Instructions[4999].StepNumber != 5000 {
		t.Fatalf("last step = %d", res.Draft.Instructions[4999].StepNumber)
	}
}
