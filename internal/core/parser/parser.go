// Package parser 在沒有遠端服務時，以規則把食譜文字整理成草稿。
package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"recipe-importer/internal/core/confidence"
	"recipe-importer/internal/core/recipe"
)

type mode int

const (
	modeNone mode = iota
	modeIngredients
	modeInstructions
)

// 標題行最多的字數，超過視為一般內容
const maxHeaderWords = 6

var (
	ingredientKeywords  = []string{"ingrediente", "ingredient", "materiais", "material"}
	instructionKeywords = []string{"modo de preparo", "modo de fazer", "preparo", "preparacao", "instrucoes", "instrucao", "instructions", "como fazer", "directions", "method", "steps"}
)

// 解析結果的警告訊息
const (
	WarnNoText         = "no text was available to parse"
	WarnNoTitle        = "no title was detected"
	WarnNoIngredients  = "no ingredients were detected"
	WarnNoInstructions = "no instructions were detected"
)

// Result 本地解析結果
type Result struct {
	Draft          recipe.Draft
	Confidence     float64
	Warnings       []string
	DiscardedLines int
}

// Engine 本地結構化引擎，無狀態，可並行使用
type Engine struct {
	ingredientKeywords  []string
	instructionKeywords []string
}

// New 創建使用葡萄牙文與英文關鍵字的引擎
func New() *Engine {
	return &Engine{
		ingredientKeywords:  ingredientKeywords,
		instructionKeywords: instructionKeywords,
	}
}

// Parse 將文字解析為草稿，永遠不回傳錯誤
func (e *Engine) Parse(text string) Result {
	lines := splitLines(text)
	res := Result{Draft: recipe.Draft{Ingredients: []recipe.Ingredient{}, Instructions: []recipe.Instruction{}}}
	if len(lines) == 0 {
		res.Warnings = []string{WarnNoText}
		return res
	}

	res.Draft.Title = lines[0]
	current := modeNone
	step := 1

	for i := 1; i < len(lines); i++ {
		line := lines[i]

		if m := e.markerFor(line); m != modeNone {
			current = m
			if m == modeInstructions {
				step = len(res.Draft.Instructions) + 1
			}
			continue
		}

		switch current {
		case modeNone:
			if i == 1 {
				res.Draft.Description = line
				continue
			}
			res.DiscardedLines++
		case modeIngredients:
			if ing := ParseIngredient(line); ing.Name != "" {
				res.Draft.Ingredients = append(res.Draft.Ingredients, ing)
			}
		case modeInstructions:
			if inst := ParseInstruction(line, step); inst.Description != "" {
				res.Draft.Instructions = append(res.Draft.Instructions, inst)
				step++
			}
		}
	}

	if res.DiscardedLines > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d line(s) before the first section header were ignored", res.DiscardedLines))
	}
	if len(res.Draft.Ingredients) == 0 {
		res.Warnings = append(res.Warnings, WarnNoIngredients)
	}
	if len(res.Draft.Instructions) == 0 {
		res.Warnings = append(res.Warnings, WarnNoInstructions)
	}

	res.Confidence = score(res.Draft)
	return res
}

// markerFor 判斷是否為段落標題行。
// 以關鍵字開頭的短行一律視為標題；清單項目以外，以冒號結尾的短行只要包含關鍵字，
// 或以分隔符號切開後某段以關鍵字開頭，也視為標題。
func (e *Engine) markerFor(line string) mode {
	raw := fold(strings.TrimSpace(line))
	header := strings.TrimSpace(strings.Trim(raw, headerTrim))
	if header == "" || len(strings.Fields(header)) > maxHeaderWords {
		return modeNone
	}
	if m := e.keyword(header, strings.HasPrefix); m != modeNone {
		return m
	}
	if isListItem(raw) {
		return modeNone
	}
	if strings.HasSuffix(raw, ":") {
		return e.keyword(header, strings.Contains)
	}
	segments := strings.FieldsFunc(header, isSeparator)
	for i := 1; i < len(segments); i++ {
		if m := e.keyword(strings.TrimSpace(segments[i]), strings.HasPrefix); m != modeNone {
			return m
		}
	}
	return modeNone
}

const headerTrim = "#*-•:=_ \t"

// keyword 以 match 比對關鍵字，製作步驟優先
func (e *Engine) keyword(header string, match func(s, kw string) bool) mode {
	for _, kw := range e.instructionKeywords {
		if match(header, kw) {
			return modeInstructions
		}
	}
	for _, kw := range e.ingredientKeywords {
		if match(header, kw) {
			return modeIngredients
		}
	}
	return modeNone
}

func isListItem(line string) bool {
	r, size := utf8.DecodeRuneInString(line)
	if unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '-', '*', '•', '–':
		next, _ := utf8.DecodeRuneInString(line[size:])
		return unicode.IsSpace(next)
	}
	return false
}

func isSeparator(r rune) bool {
	switch r {
	case '-', '–', '—', '|', '/':
		return true
	}
	return false
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// score 依偵測到的欄位估算信心，不超過本地上限
func score(d recipe.Draft) float64 {
	s := 0.2
	if d.Title != "" {
		s += 0.15
	}
	if len(d.Ingredients) > 0 {
		s += 0.2
		withQty := 0
		for _, ing := range d.Ingredients {
			if ing.Quantity != nil {
				withQty++
			}
		}
		if withQty*2 >= len(d.Ingredients) {
			s += 0.05
		}
	}
	if len(d.Instructions) > 0 {
		s += 0.2
	}
	if s > confidence.LocalCeiling {
		s = confidence.LocalCeiling
	}
	return s
}
