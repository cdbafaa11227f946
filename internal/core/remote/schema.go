package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"recipe-importer/internal/core/confidence"
	"recipe-importer/internal/pkg/common"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var draftSchema = map[string]any{
	"type":     "object",
	"required": []string{"title"},
	"properties": map[string]any{
		"title":       map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"ingredients": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"name"},
				"properties": map[string]any{
					"name":     map[string]any{"type": "string", "minLength": 1},
					"quantity": map[string]any{"type": []string{"number", "null"}, "minimum": 0},
					"unit":     map[string]any{"type": "string"},
				},
			},
		},
		"instructions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"description"},
				"properties": map[string]any{
					"step_number":      map[string]any{"type": "integer", "minimum": 1},
					"description":      map[string]any{"type": "string", "minLength": 1},
					"duration_minutes": map[string]any{"type": []string{"integer", "null"}, "minimum": 0},
				},
			},
		},
		"servings":   map[string]any{"type": []string{"integer", "null"}, "minimum": 1},
		"difficulty": map[string]any{"type": "string"},
		"categories": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"tags":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"images":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
}

var importResponseSchema = map[string]any{
	"type":     "object",
	"required": []string{"recipe"},
	"properties": map[string]any{
		"recipe":     draftSchema,
		"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"warnings":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
}

var extractionSchema = map[string]any{
	"type":     "object",
	"required": []string{"text"},
	"properties": map[string]any{
		"text":       map[string]any{"type": "string"},
		"confidence": map[string]any{"type": "number"},
		"blocks": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"text"},
				"properties": map[string]any{
					"text":       map[string]any{"type": "string"},
					"confidence": map[string]any{"type": "number"},
				},
			},
		},
	},
}

// compileSchema 編譯 map 形式的 JSON schema
func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func mustCompile(name string, schemaMap map[string]any) *jsonschema.Schema {
	s, err := compileSchema(name, schemaMap)
	if err != nil {
		panic(err)
	}
	return s
}

var (
	importSchema  = mustCompile("import_response.json", importResponseSchema)
	extractSchema = mustCompile("extraction_result.json", extractionSchema)
)

// repairedWarning 回應經修補後附加的警告
const repairedWarning = "the import service returned an incomplete recipe; invalid entries were removed"

// decodeImportResponse 驗證並解析匯入結果，不符合 schema 時先嘗試修補
func decodeImportResponse(body []byte) (*ImportResponse, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, common.ErrRemoteService.Wrap(fmt.Errorf("decode import response: %w", err))
	}

	repaired := false
	if err := importSchema.Validate(raw); err != nil {
		raw = sanitizeImport(raw)
		if err2 := importSchema.Validate(raw); err2 != nil {
			return nil, common.ErrRemoteService.Wrap(fmt.Errorf("import response does not match schema: %w", err))
		}
		repaired = true
	}

	fixed, err := json.Marshal(raw)
	if err != nil {
		return nil, common.ErrRemoteService.Wrap(err)
	}
	var resp ImportResponse
	if err := json.Unmarshal(fixed, &resp); err != nil {
		return nil, common.ErrRemoteService.Wrap(fmt.Errorf("decode import response: %w", err))
	}
	if repaired {
		resp.Warnings = append(resp.Warnings, repairedWarning)
	}
	resp.Recipe.Normalize()
	return &resp, nil
}

// sanitizeImport 夾住信心分數並移除缺少必要欄位的食材與步驟
func sanitizeImport(raw any) any {
	doc, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	if c, ok := doc["confidence"].(float64); ok {
		doc["confidence"] = confidence.Clamp(c)
	} else {
		delete(doc, "confidence")
	}
	if w, ok := doc["warnings"].([]any); ok {
		doc["warnings"] = onlyStrings(w)
	} else {
		delete(doc, "warnings")
	}

	rec, ok := doc["recipe"].(map[string]any)
	if !ok {
		return doc
	}
	if _, ok := rec["title"].(string); !ok {
		return doc
	}

	rec["ingredients"] = filterItems(rec["ingredients"], "name", func(item map[string]any) {
		if q, ok := item["quantity"].(float64); !ok || q < 0 {
			delete(item, "quantity")
		}
		if _, ok := item["unit"].(string); !ok {
			delete(item, "unit")
		}
	})
	rec["instructions"] = filterItems(rec["instructions"], "description", func(item map[string]any) {
		if n, ok := item["step_number"].(float64); !ok || n < 1 || n != float64(int(n)) {
			delete(item, "step_number")
		}
		if d, ok := item["duration_minutes"].(float64); !ok || d < 0 || d != float64(int(d)) {
			delete(item, "duration_minutes")
		}
	})
	if s, ok := rec["servings"].(float64); !ok || s < 1 || s != float64(int(s)) {
		delete(rec, "servings")
	}
	for _, key := range []string{"description", "difficulty"} {
		if _, ok := rec[key].(string); !ok {
			delete(rec, key)
		}
	}
	for _, key := range []string{"categories", "tags", "images"} {
		if list, ok := rec[key].([]any); ok {
			rec[key] = onlyStrings(list)
		} else {
			delete(rec, key)
		}
	}
	return doc
}

func filterItems(v any, required string, fix func(map[string]any)) []any {
	list, _ := v.([]any)
	out := make([]any, 0, len(list))
	for _, it := range list {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		s, ok := item[required].(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		fix(item)
		out = append(out, item)
	}
	return out
}

func onlyStrings(list []any) []any {
	out := make([]any, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// decodeExtraction 驗證並解析 OCR 結果
func decodeExtraction(body []byte) (*ExtractionResult, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, common.ErrRemoteService.Wrap(fmt.Errorf("decode extraction result: %w", err))
	}
	if err := extractSchema.Validate(raw); err != nil {
		return nil, common.ErrRemoteService.Wrap(fmt.Errorf("extraction result does not match schema: %w", err))
	}

	var res ExtractionResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, common.ErrRemoteService.Wrap(fmt.Errorf("decode extraction result: %w", err))
	}
	res.Confidence = confidence.Clamp(res.Confidence)
	for i := range res.Blocks {
		res.Blocks[i].Confidence = confidence.Clamp(res.Blocks[i].Confidence)
	}
	return &res, nil
}
