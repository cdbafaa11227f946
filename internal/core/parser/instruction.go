package parser

import (
	"math"
	"regexp"
	"strings"

	"recipe-importer/internal/core/recipe"
)

var (
	stepPrefixPattern = regexp.MustCompile(`^(?:[-•*·▪►–—]+\s*|(?i:passo|step)\s*\d+\s*[.):\-]?\s*|\d+\s*[.):\-]\s*)`)
	durationPattern   = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(horas|hora|hours|hour|hrs|hr|h|minutos|minuto|minutes|minute|mins|min)\b`)
)

// ParseInstruction 移除步驟編號並擷取時間，step 為指定的步驟序號
func ParseInstruction(line string, step int) recipe.Instruction {
	clean := strings.TrimSpace(stepPrefixPattern.ReplaceAllString(strings.TrimSpace(line), ""))
	inst := recipe.Instruction{StepNumber: step, Description: clean}

	if m := durationPattern.FindStringSubmatch(clean); m != nil {
		v := parseNumber(m[1])
		if strings.HasPrefix(strings.ToLower(m[2]), "h") {
			v *= 60
		}
		inst.DurationMinutes = recipe.Int(int(math.Round(v)))
	}
	return inst
}
