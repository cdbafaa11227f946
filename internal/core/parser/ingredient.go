package parser

import (
	"regexp"
	"strconv"
	"strings"

	"recipe-importer/internal/core/recipe"
)

var (
	bulletPattern   = regexp.MustCompile(`^(?:[-•*·▪►–—]+\s*|\d+[.)]\s+)`)
	numberPattern   = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
	fractionPattern = regexp.MustCompile(`^(\d+)/(\d+)$`)
	rangePattern    = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)-\d+(?:[.,]\d+)?$`)
	gluedPattern    = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)(\pL+\.?)$`)
)

var unicodeFractions = map[string]float64{
	"½": 0.5,
	"¼": 0.25,
	"¾": 0.75,
	"⅓": 1.0 / 3,
	"⅔": 2.0 / 3,
}

// 單位以去重音小寫比對，最多三個字
var units = map[string]bool{
	"xicara": true, "xicaras": true, "xic": true, "xic.": true,
	"xicara de cha": true, "xicaras de cha": true,
	"colher": true, "colheres": true,
	"colher de sopa": true, "colheres de sopa": true,
	"colher de cha": true, "colheres de cha": true,
	"colher de sobremesa": true, "colheres de sobremesa": true,
	"copo": true, "copos": true,
	"g": true, "gr": true, "grama": true, "gramas": true,
	"kg": true, "quilo": true, "quilos": true, "mg": true,
	"ml": true, "l": true, "litro": true, "litros": true,
	"pitada": true, "pitadas": true, "punhado": true,
	"dente": true, "dentes": true,
	"lata": true, "latas": true,
	"pacote": true, "pacotes": true,
	"unidade": true, "unidades": true,
	"fatia": true, "fatias": true,
	"fio": true, "fios": true,
	"maco": true, "macos": true,
	"cup": true, "cups": true,
	"tbsp": true, "tsp": true,
	"tablespoon": true, "tablespoons": true,
	"teaspoon": true, "teaspoons": true,
	"oz": true, "lb": true, "lbs": true, "pound": true, "pounds": true,
	"gram": true, "grams": true,
	"clove": true, "cloves": true,
	"pinch": true, "slice": true, "slices": true,
	"can": true, "cans": true,
}

// 單位與名稱之間的連接詞，解析時捨棄
var connectors = map[string]bool{
	"de": true, "do": true, "da": true, "of": true,
}

// stripBullet 移除項目符號與 "1." 形式的編號
func stripBullet(line string) string {
	return strings.TrimSpace(bulletPattern.ReplaceAllString(strings.TrimSpace(line), ""))
}

// ParseIngredient 解析 "<數量> <單位?> <名稱>"，無法解析時整行作為名稱
func ParseIngredient(line string) recipe.Ingredient {
	clean := stripBullet(line)
	words := strings.Fields(clean)
	if len(words) == 0 {
		return recipe.Ingredient{}
	}

	qty, rest, ok := parseQuantity(words)
	if !ok {
		return recipe.Ingredient{Name: clean}
	}

	unit := ""
	for n := min(3, len(rest)); n >= 1; n-- {
		candidate := strings.Join(rest[:n], " ")
		if units[fold(candidate)] || units[strings.TrimSuffix(fold(candidate), ".")] {
			unit = strings.TrimSuffix(candidate, ".")
			rest = rest[n:]
			break
		}
	}

	if unit != "" && len(rest) > 1 && connectors[fold(rest[0])] {
		rest = rest[1:]
	}

	name := strings.Join(rest, " ")
	if name == "" {
		// "2 xícaras" 沒有名稱時保留原文
		return recipe.Ingredient{Name: clean, Quantity: recipe.Float(qty)}
	}
	return recipe.Ingredient{Name: name, Quantity: recipe.Float(qty), Unit: unit}
}

// parseQuantity 解析開頭的數量，回傳剩餘的字
func parseQuantity(words []string) (float64, []string, bool) {
	first := words[0]

	if v, ok := unicodeFractions[first]; ok {
		return v, words[1:], true
	}

	if numberPattern.MatchString(first) {
		v := parseNumber(first)
		if len(words) > 1 {
			if f, ok := parseFraction(words[1]); ok {
				return v + f, words[2:], true
			}
			if f, ok := unicodeFractions[words[1]]; ok {
				return v + f, words[2:], true
			}
		}
		return v, words[1:], true
	}

	if f, ok := parseFraction(first); ok {
		return f, words[1:], true
	}

	if m := rangePattern.FindStringSubmatch(first); m != nil {
		return parseNumber(m[1]), words[1:], true
	}

	// "200g" 這類數字與單位相連的寫法
	if m := gluedPattern.FindStringSubmatch(first); m != nil {
		if units[strings.TrimSuffix(fold(m[2]), ".")] {
			rest := append([]string{m[2]}, words[1:]...)
			return parseNumber(m[1]), rest, true
		}
	}

	return 0, words, false
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFraction(s string) (float64, bool) {
	m := fractionPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	num, _ := strconv.Atoi(m[1])
	den, _ := strconv.Atoi(m[2])
	if den == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}
