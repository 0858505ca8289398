package ner

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"recipe-chatbot/internal/infrastructure/kb"
	"recipe-chatbot/internal/pkg/common"
)

// 迴避樣式，捕獲組為被排除的詞，沿用正規化器的否定詞家族
var avoidPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bga\s+boleh\s+(\w+)`),
	regexp.MustCompile(`(?i)\bgak\s+bisa\s+makan\s+(\w+)`),
	regexp.MustCompile(`(?i)\btanpa\s+(\w+)`),
	regexp.MustCompile(`(?i)\btidak\s+pakai\s+(\w+)`),
	regexp.MustCompile(`(?i)\btidak\s+(\w+)`),
	regexp.MustCompile(`(?i)\bjangan\s+pakai\s+(\w+)`),
	regexp.MustCompile(`(?i)\bjangan\s+(\w+)`),
	regexp.MustCompile(`(?i)\bhindari\s+(\w+)`),
	regexp.MustCompile(`(?i)\bgak\s+(\w+)`),
	regexp.MustCompile(`(?i)\bga\s+(\w+)`),
}

// 否定的 pedas 樣式，命中時從口味偏好移除 pedas
var negatedPedasRe = regexp.MustCompile(`(?i)\b(tidak|ga|gak|jangan)\s+pedas\b`)

// 明確分鐘數樣式
var minutesRe = regexp.MustCompile(`(\d+)\s*menit`)

// 時間關鍵字桶，依優先順序比對
var timeBuckets = []struct {
	keywords []string
	value    string
}{
	{[]string{"cepat", "cepet", "quick"}, "quick"},
	{[]string{"simple", "simpel"}, "simple"},
	{[]string{"gampang", "mudah", "easy"}, "easy"},
}

// Extractor 實體抽取器
type Extractor struct {
	ingredientLookup map[string]string // 詞 → 類別
	cookingLookup    map[string]string // 詞 → 子類別
	healthLookup     map[string]string // 同義詞 → 正式名稱
	tasteLookup      map[string]string // 關鍵字 → 正式口味
	conditions       map[string]kb.ConditionEntry
}

// NewExtractor 由知識庫建立抽取器，查詢表在建構時攤平一次
func NewExtractor(knowledge *kb.KnowledgeBase) *Extractor {
	e := &Extractor{
		ingredientLookup: map[string]string{},
		cookingLookup:    map[string]string{},
		healthLookup:     map[string]string{},
		tasteLookup:      map[string]string{},
		conditions:       knowledge.Health.Conditions,
	}

	for category, entries := range knowledge.Ingredients {
		for canonical, synonyms := range entries {
			e.ingredientLookup[strings.ToLower(canonical)] = category
			for _, s := range synonyms {
				e.ingredientLookup[strings.ToLower(s)] = category
			}
		}
	}

	for subcategory, entries := range knowledge.Cooking {
		for canonical, synonyms := range entries {
			e.cookingLookup[strings.ToLower(canonical)] = subcategory
			for _, s := range synonyms {
				e.cookingLookup[strings.ToLower(s)] = subcategory
			}
		}
	}

	for key, entry := range knowledge.Health.Conditions {
		name := entry.Name
		if name == "" {
			name = key
		}
		e.healthLookup[strings.ToLower(key)] = name
		e.healthLookup[strings.ToLower(name)] = name
		for _, s := range entry.Synonyms {
			e.healthLookup[strings.ToLower(s)] = name
		}
	}

	for canonical, keywords := range knowledge.Health.TastePrefs {
		e.tasteLookup[strings.ToLower(canonical)] = canonical
		for _, kw := range keywords {
			e.tasteLookup[strings.ToLower(kw)] = canonical
		}
	}

	return e
}

// ExtractAll 對正規化文字執行完整實體抽取
func (e *Extractor) ExtractAll(nt common.NormalizedText) common.EntityBundle {
	text := nt.Normalized

	avoided := e.extractAvoided(text)
	main := e.extractMainIngredients(text, avoided)
	methods := e.extractCookingMethods(text)
	conditions := e.extractHealthConditions(text)
	tastes := e.extractTastes(text)
	timeConstraint := extractTimeConstraint(text)

	return compile(main, avoided, methods, conditions, tastes, timeConstraint)
}

// extractAvoided 擷取被否定樣式捕獲且存在於食材表中的詞
func (e *Extractor) extractAvoided(text string) []string {
	var avoided []string
	for _, re := range avoidPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			word := strings.ToLower(m[1])
			if _, ok := e.ingredientLookup[word]; ok {
				avoided = append(avoided, word)
			}
		}
	}
	return common.UniqueStrings(avoided)
}

// extractMainIngredients 用 3 到 1 的遞減 n-gram 掃描食材
func (e *Extractor) extractMainIngredients(text string, avoided []string) []string {
	var found []string
	for _, gram := range ngrams(text, 3) {
		if _, ok := e.ingredientLookup[gram]; !ok {
			continue
		}
		if common.ContainsString(avoided, gram) {
			continue
		}
		found = append(found, gram)
	}
	return common.UniqueStrings(found)
}

// extractCookingMethods 用遞減 n-gram 掃描烹調方式
func (e *Extractor) extractCookingMethods(text string) []string {
	var found []string
	for _, gram := range ngrams(text, 3) {
		if _, ok := e.cookingLookup[gram]; ok {
			found = append(found, gram)
		}
	}
	return common.UniqueStrings(found)
}

// extractHealthConditions 子字串比對健康狀況名稱與同義詞
func (e *Extractor) extractHealthConditions(text string) []common.HealthCondition {
	seen := map[string]bool{}
	var found []common.HealthCondition
	for key, name := range e.healthLookup {
		if !strings.Contains(text, key) || seen[name] {
			continue
		}
		seen[name] = true
		entry := e.findCondition(name)
		found = append(found, common.HealthCondition{
			Name:        name,
			Avoid:       common.UniqueStrings(entry.Avoid),
			Recommended: common.UniqueStrings(entry.Recommended),
		})
	}
	// map 走訪順序不定，依名稱排序讓輸出穩定
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found
}

func (e *Extractor) findCondition(name string) kb.ConditionEntry {
	for key, entry := range e.conditions {
		if entry.Name == name || key == name {
			return entry
		}
	}
	return kb.ConditionEntry{Name: name}
}

// extractTastes 子字串比對口味偏好並做 pedas 否定修正
func (e *Extractor) extractTastes(text string) []string {
	var found []string
	for key, canonical := range e.tasteLookup {
		if strings.Contains(text, key) {
			found = append(found, canonical)
		}
	}
	found = common.UniqueStrings(found)
	if negatedPedasRe.MatchString(text) {
		filtered := found[:0]
		for _, t := range found {
			if t != "pedas" {
				filtered = append(filtered, t)
			}
		}
		found = filtered
	}
	sort.Strings(found)
	return found
}

// extractTimeConstraint 依優先序抽取時間限制，只回傳一個
func extractTimeConstraint(text string) string {
	if m := minutesRe.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s minutes", m[1])
	}
	for _, bucket := range timeBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(text, kw) {
				return bucket.value
			}
		}
	}
	return ""
}

// compile 彙整最終實體包，健康狀況的迴避清單併入食材迴避清單
func compile(main, avoided, methods []string, conditions []common.HealthCondition, tastes []string, timeConstraint string) common.EntityBundle {
	allAvoid := append([]string{}, avoided...)
	for _, c := range conditions {
		allAvoid = append(allAvoid, c.Avoid...)
	}
	allAvoid = common.UniqueStrings(allAvoid)

	// main 與 avoid 必須互斥
	var cleanMain []string
	for _, m := range main {
		if !common.ContainsString(allAvoid, m) {
			cleanMain = append(cleanMain, m)
		}
	}

	return common.EntityBundle{
		Ingredients: common.IngredientSet{
			Main:  cleanMain,
			Avoid: allAvoid,
		},
		CookingMethods:   methods,
		HealthConditions: conditions,
		TastePreferences: tastes,
		TimeConstraint:   timeConstraint,
	}
}

// ngrams 產生遞減長度的 n-gram 序列，長的在前
func ngrams(text string, maxLen int) []string {
	tokens := strings.Fields(text)
	var grams []string
	for n := maxLen; n >= 1; n-- {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}
