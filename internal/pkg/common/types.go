package common

import (
	"sort"
	"strings"
	"time"
)

// NormalizedText 正規化後的使用者輸入
type NormalizedText struct {
	Original   string   `json:"original"`   // 原始輸入
	Normalized string   `json:"normalized"` // 正規化結果
	Negations  []string `json:"negations"`  // 否定片語（完整匹配片段）
}

// IngredientSet 食材集合
type IngredientSet struct {
	Main  []string `json:"main"`
	Avoid []string `json:"avoid"`
}

// HealthCondition 健康狀況與其飲食限制
type HealthCondition struct {
	Name        string   `json:"name"`
	Avoid       []string `json:"avoid"`
	Recommended []string `json:"recommended"`
}

// EntityBundle 一次抽取出的全部實體
type EntityBundle struct {
	Ingredients      IngredientSet     `json:"ingredients"`
	CookingMethods   []string          `json:"cooking_methods,omitempty"`
	HealthConditions []HealthCondition `json:"health_conditions,omitempty"`
	TastePreferences []string          `json:"taste_preferences,omitempty"`
	TimeConstraint   string            `json:"time_constraint,omitempty"`
}

// IsEmpty 判斷是否完全沒有抽取到實體
func (b EntityBundle) IsEmpty() bool {
	return len(b.Ingredients.Main) == 0 &&
		len(b.Ingredients.Avoid) == 0 &&
		len(b.CookingMethods) == 0 &&
		len(b.HealthConditions) == 0 &&
		len(b.TastePreferences) == 0 &&
		b.TimeConstraint == ""
}

// ConditionNames 回傳健康狀況的正式名稱列表
func (b EntityBundle) ConditionNames() []string {
	names := make([]string, 0, len(b.HealthConditions))
	for _, hc := range b.HealthConditions {
		names = append(names, hc.Name)
	}
	return names
}

// IntentScore 單一意圖與其機率
type IntentScore struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// IntentPrediction 意圖分類結果
type IntentPrediction struct {
	Primary      string        `json:"primary"`
	Confidence   float64       `json:"confidence"`
	Alternatives []IntentScore `json:"alternatives,omitempty"`
}

// DecisionStatus 決策狀態
type DecisionStatus string

const (
	StatusOK            DecisionStatus = "ok"
	StatusFallback      DecisionStatus = "fallback"
	StatusClarification DecisionStatus = "clarification"
)

// DecisionAction 決策動作
type DecisionAction string

const (
	ActionMatchRecipe      DecisionAction = "match_recipe"
	ActionAskClarification DecisionAction = "ask_clarification"
	ActionRejectInput      DecisionAction = "reject_input"
)

// DecisionResult 決策引擎對單一訊息的唯一輸出契約
type DecisionResult struct {
	Status     DecisionStatus `json:"status"`
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   EntityBundle   `json:"entities"`
	Action     DecisionAction `json:"action"`
	Message    string         `json:"message"`
}

// 食譜難度
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Recipe 食譜（儲存層擁有，比對時視為唯讀快照）
type Recipe struct {
	ID                   int      `json:"id"`
	Name                 string   `json:"name"`
	MainIngredients      []string `json:"main_ingredients"`
	SecondaryIngredients []string `json:"secondary_ingredients"`
	CookingMethods       []string `json:"cooking_methods"`
	TasteCategories      []string `json:"taste_categories"`
	CookTimeMinutes      int      `json:"cook_time_minutes"`
	Difficulty           string   `json:"difficulty"`
	CaloriesPerServing   int      `json:"calories_per_serving"`
	SuitableFor          []string `json:"suitable_for"`
	UnsuitableFor        []string `json:"unsuitable_for"`
	Popular              bool     `json:"popular"`
}

// AllIngredients 回傳主食材與副食材的合併列表
func (r Recipe) AllIngredients() []string {
	out := make([]string, 0, len(r.MainIngredients)+len(r.SecondaryIngredients))
	out = append(out, r.MainIngredients...)
	out = append(out, r.SecondaryIngredients...)
	return out
}

// ScoreBreakdown 各項子分數（已乘上權重）
type ScoreBreakdown struct {
	Ingredient float64 `json:"ingredient"`
	Method     float64 `json:"method"`
	Taste      float64 `json:"taste"`
	Time       float64 `json:"time"`
	Bonus      float64 `json:"bonus"`
}

// TermMatch 使用者詞彙與食譜詞彙的配對說明
type TermMatch struct {
	Query   string `json:"query"`
	Matched string `json:"matched"`
	Tier    string `json:"tier"`
}

// MatchDetails 配對細節，供呼叫端顯示「為什麼推薦」
type MatchDetails struct {
	MatchedIngredients []TermMatch `json:"matched_ingredients"`
	MatchedMethods     []TermMatch `json:"matched_methods"`
	MatchedTastes      []TermMatch `json:"matched_tastes"`
	SafeForConditions  []string    `json:"safe_for_conditions"`
}

// MatchResult 單一食譜的比對結果
type MatchResult struct {
	Recipe    Recipe         `json:"recipe"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"score_breakdown"`
	Details   MatchDetails   `json:"match_details"`
}

// Turn 單一對話回合
type Turn struct {
	Timestamp time.Time      `json:"timestamp"`
	UserText  string         `json:"user"`
	BotText   string         `json:"bot"`
	Decision  DecisionResult `json:"decision"`
}

// UniqueStrings 去除重複字串，保留首次出現順序
func UniqueStrings(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// ContainsString 檢查切片是否包含指定字串
func ContainsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

// ContainsFold 檢查切片是否包含指定字串（不分大小寫）
func ContainsFold(items []string, target string) bool {
	for _, item := range items {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}

// SortedCopy 回傳排序後的複本，用於產生穩定的快取鍵
func SortedCopy(items []string) []string {
	out := append([]string(nil), items...)
	sort.Strings(out)
	return out
}
