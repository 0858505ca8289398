package matcher

import (
	"fmt"
	"sort"
	"strings"

	"recipe-chatbot/internal/pkg/common"
)

// 分數權重與門檻
const (
	ingredientWeight = 50.0
	methodWeight     = 25.0
	tasteWeight      = 15.0
	timeWeight       = 10.0

	scoreFloor = 40.0 // 低於此分數的候選被捨棄

	nameBonus    = 5.0 // 食譜名稱直接包含查詢食材
	popularBonus = 3.0
	easyBonus    = 2.0

	neutralScore = 0.5 // 使用者未表態的維度
)

// 配對層級
const (
	tierExact     = "exact"
	tierSubstring = "substring"
	tierCategory  = "category"
	tierRelated   = "related"
	tierToken     = "shared_token"
)

// 各層級的子分數
const (
	exactScore     = 1.0
	substringScore = 0.85
	categoryScore  = 0.65
	relatedScore   = 0.6
	tokenBase      = 0.4
	tokenStep      = 0.1
)

// Matcher 食譜比對引擎，對唯讀快照做純計算
type Matcher struct {
	minScore float64
}

// NewMatcher 建立比對引擎
func NewMatcher(minScore float64) *Matcher {
	if minScore <= 0 {
		minScore = scoreFloor
	}
	return &Matcher{minScore: minScore}
}

// Match 依實體包對語料庫打分並回傳前 topK 名
func (m *Matcher) Match(entities common.EntityBundle, corpus []common.Recipe, topK int) []common.MatchResult {
	if topK <= 0 {
		return nil
	}

	// 安全過濾只做一次，後續的擴展與備援都在安全池內進行
	safe := safetyFilter(entities, corpus)
	if len(safe) == 0 {
		return nil
	}

	candidates := m.selectCandidates(entities, safe)

	results := make([]common.MatchResult, 0, len(candidates))
	for _, recipe := range candidates {
		results = append(results, m.scoreRecipe(entities, recipe))
	}

	kept := results[:0]
	for _, r := range results {
		if r.Score >= m.minScore {
			kept = append(kept, r)
		}
	}

	// 全數低於門檻時退回候選池並以門檻分數墊底，避免只因門檻太嚴而空手而回
	if len(kept) == 0 {
		kept = make([]common.MatchResult, 0, len(candidates))
		for _, recipe := range candidates {
			r := m.scoreRecipe(entities, recipe)
			r.Score = m.minScore
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })

	if len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

// selectCandidates 先窄域搜尋，空集且有指定食材時退回廣域搜尋
func (m *Matcher) selectCandidates(entities common.EntityBundle, safe []common.Recipe) []common.Recipe {
	if len(entities.Ingredients.Main) == 0 {
		return safe
	}

	narrow := filterByTerms(expandTerms(entities.Ingredients.Main), safe)
	if len(narrow) > 0 {
		return narrow
	}

	broad := filterByTerms(broadTerms(entities.Ingredients.Main), safe)
	if len(broad) > 0 {
		return broad
	}
	return safe
}

// filterByTerms 保留任一食材欄位包含任一查詢詞的食譜
func filterByTerms(terms []string, recipes []common.Recipe) []common.Recipe {
	if len(terms) == 0 {
		return nil
	}
	var out []common.Recipe
	for _, recipe := range recipes {
		if recipeMentionsAny(recipe, terms) {
			out = append(out, recipe)
		}
	}
	return out
}

func recipeMentionsAny(recipe common.Recipe, terms []string) bool {
	name := strings.ToLower(recipe.Name)
	for _, term := range terms {
		term = strings.ToLower(term)
		if strings.Contains(name, term) {
			return true
		}
		for _, ing := range recipe.AllIngredients() {
			ing = strings.ToLower(ing)
			if strings.Contains(ing, term) || strings.Contains(term, ing) {
				return true
			}
		}
	}
	return false
}

// safetyFilter 硬排除，不參與計分
func safetyFilter(entities common.EntityBundle, corpus []common.Recipe) []common.Recipe {
	avoid := entities.Ingredients.Avoid
	conditions := entities.ConditionNames()

	var safe []common.Recipe
	for _, recipe := range corpus {
		if recipeViolatesAvoid(recipe, avoid) || recipeUnsuitable(recipe, conditions) {
			continue
		}
		safe = append(safe, recipe)
	}
	return safe
}

func recipeViolatesAvoid(recipe common.Recipe, avoid []string) bool {
	for _, ing := range recipe.AllIngredients() {
		ing = strings.ToLower(ing)
		for _, a := range avoid {
			if a == "" {
				continue
			}
			if strings.Contains(ing, strings.ToLower(a)) {
				return true
			}
		}
	}
	return false
}

func recipeUnsuitable(recipe common.Recipe, conditions []string) bool {
	for _, u := range recipe.UnsuitableFor {
		u = strings.ToLower(u)
		for _, c := range conditions {
			c = strings.ToLower(c)
			if strings.Contains(u, c) || strings.Contains(c, u) {
				return true
			}
		}
	}
	return false
}

// scoreRecipe 對單一食譜計算加權總分與說明
func (m *Matcher) scoreRecipe(entities common.EntityBundle, recipe common.Recipe) common.MatchResult {
	var breakdown common.ScoreBreakdown
	details := common.MatchDetails{
		SafeForConditions: entities.ConditionNames(),
	}

	// 食材維度刻意不給中性分，未指定食材就拿不到食材分數
	ingScore, ingMatches := scoreTerms(entities.Ingredients.Main, recipe.AllIngredients())
	breakdown.Ingredient = ingScore * ingredientWeight
	details.MatchedIngredients = ingMatches

	if len(entities.CookingMethods) == 0 {
		breakdown.Method = neutralScore * methodWeight
	} else {
		methodScore, methodMatches := scoreTerms(entities.CookingMethods, recipe.CookingMethods)
		breakdown.Method = methodScore * methodWeight
		details.MatchedMethods = methodMatches
	}

	if len(entities.TastePreferences) == 0 {
		breakdown.Taste = neutralScore * tasteWeight
	} else {
		tasteScore, tasteMatches := scoreTerms(entities.TastePreferences, recipe.TasteCategories)
		breakdown.Taste = tasteScore * tasteWeight
		details.MatchedTastes = tasteMatches
	}

	breakdown.Time = scoreTime(entities.TimeConstraint, recipe) * timeWeight
	breakdown.Bonus = bonuses(entities, recipe)

	total := breakdown.Ingredient + breakdown.Method + breakdown.Taste + breakdown.Time + breakdown.Bonus

	return common.MatchResult{
		Recipe:    recipe,
		Score:     total,
		Breakdown: breakdown,
		Details:   details,
	}
}

// scoreTerms 對查詢詞集合取每詞最佳層級的平均
func scoreTerms(queries, targets []string) (float64, []common.TermMatch) {
	if len(queries) == 0 {
		return 0, nil
	}

	var sum float64
	var matches []common.TermMatch
	for _, q := range queries {
		best, match := bestTermScore(q, targets)
		sum += best
		if match.Tier != "" {
			matches = append(matches, match)
		}
	}
	return sum / float64(len(queries)), matches
}

// bestTermScore 單一查詢詞對全部目標詞取最高層級
func bestTermScore(query string, targets []string) (float64, common.TermMatch) {
	query = strings.ToLower(query)
	best := 0.0
	var bestMatch common.TermMatch

	for _, target := range targets {
		target = strings.ToLower(target)
		score, tier := termScore(query, target)
		if score > best {
			best = score
			bestMatch = common.TermMatch{Query: query, Matched: target, Tier: tier}
		}
	}
	return best, bestMatch
}

// termScore 層級化比對：完全相等 > 子字串 > 同類別 > 相關類別 > 共用詞元
func termScore(query, target string) (float64, string) {
	if query == target {
		return exactScore, tierExact
	}
	if strings.Contains(target, query) || strings.Contains(query, target) {
		return substringScore, tierSubstring
	}
	if sameCategory(query, target) {
		return categoryScore, tierCategory
	}
	if relatedTerms(query, target) {
		return relatedScore, tierRelated
	}
	if shared := sharedTokens(query, target); shared > 0 {
		return tokenBase + tokenStep*float64(shared), tierToken
	}
	return 0, ""
}

func sharedTokens(a, b string) int {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	shared := 0
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if ta == tb {
				shared++
				break
			}
		}
	}
	return shared
}

// scoreTime 時間限制子分數
func scoreTime(constraint string, recipe common.Recipe) float64 {
	if constraint == "" {
		return neutralScore
	}

	switch constraint {
	case "quick":
		if recipe.CookTimeMinutes > 0 && recipe.CookTimeMinutes <= 30 {
			return exactScore
		}
		return 0
	case "simple", "easy":
		if recipe.Difficulty == common.DifficultyEasy {
			return exactScore
		}
		if recipe.Difficulty == common.DifficultyMedium {
			return neutralScore
		}
		return 0
	}

	// "<N> minutes" 形式
	var minutes int
	if n, err := parseMinutes(constraint); err == nil {
		minutes = n
	} else {
		return neutralScore
	}
	if recipe.CookTimeMinutes > 0 && recipe.CookTimeMinutes <= minutes {
		return exactScore
	}
	if recipe.CookTimeMinutes > 0 && recipe.CookTimeMinutes <= minutes+15 {
		return neutralScore
	}
	return 0
}

func parseMinutes(constraint string) (int, error) {
	var n int
	_, err := fmt.Sscanf(constraint, "%d minutes", &n)
	return n, err
}

// bonuses 排名加分，在計分後排序前施加
func bonuses(entities common.EntityBundle, recipe common.Recipe) float64 {
	bonus := 0.0
	name := strings.ToLower(recipe.Name)
	for _, ing := range entities.Ingredients.Main {
		if strings.Contains(name, strings.ToLower(ing)) {
			bonus += nameBonus
			break
		}
	}
	if recipe.Popular {
		bonus += popularBonus
	}
	if recipe.Difficulty == common.DifficultyEasy {
		bonus += easyBonus
	}
	return bonus
}
