package recipe

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-chatbot/internal/core/matcher"
	"recipe-chatbot/internal/core/matcher/cache"
	"recipe-chatbot/internal/infrastructure/kb"
	"recipe-chatbot/internal/infrastructure/storage"
	"recipe-chatbot/internal/pkg/common"
)

// SearchRequest 直接以結構化條件搜尋食譜，略過對話層
type SearchRequest struct {
	MainIngredients  []string `json:"main_ingredients" binding:"required"`
	AvoidIngredients []string `json:"avoid_ingredients,omitempty"`
	CookingMethods   []string `json:"cooking_methods,omitempty"`
	HealthConditions []string `json:"health_conditions,omitempty"`
	TastePreferences []string `json:"taste_preferences,omitempty"`
	TimeConstraint   string   `json:"time_constraint,omitempty"`
	TopK             int      `json:"top_k,omitempty"`
}

func getStore(c *gin.Context) (storage.RecipeStore, bool) {
	value, exists := c.Get("recipe_store")
	if !exists {
		common.LogError("Recipe store not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recipe store not found"})
		return nil, false
	}
	store, ok := value.(storage.RecipeStore)
	if !ok {
		common.LogError("Invalid recipe store type in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid recipe store type"})
		return nil, false
	}
	return store, true
}

// Search 結構化食譜搜尋
func Search(c *gin.Context) {
	store, ok := getStore(c)
	if !ok {
		return
	}

	value, exists := c.Get("matcher")
	if !exists {
		common.LogError("Matcher not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Matcher not found"})
		return
	}
	m, ok := value.(*matcher.Matcher)
	if !ok {
		common.LogError("Invalid matcher type in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid matcher type"})
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "main_ingredients is required",
		})
		return
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}

	entities := common.EntityBundle{
		Ingredients: common.IngredientSet{
			Main:  common.UniqueStrings(req.MainIngredients),
			Avoid: common.UniqueStrings(req.AvoidIngredients),
		},
		CookingMethods:   common.UniqueStrings(req.CookingMethods),
		TastePreferences: common.UniqueStrings(req.TastePreferences),
		TimeConstraint:   req.TimeConstraint,
	}
	for _, name := range common.UniqueStrings(req.HealthConditions) {
		entities.HealthConditions = append(entities.HealthConditions, common.HealthCondition{Name: name})
	}

	// 結構化搜尋也走比對快取
	var results []common.MatchResult
	key := cache.Key(entities, req.TopK)
	matchCache := getCache(c)
	if matchCache != nil {
		if cached, err := matchCache.Get(c.Request.Context(), key); err == nil {
			c.JSON(http.StatusOK, gin.H{"results": cached, "cached": true})
			return
		}
	}

	corpus, err := store.Corpus(c.Request.Context())
	if err != nil {
		common.LogError("載入語料庫失敗", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recipe corpus unavailable"})
		return
	}

	results = m.Match(entities, corpus, req.TopK)
	if matchCache != nil {
		if err := matchCache.Set(c.Request.Context(), key, results); err != nil {
			common.LogWarn("寫入比對快取失敗", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "cached": false})
}

// getCache 取得比對快取，未設置時回傳 nil
func getCache(c *gin.Context) cache.Store {
	value, exists := c.Get("match_cache")
	if !exists {
		return nil
	}
	store, _ := value.(cache.Store)
	return store
}

// Get 依 ID 取得單一食譜
func Get(c *gin.Context) {
	store, ok := getStore(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	recipe, err := store.GetRecipe(c.Request.Context(), id)
	if err == common.ErrRecipeNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	}
	if err != nil {
		common.LogError("讀取食譜失敗", zap.Int("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load recipe"})
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// Popular 回傳最常被推薦的食譜
func Popular(c *gin.Context) {
	store, ok := getStore(c)
	if !ok {
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	recipes, err := store.PopularRecipes(c.Request.Context(), limit)
	if err != nil {
		common.LogError("讀取熱門食譜失敗", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load popular recipes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// Conditions 列出知識庫中的健康狀況
func Conditions(c *gin.Context) {
	knowledge, ok := getKnowledge(c)
	if !ok {
		return
	}

	names := make([]string, 0, len(knowledge.Health.Conditions))
	for key, entry := range knowledge.Health.Conditions {
		name := entry.Name
		if name == "" {
			name = key
		}
		names = append(names, name)
	}
	names = common.SortedCopy(common.UniqueStrings(names))

	c.JSON(http.StatusOK, gin.H{"conditions": names})
}

// ConditionRestrictions 回傳單一健康狀況的飲食限制
func ConditionRestrictions(c *gin.Context) {
	knowledge, ok := getKnowledge(c)
	if !ok {
		return
	}

	// 依鍵、正式名稱或同義詞查找，不分大小寫
	name := c.Param("name")
	for key, entry := range knowledge.Health.Conditions {
		if strings.EqualFold(key, name) || strings.EqualFold(entry.Name, name) ||
			common.ContainsFold(entry.Synonyms, name) {
			c.JSON(http.StatusOK, gin.H{
				"name":        entry.Name,
				"synonyms":    entry.Synonyms,
				"avoid":       entry.Avoid,
				"recommended": entry.Recommended,
			})
			return
		}
	}

	c.JSON(common.ErrConditionUnknown.Status, gin.H{
		"error": "unknown health condition",
		"code":  common.ErrConditionUnknown.Code,
	})
}

func getKnowledge(c *gin.Context) (*kb.KnowledgeBase, bool) {
	value, exists := c.Get("knowledge_base")
	if !exists {
		common.LogError("Knowledge base not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Knowledge base not found"})
		return nil, false
	}
	knowledge, ok := value.(*kb.KnowledgeBase)
	if !ok {
		common.LogError("Invalid knowledge base type in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid knowledge base type"})
		return nil, false
	}
	return knowledge, true
}
