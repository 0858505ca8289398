package conversation

import (
	"sync"
	"time"

	"recipe-chatbot/internal/pkg/common"
)

// 澄清種類
const ClarifyIngredient = "ingredient"

// Clarification 等待補答的澄清狀態
type Clarification struct {
	Kind            string `json:"kind"`
	OriginalMessage string `json:"original_message"`
}

// Context 單一使用者的對話狀態
type Context struct {
	// turnMu 讓同一使用者的回合嚴格依序處理
	turnMu sync.Mutex

	// mu 保護以下欄位
	mu          sync.RWMutex
	userID      string
	collected   common.EntityBundle
	pending     *Clarification
	lastRecipes []common.MatchResult
	history     []common.Turn
	maxHistory  int
	updatedAt   time.Time
}

// Store 以使用者 ID 為鍵的對話狀態存放區
type Store struct {
	mu         sync.RWMutex
	contexts   map[string]*Context
	maxHistory int
}

// NewStore 建立對話狀態存放區
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = 200
	}
	return &Store{
		contexts:   make(map[string]*Context),
		maxHistory: maxHistory,
	}
}

// GetOrCreate 取得使用者的對話狀態，首次存取時建立空狀態
func (s *Store) GetOrCreate(userID string) *Context {
	s.mu.RLock()
	c, ok := s.contexts[userID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contexts[userID]; ok {
		return c
	}
	c = &Context{
		userID:     userID,
		maxHistory: s.maxHistory,
		updatedAt:  time.Now(),
	}
	s.contexts[userID] = c
	return c
}

// Merge 將新實體併入已收集的實體，集合只增不減，時間限制以最新非空值覆寫
func (c *Context) Merge(entities common.EntityBundle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.collected.Ingredients.Main = common.UniqueStrings(
		append(c.collected.Ingredients.Main, entities.Ingredients.Main...))
	c.collected.Ingredients.Avoid = common.UniqueStrings(
		append(c.collected.Ingredients.Avoid, entities.Ingredients.Avoid...))
	c.collected.CookingMethods = common.UniqueStrings(
		append(c.collected.CookingMethods, entities.CookingMethods...))
	c.collected.TastePreferences = common.UniqueStrings(
		append(c.collected.TastePreferences, entities.TastePreferences...))

	for _, hc := range entities.HealthConditions {
		if !common.ContainsString(conditionNames(c.collected.HealthConditions), hc.Name) {
			c.collected.HealthConditions = append(c.collected.HealthConditions, hc)
		}
	}

	if entities.TimeConstraint != "" {
		c.collected.TimeConstraint = entities.TimeConstraint
	}
	c.updatedAt = time.Now()
}

// Collected 回傳已收集實體的複本
func (c *Context) Collected() common.EntityBundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyBundle(c.collected)
}

// Clear 清空已收集的實體與澄清狀態，回合記錄與最近結果保留
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collected = common.EntityBundle{}
	c.pending = nil
	c.updatedAt = time.Now()
}

// AppendTurn 記錄一個回合，超過上限時丟棄最舊的回合
func (c *Context) AppendTurn(userText, botText string, decision common.DecisionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, common.Turn{
		Timestamp: time.Now(),
		UserText:  userText,
		BotText:   botText,
		Decision:  decision,
	})
	if len(c.history) > c.maxHistory {
		c.history = c.history[len(c.history)-c.maxHistory:]
	}
	c.updatedAt = time.Now()
}

// History 回傳回合記錄的複本
func (c *Context) History() []common.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]common.Turn(nil), c.history...)
}

// SetPending 記錄等待補答的澄清狀態
func (c *Context) SetPending(p Clarification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &p
}

// ClearPending 解除澄清狀態
func (c *Context) ClearPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}

// Pending 回傳等待中的澄清狀態
func (c *Context) Pending() (Clarification, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pending == nil {
		return Clarification{}, false
	}
	return *c.pending, true
}

// SetLastRecipes 記錄最近一次的比對結果
func (c *Context) SetLastRecipes(results []common.MatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRecipes = append([]common.MatchResult(nil), results...)
}

// LastRecipes 回傳最近一次的比對結果
func (c *Context) LastRecipes() []common.MatchResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]common.MatchResult(nil), c.lastRecipes...)
}

func conditionNames(conditions []common.HealthCondition) []string {
	names := make([]string, 0, len(conditions))
	for _, hc := range conditions {
		names = append(names, hc.Name)
	}
	return names
}

func copyBundle(b common.EntityBundle) common.EntityBundle {
	out := common.EntityBundle{
		Ingredients: common.IngredientSet{
			Main:  append([]string(nil), b.Ingredients.Main...),
			Avoid: append([]string(nil), b.Ingredients.Avoid...),
		},
		CookingMethods:   append([]string(nil), b.CookingMethods...),
		TastePreferences: append([]string(nil), b.TastePreferences...),
		TimeConstraint:   b.TimeConstraint,
	}
	out.HealthConditions = append([]common.HealthCondition(nil), b.HealthConditions...)
	return out
}
