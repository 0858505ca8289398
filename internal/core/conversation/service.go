package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"recipe-chatbot/internal/core/matcher"
	"recipe-chatbot/internal/core/matcher/cache"
	"recipe-chatbot/internal/infrastructure/storage"
	"recipe-chatbot/internal/pkg/common"
)

// 澄清回覆的啟發式信心度
const clarificationConfidence = 0.9

// 澄清回覆的常見簡答對應
var clarificationKeywords = map[string]string{
	"ayam":    "ayam",
	"ikan":    "ikan",
	"sayur":   "sayur",
	"daging":  "daging",
	"seafood": "seafood",
}

// 搜尋類意圖家族
var searchIntents = map[string]bool{
	"cari_resep":           true,
	"cari_resep_kompleks":  true,
	"cari_resep_kondisi":   true,
	"cari_resep_pantangan": true,
}

// 使用者訊息
const (
	msgNoResults    = "Maaf, aku belum menemukan resep yang cocok. Coba bahan atau kriteria lain ya 🙏"
	msgResultIntro  = "Ini beberapa resep yang cocok untukmu:"
	msgContextReset = "Oke, kita mulai dari awal. Mau masak apa hari ini? 😊"
	msgChitchat     = "Halo! Aku asisten resep. Ceritakan bahan atau masakan yang kamu mau, nanti aku carikan resepnya 😊"
)

// Decider 決策引擎介面
type Decider interface {
	Decide(ctx context.Context, rawText string) common.DecisionResult
}

// TurnResponse 單一回合的回覆
type TurnResponse struct {
	UserID   string                `json:"user_id"`
	Message  string                `json:"message"`
	Decision common.DecisionResult `json:"decision"`
	Results  []common.MatchResult  `json:"results,omitempty"`
}

// Service 對話服務，串接決策引擎、比對引擎與儲存層
type Service struct {
	contexts *Store
	engine   Decider
	matcher  *matcher.Matcher
	cache    cache.Store // 可為 nil
	recipes  storage.RecipeStore
	topK     int
}

// NewService 建立對話服務
func NewService(contexts *Store, engine Decider, m *matcher.Matcher, c cache.Store, recipes storage.RecipeStore, topK int) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		contexts: contexts,
		engine:   engine,
		matcher:  m,
		cache:    c,
		recipes:  recipes,
		topK:     topK,
	}
}

// ProcessTurn 處理單一使用者訊息，同一使用者的回合嚴格依序
func (s *Service) ProcessTurn(ctx context.Context, userID, message string) (TurnResponse, error) {
	start := time.Now()
	conv := s.contexts.GetOrCreate(userID)
	conv.turnMu.Lock()
	defer conv.turnMu.Unlock()

	var decision common.DecisionResult
	if _, pending := conv.Pending(); pending {
		decision = s.answerClarification(conv, message)
	} else {
		decision = s.engine.Decide(ctx, message)
	}

	response := TurnResponse{UserID: userID, Decision: decision}

	switch decision.Action {
	case common.ActionMatchRecipe:
		conv.ClearPending()
		if searchIntents[decision.Intent] {
			conv.Merge(decision.Entities)
			results, err := s.matchMerged(ctx, conv)
			if err != nil {
				return TurnResponse{}, err
			}
			conv.SetLastRecipes(results)
			response.Results = results
			response.Message = formatResults(results)
			s.recordQuery(ctx, userID, message, decision, results)
		} else {
			response.Message = decision.Message
			if response.Message == "" {
				response.Message = msgChitchat
			}
		}
	case common.ActionAskClarification:
		conv.SetPending(Clarification{Kind: ClarifyIngredient, OriginalMessage: message})
		response.Message = decision.Message
	default:
		response.Message = decision.Message
	}

	conv.AppendTurn(message, response.Message, decision)
	common.LogTurn(userID, decision.Intent, decision.Confidence, string(decision.Action), time.Since(start))
	return response, nil
}

// answerClarification 把整句回覆當成待補欄位的答案
func (s *Service) answerClarification(conv *Context, message string) common.DecisionResult {
	answer := strings.ToLower(strings.TrimSpace(message))
	for keyword, ingredient := range clarificationKeywords {
		if strings.Contains(answer, keyword) {
			answer = ingredient
			break
		}
	}

	conv.ClearPending()
	return common.DecisionResult{
		Status:     common.StatusOK,
		Intent:     "cari_resep",
		Confidence: clarificationConfidence,
		Entities: common.EntityBundle{
			Ingredients: common.IngredientSet{Main: []string{answer}},
		},
		Action: common.ActionMatchRecipe,
	}
}

// matchMerged 用累積後的完整實體對語料庫比對，結果走快取
func (s *Service) matchMerged(ctx context.Context, conv *Context) ([]common.MatchResult, error) {
	merged := conv.Collected()

	var key string
	if s.cache != nil {
		key = cache.Key(merged, s.topK)
		if results, err := s.cache.Get(ctx, key); err == nil {
			return results, nil
		}
	}

	corpus, err := s.recipes.Corpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	results := s.matcher.Match(merged, corpus, s.topK)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, results); err != nil {
			common.LogWarn("寫入比對快取失敗", zap.Error(err))
		}
	}
	return results, nil
}

// recordQuery 盡力寫入查詢與比對記錄，失敗只記警告不影響回覆
func (s *Service) recordQuery(ctx context.Context, userID, message string, decision common.DecisionResult, results []common.MatchResult) {
	if err := s.recipes.LogQuery(ctx, userID, message, decision.Intent, decision.Confidence); err != nil {
		common.LogWarn("寫入查詢記錄失敗", zap.Error(err))
	}
	if len(results) > 0 {
		if err := s.recipes.LogMatches(ctx, userID, results); err != nil {
			common.LogWarn("寫入比對記錄失敗", zap.Error(err))
		}
	}
}

// History 回傳使用者的對話記錄
func (s *Service) History(userID string) []common.Turn {
	return s.contexts.GetOrCreate(userID).History()
}

// Clear 重設使用者已收集的條件並回傳確認訊息，回合記錄保留
func (s *Service) Clear(userID string) string {
	s.contexts.GetOrCreate(userID).Clear()
	return msgContextReset
}

// formatResults 組出推薦清單的回覆文字
func formatResults(results []common.MatchResult) string {
	if len(results) == 0 {
		return msgNoResults
	}

	var b strings.Builder
	b.WriteString(msgResultIntro)
	for i, r := range results {
		b.WriteString(fmt.Sprintf("\n%d. %s (skor %.0f)", i+1, r.Recipe.Name, r.Score))
	}
	return b.String()
}
