package engine

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"recipe-chatbot/internal/core/nlp/intent"
	"recipe-chatbot/internal/core/nlp/ner"
	"recipe-chatbot/internal/core/nlp/preprocess"
	"recipe-chatbot/internal/pkg/common"
)

// 決策門檻
const (
	minConfidence     = 0.35 // 低於此信心度要求澄清
	rescueThreshold   = 0.3  // 疑似亂碼輸入的救援門檻
	simpleConfidence  = 0.65 // 簡單輸入捷徑的啟發式信心度
	restrictionCap    = 20   // 迴避清單總量上限，超過轉向專業諮詢
	minInputLength    = 3    // 亂碼判定的最短長度
	minAlphaRatio     = 0.3  // 字母字元比例下限
	minVocabRatio     = 0.2  // 常見字彙命中比例下限

	intentSimple = "cari_resep"
)

// 簡單輸入關鍵字，值為 true 時該詞同時作為主食材
var simpleKeywords = map[string]bool{
	"ayam":   true,
	"ikan":   true,
	"sapi":   true,
	"tempe":  true,
	"tahu":   true,
	"nasi":   false,
	"mie":    false,
	"pasta":  false,
	"makan":  false,
	"masak":  false,
	"resep":  false,
	"bikin":  false,
	"buat":   false,
	"mau":    false,
	"pengen": false,
	"ingin":  false,
}

// 常見字彙表，用於字彙命中比例
var commonWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"saya", "aku", "mau", "ingin", "pengen", "pingin", "lagi",
		"masak", "makan", "resep", "bikin", "buat", "cara", "gimana",
		"ayam", "ikan", "sapi", "tempe", "tahu", "telur", "nasi", "mie",
		"pasta", "sayur", "daging", "udang", "goreng", "bakar", "rebus",
		"tumis", "kukus", "pedas", "manis", "asin", "gurih", "asam",
		"cepat", "mudah", "gampang", "simpel", "enak", "sehat", "menit",
		"tanpa", "tidak", "jangan", "yang", "dan", "atau", "dengan",
		"untuk", "dari", "apa", "ada", "bisa", "tolong", "dong", "ya",
		"halo", "hai", "pagi", "siang", "malam", "terima", "kasih",
		"diabetes", "hipertensi", "kolesterol", "diet", "vegetarian",
	} {
		commonWords[w] = struct{}{}
	}
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
	msgEmptyInput    = "Hmm, sepertinya pesanmu kosong. Mau masak apa hari ini? 😊"
	msgGibberish     = "Maaf, aku kurang mengerti maksudmu. Coba ceritakan bahan atau masakan yang kamu inginkan, misalnya \"mau masak ayam goreng\" 🙏"
	msgLowConfidence = "Aku belum yakin dengan maksudmu. Bisa jelaskan lagi mau masak apa? Misalnya sebutkan bahan utamanya 😊"
	msgNeedMain      = "Boleh kasih tahu bahan utama yang mau dimasak? Misalnya ayam, ikan, atau tahu 🍳"
	msgTooManyAvoid  = "Pantangan makananmu cukup banyak. Demi keamanan, sebaiknya konsultasikan menu dengan ahli gizi ya 🙏"
	msgInternalError = "Maaf, ada kendala saat memproses pesanmu. Coba lagi sebentar ya 🙏"
)

var digitsOnlyRe = regexp.MustCompile(`^\d+$`)

// Engine 決策引擎，對單一訊息組合正規化、實體抽取與意圖分類
type Engine struct {
	preprocessor *preprocess.Preprocessor
	extractor    *ner.Extractor
	oracle       intent.Predictor
}

// NewEngine 建立決策引擎
func NewEngine(pre *preprocess.Preprocessor, ext *ner.Extractor, oracle intent.Predictor) *Engine {
	return &Engine{preprocessor: pre, extractor: ext, oracle: oracle}
}

// Decide 處理單一訊息並回傳決策結果，任何內部錯誤都轉為 fallback
func (e *Engine) Decide(ctx context.Context, rawText string) (result common.DecisionResult) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("決策引擎發生未預期錯誤", zap.Any("panic", r))
			result = common.DecisionResult{
				Status:  common.StatusFallback,
				Action:  common.ActionRejectInput,
				Message: msgInternalError,
			}
		}
	}()

	// 1. 空白輸入
	if strings.TrimSpace(rawText) == "" {
		return common.DecisionResult{
			Status:  common.StatusFallback,
			Action:  common.ActionAskClarification,
			Message: msgEmptyInput,
		}
	}

	normalized := e.preprocessor.Normalize(rawText)

	// 2. 簡單輸入捷徑，避免過短的有效請求被拒絕
	if bundle, ok := simpleInput(normalized.Normalized); ok {
		return common.DecisionResult{
			Status:     common.StatusOK,
			Intent:     intentSimple,
			Confidence: simpleConfidence,
			Entities:   bundle,
			Action:     common.ActionMatchRecipe,
		}
	}

	// 3. 亂碼閘門，救援機制讓分類器有最後裁量權
	if isGibberish(normalized.Normalized) {
		prediction, err := e.oracle.Predict(ctx, normalized.Normalized)
		if err != nil || prediction.Confidence <= rescueThreshold {
			return common.DecisionResult{
				Status:  common.StatusFallback,
				Action:  common.ActionRejectInput,
				Message: msgGibberish,
			}
		}
		return common.DecisionResult{
			Status:     common.StatusOK,
			Intent:     prediction.Primary,
			Confidence: prediction.Confidence,
			Entities:   e.extractor.ExtractAll(normalized),
			Action:     common.ActionMatchRecipe,
		}
	}

	prediction, err := e.oracle.Predict(ctx, normalized.Normalized)
	if err != nil {
		common.LogError("意圖分類失敗", zap.Error(err))
		return common.DecisionResult{
			Status:  common.StatusFallback,
			Action:  common.ActionRejectInput,
			Message: msgInternalError,
		}
	}

	// 4. 信心度閘門
	if prediction.Confidence < minConfidence {
		return common.DecisionResult{
			Status:     common.StatusClarification,
			Intent:     prediction.Primary,
			Confidence: prediction.Confidence,
			Action:     common.ActionAskClarification,
			Message:    msgLowConfidence,
		}
	}

	entities := e.extractor.ExtractAll(normalized)

	// 5. 搜尋意圖缺主食材時做欄位補問
	if searchIntents[prediction.Primary] && len(entities.Ingredients.Main) == 0 {
		return common.DecisionResult{
			Status:     common.StatusClarification,
			Intent:     prediction.Primary,
			Confidence: prediction.Confidence,
			Entities:   entities,
			Action:     common.ActionAskClarification,
			Message:    msgNeedMain,
		}
	}

	// 6. 安全閘門，迴避清單過大視為安全停損
	if len(entities.HealthConditions) > 0 && len(entities.Ingredients.Avoid) > restrictionCap {
		return common.DecisionResult{
			Status:     common.StatusClarification,
			Intent:     prediction.Primary,
			Confidence: prediction.Confidence,
			Entities:   entities,
			Action:     common.ActionAskClarification,
			Message:    msgTooManyAvoid,
		}
	}

	// 7. 通過全部閘門
	return common.DecisionResult{
		Status:     common.StatusOK,
		Intent:     prediction.Primary,
		Confidence: prediction.Confidence,
		Entities:   entities,
		Action:     common.ActionMatchRecipe,
	}
}

// simpleInput 檢查是否命中簡單輸入捷徑
func simpleInput(text string) (common.EntityBundle, bool) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || len(tokens) > 2 {
		return common.EntityBundle{}, false
	}
	for _, tok := range tokens {
		isMain, ok := simpleKeywords[tok]
		if !ok {
			continue
		}
		var bundle common.EntityBundle
		if isMain {
			bundle.Ingredients.Main = []string{tok}
		}
		return bundle, true
	}
	return common.EntityBundle{}, false
}

// isGibberish 判斷輸入是否為亂碼，純數字輸入豁免
func isGibberish(text string) bool {
	trimmed := strings.TrimSpace(text)
	if digitsOnlyRe.MatchString(strings.ReplaceAll(trimmed, " ", "")) {
		return false
	}
	if len(trimmed) < minInputLength {
		return true
	}

	tokens := strings.Fields(trimmed)

	// 單一長詞不視為亂碼，交給後續閘門
	if len(tokens) == 1 && len(tokens[0]) >= 3 {
		return false
	}

	alpha := 0
	total := 0
	for _, r := range trimmed {
		if r == ' ' {
			continue
		}
		total++
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alpha++
		}
	}
	if total > 0 && float64(alpha)/float64(total) < minAlphaRatio {
		return true
	}

	longTokens := 0
	for _, tok := range tokens {
		if len(tok) >= 2 {
			longTokens++
		}
	}
	if longTokens < 1 {
		return true
	}

	known := 0
	for _, tok := range tokens {
		if _, ok := commonWords[tok]; ok {
			known++
		}
	}
	if float64(known)/float64(len(tokens)) < minVocabRatio {
		return true
	}

	return false
}
