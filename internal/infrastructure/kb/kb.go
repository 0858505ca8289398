package kb

import (
	"os"

	"go.uber.org/zap"

	"recipe-chatbot/internal/pkg/common"
)

// IngredientKB 食材知識庫，第一層為類別，第二層為正規名稱到同義詞列表
type IngredientKB map[string]map[string][]string

// CookingKB 烹調方式知識庫，結構同食材知識庫
type CookingKB map[string]map[string][]string

// ConditionEntry 健康狀況條目
type ConditionEntry struct {
	Name        string   `json:"nama"`
	Synonyms    []string `json:"sinonim"`
	Avoid       []string `json:"hindari"`
	Recommended []string `json:"anjuran"`
}

// HealthKB 健康狀況與口味偏好知識庫
type HealthKB struct {
	Conditions map[string]ConditionEntry `json:"kondisi_kesehatan"`
	TastePrefs map[string][]string       `json:"preferensi_rasa"`
}

// NormalizationKB 口語與錯字正規化表
type NormalizationKB struct {
	Informal map[string]string `json:"normalisasi_informal"`
	Typos    map[string]string `json:"typo_umum"`
}

// KnowledgeBase 彙整後的知識庫
type KnowledgeBase struct {
	Ingredients   IngredientKB
	Cooking       CookingKB
	Health        HealthKB
	Normalization NormalizationKB
}

// Paths 知識庫檔案路徑
type Paths struct {
	Ingredients      string
	CookingMethods   string
	HealthConditions string
	Normalization    string
}

// Load 載入全部知識庫，單一檔案失敗時退化為空表並記錄警告
func Load(paths Paths) *KnowledgeBase {
	kb := &KnowledgeBase{
		Ingredients: IngredientKB{},
		Cooking:     CookingKB{},
		Health: HealthKB{
			Conditions: map[string]ConditionEntry{},
			TastePrefs: map[string][]string{},
		},
		Normalization: NormalizationKB{
			Informal: map[string]string{},
			Typos:    map[string]string{},
		},
	}

	if err := loadJSONFile(paths.Ingredients, &kb.Ingredients); err != nil {
		common.LogWarn("載入食材知識庫失敗",
			zap.String("path", paths.Ingredients),
			zap.Error(err),
		)
		kb.Ingredients = IngredientKB{}
	}

	if err := loadJSONFile(paths.CookingMethods, &kb.Cooking); err != nil {
		common.LogWarn("載入烹調知識庫失敗",
			zap.String("path", paths.CookingMethods),
			zap.Error(err),
		)
		kb.Cooking = CookingKB{}
	}

	if err := loadJSONFile(paths.HealthConditions, &kb.Health); err != nil {
		common.LogWarn("載入健康知識庫失敗",
			zap.String("path", paths.HealthConditions),
			zap.Error(err),
		)
		kb.Health = HealthKB{
			Conditions: map[string]ConditionEntry{},
			TastePrefs: map[string][]string{},
		}
	}
	if kb.Health.Conditions == nil {
		kb.Health.Conditions = map[string]ConditionEntry{}
	}
	if kb.Health.TastePrefs == nil {
		kb.Health.TastePrefs = map[string][]string{}
	}

	if err := loadJSONFile(paths.Normalization, &kb.Normalization); err != nil {
		common.LogWarn("載入正規化表失敗",
			zap.String("path", paths.Normalization),
			zap.Error(err),
		)
		kb.Normalization = NormalizationKB{
			Informal: map[string]string{},
			Typos:    map[string]string{},
		}
	}
	if kb.Normalization.Informal == nil {
		kb.Normalization.Informal = map[string]string{}
	}
	if kb.Normalization.Typos == nil {
		kb.Normalization.Typos = map[string]string{}
	}

	common.LogInfo("知識庫載入完成",
		zap.Int("ingredient_categories", len(kb.Ingredients)),
		zap.Int("cooking_categories", len(kb.Cooking)),
		zap.Int("health_conditions", len(kb.Health.Conditions)),
		zap.Int("taste_preferences", len(kb.Health.TastePrefs)),
		zap.Int("informal_terms", len(kb.Normalization.Informal)),
		zap.Int("typo_entries", len(kb.Normalization.Typos)),
	)

	return kb
}

// loadJSONFile 讀取並解析單一 JSON 檔案
func loadJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return common.ParseJSONBytes(data, out)
}
