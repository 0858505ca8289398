package storage

import (
	"context"

	"recipe-chatbot/internal/pkg/common"
)

// RecipeStore 食譜儲存介面，比對引擎只讀取其回傳的快照
type RecipeStore interface {
	// Corpus 回傳目前語料庫的不可變快照
	Corpus(ctx context.Context) ([]common.Recipe, error)
	// GetRecipe 依 ID 取得單一食譜
	GetRecipe(ctx context.Context, id int) (common.Recipe, error)
	// LogQuery 記錄一次使用者查詢
	LogQuery(ctx context.Context, userID, text, intent string, confidence float64) error
	// LogMatches 記錄一次比對結果
	LogMatches(ctx context.Context, userID string, results []common.MatchResult) error
	// PopularRecipes 回傳被推薦次數最多的食譜
	PopularRecipes(ctx context.Context, limit int) ([]common.Recipe, error)
	// Close 釋放底層資源
	Close() error
}
