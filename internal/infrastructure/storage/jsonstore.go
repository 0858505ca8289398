package storage

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"recipe-chatbot/internal/pkg/common"
)

// 查詢記錄的保留上限
const queryLogLimit = 1000

// JSONStore 以 JSON 檔為底的食譜儲存，語料庫以原子快照持有
type JSONStore struct {
	path     string
	snapshot atomic.Value // []common.Recipe

	mu         sync.Mutex
	queryLog   []queryRecord
	matchCount map[int]int
}

// queryRecord 單筆查詢記錄
type queryRecord struct {
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// recipeFile 食譜檔案格式
type recipeFile struct {
	Recipes []common.Recipe `json:"recipes"`
}

// NewJSONStore 建立 JSON 食譜儲存並載入語料庫
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path:       path,
		matchCount: map[int]int{},
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload 重新載入語料庫，讀取端看到舊快照或新快照，不會看到中間狀態
func (s *JSONStore) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read recipe database: %w", err)
	}

	var file recipeFile
	if err := common.ParseJSONBytes(data, &file); err != nil {
		return fmt.Errorf("parse recipe database: %w", err)
	}

	s.snapshot.Store(file.Recipes)
	common.LogInfo("食譜語料庫已載入",
		zap.String("path", s.path),
		zap.Int("count", len(file.Recipes)),
	)
	return nil
}

// Corpus 回傳目前快照
func (s *JSONStore) Corpus(ctx context.Context) ([]common.Recipe, error) {
	snapshot, _ := s.snapshot.Load().([]common.Recipe)
	if snapshot == nil {
		return nil, common.ErrCorpusNotLoaded
	}
	return snapshot, nil
}

// GetRecipe 依 ID 取得單一食譜
func (s *JSONStore) GetRecipe(ctx context.Context, id int) (common.Recipe, error) {
	snapshot, err := s.Corpus(ctx)
	if err != nil {
		return common.Recipe{}, err
	}
	for _, recipe := range snapshot {
		if recipe.ID == id {
			return recipe, nil
		}
	}
	return common.Recipe{}, common.ErrRecipeNotFound
}

// LogQuery 記錄一次查詢，超過上限時丟棄最舊的記錄
func (s *JSONStore) LogQuery(ctx context.Context, userID, text, intent string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queryLog = append(s.queryLog, queryRecord{
		UserID:     userID,
		Text:       text,
		Intent:     intent,
		Confidence: confidence,
		At:         time.Now(),
	})
	if len(s.queryLog) > queryLogLimit {
		s.queryLog = s.queryLog[len(s.queryLog)-queryLogLimit:]
	}
	return nil
}

// LogMatches 累計每個食譜被推薦的次數
func (s *JSONStore) LogMatches(ctx context.Context, userID string, results []common.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range results {
		s.matchCount[r.Recipe.ID]++
	}
	return nil
}

// PopularRecipes 依推薦次數排序，沒有記錄時退回人工標記的熱門食譜
func (s *JSONStore) PopularRecipes(ctx context.Context, limit int) ([]common.Recipe, error) {
	snapshot, err := s.Corpus(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	counts := make(map[int]int, len(s.matchCount))
	for id, n := range s.matchCount {
		counts[id] = n
	}
	s.mu.Unlock()

	if len(counts) == 0 {
		var flagged []common.Recipe
		for _, recipe := range snapshot {
			if recipe.Popular {
				flagged = append(flagged, recipe)
			}
		}
		if len(flagged) > limit {
			flagged = flagged[:limit]
		}
		return flagged, nil
	}

	ranked := append([]common.Recipe(nil), snapshot...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i].ID] > counts[ranked[j].ID]
	})

	var out []common.Recipe
	for _, recipe := range ranked {
		if counts[recipe.ID] == 0 {
			break
		}
		out = append(out, recipe)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Close 無資源可釋放
func (s *JSONStore) Close() error {
	return nil
}
