package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"recipe-chatbot/internal/pkg/common"
)

// PostgresStore PostgreSQL 食譜儲存
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore 建立 PostgreSQL 儲存並確認連線
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	common.LogInfo("PostgreSQL 食譜儲存已連線")
	return &PostgresStore{db: db}, nil
}

const corpusQuery = `
SELECT id, name, main_ingredients, secondary_ingredients, cooking_methods,
       taste_categories, cook_time_minutes, difficulty, calories_per_serving,
       suitable_for, unsuitable_for, popular
FROM recipes`

// Corpus 讀取完整語料庫，單列格式錯誤時略過並記錄警告
func (s *PostgresStore) Corpus(ctx context.Context) ([]common.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, corpusQuery)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	var recipes []common.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			common.LogWarn("略過格式錯誤的食譜列", zap.Error(err))
			continue
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan recipes: %w", err)
	}
	return recipes, nil
}

// GetRecipe 依 ID 取得單一食譜
func (s *PostgresStore) GetRecipe(ctx context.Context, id int) (common.Recipe, error) {
	row := s.db.QueryRowContext(ctx, corpusQuery+" WHERE id = $1", id)
	recipe, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return common.Recipe{}, common.ErrRecipeNotFound
	}
	if err != nil {
		return common.Recipe{}, fmt.Errorf("get recipe %d: %w", id, err)
	}
	return recipe, nil
}

// LogQuery 寫入查詢記錄
func (s *PostgresStore) LogQuery(ctx context.Context, userID, text, intent string, confidence float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_log (user_id, query_text, intent, confidence, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		userID, text, intent, confidence,
	)
	if err != nil {
		return fmt.Errorf("insert query log: %w", err)
	}
	return nil
}

// LogMatches 寫入比對記錄
func (s *PostgresStore) LogMatches(ctx context.Context, userID string, results []common.MatchResult) error {
	for _, r := range results {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO match_log (user_id, recipe_id, score, created_at)
			 VALUES ($1, $2, $3, NOW())`,
			userID, r.Recipe.ID, r.Score,
		)
		if err != nil {
			return fmt.Errorf("insert match log: %w", err)
		}
	}
	return nil
}

// PopularRecipes 依比對記錄統計最常被推薦的食譜
func (s *PostgresStore) PopularRecipes(ctx context.Context, limit int) ([]common.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, corpusQuery+`
		 JOIN (
		   SELECT recipe_id, COUNT(*) AS n
		   FROM match_log
		   GROUP BY recipe_id
		 ) m ON m.recipe_id = recipes.id
		 ORDER BY m.n DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query popular recipes: %w", err)
	}
	defer rows.Close()

	var recipes []common.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			common.LogWarn("略過格式錯誤的食譜列", zap.Error(err))
			continue
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

// Close 關閉連線池
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// rowScanner sql.Row 與 sql.Rows 的共同介面
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecipe(row rowScanner) (common.Recipe, error) {
	var recipe common.Recipe
	err := row.Scan(
		&recipe.ID,
		&recipe.Name,
		pq.Array(&recipe.MainIngredients),
		pq.Array(&recipe.SecondaryIngredients),
		pq.Array(&recipe.CookingMethods),
		pq.Array(&recipe.TasteCategories),
		&recipe.CookTimeMinutes,
		&recipe.Difficulty,
		&recipe.CaloriesPerServing,
		pq.Array(&recipe.SuitableFor),
		pq.Array(&recipe.UnsuitableFor),
		&recipe.Popular,
	)
	return recipe, err
}
