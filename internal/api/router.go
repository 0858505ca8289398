package api

import (
	"context"
	"net/http"
	"time"

	"recipe-chatbot/internal/api/handlers/chat"
	"recipe-chatbot/internal/api/handlers/health"
	recipeHandler "recipe-chatbot/internal/api/handlers/recipe"
	"recipe-chatbot/internal/api/middleware"
	"recipe-chatbot/internal/core/conversation"
	"recipe-chatbot/internal/core/matcher"
	"recipe-chatbot/internal/core/matcher/cache"
	"recipe-chatbot/internal/core/nlp/engine"
	"recipe-chatbot/internal/core/nlp/intent"
	"recipe-chatbot/internal/core/nlp/ner"
	"recipe-chatbot/internal/core/nlp/preprocess"
	"recipe-chatbot/internal/infrastructure/config"
	"recipe-chatbot/internal/infrastructure/kb"
	"recipe-chatbot/internal/infrastructure/storage"
	"recipe-chatbot/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 30 * time.Second
	// 請求體大小限制 (64KB，純文字訊息用不到更多)
	maxBodySize = 64 << 10
)

// SetupRouter 設置路由並組裝整條處理管線
func SetupRouter(cfg *config.Config, knowledge *kb.KnowledgeBase, store storage.RecipeStore, oracle intent.Predictor, matchCache cache.Store) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 請求去重與限流
	router.Use(middleware.Deduplication(cfg))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 初始化處理管線
	preprocessor := preprocess.NewPreprocessor(knowledge.Normalization)
	extractor := ner.NewExtractor(knowledge)
	decisionEngine := engine.NewEngine(preprocessor, extractor, oracle)
	recipeMatcher := matcher.NewMatcher(cfg.Chat.MinMatchScore)
	contexts := conversation.NewStore(cfg.Chat.MaxHistorySize)
	conversationSvc := conversation.NewService(contexts, decisionEngine, recipeMatcher, matchCache, store, cfg.Chat.TopK)

	common.LogInfo("Conversation pipeline initialized",
		zap.Bool("cache_enabled", matchCache != nil),
		zap.Int("top_k", cfg.Chat.TopK),
		zap.Float64("min_match_score", cfg.Chat.MinMatchScore),
	)

	// 全局中間件：設置超時和服務
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		// 注入服務
		c.Set("config", cfg)
		c.Set("knowledge_base", knowledge)
		c.Set("recipe_store", store)
		c.Set("oracle", oracle)
		c.Set("matcher", recipeMatcher)
		if matchCache != nil {
			c.Set("match_cache", matchCache)
		}
		c.Set("conversation_service", conversationSvc)

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		chatGroup := api.Group("/chat")
		{
			chatGroup.POST("", chat.Chat)
			chatGroup.GET("/history", chat.History)
			chatGroup.POST("/clear", chat.Clear)
		}

		recipeGroup := api.Group("/recipes")
		{
			recipeGroup.POST("/search", recipeHandler.Search)
			recipeGroup.GET("/:id", recipeHandler.Get)
		}

		api.GET("/health-conditions", recipeHandler.Conditions)
		api.GET("/health-conditions/:name/restrictions", recipeHandler.ConditionRestrictions)
		api.GET("/analytics/popular-recipes", recipeHandler.Popular)
	}

	common.LogInfo("Router setup completed")
	return router, nil
}
