package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-chatbot/internal/api"
	"recipe-chatbot/internal/core/matcher/cache"
	"recipe-chatbot/internal/core/nlp/intent"
	"recipe-chatbot/internal/infrastructure/config"
	"recipe-chatbot/internal/infrastructure/kb"
	"recipe-chatbot/internal/infrastructure/storage"
	"recipe-chatbot/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	// 使用 logger 記錄啟動信息
	common.LogInfo("載入設定",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("oracle_base_url", cfg.Oracle.BaseURL),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	// 載入知識庫
	knowledge := kb.Load(kb.Paths{
		Ingredients:      cfg.Knowledge.Ingredients,
		CookingMethods:   cfg.Knowledge.CookingMethods,
		HealthConditions: cfg.Knowledge.HealthConditions,
		Normalization:    cfg.Knowledge.Normalization,
	})

	// 初始化食譜儲存
	var store storage.RecipeStore
	switch cfg.Storage.Driver {
	case "postgres":
		store, err = storage.NewPostgresStore(cfg.Storage.PostgresDSN)
	default:
		store, err = storage.NewJSONStore(cfg.Storage.RecipePath)
	}
	if err != nil {
		common.LogFatal("Failed to initialize recipe store",
			zap.String("driver", cfg.Storage.Driver),
			zap.Error(err),
		)
	}
	defer store.Close()

	// 初始化意圖分類服務客戶端，服務不可用時視為啟動失敗
	oracle := intent.NewClient(cfg.Oracle.BaseURL, cfg.Oracle.Timeout)
	readyCtx, readyCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := oracle.Ready(readyCtx); err != nil {
		readyCancel()
		common.LogFatal("Intent oracle not ready",
			zap.String("base_url", cfg.Oracle.BaseURL),
			zap.Error(err),
		)
	}
	readyCancel()

	// 初始化比對結果快取
	var matchCache cache.Store
	if cfg.Cache.Enabled {
		switch cfg.Cache.Backend {
		case "redis":
			matchCache, err = cache.NewRedisStore(cfg)
			if err != nil {
				common.LogFatal("Failed to initialize redis cache",
					zap.String("addr", cfg.Cache.RedisAddr),
					zap.Error(err),
				)
			}
		default:
			matchCache = cache.NewManager(cfg)
		}
		defer matchCache.Close()
	}

	// 設置路由
	router, err := api.SetupRouter(cfg, knowledge, store, oracle, matchCache)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
