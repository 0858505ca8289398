package health

import (
	"net/http"
	"runtime"
	"time"

	"recipe-chatbot/internal/core/matcher/cache"
	"recipe-chatbot/internal/core/nlp/intent"
	"recipe-chatbot/internal/infrastructure/config"
	"recipe-chatbot/internal/infrastructure/storage"
	"recipe-chatbot/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	// 獲取配置
	value, exists := c.Get("config")
	if !exists {
		common.LogError("Configuration not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Configuration not found",
		})
		return
	}
	cfg, ok := value.(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Invalid configuration type",
		})
		return
	}

	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   cfg.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	// 快取統計（若有設置）
	if value, exists := c.Get("match_cache"); exists {
		if store, ok := value.(cache.Store); ok && store != nil {
			response.Cache = store.Stats()
		}
	}

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查，確認語料庫與意圖分類服務可用
func ReadinessCheck(c *gin.Context) {
	checks := gin.H{}
	ready := true

	if value, exists := c.Get("recipe_store"); exists {
		if store, ok := value.(storage.RecipeStore); ok {
			if _, err := store.Corpus(c.Request.Context()); err != nil {
				checks["corpus"] = err.Error()
				ready = false
			} else {
				checks["corpus"] = "ok"
			}
		}
	}

	if value, exists := c.Get("oracle"); exists {
		if oracle, ok := value.(intent.Predictor); ok {
			if err := oracle.Ready(c.Request.Context()); err != nil {
				checks["oracle"] = err.Error()
				ready = false
			} else {
				checks["oracle"] = "ok"
			}
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"checks": checks,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": checks,
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
