package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Oracle      OracleConfig    `mapstructure:"oracle"`
	Knowledge   KnowledgeConfig `mapstructure:"knowledge"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Chat        ChatConfig      `mapstructure:"chat"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// OracleConfig 意圖分類服務配置（外部模型伺服器）
type OracleConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// KnowledgeConfig 知識庫檔案路徑
type KnowledgeConfig struct {
	Ingredients      string `mapstructure:"ingredients"`
	CookingMethods   string `mapstructure:"cooking_methods"`
	HealthConditions string `mapstructure:"health_conditions"`
	Normalization    string `mapstructure:"normalization"`
}

// StorageConfig 食譜儲存配置
type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // json 或 postgres
	RecipePath  string `mapstructure:"recipe_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// ChatConfig 對話與比對參數
type ChatConfig struct {
	TopK           int     `mapstructure:"top_k"`
	MinMatchScore  float64 `mapstructure:"min_match_score"`
	MaxHistorySize int     `mapstructure:"max_history_size"`
}

// CacheConfig 比對結果快取配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory 或 redis
	RedisAddr       string        `mapstructure:"redis_addr"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（不存在時使用環境變數與預設值）
	_ = godotenv.Load()

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("oracle.base_url", "ORACLE_BASE_URL")
	viper.BindEnv("oracle.timeout", "ORACLE_TIMEOUT")
	viper.BindEnv("storage.driver", "STORAGE_DRIVER")
	viper.BindEnv("storage.recipe_path", "RECIPE_DATABASE_PATH")
	viper.BindEnv("storage.postgres_dsn", "POSTGRES_DSN")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.backend", "CACHE_BACKEND")
	viper.BindEnv("cache.redis_addr", "REDIS_ADDR")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-chatbot")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// 意圖分類服務設定
	viper.SetDefault("oracle.base_url", "http://localhost:8501")
	viper.SetDefault("oracle.timeout", "5s")

	// 知識庫路徑
	viper.SetDefault("knowledge.ingredients", "data/knowledge_base_ingredients.json")
	viper.SetDefault("knowledge.cooking_methods", "data/knowledge_base_cooking_methods.json")
	viper.SetDefault("knowledge.health_conditions", "data/knowledge_base_health_conditions.json")
	viper.SetDefault("knowledge.normalization", "data/knowledge_base_normalization.json")

	// 儲存設定
	viper.SetDefault("storage.driver", "json")
	viper.SetDefault("storage.recipe_path", "data/recipe_database.json")

	// 對話設定
	viper.SetDefault("chat.top_k", 5)
	viper.SetDefault("chat.min_match_score", 40.0)
	viper.SetDefault("chat.max_history_size", 200)

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "10m")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	// dedup window 預設
	viper.SetDefault("dedup_window", "1s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證意圖分類服務設定
	if config.Oracle.BaseURL == "" {
		return fmt.Errorf("oracle base url is required")
	}

	// 驗證儲存設定
	switch config.Storage.Driver {
	case "json":
		if config.Storage.RecipePath == "" {
			return fmt.Errorf("recipe path is required for json storage")
		}
	case "postgres":
		if config.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", config.Storage.Driver)
	}

	// 驗證對話設定
	if config.Chat.TopK <= 0 {
		return fmt.Errorf("invalid chat top_k")
	}
	if config.Chat.MinMatchScore < 0 || config.Chat.MinMatchScore > 100 {
		return fmt.Errorf("invalid chat min_match_score")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.Backend != "memory" && config.Cache.Backend != "redis" {
			return fmt.Errorf("unknown cache backend: %s", config.Cache.Backend)
		}
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	return nil
}
