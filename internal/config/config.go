package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	AI        AIConfig
	Plan      PlanConfig      `mapstructure:"plan"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	MigrateOnly bool   `mapstructure:"-"`
	File        string `mapstructure:"-"` // 实际加载的配置文件路径，供热更新使用
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig HTTP 层限流；GenerationPerHour 针对生成类接口按用户计数
type RateLimitConfig struct {
	MaxRequests       int `mapstructure:"max_requests"`
	WindowMinutes     int `mapstructure:"window_minutes"`
	GenerationPerHour int `mapstructure:"generation_per_hour"`
}

type AIConfig struct {
	Provider         string              `mapstructure:"provider"` // openai | gemini
	BaseURL          string              `mapstructure:"base_url"`
	APIKey           string              `mapstructure:"api_key"`
	Model            string              `mapstructure:"model"`
	JSONMode         bool                `mapstructure:"json_mode"`
	TimeoutSeconds   int                 `mapstructure:"timeout_seconds"`
	MaxAttempts      int                 `mapstructure:"max_attempts"`
	BackoffInitialMS int                 `mapstructure:"backoff_initial_ms"`
	BackoffMaxMS     int                 `mapstructure:"backoff_max_ms"`
	RateLimit        AIRateLimitConfig   `mapstructure:"rate_limit"`
	Cache            AIResponseCacheConf `mapstructure:"cache"`
}

type AIRateLimitConfig struct {
	MaxCalls      int `mapstructure:"max_calls"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type AIResponseCacheConf struct {
	Driver     string `mapstructure:"driver"` // memory | redis
	MaxEntries int    `mapstructure:"max_entries"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c AIConfig) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

type PlanConfig struct {
	EnforceDailyUnlock  bool `mapstructure:"enforce_daily_unlock"`
	DefaultDurationDays int  `mapstructure:"default_duration_days"`
}

type ReminderConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	At       string `mapstructure:"at"` // HH:MM，按服务器时区
	Timezone string `mapstructure:"timezone"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string // mysql | sqlite
	Path      string // sqlite 文件路径
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.path", "data/skillplan.db")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("jwt.expire_hours", 72)

	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.max_attempts", 3)
	v.SetDefault("ai.backoff_initial_ms", 500)
	v.SetDefault("ai.backoff_max_ms", 8000)
	v.SetDefault("ai.rate_limit.max_calls", 5)
	v.SetDefault("ai.rate_limit.window_seconds", 60)
	v.SetDefault("ai.cache.driver", "memory")
	v.SetDefault("ai.cache.max_entries", 1000)
	v.SetDefault("ai.cache.ttl_minutes", 1440)

	v.SetDefault("plan.enforce_daily_unlock", true)
	v.SetDefault("plan.default_duration_days", 30)

	v.SetDefault("reminder.enabled", false)
	v.SetDefault("reminder.at", "18:00")
	v.SetDefault("reminder.timezone", "UTC")

	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("rate_limit.generation_per_hour", 10)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SKILLPLAN")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// AI
	v.BindEnv("ai.provider", "AI_PROVIDER")
	v.BindEnv("ai.base_url", "AI_BASE_URL")
	v.BindEnv("ai.api_key", "AI_API_KEY")
	v.BindEnv("ai.model", "AI_MODEL")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查相互约束的配置项
func (c *Config) Validate() error {
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.AI.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported ai provider %q", c.AI.Provider)
	}
	if c.AI.MaxAttempts < 1 {
		return fmt.Errorf("ai.max_attempts must be at least 1, got %d", c.AI.MaxAttempts)
	}
	if c.AI.Cache.Driver == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("ai.cache.driver=redis requires redis.enabled")
	}
	if c.Plan.DefaultDurationDays < 1 {
		return fmt.Errorf("plan.default_duration_days must be positive")
	}
	return nil
}
