package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"foreman/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Redis         RedisConfig
	LLM           LLMConfig
	Router        RouterConfig
	CostGuard     CostGuardConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"foreman"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	MetricsPort     int           `envconfig:"METRICS_PORT" default:"9090"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LLMConfig holds per-provider credentials and endpoints.
// Base URLs default to the public endpoints; override for proxies or
// self-hosted OpenAI-compatible gateways.
type LLMConfig struct {
	OpenAIKey      string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string  `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	DeepSeekKey    string  `envconfig:"DEEPSEEK_API_KEY"`
	DeepSeekURL    string  `envconfig:"DEEPSEEK_BASE_URL" default:"https://api.deepseek.com/v1"`
	GroqKey        string  `envconfig:"GROQ_API_KEY"`
	GroqBaseURL    string  `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	OllamaBaseURL  string  `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434/v1"`
	RequestsPerMin float64 `envconfig:"LLM_REQUESTS_PER_MINUTE" default:"300"`
	RateBurst      int     `envconfig:"LLM_RATE_BURST" default:"20"`
}

// RouterConfig tunes the model routing core.
type RouterConfig struct {
	DefaultModel     string        `envconfig:"ROUTER_DEFAULT_MODEL" default:"gpt-4o-mini"`
	MaxRetries       int           `envconfig:"ROUTER_MAX_RETRIES" default:"3"`
	FailureThreshold int           `envconfig:"ROUTER_FAILURE_THRESHOLD" default:"5"`
	ResetTimeout     time.Duration `envconfig:"ROUTER_RESET_TIMEOUT" default:"60s"`
	CacheEnabled     bool          `envconfig:"ROUTER_CACHE_ENABLED" default:"true"`
	CacheTTL         time.Duration `envconfig:"ROUTER_CACHE_TTL" default:"5m"`
	CacheMaxSize     int           `envconfig:"ROUTER_CACHE_MAX_SIZE" default:"1000"`
	CostThresholdUSD float64       `envconfig:"ROUTER_COST_THRESHOLD_USD" default:"0.10"`
	BackoffUnit      time.Duration `envconfig:"ROUTER_BACKOFF_UNIT" default:"500ms"`
	LatencyWindow    int           `envconfig:"ROUTER_LATENCY_WINDOW" default:"100"`
}

// CostGuardConfig sets hard AI spending limits.
type CostGuardConfig struct {
	MaxDailyCostPerUser string `envconfig:"COST_MAX_DAILY_PER_USER" default:"10.00"`
	MaxCostPerRequest   string `envconfig:"COST_MAX_PER_REQUEST" default:"0.50"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
