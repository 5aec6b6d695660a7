package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    int
	NatsURL string
	// DatabaseURL enables the optional audit store when set.
	DatabaseURL string
	LogLevel    string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	MaxHistorySize       int
	InterventionCooldown time.Duration
	TopicDriftThreshold  float64
	InfoGapThreshold     float64
	FactCheckThreshold   float64
	PauseThreshold       time.Duration

	CacheEnabled bool
	CacheTTL     time.Duration
	MaxRetries   int
	RetryBase    time.Duration

	HealthInterval time.Duration
	// OfflineMode starts the completion client in fallback-only mode.
	OfflineMode bool

	SlackBotToken string
	SlackChannel  string
}

func Load() Config {
	// A local .env is a convenience, not a requirement.
	_ = godotenv.Load()

	return Config{
		Port:        envInt("BUDDY_PORT", 8600),
		NatsURL:     envStr("NATS_URL", "nats://localhost:4222"),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),

		OpenAIAPIKey:  envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL: envStr("OPENAI_BASE_URL", ""),
		OpenAIModel:   envStr("OPENAI_MODEL", "gpt-4o-mini"),

		MaxHistorySize:       envInt("MAX_HISTORY_SIZE", 100),
		InterventionCooldown: envDur("INTERVENTION_COOLDOWN_MS", 2*time.Minute),
		TopicDriftThreshold:  envFloat("TOPIC_DRIFT_THRESHOLD", 0.6),
		InfoGapThreshold:     envFloat("INFO_GAP_THRESHOLD", 0.6),
		FactCheckThreshold:   envFloat("FACT_CHECK_THRESHOLD", 0.7),
		PauseThreshold:       envDur("PAUSE_THRESHOLD_MS", 10*time.Second),

		CacheEnabled: envBool("CACHE_ENABLED", true),
		CacheTTL:     envDur("CACHE_TTL_MS", 5*time.Minute),
		MaxRetries:   envInt("MAX_RETRIES", 3),
		RetryBase:    envDur("RETRY_BASE_DELAY_MS", 250*time.Millisecond),

		HealthInterval: envDur("HEALTH_CHECK_INTERVAL_MS", 30*time.Second),
		OfflineMode:    envBool("OFFLINE_MODE", false),

		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_ALERT_CHANNEL", ""),
	}
}

// Validate checks startup requirements. A missing API key is fatal unless
// the process is explicitly started in offline mode.
func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" && !c.OfflineMode {
		return errors.New("OPENAI_API_KEY is required (set OFFLINE_MODE=true to run fallback-only)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("BUDDY_PORT must be a valid port number")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}
