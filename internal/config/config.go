package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string
	DatabaseURL   string

	// Doctor auth
	JWTSecret string
	TokenTTL  time.Duration

	// Conversation provider
	OpenAIAPIKey       string
	OpenAIChatModel    string
	OpenAIExtractModel string
	GeminiAPIKey       string
	GeminiModel        string
	ProviderTimeout    time.Duration
	ProviderMaxRetries int
	ProviderRetryDelay time.Duration

	// Per-session locks
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	LockTTL       time.Duration
	LockWaitDelay time.Duration
	LockMaxWaits  int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvAsDuration("TOKEN_TTL", 7*24*time.Hour),

		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIChatModel:    getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		OpenAIExtractModel: getEnv("OPENAI_EXTRACT_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ProviderTimeout:    getEnvAsDuration("PROVIDER_TIMEOUT", 60*time.Second),
		ProviderMaxRetries: getEnvAsInt("PROVIDER_MAX_RETRIES", 2),
		ProviderRetryDelay: getEnvAsDuration("PROVIDER_RETRY_DELAY", time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		LockTTL:       getEnvAsDuration("SESSION_LOCK_TTL", 90*time.Second),
		LockWaitDelay: getEnvAsDuration("SESSION_LOCK_WAIT_DELAY", time.Second),
		LockMaxWaits:  getEnvAsInt("SESSION_LOCK_MAX_WAITS", 30),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
