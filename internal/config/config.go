// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	Environment string
	CORSOrigin  string

	// Hosted model API
	GroqAPIKey      string
	GroqModel       string
	GroqBaseURL     string
	UpstreamTimeout time.Duration
	SystemPrompt    string

	DatabasePath           string
	ChatRateLimitPerMinute int

	// Auth provider; the authenticated routes are off when both are empty
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string

	// Terminal client
	LocalEngineURL string
	LocalModel     string
	RelayURL       string
	StorePath      string
}

// Load reads configuration from environment variables or .env file.
func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	var errs []string
	intVar := func(key string, def int) int {
		v, err := getEnvAsInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	cfg := &Config{
		ServerPort:  getEnv("PORT", "3000"),
		Environment: env,
		CORSOrigin:  getEnv("CORS_ORIGIN", "*"),

		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		GroqModel:       getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
		GroqBaseURL:     getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		UpstreamTimeout: time.Duration(intVar("UPSTREAM_TIMEOUT_SECONDS", 60)) * time.Second,
		SystemPrompt:    getEnv("SYSTEM_PROMPT", ""),

		DatabasePath:           getEnv("DATABASE_PATH", "oni.db"),
		ChatRateLimitPerMinute: intVar("CHAT_RATE_LIMIT_PER_MINUTE", 30),

		SupabaseURL:       getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:   getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),

		LocalEngineURL: getEnv("LOCAL_ENGINE_URL", "http://localhost:11434/v1"),
		LocalModel:     getEnv("LOCAL_MODEL", "llama3.2:1b"),
		RelayURL:       getEnv("ONI_RELAY_URL", "http://localhost:3000"),
		StorePath:      getEnv("ONI_STORE_PATH", "oni_local.db"),
	}

	if cfg.UpstreamTimeout <= 0 {
		errs = append(errs, "UPSTREAM_TIMEOUT_SECONDS must be positive")
	}
	if cfg.ChatRateLimitPerMinute <= 0 {
		errs = append(errs, "CHAT_RATE_LIMIT_PER_MINUTE must be positive")
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	// A missing key is reported per request, not at startup
	if cfg.GroqAPIKey == "" && cfg.IsProduction() {
		log.Println("Warning: GROQ_API_KEY is not set; POST /chat will answer 500")
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// AuthEnabled reports whether bearer tokens can be verified at all.
func (c *Config) AuthEnabled() bool {
	return c.SupabaseJWTSecret != "" || c.SupabaseURL != ""
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not an integer", key, strValue)
	}
	return intValue, nil
}
