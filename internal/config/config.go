package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	RealtimePostgres = "postgres"
	RealtimeRedis    = "redis"
)

var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"https://ylhdobpnmhazvanvgjxl.lovable.app",
	"https://lovable.dev",
}

var defaultAllowedSuffixes = []string{".lovable.app", ".lovable.dev"}

type Config struct {
	Port               string
	DBUrl              string
	JWTSecret          string
	AppEnv             string
	EnableMetrics      bool
	LogLevel           string
	Timezone           string
	SupabaseURL        string
	SupabaseBucket     string
	SupabaseServiceKey string

	AIGatewayURL        string
	AIAPIKey            string
	AIModel             string
	AssistantRatePerMin int
	CBMaxFailures       int
	CBTimeoutSec        int

	AllowedOrigins  []string
	AllowedSuffixes []string

	RealtimeDriver string
	RedisURL       string
	RedisPrefix    string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		EnableMetrics:      getEnvBool("ENABLE_METRICS", true),
		DBUrl:              getEnv("DB_URL", ""),
		JWTSecret:          jwtSecret,
		AppEnv:             normalizeEnv(getEnv("APP_ENV", "production")),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Timezone:           getEnv("TIMEZONE", "UTC"),
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseBucket:     getEnv("SUPABASE_BUCKET", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),

		AIGatewayURL:        getEnv("AI_GATEWAY_URL", "https://ai.gateway.lovable.dev/v1/chat/completions"),
		AIAPIKey:            getEnv("AI_API_KEY", ""),
		AIModel:             getEnv("AI_MODEL", "google/gemini-2.5-flash"),
		AssistantRatePerMin: getEnvInt("ASSISTANT_RATE_PER_MIN", 30),
		CBMaxFailures:       getEnvInt("CB_MAX_FAILURES", 5),
		CBTimeoutSec:        getEnvInt("CB_TIMEOUT_SEC", 30),

		AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins),
		AllowedSuffixes: getEnvList("CORS_ALLOWED_SUFFIXES", defaultAllowedSuffixes),

		RealtimeDriver: strings.ToLower(strings.TrimSpace(getEnv("REALTIME_DRIVER", RealtimePostgres))),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix:    getEnv("REDIS_PREFIX", "acadbuddy"),
	}

	if cfg.RealtimeDriver == "" {
		cfg.RealtimeDriver = RealtimePostgres
	}
	if cfg.RealtimeDriver != RealtimePostgres && cfg.RealtimeDriver != RealtimeRedis {
		return nil, fmt.Errorf("REALTIME_DRIVER must be %q or %q", RealtimePostgres, RealtimeRedis)
	}
	if len(cfg.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS must list at least one origin")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

// StorageEnabled reports whether avatar uploads can reach Supabase storage.
func (c *Config) StorageEnabled() bool {
	return c != nil && c.SupabaseURL != "" && c.SupabaseBucket != "" && c.SupabaseServiceKey != ""
}

// RedisFanout reports whether realtime events travel over Redis instead of
// Postgres notifications.
func (c *Config) RedisFanout() bool {
	return c != nil && c.RealtimeDriver == RealtimeRedis
}
