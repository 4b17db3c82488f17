package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration loaded once from environment variables.
// Backend selection is derived from which connection settings are present:
// no DATABASE_URL means the local JSON store, no CUSTOM_MODEL_URL means the
// generative-AI fallback, and neither inference option means analysis
// requests fail with a configuration error.
type Config struct {
	DatabaseURL          string
	CustomModelURL       string
	OpenAIAPIKey         string
	OpenAIModel          string
	JWTSecret            string
	JWTIssuer            string
	AccessTTLSeconds     int64
	RefreshTTLSeconds    int64
	LocalStorePath       string
	HistoryLimit         int
	AdminEmail           string
	AdminPassword        string
	MetricsDiskPath      string
	MetricsSampleSeconds int
	CorsOrigins          []string
}

func Load() Config {
	return Config{
		DatabaseURL:          envOr("DATABASE_URL", ""),
		CustomModelURL:       envOr("CUSTOM_MODEL_URL", ""),
		OpenAIAPIKey:         envOr("OPENAI_API_KEY", ""),
		OpenAIModel:          envOr("OPENAI_MODEL", "gpt-4o-mini"),
		JWTSecret:            mustEnv("JWT_SECRET"),
		JWTIssuer:            envOr("JWT_ISSUER", "cordforge"),
		AccessTTLSeconds:     int64(envOrInt("ACCESS_TTL_SECONDS", 14400)),
		RefreshTTLSeconds:    int64(envOrInt("REFRESH_TTL_SECONDS", 1209600)),
		LocalStorePath:       envOr("LOCAL_STORE_PATH", "storage/data"),
		HistoryLimit:         envOrInt("HISTORY_LIMIT", 200),
		AdminEmail:           envOr("ADMIN_EMAIL", "admin@cordforge.com"),
		AdminPassword:        envOr("ADMIN_PASSWORD", ""),
		MetricsDiskPath:      envOr("METRICS_DISK_PATH", "storage"),
		MetricsSampleSeconds: envOrInt("METRICS_SAMPLE_INTERVAL", 5),
		CorsOrigins:          parseCSV(envOr("CORS_ORIGINS", "")),
	}
}

// DatabaseConfigured reports whether the centralized database serves
// persistence; when false the local store adapter is used.
func (c Config) DatabaseConfigured() bool {
	return c.DatabaseURL != ""
}

// CustomModelConfigured reports whether a user-supplied inference endpoint
// takes precedence over the generative-AI fallback.
func (c Config) CustomModelConfigured() bool {
	return c.CustomModelURL != ""
}

// AIConfigured reports whether the generative-AI fallback is available.
func (c Config) AIConfigured() bool {
	return c.OpenAIAPIKey != ""
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
