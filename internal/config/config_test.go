package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CUSTOM_MODEL_URL", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := Load()
	if cfg.DatabaseConfigured() {
		t.Fatal("database reported configured with empty DATABASE_URL")
	}
	if cfg.CustomModelConfigured() || cfg.AIConfigured() {
		t.Fatal("inference options reported configured with empty env")
	}
	if cfg.JWTIssuer != "cordforge" {
		t.Fatalf("issuer default = %q", cfg.JWTIssuer)
	}
	if cfg.HistoryLimit != 200 {
		t.Fatalf("history limit default = %d", cfg.HistoryLimit)
	}
	if cfg.AccessTTLSeconds != 14400 {
		t.Fatalf("access ttl default = %d", cfg.AccessTTLSeconds)
	}
}

func TestLoadBackendSelection(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://localhost/cordforge")
	t.Setenv("CUSTOM_MODEL_URL", "https://model.example.com/analyze")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HISTORY_LIMIT", "25")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := Load()
	if !cfg.DatabaseConfigured() || !cfg.CustomModelConfigured() || !cfg.AIConfigured() {
		t.Fatalf("selector flags wrong: %+v", cfg)
	}
	if cfg.HistoryLimit != 25 {
		t.Fatalf("history limit = %d", cfg.HistoryLimit)
	}
	if len(cfg.CorsOrigins) != 2 || cfg.CorsOrigins[1] != "https://b.example.com" {
		t.Fatalf("cors origins = %v", cfg.CorsOrigins)
	}
}

func TestEnvOrIntIgnoresGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HISTORY_LIMIT", "not-a-number")
	cfg := Load()
	if cfg.HistoryLimit != 200 {
		t.Fatalf("history limit = %d, want fallback", cfg.HistoryLimit)
	}
}
