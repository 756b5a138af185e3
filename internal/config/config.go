package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds server configuration, read from the environment with
// sensible defaults for local development.
type Config struct {
	ListenAddr   string
	DBPath       string
	UploadsDir   string
	TemplateDir  string
	StaticDir    string
	SecureCookie bool
	SessionTTL   time.Duration

	// AdminUser/AdminPassword bootstrap a first account when the user
	// table is empty. Both empty means no bootstrap.
	AdminUser     string
	AdminPassword string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:    envOr("LISTEN_ADDR", ":"+envOr("PORT", "8080")),
		DBPath:        envOr("DB_PATH", "spendtrack.db"),
		UploadsDir:    envOr("UPLOADS_DIR", "uploads"),
		TemplateDir:   envOr("TEMPLATE_DIR", "web/templates"),
		StaticDir:     envOr("STATIC_DIR", "web/static"),
		SecureCookie:  envBool("SECURE_COOKIE", false),
		SessionTTL:    envDuration("SESSION_TTL", 30*24*time.Hour),
		AdminUser:     os.Getenv("ADMIN_USER"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
