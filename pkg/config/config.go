package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Log LogConfig

	Numbering NumberingConfig

	Schedule ScheduleConfig

	// AllowedOrigins is a comma-separated allowlist of origins allowed to call
	// the pricing-preview and document endpoints from browser forms. Example:
	//   https://office.yourapp.com,http://localhost:5173
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type LogConfig struct {
	Level  string // trace, debug, info, warn, error
	Format string // json, console
}

type NumberingConfig struct {
	// Padding is the zero-pad width applied when a counter series is first created.
	Padding int

	// PrefixOverrides maps a series name to a custom document-number prefix,
	// replacing the built-in default (e.g. "invoice" -> "FACT").
	PrefixOverrides map[string]string

	// MaxAttempts bounds how often an allocation retries on write conflicts
	// before surfacing failure to the caller.
	MaxAttempts int
}

type ScheduleConfig struct {
	// MaxInstallments caps how many installments a payment plan may have.
	MaxInstallments int
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "fieldops"),
			User:     env("DB_USER", "fieldops"),
			Password: env("DB_PASSWORD", "fieldops"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "console"),
		},
		Numbering: NumberingConfig{
			Padding:         envInt("NUMBER_PADDING", 4),
			PrefixOverrides: envKV("NUMBER_PREFIXES"),
			MaxAttempts:     envInt("NUMBER_MAX_ATTEMPTS", 5),
		},
		Schedule: ScheduleConfig{
			MaxInstallments: envInt("SCHEDULE_MAX_INSTALLMENTS", 12),
		},
		AllowedOrigins: envList("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// envKV parses "k1=v1,k2=v2" into a map. Malformed pairs are skipped.
func envKV(key string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(v, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || val == "" {
			continue
		}
		out[k] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
