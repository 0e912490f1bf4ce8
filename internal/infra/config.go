package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	RedisURL       string
	StoragePath    string
	StorageBaseURL string

	// Connection pool sizing for the job store. The orchestrator, the HTTP
	// surface and the cron reaper all share one pool.
	DBMaxConns       int
	DBMinConns       int
	DBConnectTimeout time.Duration

	// Provider settings. ProviderPriority is the fixed fallback order the
	// orchestrator walks on transient submit failures.
	ProviderPriority []string
	MubertAPIKey     string
	MubertBaseURL    string
	BeatovenAPIKey   string
	BeatovenBaseURL  string
	SubmitTimeout    time.Duration

	// DuplicateWindow bounds how far back the duplicate guard looks for an
	// in-flight job; StaleDeadline bounds how long a lost provider signal
	// can keep a job non-terminal.
	DuplicateWindow time.Duration
	StaleDeadline   time.Duration
	ReapSchedule    string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:       getEnvInt("DB_MIN_CONNS", 1),
		DBConnectTimeout: time.Second * time.Duration(getEnvInt("DB_CONNECT_TIMEOUT_SECONDS", 10)),
		ProviderPriority: splitList(getEnv("PROVIDER_PRIORITY", "mubert,beatoven")),
		MubertAPIKey:     os.Getenv("MUBERT_API_KEY"),
		MubertBaseURL:    getEnv("MUBERT_BASE_URL", "https://music-api.mubert.com/api/v3"),
		BeatovenAPIKey:   os.Getenv("BEATOVEN_API_KEY"),
		BeatovenBaseURL:  getEnv("BEATOVEN_BASE_URL", "https://public-api.beatoven.ai/api/v1"),
		SubmitTimeout:    time.Second * time.Duration(getEnvInt("SUBMIT_TIMEOUT_SECONDS", 60)),
		DuplicateWindow:  time.Second * time.Duration(getEnvInt("DUPLICATE_WINDOW_SECONDS", 15)),
		StaleDeadline:    time.Minute * time.Duration(getEnvInt("STALE_DEADLINE_MINUTES", 5)),
		ReapSchedule:     getEnv("REAP_SCHEDULE", "@every 1m"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS")
	}

	if len(cfg.ProviderPriority) == 0 {
		return nil, fmt.Errorf("PROVIDER_PRIORITY must name at least one provider")
	}

	if cfg.DuplicateWindow >= cfg.StaleDeadline {
		return nil, fmt.Errorf("DUPLICATE_WINDOW_SECONDS must be shorter than STALE_DEADLINE_MINUTES")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
