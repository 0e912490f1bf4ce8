package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PROVIDER_PRIORITY", "")
	t.Setenv("DUPLICATE_WINDOW_SECONDS", "")
	t.Setenv("STALE_DEADLINE_MINUTES", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DuplicateWindow != 15*time.Second {
		t.Fatalf("DuplicateWindow mismatch: %v", cfg.DuplicateWindow)
	}
	if cfg.StaleDeadline != 5*time.Minute {
		t.Fatalf("StaleDeadline mismatch: %v", cfg.StaleDeadline)
	}
	if len(cfg.ProviderPriority) != 2 || cfg.ProviderPriority[0] != "mubert" || cfg.ProviderPriority[1] != "beatoven" {
		t.Fatalf("ProviderPriority mismatch: %#v", cfg.ProviderPriority)
	}
	if cfg.ReapSchedule != "@every 1m" {
		t.Fatalf("ReapSchedule mismatch: %q", cfg.ReapSchedule)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL missing")
	}
}

func TestLoadConfigParsesProviderPriority(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PROVIDER_PRIORITY", " beatoven , mubert ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.ProviderPriority) != 2 || cfg.ProviderPriority[0] != "beatoven" {
		t.Fatalf("ProviderPriority mismatch: %#v", cfg.ProviderPriority)
	}
}

func TestLoadConfigPoolSizing(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("DB_MIN_CONNS", "5")
	t.Setenv("DB_CONNECT_TIMEOUT_SECONDS", "3")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DBMaxConns != 25 || cfg.DBMinConns != 5 {
		t.Fatalf("pool sizing mismatch: max=%d min=%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.DBConnectTimeout != 3*time.Second {
		t.Fatalf("DBConnectTimeout mismatch: %v", cfg.DBConnectTimeout)
	}
}

func TestLoadConfigRejectsInvalidPoolSizing(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("DB_MAX_CONNS", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DB_MAX_CONNS is zero")
	}

	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("DB_MIN_CONNS", "8")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DB_MIN_CONNS exceeds DB_MAX_CONNS")
	}
}

func TestLoadConfigRejectsWindowBeyondDeadline(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("DUPLICATE_WINDOW_SECONDS", "600")
	t.Setenv("STALE_DEADLINE_MINUTES", "5")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when duplicate window exceeds stale deadline")
	}
}
