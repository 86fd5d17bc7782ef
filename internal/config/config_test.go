package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "movies")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "movies")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TMDB_API_KEY", "key")
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.TicketPrice != 50000 {
			t.Fatalf("expected default ticket price 50000, got %d", cfg.TicketPrice)
		}
		if cfg.WatchlistMode != WatchlistRemote {
			t.Fatalf("expected remote watchlist mode, got %q", cfg.WatchlistMode)
		}
		if cfg.RemoteWriteTimeout != 5*time.Second {
			t.Fatalf("unexpected write timeout %s", cfg.RemoteWriteTimeout)
		}
		if cfg.SMTP.Enabled() {
			t.Fatal("expected smtp disabled without SMTP_HOST")
		}
	})

	t.Run("reports every missing variable", func(t *testing.T) {
		for _, key := range []string{"APP_PORT", "DB_USER", "DB_HOST", "DB_PORT", "DB_NAME", "JWT_SECRET", "TMDB_API_KEY"} {
			t.Setenv(key, "")
		}
		_, err := Load()
		if err == nil {
			t.Fatal("expected error when required values are missing")
		}
		for _, key := range []string{"APP_PORT", "JWT_SECRET", "TMDB_API_KEY"} {
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected %s in %q", key, err.Error())
			}
		}
	})

	t.Run("parses optional values", func(t *testing.T) {
		setRequired(t)
		t.Setenv("TICKET_PRICE", "75000")
		t.Setenv("WATCHLIST_MODE", "LOCAL")
		t.Setenv("REMOTE_WRITE_TIMEOUT", "750ms")
		t.Setenv("SMTP_HOST", "smtp.example.com")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.TicketPrice != 75000 {
			t.Fatalf("expected 75000, got %d", cfg.TicketPrice)
		}
		if cfg.WatchlistMode != WatchlistLocal {
			t.Fatalf("expected local mode, got %q", cfg.WatchlistMode)
		}
		if cfg.RemoteWriteTimeout != 750*time.Millisecond {
			t.Fatalf("unexpected timeout %s", cfg.RemoteWriteTimeout)
		}
		if !cfg.SMTP.Enabled() {
			t.Fatal("expected smtp enabled")
		}
	})

	t.Run("rejects invalid watchlist mode", func(t *testing.T) {
		setRequired(t)
		t.Setenv("WATCHLIST_MODE", "cloud")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for unknown watchlist mode")
		}
	})
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Fatalf("expected capacity clamped to 1, got %d", cfg.Capacity)
	}
	if cfg.TTL != 10*time.Second {
		t.Fatalf("expected ttl raised to 5 intervals, got %s", cfg.TTL)
	}
}

func TestLoadCacheConfig_Methods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	if !cfg.Methods["GET"] || !cfg.Methods["HEAD"] {
		t.Fatalf("unexpected methods %+v", cfg.Methods)
	}
	if cfg.TTL != time.Hour {
		t.Fatalf("expected one hour default ttl, got %s", cfg.TTL)
	}
}
