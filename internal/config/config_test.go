package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STOCKFISH_PATH", "/usr/bin/stockfish")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Depth != 25 || cfg.TopMoves != 5 {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
	if cfg.InaccuracyThreshold != 0.4 || cfg.MistakeThreshold != 0.8 || cfg.BlunderThreshold != 1.8 {
		t.Fatalf("threshold defaults wrong: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STOCKFISH_PATH", "/opt/sf/stockfish")
	t.Setenv("ANALYSIS_DEPTH", "18")
	t.Setenv("ANALYSIS_TOP_MOVES", "0")
	t.Setenv("ENGINE_THREADS", "4")
	t.Setenv("ENGINE_HASH_MB", "512")
	t.Setenv("BLUNDER_THRESHOLD", "2.5")
	t.Setenv("EVAL_CACHE_TTL", "48h")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Depth != 18 || cfg.TopMoves != 0 || cfg.Threads != 4 || cfg.HashMB != 512 {
		t.Fatalf("engine overrides wrong: %+v", cfg)
	}
	if cfg.BlunderThreshold != 2.5 {
		t.Fatalf("threshold override wrong: %+v", cfg)
	}
	if cfg.EvalCacheTTL != 48*time.Hour || cfg.RedisURL == "" {
		t.Fatalf("cache settings wrong: %+v", cfg)
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("STOCKFISH_PATH", "/usr/bin/stockfish")
	t.Setenv("ANALYSIS_DEPTH", "banana")
	t.Setenv("MISTAKE_THRESHOLD", "-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Depth != 25 || cfg.MistakeThreshold != 0.8 {
		t.Fatalf("invalid values should fall back: %+v", cfg)
	}
}

func TestLoadRequiresEnginePath(t *testing.T) {
	t.Setenv("STOCKFISH_PATH", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without STOCKFISH_PATH")
	}
}
