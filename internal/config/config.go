package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	StockfishPath string

	Depth    int
	TopMoves int
	Threads  int
	HashMB   int

	InaccuracyThreshold float64
	MistakeThreshold    float64
	BlunderThreshold    float64

	RedisURL     string
	EvalCacheTTL time.Duration
	DatabaseURL  string

	ReportTemplateDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Depth:               25,
		TopMoves:            5,
		InaccuracyThreshold: 0.4,
		MistakeThreshold:    0.8,
		BlunderThreshold:    1.8,
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))

	if v := strings.TrimSpace(os.Getenv("ANALYSIS_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Depth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ANALYSIS_TOP_MOVES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.TopMoves = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_THREADS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Threads = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_HASH_MB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HashMB = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("INACCURACY_THRESHOLD")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.InaccuracyThreshold = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("MISTAKE_THRESHOLD")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.MistakeThreshold = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("BLUNDER_THRESHOLD")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.BlunderThreshold = f
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("EVAL_CACHE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.EvalCacheTTL = d
		}
	}
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.ReportTemplateDir = strings.TrimSpace(os.Getenv("REPORT_TEMPLATE_DIR"))

	return cfg, cfg.validate()
}

func (c *AppConfig) validate() error {
	if c.StockfishPath == "" {
		return errors.New("STOCKFISH_PATH is required")
	}
	return nil
}
