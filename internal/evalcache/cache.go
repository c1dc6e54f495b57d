// Package evalcache caches normalized position evaluations in Redis, keyed by
// FEN and search depth, so re-analyzing a game (or analyzing transpositions)
// skips repeated engine searches. The cache is a transparent decorator: any
// Redis trouble falls through to the wrapped oracle.
package evalcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kapu/chess-annotator-go/internal/obslog"
	"github.com/kapu/chess-annotator-go/internal/oracle"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultTTL = 14 * 24 * time.Hour

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl, log: obslog.L().Named("evalcache")}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Wrap returns an oracle that consults the cache before delegating to inner.
// Only single-position evaluations are cached; multi-line queries pass
// through untouched.
func (c *Cache) Wrap(inner oracle.Oracle) oracle.Oracle {
	return &cachedOracle{cache: c, inner: inner}
}

type cachedOracle struct {
	cache *Cache
	inner oracle.Oracle
}

type entry struct {
	Pawns  float64 `json:"p"`
	Kind   string  `json:"k"`
	MateIn int     `json:"m,omitempty"`
}

func (o *cachedOracle) Evaluate(ctx context.Context, fen string, depth int) (oracle.Evaluation, error) {
	key := evalKey(fen, depth)

	raw, err := o.cache.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var e entry
		if jsonErr := json.Unmarshal(raw, &e); jsonErr == nil {
			return oracle.Evaluation{Pawns: e.Pawns, Kind: oracle.ScoreKind(e.Kind), MateIn: e.MateIn}, nil
		}
		// Unreadable payload: drop it and re-evaluate.
		_ = o.cache.rdb.Del(ctx, key).Err()
	} else if err != redis.Nil {
		o.cache.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	ev, err := o.inner.Evaluate(ctx, fen, depth)
	if err != nil {
		return ev, err
	}

	payload, err := json.Marshal(entry{Pawns: ev.Pawns, Kind: string(ev.Kind), MateIn: ev.MateIn})
	if err != nil {
		return ev, nil
	}
	if err := o.cache.rdb.Set(ctx, key, payload, o.cache.ttl).Err(); err != nil {
		o.cache.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return ev, nil
}

func (o *cachedOracle) TopMoves(ctx context.Context, fen string, depth, n int) ([]oracle.RankedMove, error) {
	return o.inner.TopMoves(ctx, fen, depth, n)
}

func evalKey(fen string, depth int) string {
	return fmt.Sprintf("eval:%s|d%d", fen, depth)
}
