// Package oracle adapts a UCI engine into the evaluation oracle used by the
// annotation pipeline. It normalizes the engine's heterogeneous score
// representations (centipawn vs forced mate) into a single tagged evaluation
// on a saturated pawn scale, so downstream consumers never branch on score
// kind before doing arithmetic.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kapu/chess-annotator-go/internal/obslog"
	"github.com/kapu/chess-annotator-go/internal/uci"
	"go.uber.org/zap"
)

// ScoreKind tags how the engine expressed an evaluation.
type ScoreKind string

const (
	ScoreCentipawns ScoreKind = "cp"
	ScoreMate       ScoreKind = "mate"
)

// MatePawns is the saturation value forced mates map to, signed by the
// mating side.
const MatePawns = 100.0

// Evaluation is a normalized engine score in pawn units from White's
// perspective (the reference side), saturated to ±MatePawns for forced mate.
// MateIn carries the signed mate distance for display; all arithmetic runs
// on Pawns alone.
type Evaluation struct {
	Pawns  float64
	Kind   ScoreKind
	MateIn int
}

// RankedMove is one engine-ranked alternative with its evaluation from the
// mover's own perspective.
type RankedMove struct {
	UCI  string
	Eval Evaluation
}

var (
	// ErrOracleUnavailable is fatal: the engine cannot be started or probed,
	// so analysis cannot begin at all.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrUnavailable is recoverable: one query produced no usable score.
	// Callers degrade the affected ply and continue.
	ErrUnavailable = errors.New("evaluation unavailable")
)

// Oracle is the synchronous evaluation interface the annotation driver
// consumes. Evaluate returns the position score from White's perspective;
// TopMoves returns up to n engine lines best-first, mover-perspective.
type Oracle interface {
	Evaluate(ctx context.Context, fen string, depth int) (Evaluation, error)
	TopMoves(ctx context.Context, fen string, depth, n int) ([]RankedMove, error)
}

// Config configures the engine-backed oracle.
type Config struct {
	BinaryPath string
	Threads    int
	HashMB     int
	MultiPV    int
	// Capacity bounds how many engine processes may run at once, one per
	// concurrently analyzed game.
	Capacity int
}

// Engine owns a pool of UCI engine processes. One Session is acquired per
// game and released when the game's analysis is done.
type Engine struct {
	pool *uci.Pool
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.HashMB <= 0 {
		cfg.HashMB = 128
	}
	if cfg.MultiPV <= 0 {
		cfg.MultiPV = 1
	}
	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath: cfg.BinaryPath,
		Options: uci.Options{
			Threads: cfg.Threads,
			HashMB:  cfg.HashMB,
			MultiPV: cfg.MultiPV,
		},
		Capacity: cfg.Capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	return &Engine{pool: pool}, nil
}

// Acquire reserves one engine process for a game and resets its state.
// Failure here is a setup-time failure: the run must not start.
func (e *Engine) Acquire(ctx context.Context) (*Session, error) {
	sess, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if err := sess.NewGame(ctx); err != nil {
		e.pool.Release(sess, err)
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	return &Session{pool: e.pool, sess: sess}, nil
}

func (e *Engine) Close() error {
	if e == nil || e.pool == nil {
		return nil
	}
	return e.pool.Close()
}

// Session is a per-game oracle bound to one engine process. It is not safe
// for concurrent use; the annotation driver is strictly sequential anyway.
type Session struct {
	pool  *uci.Pool
	sess  *uci.Session
	fatal error
}

var _ Oracle = (*Session)(nil)

// Release hands the engine process back to the pool. A session that saw a
// transport error is discarded rather than reused.
func (s *Session) Release() {
	if s == nil || s.sess == nil {
		return
	}
	s.pool.Release(s.sess, s.fatal)
	s.sess = nil
}

func (s *Session) Evaluate(ctx context.Context, fen string, depth int) (Evaluation, error) {
	resp, err := s.search(ctx, fen, depth)
	if err != nil {
		return Evaluation{}, err
	}
	if len(resp.Lines) == 0 {
		return Evaluation{}, ErrUnavailable
	}
	return toReference(resp.Lines[0].Score, whiteToMove(fen)), nil
}

func (s *Session) TopMoves(ctx context.Context, fen string, depth, n int) ([]RankedMove, error) {
	if n <= 0 {
		return nil, nil
	}
	resp, err := s.search(ctx, fen, depth)
	if err != nil {
		return nil, err
	}
	lines := resp.Lines
	if len(lines) > n {
		lines = lines[:n]
	}
	out := make([]RankedMove, 0, len(lines))
	for _, l := range lines {
		out = append(out, RankedMove{UCI: l.Move, Eval: toMover(l.Score)})
	}
	return out, nil
}

func (s *Session) search(ctx context.Context, fen string, depth int) (uci.SearchResponse, error) {
	resp, err := s.sess.Search(ctx, uci.SearchRequest{FEN: fen, Depth: depth})
	if err != nil {
		s.fatal = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return uci.SearchResponse{}, ctxErr
		}
		obslog.L().Warn("engine query failed",
			zap.String("fen", fen),
			zap.Int("depth", depth),
			zap.Error(err),
		)
		return uci.SearchResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// toMover normalizes a raw engine score, keeping the side-to-move
// (mover) perspective the engine reports in.
func toMover(score uci.Score) Evaluation {
	if score.Mate {
		if score.Value >= 0 {
			return Evaluation{Pawns: MatePawns, Kind: ScoreMate, MateIn: score.Value}
		}
		return Evaluation{Pawns: -MatePawns, Kind: ScoreMate, MateIn: score.Value}
	}
	return Evaluation{Pawns: float64(score.Value) / 100, Kind: ScoreCentipawns}
}

// toReference normalizes a raw engine score into White's perspective.
func toReference(score uci.Score, whiteToMove bool) Evaluation {
	ev := toMover(score)
	if !whiteToMove {
		ev.Pawns = -ev.Pawns
		ev.MateIn = -ev.MateIn
	}
	return ev
}

// whiteToMove reads the active-color field of a FEN. The empty string and
// "startpos" mean the initial position, where White moves.
func whiteToMove(fen string) bool {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return true
	}
	return fields[1] != "b"
}
