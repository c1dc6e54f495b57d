package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/kapu/chess-annotator-go/internal/mainline"
	"github.com/kapu/chess-annotator-go/internal/obslog"
	"github.com/kapu/chess-annotator-go/internal/oracle"
	"go.uber.org/zap"
)

// WarmupPlies is the fixed number of opening plies that are evaluated and
// counted but never classified, to suppress book-move noise.
const WarmupPlies = 2

const defaultDepth = 25

// Config tunes one annotation run.
type Config struct {
	Depth      int
	Thresholds Thresholds
	// TopMoves asks the oracle for this many ranked alternatives per ply to
	// enrich the report. Zero disables the extra query; it never affects
	// classification.
	TopMoves int
}

// AnnotatedMove is one flagged move, produced only for non-None severity and
// only past the warm-up window.
type AnnotatedMove struct {
	Ply        int
	MoveNumber int
	Color      mainline.Color
	SAN        string
	Severity   Severity
	// Swing is the mover-perspective evaluation change in pawns, negative
	// for the loss that earned the flag.
	Swing float64
	// Accuracy is nil when either side of the ply could not be evaluated.
	Accuracy *float64
	// BestLines are the oracle's top alternatives from before the move,
	// reporting context only.
	BestLines []oracle.RankedMove
}

// Result is everything one game's analysis hands to the reporting layer.
type Result struct {
	TotalPlies  int
	White       Summary
	Black       Summary
	Annotations []AnnotatedMove
}

// Annotator drives the per-ply evaluation loop for one game at a time. It is
// strictly sequential: each ply's resulting position feeds the next ply's
// evaluation, so there is no valid reordering within a game.
type Annotator struct {
	oracle oracle.Oracle
	cfg    Config
	log    *zap.Logger
}

// NewAnnotator validates the configuration up front; a broken threshold set
// must fail before any engine work starts.
func NewAnnotator(o oracle.Oracle, cfg Config) (*Annotator, error) {
	if o == nil {
		return nil, errors.New("nil oracle")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Depth <= 0 {
		cfg.Depth = defaultDepth
	}
	if cfg.TopMoves < 0 {
		cfg.TopMoves = 0
	}
	return &Annotator{oracle: o, cfg: cfg, log: obslog.L().Named("annotator")}, nil
}

// Annotate walks the main line ply by ply. A single failed evaluation
// degrades only its own ply: the move still counts toward totals, but
// contributes no accuracy and no classification. The run itself never aborts
// on a per-query failure; only a cancelled context stops it early.
func (a *Annotator) Annotate(ctx context.Context, line *mainline.Line) (*Result, error) {
	if line == nil || len(line.Plies) == 0 {
		return nil, mainline.ErrNoMoves
	}

	var white, black PlayerStats
	var annotations []AnnotatedMove

	for _, ply := range line.Plies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mover := &white
		if ply.Color == mainline.Black {
			mover = &black
		}

		evalBefore, beforeOK, err := a.evaluate(ctx, ply, "before", ply.BeforeFEN)
		if err != nil {
			return nil, err
		}

		var lines []oracle.RankedMove
		if a.cfg.TopMoves > 0 && beforeOK {
			lines, err = a.topMoves(ctx, ply)
			if err != nil {
				return nil, err
			}
		}

		evalAfter, afterOK, err := a.evaluate(ctx, ply, "after", ply.AfterFEN)
		if err != nil {
			return nil, err
		}

		mover.CountMove()
		defined := beforeOK && afterOK

		var accuracy *float64
		if defined {
			winBefore := WinProbability(moverPawns(evalBefore.Pawns, ply.Color))
			winAfter := WinProbability(moverPawns(evalAfter.Pawns, ply.Color))
			acc := MoveAccuracy(winBefore, winAfter)
			mover.AddAccuracy(acc)
			accuracy = &acc
		}

		if ply.Number <= WarmupPlies || !defined {
			continue
		}

		swing := MoverSwing(evalBefore.Pawns, evalAfter.Pawns, ply.Color)
		severity := a.cfg.Thresholds.Classify(swing)
		if severity == SeverityNone {
			continue
		}

		mover.CountSeverity(severity)
		annotations = append(annotations, AnnotatedMove{
			Ply:        ply.Number,
			MoveNumber: ply.MoveNumber,
			Color:      ply.Color,
			SAN:        ply.SAN,
			Severity:   severity,
			Swing:      swing,
			Accuracy:   accuracy,
			BestLines:  lines,
		})
		a.log.Debug("flagged move",
			zap.Int("ply", ply.Number),
			zap.String("san", ply.SAN),
			zap.String("severity", severity.String()),
			zap.Float64("swing", swing),
		)
	}

	return &Result{
		TotalPlies:  len(line.Plies),
		White:       white.Finalize(),
		Black:       black.Finalize(),
		Annotations: annotations,
	}, nil
}

// evaluate queries one position. An unavailable evaluation is not an error of
// the run; it is reported as ok=false and logged.
func (a *Annotator) evaluate(ctx context.Context, ply mainline.Ply, side, fen string) (oracle.Evaluation, bool, error) {
	ev, err := a.oracle.Evaluate(ctx, fen, a.cfg.Depth)
	if err == nil {
		return ev, true, nil
	}
	if errors.Is(err, oracle.ErrUnavailable) {
		a.log.Warn("evaluation unavailable",
			zap.Int("ply", ply.Number),
			zap.String("side", side),
			zap.String("san", ply.SAN),
		)
		return oracle.Evaluation{}, false, nil
	}
	return oracle.Evaluation{}, false, fmt.Errorf("evaluate ply %d (%s): %w", ply.Number, side, err)
}

func (a *Annotator) topMoves(ctx context.Context, ply mainline.Ply) ([]oracle.RankedMove, error) {
	lines, err := a.oracle.TopMoves(ctx, ply.BeforeFEN, a.cfg.Depth, a.cfg.TopMoves)
	if err == nil {
		return lines, nil
	}
	if errors.Is(err, oracle.ErrUnavailable) {
		return nil, nil
	}
	return nil, fmt.Errorf("top moves ply %d: %w", ply.Number, err)
}
