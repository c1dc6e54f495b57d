package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/kapu/chess-annotator-go/internal/mainline"
	"github.com/kapu/chess-annotator-go/internal/oracle"
)

// fakeOracle serves canned reference-perspective evaluations keyed by FEN.
type fakeOracle struct {
	evals    map[string]float64
	fail     map[string]bool
	top      map[string][]oracle.RankedMove
	queries  int
	topCalls int
}

func (f *fakeOracle) Evaluate(_ context.Context, fen string, _ int) (oracle.Evaluation, error) {
	f.queries++
	if f.fail[fen] {
		return oracle.Evaluation{}, oracle.ErrUnavailable
	}
	v, ok := f.evals[fen]
	if !ok {
		return oracle.Evaluation{}, fmt.Errorf("no canned eval for %s", fen)
	}
	return oracle.Evaluation{Pawns: v, Kind: oracle.ScoreCentipawns}, nil
}

func (f *fakeOracle) TopMoves(_ context.Context, fen string, _, n int) ([]oracle.RankedMove, error) {
	f.topCalls++
	lines := f.top[fen]
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines, nil
}

// fourPlyLine builds a synthetic main line over positions p0..p4. The oracle
// fake keys on these position names, so no real chess data is needed.
func fourPlyLine() *mainline.Line {
	sans := []string{"e4", "e5", "Nf3", "Nc6"}
	plies := make([]mainline.Ply, 0, 4)
	for i := 0; i < 4; i++ {
		color := mainline.White
		if i%2 == 1 {
			color = mainline.Black
		}
		plies = append(plies, mainline.Ply{
			Number:     i + 1,
			MoveNumber: i/2 + 1,
			Color:      color,
			SAN:        sans[i],
			BeforeFEN:  fmt.Sprintf("p%d", i),
			AfterFEN:   fmt.Sprintf("p%d", i+1),
		})
	}
	return &mainline.Line{Tags: map[string]string{}, Plies: plies}
}

func TestAnnotateFlagsMistakeAndBlunder(t *testing.T) {
	// p2->p3 drops white by 1.1 pawns (mistake); p3->p4 swings the game back
	// to +1.0, a 2.0 pawn loss for black (blunder).
	o := &fakeOracle{evals: map[string]float64{
		"p0": 0.0, "p1": 0.2, "p2": 0.1, "p3": -1.0, "p4": 1.0,
	}}
	a, err := NewAnnotator(o, Config{Depth: 10, Thresholds: DefaultThresholds()})
	if err != nil {
		t.Fatalf("NewAnnotator: %v", err)
	}

	res, err := a.Annotate(context.Background(), fourPlyLine())
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	if res.TotalPlies != 4 || res.White.Moves != 2 || res.Black.Moves != 2 {
		t.Fatalf("unexpected move counts: %+v", res)
	}
	if len(res.Annotations) != 2 {
		t.Fatalf("expected 2 annotations, got %d: %+v", len(res.Annotations), res.Annotations)
	}

	first := res.Annotations[0]
	if first.Ply != 3 || first.Severity != SeverityMistake || first.Color != mainline.White {
		t.Fatalf("unexpected first annotation: %+v", first)
	}
	if math.Abs(first.Swing+1.1) > 1e-9 {
		t.Fatalf("first swing = %v, want -1.1", first.Swing)
	}

	second := res.Annotations[1]
	if second.Ply != 4 || second.Severity != SeverityBlunder || second.Color != mainline.Black {
		t.Fatalf("unexpected second annotation: %+v", second)
	}

	if res.White.Mistakes != 1 || res.Black.Blunders != 1 {
		t.Fatalf("severity counters wrong: white=%+v black=%+v", res.White, res.Black)
	}
	if res.White.AverageAccuracy == nil || res.Black.AverageAccuracy == nil {
		t.Fatalf("expected defined average accuracy for both sides")
	}
}

func TestAnnotateWarmupNeverFlagged(t *testing.T) {
	// Ply 1 loses white 5 pawns, ply 2 loses black 5 pawns; both inside the
	// warm-up window. Plies 3 and 4 are quiet.
	o := &fakeOracle{evals: map[string]float64{
		"p0": 0.0, "p1": -5.0, "p2": 0.0, "p3": 0.0, "p4": 0.0,
	}}
	a, err := NewAnnotator(o, Config{Thresholds: DefaultThresholds()})
	if err != nil {
		t.Fatalf("NewAnnotator: %v", err)
	}

	res, err := a.Annotate(context.Background(), fourPlyLine())
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(res.Annotations) != 0 {
		t.Fatalf("warm-up plies were flagged: %+v", res.Annotations)
	}
	// Warm-up plies still count as moves and still score accuracy.
	if res.White.Moves != 2 || res.White.AverageAccuracy == nil {
		t.Fatalf("warm-up plies not counted: %+v", res.White)
	}
}

func TestAnnotateDegradesUnavailablePly(t *testing.T) {
	o := &fakeOracle{
		evals: map[string]float64{"p0": 0.0, "p1": 0.0, "p2": 0.0, "p4": 0.0},
		fail:  map[string]bool{"p3": true},
	}
	a, err := NewAnnotator(o, Config{Thresholds: DefaultThresholds()})
	if err != nil {
		t.Fatalf("NewAnnotator: %v", err)
	}

	res, err := a.Annotate(context.Background(), fourPlyLine())
	if err != nil {
		t.Fatalf("Annotate should tolerate an unavailable ply: %v", err)
	}

	// Both plies touching p3 are degraded but still counted.
	if res.White.Moves != 2 || res.Black.Moves != 2 {
		t.Fatalf("degraded plies must still count: %+v", res)
	}
	if len(res.Annotations) != 0 {
		t.Fatalf("degraded plies must not be classified: %+v", res.Annotations)
	}
	// Ply 3 (before=p2 ok, after=p3 failed) and ply 4 (before=p3 failed)
	// contribute no accuracy; plies 1 and 2 do.
	if res.White.AverageAccuracy == nil || res.Black.AverageAccuracy == nil {
		t.Fatalf("warm-up accuracies should survive: %+v", res)
	}
}

func TestAnnotateFatalOracleErrorAborts(t *testing.T) {
	o := &fakeOracle{evals: map[string]float64{"p0": 0.0}}
	a, err := NewAnnotator(o, Config{Thresholds: DefaultThresholds()})
	if err != nil {
		t.Fatalf("NewAnnotator: %v", err)
	}
	if _, err := a.Annotate(context.Background(), fourPlyLine()); err == nil {
		t.Fatalf("expected hard failure on non-recoverable oracle error")
	}
}

func TestAnnotateCancelledContext(t *testing.T) {
	o := &fakeOracle{evals: map[string]float64{"p0": 0.0, "p1": 0.0, "p2": 0.0, "p3": 0.0, "p4": 0.0}}
	a, err := NewAnnotator(o, Config{Thresholds: DefaultThresholds()})
	if err != nil {
		t.Fatalf("NewAnnotator: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Annotate(ctx, fourPlyLine()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnnotateEmptyLine(t *testing.T) {
	o := &fakeOracle{}
	a, err := NewAnnotator(o, Config{Thresholds: DefaultThresholds()})
	if err != nil {
		t.Fatalf("NewAnnotator: %v", err)
	}
	if _, err := a.Annotate(context.Background(), &mainline.Line{}); !errors.Is(err, mainline.ErrNoMoves) {
		t.Fatalf("expected ErrNoMoves, got %v", err)
	}
	if _, err := a.Annotate(context.Background(), nil); !errors.Is(err, mainline.ErrNoMoves) {
		t.Fatalf("expected ErrNoMoves for nil line, got %v", err)
	}
}

func TestAnnotateTopMovesAttached(t *testing.T) {
	o := &fakeOracle{
		evals: map[string]float64{"p0": 0.0, "p1": 0.0, "p2": 0.1, "p3": -1.0, "p4": -1.0},
		top: map[string][]oracle.RankedMove{
			"p2": {{UCI: "d2d4", Eval: oracle.Evaluation{Pawns: 0.1, Kind: oracle.ScoreCentipawns}}},
		},
	}
	a, err := NewAnnotator(o, Config{Thresholds: DefaultThresholds(), TopMoves: 3})
	if err != nil {
		t.Fatalf("NewAnnotator: %v", err)
	}
	res, err := a.Annotate(context.Background(), fourPlyLine())
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(res.Annotations) != 1 {
		t.Fatalf("expected 1 annotation, got %+v", res.Annotations)
	}
	am := res.Annotations[0]
	if len(am.BestLines) != 1 || am.BestLines[0].UCI != "d2d4" {
		t.Fatalf("best lines not attached: %+v", am.BestLines)
	}
}

func TestNewAnnotatorRejectsBadConfig(t *testing.T) {
	if _, err := NewAnnotator(nil, Config{Thresholds: DefaultThresholds()}); err == nil {
		t.Fatalf("expected error for nil oracle")
	}
	bad := Config{Thresholds: Thresholds{Inaccuracy: 1, Mistake: 0.5, Blunder: 2}}
	if _, err := NewAnnotator(&fakeOracle{}, bad); !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds, got %v", err)
	}
}
