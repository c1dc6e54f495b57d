package uci

import (
	"testing"
	"time"
)

func TestParseInfoCentipawns(t *testing.T) {
	rank, line, ok := parseInfo("info depth 20 seldepth 28 multipv 1 score cp 35 nodes 123 pv e2e4 e7e5 g1f3")
	if !ok {
		t.Fatalf("expected parse success")
	}
	if rank != 1 {
		t.Fatalf("rank = %d", rank)
	}
	if line.Score.Mate || line.Score.Value != 35 {
		t.Fatalf("score = %+v", line.Score)
	}
	if line.Move != "e2e4" || len(line.Principal) != 3 {
		t.Fatalf("pv = %+v", line)
	}
}

func TestParseInfoMate(t *testing.T) {
	_, line, ok := parseInfo("info depth 12 score mate -3 pv h7h8q")
	if !ok {
		t.Fatalf("expected parse success")
	}
	if !line.Score.Mate || line.Score.Value != -3 {
		t.Fatalf("score = %+v", line.Score)
	}
}

func TestParseInfoMultiPVRank(t *testing.T) {
	rank, _, ok := parseInfo("info depth 18 multipv 3 score cp -120 pv d2d4")
	if !ok || rank != 3 {
		t.Fatalf("rank = %d ok = %v", rank, ok)
	}
}

func TestParseInfoIgnoresLinesWithoutPV(t *testing.T) {
	if _, _, ok := parseInfo("info depth 20 currmove e2e4 currmovenumber 1"); ok {
		t.Fatalf("currmove line should be ignored")
	}
	if _, _, ok := parseInfo("info depth 20 score cp 35 nodes 99"); ok {
		t.Fatalf("score without pv should be ignored")
	}
	if _, _, ok := parseInfo("info string NNUE evaluation enabled"); ok {
		t.Fatalf("string line should be ignored")
	}
}

func TestCollapseLinesOrdering(t *testing.T) {
	m := map[int]Line{
		3: {Move: "c2c4"},
		1: {Move: "e2e4"},
		2: {Move: "d2d4"},
	}
	out := collapseLines(m)
	if len(out) != 3 || out[0].Move != "e2e4" || out[1].Move != "d2d4" || out[2].Move != "c2c4" {
		t.Fatalf("collapse order wrong: %+v", out)
	}
	if collapseLines(nil) != nil {
		t.Fatalf("empty map should collapse to nil")
	}
}

func TestBuildPositionCommand(t *testing.T) {
	if got := buildPositionCommand(""); got != "position startpos\n" {
		t.Fatalf("empty fen: %q", got)
	}
	if got := buildPositionCommand("startpos"); got != "position startpos\n" {
		t.Fatalf("startpos: %q", got)
	}
	fen := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1"
	if got := buildPositionCommand(fen); got != "position fen "+fen+"\n" {
		t.Fatalf("fen: %q", got)
	}
}

func TestSearchTimeoutClamped(t *testing.T) {
	if got := searchTimeout(1); got != 30*time.Second {
		t.Fatalf("low depth timeout = %v", got)
	}
	if got := searchTimeout(25); got != 50*time.Second {
		t.Fatalf("depth 25 timeout = %v", got)
	}
	if got := searchTimeout(1000); got != 5*time.Minute {
		t.Fatalf("high depth timeout = %v", got)
	}
}

func TestValidateOptions(t *testing.T) {
	if err := validateOptions(Options{HashMB: 128, MultiPV: 1}); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
	if err := validateOptions(Options{HashMB: 0, MultiPV: 1}); err == nil {
		t.Fatalf("zero hash accepted")
	}
	if err := validateOptions(Options{HashMB: 128, MultiPV: 0}); err == nil {
		t.Fatalf("zero multipv accepted")
	}
}
