package analysis

import (
	"math"
	"testing"
)

func TestFinalizeEmptyPlayer(t *testing.T) {
	var s PlayerStats
	sum := s.Finalize()
	if sum.Moves != 0 || sum.Errors() != 0 || sum.ErrorRate != 0 {
		t.Fatalf("empty player produced counts: %+v", sum)
	}
	if sum.AverageAccuracy != nil {
		t.Fatalf("expected nil average accuracy, got %v", *sum.AverageAccuracy)
	}
}

func TestFinalizeAverageAndErrorRate(t *testing.T) {
	var s PlayerStats
	for i := 0; i < 4; i++ {
		s.CountMove()
	}
	s.AddAccuracy(90)
	s.AddAccuracy(70)
	s.CountSeverity(SeverityMistake)
	s.CountSeverity(SeverityBlunder)
	s.CountSeverity(SeverityNone) // must not count as an error

	sum := s.Finalize()
	if sum.Moves != 4 || sum.Mistakes != 1 || sum.Blunders != 1 || sum.Errors() != 2 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if sum.AverageAccuracy == nil || math.Abs(*sum.AverageAccuracy-80) > 1e-9 {
		t.Fatalf("average accuracy = %v, want 80", sum.AverageAccuracy)
	}
	if math.Abs(sum.ErrorRate-50) > 1e-9 {
		t.Fatalf("error rate = %v, want 50", sum.ErrorRate)
	}
}

func TestMovesCountedWithoutAccuracy(t *testing.T) {
	var s PlayerStats
	s.CountMove()
	s.CountMove()
	s.AddAccuracy(95)

	sum := s.Finalize()
	if sum.Moves != 2 {
		t.Fatalf("moves = %d, want 2", sum.Moves)
	}
	// One ply failed to evaluate; the average covers only the defined ply.
	if sum.AverageAccuracy == nil || *sum.AverageAccuracy != 95 {
		t.Fatalf("average accuracy = %v, want 95", sum.AverageAccuracy)
	}
}
