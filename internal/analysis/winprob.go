package analysis

import "math"

// Lichess model constants for win chances and move accuracy.
const (
	winProbSlope  = 0.00368208
	accuracyScale = 103.1668
	accuracyDecay = 0.04354
	accuracyShift = 3.1669
)

// WinProbability maps an evaluation in pawns (from the mover's perspective)
// onto a 0-100 winning-chances scale. Any finite input lands strictly inside
// (0, 100); an even position maps to exactly 50.
func WinProbability(pawns float64) float64 {
	return 50 + 50*(2/(1+math.Exp(-winProbSlope*pawns*100))-1)
}

// MoveAccuracy scores one move from the win probabilities before and after it,
// both already in the mover's own perspective. Improvement counts as zero loss,
// so accuracy never exceeds the zero-loss score. The result is clamped to
// [0, 100]; the raw formula can drift slightly outside on either end.
func MoveAccuracy(winBefore, winAfter float64) float64 {
	loss := winBefore - winAfter
	if loss < 0 {
		loss = 0
	}
	acc := accuracyScale*math.Exp(-accuracyDecay*loss) - accuracyShift
	if acc < 0 {
		return 0
	}
	if acc > 100 {
		return 100
	}
	return acc
}
