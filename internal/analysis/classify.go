package analysis

import (
	"errors"

	"github.com/kapu/chess-annotator-go/internal/mainline"
)

// Severity grades how bad a move was. The zero value means the move is not
// flagged at all; improving and neutral moves always classify as None.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityInaccuracy
	SeverityMistake
	SeverityBlunder
)

func (s Severity) String() string {
	switch s {
	case SeverityInaccuracy:
		return "inaccuracy"
	case SeverityMistake:
		return "mistake"
	case SeverityBlunder:
		return "blunder"
	default:
		return "none"
	}
}

// Glyph returns the PGN annotation symbol for the severity.
func (s Severity) Glyph() string {
	switch s {
	case SeverityInaccuracy:
		return "?!"
	case SeverityMistake:
		return "?"
	case SeverityBlunder:
		return "??"
	default:
		return ""
	}
}

// NAG returns the numeric annotation glyph code used in PGN output.
func (s Severity) NAG() int {
	switch s {
	case SeverityInaccuracy:
		return 6
	case SeverityMistake:
		return 2
	case SeverityBlunder:
		return 4
	default:
		return 0
	}
}

// ErrInvalidThresholds is fatal at setup time: the analyzer refuses a
// threshold set that is not strictly ordered rather than reinterpreting it.
var ErrInvalidThresholds = errors.New("thresholds must satisfy 0 < inaccuracy < mistake < blunder")

// Thresholds are the severity cutoffs in pawns of mover-perspective loss.
type Thresholds struct {
	Inaccuracy float64
	Mistake    float64
	Blunder    float64
}

// DefaultThresholds returns the stock cutoffs: 0.4 / 0.8 / 1.8 pawns.
func DefaultThresholds() Thresholds {
	return Thresholds{Inaccuracy: 0.4, Mistake: 0.8, Blunder: 1.8}
}

func (t Thresholds) Validate() error {
	if t.Inaccuracy <= 0 || t.Mistake <= t.Inaccuracy || t.Blunder <= t.Mistake {
		return ErrInvalidThresholds
	}
	return nil
}

// Classify maps a mover-perspective evaluation swing to a severity. Checks
// run from most to least severe, so a swing landing exactly on a boundary
// takes the more severe grade.
func (t Thresholds) Classify(swing float64) Severity {
	switch {
	case swing <= -t.Blunder:
		return SeverityBlunder
	case swing <= -t.Mistake:
		return SeverityMistake
	case swing <= -t.Inaccuracy:
		return SeverityInaccuracy
	default:
		return SeverityNone
	}
}

// MoverSwing converts a pair of reference-perspective (White) evaluations
// into the change seen from the mover's side: negative means the move hurt
// the player who made it.
func MoverSwing(before, after float64, mover mainline.Color) float64 {
	if mover == mainline.White {
		return after - before
	}
	return before - after
}

// moverPawns flips a reference-perspective evaluation into the mover's own
// perspective.
func moverPawns(pawns float64, mover mainline.Color) float64 {
	if mover == mainline.White {
		return pawns
	}
	return -pawns
}
