package analysis

// PlayerStats accumulates one player's counters over a game. The move count
// grows exactly once per ply attributed to the player; the accuracy sum and
// count only ever grow together, so the average stays well defined.
type PlayerStats struct {
	Moves         int
	Inaccuracies  int
	Mistakes      int
	Blunders      int
	accuracySum   float64
	accuracyCount int
}

func (s *PlayerStats) CountMove() { s.Moves++ }

func (s *PlayerStats) AddAccuracy(score float64) {
	s.accuracySum += score
	s.accuracyCount++
}

func (s *PlayerStats) CountSeverity(sev Severity) {
	switch sev {
	case SeverityInaccuracy:
		s.Inaccuracies++
	case SeverityMistake:
		s.Mistakes++
	case SeverityBlunder:
		s.Blunders++
	}
}

// Summary is the finalized, read-only view of a player's statistics.
type Summary struct {
	Moves        int
	Inaccuracies int
	Mistakes     int
	Blunders     int

	// AverageAccuracy is nil when no ply produced a defined accuracy score.
	AverageAccuracy *float64

	// ErrorRate is the percentage of the player's moves that were flagged,
	// 0 when the player made no moves.
	ErrorRate float64
}

// Errors returns the total number of flagged moves.
func (s Summary) Errors() int {
	return s.Inaccuracies + s.Mistakes + s.Blunders
}

func (s *PlayerStats) Finalize() Summary {
	out := Summary{
		Moves:        s.Moves,
		Inaccuracies: s.Inaccuracies,
		Mistakes:     s.Mistakes,
		Blunders:     s.Blunders,
	}
	if s.accuracyCount > 0 {
		avg := s.accuracySum / float64(s.accuracyCount)
		out.AverageAccuracy = &avg
	}
	if s.Moves > 0 {
		out.ErrorRate = 100 * float64(out.Errors()) / float64(s.Moves)
	}
	return out
}
