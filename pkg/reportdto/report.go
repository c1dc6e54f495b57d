// Package reportdto carries the finalized analysis results handed to
// presentation and persistence layers. The analysis core never retains these
// after a run completes.
package reportdto

// RankedMove is an engine alternative with a display-ready evaluation string
// such as "+0.35" or "#3".
type RankedMove struct {
	UCI  string `json:"uci"`
	Eval string `json:"eval"`
}

// AnnotatedMove is one flagged move of the analyzed game.
type AnnotatedMove struct {
	Ply        int          `json:"ply"`
	MoveNumber int          `json:"move_number"`
	Player     string       `json:"player"`
	SAN        string       `json:"san"`
	Severity   string       `json:"severity"`
	Glyph      string       `json:"glyph"`
	Swing      float64      `json:"swing"`
	Accuracy   *float64     `json:"accuracy,omitempty"`
	BestLines  []RankedMove `json:"best_lines,omitempty"`
}

// PlayerSummary is one side's finalized statistics.
type PlayerSummary struct {
	Name            string   `json:"name"`
	Moves           int      `json:"moves"`
	Inaccuracies    int      `json:"inaccuracies"`
	Mistakes        int      `json:"mistakes"`
	Blunders        int      `json:"blunders"`
	AverageAccuracy *float64 `json:"average_accuracy,omitempty"`
	ErrorRate       float64  `json:"error_rate"`
}

// GameReport is the complete outcome of one annotation run.
type GameReport struct {
	White       PlayerSummary   `json:"white"`
	Black       PlayerSummary   `json:"black"`
	TotalPlies  int             `json:"total_plies"`
	Annotations []AnnotatedMove `json:"annotations"`
}
