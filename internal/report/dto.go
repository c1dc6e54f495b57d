package report

import (
	"github.com/kapu/chess-annotator-go/internal/analysis"
	"github.com/kapu/chess-annotator-go/internal/mainline"
	"github.com/kapu/chess-annotator-go/pkg/reportdto"
)

// ToDTO flattens an analysis result into the transport shape used by the
// persistence layer and machine-readable output.
func ToDTO(line *mainline.Line, res *analysis.Result) *reportdto.GameReport {
	out := &reportdto.GameReport{
		White:       playerDTO(line.Tag("White", "White"), res.White),
		Black:       playerDTO(line.Tag("Black", "Black"), res.Black),
		TotalPlies:  res.TotalPlies,
		Annotations: make([]reportdto.AnnotatedMove, 0, len(res.Annotations)),
	}
	for _, am := range res.Annotations {
		dto := reportdto.AnnotatedMove{
			Ply:        am.Ply,
			MoveNumber: am.MoveNumber,
			Player:     string(am.Color),
			SAN:        am.SAN,
			Severity:   am.Severity.String(),
			Glyph:      am.Severity.Glyph(),
			Swing:      am.Swing,
			Accuracy:   am.Accuracy,
		}
		for _, rm := range am.BestLines {
			dto.BestLines = append(dto.BestLines, reportdto.RankedMove{
				UCI:  rm.UCI,
				Eval: FormatEval(rm.Eval),
			})
		}
		out.Annotations = append(out.Annotations, dto)
	}
	return out
}

func playerDTO(name string, s analysis.Summary) reportdto.PlayerSummary {
	return reportdto.PlayerSummary{
		Name:            name,
		Moves:           s.Moves,
		Inaccuracies:    s.Inaccuracies,
		Mistakes:        s.Mistakes,
		Blunders:        s.Blunders,
		AverageAccuracy: s.AverageAccuracy,
		ErrorRate:       s.ErrorRate,
	}
}
