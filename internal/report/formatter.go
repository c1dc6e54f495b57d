package report

import (
	"fmt"
	"strings"

	"github.com/kapu/chess-annotator-go/internal/analysis"
	"github.com/kapu/chess-annotator-go/internal/mainline"
	"github.com/kapu/chess-annotator-go/internal/msgcat"
	"github.com/kapu/chess-annotator-go/internal/oracle"
)

// Settings are echoed into the report so a reader knows how the numbers were
// produced.
type Settings struct {
	Engine     string
	Depth      int
	Thresholds analysis.Thresholds
}

// Formatter renders the plain-text analysis report from catalog templates.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) Render(line *mainline.Line, res *analysis.Result, s Settings) (string, error) {
	var sb strings.Builder
	rule := strings.Repeat("=", 60)

	header, err := f.render("report.header", nil)
	if err != nil {
		return "", err
	}
	sb.WriteString(rule + "\n" + header + "\n" + rule + "\n\n")

	whiteName := line.Tag("White", "White")
	blackName := line.Tag("Black", "Black")

	info, err := f.render("report.game_info", map[string]string{
		"White":  whiteName,
		"Black":  blackName,
		"Event":  line.Tag("Event", "Unknown"),
		"Date":   line.Tag("Date", "Unknown"),
		"Result": line.Tag("Result", "*"),
	})
	if err != nil {
		return "", err
	}
	sb.WriteString(info + "\n\n")

	settings, err := f.render("report.settings", map[string]string{
		"Engine":     s.Engine,
		"Depth":      fmt.Sprintf("%d", s.Depth),
		"Inaccuracy": trimFloat(s.Thresholds.Inaccuracy),
		"Mistake":    trimFloat(s.Thresholds.Mistake),
		"Blunder":    trimFloat(s.Thresholds.Blunder),
	})
	if err != nil {
		return "", err
	}
	sb.WriteString(settings + "\n\n")

	summary, err := f.render("report.summary", map[string]string{
		"Total":      fmt.Sprintf("%d", res.TotalPlies),
		"WhiteMoves": fmt.Sprintf("%d", res.White.Moves),
		"BlackMoves": fmt.Sprintf("%d", res.Black.Moves),
	})
	if err != nil {
		return "", err
	}
	sb.WriteString(summary + "\n\n")

	if err := f.writePlayer(&sb, whiteName, res.White); err != nil {
		return "", err
	}
	if err := f.writePlayer(&sb, blackName, res.Black); err != nil {
		return "", err
	}

	if res.White.Moves > 0 && res.Black.Moves > 0 {
		if err := f.writeComparison(&sb, whiteName, blackName, res); err != nil {
			return "", err
		}
	}

	if err := f.writeErrors(&sb, res); err != nil {
		return "", err
	}

	return sb.String(), nil
}

func (f *Formatter) writePlayer(sb *strings.Builder, name string, s analysis.Summary) error {
	header, err := f.render("report.player_header", map[string]string{"Name": strings.ToUpper(name)})
	if err != nil {
		return err
	}
	sb.WriteString(header + "\n")

	if s.Errors() == 0 {
		l, err := f.render("report.no_errors", nil)
		if err != nil {
			return err
		}
		sb.WriteString(l + "\n")
	} else {
		rows := []struct {
			key   string
			count int
		}{
			{"severity.inaccuracy", s.Inaccuracies},
			{"severity.mistake", s.Mistakes},
			{"severity.blunder", s.Blunders},
		}
		for _, row := range rows {
			if row.count == 0 {
				continue
			}
			label, err := f.render(row.key, nil)
			if err != nil {
				return err
			}
			pct := 0.0
			if s.Moves > 0 {
				pct = 100 * float64(row.count) / float64(s.Moves)
			}
			l, err := f.render("report.severity_line", map[string]string{
				"Label":   label,
				"Count":   fmt.Sprintf("%d", row.count),
				"Percent": fmt.Sprintf("%.1f", pct),
			})
			if err != nil {
				return err
			}
			sb.WriteString(l + "\n")
		}
		l, err := f.render("report.error_rate", map[string]string{
			"Rate":   fmt.Sprintf("%.1f", s.ErrorRate),
			"Errors": fmt.Sprintf("%d", s.Errors()),
			"Moves":  fmt.Sprintf("%d", s.Moves),
		})
		if err != nil {
			return err
		}
		sb.WriteString(l + "\n")
	}

	if s.AverageAccuracy != nil {
		l, err := f.render("report.avg_accuracy", map[string]string{
			"Accuracy": fmt.Sprintf("%.1f", *s.AverageAccuracy),
		})
		if err != nil {
			return err
		}
		sb.WriteString(l + "\n")
	} else {
		l, err := f.render("report.avg_accuracy_na", nil)
		if err != nil {
			return err
		}
		sb.WriteString(l + "\n")
	}

	sb.WriteString("\n")
	return nil
}

func (f *Formatter) writeComparison(sb *strings.Builder, whiteName, blackName string, res *analysis.Result) error {
	header, err := f.render("report.comparison_header", nil)
	if err != nil {
		return err
	}
	sb.WriteString(header + "\n")

	whiteAcc := accuracyOrZero(res.White)
	blackAcc := accuracyOrZero(res.Black)

	for _, p := range []struct {
		name string
		s    analysis.Summary
		acc  float64
	}{
		{whiteName, res.White, whiteAcc},
		{blackName, res.Black, blackAcc},
	} {
		l, err := f.render("report.comparison_accuracy", map[string]string{
			"Name":     p.name,
			"Accuracy": fmt.Sprintf("%.1f", p.acc),
		})
		if err != nil {
			return err
		}
		sb.WriteString(l + "\n")
	}
	for _, p := range []struct {
		name string
		s    analysis.Summary
	}{
		{whiteName, res.White},
		{blackName, res.Black},
	} {
		l, err := f.render("report.comparison_error_rate", map[string]string{
			"Name": p.name,
			"Rate": fmt.Sprintf("%.1f", p.s.ErrorRate),
		})
		if err != nil {
			return err
		}
		sb.WriteString(l + "\n")
	}

	var verdict string
	switch {
	case whiteAcc > blackAcc:
		verdict, err = f.render("report.more_accurate", map[string]string{
			"Name":  whiteName,
			"Delta": fmt.Sprintf("%.1f", whiteAcc-blackAcc),
		})
	case blackAcc > whiteAcc:
		verdict, err = f.render("report.more_accurate", map[string]string{
			"Name":  blackName,
			"Delta": fmt.Sprintf("%.1f", blackAcc-whiteAcc),
		})
	default:
		verdict, err = f.render("report.similar_accuracy", nil)
	}
	if err != nil {
		return err
	}
	sb.WriteString(verdict + "\n\n")
	return nil
}

func (f *Formatter) writeErrors(sb *strings.Builder, res *analysis.Result) error {
	if len(res.Annotations) == 0 {
		l, err := f.render("report.clean_game", nil)
		if err != nil {
			return err
		}
		sb.WriteString(l + "\n")
		return nil
	}

	header, err := f.render("report.errors_header", nil)
	if err != nil {
		return err
	}
	sb.WriteString(header + "\n" + strings.Repeat("-", 50) + "\n")

	for _, am := range res.Annotations {
		moveNum := fmt.Sprintf("%d.", am.MoveNumber)
		if am.Color == mainline.Black {
			moveNum = fmt.Sprintf("%d...", am.MoveNumber)
		}
		accSuffix := ""
		if am.Accuracy != nil {
			accSuffix, err = f.render("report.error_accuracy_suffix", map[string]string{
				"Accuracy": fmt.Sprintf("%.1f", *am.Accuracy),
			})
			if err != nil {
				return err
			}
		}
		l, err := f.render("report.error_line", map[string]string{
			"MoveNum":  moveNum,
			"SAN":      am.SAN,
			"Glyph":    am.Severity.Glyph(),
			"Player":   am.Color.Title(),
			"Loss":     fmt.Sprintf("%.2f", -am.Swing),
			"Accuracy": accSuffix,
		})
		if err != nil {
			return err
		}
		sb.WriteString(l + "\n")

		if len(am.BestLines) > 0 {
			best, err := f.render("report.best_line", map[string]string{
				"Move": am.BestLines[0].UCI,
				"Eval": FormatEval(am.BestLines[0].Eval),
			})
			if err != nil {
				return err
			}
			sb.WriteString(best + "\n")
		}
	}
	return nil
}

func (f *Formatter) render(key string, data any) (string, error) {
	out, err := f.cat.Render(key, data)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}

// FormatEval turns a normalized evaluation into the usual engine-output
// style: "+0.35", "-1.20" or "#3" / "#-3" for forced mate.
func FormatEval(ev oracle.Evaluation) string {
	if ev.Kind == oracle.ScoreMate {
		return fmt.Sprintf("#%d", ev.MateIn)
	}
	return fmt.Sprintf("%+.2f", ev.Pawns)
}

func accuracyOrZero(s analysis.Summary) float64 {
	if s.AverageAccuracy == nil {
		return 0
	}
	return *s.AverageAccuracy
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
