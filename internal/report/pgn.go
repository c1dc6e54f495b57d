package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kapu/chess-annotator-go/internal/analysis"
	"github.com/kapu/chess-annotator-go/internal/mainline"
)

// The seven-tag roster goes first, in order; any remaining tags follow
// alphabetically.
var rosterTags = []string{"Event", "Site", "Date", "Round", "White", "Black", "Result"}

// BuildAnnotatedPGN re-emits the extracted main line with severity glyphs and
// loss comments on flagged moves. The output starts from a clean slate: the
// input's own comments, variations and annotations were dropped at
// extraction time.
func BuildAnnotatedPGN(line *mainline.Line, res *analysis.Result) string {
	byPly := make(map[int]analysis.AnnotatedMove, len(res.Annotations))
	for _, am := range res.Annotations {
		byPly[am.Ply] = am
	}

	var b strings.Builder
	writeTags(&b, line)
	b.WriteString("\n")

	tokens := make([]string, 0, len(line.Plies)*2)
	for _, ply := range line.Plies {
		if ply.Color == mainline.White {
			tokens = append(tokens, fmt.Sprintf("%d.", ply.MoveNumber))
		}
		san := ply.SAN
		am, flagged := byPly[ply.Number]
		if flagged {
			san += am.Severity.Glyph()
		}
		tokens = append(tokens, san)
		if flagged {
			tokens = append(tokens, moveComment(am))
		}
	}
	tokens = append(tokens, line.Tag("Result", "*"))

	writeWrapped(&b, tokens, 80)
	b.WriteString("\n")
	return b.String()
}

func writeTags(b *strings.Builder, line *mainline.Line) {
	written := make(map[string]bool, len(line.Tags))
	for _, key := range rosterTags {
		val, ok := line.Tags[key]
		if !ok {
			if key == "Result" {
				val = "*"
			} else {
				continue
			}
		}
		b.WriteString(fmt.Sprintf("[%s \"%s\"]\n", key, sanitizeTag(val)))
		written[key] = true
	}

	rest := make([]string, 0, len(line.Tags))
	for key := range line.Tags {
		if !written[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		b.WriteString(fmt.Sprintf("[%s \"%s\"]\n", key, sanitizeTag(line.Tags[key])))
	}
}

func moveComment(am analysis.AnnotatedMove) string {
	if am.Accuracy != nil {
		return fmt.Sprintf("{ %+.2f, accuracy %.1f%% }", am.Swing, *am.Accuracy)
	}
	return fmt.Sprintf("{ %+.2f }", am.Swing)
}

func writeWrapped(b *strings.Builder, tokens []string, width int) {
	col := 0
	for i, tok := range tokens {
		if i > 0 {
			if col+1+len(tok) > width {
				b.WriteString("\n")
				col = 0
			} else {
				b.WriteString(" ")
				col++
			}
		}
		b.WriteString(tok)
		col += len(tok)
	}
}

func sanitizeTag(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return strings.TrimSpace(s)
}
