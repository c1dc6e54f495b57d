package mainline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Color identifies the side that played a ply.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Title returns the color capitalized for user-facing output.
func (c Color) Title() string {
	if c == Black {
		return "Black"
	}
	return "White"
}

// Ply is one half-move of the extracted main line. Positions are carried as
// FEN strings so downstream consumers never alias the parsed game tree.
type Ply struct {
	Number     int // 1-based half-move index
	MoveNumber int // full-move number the ply belongs to
	Color      Color
	SAN        string
	UCI        string
	BeforeFEN  string
	AfterFEN   string
}

// Line is the immutable main line of one game, stripped of variations,
// comments and any annotations present on the input.
type Line struct {
	Tags  map[string]string
	Plies []Ply
}

// Tag returns the PGN tag value for name, or fallback when absent.
func (l *Line) Tag(name, fallback string) string {
	if l != nil {
		if v, ok := l.Tags[name]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return fallback
}

// ErrNoMoves reports a game record with an empty main line.
var ErrNoMoves = errors.New("game has no main-line moves")

var tagPairRe = regexp.MustCompile(`(?m)^\[(\w+)\s+"((?:[^"\\]|\\.)*)"\]`)

// Load parses the first game in r and extracts its main line. Alternate
// variations are discarded by construction: only the sequence of played moves
// and the positions they produce are retained.
func Load(r io.Reader) (*Line, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read game input: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, ErrNoMoves
	}

	pgnOpt, err := nchess.PGN(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse pgn: %w", err)
	}
	game := nchess.NewGame(pgnOpt)

	line, err := Extract(game)
	if err != nil {
		return nil, err
	}
	line.Tags = parseTags(raw)
	return line, nil
}

// Extract walks the played moves of game and produces a fresh Line. The game
// itself is left untouched.
func Extract(game *nchess.Game) (*Line, error) {
	if game == nil {
		return nil, ErrNoMoves
	}
	moves := game.Moves()
	positions := game.Positions()
	if len(moves) == 0 {
		return nil, ErrNoMoves
	}
	if len(positions) != len(moves)+1 {
		return nil, fmt.Errorf("inconsistent main line: %d positions for %d moves", len(positions), len(moves))
	}

	san := nchess.AlgebraicNotation{}
	uci := nchess.UCINotation{}

	plies := make([]Ply, 0, len(moves))
	for i, mv := range moves {
		pos := positions[i]
		color := White
		if pos.Turn() == nchess.Black {
			color = Black
		}
		plies = append(plies, Ply{
			Number:     i + 1,
			MoveNumber: i/2 + 1,
			Color:      color,
			SAN:        san.Encode(pos, mv),
			UCI:        strings.ToLower(uci.Encode(pos, mv)),
			BeforeFEN:  pos.String(),
			AfterFEN:   positions[i+1].String(),
		})
	}

	return &Line{Tags: map[string]string{}, Plies: plies}, nil
}

func parseTags(raw []byte) map[string]string {
	tags := make(map[string]string)
	for _, m := range tagPairRe.FindAllSubmatch(raw, -1) {
		key := string(m[1])
		val := strings.ReplaceAll(string(m[2]), `\"`, `"`)
		val = strings.ReplaceAll(val, `\\`, `\`)
		if _, ok := tags[key]; !ok {
			tags[key] = val
		}
	}
	return tags
}
