package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	appcfg "github.com/kapu/chess-annotator-go/internal/config"
	"github.com/kapu/chess-annotator-go/internal/analysis"
	"github.com/kapu/chess-annotator-go/internal/evalcache"
	"github.com/kapu/chess-annotator-go/internal/fetch"
	"github.com/kapu/chess-annotator-go/internal/mainline"
	"github.com/kapu/chess-annotator-go/internal/msgcat"
	"github.com/kapu/chess-annotator-go/internal/obslog"
	"github.com/kapu/chess-annotator-go/internal/oracle"
	"github.com/kapu/chess-annotator-go/internal/report"
	"github.com/kapu/chess-annotator-go/internal/store"
	"github.com/kapu/chess-annotator-go/pkg/reportdto"
	"go.uber.org/zap"
)

func main() {
	var (
		pgnOut     = flag.String("o", "", "write annotated PGN to this path")
		reportOut  = flag.String("r", "", "write the text report to this path (default: stdout)")
		jsonOut    = flag.String("json", "", "write the machine-readable report to this path")
		enginePath = flag.String("engine", "", "engine binary path (overrides STOCKFISH_PATH)")
		depth      = flag.Int("depth", 0, "search depth per position")
		topMoves   = flag.Int("top-moves", -1, "engine alternatives per flagged move (0 disables)")
		inaccuracy = flag.Float64("inaccuracy", 0, "inaccuracy threshold in pawns")
		mistake    = flag.Float64("mistake", 0, "mistake threshold in pawns")
		blunder    = flag.Float64("blunder", 0, "blunder threshold in pawns")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <game.pgn | URL>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer obslog.Sync()

	cfg, err := appcfg.Load()
	if *enginePath != "" {
		cfg.StockfishPath = *enginePath
		err = nil
	}
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	applyFlagOverrides(cfg, *depth, *topMoves, *inaccuracy, *mistake, *blunder)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, input, *pgnOut, *reportOut, *jsonOut); err != nil {
		obslog.L().Error("annotation failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func applyFlagOverrides(cfg *appcfg.AppConfig, depth, topMoves int, inaccuracy, mistake, blunder float64) {
	if depth > 0 {
		cfg.Depth = depth
	}
	if topMoves >= 0 {
		cfg.TopMoves = topMoves
	}
	if inaccuracy > 0 {
		cfg.InaccuracyThreshold = inaccuracy
	}
	if mistake > 0 {
		cfg.MistakeThreshold = mistake
	}
	if blunder > 0 {
		cfg.BlunderThreshold = blunder
	}
}

func run(ctx context.Context, cfg *appcfg.AppConfig, input, pgnOut, reportOut, jsonOut string) error {
	line, err := loadGame(ctx, input)
	if err != nil {
		return err
	}

	engine, err := oracle.NewEngine(oracle.Config{
		BinaryPath: cfg.StockfishPath,
		Threads:    cfg.Threads,
		HashMB:     cfg.HashMB,
		MultiPV:    cfg.TopMoves,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	sess, err := engine.Acquire(ctx)
	if err != nil {
		return err
	}
	defer sess.Release()

	var o oracle.Oracle = sess
	if cfg.RedisURL != "" {
		cache, cacheErr := evalcache.New(cfg.RedisURL, cfg.EvalCacheTTL)
		if cacheErr != nil {
			obslog.L().Warn("eval cache disabled", zap.Error(cacheErr))
		} else {
			defer cache.Close()
			o = cache.Wrap(sess)
		}
	}

	thresholds := analysis.Thresholds{
		Inaccuracy: cfg.InaccuracyThreshold,
		Mistake:    cfg.MistakeThreshold,
		Blunder:    cfg.BlunderThreshold,
	}
	annotator, err := analysis.NewAnnotator(o, analysis.Config{
		Depth:      cfg.Depth,
		Thresholds: thresholds,
		TopMoves:   cfg.TopMoves,
	})
	if err != nil {
		return err
	}

	obslog.L().Info("analysis started",
		zap.String("white", line.Tag("White", "White")),
		zap.String("black", line.Tag("Black", "Black")),
		zap.Int("plies", len(line.Plies)),
		zap.Int("depth", cfg.Depth),
	)

	res, err := annotator.Annotate(ctx, line)
	if err != nil {
		return err
	}

	cat, err := msgcat.New(cfg.ReportTemplateDir)
	if err != nil {
		return err
	}
	text, err := report.NewFormatter(cat).Render(line, res, report.Settings{
		Engine:     filepath.Base(cfg.StockfishPath),
		Depth:      cfg.Depth,
		Thresholds: thresholds,
	})
	if err != nil {
		return err
	}

	annotated := report.BuildAnnotatedPGN(line, res)
	dto := report.ToDTO(line, res)

	if err := writeOutput(reportOut, text); err != nil {
		return err
	}
	if pgnOut != "" {
		if err := os.WriteFile(pgnOut, []byte(annotated), 0o644); err != nil {
			return fmt.Errorf("write annotated pgn: %w", err)
		}
	}
	if jsonOut != "" {
		payload, jsonErr := json.MarshalIndent(dto, "", "  ")
		if jsonErr != nil {
			return fmt.Errorf("marshal report: %w", jsonErr)
		}
		if err := os.WriteFile(jsonOut, payload, 0o644); err != nil {
			return fmt.Errorf("write json report: %w", err)
		}
	}

	if cfg.DatabaseURL != "" {
		if err := persistRun(ctx, cfg, line, dto, annotated); err != nil {
			obslog.L().Warn("run not persisted", zap.Error(err))
		}
	}
	return nil
}

func loadGame(ctx context.Context, input string) (*mainline.Line, error) {
	if fetch.IsURL(input) {
		pgn, err := fetch.NewClient().PGN(ctx, input)
		if err != nil {
			return nil, err
		}
		return mainline.Load(strings.NewReader(pgn))
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("open pgn: %w", err)
	}
	defer f.Close()
	return mainline.Load(f)
}

func writeOutput(path, text string) error {
	if path == "" {
		fmt.Print(text)
		return nil
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func persistRun(ctx context.Context, cfg *appcfg.AppConfig, line *mainline.Line, dto *reportdto.GameReport, annotated string) error {
	repo, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer repo.Close()

	id, err := repo.InsertRun(ctx, &store.Run{
		White:        line.Tag("White", "White"),
		Black:        line.Tag("Black", "Black"),
		Event:        line.Tag("Event", ""),
		Engine:       filepath.Base(cfg.StockfishPath),
		Depth:        cfg.Depth,
		Report:       dto,
		AnnotatedPGN: annotated,
	})
	if err != nil {
		return err
	}
	obslog.L().Info("run persisted", zap.String("run_id", id))
	return nil
}
