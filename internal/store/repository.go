// Package store persists annotation runs to Postgres so earlier analyses of
// the same game can be pulled back without re-running the engine.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/kapu/chess-annotator-go/pkg/reportdto"
)

// Run is one persisted annotation run.
type Run struct {
	ID           string
	White        string
	Black        string
	Event        string
	Engine       string
	Depth        int
	Report       *reportdto.GameReport
	AnnotatedPGN string
	CreatedAt    time.Time
}

type Repository interface {
	InsertRun(ctx context.Context, run *Run) (string, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRecentRuns(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}

type repository struct {
	db *sql.DB
}

// Open connects to Postgres and makes sure the runs table exists.
func Open(ctx context.Context, databaseURL string) (Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &repository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *repository) ensureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS annotation_runs (
			id            UUID PRIMARY KEY,
			white         TEXT NOT NULL,
			black         TEXT NOT NULL,
			event         TEXT NOT NULL DEFAULT '',
			engine        TEXT NOT NULL,
			depth         INT NOT NULL,
			report        JSONB NOT NULL,
			annotated_pgn TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure annotation_runs schema: %w", err)
	}
	return nil
}

func (r *repository) InsertRun(ctx context.Context, run *Run) (string, error) {
	if run == nil || run.Report == nil {
		return "", fmt.Errorf("nil annotation run payload")
	}

	report, err := json.Marshal(run.Report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	id := run.ID
	if id == "" {
		id = uuid.NewString()
	}

	const query = `
		INSERT INTO annotation_runs (
			id,
			white,
			black,
			event,
			engine,
			depth,
			report,
			annotated_pgn
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)`

	_, err = r.db.ExecContext(
		ctx,
		query,
		id,
		run.White,
		run.Black,
		run.Event,
		run.Engine,
		run.Depth,
		report,
		run.AnnotatedPGN,
	)
	if err != nil {
		return "", fmt.Errorf("insert annotation run: %w", err)
	}
	return id, nil
}

func (r *repository) GetRun(ctx context.Context, id string) (*Run, error) {
	const query = `
		SELECT
			id,
			white,
			black,
			event,
			engine,
			depth,
			report,
			annotated_pgn,
			created_at
		FROM annotation_runs
		WHERE id = $1`

	var (
		run        Run
		reportJSON []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.White,
		&run.Black,
		&run.Event,
		&run.Engine,
		&run.Depth,
		&reportJSON,
		&run.AnnotatedPGN,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select annotation run: %w", err)
	}
	if err := json.Unmarshal(reportJSON, &run.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &run, nil
}

func (r *repository) ListRecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT
			id,
			white,
			black,
			event,
			engine,
			depth,
			report,
			annotated_pgn,
			created_at
		FROM annotation_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select annotation runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0, limit)
	for rows.Next() {
		var (
			run        Run
			reportJSON []byte
		)
		if err := rows.Scan(
			&run.ID,
			&run.White,
			&run.Black,
			&run.Event,
			&run.Engine,
			&run.Depth,
			&reportJSON,
			&run.AnnotatedPGN,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan annotation run: %w", err)
		}
		if err := json.Unmarshal(reportJSON, &run.Report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (r *repository) Close() error {
	return r.db.Close()
}
