package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS extraction_runs (
    id           TEXT PRIMARY KEY,
    filename     TEXT NOT NULL,
    status       TEXT NOT NULL,
    model        TEXT NOT NULL,
    record       TEXT,
    summary      TEXT,
    error_kind   TEXT NOT NULL DEFAULT '',
    error_detail TEXT NOT NULL DEFAULT '',
    degraded     TEXT NOT NULL DEFAULT '[]',
    elapsed_ms   INTEGER NOT NULL,
    created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS extraction_runs_created_at_idx ON extraction_runs (created_at DESC);`

// fixed width so that text ordering matches time ordering
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteColumns = `id, filename, status, model, record, summary, error_kind, error_detail, degraded, elapsed_ms, created_at`

type sqliteRepo struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenSQLite opens an embedded store. An empty DSN or ":memory:" gives a
// private in-memory database.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (ExtractionRepository, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &sqliteRepo{db: db, log: logger}, nil
}

func (r *sqliteRepo) Save(ctx context.Context, run ExtractionRun) error {
	degraded := run.Degraded
	if degraded == nil {
		degraded = []string{}
	}
	deg, err := json.Marshal(degraded)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO extraction_runs (`+sqliteColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    status = excluded.status, model = excluded.model, record = excluded.record, summary = excluded.summary,
    error_kind = excluded.error_kind, error_detail = excluded.error_detail, degraded = excluded.degraded,
    elapsed_ms = excluded.elapsed_ms`,
		run.ID.String(), run.Filename, string(run.Status), run.Model,
		nullableText(run.Record), nullableText(run.Summary),
		run.ErrorKind, run.ErrorDetail, string(deg), run.ElapsedMS,
		run.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		r.log.Error("extraction_run save failed", "run_id", run.ID, "err", err)
		return err
	}
	r.log.Info("extraction_run saved", "run_id", run.ID, "status", run.Status)
	return nil
}

func (r *sqliteRepo) Get(ctx context.Context, id uuid.UUID) (*ExtractionRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM extraction_runs WHERE id = ?`, id.String())
	run, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *sqliteRepo) List(ctx context.Context, limit int) ([]ExtractionRun, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sqliteColumns+` FROM extraction_runs ORDER BY created_at DESC LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExtractionRun
	for rows.Next() {
		run, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func (r *sqliteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *sqliteRepo) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row scanner) (*ExtractionRun, error) {
	var (
		run             ExtractionRun
		id, status, deg string
		created         string
		rec, sum        sql.NullString
	)
	if err := row.Scan(&id, &run.Filename, &status, &run.Model, &rec, &sum,
		&run.ErrorKind, &run.ErrorDetail, &deg, &run.ElapsedMS, &created); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad run id %q: %w", id, err)
	}
	run.ID = parsed
	run.Status = constants.RunStatus(status)
	if rec.Valid {
		run.Record = json.RawMessage(rec.String)
	}
	if sum.Valid {
		run.Summary = json.RawMessage(sum.String)
	}
	if err := json.Unmarshal([]byte(deg), &run.Degraded); err != nil {
		return nil, fmt.Errorf("decode degraded: %w", err)
	}
	if len(run.Degraded) == 0 {
		run.Degraded = nil
	}
	if run.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	return &run, nil
}

func nullableText(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
