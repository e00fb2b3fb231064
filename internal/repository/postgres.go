package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS extraction_runs (
    id           UUID PRIMARY KEY,
    filename     TEXT NOT NULL,
    status       TEXT NOT NULL,
    model        TEXT NOT NULL,
    record       JSONB,
    summary      JSONB,
    error_kind   TEXT NOT NULL DEFAULT '',
    error_detail TEXT NOT NULL DEFAULT '',
    degraded     TEXT[] NOT NULL DEFAULT '{}',
    elapsed_ms   BIGINT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS extraction_runs_created_at_idx ON extraction_runs (created_at DESC);`

const postgresColumns = `id::text, filename, status, model, COALESCE(record::text, ''), COALESCE(summary::text, ''), error_kind, error_detail, degraded, elapsed_ms, created_at`

type pgRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// OpenPostgres creates a pgx pool and applies the runs schema.
func OpenPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (ExtractionRepository, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "marksheet-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if _, err := pool.Exec(dialCtx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &pgRepo{pool: pool, log: logger}, nil
}

func (r *pgRepo) Save(ctx context.Context, run ExtractionRun) error {
	degraded := run.Degraded
	if degraded == nil {
		degraded = []string{}
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO extraction_runs (id, filename, status, model, record, summary, error_kind, error_detail, degraded, elapsed_ms, created_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status, model = EXCLUDED.model, record = EXCLUDED.record, summary = EXCLUDED.summary,
    error_kind = EXCLUDED.error_kind, error_detail = EXCLUDED.error_detail, degraded = EXCLUDED.degraded,
    elapsed_ms = EXCLUDED.elapsed_ms`,
		run.ID.String(), run.Filename, string(run.Status), run.Model,
		nullableJSON(run.Record), nullableJSON(run.Summary),
		run.ErrorKind, run.ErrorDetail, degraded, run.ElapsedMS, run.CreatedAt,
	)
	if err != nil {
		r.log.Error("extraction_run save failed", "run_id", run.ID, "err", err)
		return err
	}
	r.log.Info("extraction_run saved", "run_id", run.ID, "status", run.Status)
	return nil
}

func (r *pgRepo) Get(ctx context.Context, id uuid.UUID) (*ExtractionRun, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+postgresColumns+` FROM extraction_runs WHERE id = $1::uuid`, id.String())
	run, err := scanPG(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *pgRepo) List(ctx context.Context, limit int) ([]ExtractionRun, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+postgresColumns+` FROM extraction_runs ORDER BY created_at DESC LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExtractionRun
	for rows.Next() {
		run, err := scanPG(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func (r *pgRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *pgRepo) Close() error {
	r.pool.Close()
	return nil
}

func scanPG(row pgx.Row) (*ExtractionRun, error) {
	var (
		run      ExtractionRun
		id       string
		status   string
		rec, sum string
	)
	if err := row.Scan(&id, &run.Filename, &status, &run.Model, &rec, &sum,
		&run.ErrorKind, &run.ErrorDetail, &run.Degraded, &run.ElapsedMS, &run.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad run id %q: %w", id, err)
	}
	run.ID = parsed
	run.Status = constants.RunStatus(status)
	if rec != "" {
		run.Record = json.RawMessage(rec)
	}
	if sum != "" {
		run.Summary = json.RawMessage(sum)
	}
	if len(run.Degraded) == 0 {
		run.Degraded = nil
	}
	return &run, nil
}
