package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS observations (
	day INTEGER PRIMARY KEY,
	demand REAL NOT NULL,
	covariates TEXT,
	holiday INTEGER
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	model TEXT NOT NULL,
	created INTEGER NOT NULL,
	rolling TEXT,
	bounded INTEGER NOT NULL,
	metrics TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_model_created ON runs (model, created);

CREATE TABLE IF NOT EXISTS run_points (
	run_id TEXT NOT NULL,
	day INTEGER NOT NULL,
	value REAL NOT NULL,
	lower REAL NOT NULL,
	upper REAL NOT NULL,
	PRIMARY KEY (run_id, day)
);`

// SQLite persists the store in a single database file
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path and ensures the schema
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database, %w", err)
	}
	// serialize writers on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			slog.Warn("unable to close sqlite database", "path", path, "error", cerr)
		}
		return nil, fmt.Errorf("unable to create schema, %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveObservations(ctx context.Context, recs []dataset.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction, %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO observations (day, demand, covariates, holiday)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			demand = excluded.demand,
			covariates = excluded.covariates,
			holiday = excluded.holiday`)
	if err != nil {
		return fmt.Errorf("unable to prepare insert, %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range recs {
		var covariates []byte
		if len(rec.Covariates) > 0 {
			if covariates, err = json.Marshal(rec.Covariates); err != nil {
				return fmt.Errorf("unable to encode covariates of %s, %w", rec.Date.Format(time.DateOnly), err)
			}
		}
		var holiday sql.NullInt64
		if rec.Holiday != nil {
			holiday.Valid = true
			if *rec.Holiday {
				holiday.Int64 = 1
			}
		}
		if _, err := stmt.ExecContext(ctx, rec.Date.Unix(), rec.Demand, nullString(covariates), holiday); err != nil {
			return fmt.Errorf("unable to write observation %s, %w", rec.Date.Format(time.DateOnly), err)
		}
	}
	return tx.Commit()
}

func nullString(b []byte) sql.NullString {
	return sql.NullString{String: string(b), Valid: b != nil}
}

func (s *SQLite) Observations(ctx context.Context) ([]dataset.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day, demand, covariates, holiday FROM observations ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("unable to query observations, %w", err)
	}
	defer func() { _ = rows.Close() }()

	var res []dataset.Record
	for rows.Next() {
		var day int64
		var rec dataset.Record
		var covariates sql.NullString
		var holiday sql.NullInt64
		if err := rows.Scan(&day, &rec.Demand, &covariates, &holiday); err != nil {
			return nil, err
		}
		rec.Date = time.Unix(day, 0).UTC()
		if covariates.Valid {
			if err := json.Unmarshal([]byte(covariates.String), &rec.Covariates); err != nil {
				return nil, fmt.Errorf("unmarshal covariates: %w", err)
			}
		}
		if holiday.Valid {
			h := holiday.Int64 == 1
			rec.Holiday = &h
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SQLite) SaveRun(ctx context.Context, run *Run) error {
	if run.Model == "" {
		return ErrNoModel
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("unable to encode run metrics, %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction, %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, model, created, rolling, bounded, metrics) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Model, run.Created.UnixNano(), run.Rolling, run.Bounded, string(metrics),
	); err != nil {
		return fmt.Errorf("unable to write run %s, %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_points (run_id, day, value, lower, upper) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("unable to prepare insert, %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, p := range run.Points {
		if _, err := stmt.ExecContext(ctx, run.ID.String(), p.Date.Unix(), p.Value, p.Lower, p.Upper); err != nil {
			return fmt.Errorf("unable to write point %s, %w", p.Date.Format(time.DateOnly), err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) LatestRun(ctx context.Context, model string) (*Run, error) {
	var id, metrics string
	var created int64
	var rolling sql.NullString
	run := &Run{Model: model}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created, rolling, bounded, metrics FROM runs
		WHERE model = ? ORDER BY created DESC, rowid DESC LIMIT 1`, model,
	).Scan(&id, &created, &rolling, &run.Bounded, &metrics)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query latest %s run, %w", model, err)
	}

	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid run id %q, %w", id, err)
	}
	run.Created = time.Unix(0, created).UTC()
	run.Rolling = rolling.String
	if err := json.Unmarshal([]byte(metrics), &run.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT day, value, lower, upper FROM run_points WHERE run_id = ? ORDER BY day`, id)
	if err != nil {
		return nil, fmt.Errorf("unable to query run points, %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var day int64
		var p Point
		if err := rows.Scan(&day, &p.Value, &p.Lower, &p.Upper); err != nil {
			return nil, err
		}
		p.Date = time.Unix(day, 0).UTC()
		run.Points = append(run.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return run, nil
}

// Close closes the underlying database
func (s *SQLite) Close() error { return s.db.Close() }
