// Package store persists a run's merged table, model metrics and drop
// counts in a SQLite database for ad hoc querying.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "countyvote/internal/errors"
	"countyvote/internal/exporter"
)

const dropTables = `
DROP TABLE IF EXISTS merged_records;
DROP TABLE IF EXISTS model_metrics;
DROP TABLE IF EXISTS drops;
DROP TABLE IF EXISTS runs;
`

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	candidate  TEXT NOT NULL,
	seed       INTEGER NOT NULL,
	started_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS merged_records (
	state     TEXT NOT NULL,
	county    TEXT NOT NULL,
	fips      TEXT NOT NULL,
	candidate TEXT NOT NULL,
	votes     INTEGER NOT NULL,
	rank      INTEGER NOT NULL,
	share     REAL NOT NULL,
	total_pop REAL NOT NULL,
	tracts    INTEGER NOT NULL,
	income    REAL NOT NULL,
	white     REAL NOT NULL,
	minority  REAL NOT NULL,
	PRIMARY KEY (state, county, rank)
);
CREATE INDEX IF NOT EXISTS idx_merged_candidate ON merged_records(candidate);

CREATE TABLE IF NOT EXISTS model_metrics (
	model  TEXT NOT NULL,
	metric TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (model, metric)
);

CREATE TABLE IF NOT EXISTS drops (
	stage  TEXT NOT NULL,
	reason TEXT NOT NULL,
	count  INTEGER NOT NULL,
	PRIMARY KEY (stage, reason)
);
`

// Store is a SQLite database holding the latest run
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path. Existing tables and rows
// are kept.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open database", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to initialize schema", err)
	}
	return &Store{db: db, path: path}, nil
}

// Create opens the database at path and empties it for a new run
func Create(ctx context.Context, path string) (*Store, error) {
	s, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := s.Reset(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Reset drops every table and recreates the schema
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, dropTables+schema); err != nil {
		return apperrors.NewStorageError("failed to reset schema", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// SaveReport writes the run, the merged table, model metrics and drop
// counts in a single transaction.
func (s *Store) SaveReport(ctx context.Context, r *exporter.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	started := r.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, candidate, seed, started_at) VALUES (?, ?, ?, ?)`,
		r.RunID, r.Candidate, r.Seed, started.UTC().Format(time.RFC3339)); err != nil {
		return apperrors.NewStorageError("failed to insert run", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO merged_records
		(state, county, fips, candidate, votes, rank, share, total_pop, tracts, income, white, minority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.NewStorageError("failed to prepare insert", err)
	}
	defer stmt.Close()
	for _, m := range r.Merged {
		if _, err := stmt.ExecContext(ctx,
			m.Key.State, m.Key.County, m.FIPS, m.Candidate, m.Votes, m.Rank, m.Share,
			m.Census.TotalPop, m.Census.Tracts, m.Census.Income, m.Census.White, m.Census.Minority); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to insert %s", m.Key), err)
		}
	}

	for _, metric := range Metrics(r) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO model_metrics (model, metric, value) VALUES (?, ?, ?)`,
			metric.Model, metric.Name, metric.Value); err != nil {
			return apperrors.NewStorageError("failed to insert metric", err)
		}
	}

	for _, d := range r.Diagnostics.Drops {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO drops (stage, reason, count) VALUES (?, ?, ?)`,
			d.Stage, d.Reason, d.Count); err != nil {
			return apperrors.NewStorageError("failed to insert drop", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("failed to commit", err)
	}
	return nil
}

// Metric is one headline number of a fitted model
type Metric struct {
	Model string
	Name  string
	Value float64
}

// Metrics flattens the headline numbers of every fitted model in r
func Metrics(r *exporter.Report) []Metric {
	var out []Metric
	add := func(model, name string, v float64) {
		out = append(out, Metric{Model: model, Name: name, Value: v})
	}
	if l := r.Linear; l != nil {
		add("linear", "train_r2", l.TrainR2)
		add("linear", "test_rmse", l.TestRMSE)
		add("linear", "actual_wins", float64(l.ActualWins))
		add("linear", "predicted_wins", float64(l.PredictedWins))
		add("linear", "agreement", l.Agreement)
	}
	if l := r.Logistic; l != nil {
		add("logistic", "auc", l.AUC)
		add("logistic", "accuracy", l.Default.Accuracy)
		add("logistic", "optimal_threshold", l.Optimal.Threshold)
		add("logistic", "optimal_accuracy", l.Optimal.Accuracy)
		add("logistic", "iterations", float64(l.Iterations))
	}
	if f := r.Forest; f != nil {
		add("forest", "oob_error", f.OOBError)
		add("forest", "test_error", f.TestError)
	}
	if b := r.Boost; b != nil {
		add("boost", "best_trees", float64(b.BestTrees))
		add("boost", "test_accuracy", b.Test.Accuracy)
	}
	if k := r.KMeans; k != nil {
		add("kmeans", "k", float64(k.K))
		add("kmeans", "inertia", k.Inertia)
	}
	return out
}

// CandidateWins returns how many counties each candidate won
func (s *Store) CandidateWins(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate, COUNT(*) FROM merged_records WHERE rank = 1 GROUP BY candidate`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query wins", err)
	}
	defer rows.Close()

	wins := make(map[string]int)
	for rows.Next() {
		var candidate string
		var n int
		if err := rows.Scan(&candidate, &n); err != nil {
			return nil, apperrors.NewStorageError("failed to scan wins", err)
		}
		wins[candidate] = n
	}
	return wins, rows.Err()
}

// MetricValue returns one stored model metric
func (s *Store) MetricValue(ctx context.Context, model, metric string) (float64, error) {
	var v float64
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM model_metrics WHERE model = ? AND metric = ?`, model, metric).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("metric %s/%s", model, metric))
	}
	if err != nil {
		return 0, apperrors.NewStorageError("failed to query metric", err)
	}
	return v, nil
}
