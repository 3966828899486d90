// Package checkpoint persists search progress in SQLite so an interrupted
// search resumes from its last completed trial.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/thalesfsp/hoselect"
)

const schema = `
CREATE TABLE IF NOT EXISTS searches (
	search_key  TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	elapsed_ns  INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trials (
	search_key  TEXT NOT NULL,
	trial       INTEGER NOT NULL,
	result_json TEXT NOT NULL,
	PRIMARY KEY (search_key, trial),
	FOREIGN KEY (search_key) REFERENCES searches(search_key)
);
`

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a hoselect.Checkpointer backed by a SQLite file.
type Store struct {
	db    *sql.DB
	runID string
}

var _ hoselect.Checkpointer = (*Store)(nil)

// Open opens or creates the database at path. Every save made through the
// returned Store is attributed to a fresh run ID.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db, runID: uuid.New().String()}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunID identifies this Store's writes.
func (s *Store) RunID() string { return s.runID }

// Load implements hoselect.Checkpointer.
func (s *Store) Load(ctx context.Context, key string) (*hoselect.SearchState, error) {
	var elapsed int64
	err := s.db.QueryRowContext(ctx,
		`SELECT elapsed_ns FROM searches WHERE search_key = ?`, key,
	).Scan(&elapsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query search: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT trial, result_json FROM trials WHERE search_key = ? ORDER BY trial`, key,
	)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	state := &hoselect.SearchState{Elapsed: time.Duration(elapsed)}
	for rows.Next() {
		var (
			trial int
			raw   string
		)
		if err := rows.Scan(&trial, &raw); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		if trial != len(state.Trials) {
			return nil, fmt.Errorf("checkpoint %s: trial %d missing", key, len(state.Trials))
		}

		var res hoselect.TrialResult
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			return nil, fmt.Errorf("decode trial %d: %w", trial, err)
		}
		state.Trials = append(state.Trials, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}

	return state, nil
}

// Save implements hoselect.Checkpointer. The stored state is replaced
// atomically.
func (s *Store) Save(ctx context.Context, key string, state hoselect.SearchState) error {
	now := time.Now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO searches (search_key, run_id, elapsed_ns, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(search_key) DO UPDATE SET
		 	run_id = excluded.run_id,
		 	elapsed_ns = excluded.elapsed_ns,
		 	updated_at = excluded.updated_at`,
		key, s.runID, int64(state.Elapsed), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert search: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM trials WHERE search_key = ? AND trial >= ?`, key, len(state.Trials),
	); err != nil {
		return fmt.Errorf("trim trials: %w", err)
	}

	for i, res := range state.Trials {
		raw, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("encode trial %d: %w", i, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO trials (search_key, trial, result_json) VALUES (?, ?, ?)
			 ON CONFLICT(search_key, trial) DO UPDATE SET result_json = excluded.result_json`,
			key, i, string(raw),
		)
		if err != nil {
			return fmt.Errorf("insert trial %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Search summarises one stored search.
type Search struct {
	Key       string        `json:"key"`
	RunID     string        `json:"run_id"`
	Trials    int           `json:"trials"`
	Elapsed   time.Duration `json:"elapsed"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// List returns every stored search, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Search, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.search_key, s.run_id, s.elapsed_ns, s.updated_at, COUNT(t.trial)
		 FROM searches s LEFT JOIN trials t ON t.search_key = s.search_key
		 GROUP BY s.search_key
		 ORDER BY s.updated_at DESC, s.search_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("query searches: %w", err)
	}
	defer rows.Close()

	var out []Search
	for rows.Next() {
		var (
			sr      Search
			elapsed int64
			updated string
		)
		if err := rows.Scan(&sr.Key, &sr.RunID, &elapsed, &updated, &sr.Trials); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}

		sr.Elapsed = time.Duration(elapsed)
		if sr.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at of %s: %w", sr.Key, err)
		}
		out = append(out, sr)
	}

	return out, rows.Err()
}

// Delete removes a stored search and its trials.
func (s *Store) Delete(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trials WHERE search_key = ?`, key); err != nil {
		return fmt.Errorf("delete trials: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM searches WHERE search_key = ?`, key); err != nil {
		return fmt.Errorf("delete search: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}
