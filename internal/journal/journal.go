// Package journal keeps an append-only history of pipeline runs in SQLite.
// It is a record for operators; installation state is never read back from
// it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS transitions(
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL,
	command TEXT NOT NULL,
	flavor  TEXT NOT NULL DEFAULT '',
	from_state TEXT NOT NULL DEFAULT '',
	to_state   TEXT NOT NULL DEFAULT '',
	detail  TEXT NOT NULL DEFAULT '',
	error   TEXT NOT NULL DEFAULT '',
	ts      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_run ON transitions(run_id);`

// Entry is one recorded step.
type Entry struct {
	ID      int64     `json:"id"`
	RunID   string    `json:"run_id"`
	Command string    `json:"command"`
	Flavor  string    `json:"flavor,omitempty"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

type Journal struct {
	db  *sql.DB
	Now func() time.Time
}

// NewRunID returns an identifier shared by every entry of one invocation.
func NewRunID() string {
	return uuid.NewString()
}

// Open creates the database and its directory when missing.
func Open(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db, Now: time.Now}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends e. A zero At is stamped with the current time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = j.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO transitions(run_id, command, flavor, from_state, to_state, detail, error, ts) VALUES(?,?,?,?,?,?,?,?)`,
		e.RunID, e.Command, e.Flavor, e.From, e.To, e.Detail, e.Error, e.At.UnixNano())
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// List returns the most recent entries, oldest first. limit <= 0 returns
// everything.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id, run_id, command, flavor, from_state, to_state, detail, error, ts FROM transitions ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Command, &e.Flavor, &e.From, &e.To, &e.Detail, &e.Error, &ts); err != nil {
			return nil, fmt.Errorf("journal: list: %w", err)
		}
		e.At = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}
