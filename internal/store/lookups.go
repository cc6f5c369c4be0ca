package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Lookup is one finished resolution or search, kept for the history view.
type Lookup struct {
	ID        int64           `json:"id"`
	Kind      string          `json:"kind"` // identifier | address | search
	Query     string          `json:"query"`
	Source    string          `json:"source"`
	Matched   bool            `json:"matched"`
	Score     int             `json:"score"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt string          `json:"createdAt"`
}

type ListLookupsOpts struct {
	Kind   string // identifier | address | search | "" for all
	Window string // 24h | 7d | all
	Limit  int
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS lookups (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  kind TEXT NOT NULL,
  query TEXT NOT NULL,
  source TEXT NOT NULL DEFAULT '',
  matched INTEGER NOT NULL DEFAULT 0,
  score INTEGER NOT NULL DEFAULT 0,
  result TEXT NOT NULL DEFAULT 'null',
  created_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS documents (
  key TEXT PRIMARY KEY,
  url TEXT NOT NULL,
  body TEXT NOT NULL,
  fetched_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	// ---- Schema v1: indexes ----

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_lookups_created_at
ON lookups(created_at);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_lookups_kind
ON lookups(kind);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

func InsertLookup(ctx context.Context, db *sql.DB, l Lookup) (int64, error) {
	result := l.Result
	if result == nil {
		result = json.RawMessage("null")
	}
	created := l.CreatedAt
	if created == "" {
		created = time.Now().UTC().Format(time.RFC3339)
	}
	res, err := db.ExecContext(ctx, `
INSERT INTO lookups(kind, query, source, matched, score, result, created_at)
VALUES(?,?,?,?,?,?,?);`,
		l.Kind, l.Query, l.Source, boolInt(l.Matched), l.Score, string(result), created)
	if err != nil {
		return 0, fmt.Errorf("insert lookup: %w", err)
	}
	return res.LastInsertId()
}

func ListLookups(ctx context.Context, db *sql.DB, opts ListLookupsOpts) ([]Lookup, error) {
	if opts.Window == "" {
		opts.Window = "7d"
	}
	if opts.Limit <= 0 || opts.Limit > 2000 {
		opts.Limit = 200
	}

	where := ""
	switch opts.Window {
	case "24h":
		where = "WHERE created_at >= datetime('now','-24 hours')"
	case "all":
		// no filter
	default:
		where = "WHERE created_at >= datetime('now','-7 days')"
	}
	args := []any{}
	switch {
	case opts.Kind != "" && where == "":
		where = "WHERE kind = ?"
		args = append(args, opts.Kind)
	case opts.Kind != "":
		where += " AND kind = ?"
		args = append(args, opts.Kind)
	}
	args = append(args, opts.Limit)

	query := fmt.Sprintf(`
SELECT id, kind, query, source, matched, score, result, created_at
FROM lookups
%s
ORDER BY created_at DESC, id DESC
LIMIT ?;
`, where)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lookup
	for rows.Next() {
		var l Lookup
		var matched int
		var result string
		if err := rows.Scan(&l.ID, &l.Kind, &l.Query, &l.Source, &matched, &l.Score, &result, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Matched = matched != 0
		if result != "" && result != "null" {
			l.Result = json.RawMessage(result)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func CleanupOldLookups(db *sql.DB) (deleted int64, err error) {
	res, err := db.Exec(`
DELETE FROM lookups
WHERE created_at < datetime('now', '-3 months');
`)
	if err != nil {
		return 0, fmt.Errorf("cleanup old lookups: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
