// Package history persists per-user calculation history in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is a single history record.
type Entry struct {
	ID         int64
	UserID     int64
	Expression string
	Result     string
	Time       time.Time
	Type       string // calc, convert, price, unit, loan, days...
}

// Formatted renders the entry for display.
func (e Entry) Formatted() string {
	return fmt.Sprintf("%s = %s", e.Expression, e.Result)
}

// Stats summarizes a user's history.
type Stats struct {
	Total    int64
	FirstUse time.Time
	LastUse  time.Time
	ByType   map[string]int64
}

// Store keeps per-user history entries, pruning old ones past a limit.
type Store struct {
	db    *sql.DB
	limit int
}

// Open opens (creating if needed) the history database at path. Entries past
// limit per user are pruned lazily on Add.
func Open(ctx context.Context, path string, limit int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			expression TEXT NOT NULL,
			result TEXT NOT NULL,
			timestamp REAL NOT NULL,
			entry_type TEXT DEFAULT 'calc'
		);
		CREATE INDEX IF NOT EXISTS idx_history_user_id ON history(user_id);
		CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp DESC);
	`); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, limit: limit}, nil
}

// Add appends an entry to the user's history and returns its ID. When a
// user's history grows past twice the limit, the oldest entries beyond the
// limit are pruned.
func (s *Store) Add(ctx context.Context, userID int64, expression, result, entryType string) (int64, error) {
	if entryType == "" {
		entryType = "calc"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO history (user_id, expression, result, timestamp, entry_type)
		VALUES (?, ?, ?, ?, ?);
	`, userID, expression, result, float64(time.Now().UnixNano())/1e9, entryType)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := s.prune(ctx, userID); err != nil {
		return 0, err
	}
	return id, nil
}

// prune deletes a user's oldest entries, but only once they are well past
// the limit, so that most Adds don't pay for a DELETE.
func (s *Store) prune(ctx context.Context, userID int64) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM history WHERE user_id = ?;
	`, userID).Scan(&count); err != nil {
		return err
	}
	if count <= s.limit*2 {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM history
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM history
			WHERE user_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		);
	`, userID, userID, s.limit)
	return err
}

// List returns up to limit entries for a user, newest first. If limit is 0,
// the store's configured limit is used. A non-empty entryType filters by
// type.
func (s *Store) List(ctx context.Context, userID int64, limit int, entryType string) ([]Entry, error) {
	if limit <= 0 {
		limit = s.limit
	}

	query := `
		SELECT id, user_id, expression, result, timestamp, entry_type
		FROM history
		WHERE user_id = ?`
	args := []any{userID}
	if entryType != "" {
		query += ` AND entry_type = ?`
		args = append(args, entryType)
	}
	query += `
		ORDER BY timestamp DESC, id DESC
		LIMIT ?;`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ts float64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Expression, &e.Result, &ts, &e.Type); err != nil {
			return nil, err
		}
		e.Time = time.UnixMilli(int64(ts * 1000))
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear deletes all history for a user and reports how many entries were
// removed.
func (s *Store) Clear(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE user_id = ?;`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats returns usage statistics for a user.
func (s *Store) Stats(ctx context.Context, userID int64) (Stats, error) {
	var (
		st          Stats
		first, last sql.NullFloat64
	)
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM history WHERE user_id = ?;
	`, userID).Scan(&st.Total, &first, &last); err != nil {
		return Stats{}, err
	}
	if first.Valid {
		st.FirstUse = time.UnixMilli(int64(first.Float64 * 1000))
	}
	if last.Valid {
		st.LastUse = time.UnixMilli(int64(last.Float64 * 1000))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_type, COUNT(*)
		FROM history WHERE user_id = ?
		GROUP BY entry_type;
	`, userID)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	st.ByType = make(map[string]int64)
	for rows.Next() {
		var (
			typ string
			cnt int64
		)
		if err := rows.Scan(&typ, &cnt); err != nil {
			return Stats{}, err
		}
		st.ByType[typ] = cnt
	}
	return st, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }
