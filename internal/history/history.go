// Package history persists SmartList selection events in SQLite so usage
// frequencies survive restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/smartscribe/internal/catalog"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS selections (
	id         TEXT PRIMARY KEY,
	list_id    TEXT NOT NULL,
	value      TEXT NOT NULL,
	context    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_selections_list ON selections(list_id);
`

// DB stores selection events.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies catalog.HistoryStore at compile time.
var _ catalog.HistoryStore = (*DB)(nil)

const pragmas = "_journal_mode=WAL&_busy_timeout=5000"

// withPragmas appends the connection pragmas, keeping any query the DSN
// already carries.
func withPragmas(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + pragmas
	}
	return dsn + "?" + pragmas
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Append inserts one event.
func (db *DB) Append(ctx context.Context, ev catalog.SelectionEvent) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO selections (id, list_id, value, context, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, ev.ID.String(), ev.ListID, ev.Value, ev.Context, ev.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// Load returns every event in recording order.
func (db *DB) Load(ctx context.Context) ([]catalog.SelectionEvent, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, list_id, value, context, created_at
		FROM selections
		ORDER BY created_at, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("history: load: %w", err)
	}
	defer rows.Close()

	var out []catalog.SelectionEvent
	for rows.Next() {
		var (
			ev catalog.SelectionEvent
			id string
			at time.Time
		)
		if err := rows.Scan(&id, &ev.ListID, &ev.Value, &ev.Context, &at); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("history: bad event id %q: %w", id, err)
		}
		ev.ID = parsed
		ev.Timestamp = at.UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Counts returns the number of recorded selections per value for one list.
func (db *DB) Counts(ctx context.Context, listID string) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT value, count(*) FROM selections WHERE list_id = ? GROUP BY value
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("history: counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var v string
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return nil, err
		}
		out[v] = n
	}
	return out, rows.Err()
}
