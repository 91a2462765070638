package recording

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vango-dev/nativebridge/internal/errors"
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	session  TEXT    NOT NULL,
	seq      INTEGER NOT NULL,
	time     TEXT    NOT NULL,
	kind     TEXT    NOT NULL,
	accepted INTEGER NOT NULL DEFAULT 0,
	payload  BLOB,
	PRIMARY KEY (session, seq)
)`

// SQLiteSink stores entries in a SQLite database, one row per entry.
type SQLiteSink struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// OpenSQLite opens (or creates) the database at path with WAL
// journaling and a busy timeout.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New("B061").Wrap(err).WithDetailf("open sqlite %s", path)
	}
	// One connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	for _, q := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		schema,
	} {
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			return nil, errors.New("B061").Wrap(err).WithDetailf("prepare sqlite %s", path)
		}
	}
	stmt, err := db.PrepareContext(ctx,
		`INSERT INTO entries (session, seq, time, kind, accepted, payload) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, errors.New("B061").Wrap(err)
	}
	return &SQLiteSink{db: db, stmt: stmt}, nil
}

// DB returns the underlying database.
func (s *SQLiteSink) DB() *sql.DB { return s.db }

// Write inserts e.
func (s *SQLiteSink) Write(e Entry) error {
	_, err := s.stmt.Exec(e.Session, e.Seq, e.Time.UTC().Format(time.RFC3339Nano), string(e.Kind), e.Accepted, []byte(e.Payload))
	if err != nil {
		return errors.New("B061").Wrap(err).WithDetailf("insert %s entry %d", e.Kind, e.Seq)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	_ = s.stmt.Close()
	return s.db.Close()
}

// Sessions returns the recorded session ids, oldest first.
func (s *SQLiteSink) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session FROM entries GROUP BY session ORDER BY MIN(time), session`)
	if err != nil {
		return nil, errors.New("B060").Wrap(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.New("B060").Wrap(err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Entries returns the entries of session in sequence order.
func (s *SQLiteSink) Entries(ctx context.Context, session string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, time, kind, accepted, payload FROM entries WHERE session = ? ORDER BY seq`, session)
	if err != nil {
		return nil, errors.New("B060").Wrap(err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       = Entry{Session: session}
			ts      string
			kind    string
			payload []byte
		)
		if err := rows.Scan(&e.Seq, &ts, &kind, &e.Accepted, &payload); err != nil {
			return nil, errors.New("B060").Wrap(err)
		}
		e.Time, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, decodeError(e, err)
		}
		e.Kind = Kind(kind)
		if len(payload) > 0 {
			e.Payload = payload
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New("B060").Wrap(err)
	}
	return entries, nil
}
