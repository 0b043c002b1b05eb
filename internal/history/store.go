// Package history persists the append-only publish log in a SQLite
// database keyed by node type identity.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/j0nc0x/hdamanager/internal/log"
	"github.com/j0nc0x/hdamanager/internal/nodetype"
	"github.com/j0nc0x/hdamanager/internal/version"
)

// Schema is the publish log schema, applied on open.
const Schema = `
CREATE TABLE IF NOT EXISTS publishes (
	id TEXT PRIMARY KEY,
	namespace TEXT NOT NULL,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	predecessor TEXT,
	author TEXT NOT NULL,
	comment TEXT NOT NULL DEFAULT '',
	published_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_publishes_node_type
	ON publishes (namespace, name, published_at DESC);
`

// Entry is one publish record. Predecessor is nil for a first publish.
type Entry struct {
	ID          string
	Name        nodetype.Name
	Predecessor *version.Version
	Author      string
	Comment     string
	Timestamp   time.Time
}

// Store is the append-only publish history store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
// synchronous=FULL makes appends durable before Append returns.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying history schema: %w", err)
	}

	log.Debug(log.CatHistory, "history store opened", "path", path)
	return &Store{db: db}, nil
}

// OpenInMemory opens a throwaway in-memory store. Used by tests.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory history database: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append durably records a publish. It is the only mutator; entries are
// never updated or deleted. A zero Timestamp is filled with the current
// time, an empty ID with a fresh UUID.
func (s *Store) Append(ctx context.Context, e *Entry) error {
	if e == nil {
		return errors.New("nil history entry")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	var predecessor *string
	if e.Predecessor != nil {
		p := e.Predecessor.String()
		predecessor = &p
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning history append: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO publishes (id, namespace, name, version, predecessor, author, comment, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name.Namespace, e.Name.Name, e.Name.Version.String(),
		predecessor, e.Author, e.Comment, e.Timestamp.Unix(),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("appending history entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history entry: %w", err)
	}

	log.Info(log.CatHistory, "publish recorded", "name", e.Name, "author", e.Author)
	return nil
}

// Query returns the publish history for a node type, newest first.
func (s *Store) Query(ctx context.Context, namespace, name string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, namespace, name, version, predecessor, author, comment, published_at
		 FROM publishes
		 WHERE namespace = ? AND name = ?
		 ORDER BY published_at DESC, id DESC`,
		namespace, name,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var (
		e           Entry
		verStr      string
		predecessor sql.NullString
		publishedAt int64
	)
	err := rows.Scan(&e.ID, &e.Name.Namespace, &e.Name.Name, &verStr,
		&predecessor, &e.Author, &e.Comment, &publishedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning history row: %w", err)
	}

	v, err := version.Parse(verStr)
	if err != nil {
		return nil, fmt.Errorf("invalid version in history row %s: %w", e.ID, err)
	}
	e.Name.Version = v

	if predecessor.Valid {
		p, err := version.Parse(predecessor.String)
		if err != nil {
			return nil, fmt.Errorf("invalid predecessor in history row %s: %w", e.ID, err)
		}
		e.Predecessor = &p
	}

	e.Timestamp = time.Unix(publishedAt, 0)
	return &e, nil
}
