package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

// DefaultListLimit is used by List when the caller passes a non-positive
// limit.
const DefaultListLimit = 100

var ErrNotFound = errors.New("upload not found")

// Entry is the catalogued metadata of one stored upload.
type Entry struct {
	StoredName   string    `json:"storedName"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"type"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Catalog keeps a queryable record of stored uploads in SQLite. It is an
// index only: the storage engine stays the source of truth for file bytes.
type Catalog struct {
	db *sql.DB
}

// Open creates dataDir if needed and opens (or creates) the catalog database
// inside it, applying any pending migrations.
func Open(ctx context.Context, dataDir string) (*Catalog, error) {
	if dataDir == "" {
		return nil, errors.New("data dir must not be empty")
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dataSourceName(dataDir))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Catalog{db: db}, nil
}

// dataSourceName returns a file: URI for the catalog inside dataDir, with
// characters such as '?' and '#' in the path percent-encoded.
func dataSourceName(dataDir string) string {
	dbPath := filepath.Join(dataDir, "catalog.sqlite")
	if abs, err := filepath.Abs(dbPath); err == nil {
		dbPath = abs
	}

	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(dbPath),
		RawQuery: "_busy_timeout=5000&_journal_mode=WAL",
	}
	return u.String()
}

// initSchema applies all SQL files in the embedded migrations directory in
// lexicographical order.
func initSchema(ctx context.Context, db *sql.DB) error {
	return fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		content, readError := migrationsFS.ReadFile(path)
		if readError != nil {
			return fmt.Errorf("error reading SQL file: %w", readError)
		}

		slog.Debug("Running migration", "path", path)
		if _, execError := db.ExecContext(ctx, string(content)); execError != nil {
			return fmt.Errorf("run migration %s: %w", path, execError)
		}
		return nil
	})
}

// withTransaction runs a function within a database transaction.
func withTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return fmt.Errorf("error executing transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record stores a single entry.
func (c *Catalog) Record(ctx context.Context, entry Entry) error {
	return c.RecordAll(ctx, []Entry{entry})
}

// RecordAll stores entries atomically. Re-recording a stored name replaces
// the previous row.
func (c *Catalog) RecordAll(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	return withTransaction(ctx, c.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO uploads(stored_name, original_name, size, content_type, created_at)
			 VALUES(?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range entries {
			createdAt := e.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now()
			}

			if _, err := stmt.ExecContext(ctx, e.StoredName, e.OriginalName, e.Size, e.ContentType, createdAt.UTC()); err != nil {
				return fmt.Errorf("insert %q: %w", e.StoredName, err)
			}
		}
		return nil
	})
}

// List returns up to limit entries, newest first.
func (c *Catalog) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT stored_name, original_name, size, content_type, created_at
		 FROM uploads
		 ORDER BY created_at DESC, stored_name DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.StoredName, &e.OriginalName, &e.Size, &e.ContentType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	return entries, nil
}

// Get returns the entry for storedName or ErrNotFound.
func (c *Catalog) Get(ctx context.Context, storedName string) (Entry, error) {
	var e Entry
	err := c.db.QueryRowContext(ctx,
		`SELECT stored_name, original_name, size, content_type, created_at
		 FROM uploads WHERE stored_name = ?`, storedName).
		Scan(&e.StoredName, &e.OriginalName, &e.Size, &e.ContentType, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get upload %q: %w", storedName, err)
	}
	return e, nil
}

// Forget removes the entry for storedName and reports whether one existed.
func (c *Catalog) Forget(ctx context.Context, storedName string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM uploads WHERE stored_name = ?`, storedName)
	if err != nil {
		return false, fmt.Errorf("forget upload %q: %w", storedName, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
