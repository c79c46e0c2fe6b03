// Package incremental persists build state between runs in a SQLite file:
// version-control dates per HEAD, digests of emitted artifacts, and the
// signature of the last successful build.
package incremental

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/inful/mdfp"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/vaultsite/internal/git"
	"git.home.luguber.info/inful/vaultsite/internal/logfields"
)

// Cache is a SQLite-backed build cache. It is safe for concurrent use.
type Cache struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the cache at path. Use ":memory:" for a throwaway cache.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	c := &Cache{db: db}
	if err := c.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return c, nil
}

func (c *Cache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS git_dates (
		head TEXT NOT NULL,
		path TEXT NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL,
		PRIMARY KEY (head, path)
	);
	CREATE TABLE IF NOT EXISTS artifacts (
		path TEXT PRIMARY KEY,
		digest TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// GetDates implements git.DateCache.
func (c *Cache) GetDates(head, path string) (git.FileDates, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var created, modified int64
	err := c.db.QueryRow("SELECT created, modified FROM git_dates WHERE head = ? AND path = ?", head, path).Scan(&created, &modified)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("Date cache lookup failed", logfields.Path(path), logfields.Error(err))
		}
		return git.FileDates{}, false
	}
	return git.FileDates{Created: time.Unix(0, created).UTC(), Modified: time.Unix(0, modified).UTC()}, true
}

// PutDates implements git.DateCache.
func (c *Cache) PutDates(head, path string, d git.FileDates) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec("INSERT OR REPLACE INTO git_dates (head, path, created, modified) VALUES (?, ?, ?, ?)",
		head, path, d.Created.UnixNano(), d.Modified.UnixNano())
	if err != nil {
		slog.Warn("Date cache write failed", logfields.Path(path), logfields.Error(err))
	}
}

// PruneDates drops dates recorded for any HEAD other than head.
func (c *Cache) PruneDates(ctx context.Context, head string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, "DELETE FROM git_dates WHERE head <> ?", head); err != nil {
		return fmt.Errorf("prune dates: %w", err)
	}
	return nil
}

// Digest fingerprints artifact content.
func Digest(content []byte) string {
	return mdfp.CalculateFingerprintFromParts("", string(content))
}

// Artifacts returns the digests recorded by the last build, keyed by path.
func (c *Cache) Artifacts(ctx context.Context) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx, "SELECT path, digest FROM artifacts")
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, digest string
		if err := rows.Scan(&path, &digest); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out[path] = digest
	}
	return out, rows.Err()
}

// ReplaceArtifacts records the digests of the current build, dropping paths
// the build no longer produces.
func (c *Cache) ReplaceArtifacts(ctx context.Context, digests map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM artifacts"); err != nil {
		return fmt.Errorf("clear artifacts: %w", err)
	}
	paths := make([]string, 0, len(digests))
	for p := range digests {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if _, err := tx.ExecContext(ctx, "INSERT INTO artifacts (path, digest) VALUES (?, ?)", p, digests[p]); err != nil {
			return fmt.Errorf("insert artifact %s: %w", p, err)
		}
	}
	return tx.Commit()
}

const signatureKey = "build_signature"

// Signature returns the signature of the last successful build.
func (c *Cache) Signature(ctx context.Context) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var v string
	err := c.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", signatureKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query signature: %w", err)
	}
	return v, true, nil
}

// PutSignature records the signature of a successful build.
func (c *Cache) PutSignature(ctx context.Context, sig string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, "INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", signatureKey, sig); err != nil {
		return fmt.Errorf("store signature: %w", err)
	}
	return nil
}
