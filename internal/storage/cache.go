// Package storage provides the SQLite descriptor cache. A cached descriptor
// is reused when the file's mtime and size are unchanged, so re-runs skip
// decoding and feature extraction for images already processed with the same
// feature type and mode.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/miru/pkg/utils"
)

// DescriptorCache stores computed descriptors keyed by (path, feature, mode).
type DescriptorCache struct {
	db *sql.DB
}

// NewDescriptorCache opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewDescriptorCache(dbPath string) (*DescriptorCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DescriptorCache{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS descriptors (
		path TEXT NOT NULL,
		feature TEXT NOT NULL,
		mode TEXT NOT NULL,
		mtime INTEGER NOT NULL,
		size INTEGER NOT NULL,
		dim INTEGER NOT NULL,
		vector BLOB NOT NULL,
		PRIMARY KEY (path, feature, mode)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the cached descriptor for path under the given feature and
// mode, but only when the stored mtime and size match (a stale row reports a
// miss). The second return is false on a miss.
func (c *DescriptorCache) Get(ctx context.Context, path, feature, mode string, mtime, size int64) ([]float32, bool, error) {
	var storedMtime, storedSize int64
	var blob []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT mtime, size, vector FROM descriptors
		 WHERE path = ? AND feature = ? AND mode = ?`,
		path, feature, mode,
	).Scan(&storedMtime, &storedSize, &blob)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if storedMtime != mtime || storedSize != size {
		return nil, false, nil
	}
	return utils.BytesToFloat32Slice(blob), true, nil
}

// Put stores or replaces the descriptor for path under the given feature and
// mode.
func (c *DescriptorCache) Put(ctx context.Context, path, feature, mode string, mtime, size int64, vec []float32) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO descriptors (path, feature, mode, mtime, size, dim, vector)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		path, feature, mode, mtime, size, len(vec), utils.Float32SliceToBytes(vec),
	)
	return err
}

// Count returns the number of cached descriptors.
func (c *DescriptorCache) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM descriptors`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (c *DescriptorCache) Close() error {
	return c.db.Close()
}
