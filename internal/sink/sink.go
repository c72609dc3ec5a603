// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tilekiln/tilekiln/internal/errs"
	"github.com/tilekiln/tilekiln/internal/logging"
)

// TileWriter is the emit phase's output contract (spec.md §6): one call
// per produced tile, in whatever order the emitter's worker pool happens
// to finish chunks. Implementations that are not naturally safe for
// concurrent use are fine — the emitter serializes calls behind its own
// mutex.
type TileWriter interface {
	WriteTile(z, x, y int, data []byte) error
	Close() error
}

// DirTileWriter writes each tile to <root>/<z>/<x>/<y>.pbf, creating
// directories as needed. It exists so the emitter has a TileWriter to
// exercise without depending on the external MBTiles/SQLite writer
// spec.md leaves out of scope.
type DirTileWriter struct {
	root string
}

// NewDirTileWriter returns a TileWriter rooted at dir.
func NewDirTileWriter(dir string) *DirTileWriter {
	return &DirTileWriter{root: dir}
}

func (w *DirTileWriter) WriteTile(z, x, y int, data []byte) error {
	dir := filepath.Join(w.root, fmt.Sprintf("%d", z), fmt.Sprintf("%d", x))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("tilekiln: creating tile directory %s: %w: %w", dir, errs.ErrIOError, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.pbf", y))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("tilekiln: writing tile %s: %w: %w", path, errs.ErrIOError, err)
	}
	return nil
}

func (w *DirTileWriter) Close() error { return nil }

// DuckDBAttributeStore persists OutputObject attribute blobs keyed by
// (layer_id, attributes_ref) in a DuckDB database, grounded on the
// teacher's internal/database DuckDB connection and schema-migration
// style. It is additive to spec.md's scope (§6): it lets a rerun with
// index_file_path set inspect the tag script's output without replaying
// the whole pipeline.
type DuckDBAttributeStore struct {
	conn *sql.DB
}

// OpenDuckDBAttributeStore opens (creating if absent) a DuckDB database
// at path and ensures the attributes table exists.
func OpenDuckDBAttributeStore(path string) (*DuckDBAttributeStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("tilekiln: creating attribute store directory %s: %w: %w", dir, errs.ErrIOError, err)
		}
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("tilekiln: opening attribute store %s: %w: %w", path, errs.ErrIOError, err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS attributes (
			layer_id       TEXT    NOT NULL,
			attributes_ref BIGINT  NOT NULL,
			data           BLOB    NOT NULL,
			PRIMARY KEY (layer_id, attributes_ref)
		)`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tilekiln: migrating attribute store schema: %w: %w", errs.ErrIOError, err)
	}

	return &DuckDBAttributeStore{conn: conn}, nil
}

// Put upserts the attribute blob for (layerID, attrsRef).
func (s *DuckDBAttributeStore) Put(ctx context.Context, layerID string, attrsRef uint64, data []byte) error {
	const upsert = `
		INSERT INTO attributes (layer_id, attributes_ref, data)
		VALUES (?, ?, ?)
		ON CONFLICT (layer_id, attributes_ref) DO UPDATE SET data = excluded.data`
	if _, err := s.conn.ExecContext(ctx, upsert, layerID, attrsRef, data); err != nil {
		return fmt.Errorf("tilekiln: storing attributes for layer %s ref %d: %w: %w", layerID, attrsRef, errs.ErrIOError, err)
	}
	return nil
}

// Get returns the attribute blob stored for (layerID, attrsRef).
func (s *DuckDBAttributeStore) Get(ctx context.Context, layerID string, attrsRef uint64) ([]byte, error) {
	const query = `SELECT data FROM attributes WHERE layer_id = ? AND attributes_ref = ?`
	var data []byte
	err := s.conn.QueryRowContext(ctx, query, layerID, attrsRef).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tilekiln: no attributes for layer %s ref %d: %w", layerID, attrsRef, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("tilekiln: reading attributes for layer %s ref %d: %w: %w", layerID, attrsRef, errs.ErrIOError, err)
	}
	return data, nil
}

// Close releases the underlying DuckDB connection.
func (s *DuckDBAttributeStore) Close() error {
	logging.Info().Msg("closing attribute store")
	return s.conn.Close()
}
