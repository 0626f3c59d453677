// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
// The whole index lives in a single database file, so a build on one machine
// can be shipped to and queried on another.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mediguideco/mediguide/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	logger *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Model is the embedding model identifier the index is stamped with.
	Model string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver opens (or creates) a sqlite-vec index at the configured path.
//
// A freshly-created index is stamped with the configured model and
// dimensions. Opening an existing index whose stamp does not match returns
// vector.ErrIncompatible before any query can run against it.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	// Chunk payload table. vec0 virtual tables use integer rowids, so the
	// string chunk IDs map through here.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL DEFAULT '',
			ordinal INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	// Compatibility stamp: one row, written on first build.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS index_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			model TEXT NOT NULL,
			dimensions INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating meta table: %w", err)
	}

	// Create the vec0 virtual table for vector storage and KNN queries.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	d := &Driver{
		db:     db,
		logger: logger,
	}

	if err := d.checkStamp(c.Model, c.Dimensions); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"model", c.Model,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return d, nil
}

// checkStamp verifies the stored compatibility stamp against the configured
// model, stamping a fresh index on first open.
func (d *Driver) checkStamp(model string, dimensions uint) error {
	var storedModel string
	var storedDims uint
	err := d.db.QueryRow(`SELECT model, dimensions FROM index_meta WHERE id = 1`).
		Scan(&storedModel, &storedDims)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err := d.db.Exec(
			`INSERT INTO index_meta (id, model, dimensions) VALUES (1, ?, ?)`,
			model, dimensions,
		)
		if err != nil {
			return fmt.Errorf("stamping index: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("reading index stamp: %w", err)
	}

	if storedModel != model || storedDims != dimensions {
		return fmt.Errorf(
			"%w: index built with %s/%d, configured %s/%d",
			vector.ErrIncompatible, storedModel, storedDims, model, dimensions,
		)
	}

	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Add stores documents with their embeddings.
// If a document with the same ID already exists, it is updated.
// Embeddings are unit-normalized on write so KNN distance ranks by cosine.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		embBlob := serializeFloat32(vector.Normalize(doc.Embedding))

		// Check if document already exists
		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_chunks WHERE chunk_id = ?`, doc.ID,
		).Scan(&existingRowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_chunks SET source = ?, ordinal = ?, content = ? WHERE rowid = ?`,
				doc.Source, doc.Ordinal, doc.Text, existingRowID,
			); err != nil {
				return fmt.Errorf("updating chunk %s: %w", doc.ID, err)
			}

			// Update embedding in vec0 table via DELETE + INSERT
			// (vec0 does not support UPDATE)
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for chunk %s: %w", doc.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for chunk %s: %w", doc.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			// New document: insert into the payload table first to get the rowid
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_chunks(chunk_id, source, ordinal, content) VALUES (?, ?, ?, ?)`,
				doc.ID, doc.Source, doc.Ordinal, doc.Text,
			)
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", doc.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for chunk %s: %w", doc.ID, err)
			}

			// Insert embedding into vec0 table with matching rowid
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for chunk %s: %w", doc.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing chunk %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added chunks to sqlite-vec", "count", len(docs))

	return nil
}

// Query finds the topK most similar documents to the given embedding.
// Fewer than topK results are returned when the index holds fewer chunks.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	queryBlob := serializeFloat32(vector.Normalize(embedding))

	// KNN query via vec0 MATCH, JOINed back for the chunk payload. vec0
	// permits only a single ORDER BY distance clause on KNN queries, so the
	// insertion-order tie break happens in Go below.
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			ve.rowid,
			c.chunk_id,
			c.source,
			c.ordinal,
			c.content,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	type knnRow struct {
		rowID    int64
		result   vector.QueryResult
		distance float64
	}

	var fetched []knnRow
	for rows.Next() {
		var r knnRow
		var chunkID, source, content string
		var ordinal int
		if err := rows.Scan(&r.rowID, &chunkID, &source, &ordinal, &content, &r.distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		r.result = vector.QueryResult{
			Document: vector.Document{
				ID:      chunkID,
				Source:  source,
				Ordinal: ordinal,
				Text:    content,
			},
			// Convert distance to similarity score: lower distance = higher similarity
			Score: float32(1.0 / (1.0 + r.distance)),
		}
		fetched = append(fetched, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	// Equal distances resolve in insertion order. rowid is autoincrement, so
	// it is the insertion order. Ties straddling the k cutoff stay at vec0's
	// discretion since it picks the k rows before we see them.
	sort.SliceStable(fetched, func(i, j int) bool {
		if fetched[i].distance != fetched[j].distance {
			return fetched[i].distance < fetched[j].distance
		}
		return fetched[i].rowID < fetched[j].rowID
	})

	results := make([]vector.QueryResult, 0, len(fetched))
	for _, r := range fetched {
		results = append(results, r.result)
	}

	d.logger.Debug("queried sqlite-vec", "results", len(results))

	return results, nil
}

// Count returns the number of stored chunks.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Meta returns the compatibility stamp.
func (d *Driver) Meta(ctx context.Context) (vector.Meta, error) {
	var m vector.Meta
	err := d.db.QueryRowContext(ctx,
		`SELECT model, dimensions FROM index_meta WHERE id = 1`,
	).Scan(&m.Model, &m.Dimensions)
	if errors.Is(err, sql.ErrNoRows) {
		return vector.Meta{}, fmt.Errorf("%w: index stamp", vector.ErrNotFound)
	}
	if err != nil {
		return vector.Meta{}, fmt.Errorf("reading index stamp: %w", err)
	}
	return m, nil
}

// Reset removes all stored chunks and restamps the index with m.
func (d *Driver) Reset(ctx context.Context, m vector.Meta) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings`); err != nil {
		return fmt.Errorf("clearing embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_chunks`); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_meta (id, model, dimensions) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET model = excluded.model, dimensions = excluded.dimensions`,
		m.Model, m.Dimensions,
	); err != nil {
		return fmt.Errorf("restamping index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("reset sqlite-vec index", "model", m.Model, "dimensions", m.Dimensions)

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
