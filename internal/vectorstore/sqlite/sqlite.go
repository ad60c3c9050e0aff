// Package sqlite persists an artifact as one SQLite database: a sqlite-vec
// vec0 table with the vectors, a chunks table with the text, and a meta row.
// Ids are position+1 in both tables.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/vectorstore"
)

// Backend is the registry name of the SQLite backend.
const Backend = "sqlite"

func init() {
	sqlite_vec.Auto()
	vectorstore.RegisterBackend(Backend, Save, Open)
}

const metaKey = "artifact"

// Compile-time interface check.
var _ vectorstore.Store = (*Store)(nil)

// Store is a read-only view of a saved database.
type Store struct {
	db   *sql.DB
	path string
	meta vectorstore.Meta
}

// Save writes the artifact into a fresh database at path. The database is
// built under a temporary name and renamed into place.
func Save(ctx context.Context, path string, a vectorstore.Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(err, errs.CodeIndexSaveFailure, "creating index directory", errs.FieldPath(dir))
		}
	}
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	if err := write(ctx, tmp, a); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(err, errs.CodeIndexSaveFailure, "replacing index database", errs.FieldPath(path))
	}
	slog.Debug("sqlite index saved", "path", path, "count", len(a.Chunks), "dimension", a.Meta.Dimension)
	return nil
}

func write(ctx context.Context, path string, a vectorstore.Artifact) (err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errs.Wrap(err, errs.CodeIndexSaveFailure, "opening sqlite db", errs.FieldPath(path))
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = errs.Wrap(cerr, errs.CodeIndexSaveFailure, "closing sqlite db", errs.FieldPath(path))
		}
	}()

	if err := migrate(ctx, db, a.Meta.Dimension); err != nil {
		return errs.Wrap(err, errs.CodeIndexSaveFailure, "creating index tables", errs.FieldPath(path))
	}

	metaJSON, err := json.Marshal(a.Meta)
	if err != nil {
		return errs.Wrap(err, errs.CodeIndexSaveFailure, "encoding index metadata")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(err, errs.CodeIndexSaveFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES (?, ?)`, metaKey, string(metaJSON)); err != nil {
		return errs.Wrap(err, errs.CodeIndexSaveFailure, "inserting index metadata")
	}
	for i, text := range a.Chunks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO chunks(id, text) VALUES (?, ?)`, i+1, text); err != nil {
			return errs.Wrap(err, errs.CodeIndexSaveFailure, "inserting chunk", errs.Field("position", i))
		}
	}
	for i, v := range a.Vectors {
		blob, err := sqlite_vec.SerializeFloat32(v)
		if err != nil {
			return errs.Wrap(err, errs.CodeIndexSaveFailure, "serializing embedding", errs.Field("position", i))
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO vectors(rowid, embedding) VALUES (?, ?)`, i+1, blob); err != nil {
			return errs.Wrap(err, errs.CodeIndexSaveFailure, "inserting vector", errs.Field("position", i))
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(err, errs.CodeIndexSaveFailure, "committing index")
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB, dimension int) error {
	const metaDDL = `CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`
	if _, err := db.ExecContext(ctx, metaDDL); err != nil {
		return fmt.Errorf("creating meta table: %w", err)
	}
	const chunksDDL = `CREATE TABLE chunks (id INTEGER PRIMARY KEY, text TEXT NOT NULL)`
	if _, err := db.ExecContext(ctx, chunksDDL); err != nil {
		return fmt.Errorf("creating chunks table: %w", err)
	}
	// vec0 cannot declare a zero-width column; an empty build has no vectors table.
	if dimension > 0 {
		vecDDL := fmt.Sprintf(`CREATE VIRTUAL TABLE vectors USING vec0(embedding float[%d])`, dimension)
		if _, err := db.ExecContext(ctx, vecDDL); err != nil {
			return fmt.Errorf("creating vectors virtual table: %w", err)
		}
	}
	return nil
}

// Open loads the database at path read-only and checks that the vector and
// chunk counts agree with each other and with the metadata.
func Open(ctx context.Context, path string) (vectorstore.Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(err, errs.CodeIndexLoadNotFound, "index database not found", errs.FieldPath(path))
		}
		return nil, errs.Wrap(err, errs.CodeIndexLoadFailure, "reading index database", errs.FieldPath(path))
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeIndexLoadFailure, "opening sqlite db", errs.FieldPath(path))
	}
	s := &Store{db: db, path: path}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaKey).Scan(&raw)
	if err != nil {
		return errs.Wrap(err, errs.CodeIndexLoadCorrupt, "reading index metadata", errs.FieldPath(s.path))
	}
	if err := json.Unmarshal([]byte(raw), &s.meta); err != nil {
		return errs.Wrap(err, errs.CodeIndexLoadCorrupt, "decoding index metadata", errs.FieldPath(s.path))
	}

	var chunks int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&chunks); err != nil {
		return errs.Wrap(err, errs.CodeIndexLoadCorrupt, "counting chunks", errs.FieldPath(s.path))
	}
	vectors := 0
	if s.meta.Dimension > 0 {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&vectors); err != nil {
			return errs.Wrap(err, errs.CodeIndexLoadCorrupt, "counting vectors", errs.FieldPath(s.path))
		}
	}
	if err := vectorstore.CheckAligned(s.path, vectors, chunks); err != nil {
		return err
	}
	if vectors != s.meta.Count {
		return errs.New(errs.CodeIndexLoadCorrupt, "index metadata count disagrees with contents",
			errs.FieldPath(s.path), errs.Field("meta", s.meta.Count), errs.Field("vectors", vectors))
	}
	return nil
}

func (s *Store) Len() int { return s.meta.Count }

func (s *Store) Dimension() int { return s.meta.Dimension }

func (s *Store) Meta() vectorstore.Meta { return s.meta }

// Search reads every stored embedding and scores it with vectorstore.SquaredL2,
// so distances and tie order are identical to the flat backend.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]domain.SearchResult, error) {
	if s.meta.Count == 0 || k <= 0 {
		return []domain.SearchResult{}, nil
	}
	if len(query) != s.meta.Dimension {
		return nil, errs.New(errs.CodeIndexSearchDimension, "query dimension does not match index",
			errs.Field("want", s.meta.Dimension), errs.Field("got", len(query)))
	}

	rows, err := s.db.QueryContext(ctx, `SELECT rowid, embedding FROM vectors`)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeIndexLoadFailure, "searching vectors", errs.FieldPath(s.path))
	}
	defer func() { _ = rows.Close() }()

	results := make([]domain.SearchResult, 0, s.meta.Count)
	vec := make([]float32, s.meta.Dimension)
	for rows.Next() {
		var rowid int64
		var blob []byte
		if err := rows.Scan(&rowid, &blob); err != nil {
			return nil, errs.Wrap(err, errs.CodeIndexLoadFailure, "scanning search result")
		}
		if err := decodeFloat32(blob, vec); err != nil {
			return nil, errs.Wrap(err, errs.CodeIndexLoadCorrupt, "decoding embedding", errs.Field("rowid", rowid))
		}
		results = append(results, domain.SearchResult{
			Position: int(rowid - 1),
			Distance: vectorstore.SquaredL2(vec, query),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(err, errs.CodeIndexLoadFailure, "iterating search results")
	}
	slices.SortFunc(results, vectorstore.CompareResults)
	return results[:min(k, len(results))], nil
}

// decodeFloat32 fills dst from a little-endian float32 blob as written by
// sqlite_vec.SerializeFloat32.
func decodeFloat32(blob []byte, dst []float32) error {
	if len(blob) != 4*len(dst) {
		return fmt.Errorf("embedding has %d bytes, want %d", len(blob), 4*len(dst))
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return nil
}

// Chunk returns the chunk text at position.
func (s *Store) Chunk(position int) (string, error) {
	if position < 0 || position >= s.meta.Count {
		return "", errs.New(errs.CodeChunkStorePositionInvalid, "chunk position out of range",
			errs.Field("position", position), errs.Field("count", s.meta.Count))
	}
	var text string
	err := s.db.QueryRowContext(context.Background(), `SELECT text FROM chunks WHERE id = ?`, position+1).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errs.New(errs.CodeChunkStorePositionInvalid, "chunk not found", errs.Field("position", position))
	}
	if err != nil {
		return "", errs.Wrap(err, errs.CodeIndexLoadFailure, "reading chunk", errs.Field("position", position))
	}
	return text, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
