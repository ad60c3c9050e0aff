package flat

import (
	"context"
	"encoding/gob"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/vectorstore"
)

// Backend is the registry name of the single-file flat backend.
const Backend = "flat"

func init() {
	vectorstore.RegisterBackend(Backend, Save, Load)
}

// artifactFile is the on-disk layout. The index travels as its binary blob so
// that the file stays readable if the float layout of Index changes.
type artifactFile struct {
	Meta   vectorstore.Meta
	Index  []byte
	Chunks []string
}

// Compile-time interface check.
var _ vectorstore.Store = (*Store)(nil)

// Store is a loaded flat artifact.
type Store struct {
	*Index
	chunks []string
	meta   vectorstore.Meta
}

// NewStore pairs an index with its chunk list.
func NewStore(idx *Index, chunks []string, meta vectorstore.Meta) (*Store, error) {
	if err := vectorstore.CheckAligned("", idx.Len(), len(chunks)); err != nil {
		return nil, err
	}
	meta.Count = len(chunks)
	meta.Dimension = idx.Dimension()
	return &Store{Index: idx, chunks: chunks, meta: meta}, nil
}

// Chunk returns the chunk text at position.
func (s *Store) Chunk(position int) (string, error) {
	if position < 0 || position >= len(s.chunks) {
		return "", errs.New(errs.CodeChunkStorePositionInvalid, "chunk position out of range",
			errs.Field("position", position), errs.Field("count", len(s.chunks)))
	}
	return s.chunks[position], nil
}

// Chunks returns the ordered chunk list. Callers must not modify it.
func (s *Store) Chunks() []string { return s.chunks }

func (s *Store) Meta() vectorstore.Meta { return s.meta }

func (s *Store) Close() error { return nil }

// Save writes the artifact to path atomically: the file is written next to
// path and renamed over it once complete.
func Save(ctx context.Context, path string, a vectorstore.Artifact) error {
	idx, err := Build(a.Vectors)
	if err != nil {
		return err
	}
	blob, err := idx.MarshalBinary()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(err, errs.CodeIndexSaveFailure, "creating index directory", errs.FieldPath(dir))
		}
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return errs.Wrap(err, errs.CodeIndexSaveFailure, "creating index file", errs.FieldPath(tmp))
	}
	encErr := gob.NewEncoder(file).Encode(artifactFile{Meta: a.Meta, Index: blob, Chunks: a.Chunks})
	closeErr := file.Close()
	if err := errors.Join(encErr, closeErr); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(err, errs.CodeIndexSaveFailure, "writing index file", errs.FieldPath(tmp))
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(err, errs.CodeIndexSaveFailure, "replacing index file", errs.FieldPath(path))
	}
	slog.Debug("flat index saved", "path", path, "count", idx.Len(), "dimension", idx.Dimension(), "bytes", len(blob))
	return nil
}

// Load reads an artifact written by Save and verifies that the index and the
// chunk list have the same length.
func Load(_ context.Context, path string) (vectorstore.Store, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(err, errs.CodeIndexLoadNotFound, "index file not found", errs.FieldPath(path))
		}
		return nil, errs.Wrap(err, errs.CodeIndexLoadFailure, "opening index file", errs.FieldPath(path))
	}
	defer func() { _ = file.Close() }()

	var af artifactFile
	if err := gob.NewDecoder(file).Decode(&af); err != nil {
		return nil, errs.Wrap(err, errs.CodeIndexLoadCorrupt, "decoding index file", errs.FieldPath(path))
	}
	idx := New(0)
	if err := idx.UnmarshalBinary(af.Index); err != nil {
		return nil, errs.Wrap(err, errs.CodeIndexLoadCorrupt, "decoding index blob", errs.FieldPath(path))
	}
	if err := vectorstore.CheckAligned(path, idx.Len(), len(af.Chunks)); err != nil {
		return nil, err
	}
	if af.Chunks == nil {
		af.Chunks = []string{}
	}
	if af.Meta.Dimension != 0 && idx.Len() > 0 && af.Meta.Dimension != idx.Dimension() {
		return nil, errs.New(errs.CodeIndexLoadCorrupt, "index dimension disagrees with metadata", errs.FieldPath(path),
			errs.Field("meta", af.Meta.Dimension), errs.Field("index", idx.Dimension()))
	}
	af.Meta.Count = idx.Len()
	return &Store{Index: idx, chunks: af.Chunks, meta: af.Meta}, nil
}
