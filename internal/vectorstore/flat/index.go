// Package flat is an exact, brute-force L2 vector index. Every query scans all
// stored vectors; there is no training step and no approximation.
package flat

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"slices"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/vectorstore"
)

var blobMagic = [4]byte{'F', 'L', 'A', 'T'}

const blobVersion uint32 = 1

// Index stores vectors row-major in insertion order. Position i is the i-th
// vector added. It is not safe to Add concurrently with Search.
type Index struct {
	dimension int
	data      []float32
}

// New returns an empty index for vectors of the given dimension. A zero
// dimension is fixed by the first Add.
func New(dimension int) *Index {
	return &Index{dimension: dimension}
}

// Build returns an index holding vectors in order. The dimension is taken
// from the first vector; an empty input yields an empty index.
func Build(vectors [][]float32) (*Index, error) {
	idx := New(0)
	if err := idx.Add(vectors); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add appends vectors. Their positions continue from Len().
func (x *Index) Add(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := x.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	if dim == 0 {
		return errs.New(errs.CodeIndexBuildInvalid, "vectors must not be empty")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return errs.New(errs.CodeIndexBuildInvalid, "vector dimension mismatch",
				errs.Field("position", x.Len()+i), errs.Field("want", dim), errs.Field("got", len(v)))
		}
	}
	x.dimension = dim
	x.data = slices.Grow(x.data, len(vectors)*dim)
	for _, v := range vectors {
		x.data = append(x.data, v...)
	}
	return nil
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	if x.dimension == 0 {
		return 0
	}
	return len(x.data) / x.dimension
}

// Dimension returns the vector dimension, 0 for an index that never had vectors.
func (x *Index) Dimension() int { return x.dimension }

// Vector returns a copy of the vector at position.
func (x *Index) Vector(position int) []float32 {
	if position < 0 || position >= x.Len() {
		return nil
	}
	return slices.Clone(x.data[position*x.dimension : (position+1)*x.dimension])
}

// Search returns the k nearest vectors by squared Euclidean distance,
// ascending, with equal distances ordered by position. k larger than Len()
// returns every vector. An empty index returns no results.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]domain.SearchResult, error) {
	n := x.Len()
	if n == 0 || k <= 0 {
		return []domain.SearchResult{}, nil
	}
	if len(query) != x.dimension {
		return nil, errs.New(errs.CodeIndexSearchDimension, "query dimension does not match index",
			errs.Field("want", x.dimension), errs.Field("got", len(query)))
	}

	results := make([]domain.SearchResult, n)
	for i := 0; i < n; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		results[i] = domain.SearchResult{Position: i, Distance: vectorstore.SquaredL2(x.data[i*x.dimension:(i+1)*x.dimension], query)}
	}
	slices.SortFunc(results, vectorstore.CompareResults)
	return results[:min(k, n)], nil
}

// MarshalBinary encodes the index as magic, version, dimension, count and the
// little-endian float32 payload.
func (x *Index) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(24 + 4*len(x.data))
	buf.Write(blobMagic[:])
	header := []any{blobVersion, uint32(x.dimension), uint64(x.Len())}
	for _, h := range header {
		if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
			return nil, errs.Wrap(err, errs.CodeIndexSaveFailure, "encoding index header")
		}
	}
	var word [4]byte
	for _, f := range x.data {
		binary.LittleEndian.PutUint32(word[:], math.Float32bits(f))
		buf.Write(word[:])
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces the index with the one encoded in data.
func (x *Index) UnmarshalBinary(data []byte) error {
	const headerLen = 4 + 4 + 4 + 8
	if len(data) < headerLen || !bytes.Equal(data[:4], blobMagic[:]) {
		return errs.New(errs.CodeIndexLoadCorrupt, "index blob has no valid header")
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != blobVersion {
		return errs.New(errs.CodeIndexLoadCorrupt, "unsupported index blob version", errs.Field("version", version))
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	count := binary.LittleEndian.Uint64(data[12:20])
	payload := data[headerLen:]
	if count > 0 && dim == 0 {
		return errs.New(errs.CodeIndexLoadCorrupt, "index blob has vectors but no dimension")
	}
	if uint64(len(payload)) != count*uint64(dim)*4 {
		return errs.New(errs.CodeIndexLoadCorrupt, "index blob payload has wrong length",
			errs.Field("dimension", dim), errs.Field("count", count), errs.Field("bytes", len(payload)))
	}
	values := make([]float32, len(payload)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	x.dimension = dim
	x.data = values
	return nil
}
