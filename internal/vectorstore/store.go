package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/errs"
)

// DefaultBackend is used when no backend is configured.
const DefaultBackend = "flat"

// Meta describes the build that produced an artifact.
type Meta struct {
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Count     int       `json:"count"`
	ChunkSize int       `json:"chunk_size"`
	Tokenizer string    `json:"tokenizer"`
	Backend   string    `json:"backend"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is the index and chunk list of one build, positionally aligned.
type Artifact struct {
	Meta    Meta
	Vectors [][]float32
	Chunks  []string
}

// Validate checks the alignment of vectors and chunks and fills Meta.Count
// and Meta.Dimension.
func (a *Artifact) Validate() error {
	if len(a.Vectors) != len(a.Chunks) {
		return errs.New(errs.CodeIndexBuildInvalid, "vectors and chunks length mismatch",
			errs.Field("vectors", len(a.Vectors)), errs.Field("chunks", len(a.Chunks)))
	}
	dim := a.Meta.Dimension
	if len(a.Vectors) > 0 {
		if dim == 0 {
			dim = len(a.Vectors[0])
		}
		if dim == 0 {
			return errs.New(errs.CodeIndexBuildInvalid, "vectors must not be empty")
		}
		for i, v := range a.Vectors {
			if len(v) != dim {
				return errs.New(errs.CodeIndexBuildInvalid, "vector dimension mismatch",
					errs.Field("position", i), errs.Field("want", dim), errs.Field("got", len(v)))
			}
		}
	}
	a.Meta.Dimension = dim
	a.Meta.Count = len(a.Chunks)
	return nil
}

// Store is a loaded artifact: a read-only vector index with its chunk list.
type Store interface {
	domain.VectorIndex
	domain.ChunkStore
	Meta() Meta
	Close() error
}

// SaveFunc persists an artifact at path, replacing any previous one.
type SaveFunc func(ctx context.Context, path string, a Artifact) error

// OpenFunc loads the artifact at path.
type OpenFunc func(ctx context.Context, path string) (Store, error)

type backend struct {
	save SaveFunc
	open OpenFunc
}

var (
	backends   = map[string]backend{}
	backendsMu sync.RWMutex
)

// RegisterBackend registers a named persistence backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, save SaveFunc, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = backend{save: save, open: open}
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (backend, error) {
	if name == "" {
		name = DefaultBackend
	}
	backendsMu.RLock()
	b, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return backend{}, errs.New(errs.CodeIndexBackendUnsupported, fmt.Sprintf("unsupported index backend: %q", name),
			errs.Field("backend", name))
	}
	return b, nil
}

// Save validates a and writes it with the named backend.
func Save(ctx context.Context, name, path string, a Artifact) error {
	if name == "" {
		name = DefaultBackend
	}
	b, err := lookup(name)
	if err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if a.Meta.Backend == "" {
		a.Meta.Backend = name
	}
	if a.Meta.CreatedAt.IsZero() {
		a.Meta.CreatedAt = time.Now().UTC()
	}
	return b.save(ctx, path, a)
}

// Open loads the artifact at path with the named backend.
func Open(ctx context.Context, name, path string) (Store, error) {
	b, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return b.open(ctx, path)
}

// CheckAligned returns a load error unless the index and chunk counts match.
func CheckAligned(path string, indexLen, chunks int) error {
	if indexLen != chunks {
		return errs.New(errs.CodeIndexLoadCorrupt, "index and chunk list are misaligned", errs.FieldPath(path),
			errs.Field("vectors", indexLen), errs.Field("chunks", chunks))
	}
	return nil
}

// SquaredL2 is the distance all backends report: the squared Euclidean
// distance accumulated in float32, so that backends agree bit for bit.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// CompareResults orders results by ascending distance, then ascending position.
func CompareResults(a, b domain.SearchResult) int {
	switch {
	case a.Distance < b.Distance:
		return -1
	case a.Distance > b.Distance:
		return 1
	}
	return a.Position - b.Position
}
