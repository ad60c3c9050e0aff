package flat

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/errs"
)

func TestSearchOrdersByDistanceThenPosition(t *testing.T) {
	idx, err := Build([][]float32{
		{1, 0},
		{0, 1},
		{1, 0},
		{0.9, 0.1},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, 2, idx.Dimension())

	got, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 0, got[0].Position)
	assert.Equal(t, 2, got[1].Position)
	assert.Equal(t, float32(0), got[0].Distance)
	assert.Equal(t, 3, got[2].Position)
	assert.InDelta(t, 0.02, got[2].Distance, 1e-6)
}

func TestSearchKLargerThanIndex(t *testing.T) {
	idx, err := Build([][]float32{{0}, {3}, {1}})
	require.NoError(t, err)
	got, err := idx.Search(context.Background(), []float32{0}, 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.SearchResult{
		{Position: 0, Distance: 0},
		{Position: 2, Distance: 1},
		{Position: 1, Distance: 9},
	}, got)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx, err := Build(nil)
	require.NoError(t, err)
	assert.Zero(t, idx.Len())

	got, err := idx.Search(context.Background(), []float32{1, 2, 3}, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx, err := Build([][]float32{{1, 2}})
	require.NoError(t, err)
	_, err = idx.Search(context.Background(), []float32{1, 2, 3}, 1)
	assert.True(t, errs.HasCode(err, errs.CodeIndexSearchDimension))
}

func TestSearchReturnsMinKNSortedProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 30; trial++ {
		n := rng.Intn(50)
		dim := 1 + rng.Intn(6)
		vectors := make([][]float32, n)
		for i := range vectors {
			vectors[i] = make([]float32, dim)
			for j := range vectors[i] {
				// small integer grid so that ties actually happen
				vectors[i][j] = float32(rng.Intn(3))
			}
		}
		idx, err := Build(vectors)
		require.NoError(t, err)

		query := make([]float32, dim)
		for j := range query {
			query[j] = float32(rng.Intn(3))
		}
		k := 1 + rng.Intn(60)
		got, err := idx.Search(context.Background(), query, k)
		require.NoError(t, err)
		require.Len(t, got, min(k, n))
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			assert.True(t, prev.Distance < cur.Distance ||
				(prev.Distance == cur.Distance && prev.Position < cur.Position),
				"trial %d: %v before %v", trial, prev, cur)
		}
	}
}

func TestAddRejectsMixedDimensions(t *testing.T) {
	idx := New(0)
	require.NoError(t, idx.Add([][]float32{{1, 2}}))
	err := idx.Add([][]float32{{1, 2, 3}})
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Build([][]float32{{1}, {1, 2}})
	assert.Error(t, err)

	require.NoError(t, idx.Add([][]float32{{3, 4}}))
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, []float32{3, 4}, idx.Vector(1))
	assert.Nil(t, idx.Vector(2))
}

func TestBinaryRoundTrip(t *testing.T) {
	idx, err := Build([][]float32{{0.5, -1.25, 3}, {7, 8, 9}})
	require.NoError(t, err)
	blob, err := idx.MarshalBinary()
	require.NoError(t, err)

	var back Index
	require.NoError(t, back.UnmarshalBinary(blob))
	assert.Equal(t, idx.Len(), back.Len())
	assert.Equal(t, idx.Dimension(), back.Dimension())
	assert.Equal(t, idx.Vector(0), back.Vector(0))
	assert.Equal(t, idx.Vector(1), back.Vector(1))
}

func TestUnmarshalRejectsCorruptBlobs(t *testing.T) {
	idx, err := Build([][]float32{{1, 2}})
	require.NoError(t, err)
	blob, err := idx.MarshalBinary()
	require.NoError(t, err)

	var x Index
	assert.True(t, errs.HasCode(x.UnmarshalBinary([]byte("nope")), errs.CodeIndexLoadCorrupt))
	assert.True(t, errs.HasCode(x.UnmarshalBinary(blob[:len(blob)-1]), errs.CodeIndexLoadCorrupt))

	bad := append([]byte(nil), blob...)
	bad[0] = 'X'
	assert.Error(t, x.UnmarshalBinary(bad))
}
