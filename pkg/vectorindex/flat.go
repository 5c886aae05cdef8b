// Package vectorindex implements an exact (brute force) L2 nearest
// neighbor index with paired on-disk artifacts: a gob file for the
// vectors and a JSON file for the metadata.
package vectorindex

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/brewline-ai/brewline-engine/pkg/apperrors"
)

// Hit is a single search result.
type Hit[M any] struct {
	Meta M
	// Distance is the squared L2 distance to the query. Smaller is closer.
	Distance float64
}

// FlatIndex is an exact nearest neighbor index over fixed-dimension
// vectors, each paired with a metadata record. Safe for concurrent use:
// searches take a read lock, mutations a write lock.
type FlatIndex[M any] struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
	metas   []M
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex[M any](dim int) *FlatIndex[M] {
	return &FlatIndex[M]{dim: dim}
}

// Dim returns the vector dimension the index accepts.
func (idx *FlatIndex[M]) Dim() int {
	return idx.dim
}

// Size returns the number of indexed vectors.
func (idx *FlatIndex[M]) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Add appends a vector and its metadata.
func (idx *FlatIndex[M]) Add(vector []float32, meta M) error {
	if len(vector) != idx.dim {
		return fmt.Errorf("%w: got %d, index expects %d", apperrors.ErrDimensionMismatch, len(vector), idx.dim)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = append(idx.vectors, vector)
	idx.metas = append(idx.metas, meta)
	return nil
}

// Replace swaps the full contents of the index in one step, so readers
// never observe a half-built state during reindexing.
func (idx *FlatIndex[M]) Replace(vectors [][]float32, metas []M) error {
	if len(vectors) != len(metas) {
		return fmt.Errorf("%w: %d vectors, %d metadata records", apperrors.ErrIndexCorrupt, len(vectors), len(metas))
	}
	for i, v := range vectors {
		if len(v) != idx.dim {
			return fmt.Errorf("%w: vector %d has dimension %d, index expects %d", apperrors.ErrDimensionMismatch, i, len(v), idx.dim)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = vectors
	idx.metas = metas
	return nil
}

// Search returns the k nearest vectors to the query by squared L2
// distance, closest first. Fewer than k results are returned when the
// index is smaller than k. An empty index returns no results.
func (idx *FlatIndex[M]) Search(query []float32, k int) ([]Hit[M], error) {
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d", apperrors.ErrDimensionMismatch, len(query), idx.dim)
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]Hit[M], len(idx.vectors))
	for i, v := range idx.vectors {
		hits[i] = Hit[M]{Meta: idx.metas[i], Distance: squaredL2(query, v)}
	}

	// Stable keeps insertion order among equidistant vectors so results
	// are deterministic.
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// vectorArtifact is the gob-encoded vector file payload.
type vectorArtifact struct {
	Dim     int
	Vectors [][]float32
}

// Save writes the index as an artifact pair: <prefix>.vec (gob vectors)
// and <prefix>.meta.json (metadata).
func (idx *FlatIndex[M]) Save(prefix string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	vecFile, err := os.Create(prefix + ".vec")
	if err != nil {
		return fmt.Errorf("create vector artifact: %w", err)
	}
	defer vecFile.Close()

	if err := gob.NewEncoder(vecFile).Encode(vectorArtifact{Dim: idx.dim, Vectors: idx.vectors}); err != nil {
		return fmt.Errorf("encode vectors: %w", err)
	}

	metaData, err := json.Marshal(idx.metas)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(prefix+".meta.json", metaData, 0o644); err != nil {
		return fmt.Errorf("write metadata artifact: %w", err)
	}

	return nil
}

// Open reads an artifact pair written by Save into a fresh index,
// taking the vector dimension from the artifact itself.
func Open[M any](prefix string) (*FlatIndex[M], error) {
	vecFile, err := os.Open(prefix + ".vec")
	if err != nil {
		return nil, fmt.Errorf("open vector artifact: %w", err)
	}
	defer vecFile.Close()

	var artifact vectorArtifact
	if err := gob.NewDecoder(vecFile).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("%w: decode vectors: %v", apperrors.ErrIndexCorrupt, err)
	}

	idx := NewFlatIndex[M](artifact.Dim)
	if err := idx.Load(prefix); err != nil {
		return nil, err
	}
	return idx, nil
}

// Load reads an artifact pair written by Save. The two files must agree
// on record count and the vectors must match the index dimension;
// otherwise ErrIndexCorrupt or ErrDimensionMismatch is returned and the
// index is left unchanged.
func (idx *FlatIndex[M]) Load(prefix string) error {
	vecFile, err := os.Open(prefix + ".vec")
	if err != nil {
		return fmt.Errorf("open vector artifact: %w", err)
	}
	defer vecFile.Close()

	var artifact vectorArtifact
	if err := gob.NewDecoder(vecFile).Decode(&artifact); err != nil {
		return fmt.Errorf("%w: decode vectors: %v", apperrors.ErrIndexCorrupt, err)
	}

	if artifact.Dim != idx.dim {
		return fmt.Errorf("%w: artifact dimension %d, index expects %d", apperrors.ErrDimensionMismatch, artifact.Dim, idx.dim)
	}

	metaData, err := os.ReadFile(prefix + ".meta.json")
	if err != nil {
		return fmt.Errorf("read metadata artifact: %w", err)
	}

	var metas []M
	if err := json.Unmarshal(metaData, &metas); err != nil {
		return fmt.Errorf("%w: decode metadata: %v", apperrors.ErrIndexCorrupt, err)
	}

	return idx.Replace(artifact.Vectors, metas)
}
