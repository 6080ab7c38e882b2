// Package vector provides the append-only in-memory vector index and exact
// nearest-neighbor search.
package vector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/miru/pkg/utils"
)

// ErrDimensionMismatch is returned when an added or queried vector does not
// match the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Result is a single search hit.
type Result struct {
	Path     string
	Distance float64
}

// Index is an append-only flat index over (path, descriptor) pairs with
// brute-force Euclidean search. Insertion order is preserved and is the
// tie-break order for equal distances. Entries are never removed.
//
// The index is safe for concurrent reads and for serialized writes; build
// and query phases in the batch pipeline are strictly sequential, while
// serve mode appends under the same lock that guards searches.
type Index struct {
	dim     int
	paths   []string
	vectors [][]float32
	known   map[string]struct{}
	mu      sync.RWMutex
}

// NewIndex creates an index for descriptors of the given dimension.
func NewIndex(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	return &Index{
		dim:   dim,
		known: make(map[string]struct{}),
	}, nil
}

// Dim returns the descriptor dimension.
func (ix *Index) Dim() int { return ix.dim }

// Size returns the number of indexed entries.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.paths)
}

// Contains reports whether path has already been indexed.
func (ix *Index) Contains(path string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.known[path]
	return ok
}

// Add appends one entry. The descriptor is copied; the entry is never
// mutated or removed afterwards.
func (ix *Index) Add(path string, vec []float32) error {
	if len(vec) != ix.dim {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), ix.dim)
	}
	cp := make([]float32, ix.dim)
	copy(cp, vec)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.paths = append(ix.paths, path)
	ix.vectors = append(ix.vectors, cp)
	ix.known[path] = struct{}{}
	return nil
}

// Search returns the k entries closest to query by Euclidean distance,
// ascending, with equal distances keeping their insertion order. The scan is
// exact and exhaustive. An empty index or k <= 0 yields an empty result;
// otherwise the result is truncated to min(k, Size()).
func (ix *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(query), ix.dim)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if k <= 0 || len(ix.paths) == 0 {
		return nil, nil
	}

	results := make([]Result, len(ix.paths))
	for i, vec := range ix.vectors {
		results[i] = Result{Path: ix.paths[i], Distance: EuclideanDistance(query, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Save persists the index to path, creating parent directories as needed.
// Format: dimension (4), n (4), then per entry: pathLen (4), path bytes,
// vector (dimension*4 bytes), all little endian.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(ix.dim)); err != nil {
		return fmt.Errorf("write dimension: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(ix.paths))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, p := range ix.paths {
		pb := []byte(p)
		if err := binary.Write(f, binary.LittleEndian, uint32(len(pb))); err != nil {
			return fmt.Errorf("write path len: %w", err)
		}
		if _, err := f.Write(pb); err != nil {
			return fmt.Errorf("write path: %w", err)
		}
		if _, err := f.Write(utils.Float32SliceToBytes(ix.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads a snapshot from path and replaces the in-memory contents.
// Dimensions must match. A missing file is not an error and leaves the
// index unchanged.
func (ix *Index) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimension: %w", err)
	}
	if int(dim) != ix.dim {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, dim, ix.dim)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	paths := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	known := make(map[string]struct{}, n)
	buf := make([]byte, ix.dim*4)
	for i := uint32(0); i < n; i++ {
		var pathLen uint32
		if err := binary.Read(f, binary.LittleEndian, &pathLen); err != nil {
			return fmt.Errorf("read path len: %w", err)
		}
		pb := make([]byte, pathLen)
		if _, err := io.ReadFull(f, pb); err != nil {
			return fmt.Errorf("read path: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		p := string(pb)
		paths = append(paths, p)
		vectors = append(vectors, utils.BytesToFloat32Slice(buf))
		known[p] = struct{}{}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.paths = paths
	ix.vectors = vectors
	ix.known = known
	return nil
}
