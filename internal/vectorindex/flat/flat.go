package flat

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"restaurantbot/internal/embedding"
	"restaurantbot/internal/vectorindex"
)

// Index is an exact in-memory inner-product index.
// It is immutable after construction and safe for concurrent reads.
type Index struct {
	dimension int
	vectors   [][]float32
}

// New builds an index over copies of vectors, L2-normalizing each row.
func New(dimension int, vectors [][]float32) (*Index, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	rows := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dimension)
		}
		rows[i] = embedding.Normalize(append([]float32(nil), v...))
	}
	return &Index{dimension: dimension, vectors: rows}, nil
}

// Size returns the number of indexed vectors.
func (s *Index) Size() int { return len(s.vectors) }

// Dimension returns the vector width.
func (s *Index) Dimension() int { return s.dimension }

// Search returns exactly topK slots; slots past the index size hold
// vectorindex.NoNeighbor. Ties keep row order so results are repeatable.
func (s *Index) Search(_ context.Context, vector []float32, topK int) ([]float32, []int, error) {
	if topK <= 0 {
		return nil, nil, nil
	}
	if len(vector) != s.dimension {
		return nil, nil, fmt.Errorf("query dimension %d, want %d", len(vector), s.dimension)
	}
	// compute cosine similarity (vectors are L2-normalized)
	scores := make([]float32, len(s.vectors))
	for i := range s.vectors {
		scores[i] = dot(s.vectors[i], vector)
	}
	idxs := argsortDesc(scores)
	outScores := make([]float32, topK)
	outIDs := make([]int, topK)
	for i := 0; i < topK; i++ {
		if i >= len(idxs) {
			outScores[i] = float32(math.Inf(-1))
			outIDs[i] = vectorindex.NoNeighbor
			continue
		}
		outScores[i] = scores[idxs[i]]
		outIDs[i] = idxs[i]
	}
	return outScores, outIDs, nil
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func argsortDesc(vals []float32) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	slices.SortStableFunc(idxs, func(a, b int) int {
		switch {
		case vals[a] > vals[b]:
			return -1
		case vals[a] < vals[b]:
			return 1
		default:
			return 0
		}
	})
	return idxs
}

// File layout: uint32 dimension, uint32 row count, then row-major float32
// values, all little-endian.

// Load reads an index written by Write.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var header [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read index header %s: %w", path, err)
	}
	dim, count := int(header[0]), int(header[1])
	if dim <= 0 {
		return nil, fmt.Errorf("index %s: invalid dimension %d", path, dim)
	}
	vectors := make([][]float32, count)
	for i := range vectors {
		row := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("read index row %d of %s: %w", i, path, err)
		}
		vectors[i] = row
	}
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("index %s: trailing data after %d rows", path, count)
	}
	return New(dim, vectors)
}

// Write stores vectors in the layout Load expects.
func Write(path string, dimension int, vectors [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	header := [2]uint32{uint32(dimension), uint32(len(vectors))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		f.Close()
		return err
	}
	for i, v := range vectors {
		if len(v) != dimension {
			f.Close()
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dimension)
		}
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
