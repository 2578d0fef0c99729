// Package vector is a flat cosine-similarity index over chunk
// embeddings, persisted as JSON next to the database. At registry
// scale (thousands of chunks) exhaustive search is fast enough.
package vector

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is the metadata stored alongside one vector.
type Entry struct {
	VectorID   string `json:"vector_id"`
	DocumentID int64  `json:"document_id"`
	ChunkID    int    `json:"chunk_id"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

// Result is one search hit.
type Result struct {
	Entry
	Score float64 `json:"score"`
}

// Index holds normalized vectors in memory and mirrors them to disk.
// All mutating operations take the lock; a single process owns the
// file.
type Index struct {
	mu      sync.RWMutex
	path    string
	dim     int
	vectors [][]float64
	entries []Entry
}

type indexFile struct {
	Dimension int         `json:"dimension"`
	Vectors   [][]float64 `json:"vectors"`
	Entries   []Entry     `json:"entries"`
}

// Open loads the index at path, creating an empty one if absent.
// dim fixes the expected embedding dimension; 0 adopts the dimension
// of the first vector added.
func Open(path string, dim int) (*Index, error) {
	ix := &Index{path: path, dim: dim}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ix, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}

	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing index: %w", err)
	}
	if len(f.Vectors) != len(f.Entries) {
		return nil, fmt.Errorf("index corrupt: %d vectors, %d entries", len(f.Vectors), len(f.Entries))
	}
	if dim != 0 && f.Dimension != 0 && f.Dimension != dim {
		return nil, fmt.Errorf("index dimension %d does not match configured %d", f.Dimension, dim)
	}
	if f.Dimension != 0 {
		ix.dim = f.Dimension
	}
	ix.vectors = f.Vectors
	ix.entries = f.Entries
	return ix, nil
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Add stores one chunk embedding and returns its vector ID. The vector
// is normalized on insert so search reduces to a dot product.
func (ix *Index) Add(documentID int64, chunkID int, text string, embedding []float64) (string, error) {
	norm, err := normalize(embedding)
	if err != nil {
		return "", err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim == 0 {
		ix.dim = len(norm)
	} else if len(norm) != ix.dim {
		return "", fmt.Errorf("embedding dimension %d, index expects %d", len(norm), ix.dim)
	}

	entry := Entry{
		VectorID:   uuid.NewString(),
		DocumentID: documentID,
		ChunkID:    chunkID,
		Text:       text,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	ix.vectors = append(ix.vectors, norm)
	ix.entries = append(ix.entries, entry)

	if err := ix.save(); err != nil {
		// roll back the in-memory append so memory matches disk
		ix.vectors = ix.vectors[:len(ix.vectors)-1]
		ix.entries = ix.entries[:len(ix.entries)-1]
		return "", err
	}
	return entry.VectorID, nil
}

// Search returns the topK entries most similar to the query embedding.
func (ix *Index) Search(embedding []float64, topK int) ([]Result, error) {
	query, err := normalize(embedding)
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.dim != 0 && len(query) != ix.dim {
		return nil, fmt.Errorf("query dimension %d, index expects %d", len(query), ix.dim)
	}

	results := make([]Result, 0, len(ix.entries))
	for i, vec := range ix.vectors {
		results = append(results, Result{Entry: ix.entries[i], Score: dot(query, vec)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteDocument removes every vector belonging to a document and
// rewrites the file.
func (ix *Index) DeleteDocument(documentID int64) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	keptVectors := ix.vectors[:0]
	keptEntries := ix.entries[:0]
	removed := 0
	for i, e := range ix.entries {
		if e.DocumentID == documentID {
			removed++
			continue
		}
		keptVectors = append(keptVectors, ix.vectors[i])
		keptEntries = append(keptEntries, e)
	}
	if removed == 0 {
		return 0, nil
	}
	ix.vectors = keptVectors
	ix.entries = keptEntries
	return removed, ix.save()
}

// save writes the index atomically via a temp file rename.
func (ix *Index) save() error {
	if err := os.MkdirAll(filepath.Dir(ix.path), 0o755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}

	data, err := json.Marshal(indexFile{
		Dimension: ix.dim,
		Vectors:   ix.vectors,
		Entries:   ix.entries,
	})
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	tmp := ix.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return os.Rename(tmp, ix.path)
}

func normalize(v []float64) ([]float64, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return nil, fmt.Errorf("zero-magnitude embedding")
	}
	mag := math.Sqrt(sum)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / mag
	}
	return out, nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
