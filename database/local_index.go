package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/tieubaoca/arxiv-rag/types"
	"go.etcd.io/bbolt"
)

var bucketVectors = []byte("vectors")

type localEntry struct {
	Embedding []float32           `json:"embedding"`
	Metadata  types.ChunkMetadata `json:"metadata"`
}

// LocalIndex is a brute-force cosine index held in memory. When opened on a
// file every Add is written through to bolt before it becomes visible.
type LocalIndex struct {
	mu        sync.RWMutex
	db        *bbolt.DB
	dimension int
	entries   map[string]localEntry
}

func NewMemoryIndex() *LocalIndex {
	return &LocalIndex{entries: make(map[string]localEntry)}
}

func OpenLocalIndex(path string) (*LocalIndex, error) {
	db, err := openBolt(path, bucketVectors)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	idx := &LocalIndex{db: db, entries: make(map[string]localEntry)}
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var e localEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("entry %s: %w", k, err)
			}
			idx.entries[string(k)] = e
			idx.dimension = len(e.Embedding)
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vector index: %w", err)
	}
	return idx, nil
}

func (l *LocalIndex) Add(_ context.Context, id string, embedding []float32, metadata types.ChunkMetadata) error {
	if id == "" {
		return errors.New("empty chunk id")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("chunk %s has no embedding", id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dimension != 0 && len(embedding) != l.dimension {
		return fmt.Errorf("chunk %s: vector dimension %d, index has %d", id, len(embedding), l.dimension)
	}

	e := localEntry{Embedding: append([]float32(nil), embedding...), Metadata: metadata}
	if l.db != nil {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		err = l.db.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket(bucketVectors).Put([]byte(id), data)
		})
		if err != nil {
			return fmt.Errorf("failed to store chunk %s: %w", id, err)
		}
	}
	l.entries[id] = e
	l.dimension = len(embedding)
	return nil
}

// Query ranks by cosine distance, ascending. Ties break on id.
func (l *LocalIndex) Query(_ context.Context, embedding []float32, topK int) ([]types.QueryMatch, error) {
	if topK <= 0 {
		return nil, nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return nil, nil
	}
	if len(embedding) != l.dimension {
		return nil, fmt.Errorf("query dimension %d, index has %d", len(embedding), l.dimension)
	}

	matches := make([]types.QueryMatch, 0, len(l.entries))
	for id, e := range l.entries {
		matches = append(matches, types.QueryMatch{
			ID:       id,
			Metadata: e.Metadata,
			Distance: cosineDistance(embedding, e.Embedding),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func (l *LocalIndex) Count(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

// Reset drops every entry.
func (l *LocalIndex) Reset(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db != nil {
		err := l.db.Update(func(tx *bbolt.Tx) error {
			if err := tx.DeleteBucket(bucketVectors); err != nil {
				return err
			}
			_, err := tx.CreateBucket(bucketVectors)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to reset vector index: %w", err)
		}
	}
	l.entries = make(map[string]localEntry)
	l.dimension = 0
	return nil
}

func (l *LocalIndex) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}
