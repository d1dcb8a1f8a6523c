package database

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var bucketProcessed = []byte("processed")

// ProcessedSet is the durable set of PDF links whose chunks are all in the
// vector index. Each Add is one bolt transaction.
type ProcessedSet struct {
	mu    sync.RWMutex
	db    *bbolt.DB
	links map[string]struct{}
}

// OpenProcessedSet loads the set at path. A missing or corrupt file yields
// an empty set.
func OpenProcessedSet(path string) (*ProcessedSet, error) {
	db, err := openBoltOrReset(path, bucketProcessed)
	if err != nil {
		return nil, err
	}

	links := make(map[string]struct{})
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProcessed).ForEach(func(k, _ []byte) error {
			links[string(k)] = struct{}{}
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load processed set: %w", err)
	}
	return &ProcessedSet{db: db, links: links}, nil
}

func (p *ProcessedSet) Contains(link string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.links[link]
	return ok
}

func (p *ProcessedSet) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.links)
}

// Filter returns the links not yet processed, deduplicated, in input order.
func (p *ProcessedSet) Filter(links []string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	seen := make(map[string]struct{}, len(links))
	var out []string
	for _, l := range links {
		if _, done := p.links[l]; done {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Add marks links as processed and persists them before returning.
func (p *ProcessedSet) Add(links ...string) error {
	if len(links) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	err := p.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketProcessed)
		for _, l := range links {
			if err := b.Put([]byte(l), stamp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist processed links: %w", err)
	}
	for _, l := range links {
		p.links[l] = struct{}{}
	}
	return nil
}

// Links returns the set sorted.
func (p *ProcessedSet) Links() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.links))
	for l := range p.links {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (p *ProcessedSet) Close() error {
	return p.db.Close()
}

// Clear forgets every processed link.
func (p *ProcessedSet) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketProcessed); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketProcessed)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear processed links: %w", err)
	}
	p.links = make(map[string]struct{})
	return nil
}
