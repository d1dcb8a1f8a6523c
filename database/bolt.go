package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tieubaoca/arxiv-rag/logger"
	"go.etcd.io/bbolt"
)

// openBolt opens path and makes sure every bucket exists.
func openBolt(path string, buckets ...[]byte) (*bbolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func isCorrupt(err error) bool {
	return errors.Is(err, bbolt.ErrInvalid) ||
		errors.Is(err, bbolt.ErrChecksum) ||
		errors.Is(err, bbolt.ErrVersionMismatch)
}

// openBoltOrReset opens path; an unreadable file is moved aside and
// replaced by an empty database.
func openBoltOrReset(path string, buckets ...[]byte) (*bbolt.DB, error) {
	db, err := openBolt(path, buckets...)
	if err == nil {
		return db, nil
	}
	if !isCorrupt(err) {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
	logger.Warn("state file %s is unreadable (%v), starting empty; old file kept at %s", path, err, aside)
	if err := os.Rename(path, aside); err != nil {
		return nil, fmt.Errorf("failed to move corrupt state aside: %w", err)
	}
	db, err = openBolt(path, buckets...)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return db, nil
}
