package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/tieubaoca/arxiv-rag/database/migrations"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/types"
)

// SyncResult counts what one Sync call changed.
type SyncResult struct {
	New     int `json:"new"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// MetadataStore keeps one row per paper in SQLite, keyed by the feed id.
type MetadataStore struct {
	db   *sql.DB
	path string
}

func NewMetadataStore(path string) (*MetadataStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}
	// one writer
	db.SetMaxOpenConns(1)

	s := &MetadataStore{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *MetadataStore) Close() error {
	return s.db.Close()
}

func (s *MetadataStore) Path() string {
	return s.path
}

func (s *MetadataStore) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
	}
	return nil
}

// Sync upserts records by id. A new id is inserted; a known id is
// overwritten only when its updated timestamp differs from the stored one.
// Malformed records are skipped and counted in Failed.
func (s *MetadataStore) Sync(ctx context.Context, records []types.Record) (SyncResult, error) {
	var res SyncResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin sync: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if err := r.Validate(); err != nil {
			logger.Warn("skipping record: %v", err)
			res.Failed++
			continue
		}

		var stored string
		err := tx.QueryRowContext(ctx, "SELECT updated FROM arxiv_entries WHERE id = ?", r.ID).Scan(&stored)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `
				INSERT INTO arxiv_entries (id, title, summary, author, published, updated, pdf_link)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, r.ID, r.Title, r.Summary, r.Author, r.Published, r.Updated, r.PDFLink)
			if err != nil {
				return SyncResult{}, fmt.Errorf("failed to insert %s: %w", r.ID, err)
			}
			res.New++
		case err != nil:
			return SyncResult{}, fmt.Errorf("failed to look up %s: %w", r.ID, err)
		case stored != r.Updated:
			_, err = tx.ExecContext(ctx, `
				UPDATE arxiv_entries
				SET title = ?, summary = ?, author = ?, published = ?, updated = ?, pdf_link = ?
				WHERE id = ?
			`, r.Title, r.Summary, r.Author, r.Published, r.Updated, r.PDFLink, r.ID)
			if err != nil {
				return SyncResult{}, fmt.Errorf("failed to update %s: %w", r.ID, err)
			}
			res.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return SyncResult{}, fmt.Errorf("failed to commit sync: %w", err)
	}
	return res, nil
}

func (s *MetadataStore) Get(ctx context.Context, id string) (*types.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, summary, author, published, updated, pdf_link
		FROM arxiv_entries WHERE id = ?
	`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return r, nil
}

// List returns records newest first. limit <= 0 means all.
func (s *MetadataStore) List(ctx context.Context, limit int) ([]types.Record, error) {
	query := `
		SELECT id, title, summary, author, published, updated, pdf_link
		FROM arxiv_entries ORDER BY published DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

func (s *MetadataStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM arxiv_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*types.Record, error) {
	var r types.Record
	if err := row.Scan(&r.ID, &r.Title, &r.Summary, &r.Author, &r.Published, &r.Updated, &r.PDFLink); err != nil {
		return nil, err
	}
	return &r, nil
}
