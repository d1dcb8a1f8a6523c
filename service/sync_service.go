package service

import (
	"context"
	"fmt"

	"github.com/tieubaoca/arxiv-rag/config"
	"github.com/tieubaoca/arxiv-rag/database"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/types"
)

type FeedFetcher interface {
	Fetch(ctx context.Context, query string, pageSize, totalLimit int) ([]FeedPage, error)
}

type RecordSyncer interface {
	Sync(ctx context.Context, records []types.Record) (database.SyncResult, error)
}

// SyncService pulls the feed and upserts what it finds into the metadata store.
type SyncService struct {
	fetcher FeedFetcher
	store   RecordSyncer
	feed    config.FeedConfig
}

func NewSyncService(fetcher FeedFetcher, store RecordSyncer, feed config.FeedConfig) *SyncService {
	return &SyncService{fetcher: fetcher, store: store, feed: feed}
}

type SyncReport struct {
	database.SyncResult
	Pages   int   `json:"pages"`
	Parsed  int   `json:"parsed"`
	Partial bool  `json:"partial"`
	FeedErr error `json:"-"`
}

func (s *SyncService) Run(ctx context.Context) (*SyncReport, error) {
	logger.Section("Sync")
	report := &SyncReport{}

	pages, err := s.fetcher.Fetch(ctx, s.feed.Query, s.feed.PageSize, s.feed.TotalLimit)
	if err != nil {
		logger.Warn("feed paging stopped early: %v", err)
		report.Partial = true
		report.FeedErr = err
	}
	report.Pages = len(pages)

	var records []types.Record
	for _, page := range pages {
		records = append(records, page.Records...)
	}
	report.Parsed = len(records)
	logger.Debug("parsed %d records from %d pages", len(records), len(pages))

	res, err := s.store.Sync(ctx, records)
	if err != nil {
		return nil, err
	}
	report.SyncResult = res
	return report, nil
}

// Summary is the one-line status shown after a sync.
func (r *SyncReport) Summary() string {
	var msg string
	switch {
	case r.New > 0 && r.Updated > 0:
		msg = fmt.Sprintf("%d new document(s) found & %d document(s) updated!", r.New, r.Updated)
	case r.New > 0:
		msg = fmt.Sprintf("%d new document(s) found!", r.New)
	case r.Updated > 0:
		msg = fmt.Sprintf("%d update(s) found!", r.Updated)
	default:
		msg = "Already up to date!"
	}
	if r.Failed > 0 {
		msg += fmt.Sprintf(" (%d malformed record(s) skipped)", r.Failed)
	}
	if r.Partial {
		msg += " (feed stopped early)"
	}
	return msg
}
