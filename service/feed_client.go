package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tieubaoca/arxiv-rag/config"
	"github.com/tieubaoca/arxiv-rag/logger"
	"golang.org/x/time/rate"
)

// FeedClient pages through the arXiv query API.
type FeedClient struct {
	httpClient *http.Client
	baseURL    string
	sortBy     string
	sortOrder  string
	limiter    *rate.Limiter
	parser     *FeedParser
}

func NewFeedClient(cfg config.FeedConfig) *FeedClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &FeedClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		sortBy:     cfg.SortBy,
		sortOrder:  cfg.SortOrder,
		limiter:    rate.NewLimiter(limit, 1),
		parser:     NewFeedParser(),
	}
}

// Fetch requests pages of pageSize until the feed's reported total or
// totalLimit is reached. A page that fails to download or parse stops paging;
// the pages parsed so far are returned together with the error.
func (c *FeedClient) Fetch(ctx context.Context, query string, pageSize, totalLimit int) ([]FeedPage, error) {
	if pageSize <= 0 || totalLimit <= 0 {
		return nil, fmt.Errorf("page size and total limit must be positive, got %d and %d", pageSize, totalLimit)
	}

	var pages []FeedPage
	for start := 0; start < totalLimit; start += pageSize {
		if err := c.limiter.Wait(ctx); err != nil {
			return pages, err
		}
		size := pageSize
		if start+size > totalLimit {
			size = totalLimit - start
		}

		body, err := c.fetchPage(ctx, query, start, size)
		if err != nil {
			return pages, fmt.Errorf("page at %d: %w", start, err)
		}
		page, err := c.parser.ParsePage(body)
		if err != nil {
			return pages, fmt.Errorf("page at %d: %w", start, err)
		}
		pages = append(pages, page)
		logger.Debug("fetched page start=%d size=%d total=%d records=%d", start, size, page.Total, len(page.Records))

		if start+pageSize >= page.Total {
			break
		}
	}
	return pages, nil
}

func (c *FeedClient) fetchPage(ctx context.Context, query string, start, size int) (string, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", strconv.Itoa(start))
	params.Set("max_results", strconv.Itoa(size))
	if c.sortBy != "" {
		params.Set("sortBy", c.sortBy)
	}
	if c.sortOrder != "" {
		params.Set("sortOrder", c.sortOrder)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("feed returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read feed response: %w", err)
	}
	return string(data), nil
}
