package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/arxiv-rag/config"
)

type testEntry struct {
	id, title, updated string
}

func atomPage(total int, entries ...testEntry) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title type="html">ArXiv Query</title>
  <id>http://arxiv.org/api/query</id>
  <updated>2024-05-01T00:00:00-04:00</updated>
`)
	fmt.Fprintf(&sb, "  <opensearch:totalResults xmlns:opensearch=\"http://a9.com/-/spec/opensearch/1.1/\">%d</opensearch:totalResults>\n", total)
	for _, e := range entries {
		fmt.Fprintf(&sb, `  <entry>
    <id>http://arxiv.org/abs/%[1]s</id>
    <updated>%[3]s</updated>
    <published>2024-01-01T00:00:00Z</published>
    <title>%[2]s
      continued</title>
    <summary>  Summary of   %[1]s. </summary>
    <author><name>First Author</name></author>
    <author><name>Second Author</name></author>
    <link href="http://arxiv.org/abs/%[1]s" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/%[1]s" rel="related" type="application/pdf"/>
  </entry>
`, e.id, e.title, e.updated)
	}
	sb.WriteString("</feed>\n")
	return sb.String()
}

func feedServer(t *testing.T, total int, fail func(start int) bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		size, _ := strconv.Atoi(r.URL.Query().Get("max_results"))
		assert.Equal(t, "all:quantum", r.URL.Query().Get("search_query"))
		if fail != nil && fail(start) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var entries []testEntry
		for i := start; i < start+size && i < total; i++ {
			entries = append(entries, testEntry{id: strconv.Itoa(i), title: "Paper", updated: "2024-02-01T00:00:00Z"})
		}
		fmt.Fprint(w, atomPage(total, entries...))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testFeedClient(url string) *FeedClient {
	cfg := config.Default().Feed
	cfg.BaseURL = url
	cfg.RequestsPerSecond = 0
	return NewFeedClient(cfg)
}

func TestFetchStopsAtReportedTotal(t *testing.T) {
	srv, calls := feedServer(t, 25, nil)

	pages, err := testFeedClient(srv.URL).Fetch(context.Background(), "all:quantum", 10, 1000)
	require.NoError(t, err)
	assert.Len(t, pages, 3)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetchStopsAtTotalLimit(t *testing.T) {
	srv, calls := feedServer(t, 100000, nil)

	pages, err := testFeedClient(srv.URL).Fetch(context.Background(), "all:quantum", 10, 25)
	require.NoError(t, err)
	assert.Len(t, pages, 3)
	assert.EqualValues(t, 3, calls.Load())

	assert.Len(t, pages[2].Records, 5)
	assert.Equal(t, 100000, pages[2].Total)
}

func TestFetchReturnsPartialOnError(t *testing.T) {
	srv, calls := feedServer(t, 100, func(start int) bool { return start == 10 })

	pages, err := testFeedClient(srv.URL).Fetch(context.Background(), "all:quantum", 10, 100)
	require.Error(t, err)
	assert.Len(t, pages, 1)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetchStopsWithoutTotal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, "<feed></feed>")
	}))
	defer srv.Close()

	pages, err := testFeedClient(srv.URL).Fetch(context.Background(), "all:quantum", 10, 100)
	require.ErrorIs(t, err, errNoTotal)
	assert.Empty(t, pages)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetchStopsOnUnparseablePage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		page := atomPage(50, testEntry{id: strconv.Itoa(start), title: "Paper", updated: "2024-02-01T00:00:00Z"})
		if start >= 10 {
			// cut inside the entry, after totalResults
			page = page[:strings.Index(page, "<summary>")]
		}
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	pages, err := testFeedClient(srv.URL).Fetch(context.Background(), "all:quantum", 10, 100)
	require.Error(t, err)
	require.Len(t, pages, 1)
	assert.Len(t, pages[0].Records, 1)
	assert.EqualValues(t, 2, calls.Load())
}

func TestParseFeed(t *testing.T) {
	payload := atomPage(2,
		testEntry{id: "2401.00001v1", title: "Quantum Things", updated: "2024-02-01T00:00:00Z"},
		testEntry{id: "2401.00002v2", title: "More Things", updated: "2024-02-02T00:00:00Z"},
	)

	records := NewFeedParser().Parse(payload)
	require.Len(t, records, 2)
	r := records[0]
	assert.Equal(t, "http://arxiv.org/abs/2401.00001v1", r.ID)
	assert.Equal(t, "Quantum Things continued", r.Title)
	assert.Equal(t, "Summary of 2401.00001v1.", r.Summary)
	assert.Equal(t, "First Author", r.Author)
	assert.Equal(t, "2024-01-01T00:00:00Z", r.Published)
	assert.Equal(t, "2024-02-01T00:00:00Z", r.Updated)
	assert.Equal(t, "http://arxiv.org/pdf/2401.00001v1", r.PDFLink)
	assert.NoError(t, r.Validate())

	page, err := NewFeedParser().ParsePage(payload)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, records, page.Records)
}

func TestParseInvalidPayload(t *testing.T) {
	p := NewFeedParser()
	for _, payload := range []string{"", "this is not xml", "<rss><channel></channel></rss>"} {
		got := p.Parse(payload)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}
