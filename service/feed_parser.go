package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed/atom"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/types"
)

type FeedParser struct {
	parser *atom.Parser
}

func NewFeedParser() *FeedParser {
	return &FeedParser{parser: &atom.Parser{}}
}

var errNoTotal = errors.New("page does not report totalResults")

// FeedPage is one parsed page of query results together with the total the
// feed reports for the whole query.
type FeedPage struct {
	Records []types.Record
	Total   int
}

// Parse turns one Atom page into records. An unparseable payload yields an
// empty slice and a logged warning.
func (p *FeedParser) Parse(payload string) []types.Record {
	page, err := p.ParsePage(payload)
	if err != nil && page.Records == nil {
		logger.Warn("failed to parse feed payload: %v", err)
		return []types.Record{}
	}
	return page.Records
}

// ParsePage parses one page and reads opensearch:totalResults. A page that
// parses but carries no total returns its records along with errNoTotal.
func (p *FeedParser) ParsePage(payload string) (FeedPage, error) {
	if strings.TrimSpace(payload) == "" {
		return FeedPage{}, errors.New("empty feed payload")
	}
	feed, err := p.parser.Parse(strings.NewReader(payload))
	if err != nil {
		return FeedPage{}, err
	}

	page := FeedPage{Records: entriesToRecords(feed.Entries)}
	total, err := totalResults(feed)
	if err != nil {
		return page, err
	}
	page.Total = total
	return page, nil
}

func totalResults(feed *atom.Feed) (int, error) {
	values := feed.Extensions["opensearch"]["totalResults"]
	if len(values) == 0 {
		return 0, errNoTotal
	}
	n, err := strconv.Atoi(strings.TrimSpace(values[0].Value))
	if err != nil {
		return 0, fmt.Errorf("bad totalResults %q: %w", values[0].Value, err)
	}
	return n, nil
}

func entriesToRecords(entries []*atom.Entry) []types.Record {
	records := []types.Record{}
	for _, e := range entries {
		if e == nil {
			continue
		}
		rec := types.Record{
			ID:        strings.TrimSpace(e.ID),
			Title:     collapseSpace(e.Title),
			Summary:   collapseSpace(e.Summary),
			Published: strings.TrimSpace(e.Published),
			Updated:   strings.TrimSpace(e.Updated),
		}
		if len(e.Authors) > 0 && e.Authors[0] != nil {
			rec.Author = strings.TrimSpace(e.Authors[0].Name)
		}
		rec.PDFLink = pdfLink(e.Links)
		records = append(records, rec)
	}
	return records
}

func pdfLink(links []*atom.Link) string {
	for _, l := range links {
		if l != nil && l.Title == "pdf" {
			return l.Href
		}
	}
	for _, l := range links {
		if l != nil && l.Type == "application/pdf" {
			return l.Href
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
