package service

import (
	"context"
	"fmt"

	"github.com/tieubaoca/arxiv-rag/database"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/types"
)

type ChunkProcessor interface {
	ProcessAll(ctx context.Context, recs []types.Record) []DocumentChunks
}

// ProcessedTracker is the checkpoint of papers already in the index.
type ProcessedTracker interface {
	Filter(links []string) []string
	Add(links ...string) error
	Len() int
}

// CreateBatches cuts items into contiguous slices of ceil(len*pct/100)
// elements, at least one per slice.
func CreateBatches[T any](items []T, pct int) [][]T {
	if len(items) == 0 {
		return nil
	}
	size := (len(items)*pct + 99) / 100
	if size < 1 {
		size = 1
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}

type BatchReport struct {
	Batch      int `json:"batch"`
	Batches    int `json:"batches"`
	Documents  int `json:"documents"`
	Indexed    int `json:"indexed"`
	Failed     int `json:"failed"`
	Chunks     int `json:"chunks"`
	IndexCount int `json:"index_count"`
}

type LoadReport struct {
	Total            int           `json:"total"`
	AlreadyProcessed int           `json:"already_processed"`
	Skipped          int           `json:"skipped"` // no PDF link, or a link seen earlier in the list
	Pending          int           `json:"pending"`
	Indexed          int           `json:"indexed"`
	Failed           int           `json:"failed"`
	Chunks           int           `json:"chunks"`
	Batches          []BatchReport `json:"batches"`
}

// Loader chunks papers batch by batch into the vector index and checkpoints
// the processed set after every batch.
type Loader struct {
	chunker   ChunkProcessor
	index     database.VectorIndex
	processed ProcessedTracker
	batchPct  int

	// OnBatch, when set, is called after each batch is checkpointed.
	OnBatch func(BatchReport)
}

func NewLoader(chunker ChunkProcessor, index database.VectorIndex, processed ProcessedTracker, batchPct int) (*Loader, error) {
	if batchPct <= 0 || batchPct > 100 {
		return nil, fmt.Errorf("%w: batch_pct must be in 1..100, got %d", types.ErrInvalidConfig, batchPct)
	}
	return &Loader{chunker: chunker, index: index, processed: processed, batchPct: batchPct}, nil
}

// Pending returns the records whose PDF link is not yet processed, keeping
// the first record for each link.
func (l *Loader) Pending(recs []types.Record) []types.Record {
	pending, _ := l.pending(recs)
	return pending
}

// pending also reports how many distinct links recs carry.
func (l *Loader) pending(recs []types.Record) ([]types.Record, int) {
	byLink := make(map[string]types.Record, len(recs))
	links := make([]string, 0, len(recs))
	for _, r := range recs {
		if r.PDFLink == "" {
			continue
		}
		if _, ok := byLink[r.PDFLink]; ok {
			continue
		}
		byLink[r.PDFLink] = r
		links = append(links, r.PDFLink)
	}

	todo := l.processed.Filter(links)
	pending := make([]types.Record, 0, len(todo))
	for _, link := range todo {
		pending = append(pending, byLink[link])
	}
	return pending, len(links)
}

func (l *Loader) Run(ctx context.Context, recs []types.Record) (*LoadReport, error) {
	logger.Section("Ingest")
	pending, unique := l.pending(recs)
	report := &LoadReport{
		Total:            len(recs),
		AlreadyProcessed: unique - len(pending),
		Skipped:          len(recs) - unique,
		Pending:          len(pending),
	}
	logger.Info("%d document(s) already processed, %d new", report.AlreadyProcessed, report.Pending)

	batches := CreateBatches(pending, l.batchPct)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		br, err := l.LoadBatch(ctx, batch)
		br.Batch = i + 1
		br.Batches = len(batches)
		report.Batches = append(report.Batches, br)
		report.Indexed += br.Indexed
		report.Failed += br.Failed
		report.Chunks += br.Chunks
		if err != nil {
			return report, err
		}
		logger.Info("batch %d/%d: %d indexed, %d failed, index holds %d chunk(s)",
			br.Batch, br.Batches, br.Indexed, br.Failed, br.IndexCount)
		if l.OnBatch != nil {
			l.OnBatch(br)
		}
	}
	return report, nil
}

// LoadBatch chunks recs and adds every chunk to the index in chunk order.
// Papers whose chunks were all added are checkpointed together; failed
// papers stay pending for the next run. The returned error is only set when
// the checkpoint itself could not be written.
func (l *Loader) LoadBatch(ctx context.Context, recs []types.Record) (BatchReport, error) {
	br := BatchReport{Documents: len(recs)}
	results := l.chunker.ProcessAll(ctx, recs)

	done := make([]string, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			br.Failed++
			continue
		}
		if err := l.addChunks(ctx, res.Chunks); err != nil {
			logger.Warn("failed to index %s: %v", res.Record.PDFLink, err)
			br.Failed++
			continue
		}
		br.Indexed++
		br.Chunks += len(res.Chunks)
		done = append(done, res.Record.PDFLink)
	}

	if err := l.processed.Add(done...); err != nil {
		return br, err
	}

	count, err := l.index.Count(ctx)
	if err != nil {
		logger.Warn("failed to count index: %v", err)
	}
	br.IndexCount = count
	return br, nil
}

func (l *Loader) addChunks(ctx context.Context, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if b, ok := l.index.(database.BatchAdder); ok {
		return b.AddBatch(ctx, chunks)
	}
	for _, c := range chunks {
		if err := l.index.Add(ctx, c.ID, c.Embedding, c.Metadata); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
	}
	return nil
}
