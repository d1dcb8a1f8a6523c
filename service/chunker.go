package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/types"
	"golang.org/x/sync/errgroup"
)

var paragraphRe = regexp.MustCompile(`\n[ \t]*\n`)

// Chunker turns a paper into token-bounded, embedded chunks.
type Chunker struct {
	extractor TextExtractor
	embedder  Embedder
	tokenizer Tokenizer
	sentences *sentences.DefaultSentenceTokenizer
	chunkSize int
	workers   int
}

func NewChunker(extractor TextExtractor, embedder Embedder, tokenizer Tokenizer, chunkSize, workers int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", types.ErrInvalidConfig, chunkSize)
	}
	if workers <= 0 {
		workers = 1
	}
	st, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence tokenizer: %w", err)
	}
	return &Chunker{
		extractor: extractor,
		embedder:  embedder,
		tokenizer: tokenizer,
		sentences: st,
		chunkSize: chunkSize,
		workers:   workers,
	}, nil
}

// units splits text into paragraphs on blank lines and each paragraph into
// sentences. Whitespace inside a unit is collapsed.
func (c *Chunker) units(text string) []string {
	var units []string
	for _, para := range paragraphRe.Split(text, -1) {
		if strings.TrimSpace(para) == "" {
			continue
		}
		for _, s := range c.sentences.Tokenize(para) {
			if u := strings.Join(strings.Fields(s.Text), " "); u != "" {
				units = append(units, u)
			}
		}
	}
	return units
}

// Split packs units greedily: a unit joins the current chunk while the result
// stays within chunkSize tokens; a unit larger than chunkSize on its own is
// cut into fixed windows.
func (c *Chunker) Split(text string) []string {
	var chunks []string
	current := ""
	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}

	for _, u := range c.units(text) {
		candidate := u
		if current != "" {
			candidate = current + " " + u
		}
		if c.tokenizer.Count(candidate) <= c.chunkSize {
			current = candidate
			continue
		}
		flush()
		if c.tokenizer.Count(u) > c.chunkSize {
			chunks = append(chunks, c.tokenizer.Split(u, c.chunkSize)...)
			continue
		}
		current = u
	}
	flush()
	return chunks
}

// Process extracts, splits and embeds one paper. An empty document yields
// no chunks and no error.
func (c *Chunker) Process(ctx context.Context, rec types.Record) ([]types.Chunk, error) {
	text, err := c.extractor.Extract(ctx, rec.PDFLink)
	if err != nil {
		return nil, err
	}
	texts := c.Split(text)
	if len(texts) == 0 {
		logger.Debug("%s has no text", rec.PDFLink)
		return nil, nil
	}

	prefix := uuid.NewString()
	chunks := make([]types.Chunk, 0, len(texts))
	for i, t := range texts {
		index := i + 1
		emb, err := c.embedder.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %d of %s: %w", index, rec.PDFLink, err)
		}
		chunks = append(chunks, types.Chunk{
			ID:        fmt.Sprintf("%s_chunk_%d", prefix, index),
			Text:      t,
			Embedding: emb,
			Metadata:  types.NewChunkMetadata(rec, index, t),
		})
	}
	return chunks, nil
}

// DocumentChunks is the outcome of processing one paper.
type DocumentChunks struct {
	Record types.Record
	Chunks []types.Chunk
	Err    error
}

// ProcessAll runs Process over recs on a bounded pool. Results are in input
// order; a failed paper carries its error and no chunks.
func (c *Chunker) ProcessAll(ctx context.Context, recs []types.Record) []DocumentChunks {
	results := make([]DocumentChunks, len(recs))
	var g errgroup.Group
	g.SetLimit(c.workers)

	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			chunks, err := c.Process(ctx, rec)
			if err != nil {
				logger.Warn("failed to process %s: %v", rec.PDFLink, err)
				results[i] = DocumentChunks{Record: rec, Err: err}
				return nil
			}
			results[i] = DocumentChunks{Record: rec, Chunks: chunks}
			return nil
		})
	}
	g.Wait()
	return results
}
