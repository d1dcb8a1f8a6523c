/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/tieubaoca/arxiv-rag/config"
	"github.com/tieubaoca/arxiv-rag/database"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/repository"
	"github.com/tieubaoca/arxiv-rag/service"
	"golang.org/x/time/rate"
)

// app builds each long-lived dependency at most once per process and closes
// them in reverse order.
type app struct {
	cfg     *config.Config
	closers []io.Closer

	store         *database.MetadataStore
	processed     *database.ProcessedSet
	index         database.VectorIndex
	embedder      service.Embedder
	generator     service.Generator
	tokenizer     service.Tokenizer
	conversations *service.ConversationService
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("loaded config from %s", cfgFile)
	return &app{cfg: cfg}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warn("close failed: %v", err)
		}
	}
	a.closers = nil
}

func (a *app) MetadataStore() (*database.MetadataStore, error) {
	if a.store == nil {
		s, err := database.NewMetadataStore(a.cfg.MetadataStorePath())
		if err != nil {
			return nil, err
		}
		a.store = s
		a.closers = append(a.closers, s)
	}
	return a.store, nil
}

func (a *app) ProcessedSet() (*database.ProcessedSet, error) {
	if a.processed == nil {
		p, err := database.OpenProcessedSet(a.cfg.StatePath())
		if err != nil {
			return nil, err
		}
		a.processed = p
		a.closers = append(a.closers, p)
	}
	return a.processed, nil
}

func (a *app) VectorIndex(ctx context.Context) (database.VectorIndex, error) {
	if a.index != nil {
		return a.index, nil
	}
	var (
		idx database.VectorIndex
		err error
	)
	switch a.cfg.VectorIndex.Type {
	case "memory":
		idx = database.NewMemoryIndex()
	case "local":
		idx, err = database.OpenLocalIndex(a.cfg.VectorIndexPath())
	case "weaviate":
		idx, err = database.NewWeaviateStore(ctx, a.cfg.VectorIndex.Weaviate, a.cfg.WeaviateAPIKey)
	default:
		err = fmt.Errorf("unknown vector index type %q", a.cfg.VectorIndex.Type)
	}
	if err != nil {
		return nil, err
	}
	a.index = idx
	a.closers = append(a.closers, idx)
	return idx, nil
}

type aiService interface {
	service.Embedder
	service.Generator
}

func (a *app) provider(ctx context.Context, p config.ProviderConfig) (aiService, error) {
	switch p.Provider {
	case "openai":
		return service.NewOpenAIService(p.BaseURL, a.cfg.OpenAIAPIKey, p.Model), nil
	case "gemini":
		s, err := service.NewGeminiService(ctx, a.cfg.GeminiAPIKey, p.Model)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	}
	return nil, fmt.Errorf("unknown provider %q", p.Provider)
}

func (a *app) Embedder(ctx context.Context) (service.Embedder, error) {
	if a.embedder == nil {
		s, err := a.provider(ctx, a.cfg.Embedding)
		if err != nil {
			return nil, err
		}
		a.embedder = s
	}
	return a.embedder, nil
}

func (a *app) Generator(ctx context.Context) (service.Generator, error) {
	if a.generator == nil {
		s, err := a.provider(ctx, a.cfg.Generation.ProviderConfig)
		if err != nil {
			return nil, err
		}
		a.generator = s
	}
	return a.generator, nil
}

func (a *app) Tokenizer() (service.Tokenizer, error) {
	if a.tokenizer == nil {
		switch a.cfg.Chunker.Tokenizer {
		case "words":
			a.tokenizer = service.WordTokenizer{}
		default:
			t, err := service.NewTiktokenTokenizer(a.cfg.Chunker.Encoding)
			if err != nil {
				return nil, err
			}
			a.tokenizer = t
		}
	}
	return a.tokenizer, nil
}

func (a *app) Extractor() *service.PDFService {
	return service.NewPDFService(a.cfg.DownloadDir(), a.cfg.Chunker.OCRLanguage, a.limiter())
}

func (a *app) limiter() *rate.Limiter {
	if a.cfg.Feed.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(a.cfg.Feed.RequestsPerSecond), 1)
}

func (a *app) Chunker(ctx context.Context) (*service.Chunker, error) {
	embedder, err := a.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	tokenizer, err := a.Tokenizer()
	if err != nil {
		return nil, err
	}
	return service.NewChunker(a.Extractor(), embedder, tokenizer, a.cfg.Chunker.ChunkSize, a.cfg.Chunker.Workers)
}

func (a *app) Answerer(ctx context.Context) (*service.Answerer, error) {
	embedder, err := a.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	index, err := a.VectorIndex(ctx)
	if err != nil {
		return nil, err
	}
	generator, err := a.Generator(ctx)
	if err != nil {
		return nil, err
	}
	tokenizer, err := a.Tokenizer()
	if err != nil {
		return nil, err
	}
	opts := service.NewAnswererOptions(a.cfg.Answerer, a.cfg.Generation.Options)
	return service.NewAnswerer(embedder, index, generator, tokenizer, opts), nil
}

func (a *app) Conversations(ctx context.Context) (*service.ConversationService, error) {
	if a.conversations != nil {
		return a.conversations, nil
	}
	var store repository.ConversationStore
	switch a.cfg.Conversations.Store {
	case "mongo":
		client, err := database.NewMongoClient(ctx, a.cfg.MongoDBURI)
		if err != nil {
			return nil, err
		}
		m := a.cfg.Conversations.Mongo
		store = repository.NewConversationRepo(client.Database(m.Database).Collection(m.Collection))
	default:
		s, err := database.NewBoltConversationStore(a.cfg.ConversationsPath())
		if err != nil {
			return nil, err
		}
		store = s
	}
	a.conversations = service.NewConversationService(store)
	a.closers = append(a.closers, a.conversations)
	return a.conversations, nil
}
