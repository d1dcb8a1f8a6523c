package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tieubaoca/arxiv-rag/config"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/types"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const BATCH_SIZE = 200

// chunkNamespace derives Weaviate object ids from chunk ids, so the same
// chunk always lands on the same object.
var chunkNamespace = uuid.MustParse("6f1d4c3e-2b9a-4e57-9a61-0c8e2f7d5b14")

var chunkProperties = []*models.Property{
	{Name: "chunkId", DataType: []string{"text"}},
	{Name: "chunkIndex", DataType: []string{"int"}},
	{Name: "paperId", DataType: []string{"text"}},
	{Name: "title", DataType: []string{"text"}},
	{Name: "summary", DataType: []string{"text"}},
	{Name: "author", DataType: []string{"text"}},
	{Name: "published", DataType: []string{"text"}},
	{Name: "updated", DataType: []string{"text"}},
	{Name: "pdfLink", DataType: []string{"text"}},
	{Name: "text", DataType: []string{"text"}},
}

// WeaviateStore is a VectorIndex backed by a Weaviate class holding
// externally computed vectors.
type WeaviateStore struct {
	client *weaviate.Client
	class  string
}

func NewWeaviateStore(ctx context.Context, cfg config.WeaviateConfig, apiKey string) (*WeaviateStore, error) {
	var scheme string
	if strings.HasPrefix(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")
	wcfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if apiKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: apiKey}
		wcfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     apiKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	s := &WeaviateStore{client: client, class: cfg.Class}
	if err := s.ensureClass(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *WeaviateStore) classObject() *models.Class {
	return &models.Class{
		Class:           s.class,
		Properties:      chunkProperties,
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
	}
}

func (s *WeaviateStore) ensureClass(ctx context.Context) error {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get schema: %w", types.ErrIndexUnavailable, err)
	}
	for _, class := range schema.Classes {
		if class.Class == s.class {
			return nil
		}
	}
	if err := s.client.Schema().ClassCreator().WithClass(s.classObject()).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", s.class, err)
	}
	logger.Info("created weaviate class %s", s.class)
	return nil
}

// Reset drops and recreates the class.
func (s *WeaviateStore) Reset(ctx context.Context) error {
	if err := s.client.Schema().ClassDeleter().WithClassName(s.class).Do(ctx); err != nil {
		return fmt.Errorf("failed to delete %s class: %w", s.class, err)
	}
	if err := s.client.Schema().ClassCreator().WithClass(s.classObject()).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", s.class, err)
	}
	return nil
}

func (s *WeaviateStore) Add(ctx context.Context, id string, embedding []float32, metadata types.ChunkMetadata) error {
	return s.AddBatch(ctx, []types.Chunk{{ID: id, Text: metadata.Text, Embedding: embedding, Metadata: metadata}})
}

func (s *WeaviateStore) AddBatch(ctx context.Context, chunks []types.Chunk) error {
	total := len(chunks)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for _, c := range chunks[i:end] {
			batcher = batcher.WithObjects(&models.Object{
				Class:      s.class,
				ID:         objectID(c.ID),
				Properties: chunkToProperties(c.ID, c.Metadata),
				Vector:     c.Embedding,
			})
		}

		resp, err := batcher.Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %w", i, end, err)
		}
		for _, r := range resp {
			if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
				return fmt.Errorf("failed to insert object %s: %s", r.ID, r.Result.Errors.Error[0].Message)
			}
		}
		logger.Debug("inserted batch %d-%d of %d chunks", i, end, total)
	}
	return nil
}

func (s *WeaviateStore) Query(ctx context.Context, embedding []float32, topK int) ([]types.QueryMatch, error) {
	if topK <= 0 {
		return nil, nil
	}
	fields := make([]graphql.Field, 0, len(chunkProperties)+1)
	for _, p := range chunkProperties {
		fields = append(fields, graphql.Field{Name: p.Name})
	}
	fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}}})

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(embedding)
	result, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("search failed: %s", result.Errors[0].Message)
	}
	return parseMatches(result.Data, s.class), nil
}

func (s *WeaviateStore) Count(ctx context.Context) (int, error) {
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(s.class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("count failed: %s", result.Errors[0].Message)
	}
	return parseCount(result.Data, s.class), nil
}

func (s *WeaviateStore) Close() error {
	return nil
}

func objectID(chunkID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(chunkNamespace, []byte(chunkID)).String())
}

func chunkToProperties(id string, md types.ChunkMetadata) map[string]interface{} {
	return map[string]interface{}{
		"chunkId":    id,
		"chunkIndex": md.ChunkIndex,
		"paperId":    md.PaperID,
		"title":      md.Title,
		"summary":    md.Summary,
		"author":     md.Author,
		"published":  md.Published,
		"updated":    md.Updated,
		"pdfLink":    md.PDFLink,
		"text":       md.Text,
	}
}

func parseMatches(data map[string]models.JSONObject, class string) []types.QueryMatch {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	items, ok := get[class].([]interface{})
	if !ok {
		return nil
	}

	matches := make([]types.QueryMatch, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		m := types.QueryMatch{
			ID: stringProp(obj, "chunkId"),
			Metadata: types.ChunkMetadata{
				ChunkIndex: intProp(obj, "chunkIndex"),
				PaperID:    stringProp(obj, "paperId"),
				Title:      stringProp(obj, "title"),
				Summary:    stringProp(obj, "summary"),
				Author:     stringProp(obj, "author"),
				Published:  stringProp(obj, "published"),
				Updated:    stringProp(obj, "updated"),
				PDFLink:    stringProp(obj, "pdfLink"),
				Text:       stringProp(obj, "text"),
			},
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				m.Distance = float32(d)
			}
			if m.ID == "" {
				m.ID = stringProp(additional, "id")
			}
		}
		matches = append(matches, m)
	}
	return matches
}

func parseCount(data map[string]models.JSONObject, class string) int {
	agg, ok := data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0
	}
	items, ok := agg[class].([]interface{})
	if !ok || len(items) == 0 {
		return 0
	}
	first, ok := items[0].(map[string]interface{})
	if !ok {
		return 0
	}
	meta, ok := first["meta"].(map[string]interface{})
	if !ok {
		return 0
	}
	return intProp(meta, "count")
}

func stringProp(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func intProp(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
