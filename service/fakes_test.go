package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tieubaoca/arxiv-rag/types"
)

type fakeExtractor struct {
	texts map[string]string
}

func (f *fakeExtractor) Extract(_ context.Context, link string) (string, error) {
	text, ok := f.texts[link]
	if !ok {
		return "", fmt.Errorf("%w: no such document %s", types.ErrExtraction, link)
	}
	return text, nil
}

// fakeEmbedder maps text to a small deterministic vector.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if strings.Contains(text, "EMBEDFAIL") {
		return nil, errors.New("embedding service down")
	}
	return []float32{float32(len(text)), float32(strings.Count(text, "a")) + 1}, nil
}

type fakeGenerator struct {
	replies []string
	errs    []error
	calls   []GenerationRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req GenerationRequest) (string, error) {
	i := len(f.calls)
	f.calls = append(f.calls, req)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	if i >= len(f.replies) {
		return f.replies[len(f.replies)-1], nil
	}
	return f.replies[i], nil
}

func words(n int, word string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%d", word, i)
	}
	return strings.Join(parts, " ")
}
