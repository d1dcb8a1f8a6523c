package types

import (
	"fmt"
	"strings"
)

// Unknown is the placeholder for optional record fields the feed left empty.
const Unknown = "unknown"

// Record is the metadata of one paper as published by the feed.
// Dates are kept as the feed's ISO-8601 strings; change detection
// compares them for equality only.
type Record struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Author    string `json:"author"`
	Published string `json:"published"`
	Updated   string `json:"updated"`
	PDFLink   string `json:"pdf_link"`
}

// Validate reports which required fields are missing.
func (r Record) Validate() error {
	var missing []string
	if strings.TrimSpace(r.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(r.Updated) == "" {
		missing = append(missing, "updated")
	}
	if strings.TrimSpace(r.PDFLink) == "" {
		missing = append(missing, "pdf_link")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w %q: missing %s", ErrInvalidRecord, r.ID, strings.Join(missing, ", "))
	}
	return nil
}

// ChunkMetadata is the provenance copied onto every chunk.
type ChunkMetadata struct {
	ChunkIndex int    `json:"chunk_index"`
	PaperID    string `json:"paper_id"`
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	Author     string `json:"author"`
	Published  string `json:"published"`
	Updated    string `json:"updated"`
	PDFLink    string `json:"pdf_link"`
	Text       string `json:"text"`
}

// NewChunkMetadata copies the record onto a chunk, filling empty optional
// fields with Unknown so nothing downstream has to.
func NewChunkMetadata(r Record, index int, text string) ChunkMetadata {
	return ChunkMetadata{
		ChunkIndex: index,
		PaperID:    r.ID,
		Title:      orUnknown(r.Title),
		Summary:    orUnknown(r.Summary),
		Author:     orUnknown(r.Author),
		Published:  orUnknown(r.Published),
		Updated:    orUnknown(r.Updated),
		PDFLink:    orUnknown(r.PDFLink),
		Text:       orUnknown(text),
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}

// Chunk is a token-bounded slice of a paper plus its embedding.
type Chunk struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Embedding []float32     `json:"embedding"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// QueryMatch is one ranked hit from the vector index.
type QueryMatch struct {
	ID       string        `json:"id"`
	Metadata ChunkMetadata `json:"metadata"`
	Distance float32       `json:"distance"`
}
