package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordValidate(t *testing.T) {
	ok := Record{ID: "http://arxiv.org/abs/1", Title: "T", Updated: "2024-01-01T00:00:00Z", PDFLink: "http://arxiv.org/pdf/1"}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.Title = "  "
	bad.PDFLink = ""
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRecord))
	assert.Contains(t, err.Error(), "title, pdf_link")
}

func TestNewChunkMetadataDefaults(t *testing.T) {
	md := NewChunkMetadata(Record{ID: "x", Title: "Paper"}, 2, "body")
	assert.Equal(t, 2, md.ChunkIndex)
	assert.Equal(t, "x", md.PaperID)
	assert.Equal(t, "Paper", md.Title)
	assert.Equal(t, Unknown, md.Author)
	assert.Equal(t, Unknown, md.Summary)
	assert.Equal(t, Unknown, md.Published)
	assert.Equal(t, "body", md.Text)
}
