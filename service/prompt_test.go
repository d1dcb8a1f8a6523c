package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tieubaoca/arxiv-rag/types"
)

func TestBuildInstructionPerLevel(t *testing.T) {
	seen := map[string]bool{}
	for _, level := range types.ExpertiseLevels() {
		ins := BuildInstruction(level)
		assert.True(t, strings.HasPrefix(ins, instruction))
		assert.Contains(t, ins, "```python")
		seen[ins] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, BuildInstruction(types.Intermediate), BuildInstruction("Guru"))
}

func TestBuildPrompt(t *testing.T) {
	history := []types.Message{
		{Role: types.RoleUser, Content: "What is a qubit?"},
		{Role: types.RoleSystem, Content: "A two-level system."},
	}
	prompt := BuildPrompt(types.Expert, history, "And entanglement?")

	assert.Contains(t, prompt, "user: What is a qubit?\nsystem: A two-level system.\nuser:\nAnd entanglement?\n")
	assert.True(t, strings.HasSuffix(prompt, questionSeparator+"\n\nsystem:"))
	assert.Contains(t, prompt, levelInstructions[types.Expert])
}

func TestRenderDocuments(t *testing.T) {
	matches := make([]types.QueryMatch, 7)
	for i := range matches {
		matches[i].Metadata = types.ChunkMetadata{Title: "T", Summary: strings.Repeat("é", 400), Text: "body"}
	}
	out := RenderDocuments(matches, 5, 300)

	assert.Equal(t, 5, strings.Count(out, "Title: T"))
	assert.Contains(t, out, "Document 5\n")
	assert.NotContains(t, out, "Document 6")
	assert.Contains(t, out, "Summary: "+strings.Repeat("é", 300)+"\n")
}

func TestCleanAnswer(t *testing.T) {
	assert.Equal(t, "Qubits are cool.", CleanAnswer("PROMPT Answer: Qubits are cool.  ", "PROMPT"))
	assert.Equal(t, "plain", CleanAnswer(" plain ", ""))
	assert.Equal(t, normalizeAnswer("A  b\nC"), normalizeAnswer("abc"))
}
