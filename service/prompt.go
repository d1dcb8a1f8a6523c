package service

import (
	"fmt"
	"strings"

	"github.com/tieubaoca/arxiv-rag/types"
)

// ''' stands in for a markdown code fence, which a raw string cannot hold.
const instructionTemplate = `
Instructions:

    You are a scientific expert. Follow these guidelines to provide clear, structured, and engaging explanations:

        1. **Adapt to the question**:
           - Match your tone and explanation depth to the user's expertise.
           - Use formal or conversational language based on the question style.

        2. **Always** format your response in **Markdown**:
           - Use title, headers and subheaders to organize your content
           - Use **bullet points** for lists of ideas or steps.
           - Emphasize important terms using **bold** or *italic* text.
           - Separate different topics into paragraphs or distinct sections.
           - Pay attention to formatting markdown correctly with specials characters for a correct display.

        3. **Simplify complex ideas**:
           - Divide complex concepts into smaller, understandable parts.
           - Use real-world examples or analogies to make abstract ideas concrete.
           - Generate the content as a articles, cheat sheet, codes examples or scientific papers synthesis.

        4. **Code & technical content**:
           - When including code, enclose it in '''python **code blocks** ''' for better readability.
           - Incorporate technical terms, but explain them in an accessible way.

        5. **Citations**:
           - Include credible sources from scientist, and cite them clearly.

        6. **User-centered response**:
           - Keep the user's perspective in mind. Provide explanations that are clear, informative, and moderately detailed.
           - Don't imagine a user question, always answer the latest query.
           - In case of ambiguity, ask for clarification or provide multiple interpretations.

    Now, `

var instruction = strings.ReplaceAll(instructionTemplate, "'''", "```")

var levelInstructions = map[types.ExpertiseLevel]string{
	types.Beginner:     "provide an easy-to-understand explanation for the following query, avoiding technical terms or complex concepts:\n",
	types.Intermediate: "provide a clear and moderately detailed explanation for the following query, including some technical terms but keeping the explanation accessible:\n",
	types.Advanced:     "provide a comprehensive and detailed answer for the following query, incorporating technical terms and concepts, and offering a deeper exploration of the topic:\n",
	types.Expert:       "provide a highly technical, in-depth, and nuanced answer for the following query, using advanced terminology and concepts:\n",
}

const questionSeparator = "_____________________________"

// BuildInstruction returns the instruction header for level. Unknown levels
// get the Intermediate directive.
func BuildInstruction(level types.ExpertiseLevel) string {
	directive, ok := levelInstructions[level]
	if !ok {
		directive = levelInstructions[types.Intermediate]
	}
	return instruction + directive
}

// RenderHistory writes one "role: content" line per message.
func RenderHistory(messages []types.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		role := types.RoleSystem
		if m.Role == types.RoleUser {
			role = types.RoleUser
		}
		lines = append(lines, role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt assembles instruction, history and question into the text sent
// as the generation prompt.
func BuildPrompt(level types.ExpertiseLevel, history []types.Message, question string) string {
	query := RenderHistory(history) + "\nuser:\n" + question + "\n" + questionSeparator + "\n" + "\nsystem:"
	return BuildInstruction(level) + "\n" + query
}

// RenderDocuments formats at most max matches as numbered documents, with
// summaries cut to summaryLen runes.
func RenderDocuments(matches []types.QueryMatch, max, summaryLen int) string {
	if max > 0 && len(matches) > max {
		matches = matches[:max]
	}
	var sb strings.Builder
	for i, m := range matches {
		md := m.Metadata
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Document %d\n", i+1)
		fmt.Fprintf(&sb, "Title: %s\n", md.Title)
		fmt.Fprintf(&sb, "Author: %s\n", md.Author)
		fmt.Fprintf(&sb, "Published: %s\n", md.Published)
		fmt.Fprintf(&sb, "Summary: %s\n", truncateRunes(md.Summary, summaryLen))
		fmt.Fprintf(&sb, "PDF: %s\n", md.PDFLink)
		fmt.Fprintf(&sb, "Text: %s\n", md.Text)
	}
	return sb.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// CleanAnswer removes an echoed prompt and any "Answer:" marker from a
// model output.
func CleanAnswer(output, prompt string) string {
	if prompt != "" {
		output = strings.ReplaceAll(output, prompt, "")
	}
	output = strings.ReplaceAll(output, "Answer:", "")
	return strings.TrimSpace(output)
}

// normalizeAnswer drops all whitespace and lowercases, for comparing
// successive outputs of the extension loop.
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
