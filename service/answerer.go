package service

import (
	"context"
	"fmt"

	"github.com/tieubaoca/arxiv-rag/config"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/types"
)

type State string

const (
	StateIdle           State = "IDLE"
	StateEmbeddingQuery State = "EMBEDDING_QUERY"
	StateRetrieving     State = "RETRIEVING"
	StateBuildingPrompt State = "BUILDING_PROMPT"
	StateGenerating     State = "GENERATING"
	StateExtending      State = "EXTENDING"
	StateDone           State = "DONE"
	StateError          State = "ERROR"
)

const (
	RetrievalErrorAnswer = "Error: couldn't retrieve the associated text"
	NoMatchAnswer        = "Sorry, I couldn't find an answer to your question in the indexed papers."
	FallbackAnswer       = "No valid answer found"
)

func tokenLimitAnswer(limit int) string {
	return fmt.Sprintf("Your query exceeds the %d token limit. The conversation history was trimmed, please ask again.", limit)
}

type Retriever interface {
	Query(ctx context.Context, embedding []float32, topK int) ([]types.QueryMatch, error)
}

type AnswererOptions struct {
	TopK           int
	MaxDocuments   int
	HardTokenLimit int
	SoftTokenLimit int
	MaxIterations  int
	HistoryKeep    int
	SummaryMaxLen  int
	Generation     types.GenerationOptions
}

func NewAnswererOptions(cfg config.AnswererConfig, gen types.GenerationOptions) AnswererOptions {
	return AnswererOptions{
		TopK:           cfg.TopK,
		MaxDocuments:   cfg.MaxDocuments,
		HardTokenLimit: cfg.HardTokenLimit,
		SoftTokenLimit: cfg.SoftTokenLimit,
		MaxIterations:  cfg.MaxIterations,
		HistoryKeep:    cfg.HistoryKeep,
		SummaryMaxLen:  cfg.SummaryMaxLen,
		Generation:     gen,
	}
}

// Result is what one question produced. Answer is always a readable string,
// including on failure.
type Result struct {
	Answer         string             `json:"answer"`
	State          State              `json:"state"`
	Trace          []State            `json:"trace"`
	PromptTokens   int                `json:"prompt_tokens"`
	AnswerTokens   int                `json:"answer_tokens"`
	Iterations     int                `json:"iterations"`
	HistoryTrimmed bool               `json:"history_trimmed"`
	BudgetExceeded bool               `json:"budget_exceeded"`
	Sources        []types.QueryMatch `json:"sources,omitempty"`
	Err            error              `json:"-"`
}

func (r *Result) enter(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

func (r *Result) fail(answer string, err error) *Result {
	r.enter(StateError)
	r.Answer = answer
	r.Err = err
	logger.Error("%s: %v", answer, err)
	return r
}

// Answerer answers questions over the vector index, one at a time.
type Answerer struct {
	embedder  Embedder
	retriever Retriever
	generator Generator
	tokenizer Tokenizer
	opts      AnswererOptions
}

func NewAnswerer(embedder Embedder, retriever Retriever, generator Generator, tokenizer Tokenizer, opts AnswererOptions) *Answerer {
	return &Answerer{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		tokenizer: tokenizer,
		opts:      opts,
	}
}

// Ask runs one question through retrieval and generation and records the
// exchange in conv. Turns that end in an error or over the token budget are
// not recorded.
func (a *Answerer) Ask(ctx context.Context, conv *types.ConversationContext, question string) *Result {
	res := &Result{}
	res.enter(StateIdle)

	if a.opts.SoftTokenLimit > 0 && conv.TotalTokens > a.opts.SoftTokenLimit {
		if conv.Trim(a.opts.HistoryKeep) {
			res.HistoryTrimmed = true
			logger.Info("conversation over %d tokens, history trimmed to %d message(s)", a.opts.SoftTokenLimit, len(conv.Messages))
		}
		conv.TotalTokens = a.tokenizer.Count(RenderHistory(conv.Messages))
	}

	res.enter(StateEmbeddingQuery)
	embedding, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return res.fail(RetrievalErrorAnswer, err)
	}

	res.enter(StateRetrieving)
	matches, err := a.retriever.Query(ctx, embedding, a.opts.TopK)
	if err != nil {
		return res.fail(RetrievalErrorAnswer, err)
	}
	if len(matches) == 0 {
		res.Answer = NoMatchAnswer
		res.enter(StateDone)
		conv.Append(types.RoleUser, question)
		conv.Append(types.RoleSystem, res.Answer)
		return res
	}
	if a.opts.MaxDocuments > 0 && len(matches) > a.opts.MaxDocuments {
		matches = matches[:a.opts.MaxDocuments]
	}
	res.Sources = matches

	res.enter(StateBuildingPrompt)
	documents := RenderDocuments(matches, a.opts.MaxDocuments, a.opts.SummaryMaxLen)
	documentTokens := a.tokenizer.Count(documents)
	prompt := BuildPrompt(conv.Level, conv.Messages, question)
	res.PromptTokens = a.tokenizer.Count(prompt) + documentTokens
	logger.Debug("prompt is %d token(s)", res.PromptTokens)

	if a.opts.HardTokenLimit > 0 && res.PromptTokens > a.opts.HardTokenLimit {
		res.BudgetExceeded = true
		for res.PromptTokens > a.opts.HardTokenLimit && conv.DropOldest() {
			res.HistoryTrimmed = true
			res.PromptTokens = a.tokenizer.Count(BuildPrompt(conv.Level, conv.Messages, question)) + documentTokens
		}
		conv.TotalTokens = a.tokenizer.Count(RenderHistory(conv.Messages))
		logger.Warn("prompt over %d tokens, generation skipped", a.opts.HardTokenLimit)
		res.Answer = tokenLimitAnswer(a.opts.HardTokenLimit)
		res.enter(StateDone)
		return res
	}

	res.enter(StateGenerating)
	req := GenerationRequest{Documents: documents, Prompt: prompt, Options: a.opts.Generation}
	output, err := a.generator.Generate(ctx, req)
	if err != nil {
		return res.fail("Error: "+err.Error(), err)
	}
	answer := CleanAnswer(output, prompt)

	res.enter(StateExtending)
	answer, res.Iterations = a.extend(ctx, req, answer)

	res.enter(StateDone)
	if answer == "" {
		answer = FallbackAnswer
	}
	res.Answer = answer
	res.AnswerTokens = a.tokenizer.Count(answer)
	conv.Append(types.RoleUser, question)
	conv.Append(types.RoleSystem, answer)
	conv.TotalTokens = res.PromptTokens + res.AnswerTokens
	return res
}

// extend resends the latest output until two successive outputs agree once
// whitespace and case are ignored, the model goes quiet, or MaxIterations
// calls have been made.
func (a *Answerer) extend(ctx context.Context, req GenerationRequest, answer string) (string, int) {
	if answer == "" {
		return "", 0
	}
	final := answer
	prev := answer
	iterations := 0
	for iterations < a.opts.MaxIterations {
		iterations++
		req.Prompt = prev
		output, err := a.generator.Generate(ctx, req)
		if err != nil {
			logger.Warn("answer extension stopped: %v", err)
			break
		}
		next := CleanAnswer(output, prev)
		if next == "" {
			logger.Debug("empty extension on iteration %d", iterations)
			break
		}
		if normalizeAnswer(next) == normalizeAnswer(prev) {
			logger.Debug("answer stabilized on iteration %d", iterations)
			break
		}
		final += " " + next
		prev = next
	}
	return final, iterations
}
