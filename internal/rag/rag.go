// Package rag answers questions from the report vector store: retrieve,
// rerank, prompt and generate.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"finreport-rag/internal/embedding"
	"finreport-rag/internal/helper"
	"finreport-rag/internal/llmservice"
	"finreport-rag/internal/models"
)

const (
	DefaultTopK        = 5
	DefaultTopN        = 3
	DefaultTemperature = 0.1
)

var ErrEmptyQuestion = errors.New("question must not be empty")

// Retriever is the read side of a vector store.
type Retriever interface {
	Query(ctx context.Context, embedding []float32, k int) ([]string, error)
}

// Reranker orders documents by relevance to query and keeps at most topN.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]string, error)
}

type Pipeline struct {
	embedder  embedding.Embedder
	retriever Retriever
	reranker  Reranker
	llm       llmservice.Generator

	TopK        int
	TopN        int
	Temperature float64
}

// NewPipeline wires the query pipeline with the default retrieval settings.
// A nil reranker keeps the retrieval order.
func NewPipeline(embedder embedding.Embedder, retriever Retriever, reranker Reranker, llm llmservice.Generator) *Pipeline {
	return &Pipeline{
		embedder:    embedder,
		retriever:   retriever,
		reranker:    reranker,
		llm:         llm,
		TopK:        DefaultTopK,
		TopN:        DefaultTopN,
		Temperature: DefaultTemperature,
	}
}

// Ask is Answer rendered as text: the answer on success, an error message
// otherwise.
func (p *Pipeline) Ask(ctx context.Context, question string) string {
	resp, err := p.Answer(ctx, question)
	if err != nil {
		return "流程出错：" + err.Error()
	}
	return resp.Content
}

// Answer runs the full pipeline. Every failure, panics included, is returned
// as an *Error.
func (p *Pipeline) Answer(ctx context.Context, question string) (resp *models.PromptResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Query pipeline panicked")
			resp = nil
			err = &Error{Kind: KindInternal, Stage: StageInternal, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &Error{Kind: KindInvalidInput, Stage: StageInput, Err: ErrEmptyQuestion}
	}

	docs, err := p.Retrieve(ctx, question)
	if err != nil {
		return nil, &Error{Kind: KindRetrieval, Stage: StageRetrieve, Err: err}
	}
	log.Debug().Int("retrieved", len(docs)).Msg("Retrieved passages")

	passages, reranked := p.Rerank(ctx, question, docs)

	prompt := BuildPrompt(question, passages)
	content, err := llmservice.GenerateContent(ctx, p.llm, prompt, p.Temperature)
	if err != nil {
		return nil, &Error{Kind: KindGeneration, Stage: StageGenerate, Err: err}
	}

	return &models.PromptResponse{
		Query:    question,
		Passages: passages,
		Content:  content,
		Reranked: reranked,
	}, nil
}

// Retrieve returns up to TopK passages nearest to the question. An empty store
// yields an empty slice.
func (p *Pipeline) Retrieve(ctx context.Context, question string) ([]string, error) {
	vector, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	docs, err := p.retriever.Query(ctx, vector, p.TopK)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Rerank keeps the TopN most relevant passages. Any rerank failure falls back
// to the first TopN passages in retrieval order, reported by a false second
// return value.
func (p *Pipeline) Rerank(ctx context.Context, question string, docs []string) ([]string, bool) {
	if len(docs) == 0 {
		return []string{}, false
	}
	fallback := docs[:min(p.TopN, len(docs))]
	if p.reranker == nil {
		return fallback, false
	}

	ranked, err := p.reranker.Rerank(ctx, question, docs, p.TopN)
	if err == nil && len(ranked) == 0 {
		err = errors.New("empty rerank result")
	}
	if err != nil {
		log.Warn().Err(err).Int("fallback", len(fallback)).Msg("Rerank failed, using retrieval order")
		return fallback, false
	}
	if len(ranked) > p.TopN {
		ranked = ranked[:p.TopN]
	}
	for i, doc := range ranked {
		log.Debug().Int("rank", i+1).Str("preview", helper.Preview(doc, 30)).Msg("Reranked passage")
	}
	return ranked, true
}

// BuildPrompt labels each passage 【资料i】 in order and places them before the
// question.
func BuildPrompt(question string, passages []string) string {
	labelled := make([]string, len(passages))
	for i, passage := range passages {
		labelled[i] = fmt.Sprintf(models.PassageLabelFormat, i+1, passage)
	}
	return fmt.Sprintf(models.PromptTemplate, strings.Join(labelled, models.PassageSeparator), question)
}
