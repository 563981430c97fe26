// Package ingest stores new report chunks in the vector store, skipping
// chunks whose content is already present.
package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"finreport-rag/internal/embedding"
	"finreport-rag/internal/helper"
	"finreport-rag/internal/models"
	"finreport-rag/internal/parser"
)

// Store is the write side of a vector store.
type Store interface {
	Existing(ctx context.Context, ids []string) (map[string]bool, error)
	Upsert(ctx context.Context, records []models.Record) error
	Count(ctx context.Context) (int, error)
}

// Stats reports the outcome of one ingestion run.
type Stats struct {
	Total   int
	Stored  int
	Skipped int
	Failed  int
}

type Pipeline struct {
	store    Store
	embedder embedding.Embedder
	chunker  *parser.Chunker
}

func NewPipeline(store Store, embedder embedding.Embedder, chunker *parser.Chunker) *Pipeline {
	return &Pipeline{store: store, embedder: embedder, chunker: chunker}
}

// Ingest stores the chunks not yet present. Running it twice on the same
// input stores nothing the second time.
func (p *Pipeline) Ingest(ctx context.Context, chunks []string) (Stats, error) {
	items := make([]models.Chunk, len(chunks))
	for i, text := range chunks {
		items[i] = models.Chunk{Content: text}
	}
	return p.IngestChunks(ctx, items)
}

// IngestDocument splits the cleaned text of one document and ingests it.
func (p *Pipeline) IngestDocument(ctx context.Context, source, cleanText string) (Stats, error) {
	texts, err := p.chunker.Split(cleanText)
	if err != nil {
		return Stats{}, err
	}
	items := make([]models.Chunk, len(texts))
	for i, text := range texts {
		items[i] = models.Chunk{Content: text, Source: source}
	}
	return p.IngestChunks(ctx, items)
}

// IngestChunks embeds and upserts the chunks whose content ID is unknown to
// the store. An embedding failure skips only that chunk; the upsert is a
// single call and is not rolled back on failure.
func (p *Pipeline) IngestChunks(ctx context.Context, chunks []models.Chunk) (Stats, error) {
	stats := Stats{Total: len(chunks)}

	ids := make([]string, len(chunks))
	for i := range chunks {
		if chunks[i].ID == "" {
			chunks[i].ID = helper.ContentID(chunks[i].Content)
		}
		ids[i] = chunks[i].ID
	}

	existing, err := p.store.Existing(ctx, ids)
	if err != nil {
		return stats, fmt.Errorf("failed to read existing ids: %w", err)
	}

	seen := make(map[string]bool, len(chunks))
	var records []models.Record
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if chunk.Content == "" || existing[chunk.ID] || seen[chunk.ID] {
			stats.Skipped++
			continue
		}
		seen[chunk.ID] = true

		vector, err := p.embedder.EmbedQuery(ctx, chunk.Content)
		if err == nil && len(vector) == 0 {
			err = fmt.Errorf("empty embedding")
		}
		if err != nil {
			log.Error().Err(err).
				Str("id", chunk.ID).
				Str("preview", helper.Preview(chunk.Content, 20)).
				Msg("Error generating embedding, skipping chunk")
			stats.Failed++
			continue
		}

		record := models.Record{ID: chunk.ID, Content: chunk.Content, Embedding: vector}
		if chunk.Source != "" {
			record.Metadata = map[string]string{models.MetadataSource: chunk.Source}
		}
		records = append(records, record)
		log.Debug().Int("index", i).Str("id", chunk.ID).Msg("Embedded chunk")
	}

	if len(records) == 0 {
		log.Info().Int("total", stats.Total).Msg("No new content detected, vector store is up to date")
		return stats, nil
	}

	if err := p.store.Upsert(ctx, records); err != nil {
		return stats, fmt.Errorf("failed to store chunks: %w", err)
	}
	stats.Stored = len(records)
	log.Info().
		Int("stored", stats.Stored).
		Int("total", stats.Total).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Incremental update completed")
	return stats, nil
}

// Count returns the number of records in the store.
func (p *Pipeline) Count(ctx context.Context) (int, error) {
	return p.store.Count(ctx)
}
