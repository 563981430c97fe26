package parser

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"finreport-rag/internal/config"
	"finreport-rag/internal/helper"
	"finreport-rag/internal/models"
)

var ErrNoDocuments = errors.New("no documents found")

// Processor turns a directory of reports into cleaned text and chunks.
// Directories may be local paths or any URL supported by viant/afs.
type Processor struct {
	fs       afs.Service
	cleaner  *Cleaner
	chunker  *Chunker
	cleanDir string
	chunkDir string
}

// ProcessResult summarises one ProcessDir run.
type ProcessResult struct {
	Documents []models.Document
	Chunks    []models.Chunk
	// Failed lists documents that produced no text.
	Failed []string
}

// Texts returns the chunk contents in order.
func (r *ProcessResult) Texts() []string {
	out := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = c.Content
	}
	return out
}

// NewProcessor builds a Processor from configuration. Empty output
// directories disable the corresponding files.
func NewProcessor(fs afs.Service, cfg *config.Config) (*Processor, error) {
	chunker, err := NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Processor{
		fs:       fs,
		cleaner:  NewCleaner(cfg.RAG.BoilerplateKeyword, cfg.RAG.MinLineLength),
		chunker:  chunker,
		cleanDir: cfg.Paths.CleanTextDir,
		chunkDir: cfg.Paths.ChunkDir,
	}, nil
}

// WithoutOutputs returns a copy that does not write intermediate files.
func (p *Processor) WithoutOutputs() *Processor {
	cp := *p
	cp.cleanDir, cp.chunkDir = "", ""
	return &cp
}

// ProcessDir cleans and chunks every supported document in dir, writes the
// clean text and chunk files, and returns the chunks of all documents.
func (p *Processor) ProcessDir(ctx context.Context, dir string) (*ProcessResult, error) {
	location, err := normalizeLocation(dir)
	if err != nil {
		return nil, err
	}
	exists, err := p.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", dir, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: directory %s does not exist", ErrSourceNotFound, dir)
	}

	objects, err := p.fs.List(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var names []string
	for _, object := range objects {
		if object.IsDir() || !IsSupported(object.Name()) {
			continue
		}
		names = append(names, object.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no supported documents in %s", ErrNoDocuments, dir)
	}
	sort.Strings(names)

	result := &ProcessResult{}
	var all []string
	for i, name := range names {
		log.Info().Str("document", name).Msgf("Processing document %d/%d", i+1, len(names))
		data, err := p.fs.DownloadWithURL(ctx, url.Join(location, name))
		if err != nil {
			log.Error().Err(err).Str("document", name).Msg("Error reading document")
			result.Failed = append(result.Failed, name)
			continue
		}
		doc, chunks, err := p.ProcessDocument(ctx, name, data)
		if err != nil {
			return nil, err
		}
		if doc.CleanText == "" {
			result.Failed = append(result.Failed, name)
			continue
		}
		result.Documents = append(result.Documents, *doc)
		result.Chunks = append(result.Chunks, chunks...)
		for _, c := range chunks {
			all = append(all, c.Content)
		}
	}

	if p.chunkDir != "" {
		chunkDir, err := normalizeLocation(p.chunkDir)
		if err != nil {
			return nil, err
		}
		if err := writeFile(ctx, p.fs, url.Join(chunkDir, models.AggregateChunkFile), FormatChunkFile(all)); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("documents", len(result.Documents)).
		Int("failed", len(result.Failed)).
		Int("chunks", len(result.Chunks)).
		Msg("Processing completed")
	return result, nil
}

// ProcessFile reads a single document from location and processes it.
func (p *Processor) ProcessFile(ctx context.Context, location string) (*models.Document, []models.Chunk, error) {
	norm, err := normalizeLocation(location)
	if err != nil {
		return nil, nil, err
	}
	exists, err := p.fs.Exists(ctx, norm)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check %s: %w", location, err)
	}
	if !exists {
		return nil, nil, fmt.Errorf("%w: %s does not exist", ErrSourceNotFound, location)
	}
	data, err := p.fs.DownloadWithURL(ctx, norm)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	_, name := url.Split(norm, "")
	return p.ProcessDocument(ctx, name, data)
}

// ProcessDocument extracts, cleans and chunks one document. Extraction
// failures are logged and yield an empty document rather than an error.
func (p *Processor) ProcessDocument(ctx context.Context, name string, data []byte) (*models.Document, []models.Chunk, error) {
	doc := &models.Document{Name: name}
	pages, err := ExtractPages(name, data)
	if err != nil {
		log.Error().Err(err).Str("document", name).Msg("Error extracting text")
		return doc, nil, nil
	}
	doc.Pages = pages
	doc.CleanText = p.cleaner.CleanPages(pages)
	if doc.CleanText == "" {
		log.Warn().Str("document", name).Msg("No text left after cleaning")
		return doc, nil, nil
	}

	texts, err := p.chunker.Split(doc.CleanText)
	if err != nil {
		return nil, nil, err
	}
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{ID: helper.ContentID(text), Content: text, Source: name}
	}

	if err := p.writeOutputs(ctx, name, doc.CleanText, texts); err != nil {
		return nil, nil, err
	}
	return doc, chunks, nil
}

func (p *Processor) writeOutputs(ctx context.Context, name, cleanText string, chunks []string) error {
	base := strings.TrimSuffix(name, path.Ext(name))
	if p.cleanDir != "" {
		dir, err := normalizeLocation(p.cleanDir)
		if err != nil {
			return err
		}
		if err := writeFile(ctx, p.fs, url.Join(dir, base+".txt"), []byte(cleanText)); err != nil {
			return err
		}
	}
	if p.chunkDir != "" {
		dir, err := normalizeLocation(p.chunkDir)
		if err != nil {
			return err
		}
		if err := writeFile(ctx, p.fs, url.Join(dir, base+models.ChunkFileSuffix), formatDocumentChunks(chunks)); err != nil {
			return err
		}
	}
	return nil
}
