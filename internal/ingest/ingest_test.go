package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"finreport-rag/internal/chromemdb"
	"finreport-rag/internal/helper"
	"finreport-rag/internal/models"
	"finreport-rag/internal/parser"
)

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if strings.Contains(text, "FAIL") {
		return nil, errors.New("embedding service unavailable")
	}
	v := []float32{1, 0, 0}
	for i, r := range text {
		v[i%3] += float32(r%7) / 10
	}
	return v, nil
}

type failingStore struct {
	*chromemdb.VectorDBManager
	upsertErr error
}

func (s *failingStore) Upsert(context.Context, []models.Record) error {
	return s.upsertErr
}

func newPipeline(t *testing.T) (*Pipeline, *chromemdb.VectorDBManager, *fakeEmbedder) {
	t.Helper()
	store, err := chromemdb.NewVectorDBManager("", "ingest_test", true, false, "")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	chunker, err := parser.NewChunker(20, 5)
	if err != nil {
		t.Fatalf("chunker: %v", err)
	}
	embedder := &fakeEmbedder{}
	return NewPipeline(store, embedder, chunker), store, embedder
}

func TestIngest_Idempotent(t *testing.T) {
	ctx := context.Background()
	p, store, embedder := newPipeline(t)
	chunks := []string{"营收增长主要来自海外市场", "毛利率受原材料价格影响", "现金流保持稳健"}

	stats, err := p.Ingest(ctx, chunks)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stats.Stored != 3 || stats.Total != 3 {
		t.Fatalf("unexpected first run stats %+v", stats)
	}

	stats, err = p.Ingest(ctx, chunks)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if stats.Stored != 0 || stats.Skipped != 3 {
		t.Fatalf("unexpected second run stats %+v", stats)
	}
	if embedder.calls != 3 {
		t.Fatalf("second run should not embed, got %d calls", embedder.calls)
	}
	if n, _ := store.Count(ctx); n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}
}

func TestIngest_PartialOverlapStoresDelta(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newPipeline(t)
	a := []string{"chunk one text", "chunk two text"}
	b := []string{"chunk two text", "chunk three text", "chunk four text"}

	if _, err := p.Ingest(ctx, a); err != nil {
		t.Fatalf("ingest a: %v", err)
	}
	stats, err := p.Ingest(ctx, b)
	if err != nil {
		t.Fatalf("ingest b: %v", err)
	}
	if stats.Stored != 2 || stats.Skipped != 1 {
		t.Fatalf("expected only B\\A stored, got %+v", stats)
	}
	existing, _ := store.Existing(ctx, []string{helper.ContentID("chunk three text"), helper.ContentID("chunk four text")})
	if len(existing) != 2 {
		t.Fatalf("delta chunks missing: %v", existing)
	}
	if n, _ := store.Count(ctx); n != 4 {
		t.Fatalf("expected 4 records, got %d", n)
	}
}

func TestIngest_DuplicatesWithinBatch(t *testing.T) {
	ctx := context.Background()
	p, store, embedder := newPipeline(t)
	stats, err := p.Ingest(ctx, []string{"same text", "same text", "other text"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stats.Stored != 2 || stats.Skipped != 1 || embedder.calls != 2 {
		t.Fatalf("unexpected stats %+v calls %d", stats, embedder.calls)
	}
	if n, _ := store.Count(ctx); n != 2 {
		t.Fatalf("expected 2 records, got %d", n)
	}
}

func TestIngest_EmbeddingFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newPipeline(t)
	stats, err := p.Ingest(ctx, []string{"good chunk A", "FAIL chunk", "good chunk B"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stats.Stored != 2 || stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if n, _ := store.Count(ctx); n != 2 {
		t.Fatalf("expected 2 records, got %d", n)
	}
}

func TestIngest_NothingNew(t *testing.T) {
	p, _, embedder := newPipeline(t)
	stats, err := p.Ingest(context.Background(), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stats != (Stats{}) || embedder.calls != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestIngest_UpsertFailureReturned(t *testing.T) {
	store, err := chromemdb.NewVectorDBManager("", "ingest_fail", true, false, "")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	boom := errors.New("disk full")
	chunker, _ := parser.NewChunker(20, 5)
	p := NewPipeline(&failingStore{VectorDBManager: store, upsertErr: boom}, &fakeEmbedder{}, chunker)
	if _, err := p.Ingest(context.Background(), []string{"some chunk"}); !errors.Is(err, boom) {
		t.Fatalf("expected upsert error, got %v", err)
	}
}

func TestIngestDocument_CarriesSource(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newPipeline(t)
	text := strings.Repeat("abcdefghi", 5) // 45 runes: windows at 0, 15 and 30
	stats, err := p.IngestDocument(ctx, "q3.pdf", text)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stats.Total != 3 || stats.Stored != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if n, _ := p.Count(ctx); n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}
	results, err := store.Query(ctx, []float32{1, 0, 0}, 3)
	if err != nil || len(results) != 3 {
		t.Fatalf("query: %v %v", results, err)
	}
}
