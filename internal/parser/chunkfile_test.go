package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/viant/afs"

	"finreport-rag/internal/models"
)

func TestParseChunkFile(t *testing.T) {
	content := "第一段研报内容足够长。" + models.ChunkSeparator +
		"  短  " + models.ChunkSeparator +
		"\n第二段研报内容也足够长。\n" + models.ChunkSeparator
	got := ParseChunkFile(content, 10)
	want := []string{"第一段研报内容足够长。", "第二段研报内容也足够长。"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFormatChunkFile_RoundTrip(t *testing.T) {
	chunks := []string{"alpha chunk text", "beta chunk text"}
	if got := ParseChunkFile(string(FormatChunkFile(chunks)), 10); !reflect.DeepEqual(got, chunks) {
		t.Fatalf("got %q", got)
	}
}

func TestLoadChunks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "all.txt")
	if err := os.WriteFile(path, FormatChunkFile([]string{"0123456789", "too short"}), 0o644); err != nil {
		t.Fatal(err)
	}
	chunks, err := LoadChunks(ctx, afs.New(), path, 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "0123456789" {
		t.Fatalf("unexpected chunks %q", chunks)
	}

	_, err = LoadChunks(ctx, afs.New(), filepath.Join(dir, "missing.txt"), 10)
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}
