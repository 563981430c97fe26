package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"finreport-rag/internal/models"
)

const DefaultMinChunkLength = 10

var ErrSourceNotFound = errors.New("source not found")

// LoadChunks reads an aggregate chunk file. Records are separated by
// models.ChunkSeparator; trimmed records shorter than minLength runes are
// discarded.
func LoadChunks(ctx context.Context, fs afs.Service, location string, minLength int) ([]string, error) {
	location, err := normalizeLocation(location)
	if err != nil {
		return nil, err
	}
	exists, err := fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check chunk file %s: %w", location, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: chunk file %s does not exist, run the process step first", ErrSourceNotFound, location)
	}
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk file %s: %w", location, err)
	}

	chunks := ParseChunkFile(string(data), minLength)
	log.Info().Int("chunks", len(chunks)).Str("file", location).Msg("Loaded chunks")
	return chunks, nil
}

// ParseChunkFile splits the content of an aggregate chunk file into records.
func ParseChunkFile(content string, minLength int) []string {
	if minLength <= 0 {
		minLength = DefaultMinChunkLength
	}
	var chunks []string
	for _, record := range strings.Split(content, models.ChunkSeparator) {
		record = strings.TrimSpace(record)
		if record == "" || utf8.RuneCountInString(record) < minLength {
			continue
		}
		chunks = append(chunks, record)
	}
	return chunks
}

// FormatChunkFile renders chunks in the aggregate format read by ParseChunkFile.
func FormatChunkFile(chunks []string) []byte {
	var buf bytes.Buffer
	for _, chunk := range chunks {
		buf.WriteString(chunk)
		buf.WriteString(models.ChunkSeparator)
	}
	return buf.Bytes()
}

// formatDocumentChunks renders the per-document inspection file.
func formatDocumentChunks(chunks []string) []byte {
	var buf bytes.Buffer
	for i, chunk := range chunks {
		fmt.Fprintf(&buf, models.ChunkHeaderFormat, i+1)
		buf.WriteString(chunk)
		buf.WriteString("\n\n")
	}
	return buf.Bytes()
}

func writeFile(ctx context.Context, fs afs.Service, location string, data []byte) error {
	if err := fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", location, err)
	}
	return nil
}

// normalizeLocation turns relative and absolute OS paths into file:// URLs
// and leaves other schemes untouched.
func normalizeLocation(location string) (string, error) {
	if url.Scheme(location, "") == "" && url.IsRelative(location) {
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path for %s: %w", location, err)
		}
		location = abs
	}
	if url.Scheme(location, "") == "" {
		location = url.ToFileURL(location)
	}
	return location, nil
}
