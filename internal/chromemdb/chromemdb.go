package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"finreport-rag/internal/models"
)

// VectorDBManager wraps one chromem-go collection. The collection is opened
// once per process and reused by every pipeline call.
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	compress      bool
	encryptionKey string
	filePath      string
}

// NewVectorDBManager opens (or creates) the persistent database at dbPath, or
// an in-memory one when inMemory is set, and gets or creates collectionName.
func NewVectorDBManager(dbPath, collectionName string, inMemory, compress bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	m := &VectorDBManager{
		db:            db,
		dbPath:        dbPath,
		compress:      compress,
		encryptionKey: encryptionKey,
		filePath:      filepath.Join(dbPath, collectionName+".chromem"),
	}
	if _, err := m.GetOrCreateCollection(collectionName); err != nil {
		return nil, err
	}
	return m, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	metadata := map[string]string{"description": "financial report chunks"}
	// embeddings are always supplied by the caller, so no embedding func
	c, err := m.db.GetOrCreateCollection(collectionName, metadata, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

func (m *VectorDBManager) Name() string {
	return m.collection.Name
}

// Existing reports which of ids are already stored.
func (m *VectorDBManager) Existing(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	for _, id := range ids {
		if id == "" {
			continue
		}
		// GetByID only fails for unknown IDs
		if _, err := m.collection.GetByID(ctx, id); err == nil {
			existing[id] = true
		}
	}
	return existing, nil
}

// Upsert adds all records in one call; an existing ID is overwritten.
func (m *VectorDBManager) Upsert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Content,
			Metadata:  r.Metadata,
			Embedding: r.Embedding,
		}
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Query returns the content of the k nearest documents, most similar first.
func (m *VectorDBManager) Query(ctx context.Context, embedding []float32, k int) ([]string, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	// chromem rejects nResults larger than the collection
	n := min(k, m.collection.Count())
	if n <= 0 {
		return []string{}, nil
	}
	results, err := m.collection.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Content
	}
	return out, nil
}

func (m *VectorDBManager) Count(ctx context.Context) (int, error) {
	return m.collection.Count(), nil
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	if err := m.db.DeleteCollection(m.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// Export writes the collection to an encrypted file next to the database.
func (m *VectorDBManager) Export(ctx context.Context) (string, error) {
	if m.encryptionKey == "" {
		return "", fmt.Errorf("encryption key is required")
	}
	if m.dbPath == "" {
		return "", fmt.Errorf("db path is required")
	}

	log.Debug().
		Str("collection", m.collection.Name).
		Str("file", m.filePath).
		Bool("compress", m.compress).
		Msg("Exporting collection")
	if err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.collection.Name); err != nil {
		return "", fmt.Errorf("failed to export database: %w", err)
	}
	return m.filePath, nil
}

// Import loads a file written by Export into the database.
func (m *VectorDBManager) Import(ctx context.Context, filePath string) error {
	name := m.collection.Name
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, name); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	// the import replaces the collection object
	_, err := m.GetOrCreateCollection(name)
	return err
}
