package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"finreport-rag/internal/config"
	"finreport-rag/internal/models"
)

type Chunk struct {
	bun.BaseModel `bun:"table:report_chunks,alias:c"`
	ID            string            `bun:"id,pk"`
	Content       string            `bun:"content,notnull"`
	Source        string            `bun:"source"`
	Embedding     pgvector.Vector   `bun:"embedding,notnull,type:vector"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
}

// Store keeps report chunks in Postgres with the pgvector extension.
type Store struct {
	db *bun.DB
}

// ConnectDB opens the connection pool with the configured driver.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case config.DriverPQ:
		return sql.Open("postgres", cfg.DSN)
	case config.DriverPGX:
		return sql.Open("pgx", cfg.DSN)
	case config.DriverPG, "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// InitDB enables pgvector and creates the chunk table.
func (s *Store) InitDB(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	_, err := s.db.NewCreateTable().Model((*Chunk)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Name() string {
	return "report_chunks"
}

// Existing reports which of ids are already stored, in one query.
func (s *Store) Existing(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(ids) == 0 {
		return existing, nil
	}
	var found []string
	if err := s.existingQuery(ids).Scan(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to read ids: %w", err)
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

// Upsert inserts all records in one statement, leaving existing IDs untouched.
func (s *Store) Upsert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]Chunk, len(records))
	for i, r := range records {
		rows[i] = Chunk{
			ID:        r.ID,
			Content:   r.Content,
			Source:    r.Metadata[models.MetadataSource],
			Embedding: pgvector.NewVector(r.Embedding),
			Metadata:  r.Metadata,
		}
	}
	if _, err := s.db.NewInsert().Model(&rows).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return nil
}

// Query orders by cosine distance and returns the k nearest contents.
func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]string, error) {
	var rows []Chunk
	if err := s.nearestQuery(&rows, embedding, k).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Content
	}
	return out, nil
}

func (s *Store) existingQuery(ids []string) *bun.SelectQuery {
	return s.db.NewSelect().
		Model((*Chunk)(nil)).
		Column("id").
		Where("id IN (?)", bun.In(ids))
}

func (s *Store) nearestQuery(rows *[]Chunk, embedding []float32, k int) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(rows).
		Column("id", "content").
		OrderExpr("embedding <=> ?", pgvector.NewVector(embedding)).
		Limit(k)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*Chunk)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// DropChunks removes the chunk table.
func (s *Store) DropChunks(ctx context.Context) error {
	_, err := s.db.NewDropTable().Model((*Chunk)(nil)).IfExists().Exec(ctx)
	return err
}
