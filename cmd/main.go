package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/viant/afs"

	"finreport-rag/internal/chat"
	"finreport-rag/internal/chromemdb"
	"finreport-rag/internal/config"
	"finreport-rag/internal/db"
	"finreport-rag/internal/embedding"
	"finreport-rag/internal/helper"
	"finreport-rag/internal/ingest"
	"finreport-rag/internal/llmservice"
	"finreport-rag/internal/mcpserver"
	"finreport-rag/internal/models"
	"finreport-rag/internal/parser"
	"finreport-rag/internal/rag"
	"finreport-rag/internal/rerank"
)

const defaultConfigPath = "./configs/config.yaml"

// vectorStore is satisfied by both the chromem collection and the pgvector
// table.
type vectorStore interface {
	Name() string
	Existing(ctx context.Context, ids []string) (map[string]bool, error)
	Upsert(ctx context.Context, records []models.Record) error
	Query(ctx context.Context, embedding []float32, k int) ([]string, error)
	Count(ctx context.Context) (int, error)
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to the YAML config file")
	processDir := flag.String("process", "", "Clean and chunk every report in this directory (local path or URL)")
	build := flag.Bool("build", false, "Ingest the aggregate chunk file into the vector store")
	addFile := flag.String("add", "", "Process one report and ingest its chunks")
	query := flag.String("query", "", "Question to be answered")
	interactive := flag.Bool("i", false, "Start an interactive question session")
	serveMCP := flag.Bool("mcp", false, "Serve the query pipeline as MCP tools over stdio")
	asHTML := flag.Bool("html", false, "Render the answer of -query as HTML")
	export := flag.Bool("export", false, "Export the chromem collection to an encrypted file")
	importFile := flag.String("import", "", "Import a previously exported chromem collection file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	setupLogger(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *processDir != "" {
		processReports(ctx, cfg, *processDir)
	}

	if !*build && *addFile == "" && *query == "" && !*interactive && !*serveMCP && !*export && *importFile == "" {
		if *processDir == "" {
			flag.Usage()
			os.Exit(2)
		}
		return
	}

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	if *importFile != "" {
		importCollection(ctx, store, *importFile)
	}

	embedder, err := embedding.NewEmbedder(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	if *build || *addFile != "" {
		chunker, err := parser.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating chunker")
		}
		pipeline := ingest.NewPipeline(store, embedder, chunker)
		if *build {
			buildFromChunkFile(ctx, cfg, pipeline)
		}
		if *addFile != "" {
			addReport(ctx, cfg, pipeline, *addFile)
		}
	}

	if *export {
		exportCollection(ctx, store)
	}

	if *query == "" && !*interactive && !*serveMCP {
		return
	}

	llm, err := llmservice.NewLLM(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM")
	}
	reranker := rerank.NewClient(cfg.LLM.BaseURL, cfg.LLM.Key, cfg.LLM.RerankModel, embedding.HTTPClient(&cfg.LLM))
	pipeline := rag.NewPipeline(embedder, store, reranker, llm)
	pipeline.TopK = cfg.RAG.TopK
	pipeline.TopN = cfg.RAG.TopN
	pipeline.Temperature = cfg.RAG.Temperature

	switch {
	case *serveMCP:
		if err := mcpserver.New(pipeline, store).Serve(ctx); err != nil {
			log.Fatal().Err(err).Msg("MCP server error")
		}
	case *interactive:
		session := chat.NewSession(pipeline)
		if err := session.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("Session error")
		}
	default:
		answerQuery(ctx, pipeline, *query, *asHTML)
	}
}

// stdout carries answers and MCP traffic, so logs go to stderr
func setupLogger(cfg *config.Config) {
	level := zerolog.InfoLevel
	if cfg != nil {
		if l, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && l != zerolog.NoLevel {
			level = l
		}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

func openStore(ctx context.Context, cfg *config.Config) (vectorStore, func()) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}
		store := db.NewStore(db.NewDB(sqldb, cfg.Database.Debug))
		if err := store.InitDB(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing database")
			}
		}
	default:
		if err := helper.CreateFolder(cfg.Store.Path); err != nil {
			log.Fatal().Err(err).Msg("Error creating folder")
		}
		store, err := chromemdb.NewVectorDBManager(cfg.Store.Path, cfg.Store.Collection, false, cfg.Store.Compress, cfg.Store.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Error opening vector store")
		}
		count, _ := store.Count(ctx)
		log.Info().Str("collection", store.Name()).Int("count", count).Msg("Vector store loaded")
		return store, func() {}
	}
}

func processReports(ctx context.Context, cfg *config.Config, dir string) {
	processor, err := parser.NewProcessor(afs.New(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating processor")
	}
	result, err := processor.ProcessDir(ctx, dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("Error processing reports")
	}
	log.Info().
		Int("documents", len(result.Documents)).
		Int("chunks", len(result.Chunks)).
		Strs("failed", result.Failed).
		Msg("Reports processed")
}

func buildFromChunkFile(ctx context.Context, cfg *config.Config, pipeline *ingest.Pipeline) {
	chunks, err := parser.LoadChunks(ctx, afs.New(), cfg.Paths.ChunkFile, cfg.RAG.MinChunkLength)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Paths.ChunkFile).Msg("Error loading chunks")
	}
	log.Info().Int("chunks", len(chunks)).Msg("Loaded chunk file")

	stats, err := pipeline.Ingest(ctx, chunks)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting chunks")
	}
	reportIngest(ctx, pipeline, stats)
}

func addReport(ctx context.Context, cfg *config.Config, pipeline *ingest.Pipeline, location string) {
	processor, err := parser.NewProcessor(afs.New(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating processor")
	}
	doc, chunks, err := processor.ProcessFile(ctx, location)
	if err != nil {
		log.Fatal().Err(err).Str("file", location).Msg("Error processing report")
	}
	log.Info().Str("document", doc.Name).Int("chunks", len(chunks)).Msg("Report processed")

	stats, err := pipeline.IngestChunks(ctx, chunks)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting chunks")
	}
	reportIngest(ctx, pipeline, stats)
}

func reportIngest(ctx context.Context, pipeline *ingest.Pipeline, stats ingest.Stats) {
	helper.PrettyPrint(stats)
	count, err := pipeline.Count(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error counting records")
		return
	}
	log.Info().Int("count", count).Msg("Vector store record count")
}

func exportCollection(ctx context.Context, store vectorStore) {
	m, ok := store.(*chromemdb.VectorDBManager)
	if !ok {
		log.Fatal().Msg("Export is only supported for the chromem backend")
	}
	path, err := m.Export(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error exporting collection")
	}
	log.Info().Str("file", path).Msg("Collection exported")
}

func importCollection(ctx context.Context, store vectorStore, file string) {
	m, ok := store.(*chromemdb.VectorDBManager)
	if !ok {
		log.Fatal().Msg("Import is only supported for the chromem backend")
	}
	if err := m.Import(ctx, file); err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Error importing collection")
	}
	count, _ := m.Count(ctx)
	log.Info().Int("count", count).Msg("Collection imported")
}

func answerQuery(ctx context.Context, pipeline *rag.Pipeline, query string, asHTML bool) {
	answer := pipeline.Ask(ctx, query)

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	if asHTML {
		html, err := helper.MarkdownToHTML(answer)
		if err != nil {
			log.Error().Err(err).Msg("Error rendering answer")
		} else {
			answer = html
		}
	}
	fmt.Printf("%s\n\n", answer)
}
