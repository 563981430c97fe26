package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvAPIKey  = "SILICONFLOW_API_KEY"
	EnvBaseURL = "SILICONFLOW_BASE_URL"

	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	BackendChromem  = "chromem"
	BackendPostgres = "postgres"

	DriverPG  = "pgdriver"
	DriverPQ  = "pq"
	DriverPGX = "pgx"
)

type Config struct {
	LogLevel string         `yaml:"log_level"`
	LLM      LLMConfig      `yaml:"llm"`
	RAG      RAGConfig      `yaml:"rag"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Paths    PathsConfig    `yaml:"paths"`
}

// LLMConfig describes the model provider. Key and BaseURL are normally
// supplied through the environment.
type LLMConfig struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	Key            string `yaml:"key"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	RerankModel    string `yaml:"rerank_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type RAGConfig struct {
	ChunkSize          int      `yaml:"chunk_size"`
	ChunkOverlap       int      `yaml:"chunk_overlap"`
	TopK               int      `yaml:"top_k"`
	TopN               int      `yaml:"top_n"`
	Temperature        float64  `yaml:"temperature"`
	BoilerplateKeyword []string `yaml:"boilerplate_keywords"`
	MinLineLength      int      `yaml:"min_line_length"`
	MinChunkLength     int      `yaml:"min_chunk_length"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

type PathsConfig struct {
	PDFDir       string `yaml:"pdf_dir"`
	CleanTextDir string `yaml:"clean_text_dir"`
	ChunkDir     string `yaml:"chunk_dir"`
	ChunkFile    string `yaml:"chunk_file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		LLM: LLMConfig{
			Provider:       ProviderOpenAI,
			BaseURL:        "https://api.siliconflow.cn/v1",
			ChatModel:      "Qwen/Qwen2.5-7B-Instruct",
			EmbeddingModel: "BAAI/bge-m3",
			RerankModel:    "BAAI/bge-reranker-v2-m3",
		},
		RAG: RAGConfig{
			ChunkSize:          500,
			ChunkOverlap:       50,
			TopK:               5,
			TopN:               3,
			Temperature:        0.1,
			BoilerplateKeyword: []string{"第 ", "页", "2024", "2025", "券商名称", "研究所"},
			MinLineLength:      5,
			MinChunkLength:     10,
		},
		Store: StoreConfig{
			Backend:    BackendChromem,
			Path:       "./chroma_db",
			Collection: "finance_reports",
		},
		Database: DatabaseConfig{
			Driver: DriverPG,
		},
		Paths: PathsConfig{
			PDFDir:       "./data-rawpdf",
			CleanTextDir: "./clean_texts",
			ChunkDir:     "./chunks",
			ChunkFile:    "./chunks/all_finance_chunks.txt",
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults, then
// applies .env and process environment overrides. A missing file is not an
// error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.LLM.Key = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.LLM.BaseURL = v
	}
	c.LLM.BaseURL = strings.TrimRight(c.LLM.BaseURL, "/")
}

// Validate checks the settings that would otherwise fail deep inside a
// pipeline.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 || c.RAG.TopN <= 0 {
		return fmt.Errorf("rag.top_k and rag.top_n must be positive")
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}
	switch c.Store.Backend {
	case BackendChromem:
	case BackendPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported store backend: %s", c.Store.Backend)
	}
	return nil
}
