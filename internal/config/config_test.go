package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-test")
	t.Setenv(EnvBaseURL, "http://localhost:9999/v1/")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 50 {
		t.Fatalf("unexpected chunk settings: %+v", cfg.RAG)
	}
	if cfg.RAG.TopK != 5 || cfg.RAG.TopN != 3 {
		t.Fatalf("unexpected retrieval settings: %+v", cfg.RAG)
	}
	if cfg.LLM.Key != "sk-test" {
		t.Fatalf("expected key from env, got %q", cfg.LLM.Key)
	}
	if cfg.LLM.BaseURL != "http://localhost:9999/v1" {
		t.Fatalf("expected trimmed base url, got %q", cfg.LLM.BaseURL)
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvBaseURL, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
rag:
  chunk_size: 300
  chunk_overlap: 30
  boilerplate_keywords: ["Page", "Confidential"]
store:
  collection: reports_test
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RAG.ChunkSize != 300 || cfg.RAG.ChunkOverlap != 30 {
		t.Fatalf("unexpected chunk settings: %+v", cfg.RAG)
	}
	if len(cfg.RAG.BoilerplateKeyword) != 2 || cfg.RAG.BoilerplateKeyword[1] != "Confidential" {
		t.Fatalf("unexpected keywords: %v", cfg.RAG.BoilerplateKeyword)
	}
	if cfg.Store.Collection != "reports_test" || cfg.Store.Backend != BackendChromem {
		t.Fatalf("unexpected store: %+v", cfg.Store)
	}
	// untouched values keep their defaults
	if cfg.RAG.TopK != 5 {
		t.Fatalf("expected default top_k, got %d", cfg.RAG.TopK)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "overlap equals window", mutate: func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize }, wantErr: true},
		{name: "negative overlap", mutate: func(c *Config) { c.RAG.ChunkOverlap = -1 }, wantErr: true},
		{name: "zero top_n", mutate: func(c *Config) { c.RAG.TopN = 0 }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "bedrock" }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Backend = BackendPostgres }, wantErr: true},
		{name: "postgres with dsn", mutate: func(c *Config) {
			c.Store.Backend = BackendPostgres
			c.Database.DSN = "postgres://localhost/rag"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
