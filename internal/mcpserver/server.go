// Package mcpserver exposes the report question answering pipeline as MCP
// tools over stdio.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"finreport-rag/internal/models"
)

const (
	serverName = "finreport-rag"
	version    = "0.1.0"
)

// Answerer is the query pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string) (*models.PromptResponse, error)
}

// Stats is the part of a vector store reported by vector_store_stats.
type Stats interface {
	Name() string
	Count(ctx context.Context) (int, error)
}

type AskInput struct {
	Question string `json:"question" jsonschema:"Question about the indexed financial reports"`
}

type AskOutput struct {
	Answer   string   `json:"answer"`
	Passages []string `json:"passages"`
	Reranked bool     `json:"reranked"`
}

type StatsInput struct{}

type StatsOutput struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
}

type Server struct {
	answerer Answerer
	stats    Stats
	server   *mcp.Server
}

// New creates the MCP server and registers its tools.
func New(answerer Answerer, stats Stats) *Server {
	s := &Server{
		answerer: answerer,
		stats:    stats,
		server: mcp.NewServer(
			&mcp.Implementation{Name: serverName, Version: version},
			nil,
		),
	}

	mcp.AddTool(s.server,
		&mcp.Tool{
			Name:        "ask_financial_reports",
			Description: "Answer a question using passages retrieved from the indexed financial research reports. Returns the answer and the passages it was based on.",
		},
		s.Ask,
	)
	mcp.AddTool(s.server,
		&mcp.Tool{
			Name:        "vector_store_stats",
			Description: "Report the vector store collection name and the number of stored chunks.",
		},
		s.Stats,
	)
	return s
}

// Serve runs the server on stdin/stdout until the client disconnects or ctx
// is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("name", serverName).Str("version", version).Msg("MCP server ready")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) Ask(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	resp, err := s.answerer.Answer(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, fmt.Errorf("failed to answer question: %w", err)
	}
	passages := resp.Passages
	if passages == nil {
		passages = []string{}
	}
	return nil, AskOutput{Answer: resp.Content, Passages: passages, Reranked: resp.Reranked}, nil
}

func (s *Server) Stats(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	n, err := s.stats.Count(ctx)
	if err != nil {
		return nil, StatsOutput{}, fmt.Errorf("failed to count chunks: %w", err)
	}
	return nil, StatsOutput{Collection: s.stats.Name(), Count: n}, nil
}
