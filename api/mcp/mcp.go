// Package mcp provides an MCP (Model Context Protocol) server exposing the
// grounded Q&A engine as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mediguideco/mediguide/pkg/embeddings"
	"github.com/mediguideco/mediguide/pkg/llm"
	"github.com/mediguideco/mediguide/pkg/rag"
	"github.com/mediguideco/mediguide/pkg/utils"
	"github.com/mediguideco/mediguide/pkg/vector"
)

// Answerer is the query engine surface the ask tool needs.
type Answerer interface {
	Answer(ctx context.Context, query string, history ...llm.Message) (*rag.Answer, error)
}

type Config struct {
	// Engine answers grounded questions for the ask tool
	Engine Answerer

	// VectorDriver for raw chunk retrieval
	VectorDriver vector.Driver

	// Embedder for converting query text to vectors for retrieval with the
	// configured VectorDriver
	Embedder embeddings.Embedder

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the ask and retrieve tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "mediguide",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Engine == nil {
		return nil, errors.New("query engine is required")
	}
	if c.VectorDriver == nil {
		return nil, errors.New("vector driver is required")
	}
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, s.handleAsk)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        retrieveToolName,
		Description: retrieveDescription,
	}, s.handleRetrieve)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
