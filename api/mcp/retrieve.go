package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	retrieveToolName    = "retrieve"
	retrieveDescription = "Retrieve the raw corpus chunks most similar to a query, without generating an answer. Useful for inspecting what the index would ground an answer on."
)

// RetrieveInput represents the input arguments for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the query text to find relevant chunks"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to return (default: 5)"`
}

// RetrievedChunk represents a single retrieved chunk.
type RetrievedChunk struct {
	ID       string  `json:"id"`
	Document string  `json:"document"`
	Ordinal  int     `json:"ordinal"`
	Score    float32 `json:"score"`
	Text     string  `json:"text"`
}

// RetrieveOutput represents the output of the retrieve tool.
type RetrieveOutput struct {
	Query  string           `json:"query"`
	Chunks []RetrievedChunk `json:"chunks"`
	Count  int              `json:"count"`
}

// handleRetrieve processes a retrieve request.
func (s *Server) handleRetrieve(ctx context.Context, req *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, RetrieveOutput, error) {
	logger := s.config.Logger

	// Default topK if not specified
	topK := input.TopK
	if topK <= 0 {
		topK = 5
	}

	logger.Debug("MCP retrieve request", "query", input.Query, "top_k", topK)

	queryEmbedding, err := s.config.Embedder.Embed(ctx, input.Query)
	if err != nil {
		logger.Error("failed to embed query", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to embed query: %v", err)},
			},
		}, RetrieveOutput{}, nil
	}

	results, err := s.config.VectorDriver.Query(ctx, queryEmbedding, topK)
	if err != nil {
		logger.Error("failed to query vector store", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to query vector store: %v", err)},
			},
		}, RetrieveOutput{}, nil
	}

	chunks := make([]RetrievedChunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, RetrievedChunk{
			ID:       result.ID,
			Document: result.Source,
			Ordinal:  result.Ordinal,
			Score:    result.Score,
			Text:     result.Text,
		})
	}

	output := RetrieveOutput{
		Query:  input.Query,
		Chunks: chunks,
		Count:  len(chunks),
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal retrieve output", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, RetrieveOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
