package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	askToolName    = "ask"
	askDescription = "Ask a medical question and get an answer grounded in the indexed corpus. Returns the generated answer along with the source documents it was grounded on."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the medical question to answer"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Answer  string   `json:"answer"`
	Model   string   `json:"model"`
	Sources []string `json:"sources,omitempty"`
}

// handleAsk processes an ask request.
func (s *Server) handleAsk(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP ask request", "question", input.Question)

	answer, err := s.config.Engine.Answer(ctx, input.Question)
	if err != nil {
		logger.Error("failed to answer question", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to answer question: %v", err)},
			},
		}, AskOutput{}, nil
	}

	sources := make([]string, 0, len(answer.Sources))
	for _, src := range answer.Sources {
		sources = append(sources, src.Document)
	}

	output := AskOutput{
		Answer:  answer.Text,
		Model:   answer.Model,
		Sources: sources,
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal ask output", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize answer: %v", err)},
			},
		}, AskOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
