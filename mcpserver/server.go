package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/frauddesk/fraudqa/pipeline"
	"github.com/frauddesk/fraudqa/schema"
)

const version = "1.0.0"

// Asker runs one question through the QA pipeline.
type Asker interface {
	Run(ctx context.Context, question string) *pipeline.Response
}

// Retriever exposes raw passage search as its own tool.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]schema.RetrievedPassage, error)
}

// New builds the MCP server exposing the pipeline as tools.
func New(asker Asker, retr Retriever) *server.MCPServer {
	s := server.NewMCPServer(
		"fraudqa",
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Question answering over credit-card fraud transaction data and fraud research documents"),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Answer a question about credit-card fraud using SQL analytics over the transaction table and retrieval from the fraud document index"),
			mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer")),
		),
		handleAsk(asker),
	)

	s.AddTool(
		mcp.NewTool("search-documents",
			mcp.WithDescription("Semantic search over the fraud research document index, returning raw passages with similarity scores"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Natural language search query")),
			mcp.WithNumber("top_k", mcp.Description("Maximum passages to return")),
		),
		handleSearch(retr),
	)

	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func handleAsk(asker Asker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		question = strings.TrimSpace(question)
		if question == "" {
			return mcp.NewToolResultError("question must not be blank"), nil
		}

		resp := asker.Run(ctx, question)

		var b strings.Builder
		b.WriteString(resp.Answer.Text)
		if len(resp.Answer.Citations) > 0 {
			b.WriteString("\n\nSources:\n")
			for _, c := range resp.Answer.Citations {
				fmt.Fprintf(&b, "- %s\n", c.Locator)
			}
		}
		fmt.Fprintf(&b, "\nIntent: %s | Quality score: %.2f", resp.Intent, resp.Answer.Score)
		return mcp.NewToolResultText(b.String()), nil
	}
}

func handleSearch(retr Retriever) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		topK := req.GetInt("top_k", 0)

		passages, err := retr.Retrieve(ctx, query, topK)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		out, err := json.MarshalIndent(passages, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode results: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}
