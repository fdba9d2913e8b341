package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with its dependencies.
type Server struct {
	server  *mcp.Server
	version string
	tools   []toolInfo
}

type toolInfo struct {
	Name        string
	Description string
}

// Config holds server dependencies.
type Config struct {
	Retriever Retriever
	Embedder  QueryEmbedder
	Reporter  Reporter
	Status    IndexStatus
	// Version is reported to clients; empty means "dev".
	Version string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "ally-legal-assistant",
			Version: version,
		}, nil),
		version: version,
	}

	addTool(s, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search the clauses of one indexed contract. Returns matching clauses with title, text, keyphrases and summary.",
	}, makeSearchDocumentsHandler(cfg.Retriever, cfg.Embedder))

	addTool(s, &mcp.Tool{
		Name:        "list_policies",
		Description: "List legal policies (title and instruction) a contract is reviewed against.",
	}, makeListPoliciesHandler(cfg.Retriever, cfg.Embedder))

	addTool(s, &mcp.Tool{
		Name:        "search_policy",
		Description: "Find the policy governing a clause or question, in the language of the query.",
	}, makeSearchPolicyHandler(cfg.Retriever, cfg.Embedder))

	addTool(s, &mcp.Tool{
		Name:        "compliance_report",
		Description: "Get the per-clause compliance report of an indexed contract, with the policies each non-compliant clause violates.",
	}, makeComplianceReportHandler(cfg.Reporter))

	addTool(s, &mcp.Tool{
		Name:        "document_status",
		Description: "Check whether a contract is indexed and how many clause records it has.",
	}, makeDocumentStatusHandler(cfg.Status))

	return s
}

func addTool[In, Out any](s *Server, tool *mcp.Tool, handler mcp.ToolHandlerFor[In, Out]) {
	mcp.AddTool(s.server, tool, handler)
	s.tools = append(s.tools, toolInfo{Name: tool.Name, Description: tool.Description})
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
