package mcptool

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/cgs-engine/backend/analyzer"
	"github.com/cgs-engine/backend/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewServer creates the MCP server with every tool registered. The history
// tool is only registered when a store is given.
func NewServer(a *analyzer.Analyzer, st *store.Store) *server.MCPServer {
	s := server.NewMCPServer(
		"cgs",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	scoreTool := NewScoreTool(a)
	s.AddTool(scoreTool.Definition(), scoreTool.Handle)

	analyzeTool := NewAnalyzeTool(a)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	if st != nil {
		historyTool := NewHistoryTool(st)
		s.AddTool(historyTool.Definition(), historyTool.Handle)
	}
	return s
}
