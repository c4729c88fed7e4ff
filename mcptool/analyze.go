package mcptool

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cgs-engine/backend/analyzer"
	"github.com/cgs-engine/backend/render"
)

// AnalyzeTool handles the cgs_analyze MCP tool.
type AnalyzeTool struct {
	analyzer *analyzer.Analyzer
}

// NewAnalyzeTool creates an AnalyzeTool.
func NewAnalyzeTool(a *analyzer.Analyzer) *AnalyzeTool {
	return &AnalyzeTool{analyzer: a}
}

// Definition returns the MCP tool definition for cgs_analyze.
func (t *AnalyzeTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Fetch a web page and score it for citation readiness. " +
				"Set readable to score only the main article instead of the full page.",
		),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute http or https URL of the page"),
		),
		mcp.WithBoolean("readable",
			mcp.Description("Extract the main article before scoring"),
		),
	}
	return mcp.NewTool("cgs_analyze", append(opts, metadataOptions()...)...)
}

// Handle processes the cgs_analyze tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := req.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("'url' is required"), nil
	}

	report, err := t.analyzer.AnalyzeURL(ctx, analyzer.URLRequest{
		URL:      url,
		Metadata: metadataArgs(req),
		Readable: boolArg(req, "readable", false),
		Explain:  boolArg(req, "explain", false),
		Save:     boolArg(req, "save", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to analyze %s: %v", url, err)), nil
	}
	return mcp.NewToolResultText(render.Markdown(report)), nil
}
