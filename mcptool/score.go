package mcptool

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cgs-engine/backend/analyzer"
	"github.com/cgs-engine/backend/render"
)

// ScoreTool handles the cgs_score MCP tool.
type ScoreTool struct {
	analyzer *analyzer.Analyzer
}

// NewScoreTool creates a ScoreTool.
func NewScoreTool(a *analyzer.Analyzer) *ScoreTool {
	return &ScoreTool{analyzer: a}
}

// Definition returns the MCP tool definition for cgs_score.
func (t *ScoreTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Score an HTML or Markdown document for how likely AI answer engines are to cite it. " +
				"Returns the composite Citation Guarantee Score, the four category scores, " +
				"the risk band and prioritized recommendations.",
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The document markup to score"),
		),
	}
	return mcp.NewTool("cgs_score", append(opts, metadataOptions()...)...)
}

// Handle processes the cgs_score tool call.
func (t *ScoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, ok := req.GetArguments()["content"].(string)
	if !ok {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	report, err := t.analyzer.ScoreContent(ctx, analyzer.ScoreRequest{
		Content:  content,
		Metadata: metadataArgs(req),
		Source:   "mcp",
		Explain:  boolArg(req, "explain", false),
		Save:     boolArg(req, "save", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to score document: %v", err)), nil
	}
	return mcp.NewToolResultText(render.Markdown(report)), nil
}
