package mcptool

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cgs-engine/backend/engine"
	"github.com/cgs-engine/backend/store"
)

const maxHistory = 50

// HistoryTool handles the cgs_history MCP tool.
type HistoryTool struct {
	store *store.Store
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(s *store.Store) *HistoryTool {
	return &HistoryTool{store: s}
}

// Definition returns the MCP tool definition for cgs_history.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("cgs_history",
		mcp.WithDescription(
			"List recently stored score results, newest first, with a count per risk band.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Number of results to return (default: 10, max: 50)"),
		),
		mcp.WithString("band",
			mcp.Description("Only return results in this band: excellent, good, moderate or poor"),
		),
	)
}

// Handle processes the cgs_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 10)
	if limit < 1 {
		limit = 10
	}
	limit = min(limit, maxHistory)

	band := req.GetString("band", "")
	if band != "" {
		if _, ok := engine.BandByLevel(band); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown band %q", band)), nil
		}
	}

	records, err := t.store.List(ctx, store.ListOptions{Limit: limit, Level: band})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list results: %v", err)), nil
	}
	counts, err := t.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to count results: %v", err)), nil
	}

	return mcp.NewToolResultText(formatHistory(records, counts)), nil
}

func formatHistory(records []store.Record, counts []store.BandCount) string {
	var b strings.Builder

	b.WriteString("# Stored Results\n\n")
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s: %d", c.Level, c.Count))
	}
	fmt.Fprintf(&b, "**Bands:** %s\n\n", strings.Join(parts, ", "))

	if len(records) == 0 {
		b.WriteString("No stored results yet. Score a document with save=true to keep it.\n")
		return b.String()
	}

	for _, r := range records {
		source := r.Source
		if source == "" {
			source = "inline"
		}
		fmt.Fprintf(&b, "- #%d **%d** %s, %s (%s)\n",
			r.ID, r.Result.CompositeScore, r.Result.RiskBand.Label, source, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}
