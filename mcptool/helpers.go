// Package mcptool exposes the scoring service as MCP tools.
//
// Each tool is a struct holding its dependencies, with Definition returning
// the mcp.Tool schema and Handle processing a call. Failures are reported
// as tool errors, never as protocol errors.
package mcptool

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cgs-engine/backend/engine"
)

// intArg extracts an integer argument. JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// metadataArgs reads the shared metadata parameters
func metadataArgs(req mcp.CallToolRequest) engine.Metadata {
	meta := engine.Metadata{
		TargetKeyword:   req.GetString("target_keyword", ""),
		MetaDescription: req.GetString("meta_description", ""),
	}
	if v, ok := req.GetArguments()["domain_authority"].(float64); ok {
		da := int(v)
		meta.DomainAuthority = &da
	}
	return meta
}

func metadataOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("target_keyword",
			mcp.Description("Keyword the top heading should contain"),
		),
		mcp.WithNumber("domain_authority",
			mcp.Description("Domain authority of the publishing site, 0 to 100"),
		),
		mcp.WithString("meta_description",
			mcp.Description("Meta description of the page"),
		),
		mcp.WithBoolean("explain",
			mcp.Description("Include the points awarded by every check"),
		),
		mcp.WithBoolean("save",
			mcp.Description("Store the result for later retrieval with cgs_history"),
		),
	}
}
