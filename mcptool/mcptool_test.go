package mcptool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cgs-engine/backend/analyzer"
	"github.com/cgs-engine/backend/config"
	"github.com/cgs-engine/backend/fetcher"
	"github.com/cgs-engine/backend/store"
)

func newTestDeps(t *testing.T, opts ...analyzer.Option) (*analyzer.Analyzer, *store.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Languages = nil

	st, err := store.Open(store.DefaultConfig(cfg.DataDir))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	a, err := analyzer.New(cfg, append([]analyzer.Option{analyzer.WithStore(st)}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create analyzer: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown() })
	return a, st
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestScoreTool_Definition(t *testing.T) {
	a, _ := newTestDeps(t)
	def := NewScoreTool(a).Definition()

	if def.Name != "cgs_score" {
		t.Errorf("tool name = %q, want %q", def.Name, "cgs_score")
	}
	for _, p := range []string{"content", "target_keyword", "domain_authority", "meta_description", "explain", "save"} {
		if _, ok := def.InputSchema.Properties[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "content" {
		t.Errorf("required = %v, want [content]", def.InputSchema.Required)
	}
}

func TestScoreTool_Handle(t *testing.T) {
	a, st := newTestDeps(t)
	tool := NewScoreTool(a)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"content":          "<h1>Solar guide</h1><p>By <strong>Ana</strong>. Updated today.</p>",
		"target_keyword":   "solar",
		"domain_authority": float64(70),
		"explain":          true,
		"save":             true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}

	text := resultText(result)
	for _, want := range []string{"# Citation Guarantee Score", "## Breakdown", "## Checks", "Saved as result #1"} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}

	rec, err := st.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected stored result: %v", err)
	}
	if rec.Metadata.DomainAuthority == nil || *rec.Metadata.DomainAuthority != 70 {
		t.Errorf("domain authority not passed through: %v", rec.Metadata.DomainAuthority)
	}
	if rec.Source != "mcp" {
		t.Errorf("source = %q, want mcp", rec.Source)
	}
}

func TestScoreTool_EmptyContentIsValid(t *testing.T) {
	a, _ := newTestDeps(t)
	result, _ := NewScoreTool(a).Handle(context.Background(), makeReq(map[string]interface{}{
		"content": "",
	}))
	if result.IsError {
		t.Fatalf("empty content should score, got error: %s", resultText(result))
	}
	if !strings.Contains(resultText(result), "**Score:** 0 / 100") {
		t.Errorf("expected zero score:\n%s", resultText(result))
	}
}

func TestScoreTool_MissingContent(t *testing.T) {
	a, _ := newTestDeps(t)
	result, _ := NewScoreTool(a).Handle(context.Background(), makeReq(map[string]interface{}{}))
	if !result.IsError {
		t.Error("expected error for missing content")
	}
}

func TestAnalyzeTool_Handle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><h1>Remote page</h1></body></html>"))
	}))
	defer server.Close()

	f := fetcher.NewWithClient(server.Client(), fetcher.Options{Timeout: 2 * time.Second})
	a, _ := newTestDeps(t, analyzer.WithFetcher(f))
	tool := NewAnalyzeTool(a)

	if def := tool.Definition(); def.Name != "cgs_analyze" {
		t.Errorf("tool name = %q, want cgs_analyze", def.Name)
	}

	result, _ := tool.Handle(context.Background(), makeReq(map[string]interface{}{"url": server.URL}))
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
	if !strings.Contains(resultText(result), server.URL) {
		t.Errorf("expected source in result:\n%s", resultText(result))
	}

	result, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"url": "ftp://example.com"}))
	if !result.IsError {
		t.Error("expected error for invalid URL")
	}
	result, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if !result.IsError {
		t.Error("expected error for missing URL")
	}
}

func TestHistoryTool_Handle(t *testing.T) {
	a, st := newTestDeps(t)
	history := NewHistoryTool(st)

	result, _ := history.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if !strings.Contains(resultText(result), "No stored results yet") {
		t.Errorf("expected empty history:\n%s", resultText(result))
	}

	score := NewScoreTool(a)
	for _, content := range []string{"<p>one</p>", "<p>two</p>"} {
		score.Handle(context.Background(), makeReq(map[string]interface{}{"content": content, "save": true}))
	}

	result, _ = history.Handle(context.Background(), makeReq(map[string]interface{}{"limit": float64(1)}))
	text := resultText(result)
	if !strings.Contains(text, "#2") || strings.Contains(text, "#1 ") {
		t.Errorf("expected only the newest result:\n%s", text)
	}
	if !strings.Contains(text, "poor: 2") {
		t.Errorf("expected band counts:\n%s", text)
	}

	result, _ = history.Handle(context.Background(), makeReq(map[string]interface{}{"band": "awful"}))
	if !result.IsError {
		t.Error("expected error for unknown band")
	}
}

func TestNewServer(t *testing.T) {
	a, st := newTestDeps(t)
	if NewServer(a, st) == nil {
		t.Fatal("expected a server")
	}
	if NewServer(a, nil) == nil {
		t.Fatal("expected a server without a store")
	}
}
