package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cgs-engine/backend/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2, 3)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("Request %d should be allowed by a full bucket", i)
		}
	}
	if rl.Allow("a") {
		t.Error("Fourth request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("Other clients have their own bucket")
	}

	// Half a second refills one token at 2/s
	now = now.Add(500 * time.Millisecond)
	if !rl.Allow("a") {
		t.Error("Expected a refilled token")
	}
	if rl.Allow("a") {
		t.Error("Only one token should have been refilled")
	}

	// Refill never exceeds the bucket size
	now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		rl.Allow("a")
	}
	if rl.Allow("a") {
		t.Error("Bucket should cap at its size")
	}
}

func TestRateLimiterEvict(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(time.Hour)
	rl.Allow("new")

	if removed := rl.Evict(10 * time.Minute); removed != 1 {
		t.Errorf("Expected 1 eviction, got %d", removed)
	}
	if _, ok := rl.tokens["new"]; !ok {
		t.Error("Recent client should be kept")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := []int{}
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("Expected 200 then 429, got %v", codes)
	}
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.POST("/api/score", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/score", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Missing CORS origin header")
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Credentials must not be allowed with a wildcard origin, got %q", got)
	}
}

func TestStatsTracksScoringRoutes(t *testing.T) {
	stats := logging.New(filepath.Join(t.TempDir(), "statistics.json"), true)
	r := gin.New()
	r.Use(Stats(stats))
	r.POST("/api/score", func(c *gin.Context) {
		c.Set(SourceKey, "https://example.com/post")
		c.Status(http.StatusOK)
	})
	r.POST("/api/analyze", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/score", nil),
		httptest.NewRequest(http.MethodPost, "/api/analyze", nil),
		httptest.NewRequest(http.MethodGet, "/api/health", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if stats.Requests() != 2 {
		t.Errorf("Expected 2 scoring requests, got %d", stats.Requests())
	}
	if stats.GetErrorRate() != 50 {
		t.Errorf("Expected 50%% error rate, got %f", stats.GetErrorRate())
	}
	if stats.GetUniqueVisitorsCount() != 1 {
		t.Errorf("Expected 1 visitor, got %d", stats.GetUniqueVisitorsCount())
	}
	top := stats.GetPopularSources(1)
	if len(top) != 1 || top[0].Source != "https://example.com/post" {
		t.Errorf("Unexpected sources: %+v", top)
	}
}
