package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cgs-engine/backend/analyzer"
	"github.com/cgs-engine/backend/config"
	"github.com/cgs-engine/backend/engine"
	"github.com/cgs-engine/backend/fetcher"
	"github.com/cgs-engine/backend/logging"
	"github.com/cgs-engine/backend/middleware"
	"github.com/cgs-engine/backend/store"
)

// server holds the dependencies of the HTTP handlers
type server struct {
	analyzer *analyzer.Analyzer
	store    *store.Store
	stats    *logging.Statistics
	maxBody  int64
}

func main() {
	configPath := flag.String("config", "cgs.yaml", "path to an optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	gin.SetMode(cfg.GinMode)

	results, err := store.Open(store.DefaultConfig(cfg.DataDir))
	if err != nil {
		log.Fatal("Failed to open result store: ", err)
	}
	defer results.Close()

	cgsAnalyzer, err := analyzer.New(cfg, analyzer.WithStore(results))
	if err != nil {
		log.Fatal("Failed to initialize analyzer: ", err)
	}

	stats := logging.Initialize(filepath.Join(cfg.DataDir, "statistics.json"), cfg.DevMode)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	srv := &server{
		analyzer: cgsAnalyzer,
		store:    results,
		stats:    stats,
		maxBody:  int64(cfg.MaxDocumentBytes) + 64<<10,
	}
	r := srv.routes(rateLimiter)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopEvict := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimiter.Evict(10 * time.Minute)
			case <-stopEvict:
				return
			}
		}
	}()

	go func() {
		log.Printf("Server starting on http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	close(stopEvict)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := cgsAnalyzer.Shutdown(); err != nil {
		log.Printf("Analyzer shutdown failed: %v", err)
	}
	if err := stats.Save(); err != nil {
		log.Printf("Failed to save statistics: %v", err)
	}
}

func (s *server) routes(rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORS())
	if rateLimiter != nil {
		r.Use(rateLimiter.RateLimit())
	}
	if s.stats != nil {
		r.Use(middleware.Stats(s.stats))
	}

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/bands", s.bands)

		api.POST("/score", s.scoreContent)
		api.POST("/analyze", s.analyzeURL)

		api.GET("/results", s.listResults)
		api.GET("/results/:id", s.getResult)

		api.GET("/statistics", s.statistics)
	}
	return r
}

func (s *server) health(c *gin.Context) {
	log.Printf("Health check request received from: %s\n", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (s *server) bands(c *gin.Context) {
	weights := gin.H{}
	for _, cat := range engine.Categories {
		weights[string(cat)] = engine.Weight(cat)
	}
	c.JSON(http.StatusOK, gin.H{
		"bands":   engine.Bands(),
		"weights": weights,
	})
}

// bindJSON decodes a size-limited request body, writing the error response
// itself when decoding fails
func (s *server) bindJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

func (s *server) scoreContent(c *gin.Context) {
	var request analyzer.ScoreRequest
	if !s.bindJSON(c, &request) {
		return
	}
	c.Set(middleware.SourceKey, request.Source)

	report, err := s.analyzer.ScoreContent(c.Request.Context(), request)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *server) analyzeURL(c *gin.Context) {
	log.Printf("Analyze request received from: %s\n", c.ClientIP())
	var request analyzer.URLRequest
	if !s.bindJSON(c, &request) {
		return
	}
	c.Set(middleware.SourceKey, request.URL)

	report, err := s.analyzer.AnalyzeURL(c.Request.Context(), request)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// fail maps service errors to status codes
func (s *server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analyzer.ErrDocumentTooLarge), errors.Is(err, fetcher.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, analyzer.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL provided"})
	case errors.Is(err, analyzer.ErrFetch):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch URL: " + err.Error()})
	default:
		log.Printf("Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to score document"})
	}
}

func (s *server) listResults(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Result store is not configured"})
		return
	}
	opts := store.ListOptions{Level: c.Query("band")}
	if opts.Level != "" {
		if _, ok := engine.BandByLevel(opts.Level); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown band: " + opts.Level})
			return
		}
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		opts.Limit = n
	}

	records, err := s.store.List(c.Request.Context(), opts)
	if err != nil {
		log.Printf("Failed to list results: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list results"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": records})
}

func (s *server) getResult(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Result store is not configured"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid result id"})
		return
	}

	rec, err := s.store.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Result not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load result %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load result"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *server) statistics(c *gin.Context) {
	out := gin.H{}
	if s.stats != nil {
		for k, v := range s.stats.GetStatistics() {
			out[k] = v
		}
	}
	out["cache"] = s.analyzer.GetCacheStats()
	out["months"] = s.analyzer.GetStats().GetAllMonths()
	if s.store != nil {
		if counts, err := s.store.Stats(c.Request.Context()); err == nil {
			out["storedBands"] = counts
		} else {
			log.Printf("Failed to count stored results: %v", err)
		}
	}
	c.JSON(http.StatusOK, out)
}
