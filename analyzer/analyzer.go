// Package analyzer is the scoring service around the engine: it bounds
// input size, caches results, fetches remote documents, detects the
// document language, records monthly statistics and optionally persists
// every report.
package analyzer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cgs-engine/backend/config"
	"github.com/cgs-engine/backend/engine"
	"github.com/cgs-engine/backend/fetcher"
	"github.com/cgs-engine/backend/stats"
	"github.com/cgs-engine/backend/store"
)

var (
	// ErrDocumentTooLarge is returned when content exceeds the configured size
	ErrDocumentTooLarge = errors.New("document too large")
	// ErrInvalidURL is returned for URLs the fetcher will not request
	ErrInvalidURL = fetcher.ErrInvalidURL
	// ErrFetch wraps every failure to retrieve a remote document
	ErrFetch = errors.New("fetch failed")
)

// Cache entry with expiration
type cacheEntry struct {
	report    Report
	timestamp time.Time
}

// Analyzer scores documents
type Analyzer struct {
	engine   *engine.Engine
	fetcher  *fetcher.Fetcher
	store    *store.Store
	stats    *stats.Storage
	language *languageDetector

	cache           map[string]cacheEntry
	cacheMutex      sync.RWMutex
	cacheTTL        time.Duration
	maxCacheSize    int
	lastCleanup     time.Time
	cleanupInterval time.Duration
	maxDocument     int

	done      chan struct{}
	closeOnce sync.Once
	now       func() time.Time
}

// Option customizes an Analyzer
type Option func(*Analyzer)

// WithStore persists reports for requests that ask for it
func WithStore(s *store.Store) Option {
	return func(a *Analyzer) {
		a.store = s
	}
}

// WithFetcher replaces the fetcher built from the configuration
func WithFetcher(f *fetcher.Fetcher) Option {
	return func(a *Analyzer) {
		a.fetcher = f
	}
}

// New creates a new Analyzer from the service configuration
func New(cfg config.Config, opts ...Option) (*Analyzer, error) {
	statsStorage, err := stats.NewStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stats storage: %w", err)
	}

	var engineOpts []engine.Option
	if cfg.Parallel {
		engineOpts = append(engineOpts, engine.WithParallel())
	}

	a := &Analyzer{
		engine:          engine.New(engineOpts...),
		stats:           statsStorage,
		language:        newLanguageDetector(cfg.Languages),
		cache:           make(map[string]cacheEntry),
		cacheTTL:        cfg.CacheTTL,
		maxCacheSize:    cfg.MaxCacheSize,
		cleanupInterval: cfg.CleanupInterval,
		maxDocument:     cfg.MaxDocumentBytes,
		lastCleanup:     time.Now(),
		done:            make(chan struct{}),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fetcher == nil {
		a.fetcher = fetcher.New(fetcher.Options{
			Timeout:     cfg.Fetch.Timeout,
			MaxRetries:  cfg.Fetch.MaxRetries,
			BaseBackoff: cfg.Fetch.BaseBackoff,
			MaxBackoff:  cfg.Fetch.MaxBackoff,
			UserAgent:   cfg.Fetch.UserAgent,
			MaxBytes:    cfg.Fetch.MaxBytes,
		})
	}

	go a.periodicCleanup()

	return a, nil
}

// periodicCleanup removes expired entries until Shutdown
func (a *Analyzer) periodicCleanup() {
	ticker := time.NewTicker(a.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.cleanup()
		case <-a.done:
			return
		}
	}
}

// cleanup removes expired entries and enforces the size limit
func (a *Analyzer) cleanup() {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cleanupLocked()
}

func (a *Analyzer) cleanupLocked() {
	now := a.now()
	for key, entry := range a.cache {
		if now.Sub(entry.timestamp) > a.cacheTTL {
			delete(a.cache, key)
		}
	}

	// If still over size limit, remove oldest entries
	if len(a.cache) > a.maxCacheSize {
		type keyed struct {
			key       string
			timestamp time.Time
		}
		entries := make([]keyed, 0, len(a.cache))
		for key, entry := range a.cache {
			entries = append(entries, keyed{key, entry.timestamp})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].timestamp.Before(entries[j].timestamp)
		})
		for i := 0; i < len(entries)-a.maxCacheSize; i++ {
			delete(a.cache, entries[i].key)
		}
	}

	a.lastCleanup = now
}

// SetMaxCacheSize sets the maximum number of cached reports
func (a *Analyzer) SetMaxCacheSize(size int) {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.maxCacheSize = size
	a.cleanupLocked()
}

// SetCacheTTL sets the cache TTL
func (a *Analyzer) SetCacheTTL(ttl time.Duration) {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cacheTTL = ttl
}

// ClearCache clears the report cache
func (a *Analyzer) ClearCache() {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cache = make(map[string]cacheEntry)
}

// generateCacheKey hashes every input that affects a result. Scoring is
// deterministic, so equal keys always mean equal results.
func generateCacheKey(kind, subject string, meta engine.Metadata) string {
	da := "-"
	if meta.DomainAuthority != nil {
		da = strconv.Itoa(*meta.DomainAuthority)
	}
	h := md5.New()
	for _, part := range []string{kind, subject, meta.TargetKeyword, da, meta.MetaDescription} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func urlKind(readable bool) string {
	if readable {
		return "url+readable"
	}
	return "url"
}

// GetCacheStats returns statistics about the cache
func (a *Analyzer) GetCacheStats() CacheStats {
	current := a.stats.GetCurrentStats()

	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()

	return CacheStats{
		Entries:      len(a.cache),
		MaxEntries:   a.maxCacheSize,
		Hits:         current.CacheHits,
		Misses:       current.CacheMisses,
		TTL:          a.cacheTTL,
		LastCleanup:  a.lastCleanup,
		FetchErrors:  current.FetchErrors,
		ScoredMonth:  current.Scored,
		AverageScore: current.AverageScore(),
	}
}

func (a *Analyzer) lookup(key string) (Report, bool) {
	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()

	entry, found := a.cache[key]
	if !found || a.now().Sub(entry.timestamp) >= a.cacheTTL {
		return Report{}, false
	}
	return entry.report, true
}

func (a *Analyzer) remember(key string, report Report) {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()

	a.cache[key] = cacheEntry{report: report, timestamp: a.now()}
	if len(a.cache) > a.maxCacheSize {
		a.cleanupLocked()
	}
}

// IsCached checks if a document with this metadata has a live cached report
func (a *Analyzer) IsCached(content string, meta engine.Metadata) bool {
	_, ok := a.lookup(generateCacheKey("content", content, meta))
	return ok
}

// IsURLCached checks if a fetched URL has a live cached report
func (a *Analyzer) IsURLCached(rawURL string, readable bool, meta engine.Metadata) bool {
	_, ok := a.lookup(generateCacheKey(urlKind(readable), rawURL, meta))
	return ok
}

func (a *Analyzer) maybeCleanup() {
	a.cacheMutex.RLock()
	due := a.now().Sub(a.lastCleanup) > a.cleanupInterval
	a.cacheMutex.RUnlock()
	if due {
		go a.cleanup()
	}
}

// ScoreContent scores an inline document. Empty content is valid and
// scores zero.
func (a *Analyzer) ScoreContent(ctx context.Context, req ScoreRequest) (*Report, error) {
	if a.maxDocument > 0 && len(req.Content) > a.maxDocument {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrDocumentTooLarge, len(req.Content), a.maxDocument)
	}
	a.maybeCleanup()

	key := generateCacheKey("content", req.Content, req.Metadata)
	report, hit := a.lookup(key)
	if hit {
		a.stats.Record(stats.Event{CacheHit: true})
		report.Cached = true
	} else {
		report = a.score(req.Content, req.Metadata)
		a.stats.Record(stats.Event{
			CacheMiss: true,
			Band:      report.RiskBand.Level,
			Score:     report.CompositeScore,
		})
		a.remember(key, report)
	}
	report.Source = req.Source

	return a.finish(ctx, &report, req.Content, req.Metadata, req.Explain, req.Save)
}

// AnalyzeURL fetches a remote document and scores it. A missing meta
// description is taken from the page's own meta tag.
func (a *Analyzer) AnalyzeURL(ctx context.Context, req URLRequest) (*Report, error) {
	if _, err := fetcher.ValidateURL(req.URL); err != nil {
		return nil, err
	}
	a.maybeCleanup()

	key := generateCacheKey(urlKind(req.Readable), req.URL, req.Metadata)
	if report, hit := a.lookup(key); hit {
		a.stats.Record(stats.Event{CacheHit: true})
		report.Cached = true
		content := ""
		if report.Page != nil {
			content = report.Page.HTML
		}
		return a.finish(ctx, &report, content, a.effectiveMetadata(req.Metadata, report.Page), req.Explain, req.Save)
	}

	page, err := a.fetcher.Fetch(ctx, req.URL, req.Readable)
	if err != nil {
		a.stats.Record(stats.Event{FetchError: true})
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if a.maxDocument > 0 && len(page.HTML) > a.maxDocument {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrDocumentTooLarge, req.URL, len(page.HTML))
	}

	meta := a.effectiveMetadata(req.Metadata, page)
	report := a.score(page.HTML, meta)
	report.Source = req.URL
	report.Page = page
	a.stats.Record(stats.Event{
		CacheMiss: true,
		Band:      report.RiskBand.Level,
		Score:     report.CompositeScore,
	})
	a.remember(key, report)

	return a.finish(ctx, &report, page.HTML, meta, req.Explain, req.Save)
}

func (a *Analyzer) effectiveMetadata(meta engine.Metadata, page *fetcher.Page) engine.Metadata {
	if meta.MetaDescription == "" && page != nil {
		meta.MetaDescription = page.MetaDescription
	}
	return meta
}

// score runs the engine and the language detector on one document
func (a *Analyzer) score(content string, meta engine.Metadata) Report {
	doc := engine.Parse(content)
	return Report{
		ScoreResult: a.engine.ScoreDocument(doc, meta),
		Language:    a.language.Detect(doc.Text()),
		WordCount:   doc.WordCount(),
		ScoredAt:    a.now(),
	}
}

// finish adds per-request extras that are never cached
func (a *Analyzer) finish(ctx context.Context, report *Report, content string, meta engine.Metadata, explain, save bool) (*Report, error) {
	if explain {
		report.Explanation = a.engine.Explain(content, meta)
	}
	if save {
		if a.store == nil {
			log.Printf("Save requested but no result store is configured")
			return report, nil
		}
		rec := &store.Record{
			Source:   report.Source,
			Document: content,
			Metadata: meta,
			Result:   report.ScoreResult,
			Language: report.Language,
		}
		id, err := a.store.Save(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("failed to save result: %w", err)
		}
		report.ResultID = id
	}
	return report, nil
}

// GetStats returns the statistics storage instance
func (a *Analyzer) GetStats() *stats.Storage {
	return a.stats
}

// Shutdown stops background work and flushes statistics. The result store
// belongs to the caller and is left open.
func (a *Analyzer) Shutdown() error {
	if a == nil {
		return nil
	}

	var err error
	a.closeOnce.Do(func() {
		close(a.done)

		if a.stats != nil {
			if serr := a.stats.Shutdown(); serr != nil {
				err = fmt.Errorf("failed to shutdown stats storage: %w", serr)
			}
		}

		a.ClearCache()
	})
	return err
}
