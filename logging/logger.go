package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Statistics represents the collected request statistics
type Statistics struct {
	UniqueVisitors map[string]time.Time `json:"uniqueVisitors"` // IP -> Last Visit Time
	ScoreRequests  int                  `json:"scoreRequests"`  // Total number of scoring requests
	ErrorCount     int                  `json:"errorCount"`     // Number of failed requests
	PopularSources map[string]int       `json:"popularSources"` // Source URL -> Count
	AverageLatency float64              `json:"averageLatency"` // Average latency in milliseconds
	TotalLatency   float64              `json:"-"`              // Used to calculate average
	LastPersisted  time.Time            `json:"lastPersisted"`  // Last time stats were saved

	filePath string
	devMode  bool
	mutex    sync.RWMutex
}

var (
	stats *Statistics
	once  sync.Once
)

// Initialize creates or loads the process-wide statistics
func Initialize(filePath string, devMode bool) *Statistics {
	once.Do(func() {
		stats = New(filePath, devMode)
		if err := stats.Load(); err != nil {
			log.Printf("Could not load existing statistics: %v", err)
		}
	})
	return stats
}

// New creates an empty Statistics persisted at filePath
func New(filePath string, devMode bool) *Statistics {
	return &Statistics{
		UniqueVisitors: make(map[string]time.Time),
		PopularSources: make(map[string]int),
		LastPersisted:  time.Now(),
		filePath:       filePath,
		devMode:        devMode,
	}
}

// TrackVisitor records a unique visitor
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UniqueVisitors[ip] = time.Now()
}

// cleanSource reduces a URL to scheme, host and path. Inline documents
// and local addresses return "".
func cleanSource(source string) string {
	if source == "" {
		return ""
	}
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return ""
	}

	if strings.Contains(u.Host, "localhost") || strings.Contains(u.Host, "127.0.0.1") {
		return ""
	}

	clean := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		clean += u.Path
	}
	return strings.TrimSuffix(clean, "/")
}

// TrackScore records a scoring request
func (s *Statistics) TrackScore(source string, latency float64, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.ScoreRequests++

	if cleaned := cleanSource(source); cleaned != "" {
		s.PopularSources[cleaned]++
	}
	if hasError {
		s.ErrorCount++
	}

	s.TotalLatency += latency
	s.AverageLatency = s.TotalLatency / float64(s.ScoreRequests)
}

// Requests returns the number of tracked scoring requests
func (s *Statistics) Requests() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.ScoreRequests
}

func (s *Statistics) uniqueVisitorsLocked() int {
	count := 0
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, lastVisit := range s.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// GetUniqueVisitorsCount returns the number of unique visitors in the last 24 hours
func (s *Statistics) GetUniqueVisitorsCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.uniqueVisitorsLocked()
}

func (s *Statistics) popularSourcesLocked(n int) []SourceCount {
	out := make([]SourceCount, 0, len(s.PopularSources))
	for source, count := range s.PopularSources {
		out = append(out, SourceCount{Source: source, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Source < out[j].Source
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// SourceCount is a source URL with its request count
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// GetPopularSources returns the top n most scored sources
func (s *Statistics) GetPopularSources(n int) []SourceCount {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.popularSourcesLocked(n)
}

func (s *Statistics) errorRateLocked() float64 {
	if s.ScoreRequests == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.ScoreRequests) * 100
}

// GetErrorRate returns the error rate as a percentage
func (s *Statistics) GetErrorRate() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.errorRateLocked()
}

// Save persists the statistics to disk
func (s *Statistics) Save() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.LastPersisted = time.Now()

	file, err := os.Create(s.filePath)
	if err != nil {
		return fmt.Errorf("could not create statistics file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(s); err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}
	return nil
}

// Load reads the statistics from disk. A missing file is not an error.
func (s *Statistics) Load() error {
	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not open statistics file: %w", err)
	}
	defer file.Close()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := json.NewDecoder(file).Decode(s); err != nil {
		return fmt.Errorf("could not decode statistics: %w", err)
	}
	if s.UniqueVisitors == nil {
		s.UniqueVisitors = make(map[string]time.Time)
	}
	if s.PopularSources == nil {
		s.PopularSources = make(map[string]int)
	}
	if s.ScoreRequests > 0 {
		s.TotalLatency = s.AverageLatency * float64(s.ScoreRequests)
	}
	return nil
}

// GetStatistics returns a snapshot of the statistics. Popular sources are
// only included in development mode.
func (s *Statistics) GetStatistics() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := map[string]interface{}{
		"uniqueVisitors24h": s.uniqueVisitorsLocked(),
		"totalRequests":     s.ScoreRequests,
		"errorRate":         s.errorRateLocked(),
		"averageLatency":    s.AverageLatency,
	}
	if s.devMode {
		out["popularSources"] = s.popularSourcesLocked(5)
	}
	return out
}
