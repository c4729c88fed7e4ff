package analyzer

import (
	"time"

	"github.com/cgs-engine/backend/engine"
	"github.com/cgs-engine/backend/fetcher"
)

// ScoreRequest asks for an inline document to be scored
type ScoreRequest struct {
	Content  string          `json:"content"`
	Metadata engine.Metadata `json:"metadata"`
	Source   string          `json:"source,omitempty"`
	Explain  bool            `json:"explain,omitempty"`
	Save     bool            `json:"save,omitempty"`
}

// URLRequest asks for a remote document to be fetched and scored
type URLRequest struct {
	URL      string          `json:"url"`
	Metadata engine.Metadata `json:"metadata"`
	Readable bool            `json:"readable,omitempty"`
	Explain  bool            `json:"explain,omitempty"`
	Save     bool            `json:"save,omitempty"`
}

// Report is a score result plus what the service learned around it
type Report struct {
	engine.ScoreResult
	Source      string                       `json:"source,omitempty"`
	Language    string                       `json:"language,omitempty"`
	WordCount   int                          `json:"wordCount"`
	Page        *fetcher.Page                `json:"page,omitempty"`
	Explanation []engine.CategoryExplanation `json:"explanation,omitempty"`
	ResultID    int64                        `json:"resultId,omitempty"`
	Cached      bool                         `json:"cached"`
	ScoredAt    time.Time                    `json:"scoredAt"`
}

// CacheStats provides statistics about the analyzer's cache
type CacheStats struct {
	Entries      int           `json:"entries"`
	MaxEntries   int           `json:"maxEntries"`
	Hits         int           `json:"hits"`
	Misses       int           `json:"misses"`
	TTL          time.Duration `json:"ttl"`
	LastCleanup  time.Time     `json:"lastCleanup"`
	FetchErrors  int           `json:"fetchErrors"`
	ScoredMonth  int           `json:"scoredThisMonth"`
	AverageScore float64       `json:"averageScore"`
}
