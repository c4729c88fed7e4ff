package stats

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// RetainMonths is how many months of statistics are kept, counting the
// current one
const RetainMonths = 2

// MonthlyStats represents scoring statistics for a specific month
type MonthlyStats struct {
	Scored      int            `json:"scored"`
	CacheHits   int            `json:"cache_hits"`
	CacheMisses int            `json:"cache_misses"`
	FetchErrors int            `json:"fetch_errors"`
	ScoreTotal  int            `json:"score_total"`
	Bands       map[string]int `json:"bands"`
	LastUpdated time.Time      `json:"last_updated"`
}

// AverageScore returns the mean composite score for the month
func (m MonthlyStats) AverageScore() float64 {
	if m.Scored == 0 {
		return 0
	}
	return float64(m.ScoreTotal) / float64(m.Scored)
}

// Event describes one thing worth counting
type Event struct {
	CacheHit   bool
	CacheMiss  bool
	FetchError bool
	// Band and Score are recorded when Band is non-empty
	Band  string
	Score int
}

// Storage handles persistent storage of statistics
type Storage struct {
	mutex       sync.RWMutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	now         func() time.Time
}

// NewStorage creates a new statistics storage instance
func NewStorage(dataDir string) (*Storage, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, "stats.json"),
		writeBuffer: make(chan struct{}, 1), // Buffer for write requests
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		now:         time.Now,
	}

	// Load existing stats if file exists
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	s.prune(RetainMonths)

	go s.backgroundWriter()

	return s, nil
}

// load reads statistics from file
func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return json.Unmarshal(data, &s.stats)
}

// save writes statistics to file
func (s *Storage) save() error {
	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	// Write to temporary file first, then rename over the real one
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// backgroundWriter handles periodic writes to disk
func (s *Storage) backgroundWriter() {
	defer close(s.stopped)

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
			s.saveAndLog()
		case <-ticker.C:
			if n := s.prune(RetainMonths); n > 0 {
				log.Printf("Dropped statistics for %d expired month(s)", n)
			}
			s.saveAndLog()
		case <-s.done:
			return
		}
	}
}

func (s *Storage) saveAndLog() {
	if err := s.save(); err != nil {
		log.Printf("Failed to persist statistics: %v", err)
	}
}

func (s *Storage) currentMonth() string {
	return s.now().Format("2006-01")
}

// requestWrite signals that a write to disk is needed
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// Write already pending
	}
}

// Record adds an event to the current month's counters
func (s *Storage) Record(ev Event) {
	month := s.currentMonth()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats, exists := s.stats[month]
	if !exists {
		stats = &MonthlyStats{}
		s.stats[month] = stats
	}
	if stats.Bands == nil {
		stats.Bands = make(map[string]int)
	}

	if ev.CacheHit {
		stats.CacheHits++
	}
	if ev.CacheMiss {
		stats.CacheMisses++
	}
	if ev.FetchError {
		stats.FetchErrors++
	}
	if ev.Band != "" {
		stats.Scored++
		stats.ScoreTotal += ev.Score
		stats.Bands[ev.Band]++
	}
	stats.LastUpdated = s.now()

	// Request a write if enough time has passed
	if time.Since(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = time.Now()
	}
}

// GetCurrentStats returns statistics for the current month
func (s *Storage) GetCurrentStats() MonthlyStats {
	stats, _ := s.GetMonthlyStats(s.currentMonth())
	return stats
}

// GetMonthlyStats returns statistics for a specific month
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats, exists := s.stats[yearMonth]
	if !exists {
		return MonthlyStats{}, false
	}
	out := *stats
	out.Bands = make(map[string]int, len(stats.Bands))
	for k, v := range stats.Bands {
		out.Bands[k] = v
	}
	return out, true
}

// Cleanup removes statistics older than the given number of months,
// always keeping the current month
func (s *Storage) Cleanup(retainMonths int) {
	s.prune(retainMonths)
	s.requestWrite()
	log.Printf("Retained statistics for the last %d month(s)", retainMonths)
}

// prune drops months outside the retention window and reports how many
func (s *Storage) prune(retainMonths int) int {
	if retainMonths < 1 {
		retainMonths = 1
	}
	now := s.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	keep := make(map[string]bool, retainMonths)
	for i := 0; i < retainMonths; i++ {
		keep[first.AddDate(0, -i, 0).Format("2006-01")] = true
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	removed := 0
	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
			removed++
		}
	}
	return removed
}

// GetAllMonths returns all months that have statistics, newest first
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	return months
}

// Shutdown stops the background writer and flushes statistics to disk
func (s *Storage) Shutdown() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
		err = s.save()
	})
	return err
}
