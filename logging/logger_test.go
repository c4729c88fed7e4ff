package logging

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestCleanSource(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"inline", ""},
		{"https://example.com/", "https://example.com"},
		{"https://example.com/blog/post/?utm=1", "https://example.com/blog/post"},
		{"http://localhost:8082/api/score", ""},
		{"http://127.0.0.1/page", ""},
	}
	for _, tt := range tests {
		if got := cleanSource(tt.in); got != tt.want {
			t.Errorf("cleanSource(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTrackScore(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "statistics.json"), true)

	s.TrackScore("https://example.com/a", 10, false)
	s.TrackScore("https://example.com/a", 20, false)
	s.TrackScore("https://example.org/b", 30, true)
	s.TrackScore("", 40, false)

	if s.Requests() != 4 {
		t.Errorf("Expected 4 requests, got %d", s.Requests())
	}
	if s.GetErrorRate() != 25 {
		t.Errorf("Expected 25%% error rate, got %f", s.GetErrorRate())
	}
	if s.AverageLatency != 25 {
		t.Errorf("Expected average latency 25, got %f", s.AverageLatency)
	}

	top := s.GetPopularSources(1)
	if len(top) != 1 || top[0].Source != "https://example.com/a" || top[0].Count != 2 {
		t.Errorf("Unexpected popular sources: %+v", top)
	}
}

func TestGetStatisticsHidesSourcesOutsideDevMode(t *testing.T) {
	prod := New(filepath.Join(t.TempDir(), "statistics.json"), false)
	prod.TrackScore("https://example.com", 1, false)
	if _, ok := prod.GetStatistics()["popularSources"]; ok {
		t.Error("Popular sources should be hidden outside dev mode")
	}

	dev := New(filepath.Join(t.TempDir(), "statistics.json"), true)
	dev.TrackScore("https://example.com", 1, false)
	if _, ok := dev.GetStatistics()["popularSources"]; !ok {
		t.Error("Popular sources should be shown in dev mode")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statistics.json")
	s := New(path, false)
	s.TrackVisitor("10.0.0.1")
	s.TrackScore("https://example.com", 100, false)
	s.TrackScore("https://example.com", 200, true)
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := New(path, false)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Requests() != 2 || loaded.ErrorCount != 1 {
		t.Errorf("Unexpected loaded counters: %d requests, %d errors", loaded.Requests(), loaded.ErrorCount)
	}
	if loaded.GetUniqueVisitorsCount() != 1 {
		t.Errorf("Expected 1 visitor, got %d", loaded.GetUniqueVisitorsCount())
	}

	// Latency average continues from the restored total
	loaded.TrackScore("", 450, false)
	if loaded.AverageLatency != 250 {
		t.Errorf("Expected average 250, got %f", loaded.AverageLatency)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.json"), false)
	if err := s.Load(); err != nil {
		t.Errorf("Missing file should not be an error: %v", err)
	}
}

func TestConcurrentTracking(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "statistics.json"), true)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.TrackVisitor("10.0.0.1")
				s.TrackScore("https://example.com", 1, false)
				s.GetStatistics()
			}
		}()
	}
	wg.Wait()

	if s.Requests() != 1000 {
		t.Errorf("Expected 1000 requests, got %d", s.Requests())
	}
}
