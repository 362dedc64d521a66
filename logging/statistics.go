package logging

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

const statisticsFile = "statistics.json"

// Statistics represents the collected request statistics
type Statistics struct {
	UniqueVisitors   map[string]time.Time `json:"uniqueVisitors"`   // IP -> Last Visit Time
	AnalysisRequests int                  `json:"analysisRequests"` // Total number of analysis requests
	ErrorCount       int                  `json:"errorCount"`
	PopularHosts     map[string]int       `json:"popularHosts"` // host -> Count
	AverageLoadTime  float64              `json:"averageLoadTime"`
	TotalLoadTime    float64              `json:"totalLoadTime"`
	RequestCount     int                  `json:"requestCount"`
	LastPersisted    time.Time            `json:"lastPersisted"`

	path    string
	devMode bool
	mutex   sync.RWMutex
}

// NewStatistics creates statistics persisted under dataDir and loads any
// previous snapshot. devMode exposes popular hosts in Snapshot.
func NewStatistics(dataDir string, devMode bool) (*Statistics, error) {
	s := &Statistics{
		UniqueVisitors: make(map[string]time.Time),
		PopularHosts:   make(map[string]int),
		LastPersisted:  time.Now(),
		devMode:        devMode,
	}
	if dataDir != "" {
		s.path = filepath.Join(dataDir, statisticsFile)
	}
	if err := s.Load(); err != nil {
		return s, err
	}
	return s, nil
}

// TrackVisitor records a unique visitor
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UniqueVisitors[ip] = time.Now()
}

// cleanHost reduces an analyzed URL to its host, dropping local and API URLs.
func cleanHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || host == "127.0.0.1" || strings.Contains(strings.ToLower(u.Path), "/api/") {
		return ""
	}
	return strings.TrimPrefix(host, "www.")
}

// TrackAnalysis records an analysis request
func (s *Statistics) TrackAnalysis(target string, loadTimeMs float64, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.AnalysisRequests++
	if host := cleanHost(target); host != "" {
		s.PopularHosts[host]++
	}
	if hasError {
		s.ErrorCount++
	}

	s.TotalLoadTime += loadTimeMs
	s.RequestCount++
	s.AverageLoadTime = s.TotalLoadTime / float64(s.RequestCount)
}

// Requests returns the number of tracked analysis requests.
func (s *Statistics) Requests() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.AnalysisRequests
}

func (s *Statistics) uniqueVisitors24h() int {
	count := 0
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, lastVisit := range s.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// HostCount is one entry in the popular-host ranking.
type HostCount struct {
	Host  string `json:"host"`
	Count int    `json:"count"`
}

func (s *Statistics) popularHosts(n int) []HostCount {
	out := make([]HostCount, 0, len(s.PopularHosts))
	for host, c := range s.PopularHosts {
		out = append(out, HostCount{host, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Host < out[j].Host
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *Statistics) errorRate() float64 {
	if s.AnalysisRequests == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.AnalysisRequests) * 100
}

// Save persists the statistics. It is a no-op without a data directory.
func (s *Statistics) Save() error {
	if s.path == "" {
		return nil
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.LastPersisted = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "logging: encode statistics")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return eris.Wrap(err, "logging: create statistics directory")
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return eris.Wrap(err, "logging: write statistics")
	}
	return nil
}

// Load reads a previous snapshot. A missing file is not an error.
func (s *Statistics) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrap(err, "logging: open statistics")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := json.Unmarshal(data, s); err != nil {
		return eris.Wrap(err, "logging: decode statistics")
	}
	if s.UniqueVisitors == nil {
		s.UniqueVisitors = make(map[string]time.Time)
	}
	if s.PopularHosts == nil {
		s.PopularHosts = make(map[string]int)
	}
	return nil
}

// Snapshot returns the public view of the statistics. Popular hosts are
// only included in dev mode.
func (s *Statistics) Snapshot() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := map[string]interface{}{
		"uniqueVisitors24h": s.uniqueVisitors24h(),
		"totalRequests":     s.AnalysisRequests,
		"errorRate":         s.errorRate(),
		"averageLoadTime":   s.AverageLoadTime,
	}
	if s.devMode {
		out["popularHosts"] = s.popularHosts(5)
	}
	return out
}
