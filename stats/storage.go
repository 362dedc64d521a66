// Package stats keeps monthly operational counters for the verdict service
// and persists them to a JSON file in the data directory.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const fileName = "stats.json"

// MonthlyStats represents statistics for a specific month
type MonthlyStats struct {
	Analyses       int            `json:"analyses"`
	AnalysisErrors int            `json:"analysis_errors"`
	CacheHits      int            `json:"cache_hits"`
	CacheMisses    int            `json:"cache_misses"`
	Blockers       map[string]int `json:"blockers"`
	Stages         map[string]int `json:"stages"`
	LastUpdated    time.Time      `json:"last_updated"`
}

func newMonthlyStats() *MonthlyStats {
	return &MonthlyStats{
		Blockers: make(map[string]int),
		Stages:   make(map[string]int),
	}
}

func (m *MonthlyStats) clone() MonthlyStats {
	out := *m
	out.Blockers = make(map[string]int, len(m.Blockers))
	for k, v := range m.Blockers {
		out.Blockers[k] = v
	}
	out.Stages = make(map[string]int, len(m.Stages))
	for k, v := range m.Stages {
		out.Stages[k] = v
	}
	return out
}

// Storage handles persistent storage of statistics
type Storage struct {
	mutex       sync.RWMutex
	saveMu      sync.Mutex
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
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, eris.Wrapf(err, "stats: create data directory %s", dataDir)
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, fileName),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		now:         time.Now,
	}

	if err := s.load(); err != nil && !os.IsNotExist(eris.Cause(err)) {
		return nil, err
	}

	go s.backgroundWriter()

	return s, nil
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := json.Unmarshal(data, &s.stats); err != nil {
		return eris.Wrapf(err, "stats: decode %s", s.filePath)
	}
	for _, m := range s.stats {
		if m.Blockers == nil {
			m.Blockers = make(map[string]int)
		}
		if m.Stages == nil {
			m.Stages = make(map[string]int)
		}
	}
	return nil
}

// save writes statistics to file via a temp file and rename.
func (s *Storage) save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()
	if err != nil {
		return eris.Wrap(err, "stats: encode")
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return eris.Wrap(err, "stats: write temporary file")
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return eris.Wrap(err, "stats: rename temporary file")
	}
	return nil
}

func (s *Storage) saveAndLog() {
	if err := s.save(); err != nil {
		zap.L().Warn("stats save failed", zap.Error(err))
	}
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
			s.saveAndLog()
		case <-s.done:
			return
		}
	}
}

// Shutdown stops the background writer and flushes to disk. It is safe to
// call more than once.
func (s *Storage) Shutdown() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
		err = s.save()
	})
	return err
}

func (s *Storage) currentMonth() string {
	return s.now().Format("2006-01")
}

// requestWrite signals that a write to disk is needed
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// write already pending
	}
}

// update runs fn on the current month's counters under the write lock.
func (s *Storage) update(fn func(m *MonthlyStats)) {
	month := s.currentMonth()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	m, exists := s.stats[month]
	if !exists {
		m = newMonthlyStats()
		s.stats[month] = m
	}
	fn(m)
	m.LastUpdated = s.now()

	if s.now().Sub(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = s.now()
	}
}

// RecordCache counts a page cache hit or miss.
func (s *Storage) RecordCache(hit bool) {
	s.update(func(m *MonthlyStats) {
		if hit {
			m.CacheHits++
		} else {
			m.CacheMisses++
		}
	})
}

// RecordAnalysis counts one completed analysis with its blockers and stage.
func (s *Storage) RecordAnalysis(blockers []string, stage string) {
	s.update(func(m *MonthlyStats) {
		m.Analyses++
		for _, b := range blockers {
			m.Blockers[b]++
		}
		if stage != "" {
			m.Stages[stage]++
		}
	})
}

// RecordError counts one failed analysis.
func (s *Storage) RecordError() {
	s.update(func(m *MonthlyStats) { m.AnalysisErrors++ })
}

// GetCurrentStats returns statistics for the current month
func (s *Storage) GetCurrentStats() MonthlyStats {
	st, _ := s.GetMonthlyStats(s.currentMonth())
	return st
}

// Cleanup drops every month older than the newest retainMonths months,
// counting back from the current one.
func (s *Storage) Cleanup(retainMonths int) {
	if retainMonths < 1 {
		retainMonths = 1
	}
	now := s.now()
	year, month, _ := now.Date()
	keep := make(map[string]struct{}, retainMonths)
	for i := 0; i < retainMonths; i++ {
		// Count from the first of the month; AddDate on the 31st skips short months.
		first := time.Date(year, month-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		keep[first.Format("2006-01")] = struct{}{}
	}

	s.mutex.Lock()
	removed := 0
	for key := range s.stats {
		if _, ok := keep[key]; !ok {
			delete(s.stats, key)
			removed++
		}
	}
	s.mutex.Unlock()

	s.requestWrite()
	zap.L().Info("stats cleanup", zap.Int("retain_months", retainMonths), zap.Int("removed", removed))
}

// GetMonthlyStats returns statistics for a specific month
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if m, exists := s.stats[yearMonth]; exists {
		return m.clone(), true
	}
	return *newMonthlyStats(), false
}

// GetAllMonths returns all months with statistics, newest first.
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
