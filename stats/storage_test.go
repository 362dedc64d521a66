package stats

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	tempDir := t.TempDir()

	storage, err := NewStorage(tempDir)
	require.NoError(t, err)

	t.Run("RecordAnalysis", func(t *testing.T) {
		storage.RecordAnalysis([]string{"missing_pricing", "weak_trust_signals"}, "evaluation")
		storage.RecordAnalysis([]string{"missing_pricing"}, "commitment")
		storage.RecordError()
		storage.RecordCache(true)
		storage.RecordCache(false)
		storage.RecordCache(false)

		st := storage.GetCurrentStats()
		assert.Equal(t, 2, st.Analyses)
		assert.Equal(t, 1, st.AnalysisErrors)
		assert.Equal(t, 1, st.CacheHits)
		assert.Equal(t, 2, st.CacheMisses)
		assert.Equal(t, map[string]int{"missing_pricing": 2, "weak_trust_signals": 1}, st.Blockers)
		assert.Equal(t, map[string]int{"evaluation": 1, "commitment": 1}, st.Stages)
	})

	t.Run("SnapshotIsCopy", func(t *testing.T) {
		st := storage.GetCurrentStats()
		st.Blockers["missing_pricing"] = 99
		assert.Equal(t, 2, storage.GetCurrentStats().Blockers["missing_pricing"])
	})

	t.Run("Persistence", func(t *testing.T) {
		require.NoError(t, storage.save())

		storage2, err := NewStorage(tempDir)
		require.NoError(t, err)
		defer storage2.Shutdown()

		st := storage2.GetCurrentStats()
		assert.Equal(t, 2, st.Analyses)
		assert.Equal(t, 2, st.Blockers["missing_pricing"])
	})

	t.Run("Cleanup", func(t *testing.T) {
		y, m, _ := time.Now().Date()
		oldMonth := time.Date(y, m-2, 1, 0, 0, 0, 0, time.Local).Format("2006-01")
		prevMonth := time.Date(y, m-1, 1, 0, 0, 0, 0, time.Local).Format("2006-01")
		storage.mutex.Lock()
		storage.stats[oldMonth] = &MonthlyStats{Analyses: 100, Blockers: map[string]int{}, Stages: map[string]int{}}
		storage.stats[prevMonth] = &MonthlyStats{Analyses: 5, Blockers: map[string]int{}, Stages: map[string]int{}}
		storage.mutex.Unlock()

		storage.Cleanup(2)

		_, old := storage.GetMonthlyStats(oldMonth)
		assert.False(t, old, "old stats should have been cleaned up")
		_, prev := storage.GetMonthlyStats(prevMonth)
		assert.True(t, prev)
		assert.Equal(t, []string{time.Now().Format("2006-01"), prevMonth}, storage.GetAllMonths())
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		before := storage.GetCurrentStats()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					storage.RecordCache(true)
					storage.RecordAnalysis([]string{"cta_not_detected"}, "orientation")
					storage.GetCurrentStats()
				}
			}()
		}
		wg.Wait()

		st := storage.GetCurrentStats()
		assert.Equal(t, before.CacheHits+1000, st.CacheHits)
		assert.Equal(t, before.Analyses+1000, st.Analyses)
		assert.Equal(t, 1000, st.Blockers["cta_not_detected"])
	})

	t.Run("Shutdown", func(t *testing.T) {
		require.NoError(t, storage.Shutdown())
		require.NoError(t, storage.Shutdown())

		info, err := os.Stat(filepath.Join(tempDir, fileName))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	})
}

func TestNewStorage_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte("{not json"), 0644))

	_, err := NewStorage(dir)
	assert.Error(t, err)
}

func TestGetMonthlyStats_Missing(t *testing.T) {
	storage, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	defer storage.Shutdown()

	st, ok := storage.GetMonthlyStats("1999-01")
	assert.False(t, ok)
	assert.Zero(t, st.Analyses)
	assert.NotNil(t, st.Blockers)
}

func TestCleanup_EndOfMonth(t *testing.T) {
	storage, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	defer storage.Shutdown()

	record := func(at time.Time) {
		storage.now = func() time.Time { return at }
		storage.RecordAnalysis(nil, "evaluation")
	}
	record(time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC))
	record(time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC))
	record(time.Date(2026, time.March, 31, 9, 0, 0, 0, time.UTC))

	storage.Cleanup(2)

	assert.Equal(t, []string{"2026-03", "2026-02"}, storage.GetAllMonths())
}
