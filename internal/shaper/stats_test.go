package shaper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(time.Duration(ms)*time.Millisecond, false)
	}

	snap := stats.Snapshot()
	assert.Equal(t, 5, snap.Count)
	assert.Equal(t, int64(100), snap.MinMs)
	assert.Equal(t, int64(500), snap.MaxMs)
	assert.Equal(t, 300.0, snap.AvgMs)
	assert.Equal(t, 300.0, snap.P50Ms)
	assert.InDelta(t, 480.0, snap.P95Ms, 1e-9)
	assert.InDelta(t, 496.0, snap.P99Ms, 1e-9)
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	stats := NewStats(time.Minute)
	stats.now = func() time.Time { return now }

	stats.Record(100*time.Millisecond, true)
	now = now.Add(2 * time.Minute)
	assert.Zero(t, stats.Snapshot().Count)

	stats.Record(200*time.Millisecond, false)
	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Count)
	assert.Zero(t, snap.Failures)
	assert.Equal(t, int64(200), snap.MinMs)
}

func TestStatsClampsNegativeDuration(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(-10*time.Millisecond, false)
	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Count)
	assert.Zero(t, snap.MaxMs)
}

func TestStatsNilIsNoop(t *testing.T) {
	var stats *Stats
	stats.Record(time.Second, true)
	assert.Equal(t, StatsSnapshot{}, stats.Snapshot())
}
