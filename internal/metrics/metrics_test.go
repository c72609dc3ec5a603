// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordArenaGrowth(t *testing.T) {
	tests := []struct {
		name    string
		backing string
		retries int
	}{
		{"heap backing, first try", "heap", 1},
		{"file backing, several retries", "file", 4},
		{"file backing, max retries", "file", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordArenaGrowth(tt.backing, tt.retries)
		})
	}
}

func TestRecordStoreOperation(t *testing.T) {
	tests := []struct {
		store     string
		operation string
		duration  time.Duration
	}{
		{"node", "put", time.Microsecond},
		{"node", "get", 500 * time.Nanosecond},
		{"way", "put", 2 * time.Microsecond},
		{"relation", "put", 10 * time.Microsecond},
		{"geom", "get", time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.store+"_"+tt.operation, func(t *testing.T) {
			RecordStoreOperation(tt.store, tt.operation, tt.duration)
		})
	}
}

func TestRecordDegenerateWay(t *testing.T) {
	reasons := []string{"unclosed_ring", "missing_way", "degenerate_ring"}

	for _, reason := range reasons {
		t.Run(reason, func(t *testing.T) {
			RecordDegenerateWay(reason)
		})
	}
}

func TestRecordTileEmitted(t *testing.T) {
	durations := []time.Duration{time.Millisecond, 10 * time.Millisecond, 100 * time.Millisecond}

	for _, d := range durations {
		RecordTileEmitted(d)
	}
}

func TestRecordTileEmitError(t *testing.T) {
	causes := []string{"sink_write_failed", "panic_recovered", "context_canceled"}

	for _, cause := range causes {
		t.Run(cause, func(t *testing.T) {
			RecordTileEmitError(cause)
		})
	}
}

func TestRecordPhase(t *testing.T) {
	tests := []struct {
		phase    string
		duration time.Duration
	}{
		{"ingest", 30 * time.Second},
		{"build", 10 * time.Second},
		{"emit", 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.phase, func(t *testing.T) {
			RecordPhase(tt.phase, tt.duration)
		})
	}
}

func TestMetricLabels(t *testing.T) {
	ArenaGrowthsTotal.WithLabelValues("heap").Inc()
	ArenaGrowthsTotal.WithLabelValues("file").Inc()

	ArenaBytesReserved.WithLabelValues("nodes").Set(1 << 20)
	ArenaBytesReserved.WithLabelValues("ways").Set(1 << 22)

	StoreEntriesTotal.WithLabelValues("node").Set(1000)
	StoreEntriesTotal.WithLabelValues("way").Set(200)

	NodeStoreLookupMisses.Inc()

	TileIndexEntriesTotal.WithLabelValues("osm").Set(500)
	TileIndexEntriesTotal.WithLabelValues("shp:water").Set(50)

	RollupTilesProduced.WithLabelValues("12").Add(4)

	CircuitBreakerState.WithLabelValues("arena_growth").Set(0)
	CircuitBreakerTransitions.WithLabelValues("arena_growth", "closed", "open").Inc()
}

func TestSpatialIndexCandidates(t *testing.T) {
	counts := []float64{1, 5, 20, 100}
	for _, c := range counts {
		SpatialIndexCandidates.Observe(c)
	}
}

func TestMultipolygonAssemblyDuration(t *testing.T) {
	MultipolygonAssemblyDuration.Observe(0.001)
	MultipolygonAssemblyDuration.Observe(0.05)
}

func TestEmitterGauges(t *testing.T) {
	EmitterActiveWorkers.Set(4)
	EmitterActiveWorkers.Inc()
	EmitterActiveWorkers.Dec()

	EmitterChunkDuration.Observe(0.25)
	EmitterChunkDuration.Observe(2.5)
}

func TestReplayLogCounters(t *testing.T) {
	ReplayLogEntriesWritten.Add(100)
	ReplayLogEntriesRead.Add(100)
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	numGoroutines := 50
	opsPerGoroutine := 50

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				RecordArenaGrowth("heap", 1)
				RecordStoreOperation("node", "put", time.Duration(j)*time.Microsecond)
				RecordTileEmitted(time.Duration(j) * time.Millisecond)
			}
		}()
	}
	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		ArenaGrowthsTotal,
		ArenaBytesReserved,
		ArenaGrowthRetries,
		StoreOperationDuration,
		StoreEntriesTotal,
		NodeStoreLookupMisses,
		DegenerateWaysSkipped,
		MultipolygonAssemblyDuration,
		TileIndexEntriesTotal,
		SpatialIndexCandidates,
		RollupTilesProduced,
		TilesEmittedTotal,
		TileEmitDuration,
		TileEmitErrors,
		EmitterActiveWorkers,
		EmitterChunkDuration,
		CircuitBreakerState,
		CircuitBreakerTransitions,
		ReplayLogEntriesWritten,
		ReplayLogEntriesRead,
		PhaseDuration,
	}

	for _, c := range collectors {
		ch := make(chan *prometheus.Desc, 10)
		c.Describe(ch)
		close(ch)

		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("metric %T has no descriptors", c)
		}
	}
}

func TestMetricGathering(t *testing.T) {
	RecordArenaGrowth("heap", 1)
	RecordTileEmitted(time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("metric lint problem: %s", p.Text)
	}
}

func BenchmarkRecordStoreOperation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordStoreOperation("node", "put", 10*time.Microsecond)
	}
}

func BenchmarkRecordTileEmitted(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordTileEmitted(5 * time.Millisecond)
	}
}

func BenchmarkRecordArenaGrowth(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordArenaGrowth("heap", 1)
	}
}
