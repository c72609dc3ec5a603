// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the three pipeline phases (ingest, build,
// emit). Metrics are grouped by the component that owns them rather than by
// phase, since arena growth and store metrics are observed throughout
// ingest, while tile index and emitter metrics belong to build and emit.

var (
	// Arena Metrics (internal/arena)
	ArenaGrowthsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tilekiln_arena_growths_total",
			Help: "Total number of arena growth events, by backing mode",
		},
		[]string{"backing"}, // "heap", "file"
	)

	ArenaBytesReserved = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tilekiln_arena_bytes_reserved",
			Help: "Current reserved size of each named arena container in bytes",
		},
		[]string{"container"},
	)

	ArenaGrowthRetries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tilekiln_arena_growth_retries",
			Help:    "Number of grow-and-retry attempts consumed before an allocation succeeded",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8},
		},
	)

	// Store Metrics (internal/osmstore, internal/geomstore)
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tilekiln_store_operation_duration_seconds",
			Help:    "Duration of node/way/relation store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "operation"}, // store: "node","way","relation","geom"; operation: "put","get"
	)

	StoreEntriesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tilekiln_store_entries",
			Help: "Current number of entries held by a store",
		},
		[]string{"store"},
	)

	NodeStoreLookupMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tilekiln_node_store_lookup_misses_total",
			Help: "Total number of way-member node lookups that found no matching node",
		},
	)

	// Geometry Assembly Metrics (internal/geometry)
	DegenerateWaysSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tilekiln_degenerate_ways_skipped_total",
			Help: "Total number of relation members skipped during multipolygon assembly",
		},
		[]string{"reason"}, // "missing_way", "degenerate_ring", "inner_not_contained"
	)

	MultipolygonAssemblyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tilekiln_multipolygon_assembly_duration_seconds",
			Help:    "Duration of mergeWays ring assembly per relation",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Tile Index / Rollup Metrics (internal/tileindex, internal/rollup, internal/spatialindex)
	TileIndexEntriesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tilekiln_tile_index_entries",
			Help: "Current number of tile coordinates populated in a source's tile index",
		},
		[]string{"source"}, // "osm", "shp:<name>"
	)

	SpatialIndexCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tilekiln_spatial_index_candidates",
			Help:    "Number of R-tree bounding-box candidates returned before exact-geometry verification",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	RollupTilesProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tilekiln_rollup_tiles_produced_total",
			Help: "Total number of tiles produced by zoom rollup division",
		},
		[]string{"zoom"},
	)

	// Emitter Metrics (internal/emitter)
	TilesEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tilekiln_tiles_emitted_total",
			Help: "Total number of tiles written by the emit phase",
		},
	)

	TileEmitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tilekiln_tile_emit_duration_seconds",
			Help:    "Duration of a single tile's sub-layer slice and write",
			Buckets: prometheus.DefBuckets,
		},
	)

	TileEmitErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tilekiln_tile_emit_errors_total",
			Help: "Total number of tile emission failures, by cause",
		},
		[]string{"cause"},
	)

	EmitterActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tilekiln_emitter_active_workers",
			Help: "Current number of worker goroutines processing emit chunks",
		},
	)

	EmitterChunkDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tilekiln_emitter_chunk_duration_seconds",
			Help:    "Duration of processing a single 100-tile emit chunk",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Circuit Breaker Metrics (internal/errs RetryGrowth)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tilekiln_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tilekiln_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Replay Log Metrics (internal/replaylog)
	ReplayLogEntriesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tilekiln_replaylog_entries_written_total",
			Help: "Total number of decoded primitives appended to the PBF replay log",
		},
	)

	ReplayLogEntriesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tilekiln_replaylog_entries_read_total",
			Help: "Total number of entries replayed from the log during an index-only rerun",
		},
	)

	// Phase Metrics
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tilekiln_phase_duration_seconds",
			Help:    "Wall-clock duration of a pipeline phase",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
		[]string{"phase"}, // "ingest", "build", "emit"
	)
)

// RecordArenaGrowth records an arena growth event and the number of
// grow-and-retry attempts it took before the allocation succeeded.
func RecordArenaGrowth(backing string, retries int) {
	ArenaGrowthsTotal.WithLabelValues(backing).Inc()
	ArenaGrowthRetries.Observe(float64(retries))
}

// RecordStoreOperation records the duration of a store put/get.
func RecordStoreOperation(store, operation string, duration time.Duration) {
	StoreOperationDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
}

// RecordDegenerateWay records a relation member skipped during multipolygon
// assembly, categorized by the reason it could not be stitched into a ring.
func RecordDegenerateWay(reason string) {
	DegenerateWaysSkipped.WithLabelValues(reason).Inc()
}

// RecordTileEmitted records the successful emission of one tile.
func RecordTileEmitted(duration time.Duration) {
	TilesEmittedTotal.Inc()
	TileEmitDuration.Observe(duration.Seconds())
}

// RecordTileEmitError records a failed tile emission, categorized by cause.
func RecordTileEmitError(cause string) {
	TileEmitErrors.WithLabelValues(cause).Inc()
}

// RecordPhase records the wall-clock duration of a completed pipeline phase.
func RecordPhase(phase string, duration time.Duration) {
	PhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}
