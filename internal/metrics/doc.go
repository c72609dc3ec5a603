// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

/*
Package metrics provides Prometheus instrumentation for the ingest, build and
emit phases of the tile pyramid pipeline.

# Overview

The package exposes metrics for:
  - Arena growth events and reserved capacity (internal/arena)
  - Store operation latency and entry counts (internal/osmstore, internal/geomstore)
  - Multipolygon assembly outcomes (internal/geometry)
  - Tile index and spatial index population (internal/tileindex, internal/spatialindex)
  - Zoom rollup tile production (internal/rollup)
  - Tile emission throughput and errors (internal/emitter)
  - Circuit breaker state for the grow-and-retry protocol (internal/errs)
  - Replay log append/read counts (internal/replaylog)
  - Per-phase wall-clock duration

# Metrics Endpoint

When cmd/tilekiln is run with metrics enabled, they are exposed in Prometheus
text format:

	curl http://localhost:9090/metrics

# Usage Example

	metrics.RecordArenaGrowth("file", 2)
	metrics.RecordStoreOperation("way", "put", elapsed)
	metrics.RecordDegenerateWay("unclosed_ring")
	metrics.RecordTileEmitted(elapsed)
	metrics.RecordPhase("build", elapsed)

# Naming

Metric names are prefixed with tilekiln_ and follow Prometheus naming
conventions (unit suffixes, _total for counters).

# Thread Safety

All recording functions are safe for concurrent use, which matters during
the parallel emit phase where many worker goroutines record metrics at once.
The Prometheus client library handles synchronization internally.
*/
package metrics
