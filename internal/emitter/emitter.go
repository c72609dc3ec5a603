// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package emitter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tilekiln/tilekiln/internal/errs"
	"github.com/tilekiln/tilekiln/internal/logging"
	"github.com/tilekiln/tilekiln/internal/metrics"
	"github.com/tilekiln/tilekiln/internal/rollup"
	"github.com/tilekiln/tilekiln/internal/sink"
	"github.com/tilekiln/tilekiln/internal/tileindex"
)

// ChunkSize is the fixed emit work-list partition size (spec §4.11).
const ChunkSize = 100

// WorkItem is one (zoom, tile) unit of emit work.
type WorkItem struct {
	Zoom  int
	Coord tileindex.Coord
}

// MapsplitFilter restricts emit to the descendants of a single tile at a
// coarser zoom (spec §4.11's "mapsplit-ancestor" filter): only tiles whose
// ancestor at Zoom equals (X, Y) survive.
type MapsplitFilter struct {
	Zoom int
	X, Y uint32
}

// keeps reports whether tile c at zoom z descends from the filter's anchor
// tile. Tiles at a zoom shallower than the anchor are dropped outright,
// since they cannot be said to descend from it.
func (f MapsplitFilter) keeps(z int, c tileindex.Coord) bool {
	if z < f.Zoom {
		return false
	}
	shift := uint(z - f.Zoom)
	return c.X>>shift == f.X && c.Y>>shift == f.Y
}

// Filters bundles the optional emit-time tile filters from spec §4.11.
type Filters struct {
	Mapsplit    *MapsplitFilter
	ClippingBox *Bound
}

// Bound is a geographic bounding box in the same (lon, latp) degree space
// internal/tileindex uses for its tile math.
type Bound struct {
	MinLon, MinLatp, MaxLon, MaxLatp float64
}

// tileBound returns the (lon, latp) bound a single tile covers at zoom z,
// the inverse of internal/tileindex's lonToTileX/latpToTileY.
func tileBound(z int, c tileindex.Coord) Bound {
	n := math.Exp2(float64(z))
	lonFor := func(x uint32) float64 { return float64(x)/n*360.0 - 180.0 }
	latpFor := func(y uint32) float64 { return 180.0 - float64(y)/n*360.0 }
	return Bound{
		MinLon:  lonFor(c.X),
		MaxLon:  lonFor(c.X + 1),
		MinLatp: latpFor(c.Y + 1),
		MaxLatp: latpFor(c.Y),
	}
}

func (b Bound) intersects(o Bound) bool {
	return b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon &&
		b.MinLatp <= o.MaxLatp && o.MinLatp <= b.MaxLatp
}

// BuildWorkList constructs the flat work list across [startZoom, endZoom],
// applying the mapsplit-ancestor and clipping-box filters (spec §4.11).
func BuildWorkList(sources []rollup.Source, baseZoom, startZoom, endZoom int, filters Filters) []WorkItem {
	var items []WorkItem
	for z := startZoom; z <= endZoom; z++ {
		for _, c := range rollup.TileSet(sources, baseZoom, z) {
			if filters.Mapsplit != nil && !filters.Mapsplit.keeps(z, c) {
				continue
			}
			if filters.ClippingBox != nil && !tileBound(z, c).intersects(*filters.ClippingBox) {
				continue
			}
			items = append(items, WorkItem{Zoom: z, Coord: c})
		}
	}
	return items
}

// Chunk partitions items into fixed-size slices of at most size, the unit
// of work handed to a single worker goroutine.
func Chunk(items []WorkItem, size int) [][]WorkItem {
	if size <= 0 {
		size = ChunkSize
	}
	var chunks [][]WorkItem
	for len(items) > 0 {
		n := size
		if n > len(items) {
			n = len(items)
		}
		chunks = append(chunks, items[:n])
		items = items[n:]
	}
	return chunks
}

// Encoder turns a tile's resolved object list into its on-disk
// representation (the external tag-processing/vector-encoding runtime,
// spec.md's Design Notes).
type Encoder interface {
	Encode(ctx context.Context, zoom int, c tileindex.Coord, objs []tileindex.ObjectRef) ([]byte, error)
}

// Driver runs the emit phase: resolving, encoding, and writing every tile
// in a work list across a bounded worker pool (spec §4.11).
type Driver struct {
	Threads  int
	BaseZoom int
	Sources  []rollup.Source
	Encoder  Encoder
	Sink     sink.TileWriter

	ioMu sync.Mutex
}

// Run dispatches items across Chunk-sized chunks to a pool of Threads
// workers (GOMAXPROCS when Threads is zero or negative) built on errgroup,
// so a fatal worker error cancels remaining chunks; in-flight workers stop
// before their next tile and are waited for before Run returns.
func (d *Driver) Run(ctx context.Context, items []WorkItem) error {
	threads := d.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, threads)

	for _, chunk := range Chunk(items, ChunkSize) {
		chunk := chunk
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			return g.Wait()
		}
		g.Go(func() error {
			defer func() { <-sem }()
			return d.runChunk(gctx, chunk)
		})
	}

	return g.Wait()
}

func (d *Driver) runChunk(ctx context.Context, items []WorkItem) error {
	metrics.EmitterActiveWorkers.Inc()
	defer metrics.EmitterActiveWorkers.Dec()

	start := time.Now()
	defer func() { metrics.EmitterChunkDuration.Observe(time.Since(start).Seconds()) }()

	for _, item := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := d.emitOne(ctx, item); err != nil {
			if errors.Is(err, errs.ErrIOError) {
				metrics.RecordTileEmitError("io")
				logging.Error().Err(err).Int("zoom", item.Zoom).
					Uint32("x", item.Coord.X).Uint32("y", item.Coord.Y).
					Msg("tile emit failed, continuing with next tile")
				continue
			}
			metrics.RecordTileEmitError("fatal")
			return err
		}
	}
	return nil
}

func (d *Driver) emitOne(ctx context.Context, item WorkItem) error {
	start := time.Now()
	refs := rollup.ObjectsAt(d.Sources, d.BaseZoom, item.Zoom, item.Coord)

	data, err := d.Encoder.Encode(ctx, item.Zoom, item.Coord, refs)
	if err != nil {
		return fmt.Errorf("tilekiln: encoding tile z=%d x=%d y=%d: %w", item.Zoom, item.Coord.X, item.Coord.Y, err)
	}

	d.ioMu.Lock()
	writeErr := d.Sink.WriteTile(item.Zoom, int(item.Coord.X), int(item.Coord.Y), data)
	if writeErr == nil {
		logging.Info().Int("zoom", item.Zoom).Uint32("x", item.Coord.X).Uint32("y", item.Coord.Y).Msg("tile emitted")
	}
	d.ioMu.Unlock()
	if writeErr != nil {
		return fmt.Errorf("tilekiln: writing tile z=%d x=%d y=%d: %w: %w", item.Zoom, item.Coord.X, item.Coord.Y, errs.ErrIOError, writeErr)
	}

	metrics.RecordTileEmitted(time.Since(start))
	return nil
}
