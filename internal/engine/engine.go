// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package engine wires the Backing Arena, the Node/Way/Relation/Generated-
// Geometry Stores, the PBF Replay Log, the Tile Index, and the Spatial
// Index into the three strictly serial phases spec.md §5 describes:
// ingest (single-writer), build (finalize), and emit (parallel readers).
// It implements pbfsrc.Sink, shpsrc.Sink, and tagscript.Emitter so the
// external collaborators named in spec.md §6 can drive it directly, and is
// the one place — per the Design Notes' "Global mutable state" entry —
// that tracks phase as explicit state rather than scattering phase checks
// or process-global flags across every store.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/tilekiln/tilekiln/internal/arena"
	"github.com/tilekiln/tilekiln/internal/errs"
	"github.com/tilekiln/tilekiln/internal/geometry"
	"github.com/tilekiln/tilekiln/internal/geomstore"
	"github.com/tilekiln/tilekiln/internal/logging"
	"github.com/tilekiln/tilekiln/internal/metrics"
	"github.com/tilekiln/tilekiln/internal/osmstore"
	"github.com/tilekiln/tilekiln/internal/pbfsrc"
	"github.com/tilekiln/tilekiln/internal/replaylog"
	"github.com/tilekiln/tilekiln/internal/rollup"
	"github.com/tilekiln/tilekiln/internal/spatialindex"
	"github.com/tilekiln/tilekiln/internal/tileindex"
)

// phase tracks where in the ingest -> build -> emit sequence the Engine is,
// so a call from the wrong phase fails fast instead of corrupting state
// that a later phase assumes is immutable (spec §5).
type phase int

const (
	phaseIngest phase = iota
	phaseBuilt
	phaseEmitting
)

// Config bundles the construction-time options from spec.md §6 that affect
// how the Engine's stores are built.
type Config struct {
	CompactNodeStore  bool
	InitNodesMillions float64
	InitWaysMillions  float64
	BaseZoom          int
	StoreFilePath     string // empty -> heap-backed arena
	IndexFilePath     string // empty -> replay log disabled
}

const bytesPerMillionNodes = 8 << 20  // headroom for mapNodeStore's coordSize*1e6 plus index overhead
const bytesPerMillionWayNodes = 8 << 20

// Engine is the Ingest/Build/Emit state machine described in SPEC_FULL.md
// §5. All of its exported methods that mutate state must be called from a
// single goroutine during the ingest phase; Emit-phase reads are safe for
// concurrent callers once Build has returned.
type Engine struct {
	mu    sync.Mutex
	phase phase

	cfg   Config
	arena *arena.Arena

	nodes        osmstore.NodeStore
	ways         osmstore.WayStore
	relations    osmstore.RelationStore
	relationByID map[osmstore.RelationID]int // RelationStore has no ID lookup of its own; kept for replay/classification
	geoms        *geomstore.Store
	spatial      *spatialindex.Index
	replay       replaylog.Log

	osmTiles *tileindex.Index
	shpTiles *tileindex.Index
}

// New constructs an Engine ready to receive ingest calls.
func New(cfg Config) (*Engine, error) {
	if cfg.BaseZoom <= 0 {
		cfg.BaseZoom = 14
	}

	var a *arena.Arena
	var err error
	if cfg.StoreFilePath != "" {
		initial := int64(cfg.InitNodesMillions*bytesPerMillionNodes) + int64(cfg.InitWaysMillions*bytesPerMillionWayNodes)
		a, err = arena.NewFileBacked(cfg.StoreFilePath, initial)
	} else {
		initial := int(cfg.InitNodesMillions*bytesPerMillionNodes) + int(cfg.InitWaysMillions*bytesPerMillionWayNodes)
		a, err = arena.NewHeap(initial)
	}
	if err != nil {
		return nil, fmt.Errorf("tilekiln: opening backing arena: %w", err)
	}

	var nodes osmstore.NodeStore
	if cfg.CompactNodeStore {
		nodes, err = osmstore.NewCompactNodeStore(a)
	} else {
		nodes, err = osmstore.NewMapNodeStore(a)
	}
	if err != nil {
		return nil, fmt.Errorf("tilekiln: opening node store: %w", err)
	}
	if err := nodes.Reserve(int(cfg.InitNodesMillions * 1e6)); err != nil {
		return nil, fmt.Errorf("tilekiln: reserving node store: %w", err)
	}

	ways, err := osmstore.NewWayStore(a)
	if err != nil {
		return nil, fmt.Errorf("tilekiln: opening way store: %w", err)
	}
	if err := ways.Reserve(int(cfg.InitWaysMillions * 1e6)); err != nil {
		return nil, fmt.Errorf("tilekiln: reserving way store: %w", err)
	}

	relations, err := osmstore.NewRelationStore(a)
	if err != nil {
		return nil, fmt.Errorf("tilekiln: opening relation store: %w", err)
	}

	geoms, err := geomstore.New(a)
	if err != nil {
		return nil, fmt.Errorf("tilekiln: opening generated-geometry store: %w", err)
	}

	var replay replaylog.Log
	if cfg.IndexFilePath != "" {
		replay, err = replaylog.Open(cfg.IndexFilePath)
		if err != nil {
			return nil, fmt.Errorf("tilekiln: opening replay log: %w", err)
		}
	} else {
		replay = replaylog.Disabled()
	}

	return &Engine{
		cfg:          cfg,
		arena:        a,
		nodes:        nodes,
		ways:         ways,
		relations:    relations,
		relationByID: map[osmstore.RelationID]int{},
		geoms:        geoms,
		spatial:      spatialindex.New(),
		replay:       replay,
		osmTiles:     tileindex.New("osm", cfg.BaseZoom),
		shpTiles:     tileindex.New("shp", cfg.BaseZoom),
	}, nil
}

func (e *Engine) requirePhase(want phase, op string) error {
	if e.phase != want {
		return fmt.Errorf("tilekiln: %s called outside its phase: %w", op, errs.ErrInvariantViolation)
	}
	return nil
}

// InsertNode implements pbfsrc.Sink.
func (e *Engine) InsertNode(id osmstore.NodeID, coord osmstore.LatpLon) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requirePhase(phaseIngest, "InsertNode"); err != nil {
		return err
	}
	start := time.Now()
	if err := e.nodes.Insert(id, coord); err != nil {
		return fmt.Errorf("tilekiln: inserting node %d: %w", id, err)
	}
	metrics.RecordStoreOperation("node", "put", time.Since(start))
	return nil
}

// InsertWay implements pbfsrc.Sink.
func (e *Engine) InsertWay(id osmstore.WayID, nodes []osmstore.NodeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requirePhase(phaseIngest, "InsertWay"); err != nil {
		return err
	}
	start := time.Now()
	if _, err := e.ways.Insert(id, nodes); err != nil {
		return fmt.Errorf("tilekiln: inserting way %d: %w", id, err)
	}
	metrics.RecordStoreOperation("way", "put", time.Since(start))
	return nil
}

// InsertRelation implements pbfsrc.Sink.
func (e *Engine) InsertRelation(id osmstore.RelationID, outer, inner []osmstore.WayID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requirePhase(phaseIngest, "InsertRelation"); err != nil {
		return err
	}
	start := time.Now()
	if err := e.relations.InsertFront(id, outer, inner); err != nil {
		return fmt.Errorf("tilekiln: inserting relation %d: %w", id, err)
	}
	e.relationByID[id] = e.relations.Size() - 1
	metrics.RecordStoreOperation("relation", "put", time.Since(start))
	return nil
}

// RelationIndexByID returns the RelationStore index InsertRelation assigned
// to id, for callers (replay, classification) that only have the stable ID
// and need the index-addressed lookup spec §4.4's RelationStore.At exposes.
func (e *Engine) RelationIndexByID(id osmstore.RelationID) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.relationByID[id]
	return idx, ok
}

// ReplayPush implements pbfsrc.Sink. The primitive's body is already in the
// appropriate store by the time this is called; only its id and tags need
// recording, except for nodes, whose coordinate is looked up so the replay
// log can carry it inline (spec §4.5), and relations, whose RelationStore
// index is carried in the entry's Handle.
func (e *Engine) ReplayPush(kind pbfsrc.PrimitiveKind, id int64, tags map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requirePhase(phaseIngest, "ReplayPush"); err != nil {
		return err
	}

	switch kind {
	case pbfsrc.PrimitiveNode:
		coord, err := e.nodes.At(osmstore.NodeID(id))
		if err != nil {
			return fmt.Errorf("tilekiln: replay-logging node %d: %w", id, err)
		}
		return e.replay.Append(replaylog.StreamNodes, replaylog.Entry{ID: id, Lat: coord.Latp, Lon: coord.Lon, Tags: tags})
	case pbfsrc.PrimitiveWay:
		return e.replay.Append(replaylog.StreamWays, replaylog.Entry{ID: id, Tags: tags})
	case pbfsrc.PrimitiveRelation:
		idx, ok := e.relationByID[osmstore.RelationID(id)]
		if !ok {
			return fmt.Errorf("tilekiln: replay-logging relation %d: %w", id, errs.ErrNotFound)
		}
		return e.replay.Append(replaylog.StreamRelations, replaylog.Entry{ID: id, Handle: uint64(idx), Tags: tags})
	default:
		return fmt.Errorf("tilekiln: replay-logging primitive %d: unknown kind %d: %w", id, kind, errs.ErrBadInput)
	}
}

// AddShapeObject implements shpsrc.Sink. Shapefile-derived features skip
// the tag script entirely (spec §2's data-flow table): they are stored in
// the Generated-Geometry Store's Shapefile namespace and, when indexed,
// also recorded in both the named R-tree and the shapefile tile index at
// min_zoom 0.
func (e *Engine) AddShapeObject(layer string, geom orb.Geometry, name string, attrs map[string]any, indexed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requirePhase(phaseIngest, "AddShapeObject"); err != nil {
		return err
	}

	kind, handle, err := e.storeShapeGeometry(geom)
	if err != nil {
		return fmt.Errorf("tilekiln: storing shapefile geometry on layer %q: %w", layer, err)
	}

	if indexed {
		if _, err := e.spatial.Add(layer, geom, name); err != nil {
			return fmt.Errorf("tilekiln: indexing shapefile geometry on layer %q: %w", layer, err)
		}
	}

	oo := tileindex.ObjectRef{LayerID: layer, Kind: kind, Handle: handle, MinZoom: 0, AttrsRef: arena.NilHandle}
	e.addToIndex(e.shpTiles, kind, geom, oo)
	return nil
}

func (e *Engine) storeShapeGeometry(geom orb.Geometry) (geometry.Kind, arena.Handle, error) {
	switch g := geom.(type) {
	case orb.Point:
		h, err := e.geoms.StorePoint(geomstore.Shapefile, g)
		return geometry.KindPoint, h, err
	case orb.LineString:
		h, err := e.geoms.StoreLinestring(geomstore.Shapefile, g)
		return geometry.KindLinestring, h, err
	case orb.MultiPolygon:
		h, err := e.geoms.StoreMultipolygon(geomstore.Shapefile, g)
		return geometry.KindPolygon, h, err
	case orb.Polygon:
		h, err := e.geoms.StoreMultipolygon(geomstore.Shapefile, orb.MultiPolygon{g})
		return geometry.KindPolygon, h, err
	default:
		return 0, arena.NilHandle, fmt.Errorf("tilekiln: unsupported shapefile geometry type %T: %w", geom, errs.ErrBadInput)
	}
}

// EmitObject implements tagscript.Emitter. Only the tag script emits into
// the OSM tile index; handle addresses geometry already stored in the
// Generated-Geometry Store's OSM namespace by the caller.
func (e *Engine) EmitObject(layer string, kind geometry.Kind, handle arena.Handle, minZoom int, attrsRef arena.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requirePhase(phaseIngest, "EmitObject"); err != nil {
		return err
	}

	oo := tileindex.ObjectRef{LayerID: layer, Kind: kind, Handle: handle, MinZoom: minZoom, AttrsRef: attrsRef}

	switch kind {
	case geometry.KindPoint:
		p, err := e.geoms.RetrievePoint(geomstore.OSM, handle)
		if err != nil {
			return fmt.Errorf("tilekiln: resolving point for layer %q: %w", layer, err)
		}
		e.osmTiles.AddPoint(p, oo)
	case geometry.KindLinestring:
		ls, err := e.geoms.RetrieveLinestring(geomstore.OSM, handle)
		if err != nil {
			return fmt.Errorf("tilekiln: resolving linestring for layer %q: %w", layer, err)
		}
		e.osmTiles.AddLinestring(ls, oo)
	case geometry.KindPolygon:
		mp, err := e.geoms.RetrieveMultipolygon(geomstore.OSM, handle)
		if err != nil {
			return fmt.Errorf("tilekiln: resolving polygon for layer %q: %w", layer, err)
		}
		e.osmTiles.AddPolygon(mp.Bound(), oo)
	default:
		return fmt.Errorf("tilekiln: emitting object on layer %q: unknown geometry kind %d: %w", layer, kind, errs.ErrBadInput)
	}
	return nil
}

func (e *Engine) addToIndex(idx *tileindex.Index, kind geometry.Kind, geom orb.Geometry, oo tileindex.ObjectRef) {
	switch kind {
	case geometry.KindPoint:
		idx.AddPoint(geom.(orb.Point), oo)
	case geometry.KindLinestring:
		idx.AddLinestring(geom.(orb.LineString), oo)
	default:
		idx.AddPolygon(geom.Bound(), oo)
	}
}

// NodeLookup returns the closure internal/geometry's assembler functions
// need to resolve a NodeID to its coordinate.
func (e *Engine) NodeLookup() geometry.NodeLookup {
	return e.nodes.At
}

// WayStore, RelationStore, GeomStore, and SpatialIndex expose the build/
// emit-phase read surface the external encoder needs; they are read-only
// from Build onward (spec §5).
func (e *Engine) WayStore() osmstore.WayStore           { return e.ways }
func (e *Engine) RelationStore() osmstore.RelationStore { return e.relations }
func (e *Engine) GeomStore() *geomstore.Store           { return e.geoms }
func (e *Engine) SpatialIndex() *spatialindex.Index     { return e.spatial }

// Build transitions the Engine from ingest to build, per spec §5: after
// this call, no further writes to any store are valid, which is what lets
// Emit skip locking them.
func (e *Engine) Build() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requirePhase(phaseIngest, "Build"); err != nil {
		return err
	}
	start := time.Now()
	e.phase = phaseBuilt
	metrics.RecordPhase("build", time.Since(start))
	logging.Info().
		Int("osm_tiles", len(e.osmTiles.Tiles())).
		Int("shp_tiles", len(e.shpTiles.Tiles())).
		Msg("build phase complete")
	return nil
}

// Sources returns the rollup.Source list Emit-phase zoom rollup merges
// across (spec §4.10): the OSM tile index and the shapefile tile index.
func (e *Engine) Sources() []rollup.Source {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = phaseEmitting
	return []rollup.Source{e.osmTiles, e.shpTiles}
}

// BaseZoom reports the fixed zoom the Engine's tile indices are keyed at.
func (e *Engine) BaseZoom() int { return e.cfg.BaseZoom }

// Close releases the backing arena and replay log. Safe to call once, after
// Emit has finished.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.replay.Close(); err != nil {
		return fmt.Errorf("tilekiln: closing replay log: %w", err)
	}
	if err := e.arena.Close(); err != nil {
		return fmt.Errorf("tilekiln: closing backing arena: %w", err)
	}
	return nil
}
