// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/tilekiln/tilekiln/internal/arena"
	"github.com/tilekiln/tilekiln/internal/engine"
	"github.com/tilekiln/tilekiln/internal/geometry"
	"github.com/tilekiln/tilekiln/internal/geomstore"
	"github.com/tilekiln/tilekiln/internal/logging"
	"github.com/tilekiln/tilekiln/internal/osmstore"
	"github.com/tilekiln/tilekiln/internal/replaylog"
)

// classifier is the minimal stand-in for the user-scripted tag-processing
// runtime spec.md §1 and §6 treat as an external collaborator: given a
// replayed primitive's tags, it decides which layer (if any) the primitive
// belongs to and calls back into the engine's tagscript.Emitter surface. A
// production deployment replaces this with the real tag script; it is kept
// this small and separate from internal/engine deliberately so that swap
// is a one-file change.
type classifier struct {
	eng *engine.Engine
}

func newClassifier(eng *engine.Engine) *classifier {
	return &classifier{eng: eng}
}

// classifyNode emits a point for any node tagged with a recognized POI key.
func (c *classifier) classifyNode(e replaylog.Entry) error {
	layer, ok := poiLayer(e.Tags)
	if !ok {
		return nil
	}
	p := osmstore.LatpLon{Latp: e.Lat, Lon: e.Lon}
	handle, err := c.eng.GeomStore().StorePoint(geomstore.OSM, orb.Point{p.LonDegrees(), p.LatpDegrees()})
	if err != nil {
		return fmt.Errorf("storing point for node %d: %w", e.ID, err)
	}
	return c.eng.EmitObject(layer, geometry.KindPoint, handle, 14, arena.Handle(e.ID))
}

// classifyWay emits a linestring for any way tagged "highway".
func (c *classifier) classifyWay(e replaylog.Entry) error {
	highway, ok := e.Tags["highway"]
	if !ok {
		return nil
	}
	nodes, err := c.eng.WayStore().At(osmstore.WayID(e.ID))
	if err != nil {
		logging.Warn().Int64("way_id", e.ID).Err(err).Msg("skipping way with unresolved node list")
		return nil
	}
	ls, err := geometry.NodeListLinestring(nodes, c.eng.NodeLookup())
	if err != nil {
		logging.Warn().Int64("way_id", e.ID).Err(err).Msg("skipping way with unresolved node")
		return nil
	}
	handle, err := c.eng.GeomStore().StoreLinestring(geomstore.OSM, ls)
	if err != nil {
		return fmt.Errorf("storing linestring for way %d: %w", e.ID, err)
	}
	return c.eng.EmitObject("transportation", geometry.KindLinestring, handle, roadMinZoom(highway), arena.Handle(e.ID))
}

// classifyRelation emits a polygon for any multipolygon relation tagged
// "building" or "landuse", assembling it from the relation's outer/inner
// way members.
func (c *classifier) classifyRelation(e replaylog.Entry) error {
	layer, ok := relationLayer(e.Tags)
	if !ok {
		return nil
	}

	rel, err := c.eng.RelationStore().At(int(e.Handle))
	if err != nil {
		logging.Warn().Int64("relation_id", e.ID).Err(err).Msg("skipping relation with unresolved index")
		return nil
	}

	outerNodes, err := wayNodeLists(c.eng, rel.Outer)
	if err != nil {
		return nil //nolint:nilerr // per-way NotFound is a skippable warning, already logged by wayNodeLists
	}
	innerNodes, err := wayNodeLists(c.eng, rel.Inner)
	if err != nil {
		return nil //nolint:nilerr // same as above
	}

	mp, err := geometry.WayListMultipolygon(outerNodes, innerNodes, c.eng.NodeLookup())
	if err != nil {
		return fmt.Errorf("assembling multipolygon for relation %d: %w", e.ID, err)
	}
	if len(mp) == 0 {
		return nil
	}

	handle, err := c.eng.GeomStore().StoreMultipolygon(geomstore.OSM, mp)
	if err != nil {
		return fmt.Errorf("storing multipolygon for relation %d: %w", e.ID, err)
	}
	return c.eng.EmitObject(layer, geometry.KindPolygon, handle, 12, arena.Handle(e.ID))
}

func wayNodeLists(eng *engine.Engine, ids []osmstore.WayID) ([][]osmstore.NodeID, error) {
	out := make([][]osmstore.NodeID, 0, len(ids))
	for _, id := range ids {
		nodes, err := eng.WayStore().At(id)
		if err != nil {
			logging.Warn().Int64("way_id", int64(id)).Err(err).Msg("skipping unresolved multipolygon member way")
			continue
		}
		out = append(out, nodes)
	}
	return out, nil
}

func poiLayer(tags map[string]string) (string, bool) {
	for _, key := range []string{"amenity", "shop", "tourism"} {
		if _, ok := tags[key]; ok {
			return "poi", true
		}
	}
	return "", false
}

func relationLayer(tags map[string]string) (string, bool) {
	if _, ok := tags["building"]; ok {
		return "building", true
	}
	if _, ok := tags["landuse"]; ok {
		return "landuse", true
	}
	return "", false
}

func roadMinZoom(highway string) int {
	switch highway {
	case "motorway", "trunk":
		return 5
	case "primary":
		return 8
	case "secondary", "tertiary":
		return 10
	default:
		return 13
	}
}
