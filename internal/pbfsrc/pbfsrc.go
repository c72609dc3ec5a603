// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package pbfsrc defines the contract between the core and the PBF wire
// parser spec.md §1 treats as an external collaborator. The decoder calls
// InsertNode, InsertWay, and InsertRelation in that pass order and may
// additionally push decoded tags through ReplayPush so a later run can
// replay them without re-parsing the source file (spec §4.5, §6).
package pbfsrc

import "github.com/tilekiln/tilekiln/internal/osmstore"

// PrimitiveKind identifies which OSM primitive a ReplayPush call describes.
type PrimitiveKind uint8

const (
	PrimitiveNode PrimitiveKind = iota
	PrimitiveWay
	PrimitiveRelation
)

// Sink is the callback surface a PBF decoder drives during ingest. Every
// method must be called from the single ingest goroutine (spec §5); Sink
// implementations are not required to be safe for concurrent use.
type Sink interface {
	// InsertNode records a decoded node (pass 1).
	InsertNode(id osmstore.NodeID, coord osmstore.LatpLon) error
	// InsertWay records a decoded way's node sequence (pass 2).
	InsertWay(id osmstore.WayID, nodes []osmstore.NodeID) error
	// InsertRelation records a decoded way-member multipolygon relation
	// (pass 3). Relations that are not simple outer/inner way members are
	// filtered out by the decoder before this is called.
	InsertRelation(id osmstore.RelationID, outer, inner []osmstore.WayID) error
	// ReplayPush appends the primitive identified by (kind, id) — already
	// inserted via InsertNode/InsertWay/InsertRelation — to the replay log
	// together with its tags, when a replay log is enabled. It is a no-op
	// when no index file was requested.
	ReplayPush(kind PrimitiveKind, id int64, tags map[string]string) error
}
