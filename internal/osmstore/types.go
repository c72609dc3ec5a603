// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package osmstore implements the Node, Way, and Relation Stores
// (spec §4.2-§4.4): the arena-backed tables that hold every OSM primitive
// decoded from a PBF pass, addressed by ID during ingest and walked by the
// geometry assembler during the build phase.
package osmstore

// NodeID, WayID, and RelationID are 64-bit in normal mode. Compact mode
// narrows NodeID to a dense, pre-renumbered index but still carries it as
// NodeID at the API boundary (spec §3).
type NodeID int64
type WayID int64
type RelationID int64

// LatpLon is a Mercator-projected latitude and a longitude, both fixed-point
// scaled by 1e7 (spec §3).
type LatpLon struct {
	Latp int32
	Lon  int32
}

// LonDegrees returns the longitude in floating-point degrees.
func (c LatpLon) LonDegrees() float64 { return float64(c.Lon) / 1e7 }

// LatpDegrees returns the projected latitude in floating-point degrees.
func (c LatpLon) LatpDegrees() float64 { return float64(c.Latp) / 1e7 }

const (
	coordSize  = 8 // two int32s
	nodeIDSize = 8 // one int64
)
