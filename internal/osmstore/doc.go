// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

/*
Package osmstore holds the three tables a PBF decode fills during ingest:
nodes (coordinates), ways (ordered node-id sequences), and relations
(outer/inner way-id sequences). Every store is backed by one internal/arena
Container, so coordinate and sequence data can spill to a memory-mapped
file for extracts too large to hold comfortably on the Go heap.

# Node store variants

NewMapNodeStore is the default: any 64-bit NodeID, including sparse or
negative ranges. NewCompactNodeStore trades that generality for a smaller
footprint when the input has already been renumbered into a dense,
non-negative range — common for single-country extracts prepared by
osmium-based tools upstream of this pipeline.

# Ordering

WayStore and NodeStore are keyed lookups. RelationStore is index-addressed:
relations are read back during the build phase in whatever order InsertFront
produced, since multipolygon assembly does not depend on relation order.
*/
package osmstore
