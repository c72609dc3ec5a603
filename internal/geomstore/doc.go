// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package geomstore implements the Generated-Geometry Store (spec §4.6):
// two arena-backed namespaces, one for geometry produced by the OSM tag
// script and one for geometry produced by shapefile ingest, each holding
// growable sequences of points, linestrings, and multipolygons. Every
// store_* call routes through the same Container.Alloc growth-retry path
// internal/arena already wraps, so geomstore needs no growth handling of
// its own.
package geomstore
