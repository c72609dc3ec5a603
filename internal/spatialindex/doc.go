// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package spatialindex implements the Spatial Index over shapefile
// geometry (spec §4.9): one named R-tree per layer, built with
// github.com/dhconnelly/rtreego, queried by bounding box with candidate
// hits re-verified against the exact stored geometry before being
// returned.
package spatialindex
