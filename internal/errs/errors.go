// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package errs defines the sentinel error kinds shared by every store and
// index package, plus the grow-and-retry protocol used by arena and
// geometry-store allocation.
package errs

import "errors"

// ErrNotFound is returned when a lookup by ID or Handle finds no entry.
var ErrNotFound = errors.New("tilekiln: not found")

// ErrStoreKindMismatch is returned when a store is reopened with a
// configuration that does not match the kind tag persisted in its arena
// header (for example opening a compact node store as a map node store).
var ErrStoreKindMismatch = errors.New("tilekiln: store kind mismatch")

// ErrOutOfSpace is returned when an arena cannot satisfy an allocation even
// after exhausting its grow-and-retry budget.
var ErrOutOfSpace = errors.New("tilekiln: out of space")

// ErrInvariantViolation is returned when a component detects state that
// should be unreachable under the documented phase ordering (for example a
// write attempted after Build has run).
var ErrInvariantViolation = errors.New("tilekiln: invariant violation")

// ErrIOError wraps failures from the underlying file, mmap, or Badger I/O.
var ErrIOError = errors.New("tilekiln: I/O error")

// ErrBadInput is returned when caller-supplied data fails validation
// (malformed tags, degenerate geometry that cannot be repaired, and so on).
var ErrBadInput = errors.New("tilekiln: bad input")
