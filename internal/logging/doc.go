// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package logging provides centralized zerolog-based structured logging for tilekiln.
//
// A single global logger is configured once at startup (typically from
// cmd/tilekiln) and shared across the ingest, build and emit phases. Most
// store and geometry errors are returned up the call stack as values, but a
// handful of recoverable per-way and per-tile conditions (degenerate
// geometry skipped during assembly, arena growth events, failed tile
// writes that the emitter skips) are logged rather than propagated, since the pipeline treats them
// as warnings rather than failures.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Msg("ingest starting")
//	logging.Error().Err(err).Msg("operation failed")
//
// # Configuration
//
// Environment Variables (consumed by internal/config, not this package
// directly):
//
//	TILEKILN_LOGGING_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	TILEKILN_LOGGING_FORMAT  - Output format: json, console (default: json)
//	TILEKILN_LOGGING_CALLER  - Include caller file:line: true, false (default: false)
//
// Programmatic Configuration:
//
//	logging.Init(logging.Config{
//	    Level:     "debug",
//	    Format:    "console",
//	    Caller:    true,
//	    Timestamp: true,
//	    Output:    os.Stderr,
//	})
//
// # Log Levels
//
//	trace  - Very detailed diagnostic information
//	debug  - Detailed diagnostic information
//	info   - General operational information (default)
//	warn   - Warning conditions that should be addressed (degenerate ways, arena growth)
//	error  - Error conditions requiring attention
//	fatal  - Fatal errors that terminate the program
//	panic  - Panic conditions that crash the program
//
// # Structured Logging Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// Use structured fields instead of string formatting:
//
//	logging.Warn().
//	    Int64("way_id", wayID).
//	    Str("reason", "unclosed_ring").
//	    Msg("skipping degenerate multipolygon member")
//
// # Component Loggers
//
// Create component-specific loggers with default fields:
//
//	arenaLogger := logging.With().Str("component", "arena").Logger()
//	arenaLogger.Warn().Int("generation", gen).Msg("arena grown")
//
// # Context-Aware Logging
//
// Ctx adds the correlation and request IDs stored in a context (see
// ContextWithCorrelationID and ContextWithRequestID); the pipeline phases
// do not attach one themselves:
//
//	logger := logging.Ctx(ctx)
//	logger.Info().Msg("phase complete")
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. The global logger
// is protected by sync.RWMutex for configuration changes, which matters
// during the parallel emit phase where many worker goroutines log
// concurrently.
//
// # Testing
//
// Create test loggers that capture output:
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
//	logger.Info().Msg("test message")
//	output := buf.String()
//
// # See Also
//
//   - github.com/rs/zerolog: Underlying logging library
package logging
