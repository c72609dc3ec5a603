// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package errs

import (
	"fmt"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tilekiln/tilekiln/internal/logging"
	"github.com/tilekiln/tilekiln/internal/metrics"
)

// MaxGrowthRetries caps the number of consecutive grow failures a single
// named growth circuit (one per arena) will absorb before RetryGrowth trips
// fatal.
// Growth failures (ENOSPC, filesystem quota) are the one condition during
// ingest that can legitimately repeat back-to-back, which is exactly the
// shape gobreaker's ReadyToTrip counter is built for.
const MaxGrowthRetries = 8

var (
	breakersMu sync.Mutex
	breakers   = map[string]*gobreaker.CircuitBreaker[struct{}]{}
)

func breakerFor(name string) *gobreaker.CircuitBreaker[struct{}] {
	breakersMu.Lock()
	defer breakersMu.Unlock()

	if cb, ok := breakers[name]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= MaxGrowthRetries
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("container", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("arena growth circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
	breakers[name] = cb
	return cb
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// RetryGrowth runs grow repeatedly until it succeeds or the container named
// by name has failed MaxGrowthRetries times in a row, implementing the
// grow-and-retry-and-reopen protocol arena and geomstore allocation rely on.
// grow is expected to attempt one resize (or reopen) of the backing store
// and return nil on success. RetryGrowth returns ErrOutOfSpace, wrapping the
// last underlying error, once the breaker trips open.
func RetryGrowth(container string, backing string, grow func() error) error {
	cb := breakerFor(container)

	var lastErr error
	retries := 0
	for {
		_, err := cb.Execute(func() (struct{}, error) {
			retries++
			return struct{}{}, grow()
		})
		if err == nil {
			metrics.RecordArenaGrowth(backing, retries)
			return nil
		}
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return fmt.Errorf("%s: growth circuit open after %d consecutive failures: %w", container, retries, ErrOutOfSpace)
		}
		lastErr = err
		if retries >= MaxGrowthRetries {
			return fmt.Errorf("%s: %d growth attempts exhausted: %w: %w", container, retries, ErrOutOfSpace, lastErr)
		}
	}
}
