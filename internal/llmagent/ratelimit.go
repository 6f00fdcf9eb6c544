package llmagent

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// ErrMaxWaitsExceeded is returned by WaitForReset when the driver has
// exceeded the configured maximum number of rate-limit waits.
var ErrMaxWaitsExceeded = errors.New("max rate-limit waits exceeded")

// BackoffConfig configures rate-limit backoff behavior.
type BackoffConfig struct {
	// DefaultWait is the wait duration used when the agent does not report a
	// specific reset time (default: 60s).
	DefaultWait time.Duration

	// MaxWaits is the maximum number of rate-limit waits before the
	// coordinator returns ErrMaxWaitsExceeded (default: 5).
	// A value of 0 means no waits are allowed.
	MaxWaits int

	// JitterFactor is a multiplier in [0.0, 1.0] applied to the computed wait
	// duration to introduce randomness and avoid thundering-herd effects
	// across concurrently running voters/batch workers (default: 0.1).
	JitterFactor float64
}

// DefaultBackoffConfig returns sensible default backoff configuration.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		DefaultWait:  60 * time.Second,
		MaxWaits:     5,
		JitterFactor: 0.1,
	}
}

// RateLimitState tracks rate-limit state shared across every concurrent
// invocation of a driver. The scan pipeline's voter pool and the batch
// runner both drive many concurrent Claude invocations against the same
// account, so a limit surfaced by one worker must be visible to the rest.
type RateLimitState struct {
	IsLimited bool

	// ResetAt is the wall-clock time at which the rate limit is expected to
	// reset. Computed as time.Now().Add(computeWaitDuration(info)) at the
	// moment RecordRateLimit is called.
	ResetAt time.Time

	// ResetAfter is the original duration reported by the driver. A zero
	// value means the driver did not report a specific reset time.
	ResetAfter time.Duration

	// WaitCount is the total number of times the coordinator has recorded a
	// rate limit. Not reset by ClearRateLimit so ExceededMaxWaits continues
	// to work correctly after a clear.
	WaitCount int

	LastMessage string
	UpdatedAt   time.Time
}

// RemainingWait returns the time remaining until the rate limit resets.
// Returns 0 if the rate limit has already reset or the state is not limited.
func (rs *RateLimitState) RemainingWait() time.Duration {
	if !rs.IsLimited {
		return 0
	}
	remaining := time.Until(rs.ResetAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RateLimitCoordinator manages a single shared rate-limit state across all
// concurrent callers of a driver. It is safe for concurrent use by multiple
// goroutines (voters, batch workers, fix workers).
type RateLimitCoordinator struct {
	mu       sync.RWMutex
	state    RateLimitState
	config   BackoffConfig
	onUpdate func(RateLimitState)
}

// NewRateLimitCoordinator creates a coordinator with the given backoff config.
func NewRateLimitCoordinator(config BackoffConfig) *RateLimitCoordinator {
	return &RateLimitCoordinator{config: config}
}

// SetUpdateCallback sets a function called whenever rate-limit state changes.
// The callback is called outside the coordinator's lock to avoid deadlocks
// and must not block.
func (rlc *RateLimitCoordinator) SetUpdateCallback(fn func(RateLimitState)) {
	rlc.mu.Lock()
	rlc.onUpdate = fn
	rlc.mu.Unlock()
}

// RecordRateLimit records that a call hit a rate limit, extending the shared
// reset window. Returns the state snapshot after recording.
func (rlc *RateLimitCoordinator) RecordRateLimit(info *RateLimitInfo) RateLimitState {
	waitDuration := rlc.computeWaitDuration(info)
	now := time.Now()

	rlc.mu.Lock()
	rlc.state.IsLimited = true
	rlc.state.WaitCount++
	rlc.state.UpdatedAt = now

	// Use the later of the current ResetAt and the new reset time so that
	// concurrent records from multiple workers always extend the window.
	newResetAt := now.Add(waitDuration)
	if newResetAt.After(rlc.state.ResetAt) {
		rlc.state.ResetAt = newResetAt
	}

	if info != nil {
		rlc.state.ResetAfter = info.ResetAfter
		if info.Message != "" {
			rlc.state.LastMessage = info.Message
		}
	}

	snapshot := rlc.state
	cb := rlc.onUpdate
	rlc.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}

	return snapshot
}

// ClearRateLimit clears the rate-limit state. Called after a successful run
// following a rate-limit wait. WaitCount is preserved so ExceededMaxWaits
// continues to work correctly.
func (rlc *RateLimitCoordinator) ClearRateLimit() {
	now := time.Now()

	rlc.mu.Lock()
	rlc.state.IsLimited = false
	rlc.state.UpdatedAt = now
	snapshot := rlc.state
	cb := rlc.onUpdate
	rlc.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// ShouldWait returns a copy of the state if waiting is needed, or nil if
// clear to proceed.
func (rlc *RateLimitCoordinator) ShouldWait() *RateLimitState {
	rlc.mu.RLock()
	defer rlc.mu.RUnlock()
	if !rlc.state.IsLimited || !rlc.state.ResetAt.After(time.Now()) {
		return nil
	}
	snapshot := rlc.state
	return &snapshot
}

// WaitForReset blocks until the rate limit resets or the context is
// cancelled. Returns nil when the wait completes normally, context.Err()
// when the context is cancelled, or an error wrapping ErrMaxWaitsExceeded
// when the configured max waits has been exceeded.
func (rlc *RateLimitCoordinator) WaitForReset(ctx context.Context) error {
	state := rlc.ShouldWait()
	if state == nil {
		return nil
	}

	if rlc.ExceededMaxWaits() {
		return fmt.Errorf("rate limit: max waits (%d) exceeded: %w", rlc.config.MaxWaits, ErrMaxWaitsExceeded)
	}

	remaining := state.RemainingWait()
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExceededMaxWaits returns true if the max wait limit has been hit.
// If MaxWaits is 0, always returns true (no waits allowed).
func (rlc *RateLimitCoordinator) ExceededMaxWaits() bool {
	if rlc.config.MaxWaits == 0 {
		return true
	}
	rlc.mu.RLock()
	waitCount := rlc.state.WaitCount
	rlc.mu.RUnlock()
	return waitCount >= rlc.config.MaxWaits
}

// State returns a copy of the current rate-limit state.
func (rlc *RateLimitCoordinator) State() RateLimitState {
	rlc.mu.RLock()
	defer rlc.mu.RUnlock()
	return rlc.state
}

// computeWaitDuration determines how long to wait based on rate-limit info
// and the backoff configuration. If info is nil or has a non-positive
// ResetAfter, config.DefaultWait is used. Jitter avoids every blocked
// worker resuming in the same instant.
func (rlc *RateLimitCoordinator) computeWaitDuration(info *RateLimitInfo) time.Duration {
	var base time.Duration
	if info != nil && info.ResetAfter > 0 {
		base = info.ResetAfter
	} else {
		base = rlc.config.DefaultWait
	}

	if rlc.config.JitterFactor > 0 {
		jitter := time.Duration(rand.Float64() * rlc.config.JitterFactor * float64(base))
		base += jitter
	}

	return base
}
