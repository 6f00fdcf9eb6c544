package llmagent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitCoordinator_RecordAndShouldWait(t *testing.T) {
	t.Parallel()

	rlc := NewRateLimitCoordinator(BackoffConfig{DefaultWait: time.Second, MaxWaits: 5})
	state := rlc.RecordRateLimit(&RateLimitInfo{IsLimited: true, ResetAfter: 50 * time.Millisecond})
	assert.True(t, state.IsLimited)
	assert.Equal(t, 1, state.WaitCount)

	waiting := rlc.ShouldWait()
	require.NotNil(t, waiting)
	assert.True(t, waiting.IsLimited)
}

func TestRateLimitCoordinator_ClearRateLimit(t *testing.T) {
	t.Parallel()

	rlc := NewRateLimitCoordinator(DefaultBackoffConfig())
	rlc.RecordRateLimit(&RateLimitInfo{IsLimited: true, ResetAfter: time.Minute})
	rlc.ClearRateLimit()

	assert.Nil(t, rlc.ShouldWait())
}

func TestRateLimitCoordinator_WaitForReset_RespectsContext(t *testing.T) {
	t.Parallel()

	rlc := NewRateLimitCoordinator(BackoffConfig{DefaultWait: time.Hour, MaxWaits: 5})
	rlc.RecordRateLimit(&RateLimitInfo{IsLimited: true, ResetAfter: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := rlc.WaitForReset(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimitCoordinator_ExceededMaxWaits(t *testing.T) {
	t.Parallel()

	rlc := NewRateLimitCoordinator(BackoffConfig{DefaultWait: time.Millisecond, MaxWaits: 2})
	rlc.RecordRateLimit(&RateLimitInfo{IsLimited: true})
	assert.False(t, rlc.ExceededMaxWaits())

	rlc.RecordRateLimit(&RateLimitInfo{IsLimited: true})
	assert.True(t, rlc.ExceededMaxWaits())
}

func TestRateLimitCoordinator_ZeroMaxWaits(t *testing.T) {
	t.Parallel()

	rlc := NewRateLimitCoordinator(BackoffConfig{MaxWaits: 0})
	assert.True(t, rlc.ExceededMaxWaits())
}

func TestRateLimitCoordinator_UpdateCallback(t *testing.T) {
	t.Parallel()

	var called bool
	rlc := NewRateLimitCoordinator(DefaultBackoffConfig())
	rlc.SetUpdateCallback(func(s RateLimitState) {
		called = true
	})
	rlc.RecordRateLimit(&RateLimitInfo{IsLimited: true})

	assert.True(t, called)
}
