package system

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClockNowUTC ensures the clock returns UTC timestamps.
func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC().Add(-time.Second)
	got := New().Now()
	after := time.Now().UTC().Add(time.Second)

	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.After(before) && got.Before(after))
}

func TestClockSleep(t *testing.T) {
	t.Parallel()

	clk := New()
	require.NoError(t, clk.Sleep(context.Background(), 0))
	require.NoError(t, clk.Sleep(context.Background(), 5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := clk.Sleep(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
