package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterWaitPacesSameDomain(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 10, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://test.com/a"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://test.com/b"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiterDomainsAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 1, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.com/1"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.com/1"))
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiterDisabledWhenRPSUnset(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 20; i++ {
		require.NoError(t, l.Wait(ctx, "https://a.com/"))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiterHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.1, Burst: 1})
	require.NoError(t, l.Wait(context.Background(), "https://slow.com/"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx, "https://slow.com/next"))
}
