// internal/ratelimit/limiter_test.go
package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllowCeiling(t *testing.T) {
	tbl := NewTable(3, time.Minute)

	require.True(t, tbl.Allow("1.2.3.4"))
	tbl.Bump("1.2.3.4")
	tbl.Bump("1.2.3.4")
	require.True(t, tbl.Allow("1.2.3.4"))
	tbl.Bump("1.2.3.4")
	require.False(t, tbl.Allow("1.2.3.4"), "at the ceiling, issuance must be rejected")

	// Within only refuses past the ceiling.
	require.True(t, tbl.Within("1.2.3.4"))
	tbl.Bump("1.2.3.4")
	require.False(t, tbl.Within("1.2.3.4"))

	// Other addresses are unaffected.
	require.True(t, tbl.Allow("5.6.7.8"))
}

func TestDecayRemovesEntry(t *testing.T) {
	tbl := NewTable(100, time.Minute)

	tbl.Bump("9.9.9.9")
	tbl.Bump("9.9.9.9")
	tbl.Bump("9.9.9.9")

	tbl.decay()
	require.Equal(t, 2, tbl.Count("9.9.9.9"))
	tbl.decay()
	require.Equal(t, 1, tbl.Count("9.9.9.9"))
	tbl.decay()

	require.Equal(t, 0, tbl.Count("9.9.9.9"))
	tbl.mu.Lock()
	_, exists := tbl.counts["9.9.9.9"]
	tbl.mu.Unlock()
	require.False(t, exists, "entry must be deleted at zero, not retained")
	require.True(t, tbl.Allow("9.9.9.9"))
}

func TestReleaseImmediate(t *testing.T) {
	tbl := NewTable(2, time.Minute)

	tbl.Bump("a")
	tbl.Bump("a")
	require.False(t, tbl.Allow("a"))

	tbl.Release("a")
	require.True(t, tbl.Allow("a"))

	tbl.Release("a")
	tbl.mu.Lock()
	_, exists := tbl.counts["a"]
	tbl.mu.Unlock()
	require.False(t, exists)

	// Releasing an absent address is a no-op.
	tbl.Release("a")
	require.Equal(t, 0, tbl.Count("a"))
}

func TestRunWithoutDecayInterval(t *testing.T) {
	tbl := NewTable(100, 0)

	tbl.Bump("a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tbl.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	// No tick ever fires; the count only moves through Release.
	require.Equal(t, 1, tbl.Count("a"))
}
