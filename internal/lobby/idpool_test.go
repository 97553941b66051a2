// internal/lobby/idpool_test.go
package lobby

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDPoolLowestFirstAndUnique(t *testing.T) {
	pool := NewIDPool()

	seen := make(map[uint16]bool)
	for i := 1; i <= 100; i++ {
		id, err := pool.Allocate()
		require.NoError(t, err)
		require.NotZero(t, id, "id 0 is reserved for broadcast")
		require.False(t, seen[id], "id %d handed out twice", id)
		require.Equal(t, uint16(i), id, "scan must be lowest-available-first")
		seen[id] = true
	}

	pool.Release(37)
	id, err := pool.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint16(37), id, "released id becomes the lowest free slot")
}

func TestIDPoolExhaustion(t *testing.T) {
	pool := NewIDPool()

	for i := 1; i < poolSize; i++ {
		_, err := pool.Allocate()
		require.NoError(t, err)
	}

	_, err := pool.Allocate()
	require.ErrorIs(t, err, ErrPoolExhausted)

	pool.Release(500)
	id, err := pool.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint16(500), id)

	_, err = pool.Allocate()
	require.ErrorIs(t, err, ErrPoolExhausted)
}

func TestIDPoolReleaseFreeIsNoop(t *testing.T) {
	pool := NewIDPool()

	pool.Release(12)
	pool.Release(12)
	pool.Release(0)

	id, err := pool.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint16(1), id)
}
