package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New(0, 0)
	assert.Equal(t, Closed, b.State())
	require.NoError(t, b.Allow())
}

func TestBreakerTripsOpenAtThreshold(t *testing.T) {
	b := New(3, time.Minute)
	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.Failure()
	}
	assert.Equal(t, Closed, b.State())

	require.NoError(t, b.Allow())
	b.Failure()
	assert.Equal(t, Open, b.State())
	assert.ErrorIs(t, b.Allow(), ErrOpen)
}

func TestBreakerHalfOpenProbeSuccessCloses(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	require.NoError(t, b.Allow())
	b.Failure()
	assert.Equal(t, Open, b.State())

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Allow())
	assert.Equal(t, HalfOpen, b.State())

	b.Success()
	assert.Equal(t, Closed, b.State())
	require.NoError(t, b.Allow())
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	require.NoError(t, b.Allow())
	b.Failure()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Allow())
	b.Failure()

	assert.Equal(t, Open, b.State())
	assert.ErrorIs(t, b.Allow(), ErrOpen)
}

func TestBreakerOnlyOneConcurrentHalfOpenProbe(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	require.NoError(t, b.Allow())
	b.Failure()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Allow())
	assert.ErrorIs(t, b.Allow(), ErrOpen)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New(2, time.Minute)
	require.NoError(t, b.Allow())
	b.Failure()
	require.NoError(t, b.Allow())
	b.Success()

	require.NoError(t, b.Allow())
	b.Failure()
	assert.Equal(t, Closed, b.State())
}
