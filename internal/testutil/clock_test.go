package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestDeterministicClock_FirstReadingIsStart(t *testing.T) {
	clock := NewDeterministicClock(start, time.Second)
	assert.Equal(t, start, clock.Peek())
	assert.Equal(t, start, clock.Now())
	assert.Equal(t, int64(1), clock.Ticks())
}

func TestDeterministicClock_AdvancesByStep(t *testing.T) {
	clock := NewDeterministicClock(start, 250*time.Millisecond)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start.Add(250*time.Millisecond), clock.Now())
	assert.Equal(t, start.Add(500*time.Millisecond), clock.Now())
	assert.Equal(t, start.Add(750*time.Millisecond), clock.Peek())
}

func TestDeterministicClock_DefaultStep(t *testing.T) {
	clock := NewDeterministicClock(start, 0)
	clock.Now()
	assert.Equal(t, start.Add(time.Second), clock.Now())
}

func TestDeterministicClock_NormalizesToUTC(t *testing.T) {
	local := start.In(time.FixedZone("EST", -5*60*60))
	clock := NewDeterministicClock(local, time.Second)
	assert.Equal(t, time.UTC, clock.Now().Location())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(start, time.Second)

	clock.Now()
	clock.Now()
	clock.Now()
	assert.Equal(t, int64(3), clock.Ticks())

	clock.Reset()
	assert.Equal(t, int64(0), clock.Ticks())
	assert.Equal(t, start, clock.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock(start, time.Millisecond)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]time.Time, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]time.Time, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Now()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[time.Time]bool)
	for _, row := range results {
		for _, ts := range row {
			require.False(t, seen[ts], "duplicate reading %s", ts)
			seen[ts] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}

func TestDeterministicClock_Deterministic(t *testing.T) {
	clock1 := NewDeterministicClock(start, time.Second)
	clock2 := NewDeterministicClock(start, time.Second)

	for i := 0; i < 100; i++ {
		assert.Equal(t, clock1.Now(), clock2.Now())
	}
}
